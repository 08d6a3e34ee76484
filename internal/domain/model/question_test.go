package model_test

import (
	"testing"
	"time"

	model "github.com/okian/entalk/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func TestPolarity(t *testing.T) {
	convey.Convey("Given raw polarity input", t, func() {
		convey.Convey("When it is like or dislike in any case", func() {
			like, errLike := model.ParsePolarity(" Like ")
			dislike, errDislike := model.ParsePolarity("DISLIKE")

			convey.Convey("Then it should map onto the closed set", func() {
				convey.So(errLike, convey.ShouldBeNil)
				convey.So(like, convey.ShouldEqual, model.PolarityLike)
				convey.So(errDislike, convey.ShouldBeNil)
				convey.So(dislike, convey.ShouldEqual, model.PolarityDislike)
			})
		})

		convey.Convey("When it is anything else", func() {
			_, err := model.ParsePolarity("meh")

			convey.Convey("Then it should be rejected", func() {
				convey.So(err, convey.ShouldEqual, model.ErrUnknownPolarity)
			})
		})
	})
}

func TestQuestionPerformance(t *testing.T) {
	convey.Convey("Given a fresh question", t, func() {
		q := model.Question{ID: "q1"}

		convey.Convey("Then its like rate should be zero", func() {
			convey.So(q.Performance.LikeRate(), convey.ShouldEqual, 0)
		})

		convey.Convey("When reactions are applied", func() {
			for _, p := range []model.Polarity{model.PolarityLike, model.PolarityDislike, model.PolarityLike, model.PolarityLike} {
				q.Apply(p)
			}

			convey.Convey("Then views should equal likes plus dislikes", func() {
				convey.So(q.Performance.Views, convey.ShouldEqual, 4)
				convey.So(q.Performance.Likes, convey.ShouldEqual, 3)
				convey.So(q.Performance.Dislikes, convey.ShouldEqual, 1)
				convey.So(q.Performance.Views, convey.ShouldEqual, q.Performance.Likes+q.Performance.Dislikes)
				convey.So(q.Performance.LikeRate(), convey.ShouldEqual, 0.75)
			})
		})
	})
}

func TestQuestionUsage(t *testing.T) {
	convey.Convey("Given a question used at two locations", t, func() {
		now := time.Date(2026, 3, 2, 19, 0, 0, 0, time.UTC)
		q := model.Question{
			ID: "q1",
			UsageHistory: []model.Usage{
				{LocationID: "kadikoy", At: now.Add(-10 * 24 * time.Hour)},
				{LocationID: "besiktas", At: now.Add(-40 * 24 * time.Hour)},
			},
		}

		convey.Convey("Then recency should be judged per location", func() {
			convey.So(q.UsedSince("kadikoy", now.Add(-28*24*time.Hour)), convey.ShouldBeTrue)
			convey.So(q.UsedSince("besiktas", now.Add(-28*24*time.Hour)), convey.ShouldBeFalse)
			convey.So(q.UsedSince("uskudar", now.Add(-28*24*time.Hour)), convey.ShouldBeFalse)
		})

		convey.Convey("Then a usage exactly at the cutoff should not count", func() {
			convey.So(q.UsedSince("kadikoy", now.Add(-10*24*time.Hour)), convey.ShouldBeFalse)
		})

		convey.Convey("Then usage elsewhere should be detected", func() {
			convey.So(q.UsedElsewhere("kadikoy"), convey.ShouldBeTrue)
			convey.So(q.UsedElsewhere("uskudar"), convey.ShouldBeTrue)
		})

		convey.Convey("When the question is cloned and the clone mutated", func() {
			c := q.Clone()
			c.UsageHistory[0].LocationID = "changed"

			convey.Convey("Then the original history should be untouched", func() {
				convey.So(q.UsageHistory[0].LocationID, convey.ShouldEqual, "kadikoy")
			})
		})
	})
}

func TestCatalog(t *testing.T) {
	convey.Convey("Given the category and phase enumerations", t, func() {
		cats := model.Categories()
		phases := model.Phases()

		convey.Convey("Then they should have six and four members in order", func() {
			convey.So(len(cats), convey.ShouldEqual, 6)
			convey.So(cats[0], convey.ShouldEqual, model.CategoryIcebreaker)
			convey.So(cats[5], convey.ShouldEqual, model.CategoryCultural)
			convey.So(len(phases), convey.ShouldEqual, 4)
			convey.So(phases[0], convey.ShouldEqual, model.PhaseWarmUp)
			convey.So(phases[3], convey.ShouldEqual, model.PhaseChallenge)
		})

		convey.Convey("Then every member should be valid and described", func() {
			for _, c := range cats {
				convey.So(c.Valid(), convey.ShouldBeTrue)
				convey.So(c.Description(), convey.ShouldNotBeEmpty)
			}
			for _, p := range phases {
				convey.So(p.Valid(), convey.ShouldBeTrue)
				convey.So(p.Description(), convey.ShouldNotBeEmpty)
			}
		})

		convey.Convey("Then unknown values should be invalid", func() {
			convey.So(model.Category("Trivia").Valid(), convey.ShouldBeFalse)
			convey.So(model.Phase("Cooldown").Valid(), convey.ShouldBeFalse)
		})

		convey.Convey("When the returned slice is modified", func() {
			cats[0] = "Mutated"

			convey.Convey("Then the enumeration should be unchanged", func() {
				convey.So(model.Categories()[0], convey.ShouldEqual, model.CategoryIcebreaker)
			})
		})
	})
}
