package scoring_test

import (
	"math/rand"
	"testing"
	"time"

	"github.com/okian/entalk/internal/domain/model"
	scoring "github.com/okian/entalk/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

var now = time.Date(2026, 5, 1, 18, 0, 0, 0, time.UTC)

func question(likes, dislikes int, age time.Duration) model.Question {
	return model.Question{
		ID:        "q",
		CreatedAt: now.Add(-age),
		Performance: model.Performance{
			Views:    likes + dislikes,
			Likes:    likes,
			Dislikes: dislikes,
		},
	}
}

func TestJitteredScorer_Score(t *testing.T) {
	Convey("Given a scorer without jitter", t, func() {
		scorer := scoring.NewScorer(scoring.WithJitterCeiling(0))

		Convey("When scoring an unrated question created just now", func() {
			score := scorer.Score(question(0, 0, 0), now)

			Convey("Then only the freshness term should contribute", func() {
				So(score, ShouldAlmostEqual, 0.3, 1e-9)
			})
		})

		Convey("When scoring a fully liked question aged 15 days", func() {
			score := scorer.Score(question(4, 0, 15*24*time.Hour), now)

			Convey("Then it should combine like rate and half freshness", func() {
				So(score, ShouldAlmostEqual, 0.7+0.15, 1e-9)
			})
		})

		Convey("When scoring a question older than the freshness window", func() {
			score := scorer.Score(question(1, 1, 90*24*time.Hour), now)

			Convey("Then freshness should be floored at zero", func() {
				So(score, ShouldAlmostEqual, 0.35, 1e-9)
			})
		})

		Convey("When likes increase at fixed views", func() {
			low := scorer.Score(question(1, 3, 40*24*time.Hour), now)
			high := scorer.Score(question(2, 2, 40*24*time.Hour), now)

			Convey("Then the score should strictly increase", func() {
				So(high, ShouldBeGreaterThan, low)
			})
		})
	})

	Convey("Given a scorer with default jitter", t, func() {
		scorer := scoring.NewScorer(scoring.WithSeed(7))
		q := question(0, 5, 60*24*time.Hour)

		Convey("Then scores should stay in [base, base+0.1)", func() {
			for i := 0; i < 500; i++ {
				s := scorer.Score(q, now)
				So(s, ShouldBeGreaterThanOrEqualTo, 0)
				So(s, ShouldBeLessThan, 0.1)
			}
		})

		Convey("Then repeated calls should not all agree", func() {
			first := scorer.Score(q, now)
			differs := false
			for i := 0; i < 10; i++ {
				if scorer.Score(q, now) != first {
					differs = true
				}
			}
			So(differs, ShouldBeTrue)
		})
	})

	Convey("Given two scorers sharing a seed", t, func() {
		a := scoring.NewScorer(scoring.WithSeed(42))
		b := scoring.NewScorer(scoring.WithSource(rand.NewSource(42)))
		q := question(3, 1, 2*24*time.Hour)

		Convey("Then they should produce the same sequence", func() {
			for i := 0; i < 20; i++ {
				So(a.Score(q, now), ShouldEqual, b.Score(q, now))
			}
		})
	})
}

func TestJitteredScorer_Rescore(t *testing.T) {
	Convey("Given a question with a stale score", t, func() {
		scorer := scoring.NewScorer(scoring.WithJitterCeiling(0))
		q := question(1, 0, 0)
		q.ID = "q-7"
		q.Performance.Score = 0.01

		Convey("When it is rescored", func() {
			ev := scorer.Rescore(&q, now)

			Convey("Then the new score should be written back", func() {
				So(q.Performance.Score, ShouldAlmostEqual, 1.0, 1e-9)
			})

			Convey("And the event should describe the change", func() {
				So(ev.QuestionID, ShouldEqual, "q-7")
				So(ev.Previous, ShouldEqual, 0.01)
				So(ev.Score, ShouldEqual, q.Performance.Score)
			})
		})
	})
}

func TestFreshness(t *testing.T) {
	Convey("Given a 30 day window", t, func() {
		window := 30 * 24 * time.Hour

		Convey("Then freshness should decay linearly to zero", func() {
			So(scoring.Freshness(now, now, window), ShouldAlmostEqual, 1, 1e-9)
			So(scoring.Freshness(now.Add(-10*24*time.Hour), now, window), ShouldAlmostEqual, 2.0/3.0, 1e-9)
			So(scoring.Freshness(now.Add(-30*24*time.Hour), now, window), ShouldAlmostEqual, 0, 1e-9)
			So(scoring.Freshness(now.Add(-45*24*time.Hour), now, window), ShouldEqual, 0)
		})
	})
}
