package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When creating a manager with custom options", func() {
			manager := NewManager(
				WithNamespace("test"),
				WithSubsystem("deck"),
				WithHistogramBuckets([]float64{1, 10, 100}),
				WithConstLabels(map[string]string{"env": "test"}),
				WithPrometheusRegistry(registry),
			)
			manager.decksGenerated.Inc()

			Convey("Then collectors should use the configured names and labels", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)

				var found bool
				for _, mf := range families {
					if mf.GetName() != "test_deck_generated_total" {
						continue
					}
					found = true
					So(mf.GetMetric()[0].GetLabel()[0].GetName(), ShouldEqual, "env")
				}
				So(found, ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("When a deck is recorded", func() {
			before := testutil.ToFloat64(globalManager.decksGenerated)
			RecordDeckGenerated(15, 12.5)

			Convey("Then the deck counter should advance", func() {
				So(testutil.ToFloat64(globalManager.decksGenerated), ShouldEqual, before+1)
			})
		})

		Convey("When stage picks are recorded", func() {
			before := testutil.ToFloat64(globalManager.stagePicks.WithLabelValues(StageCoverage))
			RecordStagePicks(StageCoverage, 7)

			Convey("Then the labelled counter should grow by the pick count", func() {
				So(testutil.ToFloat64(globalManager.stagePicks.WithLabelValues(StageCoverage)), ShouldEqual, before+7)
			})
		})

		Convey("When generator outcomes are recorded", func() {
			before := testutil.ToFloat64(globalManager.generatorRequests.WithLabelValues("template", OutcomeSuccess))
			RecordGeneratorRequest("template", OutcomeSuccess, 0.2)
			RecordGeneratorFallback()

			Convey("Then they should be counted per backend", func() {
				So(testutil.ToFloat64(globalManager.generatorRequests.WithLabelValues("template", OutcomeSuccess)), ShouldEqual, before+1)
			})
		})

		Convey("When gauges are updated", func() {
			UpdateQuestionTotal(42)
			UpdateDeckTotal(3)

			Convey("Then they should hold the last value", func() {
				So(testutil.ToFloat64(globalManager.questionsTotal), ShouldEqual, 42)
				So(testutil.ToFloat64(globalManager.decksTotal), ShouldEqual, 3)
			})
		})

		Convey("When the remaining helpers are called", func() {
			So(func() {
				RecordLockWait(1)
				RecordAccessCodeFailure()
				RecordQuestionsCreated(SourceGenerated, 3)
				RecordFeedback("like")
				RecordRescored(1)
				RecordRepositoryError("append_deck")
				RecordHTTPRequest("/decks", "POST", "201")
				RecordHTTPRequestDuration("/decks", "POST", "201", 4)
				UpdateSystemMemoryUsage(1 << 20)
				UpdateSystemGoroutineCount(12)
			}, ShouldNotPanic)
		})
	})
}

func TestGetRegistry(t *testing.T) {
	Convey("Given the custom registry", t, func() {
		RecordFeedback("dislike")
		RecordFeedbackDuplicate()

		Convey("Then it should expose the namespaced collectors", func() {
			families, err := GetRegistry().Gather()
			So(err, ShouldBeNil)

			names := make([]string, 0, len(families))
			for _, mf := range families {
				names = append(names, mf.GetName())
			}
			So(strings.Join(names, ","), ShouldContainSubstring, "entalk_decks_feedback_total")
		})
	})
}
