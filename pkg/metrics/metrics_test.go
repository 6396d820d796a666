package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsManagerCreation(t *testing.T) {
	Convey("Given a private registry", t, func() {
		registry := prometheus.NewRegistry()

		Convey("When a manager is created with custom naming", func() {
			m := NewManager(
				WithNamespace("test"),
				WithSubsystem("board"),
				WithHistogramBuckets([]float64{1, 10}),
				WithPrometheusRegistry(registry),
			)
			m.RecordScoreSubmission(OutcomeOK)

			Convey("Then metrics are registered under that name", func() {
				families, err := registry.Gather()
				So(err, ShouldBeNil)
				names := map[string]bool{}
				for _, f := range families {
					names[f.GetName()] = true
				}
				So(names["test_board_score_submissions_total"], ShouldBeTrue)
			})
		})
	})
}

func TestMetricsRecording(t *testing.T) {
	Convey("Given a manager on a private registry", t, func() {
		m := NewManager(WithPrometheusRegistry(prometheus.NewRegistry()))

		Convey("When submissions are recorded", func() {
			m.RecordScoreSubmission(OutcomeOK)
			m.RecordScoreSubmission(OutcomeOK)
			m.RecordScoreSubmission(OutcomeInvalid)

			Convey("Then counters are split by outcome", func() {
				So(testutil.ToFloat64(m.scoreSubmissions.WithLabelValues(OutcomeOK)), ShouldEqual, float64(2))
				So(testutil.ToFloat64(m.scoreSubmissions.WithLabelValues(OutcomeInvalid)), ShouldEqual, float64(1))
			})
		})

		Convey("When gauges are updated", func() {
			m.UpdateParticipants(42)
			m.UpdateStoreUp(true)
			m.UpdateQueueCapacity(8)
			m.UpdateQueueSize(3)

			Convey("Then they hold the latest values", func() {
				So(testutil.ToFloat64(m.participants), ShouldEqual, float64(42))
				So(testutil.ToFloat64(m.storeUp), ShouldEqual, float64(1))
				So(testutil.ToFloat64(m.queueCapacity), ShouldEqual, float64(8))
				So(testutil.ToFloat64(m.queueSize), ShouldEqual, float64(3))
			})

			Convey("And the store gauge drops to zero when down", func() {
				m.UpdateStoreUp(false)
				So(testutil.ToFloat64(m.storeUp), ShouldEqual, float64(0))
			})
		})

		Convey("When HTTP and error metrics are recorded", func() {
			m.RecordHTTPRequest("score", "POST", "200")
			m.RecordHTTPRequestDuration("score", "POST", "200", 12)
			m.RecordErrorByEndpoint("score", "POST", "client_error")
			m.RecordRateLimited("score")

			Convey("Then the labelled series exist", func() {
				So(testutil.ToFloat64(m.httpRequests.WithLabelValues("score", "POST", "200")), ShouldEqual, float64(1))
				So(testutil.ToFloat64(m.errorRateByEndpoint.WithLabelValues("score", "POST", "client_error")), ShouldEqual, float64(1))
				So(testutil.ToFloat64(m.rateLimited.WithLabelValues("score")), ShouldEqual, float64(1))
			})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	Convey("Given the global registry", t, func() {
		Convey("When package helpers are called", func() {
			So(func() {
				RecordScoreSubmission(OutcomeFailed)
				RecordSubmitLatency(3)
				RecordRecomputeLatency(1)
				UpdateParticipants(5)
				RecordRepositoryQueryLatency(1)
				RecordRepositoryUpdateLatency(2)
				RecordQueueEnqueue()
				RecordQueueRejected()
				RecordWriterProcessed()
				RecordWriterLatency(1)
				RecordErrorByComponent("repository", "unavailable")
				RecordErrorByType("server_error", "high")
				RecordErrorLatency("http", "server_error", 4)
				UpdateSystemMemoryUsage(1024)
				UpdateSystemGoroutineCount(10)
				RecordSystemGCPauseTime(0.5)
			}, ShouldNotPanic)

			Convey("Then the registry exposes them", func() {
				count, err := testutil.GatherAndCount(GetRegistry(), "scool_leaderboard_participants")
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 1)
			})
		})
	})
}
