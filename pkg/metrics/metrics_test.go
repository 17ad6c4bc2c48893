package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	convey.Convey("Given a new metrics manager on its own registry", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(WithPrometheusRegistry(registry))

		convey.Convey("Then it should use the default namespace and subsystem", func() {
			convey.So(m.namespace, convey.ShouldEqual, "adventpace")
			convey.So(m.subsystem, convey.ShouldEqual, "tracker")
		})

		convey.Convey("Then all metric families register without conflict", func() {
			families, err := registry.Gather()
			convey.So(err, convey.ShouldBeNil)
			var names []string
			for _, f := range families {
				names = append(names, f.GetName())
			}
			joined := strings.Join(names, ",")
			convey.So(joined, convey.ShouldContainSubstring, "adventpace_tracker_targets_drawn_total")
			convey.So(joined, convey.ShouldContainSubstring, "adventpace_tracker_pool_remaining_values")
			convey.So(joined, convey.ShouldContainSubstring, "adventpace_tracker_queue_capacity")
		})
	})

	convey.Convey("Given a manager with custom options", t, func() {
		registry := prometheus.NewRegistry()
		m := NewManager(
			WithPrometheusRegistry(registry),
			WithNamespace("custom"),
			WithSubsystem("sub"),
			WithHistogramBuckets([]float64{1, 5, 10}),
		)

		convey.Convey("Then the options should be applied", func() {
			convey.So(m.namespace, convey.ShouldEqual, "custom")
			convey.So(m.subsystem, convey.ShouldEqual, "sub")
			convey.So(m.histogramBuckets, convey.ShouldResemble, []float64{1, 5, 10})
		})
	})
}

func TestGlobalHelpers(t *testing.T) {
	convey.Convey("Given the global metrics manager", t, func() {
		convey.Convey("When recording business metrics", func() {
			RecordEventProcessed()
			RecordEventSkipped("keyword_mismatch")
			RecordLogMerge()
			RecordTargetDrawn()
			UpdatePoolRemaining(17)

			convey.Convey("Then the pool gauge reflects the update", func() {
				convey.So(gaugeValue(globalManager.poolRemaining), convey.ShouldEqual, 17)
			})
		})

		convey.Convey("When recording provider metrics", func() {
			RecordStravaCall()
			RecordStravaCallError()
			RecordTokenRefresh()
			RecordTokenRefreshError()

			convey.Convey("Then the counters advance", func() {
				convey.So(counterValue(globalManager.stravaCalls), convey.ShouldBeGreaterThan, 0)
			})
		})

		convey.Convey("When recording queue and worker metrics", func() {
			UpdateQueueSize(5)
			UpdateQueueCapacity(100)
			UpdateQueueUtilization(0.05)
			RecordQueueEnqueue()
			RecordQueueDequeue()
			RecordQueueEnqueueError()
			RecordQueueProcessingLatency(1.5)
			UpdateWorkerActiveCount(4)
			UpdateWorkerIdleCount(0)
			UpdateWorkerMessagesPerSecond(12.5)
			RecordWorkerProcessingLatency(3.0)
			RecordWorkerError()

			convey.Convey("Then the gauges reflect the updates", func() {
				convey.So(gaugeValue(globalManager.queueSize), convey.ShouldEqual, 5)
				convey.So(gaugeValue(globalManager.workerActiveCount), convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When recording HTTP and error metrics", func() {
			RecordHTTPRequest("target", "GET", "200")
			RecordHTTPRequestDuration("target", "GET", "200", 2.5)
			RecordErrorByComponent("queue", "closed")
			RecordErrorByType("client_error", "medium")
			RecordErrorByEndpoint("target", "GET", "client_error")
			RecordErrorLatency("http", "client_error", 1.0)
			UpdateSystemMemoryUsage(1 << 20)
			UpdateSystemGoroutineCount(42)

			convey.Convey("Then the registry can still gather", func() {
				families, err := GetRegistry().Gather()
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(families), convey.ShouldBeGreaterThan, 0)
			})
		})
	})
}

func gaugeValue(g prometheus.Gauge) float64 {
	var m dto.Metric
	_ = g.Write(&m)
	return m.GetGauge().GetValue()
}

func counterValue(c prometheus.Counter) float64 {
	var m dto.Metric
	_ = c.Write(&m)
	return m.GetCounter().GetValue()
}
