package observability

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type moduleMetrics struct {
	queueDepth      prometheus.Gauge
	enqueueTotal    prometheus.Counter
	dequeueTotal    *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
	commandWait     prometheus.Histogram

	sessionActive   prometheus.Gauge
	browserLaunch   prometheus.Histogram
	navigationTotal *prometheus.CounterVec

	actionExecutionTotal    *prometheus.CounterVec
	actionExecutionDuration *prometheus.HistogramVec
	actionErrorsTotal       *prometheus.CounterVec

	scenarioRunTotal    *prometheus.CounterVec
	scenarioRunDuration *prometheus.HistogramVec

	connectedClients prometheus.Gauge
	rpcRequestsTotal *prometheus.CounterVec
}

var (
	metricsOnce sync.Once
	metricsInst *moduleMetrics
)

func getMetrics() *moduleMetrics {
	metricsOnce.Do(func() {
		m := &moduleMetrics{
			queueDepth: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "command_queue_depth",
					Help: "Commands currently waiting in the queue.",
				},
			),
			enqueueTotal: prometheus.NewCounter(
				prometheus.CounterOpts{
					Name: "command_enqueue_total",
					Help: "Total commands submitted to the queue.",
				},
			),
			dequeueTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "command_dequeue_total",
					Help: "Total commands completed by the worker, by status.",
				},
				[]string{"status"},
			),
			commandDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "command_duration_seconds",
					Help:    "Command execution duration in seconds by action.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"action"},
			),
			commandWait: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "command_wait_seconds",
					Help:    "Time commands spend queued before the worker picks them up.",
					Buckets: prometheus.DefBuckets,
				},
			),
			sessionActive: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "browser_session_active",
					Help: "Whether a browser session is open (1 open, 0 closed).",
				},
			),
			browserLaunch: prometheus.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "browser_launch_duration_seconds",
					Help:    "Browser launch and connect duration in seconds.",
					Buckets: prometheus.DefBuckets,
				},
			),
			navigationTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "browser_navigation_total",
					Help: "Total page navigations by status.",
				},
				[]string{"status"},
			),
			actionExecutionTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "action_execution_total",
					Help: "Total action executions by action and status.",
				},
				[]string{"action", "status"},
			),
			actionExecutionDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "action_execution_duration_seconds",
					Help:    "Action execution duration in seconds by action.",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"action"},
			),
			actionErrorsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "action_errors_total",
					Help: "Total action execution errors by action.",
				},
				[]string{"action"},
			),
			scenarioRunTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "scenario_run_total",
					Help: "Total scenario runs by scenario and status.",
				},
				[]string{"scenario", "status"},
			),
			scenarioRunDuration: prometheus.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "scenario_run_duration_seconds",
					Help:    "Scenario run duration in seconds by scenario.",
					Buckets: []float64{.1, .5, 1, 2.5, 5, 10, 30, 60, 120, 300},
				},
				[]string{"scenario"},
			),
			connectedClients: prometheus.NewGauge(
				prometheus.GaugeOpts{
					Name: "gateway_connected_clients",
					Help: "Currently connected gateway clients.",
				},
			),
			rpcRequestsTotal: prometheus.NewCounterVec(
				prometheus.CounterOpts{
					Name: "gateway_rpc_requests_total",
					Help: "Total RPC requests by method and status.",
				},
				[]string{"method", "status"},
			),
		}

		prometheus.MustRegister(
			m.queueDepth,
			m.enqueueTotal,
			m.dequeueTotal,
			m.commandDuration,
			m.commandWait,
			m.sessionActive,
			m.browserLaunch,
			m.navigationTotal,
			m.actionExecutionTotal,
			m.actionExecutionDuration,
			m.actionErrorsTotal,
			m.scenarioRunTotal,
			m.scenarioRunDuration,
			m.connectedClients,
			m.rpcRequestsTotal,
		)

		metricsInst = m
	})

	return metricsInst
}

// EnsureRegistered initializes and registers metrics the first time it is called.
func EnsureRegistered() {
	_ = getMetrics()
}

func MetricsHandler() http.Handler {
	EnsureRegistered()
	return promhttp.Handler()
}

func RecordQueueEnqueue(queueDepth int) {
	m := getMetrics()
	m.enqueueTotal.Inc()
	m.queueDepth.Set(float64(queueDepth))
}

func SetQueueDepth(queueDepth int) {
	m := getMetrics()
	m.queueDepth.Set(float64(queueDepth))
}

func RecordQueueCompletion(action string, wait, duration time.Duration, success bool, queueDepth int) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.dequeueTotal.WithLabelValues(status).Inc()
	m.commandDuration.WithLabelValues(action).Observe(duration.Seconds())
	m.commandWait.Observe(wait.Seconds())
	m.queueDepth.Set(float64(queueDepth))
}

func SetSessionActive(active bool) {
	m := getMetrics()
	value := 0.0
	if active {
		value = 1.0
	}
	m.sessionActive.Set(value)
}

func RecordBrowserLaunch(duration time.Duration) {
	m := getMetrics()
	m.browserLaunch.Observe(duration.Seconds())
}

func RecordNavigation(success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.navigationTotal.WithLabelValues(status).Inc()
}

func RecordActionExecution(action string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.actionExecutionTotal.WithLabelValues(action, status).Inc()
	m.actionExecutionDuration.WithLabelValues(action).Observe(duration.Seconds())
	if !success {
		m.actionErrorsTotal.WithLabelValues(action).Inc()
	}
}

func RecordScenarioRun(scenario string, duration time.Duration, success bool) {
	m := getMetrics()
	status := "error"
	if success {
		status = "success"
	}
	m.scenarioRunTotal.WithLabelValues(scenario, status).Inc()
	m.scenarioRunDuration.WithLabelValues(scenario).Observe(duration.Seconds())
}

func SetConnectedClients(count int) {
	m := getMetrics()
	m.connectedClients.Set(float64(count))
}

func RecordRPCRequest(method, status string) {
	m := getMetrics()
	m.rpcRequestsTotal.WithLabelValues(method, status).Inc()
}
