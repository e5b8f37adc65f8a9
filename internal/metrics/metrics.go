// Package metrics holds the Prometheus collectors of the service and the
// gin glue that records and exposes them.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Finish reasons.
const (
	ReasonLearner = "learner"
	ReasonExpired = "expired"
)

var (
	// AttemptsStarted counts freshly assembled tests.
	AttemptsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_attempts_started_total",
		Help: "Total number of assembled test attempts",
	})

	// AttemptsFinished counts scored attempts by reason: learner/expired.
	AttemptsFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_attempts_finished_total",
		Help: "Total number of finished attempts",
	}, []string{"reason"})

	// AttemptPercent is the distribution of final percents.
	AttemptPercent = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "quiz_attempt_percent",
		Help:    "Final percent of finished attempts",
		Buckets: prometheus.LinearBuckets(10, 10, 10),
	})

	// AnswersRecorded counts confirmed answers by correctness.
	AnswersRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "quiz_answers_total",
		Help: "Total number of confirmed answers",
	}, []string{"correct"})

	// AssemblyFailures counts tests that could not be assembled from the bank.
	AssemblyFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quiz_assembly_failures_total",
		Help: "Total number of failed test assemblies",
	})

	// BankQuestions is the size of the current bank.
	BankQuestions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "quiz_bank_questions",
		Help: "Number of questions in the current bank",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Time spent serving HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// ObserveFinish records one finished attempt.
func ObserveFinish(reason string, percent int) {
	AttemptsFinished.WithLabelValues(reason).Inc()
	AttemptPercent.Observe(float64(percent))
}

// ObserveAnswer records one confirmed answer.
func ObserveAnswer(correct bool) {
	AnswersRecorded.WithLabelValues(strconv.FormatBool(correct)).Inc()
}

// Middleware times every request by its route template, so /attempts/1 and
// /attempts/2 share a series. Unmatched routes are labelled "unmatched".
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}

// Handler serves the default registry in the Prometheus text format.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
