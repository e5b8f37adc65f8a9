package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestObserveFinish(t *testing.T) {
	before := testutil.ToFloat64(AttemptsFinished.WithLabelValues(ReasonExpired))
	ObserveFinish(ReasonExpired, 75)
	assert.Equal(t, before+1, testutil.ToFloat64(AttemptsFinished.WithLabelValues(ReasonExpired)))
}

func TestObserveAnswer(t *testing.T) {
	before := testutil.ToFloat64(AnswersRecorded.WithLabelValues("true"))
	ObserveAnswer(true)
	assert.Equal(t, before+1, testutil.ToFloat64(AnswersRecorded.WithLabelValues("true")))
}

func TestMiddlewareAndHandler(t *testing.T) {
	r := gin.New()
	r.Use(Middleware())
	r.GET("/attempts/:id", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.GET("/metrics", Handler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/attempts/42", nil))
	require.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)

	body := w.Body.String()
	assert.True(t, strings.Contains(body, `http_request_duration_seconds_count{method="GET",route="/attempts/:id",status="204"} 1`), body)
	assert.Contains(t, body, "quiz_attempts_started_total")
}
