package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestInitIsIdempotent(t *testing.T) {
	Init()
	require.NotPanics(t, Init)
}

func TestObserversDoNotPanic(t *testing.T) {
	Init()

	require.NotPanics(t, func() {
		ObserveRun(true, 2*time.Second)
		ObserveRun(false, time.Second)
		ObserveSourceResult("changed")
		ObserveFetch("transport_failure")
		ObserveChangeEvent()
		ObserveAnalysisDegraded()
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	Init()
	ObserveSourceResult("unchanged")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	Handler().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "regwatch_source_results_total")
}
