package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMiddlewareUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(Middleware)
	r.Get("/projects/{id}", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNotFound) })

	before := testutil.CollectAndCount(httpRequestDuration)
	for _, id := range []string{"a", "b", "c"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/projects/"+id, nil))
	}
	assert.Equal(t, before+1, testutil.CollectAndCount(httpRequestDuration), "one series for all ids")
}

func TestRecordEntryWrite(t *testing.T) {
	before := testutil.ToFloat64(entryWrites.WithLabelValues("create", "overlap_violation"))
	RecordEntryWrite("create", "overlap_violation")
	assert.Equal(t, before+1, testutil.ToFloat64(entryWrites.WithLabelValues("create", "overlap_violation")))
}

func TestRecordPurged(t *testing.T) {
	before := testutil.ToFloat64(cascadePurged)
	RecordPurged(0)
	RecordPurged(3)
	assert.Equal(t, before+3, testutil.ToFloat64(cascadePurged))
}
