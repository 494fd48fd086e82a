package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordUnchargedAction(t *testing.T) {
	before := testutil.ToFloat64(unchargedActions)
	RecordUnchargedAction()
	assert.Equal(t, before+1, testutil.ToFloat64(unchargedActions))
}

func TestRecordCreditsMoved(t *testing.T) {
	before := testutil.ToFloat64(ledgerCredits.WithLabelValues("deduction"))
	RecordCreditsMoved("deduction", -5)
	assert.Equal(t, before+5, testutil.ToFloat64(ledgerCredits.WithLabelValues("deduction")))
}

func TestInstrumentHandler(t *testing.T) {
	r := chi.NewRouter()
	r.Use(InstrumentHandler)
	r.Get("/credits/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	before := testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/credits/{id}", "418"))

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/credits/abc", nil))

	assert.Equal(t, http.StatusTeapot, rr.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(httpRequests.WithLabelValues("GET", "/credits/{id}", "418")))
}
