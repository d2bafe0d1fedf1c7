package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()
	require.NotNil(t, m)
	assert.NotNil(t, m.Registry())
}

func TestDefault(t *testing.T) {
	assert.Same(t, Default(), Default())
}

func TestNewInstancesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordFieldEdit("name")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.fieldEdits.WithLabelValues("name")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.fieldEdits.WithLabelValues("name")))
}

func TestSessions(t *testing.T) {
	m := New()
	m.SessionOpened()
	m.SessionOpened()
	m.SessionClosed()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.sessionsGauge))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.sessionsOpened))
	assert.Equal(t, int64(1), m.Snapshot().ActiveSessions)
}

func TestRecordSubmission(t *testing.T) {
	m := New()
	m.RecordSubmission("")
	m.RecordSubmission("FORM_001")
	m.RecordSubmission("FORM_001")
	m.RecordSubmission("FORM_004")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.submissions.WithLabelValues("accepted")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.submissions.WithLabelValues("rejected")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.validationErrors.WithLabelValues("FORM_001")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.validationErrors.WithLabelValues("FORM_004")))
}

func TestRecordPickerAndScheduling(t *testing.T) {
	m := New()
	m.RecordPicker("end_date", "rejected")
	m.RecordScheduled(true)
	m.RecordScheduled(false)
	m.RecordDelivery("telegram", true)
	m.RecordDelivery("telegram", false)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.pickerOutcomes.WithLabelValues("end_date", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.remindersQueued))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.schedulingErrors))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.deliveries.WithLabelValues("telegram", "failed")))
}

func TestObserve(t *testing.T) {
	m := New()
	m.ObserveDispatch(20 * time.Millisecond)
	m.ObserveRequest("/api/forms", 422, time.Millisecond)

	assert.Equal(t, 1, testutil.CollectAndCount(m.dispatchDuration))
	assert.Equal(t, 1, testutil.CollectAndCount(m.requestDuration))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(201))
	assert.Equal(t, "3xx", statusClass(304))
	assert.Equal(t, "4xx", statusClass(409))
	assert.Equal(t, "5xx", statusClass(503))
}

func TestHandler(t *testing.T) {
	m := New()
	m.RecordSubmission("")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `medreminder_submissions_total{result="accepted"} 1`)
	assert.Contains(t, string(body), "medreminder_uptime_seconds")
}
