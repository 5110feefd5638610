package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder(t *testing.T) {
	before := testutil.ToFloat64(HabitMutations.WithLabelValues("add"))
	Recorder{}.RecordMutation("add")
	assert.Equal(t, before+1, testutil.ToFloat64(HabitMutations.WithLabelValues("add")))

	errsBefore := testutil.ToFloat64(PersistErrors)
	Recorder{}.RecordPersistError()
	assert.Equal(t, errsBefore+1, testutil.ToFloat64(PersistErrors))
}

func TestRecordHTTPRequest(t *testing.T) {
	RecordHTTPRequest("GET", "GET /api/stats", 200, 5*time.Millisecond)
	assert.GreaterOrEqual(t, testutil.CollectAndCount(HTTPRequestDuration), 1)
}
