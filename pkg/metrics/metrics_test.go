package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestRecordSyncRun(t *testing.T) {
	before := testutil.ToFloat64(syncRunsCounter.WithLabelValues("test", "synced"))
	RecordSyncRun("test", "synced", 120*time.Millisecond)
	require.Equal(t, before+1, testutil.ToFloat64(syncRunsCounter.WithLabelValues("test", "synced")))
	require.Greater(t, testutil.ToFloat64(lastSyncGauge), float64(0))
}

func TestRecordActivitiesIgnoresZero(t *testing.T) {
	before := testutil.ToFloat64(activitiesCounter.WithLabelValues(OutcomeDropped))
	RecordActivities(OutcomeDropped, 0)
	RecordActivities(OutcomeDropped, 2)
	require.Equal(t, before+2, testutil.ToFloat64(activitiesCounter.WithLabelValues(OutcomeDropped)))
}

func TestRecordAPIRequestClasses(t *testing.T) {
	RecordAPIRequest("list", 503)
	RecordAPIRequest("list", 0)
	require.GreaterOrEqual(t, testutil.ToFloat64(apiRequestCounter.WithLabelValues("list", "5xx")), float64(1))
	require.GreaterOrEqual(t, testutil.ToFloat64(apiRequestCounter.WithLabelValues("list", "error")), float64(1))
}
