package metrics

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/l3check/pkg/types"
)

func TestWriteStatusOK(t *testing.T) {
	summary := &types.Summary{
		Status: types.RunStatusOK,
		Counters: types.HealthCounters{
			UnscheduledRouters: 1,
			InactiveRouters:    2,
			DownRouters:        0,
			MissingFloatingIPs: 3,
		},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, summary))

	want := "status ok\n" +
		"metric neutron_unscheduled_routers uint32 1 routers\n" +
		"metric neutron_inactive_routers uint32 2 routers\n" +
		"metric neutron_down_routers uint32 0 routers\n" +
		"metric neutron_missing_floating_ips uint32 3 ips\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteStatusError(t *testing.T) {
	summary := &types.Summary{
		Status: types.RunStatusError,
		Error:  "list routers: status 503:\n  service unavailable",
	}

	var buf bytes.Buffer
	require.NoError(t, WriteStatus(&buf, summary))
	assert.Equal(t, "status error list routers: status 503: service unavailable\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteStatus(&buf, &types.Summary{Status: types.RunStatusError}))
	assert.Equal(t, "status error check failed\n", buf.String())
}

func TestRecord(t *testing.T) {
	summary := &types.Summary{
		Status:    types.RunStatusOK,
		StartedAt: time.Unix(1700000000, 0),
		Duration:  2 * time.Second,
		Counters: types.HealthCounters{
			UnscheduledRouters: 4,
			InactiveRouters:    3,
			DownRouters:        2,
			MissingFloatingIPs: 1,
		},
		Anomalies: []types.Anomaly{
			{Kind: types.AnomalyUnknownRouter},
			{Kind: types.AnomalyUnknownRouter},
			{Kind: types.AnomalyMalformedNamespace},
		},
		ContextFailures: []types.ContextFailure{{Context: "c1", Error: "timeout"}},
	}

	Record(summary)

	assert.Equal(t, 1.0, testutil.ToFloat64(CheckUp))
	assert.Equal(t, 4.0, testutil.ToFloat64(UnscheduledRouters))
	assert.Equal(t, 3.0, testutil.ToFloat64(InactiveRouters))
	assert.Equal(t, 2.0, testutil.ToFloat64(DownRouters))
	assert.Equal(t, 1.0, testutil.ToFloat64(MissingFloatingIPs))
	assert.Equal(t, 1.0, testutil.ToFloat64(ContextFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(Anomalies.WithLabelValues(string(types.AnomalyUnknownRouter))))
	assert.Equal(t, 0.0, testutil.ToFloat64(Anomalies.WithLabelValues(string(types.AnomalyContextFailure))))
	assert.Equal(t, 1700000002.0, testutil.ToFloat64(LastRunTimestamp))

	// A failed run keeps the last known counters
	Record(&types.Summary{Status: types.RunStatusError, StartedAt: time.Now()})
	assert.Equal(t, 0.0, testutil.ToFloat64(CheckUp))
	assert.Equal(t, 4.0, testutil.ToFloat64(UnscheduledRouters))
}

func TestWriteTextfile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "l3check.prom")

	require.NoError(t, WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "l3check_missing_floating_ips")
}
