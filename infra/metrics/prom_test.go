package metrics

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/afetops/coordcore/core/metrics"
	"github.com/afetops/coordcore/core/model"
)

func gather(t *testing.T, reg *prometheus.Registry, name string) *dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == name {
			return f
		}
	}
	return nil
}

func TestPromSinkRecordsAssignments(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	recs := []coremetrics.AssignmentRecord{
		{RequestType: model.RequestRescue, Urgency: model.LevelCritical, Auto: true, Succeeded: true, DispatchTime: time.Now()},
		{RequestType: model.RequestRescue, Urgency: model.LevelCritical, Auto: true, Conflict: true, DispatchTime: time.Now()},
	}
	require.NoError(t, sink.RecordDispatchResult(recs))

	fam := gather(t, reg, "assignment_attempts_total")
	require.NotNil(t, fam)
	assert.Len(t, fam.GetMetric(), 2)
}

func TestPromSinkRecordsScores(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	scores := []coremetrics.LocationScore{
		{LocationID: uuid.New(), DisasterID: uuid.New(), Name: "Cumhuriyet Mah.", Score: 85, Priority: model.LevelHigh, Time: time.Now()},
	}
	require.NoError(t, sink.RecordPrioritySnapshot(scores))

	fam := gather(t, reg, "location_priority_score")
	require.NotNil(t, fam)
	require.Len(t, fam.GetMetric(), 1)
	assert.Equal(t, 85.0, fam.GetMetric()[0].GetGauge().GetValue())
}

func TestPromSinkDoubleRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	// Registering again reuses the existing collectors.
	_, err = NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
}
