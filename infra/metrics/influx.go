package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/afetops/coordcore/core/metrics"
	"github.com/afetops/coordcore/infra/logger"
)

// InfluxSink writes coordination events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails, so an unreachable metrics backend never
// blocks startup.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordDispatchResult writes one point per assignment attempt.
func (s *InfluxSink) RecordDispatchResult(results []coremetrics.AssignmentRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, r := range results {
		p := write.NewPointWithMeasurement("assignment_attempt").
			AddTag("request_id", r.RequestID.String()).
			AddTag("disaster_id", r.DisasterID.String()).
			AddTag("request_type", string(r.RequestType)).
			AddTag("urgency", string(r.Urgency)).
			AddTag("auto", strconv.FormatBool(r.Auto)).
			AddTag("component", "dispatch_manager").
			AddField("team_id", r.TeamID.String()).
			AddField("succeeded", r.Succeeded).
			AddField("conflict", r.Conflict).
			SetTime(r.DispatchTime)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// RecordPrioritySnapshot writes one point per scored location.
func (s *InfluxSink) RecordPrioritySnapshot(scores []coremetrics.LocationScore) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, sc := range scores {
		p := write.NewPointWithMeasurement("location_priority").
			AddTag("location_id", sc.LocationID.String()).
			AddTag("disaster_id", sc.DisasterID.String()).
			AddTag("priority", string(sc.Priority)).
			AddTag("component", "aggregation_worker").
			AddField("score", sc.Score).
			AddField("name", sc.Name).
			SetTime(sc.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}
