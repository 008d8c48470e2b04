package aggregate

import (
	"sort"
	"time"

	"github.com/afetops/coordcore/core/model"
)

const (
	hotspotGridSize = 0.01
	hotspotMinCount = 3
	maxHotspots     = 20
)

// BucketCount is the number of submissions in one time bucket.
type BucketCount struct {
	Start time.Time `json:"start"`
	Count int       `json:"count"`
}

// Hotspot is a grid cell with clustered submissions.
type Hotspot struct {
	Center           model.Point `json:"center"`
	Count            int         `json:"count"`
	AvgUrgencyWeight float64     `json:"avg_urgency_weight"`
}

// Trends is the submission-over-time report with spatial clusters.
type Trends struct {
	GeneratedAt time.Time     `json:"generated_at"`
	Window      time.Duration `json:"window"`
	Bucket      time.Duration `json:"bucket"`
	Counts      []BucketCount `json:"counts"`
	Hotspots    []Hotspot     `json:"hotspots,omitempty"`
}

// bucketSize picks the granularity for a window: hourly up to a day, daily
// up to a week, weekly beyond.
func bucketSize(window time.Duration) time.Duration {
	switch {
	case window <= 24*time.Hour:
		return time.Hour
	case window <= 7*24*time.Hour:
		return 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// HelpRequestTrends buckets submissions over the window and clusters the
// located ones into grid hotspots.
func HelpRequestTrends(snap Snapshot, window time.Duration) Trends {
	if window <= 0 {
		window = 24 * time.Hour
	}
	bucket := bucketSize(window)
	out := Trends{
		GeneratedAt: snap.Now,
		Window:      window,
		Bucket:      bucket,
	}

	counts := make(map[time.Time]int)
	type cell struct {
		count   int
		weights float64
	}
	cells := make(map[model.Point]*cell)

	for _, r := range snap.Requests {
		if !snap.inWindow(r.CreatedAt, window) {
			continue
		}
		counts[r.CreatedAt.Truncate(bucket)]++
		if r.ExactLocation == nil {
			continue
		}
		key := r.ExactLocation.SnapToGrid(hotspotGridSize)
		c := cells[key]
		if c == nil {
			c = &cell{}
			cells[key] = c
		}
		c.count++
		c.weights += float64(r.Urgency.Weight())
	}

	for start, n := range counts {
		out.Counts = append(out.Counts, BucketCount{Start: start, Count: n})
	}
	sort.Slice(out.Counts, func(i, j int) bool {
		return out.Counts[i].Start.Before(out.Counts[j].Start)
	})

	for center, c := range cells {
		if c.count < hotspotMinCount {
			continue
		}
		out.Hotspots = append(out.Hotspots, Hotspot{
			Center:           center,
			Count:            c.count,
			AvgUrgencyWeight: c.weights / float64(c.count),
		})
	}
	sort.Slice(out.Hotspots, func(i, j int) bool {
		a, b := out.Hotspots[i], out.Hotspots[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		if a.Center.Lat != b.Center.Lat {
			return a.Center.Lat < b.Center.Lat
		}
		return a.Center.Lon < b.Center.Lon
	})
	if len(out.Hotspots) > maxHotspots {
		out.Hotspots = out.Hotspots[:maxHotspots]
	}
	return out
}
