package config

import (
	"fmt"
	"time"

	"github.com/afetops/coordcore/core/jobqueue"
	"github.com/afetops/coordcore/core/scheduler"
)

// SchedulerConfig tunes the standing aggregation cadences. Unlisted job
// types keep their defaults.
type SchedulerConfig struct {
	// CadenceMinutes overrides the cadence per job type name.
	CadenceMinutes map[string]int `json:"cadence_minutes"`
}

// SetDefaults applies sane defaults.
func (c *SchedulerConfig) SetDefaults() {
	if c.CadenceMinutes == nil {
		c.CadenceMinutes = map[string]int{}
	}
}

// Validate rejects unknown job types and non-positive cadences.
func (c SchedulerConfig) Validate() error {
	for name, minutes := range c.CadenceMinutes {
		if !jobqueue.JobType(name).Valid() {
			return fmt.Errorf("unknown job type %s in scheduler cadences", name)
		}
		if minutes <= 0 {
			return fmt.Errorf("job %s needs a positive cadence", name)
		}
	}
	return nil
}

// Jobs returns the cadence table with overrides applied.
func (c SchedulerConfig) Jobs() []scheduler.JobDef {
	defs := scheduler.DefaultJobs()
	for i, def := range defs {
		if minutes, ok := c.CadenceMinutes[string(def.Type)]; ok {
			defs[i].Every = time.Duration(minutes) * time.Minute
		}
	}
	return defs
}
