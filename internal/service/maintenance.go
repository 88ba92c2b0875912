package service

import (
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"
)

// Sweeper evicts idle pooled resources.
type Sweeper interface {
	SweepIdle() int
}

// Purger drops expired cache entries.
type Purger interface {
	PurgeExpired() int
}

// Maintenance periodically sweeps the pipeline pool and the title cache so
// idle resources and stale titles do not accumulate between queries.
type Maintenance struct {
	cron   *cron.Cron
	logger *slog.Logger
}

// NewMaintenance schedules pool and cache sweeps with a cron spec like
// "@every 10m".
func NewMaintenance(spec string, sweeper Sweeper, purger Purger, logger *slog.Logger) (*Maintenance, error) {
	if logger == nil {
		logger = slog.Default()
	}

	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		swept := sweeper.SweepIdle()
		purged := purger.PurgeExpired()
		if swept > 0 || purged > 0 {
			logger.Info("maintenance sweep",
				"pipelines_evicted", swept,
				"title_caches_purged", purged)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule maintenance %q: %w", spec, err)
	}

	return &Maintenance{cron: c, logger: logger}, nil
}

// Start begins running sweeps in the background.
func (m *Maintenance) Start() {
	m.cron.Start()
}

// Stop cancels future sweeps; a sweep already running finishes.
func (m *Maintenance) Stop() {
	m.cron.Stop()
}
