// Package janitor prunes expired temporary try-on artifacts on a schedule.
package janitor

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Pruner removes temporary artifacts older than maxAge and reports how
// many were removed.
type Pruner interface {
	Prune(maxAge time.Duration) (int, error)
}

// Janitor runs a pruner on a cron schedule.
type Janitor struct {
	cron   *cron.Cron
	pruner Pruner
	maxAge time.Duration
}

// New creates a janitor with the given cron schedule (e.g. "@every 1h").
func New(pruner Pruner, schedule string, maxAge time.Duration) (*Janitor, error) {
	j := &Janitor{
		cron:   cron.New(),
		pruner: pruner,
		maxAge: maxAge,
	}
	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, fmt.Errorf("invalid janitor schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *Janitor) run() {
	removed, err := j.pruner.Prune(j.maxAge)
	if err != nil {
		slog.Error("Temp artifact pruning failed", "err", err)
		return
	}
	if removed > 0 {
		slog.Info("Pruned expired temp artifacts", "removed", removed, "max_age", j.maxAge)
	}
}

// Start begins running the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
}

// Stop halts the schedule and waits for a running job to finish.
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}
