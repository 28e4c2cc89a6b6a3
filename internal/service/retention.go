package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// EventRevisionsPruned is emitted after each scheduled prune.
const EventRevisionsPruned = "revisions:pruned"

// Pruner trims stored revisions to the newest keep per template.
type Pruner interface {
	Prune(ctx context.Context, keep int) (int64, error)
}

// Retention prunes revisions on a cron schedule.
type Retention struct {
	pruner  Pruner
	emitter EventEmitter
	logger  *zap.Logger

	mu   sync.Mutex
	keep int
	cron *cron.Cron
}

func NewRetention(p Pruner, keep int, emitter EventEmitter, logger *zap.Logger) *Retention {
	if logger == nil {
		logger = zap.NewNop()
	}
	if emitter == nil {
		emitter = LogEmitter{Logger: logger}
	}
	return &Retention{pruner: p, keep: keep, emitter: emitter, logger: logger}
}

// SetKeep changes how many revisions survive the next run.
func (r *Retention) SetKeep(keep int) {
	r.mu.Lock()
	r.keep = keep
	r.mu.Unlock()
}

// RunOnce prunes immediately.
func (r *Retention) RunOnce(ctx context.Context) (int64, error) {
	r.mu.Lock()
	keep := r.keep
	r.mu.Unlock()

	n, err := r.pruner.Prune(ctx, keep)
	if err != nil {
		return 0, err
	}
	r.logger.Info("revisions pruned", zap.Int64("removed", n), zap.Int("keep", keep))
	return n, nil
}

// Start schedules pruning with a standard cron expression, replacing any
// previous schedule. An empty schedule only stops the current one.
func (r *Retention) Start(ctx context.Context, schedule string) error {
	r.Stop()
	if schedule == "" {
		return nil
	}

	c := cron.New()
	_, err := c.AddFunc(schedule, func() {
		n, err := r.RunOnce(ctx)
		if err != nil {
			r.logger.Error("scheduled prune failed", zap.Error(err))
			return
		}
		r.emitter.Emit(ctx, EventRevisionsPruned, n)
	})
	if err != nil {
		return fmt.Errorf("schedule pruning %q: %w", schedule, err)
	}
	c.Start()

	r.mu.Lock()
	r.cron = c
	r.mu.Unlock()
	r.logger.Info("revision pruning scheduled", zap.String("schedule", schedule))
	return nil
}

// Stop cancels the schedule and waits for a running prune to finish.
func (r *Retention) Stop() {
	r.mu.Lock()
	c := r.cron
	r.cron = nil
	r.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
