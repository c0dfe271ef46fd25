package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"studypilot/backend/internal/pkg/logger"
)

// PlanCounter reports how many profiles exist per plan.
type PlanCounter interface {
	CountByPlan(ctx context.Context) (map[string]int, error)
}

// UsageReporter logs a plan breakdown once per UTC day, right after the
// daily counters roll over. It gives a cheap growth signal without a
// separate analytics pipeline.
type UsageReporter struct {
	counter PlanCounter
	cron    *cron.Cron
	logger  *logger.Logger
}

// NewUsageReporter creates a new usage reporter worker
func NewUsageReporter(counter PlanCounter, log *logger.Logger) *UsageReporter {
	return &UsageReporter{
		counter: counter,
		cron:    cron.New(cron.WithLocation(time.UTC)),
		logger:  log,
	}
}

// Start schedules the daily report. The first report runs immediately so a
// fresh deployment logs its numbers without waiting a day.
func (u *UsageReporter) Start() error {
	if _, err := u.cron.AddFunc("5 0 * * *", u.report); err != nil {
		return err
	}
	u.cron.Start()
	go u.report()
	u.logger.Info("Usage reporter started")
	return nil
}

// Stop halts the schedule and waits for a running report to finish.
func (u *UsageReporter) Stop() {
	ctx := u.cron.Stop()
	<-ctx.Done()
	u.logger.Info("Usage reporter stopped")
}

func (u *UsageReporter) report() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	counts, err := u.counter.CountByPlan(ctx)
	if err != nil {
		u.logger.ErrorWithErr(err, "Failed to collect plan counts")
		return
	}

	u.logger.WithFields(map[string]interface{}{
		"free":    counts["free"],
		"premium": counts["premium"],
	}).Info("Daily plan report")
}
