package analytics

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DefaultRetention keeps twelve months of visitor history.
const DefaultRetention = 365 * 24 * time.Hour

// ScheduleCleanup runs Cleanup on schedule (cron syntax or descriptors such as
// "@daily") until the returned cron is stopped. One cleanup runs immediately.
func (t *Tracker) ScheduleCleanup(schedule string, retention time.Duration) (*cron.Cron, error) {
	run := func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := t.Cleanup(ctx, retention); err != nil {
			t.logger.Error("Error cleaning up old visitor data", zap.Error(err))
		}
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, run); err != nil {
		return nil, err
	}
	go run()
	c.Start()
	return c, nil
}
