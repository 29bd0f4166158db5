package schedule

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work. It receives the context passed to Run,
// so shutdown cancels a job in flight.
type Job func(ctx context.Context) error

// Run invokes job every interval until ctx is done, then waits for a running
// job to return. A tick that fires while the previous job is still running is
// skipped. Intervals below one second are rounded up to one second.
func Run(ctx context.Context, interval time.Duration, job Job) error {
	if interval <= 0 {
		return errors.New("schedule interval must be positive")
	}

	logger := cron.PrintfLogger(log.Default())
	c := cron.New(cron.WithChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	))
	c.Schedule(cron.Every(interval), cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		if err := job(ctx); err != nil && ctx.Err() == nil {
			log.Printf("scheduled job: %v", err)
		}
	}))

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}
