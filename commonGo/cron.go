package commonGo

import (
	"context"
	"time"
)

// CronJobStarter starts a go routine that calls the handler right away and then once every interval,
// until the context is done
func CronJobStarter(ctx context.Context, handler func(ctx context.Context), interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		handler(ctx)

		for {
			select {
			case <-ticker.C:
				handler(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()
}
