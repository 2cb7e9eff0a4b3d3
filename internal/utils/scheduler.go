package utils

import (
	"context"
	"log"
	"time"
)

type AutoRenewer interface {
	RunAutoRenewOnce(ctx context.Context) (int, error)
}

// StartScheduler раз в сутки (в 02:00 UTC) запускает проход автопродления.
func StartScheduler(ctx context.Context, svc AutoRenewer) {
	go func() {
		for {
			now := time.Now().UTC()
			// сколько ждать до ближайших 02:00 UTC
			nextRun := time.Date(now.Year(), now.Month(), now.Day(), 2, 0, 0, 0, time.UTC)
			if now.After(nextRun) {
				nextRun = nextRun.Add(24 * time.Hour)
			}

			timer := time.NewTimer(nextRun.Sub(now))
			select {
			case <-timer.C:
				log.Println("[SCHEDULER] Running auto-renew at", time.Now().UTC())
				if _, err := svc.RunAutoRenewOnce(ctx); err != nil {
					log.Printf("[SCHEDULER] auto-renew error: %v", err)
				}
			case <-ctx.Done():
				timer.Stop()
				log.Println("[SCHEDULER] Shutdown")
				return
			}
		}
	}()
}
