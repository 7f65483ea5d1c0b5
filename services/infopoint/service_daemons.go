package infopoint

import (
	"context"
	"log/slog"
	"time"

	"infopoint-backend/lib/timezone"
)

// refreshDaemon fires one RefreshAll per day at the configured wall
// clock time and exits with the context.
func (s *Service) refreshDaemon(ctx context.Context) {
	hour := s.options.RefreshHour
	minute := s.options.RefreshMinute
	if hour == 0 && minute == 0 {
		hour, minute = 17, 50
	}

	for {
		next := timezone.NextClockTime(timezone.Now(), hour, minute)
		slog.InfoContext(ctx, "next scheduled refresh", "at", next)

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		s.RefreshAll(ctx)
	}
}
