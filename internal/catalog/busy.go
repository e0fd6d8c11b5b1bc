package catalog

import (
	"context"
	"errors"
	"strings"
	"time"
)

var connectionPragmas = []string{
	"PRAGMA journal_mode=WAL",
	"PRAGMA busy_timeout = 5000",
}

// SQLITE_BUSY primary result code.
const codeBusy = 5

const (
	busyAttempts   = 5
	busyBackoff    = 10 * time.Millisecond
	busyBackoffCap = 200 * time.Millisecond
)

func busy(err error) bool {
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == codeBusy
	}
	return err != nil && strings.Contains(err.Error(), "database is locked")
}

// withRetry runs op until it succeeds, fails with anything but SQLITE_BUSY,
// or the attempts run out. Backoff doubles up to busyBackoffCap.
func withRetry(ctx context.Context, op func() error) error {
	err := op()
	for attempt := 1; attempt < busyAttempts && busy(err); attempt++ {
		wait := min(busyBackoff<<(attempt-1), busyBackoffCap)
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		err = op()
	}
	return err
}
