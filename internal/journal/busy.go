package journal

import (
	"context"
	"errors"
	"strings"
	"time"
)

// SQLITE_BUSY primary result code.
const codeBusy = 5

// Delays between attempts when the database is locked by another writer.
var busyDelays = []time.Duration{
	10 * time.Millisecond,
	25 * time.Millisecond,
	50 * time.Millisecond,
	100 * time.Millisecond,
	200 * time.Millisecond,
}

func orBackground(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

func isBusy(err error) bool {
	if err == nil {
		return false
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		return coded.Code()&0xff == codeBusy
	}
	text := err.Error()
	return strings.Contains(text, "SQLITE_BUSY") || strings.Contains(text, "database is locked")
}

// whileBusy runs op and repeats it after a short delay for as long as it
// fails with SQLITE_BUSY and delays remain.
func whileBusy(ctx context.Context, op func() error) error {
	err := op()
	for _, delay := range busyDelays {
		if !isBusy(err) {
			return err
		}
		timer := time.NewTimer(delay)
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
