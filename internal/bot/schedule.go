package bot

import (
	"sort"
	"time"
)

// The wake time lands this far after the signal candle closes, so the kline
// endpoint has had time to publish it.
const wakeBuffer = 5 * time.Second

// NextWake returns when the bot should next run a cycle: the close of the
// candle starting at the nearest target hour, plus a small buffer.
//
// A target hour whose candle is still forming counts as the nearest one, so
// a bot started mid-candle trades that candle instead of waiting a day.
func NextWake(now time.Time, targetHours []string, loc *time.Location, candleInterval time.Duration) time.Time {
	now = now.In(loc)

	targets := make([]time.Time, 0, len(targetHours))
	for _, hour := range targetHours {
		parsed, err := time.Parse("15:04:05", hour)
		if err != nil {
			continue
		}
		targets = append(targets, time.Date(
			now.Year(), now.Month(), now.Day(),
			parsed.Hour(), parsed.Minute(), parsed.Second(),
			0, loc,
		))
	}
	sort.Slice(targets, func(i, j int) bool { return targets[i].Before(targets[j]) })

	var next time.Time

	// Most recent target whose candle is still open.
	for i := len(targets) - 1; i >= 0; i-- {
		t := targets[i]
		if !t.After(now) && now.Sub(t) < candleInterval {
			next = t
			break
		}
	}

	// Otherwise the next target still ahead today.
	if next.IsZero() {
		for _, t := range targets {
			if !t.Before(now) {
				next = t
				break
			}
		}
	}

	// Otherwise the first target tomorrow.
	if next.IsZero() {
		next = targets[0].AddDate(0, 0, 1)
	}

	return next.Add(candleInterval + wakeBuffer)
}
