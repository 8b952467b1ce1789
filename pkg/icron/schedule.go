package icron

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// TriggerInfo describes where a cron expression sits relative to a
// reference time. Used by the status endpoint to report when the
// janitor last ran and when it fires next.
type TriggerInfo struct {
	Expression string
	Next       time.Time
	Last       time.Time

	TimeSinceLast time.Duration
	TimeUntilNext time.Duration
}

func standardParser() cron.Parser {
	return cron.NewParser(cron.Minute | cron.Hour | cron.Dom |
		cron.Month | cron.Dow | cron.Descriptor)
}

// Validate reports whether expr is a parseable cron expression.
func Validate(expr string) error {
	if _, err := standardParser().Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}
	return nil
}

// GetTriggerInfo computes the previous and next trigger times of expr
// around refTime. The previous trigger is found by walking backwards
// hour by hour; expressions that fire less than once a year report a
// zero Last.
func GetTriggerInfo(expr string, refTime time.Time) (*TriggerInfo, error) {
	schedule, err := standardParser().Parse(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid cron expression %q: %w", expr, err)
	}

	info := &TriggerInfo{
		Expression: expr,
		Next:       schedule.Next(refTime),
	}

	searchStart := refTime.Add(-time.Minute)
	for i := 0; i < 366*24; i++ {
		checkTime := searchStart.Add(-time.Duration(i) * time.Hour)
		candidate := schedule.Next(checkTime)
		if !candidate.After(refTime) {
			info.Last = candidate
			break
		}
	}

	if !info.Last.IsZero() {
		info.TimeSinceLast = refTime.Sub(info.Last)
	}
	info.TimeUntilNext = info.Next.Sub(refTime)

	return info, nil
}
