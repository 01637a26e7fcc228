package scheduler

import (
	"time"

	"github.com/robfig/cron/v3"
)

// parser accepts standard five-field specs and descriptors such as
// "@daily" or "@every 24h".
var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// ValidateSchedule checks that schedule is a valid cron spec or descriptor.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// NextRunTime calculates when schedule fires next after from.
func NextRunTime(schedule string, from time.Time) (*time.Time, error) {
	sched, err := parser.Parse(schedule)
	if err != nil {
		return nil, err
	}
	next := sched.Next(from)
	return &next, nil
}

// DescribeSchedule returns a human-readable description of a schedule.
func DescribeSchedule(schedule string) string {
	switch schedule {
	case "@every 24h":
		return "Every 24 hours"
	case "@daily", "@midnight", "0 0 * * *":
		return "Daily at midnight"
	case "@hourly", "0 * * * *":
		return "Every hour at :00"
	case "0 */6 * * *":
		return "Every 6 hours"
	case "0 7 * * *":
		return "Daily at 07:00"
	default:
		return "Custom schedule: " + schedule
	}
}
