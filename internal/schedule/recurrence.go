package schedule

import (
	"time"

	"github.com/asadurzzaman/social-media-post-scheduling-tools/internal/models"
)

// NextOccurrence returns the occurrence that follows from for the given rule.
// It reads no clock, so the same inputs always give the same answer.
// The second return value is false when the rule is not active, its interval
// is not positive, or the occurrence would fall at or after the rule's end date.
func NextOccurrence(rule *models.RecurringPost, from time.Time) (time.Time, bool) {
	if rule == nil || rule.Status != models.RecurringStatusActive {
		return time.Time{}, false
	}

	from = from.UTC()
	var next time.Time

	switch rule.Frequency {
	case models.FrequencyDaily:
		if rule.IntervalValue <= 0 {
			return time.Time{}, false
		}
		next = from.AddDate(0, 0, rule.IntervalValue)
	case models.FrequencyWeekly:
		if rule.IntervalValue <= 0 {
			return time.Time{}, false
		}
		next = from.AddDate(0, 0, 7*rule.IntervalValue)
	case models.FrequencyMonthly:
		if rule.IntervalValue <= 0 {
			return time.Time{}, false
		}
		next = AddMonthsClamped(from, rule.IntervalValue)
	case models.FrequencyCustom:
		if rule.CustomIntervalHours <= 0 {
			return time.Time{}, false
		}
		next = from.Add(time.Duration(rule.CustomIntervalHours) * time.Hour)
	default:
		return time.Time{}, false
	}

	if beyondEnd(rule, next) {
		return time.Time{}, false
	}
	return next, true
}

// Upcoming returns the next instant the rule should materialize a post at.
// A rule that has never posted starts at its start date, or its creation
// time when no start date is set.
func Upcoming(rule *models.RecurringPost) (time.Time, bool) {
	if rule == nil || rule.Status != models.RecurringStatusActive {
		return time.Time{}, false
	}

	if rule.LastPostedAt != nil {
		return NextOccurrence(rule, *rule.LastPostedAt)
	}

	first := rule.CreatedAt.UTC()
	if rule.StartDate != nil {
		first = rule.StartDate.UTC()
	}
	if beyondEnd(rule, first) {
		return time.Time{}, false
	}
	return first, true
}

// AddMonthsClamped adds n calendar months to t. When the target month is
// shorter than t's day of month, the result lands on the target month's last day.
// Time of day is preserved.
func AddMonthsClamped(t time.Time, n int) time.Time {
	year, month, day := t.Date()
	hour, min, sec := t.Clock()

	target := time.Date(year, month+time.Month(n), 1, 0, 0, 0, 0, t.Location())
	last := daysIn(target.Year(), target.Month(), t.Location())
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, hour, min, sec, t.Nanosecond(), t.Location())
}

func daysIn(year int, month time.Month, loc *time.Location) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, loc).Day()
}

func beyondEnd(rule *models.RecurringPost, t time.Time) bool {
	return rule.EndDate != nil && !t.Before(rule.EndDate.UTC())
}
