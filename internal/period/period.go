// Package period maps timestamps onto backup time buckets. A bucket is
// identified by a Tag combining a granularity label and a calendar value,
// e.g. "week_2025-week-20". Tags double as staging directory names, so the
// parser is strict: anything that does not match one of the three known
// forms is not a staging area and must be left alone by rotation.
package period

import (
	"fmt"
	"regexp"
	"time"
)

// Granularity is the configured bucketing granularity.
type Granularity string

const (
	// GranularityDaily buckets by calendar day.
	GranularityDaily Granularity = "daily"
	// GranularityWeekly buckets by ISO week.
	GranularityWeekly Granularity = "weekly"
	// GranularityMonthly buckets by calendar month.
	GranularityMonthly Granularity = "monthly"
)

// Tag prefixes as they appear in staging directory names.
const (
	prefixDaily   = "day_"
	prefixWeekly  = "week_"
	prefixMonthly = "month_"
)

var (
	dayValuePattern   = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	weekValuePattern  = regexp.MustCompile(`^\d{4}-week-\d{2}$`)
	monthValuePattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// FromConfig maps the BACKUP_PERIOD configuration value to a granularity.
// Unrecognized values fall back to daily; this is an explicit, documented
// fallback rather than an error, so a typo in the configuration degrades to
// the most frequent (safest) bucketing.
func FromConfig(value string) Granularity {
	switch value {
	case "months":
		return GranularityMonthly
	case "weeks":
		return GranularityWeekly
	default:
		return GranularityDaily
	}
}

// Tag identifies one time bucket.
type Tag struct {
	Granularity Granularity
	Value       string // calendar value, e.g. "2025-05-12", "2025-week-20", "2025-05"
}

// String renders the tag in its on-disk form.
func (t Tag) String() string {
	switch t.Granularity {
	case GranularityWeekly:
		return prefixWeekly + t.Value
	case GranularityMonthly:
		return prefixMonthly + t.Value
	default:
		return prefixDaily + t.Value
	}
}

// Resolve computes the bucket tag for the given instant. Pure function: no
// state, no failure modes.
func Resolve(now time.Time, g Granularity) Tag {
	switch g {
	case GranularityWeekly:
		return Tag{Granularity: GranularityWeekly, Value: WeekValue(now)}
	case GranularityMonthly:
		return Tag{Granularity: GranularityMonthly, Value: now.Format("2006-01")}
	default:
		return Tag{Granularity: GranularityDaily, Value: now.Format("2006-01-02")}
	}
}

// WeekValue formats the ISO-week calendar value for an instant, e.g.
// "2025-week-20". The ISO year is used, so dates around New Year land in
// the week's year, not the calendar date's.
func WeekValue(now time.Time) string {
	year, week := now.ISOWeek()
	return fmt.Sprintf("%d-week-%02d", year, week)
}

// Parse recognizes exactly the three tag forms produced by Resolve. It
// reports ok=false for anything else, including directories that merely
// share a prefix but carry a malformed calendar value.
func Parse(name string) (Tag, bool) {
	switch {
	case len(name) > len(prefixDaily) && name[:len(prefixDaily)] == prefixDaily:
		value := name[len(prefixDaily):]
		if !dayValuePattern.MatchString(value) {
			return Tag{}, false
		}
		if _, err := time.Parse("2006-01-02", value); err != nil {
			return Tag{}, false
		}
		return Tag{Granularity: GranularityDaily, Value: value}, true

	case len(name) > len(prefixWeekly) && name[:len(prefixWeekly)] == prefixWeekly:
		value := name[len(prefixWeekly):]
		if !weekValuePattern.MatchString(value) {
			return Tag{}, false
		}
		return Tag{Granularity: GranularityWeekly, Value: value}, true

	case len(name) > len(prefixMonthly) && name[:len(prefixMonthly)] == prefixMonthly:
		value := name[len(prefixMonthly):]
		if !monthValuePattern.MatchString(value) {
			return Tag{}, false
		}
		if _, err := time.Parse("2006-01", value); err != nil {
			return Tag{}, false
		}
		return Tag{Granularity: GranularityMonthly, Value: value}, true
	}
	return Tag{}, false
}
