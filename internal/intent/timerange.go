package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var lastNPattern = regexp.MustCompile(`^last_(\d+)_(day|days|week|weeks|month|months)$`)

// TimeRangeBounds resolves a relative label against now.
// Ranges are half-open [start, end) at day granularity in now's location.
// "To date" and last-N-days/weeks ranges include today; whole-period
// ranges (last_month, last_quarter, ...) cover complete periods.
func TimeRangeBounds(label string, now time.Time) (start, end time.Time, ok bool) {
	key := strings.Trim(strings.NewReplacer(" ", "_", "-", "_").Replace(strings.ToLower(strings.TrimSpace(label))), "_")

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	tomorrow := today.AddDate(0, 0, 1)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	quarterStart := time.Date(now.Year(), ((now.Month()-1)/3)*3+1, 1, 0, 0, 0, 0, now.Location())
	yearStart := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())

	switch key {
	case "today":
		return today, tomorrow, true
	case "yesterday":
		return today.AddDate(0, 0, -1), today, true
	case "this_month":
		return monthStart, monthStart.AddDate(0, 1, 0), true
	case "last_month", "previous_month":
		return monthStart.AddDate(0, -1, 0), monthStart, true
	case "this_quarter":
		return quarterStart, quarterStart.AddDate(0, 3, 0), true
	case "last_quarter", "previous_quarter":
		return quarterStart.AddDate(0, -3, 0), quarterStart, true
	case "this_year":
		return yearStart, yearStart.AddDate(1, 0, 0), true
	case "last_year", "previous_year":
		return yearStart.AddDate(-1, 0, 0), yearStart, true
	case "ytd", "year_to_date":
		return yearStart, tomorrow, true
	case "qtd", "quarter_to_date":
		return quarterStart, tomorrow, true
	case "mtd", "month_to_date":
		return monthStart, tomorrow, true
	}

	m := lastNPattern.FindStringSubmatch(key)
	if m == nil {
		return time.Time{}, time.Time{}, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return time.Time{}, time.Time{}, false
	}
	switch strings.TrimSuffix(m[2], "s") {
	case "day":
		return today.AddDate(0, 0, -(n - 1)), tomorrow, true
	case "week":
		return today.AddDate(0, 0, -(7*n - 1)), tomorrow, true
	default:
		return monthStart.AddDate(0, -n, 0), monthStart, true
	}
}
