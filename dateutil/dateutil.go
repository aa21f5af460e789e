// Package dateutil handles the dd/mm/yy delivery-date convention.
//
// Stored "for date" values follow one fixed rule: the stored instant is
// midnight IST (UTC+5:30), which lands on the previous day 18:30 UTC.
package dateutil

import (
	"fmt"
	"strings"
	"time"
)

// IST has no DST, so a fixed offset is correct year-round.
var IST = time.FixedZone("IST", 5*3600+30*60)

// MaskDDMMYY rewrites free-typed input into dd/mm/yy with auto slashes,
// dropping anything that is not a digit.
func MaskDDMMYY(input string) string {
	var digits strings.Builder
	for _, r := range input {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	d := digits.String()
	if len(d) > 6 {
		d = d[:6]
	}
	switch {
	case len(d) <= 2:
		return d
	case len(d) <= 4:
		return d[:2] + "/" + d[2:]
	default:
		return d[:2] + "/" + d[2:4] + "/" + d[4:]
	}
}

// ParseDDMMYY parses a masked dd/mm/yy string into midnight IST of that
// calendar day. The two-digit year is always 20yy.
func ParseDDMMYY(s string) (time.Time, error) {
	var d, m, y int
	if _, err := fmt.Sscanf(s, "%2d/%2d/%2d", &d, &m, &y); err != nil || len(s) != 8 {
		return time.Time{}, fmt.Errorf("enter date as dd/mm/yy")
	}
	if m < 1 || m > 12 || d < 1 || d > 31 {
		return time.Time{}, fmt.Errorf("enter date as dd/mm/yy")
	}
	t := time.Date(2000+y, time.Month(m), d, 0, 0, 0, 0, IST)
	// reject dates like 31/02 that time.Date silently rolls over
	if t.Day() != d || t.Month() != time.Month(m) {
		return time.Time{}, fmt.Errorf("enter date as dd/mm/yy")
	}
	return t, nil
}

// ToStored converts a dd/mm/yy string to the stored UTC instant
// (midnight IST = previous day 18:30 UTC).
func ToStored(s string) (time.Time, error) {
	t, err := ParseDDMMYY(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

// FromStored renders a stored instant back as dd/mm/yy in IST.
func FromStored(t time.Time) string {
	return t.In(IST).Format("02/01/06")
}

// CalendarToStored converts a plan calendar date (YYYY-MM-DD) to the
// stored instant for that day.
func CalendarToStored(date string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", date, IST)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad calendar date %q", date)
	}
	return t.UTC(), nil
}

// Tomorrow is the default delivery date for new orders, as dd/mm/yy.
func Tomorrow() string {
	return time.Now().In(IST).AddDate(0, 0, 1).Format("02/01/06")
}
