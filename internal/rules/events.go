package rules

import "time"

// BuiltinEvent returns a holiday label for the given date, or "" when the date
// falls in no known window. These fire only when no custom event matched, and
// their labels remain subject to the override table.
func BuiltinEvent(day time.Time) string {
	year, month, dom := day.Year(), day.Month(), day.Day()

	switch {
	case month == time.January && (dom == 1 || dom == 2):
		return "NewYear"
	case month == time.February && dom == 14:
		return "Valentines"
	case month == time.March && dom == 17:
		return "StPatricks"
	case month == time.October && dom >= 25 && dom <= 31:
		return "Halloween"
	case month == time.December && dom >= 24 && dom <= 26:
		return "Christmas"
	case month == time.December && dom == 31:
		return "NewYearsEve"
	}

	// Good Friday through Easter Monday.
	easter := easterDate(year)
	date := time.Date(year, month, dom, 0, 0, 0, 0, time.UTC)
	if !date.Before(easter.AddDate(0, 0, -2)) && !date.After(easter.AddDate(0, 0, 1)) {
		return "Easter"
	}

	// Thanksgiving (US): fourth Thursday of November.
	if month == time.November && day.Weekday() == time.Thursday {
		first := time.Date(year, time.November, 1, 0, 0, 0, 0, time.UTC)
		offset := (int(time.Thursday) - int(first.Weekday()) + 7) % 7
		if dom == 1+offset+21 {
			return "Thanksgiving"
		}
	}

	return ""
}

// easterDate computes Easter Sunday via the anonymous Gregorian algorithm.
func easterDate(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	dom := (h+l-7*m+114)%31 + 1
	return time.Date(year, time.Month(month), dom, 0, 0, 0, 0, time.UTC)
}
