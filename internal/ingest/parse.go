package ingest

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// excelEpoch is the day-number origin used by spreadsheet serial dates.
// This is the common 1899-12-30 approximation; it inherits the classic
// 1900 leap-year drift for dates before March 1900, which cannot occur
// for plausible event dates.
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.Local)

// twoDigitYearBase expands two-digit years: 23 -> 2023.
const twoDigitYearBase = 2000

var digitGroups = regexp.MustCompile(`\d+`)

// DateResult is the tagged outcome of resolving a row date: either a
// concrete time or a skip reason. Rows with a skip reason are excluded
// from the import entirely.
type DateResult struct {
	Time time.Time
	Skip string
}

// OK reports whether the date was resolved.
func (r DateResult) OK() bool {
	return r.Skip == ""
}

func skipDate(format string, args ...any) DateResult {
	return DateResult{Skip: fmt.Sprintf(format, args...)}
}

// ResolveDate coerces a loosely typed spreadsheet cell into a timestamp.
// Accepted forms, in order: a spreadsheet serial day-number, an
// ISO-parseable string, and a DD/MM/YYYY[ HH:mm:ss] pattern resolved by
// digit-group extraction with two-digit-year expansion.
func ResolveDate(cell string) DateResult {
	s := strings.TrimSpace(cell)
	if s == "" {
		return skipDate("empty date cell")
	}

	if serial, err := strconv.ParseFloat(s, 64); err == nil {
		if serial <= 0 {
			return skipDate("non-positive serial date %q", s)
		}
		return DateResult{Time: excelEpoch.Add(time.Duration(serial * float64(24*time.Hour)))}
	}

	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02",
	} {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return DateResult{Time: t}
		}
	}

	return resolveSlashDate(s)
}

// resolveSlashDate handles DD/MM/YYYY[ HH:mm:ss] strings via digit-group
// extraction, so separators and stray text do not matter.
func resolveSlashDate(s string) DateResult {
	groups := digitGroups.FindAllString(s, -1)
	if len(groups) < 3 {
		return skipDate("unrecognized date %q", s)
	}

	nums := make([]int, len(groups))
	for i, g := range groups {
		n, err := strconv.Atoi(g)
		if err != nil {
			return skipDate("unrecognized date %q", s)
		}
		nums[i] = n
	}

	day, month, year := nums[0], nums[1], nums[2]
	if year < 100 {
		year += twoDigitYearBase
	}
	if month < 1 || month > 12 || day < 1 || day > 31 {
		return skipDate("implausible date %q", s)
	}

	var hour, minute, second int
	if len(nums) >= 6 {
		hour, minute, second = nums[3], nums[4], nums[5]
	} else if len(nums) >= 5 {
		hour, minute = nums[3], nums[4]
	}
	if hour > 23 || minute > 59 || second > 59 {
		return skipDate("implausible time in %q", s)
	}

	return DateResult{Time: time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local)}
}

// ParseUCS extracts an integer UCS quantity from a cell such as
// "1.234 UCS". Non-numeric text and thousands separators are stripped;
// an unparseable cell defaults to 0.
func ParseUCS(cell string) int64 {
	s := strings.TrimSpace(cell)
	if s == "" {
		return 0
	}

	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	n, err := strconv.ParseInt(b.String(), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// ParseCurrency extracts a decimal amount from a cell such as
// "R$ 1.234,56". When a comma is present it is the decimal separator and
// dots are thousands separators; otherwise a dot is decimal. Defaults
// to 0 when unparseable.
func ParseCurrency(cell string) float64 {
	var b strings.Builder
	for _, r := range cell {
		if (r >= '0' && r <= '9') || r == '.' || r == ',' || r == '-' {
			b.WriteRune(r)
		}
	}
	s := b.String()
	if s == "" {
		return 0
	}

	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	}

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return v
}
