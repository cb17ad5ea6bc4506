package sla

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"02/01/2006",
	"2/1/2006",
	"02/01/2006 15:04:05",
	"2/1/2006 15:04",
	"02-01-2006",
	"2-1-2006",
	"2006/01/02",
}

// ParseDate reads a spreadsheet date cell: an Excel serial number or one of
// the day-first/ISO text layouts. Time of day is dropped.
func ParseDate(raw string) (time.Time, bool) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return time.Time{}, false
	}
	if serial, err := strconv.ParseFloat(value, 64); err == nil {
		if serial <= 0 || math.IsNaN(serial) || math.IsInf(serial, 0) {
			return time.Time{}, false
		}
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, false
		}
		return dateOnly(t), true
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return dateOnly(t), true
		}
	}
	return time.Time{}, false
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// daysBetween counts calendar days from start to end; negative when end is
// earlier. Unix seconds avoid the ~292 year limit of time.Duration.
func daysBetween(start, end time.Time) int {
	return int((dateOnly(end).Unix() - dateOnly(start).Unix()) / secondsPerDay)
}

const secondsPerDay = 24 * 60 * 60

// A single separator style with 3-digit groups after a 1-3 digit lead is a
// thousands grouping: "1.500" and "1,500" are both 1500.
var (
	dotGrouped   = regexp.MustCompile(`^-?[1-9]\d{0,2}(\.\d{3})+$`)
	commaGrouped = regexp.MustCompile(`^-?[1-9]\d{0,2}(,\d{3})+$`)
)

// ParseAmount reads a currency cell. Empty or unreadable amounts are zero.
func ParseAmount(raw string) float64 {
	value := strings.TrimSpace(raw)
	if !strings.Contains(value, ",") && !dotGrouped.MatchString(value) {
		if amount, err := strconv.ParseFloat(value, 64); err == nil {
			if math.IsNaN(amount) || math.IsInf(amount, 0) {
				return 0
			}
			return amount
		}
	}

	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			return r
		default:
			return -1
		}
	}, value)
	if cleaned == "" {
		return 0
	}

	lastDot := strings.LastIndex(cleaned, ".")
	lastComma := strings.LastIndex(cleaned, ",")
	switch {
	case dotGrouped.MatchString(cleaned):
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	case commaGrouped.MatchString(cleaned):
		cleaned = strings.ReplaceAll(cleaned, ",", "")
	case lastDot >= 0 && lastComma >= 0:
		if lastComma > lastDot {
			cleaned = strings.ReplaceAll(cleaned, ".", "")
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case lastComma >= 0:
		if strings.Count(cleaned, ",") == 1 {
			cleaned = strings.Replace(cleaned, ",", ".", 1)
		} else {
			cleaned = strings.ReplaceAll(cleaned, ",", "")
		}
	case strings.Count(cleaned, ".") > 1:
		cleaned = strings.ReplaceAll(cleaned, ".", "")
	}

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return 0
	}
	return amount
}

// ParseDays reads a day-count cell such as "30" or "30.0". Negative or
// unreadable values are reported as absent.
func ParseDays(raw string) (int, bool) {
	value := strings.ReplaceAll(strings.TrimSpace(raw), ",", ".")
	if value == "" {
		return 0, false
	}
	days, err := strconv.ParseFloat(value, 64)
	if err != nil || math.IsNaN(days) || math.IsInf(days, 0) || days < 0 {
		return 0, false
	}
	return int(math.Round(days)), true
}
