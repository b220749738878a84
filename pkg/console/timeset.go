package console

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/itohio/streamgauge/pkg/rtc"
)

// TimeSetLayout describes the time-set command to the operator.
const TimeSetLayout = "YYYY:MM:DD:HH:MM:SS"

// FieldError reports the first time-set field that failed validation.
type FieldError struct {
	Field string
	Value string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

var timeSetFields = [...]struct {
	name     string
	min, max int
}{
	{"year", rtc.MinYear, rtc.MaxYear},
	{"month", 1, 12},
	{"day", 1, 31},
	{"hour", 0, 23},
	{"minute", 0, 59},
	{"second", 0, 59},
}

// ParseTimeSet validates a YYYY:MM:DD:HH:MM:SS line field by field. The day
// is checked against the month length of the given year.
func ParseTimeSet(line string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(line), ":")
	if len(parts) != len(timeSetFields) {
		return time.Time{}, &FieldError{Field: "format", Value: line}
	}

	var v [len(timeSetFields)]int
	for i, f := range timeSetFields {
		n, err := strconv.Atoi(parts[i])
		if err != nil || n < f.min || n > f.max {
			return time.Time{}, &FieldError{Field: f.name, Value: parts[i]}
		}
		v[i] = n
	}

	if v[2] > daysIn(time.Month(v[1]), v[0]) {
		return time.Time{}, &FieldError{Field: "day", Value: parts[2]}
	}
	return time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.UTC), nil
}

func daysIn(m time.Month, year int) int {
	return time.Date(year, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// FormatTimeSet renders t as a time-set line without the newline.
func FormatTimeSet(t time.Time) string {
	return fmt.Sprintf("%04d:%02d:%02d:%02d:%02d:%02d",
		t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}
