// Package reference computes application reference numbers and SLA due dates.
package reference

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"time"
)

// Generator produces PREFIX-YYYY-NNNN references. The suffix is random, so
// callers must retry on a uniqueness violation.
type Generator struct {
	now    func() time.Time
	suffix func() int
}

type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// WithSuffix replaces the random 1..9999 suffix source.
func WithSuffix(fn func() int) Option {
	return func(g *Generator) { g.suffix = fn }
}

func NewGenerator(opts ...Option) *Generator {
	g := &Generator{
		now:    time.Now,
		suffix: func() int { return rand.IntN(9999) + 1 },
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Generator) Generate(prefix string) string {
	return fmt.Sprintf("%s-%04d-%04d", prefix, g.now().Year(), g.suffix()%10000)
}

var defaultGenerator = NewGenerator()

// Generate formats a reference with the current year and a random suffix.
func Generate(prefix string) string {
	return defaultGenerator.Generate(prefix)
}

var pattern = regexp.MustCompile(`^[A-Z]+-\d{4}-\d{4}$`)

func Valid(ref string) bool {
	return pattern.MatchString(ref)
}

// DateLayout is the wire and SQL form of a calendar date.
const DateLayout = "2006-01-02"

// CalendarDate keeps t's year, month and day as seen in t's own location and
// returns them as midnight UTC, the form lib/pq scans DATE columns into.
func CalendarDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateParam renders t's calendar date for a `$n::date` placeholder.
func DateParam(t time.Time) string {
	return t.Format(DateLayout)
}

// SLADueDate adds processingDays calendar days to the submission date.
func SLADueDate(submittedAt time.Time, processingDays int) time.Time {
	return CalendarDate(submittedAt).AddDate(0, 0, processingDays)
}

// DaysBetween counts whole calendar days from a to b. Each value's date is
// read in its own location, so a local "today" compares cleanly with a DATE
// column scanned as UTC midnight.
func DaysBetween(a, b time.Time) int {
	return int(CalendarDate(b).Sub(CalendarDate(a)).Hours() / 24)
}
