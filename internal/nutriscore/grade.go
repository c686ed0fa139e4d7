// Package nutriscore computes Nutri-Score letter grades from nutrition facts.
//
// The grading is a points model adapted from the European Nutri-Score: three
// capped penalty components (calories, sugar, fat) minus two capped credit
// components (fiber, protein). Every caller that needs a grade, whether a
// live preview or a product being persisted, goes through Evaluate so the
// thresholds below exist in exactly one place.
package nutriscore

import (
	"errors"
	"fmt"
	"strings"
)

// Grade is a Nutri-Score letter. A is best, E is worst.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeE Grade = "E"
)

// ErrInvalidGrade is returned by ParseGrade for anything outside A-E.
var ErrInvalidGrade = errors.New("invalid grade")

var grades = []Grade{GradeA, GradeB, GradeC, GradeD, GradeE}

// Grades returns all grades from best to worst.
func Grades() []Grade {
	out := make([]Grade, len(grades))
	copy(out, grades)
	return out
}

// ParseGrade parses a grade letter, case-insensitively.
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if !g.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidGrade, s)
	}
	return g, nil
}

// Valid reports whether g is one of A-E.
func (g Grade) Valid() bool {
	return g.Rank() > 0
}

// Rank is the quality rank: 1 for A up to 5 for E, 0 for an invalid grade.
func (g Grade) Rank() int {
	for i, known := range grades {
		if g == known {
			return i + 1
		}
	}
	return 0
}

// Better reports whether g ranks strictly better than other.
func (g Grade) Better(other Grade) bool {
	return g.Valid() && other.Valid() && g.Rank() < other.Rank()
}

func (g Grade) String() string {
	return string(g)
}

// GradeForScore maps a nutritional score to its grade.
func GradeForScore(score int) Grade {
	switch {
	case score <= -1:
		return GradeA
	case score <= 2:
		return GradeB
	case score <= 10:
		return GradeC
	case score <= 18:
		return GradeD
	default:
		return GradeE
	}
}
