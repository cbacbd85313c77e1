// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package integrity checks bibliographic field values for plausibility.
package integrity

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Year check failures, in the order they are tested.
var (
	ErrNotFourDigit        = errors.New("should contain a four digit number")
	ErrNotEndingInNumerals = errors.New("last four nonpunctuation characters should be numerals")
	ErrFirstNotNumeral     = errors.New("first character should be numeral")
	ErrNotAYear            = errors.New("not a year")
	ErrFutureYear          = errors.New("year should be smaller or equal than actual year")
)

var (
	containsFourDigit = regexp.MustCompile(`(?:[^0-9]|^)[0-9]{4}(?:[^0-9]|$)`)
	endsWithFourDigit = regexp.MustCompile(`[0-9]{4}$`)
	punctuationMarks  = regexp.MustCompile(`[(){},.;!?<>%&$]`)
)

// YearChecker validates the year field of a bibliography entry.
// BibTeX styles accept any year whose last four non-punctuation characters
// are numerals, such as "(about 1984)"; this checker is stricter and wants
// a plain year no later than the current one.
type YearChecker struct {
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Check returns nil when value is blank or a plausible year, otherwise one of
// the Err* values. Blank values pass while non-numeric ones fail.
func (c YearChecker) Check(value string) error {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	if !containsFourDigit.MatchString(strings.TrimSpace(value)) {
		return ErrNotFourDigit
	}
	if !endsWithFourDigit.MatchString(punctuationMarks.ReplaceAllString(value, "")) {
		return ErrNotEndingInNumerals
	}
	if value[0] < '0' || value[0] > '9' {
		return ErrFirstNotNumeral
	}

	year, err := strconv.Atoi(value)
	if err != nil {
		return ErrNotAYear
	}
	if year > c.now().Year() {
		return ErrFutureYear
	}
	return nil
}

func (c YearChecker) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}
