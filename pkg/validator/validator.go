// Package validator has small helpers for static configuration checks.
package validator

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// All returns the first non-nil error.
func All(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func NotEmpty(field, description string) error {
	if field == "" {
		return fmt.Errorf("%s must not be empty", description)
	}
	return nil
}

// MatchesAllowed fails when field is set and not one of allowed. The zero
// value counts as unset.
func MatchesAllowed[T comparable](field T, allowed []T, description string) error {
	var zero T
	if field == zero {
		return nil
	}
	if !slices.Contains(allowed, field) {
		return fmt.Errorf("%s must be one of %v, got %v", description, allowed, field)
	}
	return nil
}

func NoDuplicates[T comparable](slice []T, description string) error {
	seen := make(map[T]struct{})
	for _, v := range slice {
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%s contains duplicate value: %v", description, v)
		}
		seen[v] = struct{}{}
	}
	return nil
}

// Pattern fails when expr is set and is not a valid regular expression.
func Pattern(expr, description string) error {
	if expr == "" {
		return nil
	}
	if _, err := regexp.Compile(expr); err != nil {
		return fmt.Errorf("%s is not a valid pattern: %w", description, err)
	}
	return nil
}

// Range fails when both bounds are set and lo is greater than hi.
func Range[T int | float64](lo, hi *T, description string) error {
	if lo != nil && hi != nil && *lo > *hi {
		return fmt.Errorf("%s: minimum %v is greater than maximum %v", description, *lo, *hi)
	}
	return nil
}

// NonNegative fails when v is set and below zero.
func NonNegative[T int | float64](v *T, description string) error {
	if v != nil && *v < 0 {
		return fmt.Errorf("%s must not be negative, got %v", description, *v)
	}
	return nil
}

// Report collects errors and warnings from a validation pass.
type Report struct {
	Errors   []string
	Warnings []string
}

// Error records err under subject when err is non-nil.
func (r *Report) Error(subject string, err error) {
	if err == nil {
		return
	}
	r.Errors = append(r.Errors, subject+": "+err.Error())
}

// Errorf records a formatted error under subject.
func (r *Report) Errorf(subject, format string, args ...any) {
	r.Errors = append(r.Errors, subject+": "+fmt.Sprintf(format, args...))
}

// Warnf records a formatted warning under subject.
func (r *Report) Warnf(subject, format string, args ...any) {
	r.Warnings = append(r.Warnings, subject+": "+fmt.Sprintf(format, args...))
}

// OK reports whether no errors were recorded.
func (r *Report) OK() bool { return len(r.Errors) == 0 }

// Err joins every recorded error, or returns nil.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = errors.New(e)
	}
	return errors.Join(errs...)
}

func (r *Report) String() string {
	var b strings.Builder
	for _, e := range r.Errors {
		fmt.Fprintf(&b, "error: %s\n", e)
	}
	for _, w := range r.Warnings {
		fmt.Fprintf(&b, "warning: %s\n", w)
	}
	return b.String()
}
