package utils

import (
	"errors"
	"strings"
)

// TB is the part of testing.TB the assertions need. *testing.T and
// *testing.B satisfy it.
type TB interface {
	Helper()
	Errorf(format string, args ...any)
	Fatalf(format string, args ...any)
}

func Assert(t TB, predicate bool, msg string) {
	t.Helper()
	if !predicate {
		t.Errorf("%s", msg)
	}
}

func AssertEqual[T comparable](t TB, a T, b T) {
	t.Helper()
	if a != b {
		t.Errorf("Expected %v == %v (%T)", a, b, a)
	}
}

func AssertNotEqual[T comparable](t TB, a T, b T) {
	t.Helper()
	if a == b {
		t.Errorf("Expected %v != %v (%T)", a, b, a)
	}
}

// Assert that error is nil
func AssertNoError(t TB, err error) {
	t.Helper()
	if err != nil {
		t.Errorf("Expected no error, got '%v'", err)
	}
}

// Assert that an error is not nil
func AssertError(t TB, err error) {
	t.Helper()
	if err == nil {
		t.Errorf("Expected an error, got nil")
	}
}

// Assert that err matches target somewhere in its chain
func AssertErrorIs(t TB, err error, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Errorf("Expected error matching '%v', got '%v'", target, err)
	}
}

func AssertContains(t TB, s string, substr string) {
	t.Helper()
	if !strings.Contains(s, substr) {
		t.Errorf("Expected %q to contain %q", s, substr)
	}
}

// Stop the test if err is not nil. For setup steps the rest of the test
// depends on.
func RequireNoError(t TB, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("Expected no error, got '%v'", err)
	}
}

func AssertEqualWithComparator[T any](t TB, a T, b T, comparator func(T, T) bool) {
	t.Helper()
	if !comparator(a, b) {
		t.Errorf("Expected %v == %v (%T)", a, b, a)
	}
}

func CompareArrays[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func AssertEqualArrays[T comparable](t TB, a []T, b []T) {
	t.Helper()
	AssertEqualWithComparator(t, a, b, CompareArrays)
}

// Check if two arrays hold the same elements with the same multiplicity,
// in any order.
func CompareArraysUnordered[T comparable](a []T, b []T) bool {
	if len(a) != len(b) {
		return false
	}
	count := make(map[T]int, len(a))
	for _, e := range a {
		count[e]++
	}
	for _, e := range b {
		if count[e] == 0 {
			return false
		}
		count[e]--
	}
	return true
}

func AssertEqualArraysUnordered[T comparable](t TB, a []T, b []T) {
	t.Helper()
	AssertEqualWithComparator(t, a, b, CompareArraysUnordered)
}
