package validator

import (
	"errors"
	"testing"
)

func TestAll(t *testing.T) {
	sentinel := errors.New("boom")
	if err := All(nil, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := All(nil, sentinel, errors.New("later")); err != sentinel {
		t.Fatalf("All should return the first error, got %v", err)
	}
}

func TestNotEmpty(t *testing.T) {
	if err := NotEmpty("x", "field"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := NotEmpty("", "field"); err == nil {
		t.Fatal("expected an error for an empty field")
	}
}

func TestNoDuplicates(t *testing.T) {
	if err := NoDuplicates([]string{"a", "b"}, "names"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := NoDuplicates([]string{"a", "a"}, "names"); err == nil {
		t.Fatal("expected an error for duplicates")
	}
}

func TestMatchesAllowed(t *testing.T) {
	if err := MatchesAllowed("b", []string{"a", "b"}, "mode"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := MatchesAllowed("c", []string{"a", "b"}, "mode"); err == nil {
		t.Fatal("expected an error for a disallowed value")
	}
}

func TestHasNoTags(t *testing.T) {
	for _, ok := range []string{"", "plain", "a } b"} {
		if err := HasNoTags(ok, "field"); err != nil {
			t.Fatalf("%q: unexpected error: %v", ok, err)
		}
	}
	for _, bad := range []string{"{{ x }}", "{% if %}", "{# c #}"} {
		if err := HasNoTags(bad, "field"); err == nil {
			t.Fatalf("%q: expected an error", bad)
		}
	}
}
