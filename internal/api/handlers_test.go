package api

import (
	"testing"
	"time"
)

func TestToMinuteTSMatchesUnixDivision(t *testing.T) {
	ts, err := toMinuteTS("2026-01-01T00:01:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ref, err := toMinuteTS("2026-01-01T00:01:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ts != ref {
		t.Fatalf("parsing the same timestamp twice should be stable, got %d and %d", ts, ref)
	}
	if ts <= 0 {
		t.Fatalf("expected a positive minute timestamp, got %d", ts)
	}
	if want := time.Date(2026, 1, 1, 0, 1, 0, 0, time.UTC).Unix() / 60; ts != want {
		t.Fatalf("expected Unix seconds / 60 = %d, got %d", want, ts)
	}
}

func TestToMinuteTSAcceptsRFC3339Fallback(t *testing.T) {
	isoTS, err := toMinuteTS("2026-01-01T00:01:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rfcTS, err := toMinuteTS("2026-01-01T00:01:00+00:00")
	if err != nil {
		t.Fatalf("expected RFC3339 fallback to parse, got error: %v", err)
	}

	if isoTS != rfcTS {
		t.Fatalf("equivalent timestamps in different layouts should produce the same minute, got %d and %d", isoTS, rfcTS)
	}
}

func TestToMinuteTSDropsSecondsWithinTheMinute(t *testing.T) {
	// toMinuteTS truncates via integer division, so a within-minute
	// difference like seconds never changes the resulting bucket as long
	// as it does not cross a minute boundary — RFC3339 with seconds still
	// lands on the same minute as the truncated ISO form.
	base, err := toMinuteTS("2026-01-01T00:01:00Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	withSeconds, err := toMinuteTS("2026-01-01T00:01:30Z")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if base != withSeconds {
		t.Fatalf("expected both timestamps to truncate to the same minute, got %d and %d", base, withSeconds)
	}
}

func TestToMinuteTSRejectsGarbage(t *testing.T) {
	if _, err := toMinuteTS("not-a-timestamp"); err == nil {
		t.Fatal("expected an error for an unparseable timestamp")
	}
}
