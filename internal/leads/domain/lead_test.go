package domain

import (
	"testing"
	"time"
)

func TestDisplayNameFallsBackToPhone(t *testing.T) {
	if got := (Lead{Name: "Siti", Phone: "+60123"}).DisplayName(); got != "Siti" {
		t.Fatalf("expected name, got %q", got)
	}
	if got := (Lead{Phone: "+60123"}).DisplayName(); got != "+60123" {
		t.Fatalf("expected phone, got %q", got)
	}
}

func TestReplayStatus(t *testing.T) {
	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	newStatus := StatusNew
	entries := []LeadLog{
		{ToStatus: StatusNew, Timestamp: base},
		{FromStatus: &newStatus, ToStatus: StatusInProgress, Timestamp: base.Add(time.Hour)},
	}

	got, ok := ReplayStatus(entries)
	if !ok || got != StatusInProgress {
		t.Fatalf("expected In progress, got %q (%v)", got, ok)
	}

	if _, ok := ReplayStatus(nil); ok {
		t.Fatal("expected no status for empty log")
	}
}

func TestStatusSets(t *testing.T) {
	for _, s := range Statuses {
		if !IsKnownStatus(s) {
			t.Fatalf("status %q should be known", s)
		}
	}
	if IsKnownStatus("Closed") {
		t.Fatal("Closed is not a lead status")
	}
	if !IsTerminal(StatusWon) || !IsTerminal(StatusLost) || IsTerminal(StatusNew) {
		t.Fatal("unexpected terminal status set")
	}
	if !IsKnownSource(SourceMessaging) || IsKnownSource("email") {
		t.Fatal("unexpected source set")
	}
}
