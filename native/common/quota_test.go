package common

import (
	"errors"
	"math"
	"testing"
)

func TestCheckQuotaRequestLimit(t *testing.T) {
	q := Quota{MaxRequestsPerEpoch: 10, EpochSeconds: 60}
	prev := QuotaNow{EpochID: 1}

	next, err := CheckQuota(q, 1, prev, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if next.ReqCount != 10 {
		t.Fatalf("unexpected request count: %d", next.ReqCount)
	}

	denied, err := CheckQuota(q, 1, next, 1)
	if !errors.Is(err, ErrQuotaRequestsExceeded) {
		t.Fatalf("expected ErrQuotaRequestsExceeded, got %v", err)
	}
	if denied != next {
		t.Fatalf("expected counters to remain unchanged on denial")
	}

	rollover, err := CheckQuota(q, 2, next, 1)
	if err != nil {
		t.Fatalf("unexpected error after epoch rollover: %v", err)
	}
	if rollover.EpochID != 2 || rollover.ReqCount != 1 {
		t.Fatalf("unexpected state after rollover: %+v", rollover)
	}
}

func TestCheckQuotaOverflow(t *testing.T) {
	q := Quota{}
	prev := QuotaNow{EpochID: 3, ReqCount: math.MaxUint32}
	if _, err := CheckQuota(q, 3, prev, 1); !errors.Is(err, ErrQuotaCounterOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
}

func TestQuotaEpochAt(t *testing.T) {
	q := Quota{MaxRequestsPerEpoch: 1, EpochSeconds: 3600}
	if !q.Enabled() {
		t.Fatalf("expected quota to be enabled")
	}
	if got := q.EpochAt(7200); got != 2 {
		t.Fatalf("unexpected epoch %d", got)
	}
	if (Quota{}).Enabled() {
		t.Fatalf("zero quota must be disabled")
	}
}

func TestGuardHonoursPauseSet(t *testing.T) {
	pauses := NewPauseSet("participants")
	if err := Guard(pauses, "participants"); !errors.Is(err, ErrModulePaused) {
		t.Fatalf("expected paused error, got %v", err)
	}
	if err := Guard(pauses, "other"); err != nil {
		t.Fatalf("unexpected error for unpaused module: %v", err)
	}
	pauses.Set("Participants", false)
	if err := Guard(pauses, "participants"); err != nil {
		t.Fatalf("expected module to be resumed, got %v", err)
	}
	if err := Guard(nil, "participants"); err != nil {
		t.Fatalf("nil view must not pause: %v", err)
	}
}
