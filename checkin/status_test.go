package checkin

import (
	"testing"
)

func TestStatusStoreTick(t *testing.T) {
	tests := []struct {
		name         string
		before       Status
		wantSeconds  int64
		wantEligible bool
	}{
		{
			name:         "positive countdown decrements",
			before:       Status{CanCheckin: false, SecondsUntilNext: 10},
			wantSeconds:  9,
			wantEligible: false,
		},
		{
			name:         "decrement to zero flips eligibility",
			before:       Status{CanCheckin: false, SecondsUntilNext: 1},
			wantSeconds:  0,
			wantEligible: true,
		},
		{
			name:         "already at zero stays untouched",
			before:       Status{CanCheckin: false, SecondsUntilNext: 0},
			wantSeconds:  0,
			wantEligible: false,
		},
		{
			name:         "eligible entry is not modified",
			before:       Status{CanCheckin: true, SecondsUntilNext: 0},
			wantSeconds:  0,
			wantEligible: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewStatusStore()
			store.Set(1, tt.before)

			store.Tick()

			got, ok := store.Get(1)
			if !ok {
				t.Fatal("entry disappeared")
			}
			if got.SecondsUntilNext != tt.wantSeconds {
				t.Errorf("SecondsUntilNext = %d, want %d", got.SecondsUntilNext, tt.wantSeconds)
			}
			if got.CanCheckin != tt.wantEligible {
				t.Errorf("CanCheckin = %v, want %v", got.CanCheckin, tt.wantEligible)
			}
		})
	}
}

func TestStatusStoreTickNeverNegative(t *testing.T) {
	store := NewStatusStore()
	store.Set(1, Status{SecondsUntilNext: 2})

	for i := 0; i < 10; i++ {
		store.Tick()
	}

	got, _ := store.Get(1)
	if got.SecondsUntilNext != 0 {
		t.Errorf("SecondsUntilNext = %d, want 0", got.SecondsUntilNext)
	}
	if !got.CanCheckin {
		t.Error("expected entry to become eligible after counting down")
	}
}

func TestStatusStoreSetOverwrites(t *testing.T) {
	store := NewStatusStore()
	store.Set(1, Status{CanCheckin: false, SecondsUntilNext: 100, JustCompleted: true})

	fresh := Status{CanCheckin: true}
	store.Set(1, fresh)

	got, _ := store.Get(1)
	if got != fresh {
		t.Errorf("got %+v, want %+v", got, fresh)
	}
}

func TestStatusStoreMarkJustCompleted(t *testing.T) {
	store := NewStatusStore()
	lastCheckin := int64(1700000000)
	store.Set(1, Status{CanCheckin: true, LastCheckin: &lastCheckin})

	store.MarkJustCompleted(1)

	got, _ := store.Get(1)
	if got.CanCheckin {
		t.Error("expected CanCheckin to be cleared")
	}
	if !got.JustCompleted {
		t.Error("expected JustCompleted to be set")
	}
	if got.LastCheckin != &lastCheckin {
		t.Error("expected LastCheckin to carry over")
	}
}

func TestStatusStoreSeed(t *testing.T) {
	store := NewStatusStore()
	store.Set(1, Status{CanCheckin: false, SecondsUntilNext: 42})

	store.Seed([]uint64{1, 2})

	for _, chainId := range []uint64{1, 2} {
		got, ok := store.Get(chainId)
		if !ok {
			t.Fatalf("chain %d missing after seed", chainId)
		}
		if got != OptimisticStatus() {
			t.Errorf("chain %d = %+v, want optimistic default", chainId, got)
		}
	}
}

func TestStatusStoreSnapshotIsCopy(t *testing.T) {
	store := NewStatusStore()
	store.Set(1, Status{CanCheckin: true})

	snapshot := store.Snapshot()
	snapshot[1] = Status{CanCheckin: false, SecondsUntilNext: 999}

	got, _ := store.Get(1)
	if !got.CanCheckin {
		t.Error("mutating a snapshot must not affect the store")
	}
}
