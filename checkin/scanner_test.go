package checkin

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"gannetx/chains"

	"github.com/ethereum/go-ethereum/common"
)

type fakeProber struct {
	mu       sync.Mutex
	statuses map[uint64]Status
	failing  map[uint64]bool
	probed   []uint64
}

func (p *fakeProber) Probe(ctx context.Context, chainId uint64, account common.Address, previous Status) Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.probed = append(p.probed, chainId)
	if p.failing[chainId] {
		return previous
	}
	if status, ok := p.statuses[chainId]; ok {
		return status
	}
	return Status{CanCheckin: true}
}

func newTestScanner(prober Prober) (*Scanner, *StatusStore) {
	store := NewStatusStore()
	scanner := NewScanner(store, prober, false, slog.Default())
	scanner.batchDelay = time.Millisecond
	scanner.maxJitter = 0
	return scanner, store
}

func TestScanAllCoversEveryMainnet(t *testing.T) {
	prober := &fakeProber{}
	scanner, _ := newTestScanner(prober)

	snapshot := scanner.ScanAll(context.Background(), common.Address{})

	want := chains.Ids(false)
	if len(snapshot) != len(want) {
		t.Fatalf("snapshot has %d entries, want %d", len(snapshot), len(want))
	}
	for _, chainId := range want {
		if _, ok := snapshot[chainId]; !ok {
			t.Errorf("chain %d missing from snapshot", chainId)
		}
	}
	if len(prober.probed) != len(want) {
		t.Errorf("probed %d chains, want %d", len(prober.probed), len(want))
	}
}

func TestScanAllMergesProbeResults(t *testing.T) {
	wantStatus := Status{CanCheckin: false, SecondsUntilNext: 3600}
	prober := &fakeProber{
		statuses: map[uint64]Status{chains.BaseChainId: wantStatus},
	}
	scanner, _ := newTestScanner(prober)

	snapshot := scanner.ScanAll(context.Background(), common.Address{})

	if got := snapshot[chains.BaseChainId]; got != wantStatus {
		t.Errorf("base status = %+v, want %+v", got, wantStatus)
	}
}

func TestScanAllFailedProbeKeepsPreviousStatus(t *testing.T) {
	previous := Status{CanCheckin: false, SecondsUntilNext: 1234}
	prober := &fakeProber{
		failing: map[uint64]bool{chains.BaseChainId: true},
	}
	scanner, store := newTestScanner(prober)
	store.Set(chains.BaseChainId, previous)

	snapshot := scanner.ScanAll(context.Background(), common.Address{})

	if got := snapshot[chains.BaseChainId]; got != previous {
		t.Errorf("failed probe replaced status: got %+v, want %+v", got, previous)
	}
}

func TestScanAllFailedProbeWithoutHistoryIsOptimistic(t *testing.T) {
	prober := &fakeProber{
		failing: map[uint64]bool{chains.BaseChainId: true},
	}
	scanner, _ := newTestScanner(prober)

	snapshot := scanner.ScanAll(context.Background(), common.Address{})

	if got := snapshot[chains.BaseChainId]; got != OptimisticStatus() {
		t.Errorf("got %+v, want optimistic default", got)
	}
}

type blockingProber struct {
	release chan struct{}
}

func (p *blockingProber) Probe(ctx context.Context, chainId uint64, account common.Address, previous Status) Status {
	<-p.release
	return Status{CanCheckin: true}
}

func TestScanAllRefusesToOverlap(t *testing.T) {
	prober := &blockingProber{release: make(chan struct{})}
	scanner, store := newTestScanner(prober)
	marker := Status{CanCheckin: false, SecondsUntilNext: 7}
	store.Set(999, marker)

	done := make(chan struct{})
	go func() {
		scanner.ScanAll(context.Background(), common.Address{})
		close(done)
	}()

	// wait for the first scan to take the slot
	for !scanner.Scanning() {
		time.Sleep(time.Millisecond)
	}

	snapshot := scanner.ScanAll(context.Background(), common.Address{})
	if got := snapshot[999]; got != marker {
		t.Errorf("overlapping scan must return the current snapshot unchanged, got %+v", got)
	}

	close(prober.release)
	<-done
}
