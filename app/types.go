package app

import (
	"fmt"
	"sort"

	"gannetx/chains"
	"gannetx/checkin"

	"github.com/ethereum/go-ethereum/common"
)

// ChainStatusView is one grid cell: a network plus its latest known state.
type ChainStatusView struct {
	Chain         chains.Chain
	Status        checkin.Status
	CountdownText string
	Ready         bool
}

type gridViewData struct {
	Account  string
	Scanning bool
	Rows     []ChainStatusView
}

func (a *App) gridData() gridViewData {
	snapshot := a.engine.Snapshot()

	rows := make([]ChainStatusView, 0, len(snapshot))
	for _, chain := range chains.List(a.includeTestnets) {
		status, ok := snapshot[chain.Id]
		if !ok {
			status = checkin.OptimisticStatus()
		}
		rows = append(rows, ChainStatusView{
			Chain:         chain,
			Status:        status,
			CountdownText: formatCountdown(status),
			Ready:         status.CanCheckin,
		})
	}

	// ready chains first, then by shortest wait, then by name
	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].Ready != rows[j].Ready {
			return rows[i].Ready
		}
		if rows[i].Status.SecondsUntilNext != rows[j].Status.SecondsUntilNext {
			return rows[i].Status.SecondsUntilNext < rows[j].Status.SecondsUntilNext
		}
		return rows[i].Chain.Name < rows[j].Chain.Name
	})

	account := ""
	if addr := a.engine.Account(); addr != (common.Address{}) {
		account = addr.Hex()
	}

	return gridViewData{
		Account:  account,
		Scanning: a.engine.Scanning(),
		Rows:     rows,
	}
}

func formatCountdown(status checkin.Status) string {
	if status.CanCheckin {
		return "Available"
	}
	remaining := status.SecondsUntilNext
	if remaining <= 0 {
		return "Available"
	}

	hours := remaining / 3600
	minutes := (remaining % 3600) / 60
	seconds := remaining % 60

	switch {
	case hours > 0:
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	case minutes > 0:
		return fmt.Sprintf("%dm %ds", minutes, seconds)
	default:
		return fmt.Sprintf("%ds", seconds)
	}
}
