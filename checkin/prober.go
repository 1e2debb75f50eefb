package checkin

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// StatusRequest is the wire format of the chain-status endpoint.
type StatusRequest struct {
	ChainId uint64 `json:"chainId"`
	Address string `json:"address"`
}

type StatusResponse struct {
	ChainId uint64 `json:"chainId"`
	Status  Status `json:"status"`
}

// Prober answers one network's eligibility question for one account.
// A probe never fails: implementations return the supplied previous status
// when the answer cannot be obtained.
type Prober interface {
	Probe(ctx context.Context, chainId uint64, account common.Address, previous Status) Status
}

// HttpProber delegates the contract read to the chain-status endpoint (the
// server-side intermediary), instead of calling public RPC nodes from the
// caller's own origin. Every failure class degrades to the previous status.
type HttpProber struct {
	endpointUrl string
	httpClient  *http.Client
	timeout     time.Duration
	logger      *slog.Logger
}

func NewHttpProber(endpointUrl string, logger *slog.Logger) *HttpProber {
	return &HttpProber{
		endpointUrl: endpointUrl,
		httpClient:  &http.Client{},
		timeout:     10 * time.Second,
		logger:      logger.With("module", "prober"),
	}
}

func (p *HttpProber) Probe(ctx context.Context, chainId uint64, account common.Address, previous Status) Status {
	logger := p.logger.With(slog.Uint64("chainId", chainId))

	body, err := json.Marshal(StatusRequest{ChainId: chainId, Address: account.Hex()})
	if err != nil {
		logger.Error("error encoding status request", slog.String("error", err.Error()))
		return previous
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpointUrl, bytes.NewReader(body))
	if err != nil {
		logger.Error("error building status request", slog.String("error", err.Error()))
		return previous
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		logger.Debug("status endpoint unreachable", slog.String("error", err.Error()))
		return previous
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		logger.Debug("status endpoint returned error", slog.String("status", resp.Status))
		return previous
	}

	var decoded StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		logger.Debug("malformed status response", slog.String("error", err.Error()))
		return previous
	}

	return decoded.Status
}
