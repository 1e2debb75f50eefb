package app

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"gannetx/chains"
	"gannetx/checkin"
	"gannetx/contracts"
	"gannetx/provider"

	"github.com/donseba/go-htmx"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const chainReadTimeout = 10 * time.Second

//go:embed public
var publicFS embed.FS

var (
	baseTemplate       = template.Must(template.ParseFS(publicFS, "public/base.html"))
	gridTemplate       = template.Must(template.ParseFS(publicFS, "public/grid.html"))
	statusRowsTemplate = template.Must(template.ParseFS(publicFS, "public/statusRows.html"))
	errorTemplate      = template.Must(template.ParseFS(publicFS, "public/errorBox.html"))
	checkinTemplate    = template.Must(template.ParseFS(publicFS, "public/checkinResult.html"))
)

type App struct {
	logger          *slog.Logger
	engine          *checkin.Engine
	htmx            *htmx.HTMX
	includeTestnets bool
}

func NewApp(engine *checkin.Engine, includeTestnets bool, logger *slog.Logger) *App {
	return &App{
		logger:          logger.With("module", "app"),
		engine:          engine,
		htmx:            htmx.New(),
		includeTestnets: includeTestnets,
	}
}

// Home renders the grid page around the current snapshot.
func (a *App) Home(w http.ResponseWriter, r *http.Request) {
	logger := a.logger.With("function", "Home")

	var content strings.Builder
	err := gridTemplate.Execute(&content, a.gridData())
	if err != nil {
		logger.Error("error rendering grid template", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	err = baseTemplate.Execute(w, map[string]interface{}{
		"content": template.HTML(content.String()),
	})
	if err != nil {
		logger.Error("error rendering base template", slog.String("error", err.Error()))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// GetStatusRows renders the live status fragment the grid polls.
func (a *App) GetStatusRows(w http.ResponseWriter, r *http.Request) {
	logger := a.logger.With("function", "GetStatusRows")
	err := statusRowsTemplate.Execute(w, a.gridData())
	if err != nil {
		logger.Error("error rendering status rows", slog.String("error", err.Error()))
	}
}

// PostScan triggers a fresh scan unless one is already running, then renders
// the current rows; partial progress shows up on subsequent polls.
func (a *App) PostScan(w http.ResponseWriter, r *http.Request) {
	logger := a.logger.With("function", "PostScan")
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if a.engine.Scanning() {
		logger.Debug("scan already running")
	} else {
		a.engine.Refresh()
	}

	err := statusRowsTemplate.Execute(w, a.gridData())
	if err != nil {
		logger.Error("error rendering status rows", slog.String("error", err.Error()))
	}
}

// PostCheckin submits a check-in on one chain and reports the outcome.
func (a *App) PostCheckin(w http.ResponseWriter, r *http.Request) {
	logger := a.logger.With("function", "PostCheckin")
	startTime := time.Now()

	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		logger.Error("error parsing form data", slog.String("error", err.Error()))
		a.returnErrorBox(w, r, logger, "Unable to parse form data")
		return
	}

	chainId, err := strconv.ParseUint(r.FormValue("chainId"), 10, 64)
	if err != nil {
		logger.Error("error parsing chain id", slog.String("error", err.Error()))
		a.returnErrorBox(w, r, logger, "Invalid chain id")
		return
	}

	chain, err := chains.Get(chainId)
	if err != nil {
		logger.Error("error unknown chain", slog.Uint64("chainId", chainId))
		a.returnErrorBox(w, r, logger, "Unsupported network")
		return
	}

	txHash, err := a.engine.CheckIn(r.Context(), chainId)
	if err != nil {
		switch {
		case errors.Is(err, checkin.ErrInFlight):
			a.returnErrorBox(w, r, logger, "Another check-in is still in progress")
		case errors.Is(err, provider.ErrUserRejected):
			a.returnErrorBox(w, r, logger, "Transaction rejected in the wallet")
		case errors.Is(err, provider.ErrNoProvider):
			a.returnErrorBox(w, r, logger, "No wallet available, connect a wallet first")
		case errors.Is(err, checkin.ErrConfirmationTimeout):
			// the transaction may still settle, do not report it as failed
			a.returnErrorBox(w, r, logger, "Confirmation not observed in time, the transaction may still complete. Check the explorer before retrying.")
		default:
			logger.Error("check-in failed", slog.String("error", err.Error()))
			a.returnErrorBox(w, r, logger, "Check-in failed: "+err.Error())
		}
		return
	}

	data := map[string]interface{}{
		"ChainName":   chain.Name,
		"TxHash":      txHash.Hex(),
		"ExplorerUrl": chain.ExplorerUrl + "/tx/" + txHash.Hex(),
	}
	if err := checkinTemplate.Execute(w, data); err != nil {
		logger.Error("error rendering check-in result", slog.String("error", err.Error()))
	}
	logger.Info("check-in handled",
		slog.Uint64("chainId", chainId),
		slog.Duration("timeElapsed", time.Since(startTime)),
	)
}

// ChainStatus is the server-side eligibility intermediary: it reads the
// check-in contract over the chain's own RPC endpoints so callers never face
// cross-origin restrictions against public nodes.
func (a *App) ChainStatus(w http.ResponseWriter, r *http.Request) {
	logger := a.logger.With("function", "ChainStatus")

	if r.Method != http.MethodPost {
		http.Error(w, "Only POST allowed", http.StatusMethodNotAllowed)
		return
	}

	var req checkin.StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("error decoding status request", slog.String("error", err.Error()))
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.ChainId == 0 || req.Address == "" {
		http.Error(w, "Missing chainId or address", http.StatusBadRequest)
		return
	}
	if !common.IsHexAddress(req.Address) {
		http.Error(w, "Invalid address", http.StatusBadRequest)
		return
	}

	chain, err := chains.Get(req.ChainId)
	if err != nil || !chain.Enabled() {
		http.Error(w, "Unsupported chain", http.StatusBadRequest)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), chainReadTimeout)
	defer cancel()

	status, err := a.readChainStatus(ctx, logger, chain, common.HexToAddress(req.Address))
	if err != nil {
		logger.Error("error reading chain status",
			slog.Uint64("chainId", req.ChainId),
			slog.String("error", err.Error()),
		)
		http.Error(w, "Failed to read chain status", http.StatusBadGateway)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	err = json.NewEncoder(w).Encode(checkin.StatusResponse{ChainId: req.ChainId, Status: status})
	if err != nil {
		logger.Error("error encoding status response", slog.String("error", err.Error()))
	}
}

func (a *App) readChainStatus(ctx context.Context, logger *slog.Logger, chain chains.Chain, account common.Address) (checkin.Status, error) {
	var lastErr error
	for _, endpoint := range chain.RpcEndpoints {
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			lastErr = err
			continue
		}

		eligibility, err := contracts.NewCheckin(chain, client, a.logger).GetEligibility(ctx, account)
		client.Close()
		if err != nil {
			logger.Debug("eligibility read failed, trying next endpoint",
				slog.String("endpoint", endpoint),
				slog.String("error", err.Error()),
			)
			lastErr = err
			continue
		}

		return statusFromEligibility(eligibility), nil
	}
	return checkin.Status{}, errors.Join(errors.New("all RPC endpoints failed"), lastErr)
}

// statusFromEligibility maps the raw contract answer onto a snapshot entry.
// The countdown only applies while the account cannot check in.
func statusFromEligibility(eligibility *contracts.Eligibility) checkin.Status {
	status := checkin.Status{CanCheckin: eligibility.CanActivate}

	metrics := eligibility.Metrics
	if metrics == nil {
		return status
	}

	if metrics.LastBeacon != nil && metrics.LastBeacon.Sign() > 0 {
		lastCheckin := metrics.LastBeacon.Int64()
		status.LastCheckin = &lastCheckin
	}
	if !eligibility.CanActivate && metrics.NextResetTime != nil {
		remaining := metrics.NextResetTime.Int64() - time.Now().Unix()
		if remaining > 0 {
			status.SecondsUntilNext = remaining
		}
	}
	return status
}

func (a *App) returnErrorBox(w http.ResponseWriter, r *http.Request, logger *slog.Logger, errMsg string) {
	h := a.htmx.NewHandler(w, r)
	h.ReTarget("#error-box")
	h.ReSwap("outerHTML")

	var content bytes.Buffer
	err := errorTemplate.Execute(&content, map[string]string{
		"ErrorMsg": errMsg,
	})
	if err != nil {
		logger.Error("error rendering", slog.String("error", err.Error()))
		return
	}
	if _, err := h.Write(content.Bytes()); err != nil {
		logger.Error("error writing response", slog.String("error", err.Error()))
	}
}
