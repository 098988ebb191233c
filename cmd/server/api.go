package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"solana-roundup/internal/observability"
	"solana-roundup/internal/storage"
	"solana-roundup/internal/tracker"
)

// errorResponse is the structured error body for API failures.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind"`
}

// routes builds the HTTP mux.
func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /wallets", s.handleRegisterWallet)
	mux.HandleFunc("GET /wallets/{address}", s.handleGetWallet)
	mux.HandleFunc("POST /wallets/{address}/sync", s.handleSync)
	mux.HandleFunc("GET /wallets/{address}/transactions", s.handleTransactions)
	mux.HandleFunc("GET /wallets/{address}/batches", s.handleBatches)
	mux.HandleFunc("GET /wallets/{address}/accruals/daily", s.handleDailyAccruals)
	mux.HandleFunc("POST /proposals/preview", s.handleProposalPreview)

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", s.handleStatus)

	return mux
}

func (s *Server) handleRegisterWallet(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	wallet, err := s.tracker.Register(r.Context(), req.Address)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicateKey) {
			writeError(w, http.StatusConflict, "duplicate", "wallet already registered")
			return
		}
		s.writeDomainError(w, err)
		return
	}

	s.mu.Lock()
	watcher := s.watcher
	s.mu.Unlock()
	if watcher != nil {
		if err := watcher.Watch(r.Context(), wallet.Address); err != nil {
			s.logger.WithError(err).WithField("wallet", wallet.Address).
				Warn("activity subscription failed")
		}
	}

	writeJSON(w, http.StatusCreated, wallet)
}

func (s *Server) handleGetWallet(w http.ResponseWriter, r *http.Request) {
	wallet, err := s.wallets.GetByAddress(r.Context(), r.PathValue("address"))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "not_found", "wallet not found")
			return
		}
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, wallet)
}

func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	result, err := s.tracker.Sync(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid_request", "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	rows, err := s.ledger.GetByWallet(r.Context(), r.PathValue("address"), limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.batches.ListByWallet(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

func (s *Server) handleDailyAccruals(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotImplemented, "unavailable", "analytics sink not configured")
		return
	}

	totals, err := s.events.DailyTotals(r.Context(), r.PathValue("address"))
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, totals)
}

func (s *Server) handleProposalPreview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Address string `json:"address"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "malformed JSON body")
		return
	}

	txs, err := s.source.FetchRecent(r.Context(), req.Address, s.syncCfg.LookbackDays, s.syncCfg.FetchLimit)
	if err != nil {
		writeError(w, http.StatusBadGateway, "upstream", err.Error())
		return
	}

	proposals, err := s.engine.Generate(r.Context(), txs, s.proposalCfg)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, proposals)
}

// StatusResponse is the JSON response for the /status endpoint.
type StatusResponse struct {
	Status      string `json:"status"`
	Uptime      string `json:"uptime"`
	LastSync    string `json:"last_sync,omitempty"`
	SyncRuns    int    `json:"sync_runs"`
	Syncing     bool   `json:"syncing"`
	CurrentSlot int64  `json:"current_slot,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	resp := StatusResponse{
		Status:   "running",
		Uptime:   time.Since(s.started).String(),
		SyncRuns: s.syncRuns,
		Syncing:  s.syncing,
	}
	if !s.lastSync.IsZero() {
		resp.LastSync = s.lastSync.Format(time.RFC3339)
	}
	s.mu.Unlock()

	if slot, err := s.rpc.GetSlot(r.Context()); err == nil {
		resp.CurrentSlot = slot
	}

	writeJSON(w, http.StatusOK, resp)
}

// writeDomainError maps tracker and storage errors to HTTP statuses.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tracker.ErrInvalidAddress):
		writeError(w, http.StatusBadRequest, "invalid_address", err.Error())
	case errors.Is(err, tracker.ErrWalletNotFound), errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, tracker.ErrFetchFailed):
		writeError(w, http.StatusBadGateway, "upstream", err.Error())
	default:
		s.logger.WithError(err).Error("request failed")
		writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: msg, Kind: kind})
}
