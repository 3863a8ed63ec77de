package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ashfall-labs/burnwatcher/internal/ledger"
	"github.com/ashfall-labs/burnwatcher/pkg/common/logger"
	"github.com/shopspring/decimal"
)

const (
	defaultRecentLimit = 50
	maxRecentLimit     = 200
)

type HealthResponse struct {
	Status    string    `json:"status"`
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version"`
}

type APIErrorResponse struct {
	Status    string    `json:"status"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

type RecentBurnsResponse struct {
	Burns []ledger.BurnRecord `json:"burns"`
}

type BurnLookupResponse struct {
	Found bool               `json:"found"`
	Burn  *ledger.BurnRecord `json:"burn,omitempty"`
}

type DebugPushRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type DebugPushResponse struct {
	OK          bool            `json:"ok"`
	TxHash      string          `json:"txHash"`
	AmountHuman decimal.Decimal `json:"amountHuman"`
}

type BurnHTTPHandler struct {
	version      string
	store        ledger.Store
	aggregator   *ledger.Aggregator
	debugEnabled bool
}

func NewBurnHTTPHandler(version string, store ledger.Store, aggregator *ledger.Aggregator, debugEnabled bool) *BurnHTTPHandler {
	return &BurnHTTPHandler{
		version:      version,
		store:        store,
		aggregator:   aggregator,
		debugEnabled: debugEnabled,
	}
}

func (h *BurnHTTPHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.HandleHealth)
	mux.HandleFunc("/burns/recent", h.HandleRecent)
	mux.HandleFunc("/burns/stats", h.HandleStats)
	mux.HandleFunc("/burns/debug/push", h.HandleDebugPush)
	mux.HandleFunc("/burns/debug/clear", h.HandleDebugClear)
	mux.HandleFunc("/burns/", h.HandleLookup)
}

func (h *BurnHTTPHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC(),
		Version:   h.version,
	})
}

// HandleRecent serves the most recent burns, newest first. Store failures
// degrade to an empty list rather than an error so polling clients never see
// a 5xx from the read path.
func (h *BurnHTTPHandler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeErrorJSON(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}

	burns, err := h.store.Recent(limit)
	if err != nil {
		logger.Error("Recent burns read failed", "err", err)
		burns = nil
	}
	if burns == nil {
		burns = []ledger.BurnRecord{}
	}
	writeJSON(w, http.StatusOK, RecentBurnsResponse{Burns: burns})
}

func (h *BurnHTTPHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	stats, err := h.aggregator.Stats()
	if err != nil {
		logger.Error("Stats read failed", "err", err)
		stats = ledger.Stats{}
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *BurnHTTPHandler) HandleLookup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	txHash := strings.TrimPrefix(r.URL.Path, "/burns/")
	if txHash == "" || strings.Contains(txHash, "/") {
		writeErrorJSON(w, http.StatusNotFound, "not found")
		return
	}

	record, found, err := h.store.Get(txHash)
	if err != nil {
		logger.Error("Burn lookup failed", "err", err, "tx", txHash)
	}
	if !found {
		writeJSON(w, http.StatusNotFound, BurnLookupResponse{Found: false})
		return
	}
	writeJSON(w, http.StatusOK, BurnLookupResponse{Found: true, Burn: &record})
}

// HandleDebugPush synthesizes a ledger record. Development only; the route
// answers 404 unless debug endpoints are enabled.
func (h *BurnHTTPHandler) HandleDebugPush(w http.ResponseWriter, r *http.Request) {
	if !h.debugEnabled {
		writeErrorJSON(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodPost {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req DebugPushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeErrorJSON(w, http.StatusBadRequest, "invalid body")
		return
	}
	if !req.Amount.IsPositive() {
		writeErrorJSON(w, http.StatusBadRequest, "invalid amount")
		return
	}

	record := ledger.BurnRecord{
		TxHash:      pseudoTxHash(),
		AmountHuman: req.Amount,
		Timestamp:   time.Now().UTC(),
	}
	if err := h.store.Append(record); err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, DebugPushResponse{
		OK:          true,
		TxHash:      record.TxHash,
		AmountHuman: record.AmountHuman,
	})
}

// HandleDebugClear wipes the ledger. Development only.
func (h *BurnHTTPHandler) HandleDebugClear(w http.ResponseWriter, r *http.Request) {
	if !h.debugEnabled {
		writeErrorJSON(w, http.StatusNotFound, "not found")
		return
	}
	if r.Method != http.MethodDelete {
		writeErrorJSON(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if err := h.store.ClearAll(); err != nil {
		writeErrorJSON(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func pseudoTxHash() string {
	buf := make([]byte, 32)
	_, _ = rand.Read(buf)
	return "0x" + hex.EncodeToString(buf)
}

func startHTTPServer(port int, handler *BurnHTTPHandler) *http.Server {
	mux := http.NewServeMux()
	handler.Register(mux)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		logger.Info("Burn API server started",
			"port", port,
			"recent_endpoint", "/burns/recent",
			"stats_endpoint", "/burns/stats",
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP server failed to start", "error", err)
		}
	}()

	return server
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("Failed to encode response", "status", statusCode, "err", err)
	}
}

func writeErrorJSON(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, APIErrorResponse{
		Status:    "error",
		Error:     message,
		Timestamp: time.Now().UTC(),
	})
}
