// Package api exposes the HTTP surface: resume intake, candidate
// management, hybrid search and the billing endpoints.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"talentmatch/internal/billing"
	"talentmatch/internal/config"
	"talentmatch/internal/cv"
	"talentmatch/internal/dedup"
	"talentmatch/internal/ingest"
	"talentmatch/internal/llm"
	"talentmatch/internal/search"
	"talentmatch/internal/storage"
)

type API struct {
	cfg      *config.Config
	db       *storage.DB
	docs     *cv.DocumentParser
	ingester *ingest.Service
	ranker   *search.Ranker
	builder  *search.Builder
	llm      *llm.Service
	ledger   *billing.Ledger
	log      *zap.Logger
}

func New(cfg *config.Config, db *storage.DB, docs *cv.DocumentParser, ingester *ingest.Service,
	ranker *search.Ranker, builder *search.Builder, llmService *llm.Service,
	ledger *billing.Ledger, log *zap.Logger) *API {
	return &API{
		cfg:      cfg,
		db:       db,
		docs:     docs,
		ingester: ingester,
		ranker:   ranker,
		builder:  builder,
		llm:      llmService,
		ledger:   ledger,
		log:      log,
	}
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("write response", zap.Error(err))
	}
}

func (a *API) writeError(w http.ResponseWriter, status int, msg string) {
	a.writeJSON(w, status, map[string]string{"error": msg})
}

// mapError translates service errors into HTTP statuses.
func (a *API) mapError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		a.writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, storage.ErrInsufficientBalance):
		a.writeError(w, http.StatusPaymentRequired, "insufficient balance")
	case errors.Is(err, dedup.ErrAmbiguousMerge):
		a.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, cv.ErrEmptyText):
		a.writeError(w, http.StatusBadRequest, "document contains no extractable text")
	case errors.Is(err, ingest.ErrNoCandidateName):
		a.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, search.ErrEmptyQuery):
		a.writeError(w, http.StatusBadRequest, "query is empty")
	default:
		a.log.Error("request failed", zap.Error(err))
		a.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
