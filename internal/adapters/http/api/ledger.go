package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/okian/vists/internal/adapters/sheet"
	service "github.com/okian/vists/internal/app"
	"github.com/okian/vists/internal/config"
	"github.com/okian/vists/internal/domain/ledger"
	"github.com/okian/vists/internal/domain/model"
	"github.com/okian/vists/internal/domain/types"
)

// LedgerDependencies defines the interface for ledger submission.
type LedgerDependencies interface {
	Submit(ctx context.Context, table model.Table, settings *model.Settings) (types.Submission, error)
}

// LedgerHandler accepts games tables as CSV.
type LedgerHandler struct {
	deps     LedgerDependencies
	schema   model.Schema
	settings model.Settings
	maxBytes int64
}

// NewLedgerHandler creates a new ledger handler.
func NewLedgerHandler(deps LedgerDependencies, schema model.Schema, settings model.Settings, maxBytes int64) *LedgerHandler {
	return &LedgerHandler{deps: deps, schema: schema, settings: settings, maxBytes: maxBytes}
}

// HandlePostLedger handles POST /ledger. The body is the games table as CSV;
// the settings sheet keys may be given as query parameters.
func (h *LedgerHandler) HandlePostLedger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}

	table, err := sheet.ReadTable(http.MaxBytesReader(w, r.Body, h.maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "too_large", ErrTooLarge)
			return
		}
		writeError(w, http.StatusBadRequest, "bad_request", fmt.Errorf("%w: %w", ErrBadRequest, err))
		return
	}
	if err := ledger.Validate(table, h.schema); err != nil {
		code := "schema"
		if errors.Is(err, ledger.ErrEmptyDataset) {
			code = "empty_dataset"
		}
		writeError(w, http.StatusUnprocessableEntity, code, err)
		return
	}

	settings, err := h.querySettings(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	sub, err := h.deps.Submit(r.Context(), table, settings)
	switch {
	case err == nil:
	case errors.Is(err, service.ErrBackpressure):
		writeError(w, http.StatusTooManyRequests, "backpressure", fmt.Errorf("%w: %w", ErrBackpressure, err))
		return
	case isUnavailable(err):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
		return
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
		return
	}

	status := http.StatusAccepted
	if sub.Duplicate {
		status = http.StatusOK
	}
	writeJSON(w, status, sub)
}

// querySettings returns nil when no settings parameter is present.
func (h *LedgerHandler) querySettings(r *http.Request) (*model.Settings, error) {
	q := r.URL.Query()
	kv := make(map[string]string)
	for _, key := range []string{model.SettingInitialRating, model.SettingKFactor, model.SettingDifferenceDivisor} {
		if v := strings.TrimSpace(q.Get(key)); v != "" {
			kv[key] = v
		}
	}
	if len(kv) == 0 {
		return nil, nil
	}
	s, err := config.ParseSettings(h.settings, kv)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
