// Package statusapi exposes the engine's observability surface over a small
// local HTTP listener: queue depth, dead-letter and conflict inventories,
// plus the operator actions (requeue, manual sync trigger).
package statusapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/quotesync/internal/client/services"
	"github.com/dmitrijs2005/quotesync/internal/common"
	"github.com/dmitrijs2005/quotesync/internal/logging"
)

// NewHandler builds the status router over the status service.
func NewHandler(svc services.StatusService, log logging.Logger) http.Handler {
	h := &handler{svc: svc, log: log}

	r := chi.NewRouter()
	r.Get("/status", h.status)
	r.Get("/status/deadletter", h.deadLetter)
	r.Get("/status/conflicts", h.conflicts)
	r.Post("/queue/{id}/requeue", h.requeue)
	r.Post("/sync", h.sync)
	return r
}

type handler struct {
	svc services.StatusService
	log logging.Logger
}

func (h *handler) status(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Snapshot(r.Context())
	if err != nil {
		h.fail(w, r.Context(), err)
		return
	}
	h.writeJSON(w, r.Context(), http.StatusOK, st)
}

func (h *handler) deadLetter(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.DeadLetterItems(r.Context())
	if err != nil {
		h.fail(w, r.Context(), err)
		return
	}
	h.writeJSON(w, r.Context(), http.StatusOK, items)
}

func (h *handler) conflicts(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.ConflictedItems(r.Context())
	if err != nil {
		h.fail(w, r.Context(), err)
		return
	}
	h.writeJSON(w, r.Context(), http.StatusOK, items)
}

func (h *handler) requeue(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.svc.Requeue(r.Context(), id); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			http.Error(w, "queue item not found", http.StatusNotFound)
			return
		}
		h.fail(w, r.Context(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *handler) sync(w http.ResponseWriter, r *http.Request) {
	h.svc.TriggerSync()
	w.WriteHeader(http.StatusAccepted)
}

func (h *handler) writeJSON(w http.ResponseWriter, ctx context.Context, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error(ctx, "failed to encode response", "error", err)
	}
}

func (h *handler) fail(w http.ResponseWriter, ctx context.Context, err error) {
	h.log.Error(ctx, "status api request failed", "error", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}
