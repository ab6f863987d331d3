package httptransport

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	apppublic "holdem-tables/internal/app/public"
	"holdem-tables/internal/notify"
	"holdem-tables/internal/session"

	"github.com/go-chi/chi/v5"
)

var ssePingInterval = 15 * time.Second

type PublicHandlers struct {
	publicSvc *apppublic.Service
	hub       *notify.Hub
}

func NewPublicHandlers(publicSvc *apppublic.Service, hub *notify.Hub) *PublicHandlers {
	return &PublicHandlers{publicSvc: publicSvc, hub: hub}
}

func (h *PublicHandlers) Tables() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.publicSvc.Tables(r.Context())
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, resp)
	}
}

func (h *PublicHandlers) TableSnapshot() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, ok := tableIDParam(w, r)
		if !ok {
			return
		}
		snap, err := h.publicSvc.TableSnapshot(r.Context(), tableID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, snap)
	}
}

func (h *PublicHandlers) TableActions() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, ok := tableIDParam(w, r)
		if !ok {
			return
		}
		hand := 0
		if v := r.URL.Query().Get("hand_number"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 1 {
				WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
				return
			}
			hand = n
		}
		metricActionQueriesTotal.Add(1)
		resp, err := h.publicSvc.Actions(r.Context(), tableID, hand, ParseLimit(r))
		if err != nil {
			metricActionQueriesErrors.Add(1)
			writeDomainError(w, err)
			return
		}
		writeJSON(w, resp)
	}
}

// TableEvents streams the table's public events as SSE, replaying what the
// buffer still holds after Last-Event-ID.
func (h *PublicHandlers) TableEvents() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tableID, ok := tableIDParam(w, r)
		if !ok {
			return
		}
		if _, err := h.publicSvc.TableSnapshot(r.Context(), tableID); err != nil {
			writeDomainError(w, err)
			return
		}
		flusher, ok := w.(http.Flusher)
		if !ok {
			WriteHTTPError(w, http.StatusInternalServerError, "streaming_unsupported")
			return
		}
		buf := h.hub.Buffer(tableID)
		notify.SetSSEHeaders(w)
		w.WriteHeader(http.StatusOK)

		metricSSEConnectionsTotal.Add(1)
		metricSSEConnectionsActive.Add(1)
		defer metricSSEConnectionsActive.Add(-1)

		replay, ch := buf.SubscribeAfter(r.Header.Get("Last-Event-ID"))
		defer buf.Unsubscribe(ch)
		for _, ev := range replay {
			if err := notify.WriteSSE(w, ev); err != nil {
				return
			}
		}
		flusher.Flush()

		ticker := time.NewTicker(ssePingInterval)
		defer ticker.Stop()
		for {
			select {
			case <-r.Context().Done():
				return
			case ev, ok := <-ch:
				if !ok {
					return
				}
				if err := notify.WriteSSE(w, ev); err != nil {
					return
				}
				flusher.Flush()
			case <-ticker.C:
				now := time.Now().UnixMilli()
				ping := notify.StreamEvent{Event: "ping", TableID: tableID, ServerTS: now, Data: map[string]any{"ts": now}}
				if err := notify.WriteSSE(w, ping); err != nil {
					return
				}
				flusher.Flush()
			}
		}
	}
}

func (h *PublicHandlers) IdentityLocation() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp, err := h.publicSvc.IdentityLocation(chi.URLParam(r, "identity_id"))
		if err != nil {
			if errors.Is(err, session.ErrIdentityNotFound) {
				WriteHTTPError(w, http.StatusNotFound, session.ErrIdentityNotFound.Error())
				return
			}
			writeDomainError(w, err)
			return
		}
		writeJSON(w, resp)
	}
}

func tableIDParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "table_id"))
	if err != nil || id <= 0 {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeDomainError(w http.ResponseWriter, err error) {
	if errors.Is(err, apppublic.ErrInvalidRequest) {
		WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	status, code := session.MapHTTPError(err)
	WriteHTTPError(w, status, code)
}
