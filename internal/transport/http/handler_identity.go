package httptransport

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	appidentity "holdem-tables/internal/app/identity"
	"holdem-tables/internal/session"

	"github.com/go-chi/chi/v5"
)

type IdentityHandlers struct {
	svc *appidentity.Service
}

func NewIdentityHandlers(svc *appidentity.Service) *IdentityHandlers {
	return &IdentityHandlers{svc: svc}
}

type registerRequest struct {
	Nickname string `json:"nickname"`
}

// Register mints an identity. An empty body is accepted and gets a
// generated nickname.
func (h *IdentityHandlers) Register() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.Register(req.Nickname)
		if err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		}
		metricIdentitiesCreated.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// Rename changes the display nickname of an existing identity.
func (h *IdentityHandlers) Rename() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
			WriteHTTPError(w, http.StatusBadRequest, "invalid_json")
			return
		}
		resp, err := h.svc.Rename(chi.URLParam(r, "identity_id"), req.Nickname)
		switch {
		case errors.Is(err, appidentity.ErrInvalidRequest):
			WriteHTTPError(w, http.StatusBadRequest, "invalid_request")
			return
		case errors.Is(err, session.ErrIdentityNotFound):
			WriteHTTPError(w, http.StatusNotFound, session.ErrIdentityNotFound.Error())
			return
		case err != nil:
			WriteHTTPError(w, http.StatusInternalServerError, "internal_error")
			return
		}
		writeJSON(w, resp)
	}
}
