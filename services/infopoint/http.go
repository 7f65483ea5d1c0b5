package infopoint

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	scraper "infopoint-backend/lib/scrapers/infopoint"
)

func writeJson(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		slog.Warn("failed to encode response", "err", err)
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrAccountNotFound):
		writeJson(w, http.StatusNotFound, errorResponse{Error: err.Error()})
	case errors.Is(err, scraper.InvalidCredentials):
		writeJson(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	case errors.Is(err, scraper.ErrBadResponse):
		writeJson(w, http.StatusBadGateway, errorResponse{Error: err.Error()})
	default:
		writeJson(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
	}
}

// Handle registers the read API on mux. Account passwords never appear
// in any response body.
func (s *Service) Handle(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		var req RegisterAccountRequest
		err := json.NewDecoder(r.Body).Decode(&req)
		if err != nil {
			writeJson(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
			return
		}
		if req.BaseUrl == "" || req.Username == "" || req.Password == "" {
			writeJson(w, http.StatusBadRequest, errorResponse{Error: "base_url, username and password are required"})
			return
		}

		account, err := s.RegisterAccount(r.Context(), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJson(w, http.StatusCreated, account)
	})

	mux.HandleFunc("GET /api/v1/accounts", func(w http.ResponseWriter, r *http.Request) {
		writeJson(w, http.StatusOK, s.Accounts())
	})

	mux.HandleFunc("DELETE /api/v1/accounts/{id}", func(w http.ResponseWriter, r *http.Request) {
		err := s.RemoveAccount(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	mux.HandleFunc("GET /api/v1/accounts/{id}/snapshot", func(w http.ResponseWriter, r *http.Request) {
		status, err := s.Snapshot(r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJson(w, http.StatusOK, status)
	})

	mux.HandleFunc("GET /api/v1/accounts/{id}/averages", func(w http.ResponseWriter, r *http.Request) {
		series, err := s.Averages(r.Context(), r.PathValue("id"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJson(w, http.StatusOK, series)
	})

	mux.HandleFunc("POST /api/v1/accounts/{id}/refresh", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		err := s.Refresh(r.Context(), id)
		if err != nil && !errors.Is(err, ErrAccountNotFound) {
			// a failed cycle still has a servable stale snapshot,
			// report the envelope alongside the failure status
			status, statusErr := s.Snapshot(id)
			if statusErr == nil {
				writeJson(w, http.StatusBadGateway, status)
				return
			}
		}
		if err != nil {
			writeError(w, err)
			return
		}

		status, err := s.Snapshot(id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJson(w, http.StatusOK, status)
	})
}
