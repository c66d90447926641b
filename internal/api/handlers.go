package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/kaigosha/sitewarden/internal/guard"
	"github.com/kaigosha/sitewarden/internal/limits"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("Failed to encode response")
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code, message string) {
	s.writeJSON(w, status, errorResponse{Error: message, Code: code})
}

// writeGuardError maps guard sentinel errors to HTTP responses.
func (s *Server) writeGuardError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, guard.ErrUnknownSite):
		s.writeError(w, http.StatusNotFound, "unknown_site", "unknown site")
	case errors.Is(err, guard.ErrInvalidSite), errors.Is(err, guard.ErrInvalidSettings),
		errors.Is(err, guard.ErrPINTooShort):
		s.writeError(w, http.StatusBadRequest, "invalid_input", err.Error())
	case errors.Is(err, guard.ErrInvalidPIN):
		s.writeError(w, http.StatusForbidden, "invalid_pin", "invalid PIN")
	case errors.Is(err, guard.ErrBreakGlassDisabled):
		s.writeError(w, http.StatusConflict, "break_glass_disabled", "break-glass is disabled")
	case errors.Is(err, guard.ErrPINNotConfigured):
		s.writeError(w, http.StatusConflict, "pin_not_configured", "break-glass PIN is not configured")
	case errors.Is(err, guard.ErrQuotaExhausted):
		s.writeError(w, http.StatusTooManyRequests, "quota_exhausted", "break-glass daily quota exhausted")
	case errors.Is(err, guard.ErrLastSite):
		s.writeError(w, http.StatusConflict, "last_site", "cannot delete the last site")
	default:
		s.logger.Error().Err(err).Msg("Internal error")
		s.writeError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// heartbeatRequest carries only the URL. Elapsed time is measured by
// the daemon from the previous heartbeat, never reported by the client.
type heartbeatRequest struct {
	URL string `json:"url"`
}

type trackedResponse struct {
	Tracked bool               `json:"tracked"`
	Status  *limits.SiteStatus `json:"status,omitempty"`
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	var req heartbeatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.URL == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "url is required")
		return
	}

	status, err := s.guard.Heartbeat(r.Context(), req.URL)
	if err != nil {
		s.writeGuardError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, trackedResponse{Tracked: status != nil, Status: status})
}

type statusResponse struct {
	Sites      []limits.SiteStatus   `json:"sites"`
	BreakGlass guard.BreakGlassState `json:"break_glass"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, statusResponse{
		Sites:      s.guard.Status(r.Context()),
		BreakGlass: s.guard.BreakGlass(),
	})
}

// handleSiteStatus serves one site's projection, addressed either by
// ?site=<id> or by ?url=<page url>.
func (s *Server) handleSiteStatus(w http.ResponseWriter, r *http.Request) {
	siteID := r.URL.Query().Get("site")
	rawURL := r.URL.Query().Get("url")

	switch {
	case siteID != "":
		status, err := s.guard.SiteStatus(r.Context(), siteID)
		if err != nil {
			s.writeGuardError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, trackedResponse{Tracked: true, Status: status})

	case rawURL != "":
		status, err := s.guard.StatusForURL(r.Context(), rawURL)
		if err != nil {
			s.writeGuardError(w, err)
			return
		}
		s.writeJSON(w, http.StatusOK, trackedResponse{Tracked: status != nil, Status: status})

	default:
		s.writeError(w, http.StatusBadRequest, "invalid_input", "site or url query parameter is required")
	}
}

type breakGlassRequest struct {
	SiteID string `json:"site_id"`
	PIN    string `json:"pin"`
}

func (s *Server) handleBreakGlass(w http.ResponseWriter, r *http.Request) {
	var req breakGlassRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SiteID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "site_id is required")
		return
	}

	status, err := s.guard.ActivateBreakGlass(r.Context(), req.SiteID, req.PIN)
	if err != nil {
		s.writeGuardError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, trackedResponse{Tracked: true, Status: status})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	token, expiresAt, err := s.auth.Login(req.Username, req.Password)
	if err != nil {
		s.writeError(w, http.StatusUnauthorized, "invalid_credentials", "invalid credentials")
		return
	}

	s.writeJSON(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

type changePasswordRequest struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.NewPassword == "" {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "new_password is required")
		return
	}

	if err := s.auth.ChangePassword(req.OldPassword, req.NewPassword); err != nil {
		s.writeError(w, http.StatusForbidden, "invalid_credentials", "invalid credentials")
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.guard.Settings())
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req guard.SettingsInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	updated, err := s.guard.UpdateSettings(r.Context(), req)
	if err != nil {
		s.writeGuardError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleAddSite(w http.ResponseWriter, r *http.Request) {
	var req guard.SiteInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	site, err := s.guard.AddSite(r.Context(), req)
	if err != nil {
		s.writeGuardError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, site)
}

func (s *Server) handleUpdateSite(w http.ResponseWriter, r *http.Request) {
	var req guard.SiteInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	site, err := s.guard.UpdateSite(r.Context(), mux.Vars(r)["id"], req)
	if err != nil {
		s.writeGuardError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, site)
}

func (s *Server) handleDeleteSite(w http.ResponseWriter, r *http.Request) {
	if err := s.guard.DeleteSite(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeGuardError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

type pinRequest struct {
	PIN string `json:"pin"`
}

func (s *Server) handleSetPIN(w http.ResponseWriter, r *http.Request) {
	var req pinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_input", "invalid request body")
		return
	}

	if err := s.guard.SetPIN(r.Context(), req.PIN); err != nil {
		s.writeGuardError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleClearPIN(w http.ResponseWriter, r *http.Request) {
	if err := s.guard.ClearPIN(r.Context()); err != nil {
		s.writeGuardError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			s.writeError(w, http.StatusBadRequest, "invalid_input", "limit must be a non-negative integer")
			return
		}
		limit = parsed
	}

	events, err := s.guard.Diagnostics(r.Context(), limit)
	if err != nil {
		s.writeGuardError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": events})
}

func (s *Server) handleClearDiagnostics(w http.ResponseWriter, r *http.Request) {
	if err := s.guard.ClearDiagnostics(r.Context()); err != nil {
		s.writeGuardError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "cleared"})
}
