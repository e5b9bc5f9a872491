package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"serviceinfo/internal/config"
	"serviceinfo/internal/i18n"
	"serviceinfo/internal/middleware"
	"serviceinfo/internal/services"

	"go.uber.org/zap"
)

const refreshCookie = "refresh_token"

type AuthHandler struct {
	authSvc *services.AuthService
	logr    *zap.Logger
	cfg     *config.Config
}

func NewAuthHandler(svc *services.AuthService, logr *zap.Logger, cfg *config.Config) *AuthHandler {
	return &AuthHandler{authSvc: svc, logr: logr, cfg: cfg}
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, session *services.Session) {
	h.setRefreshCookie(w, session.RefreshToken, session.RefreshExp)
	writeJSON(w, http.StatusOK, session)
}

// POST /auth/login
func (h *AuthHandler) LoginLocal(w http.ResponseWriter, r *http.Request) {
	var req services.LoginInput
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.authSvc.LoginLocal(r.Context(), req)
	if err != nil {
		h.logr.Debug("local login failed", zap.Error(err), zap.String("email", req.Email))
		writeError(w, h.logr, err)
		return
	}
	h.writeSession(w, session)
}

// POST /auth/login/ldap
func (h *AuthHandler) LoginLDAP(w http.ResponseWriter, r *http.Request) {
	var req services.LDAPLoginInput
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.authSvc.LoginLDAP(r.Context(), req)
	if err != nil {
		h.logr.Warn("ldap login failed", zap.Error(err), zap.String("username", req.Username))
		writeError(w, h.logr, err)
		return
	}
	h.writeSession(w, session)
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token,omitempty"`
}

// POST /auth/refresh (reads the refresh token from the cookie or the body)
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshReq
	_ = json.NewDecoder(r.Body).Decode(&req)

	// prefer cookie if present
	if cookie, err := r.Cookie(refreshCookie); err == nil && cookie.Value != "" {
		req.RefreshToken = cookie.Value
	}
	if req.RefreshToken == "" {
		writeJSON(w, http.StatusBadRequest, map[string][]string{"refresh_token": {"This field may not be blank."}})
		return
	}

	pair, err := h.authSvc.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		h.logr.Debug("refresh failed", zap.Error(err))
		writeError(w, h.logr, err)
		return
	}
	h.setRefreshCookie(w, pair.RefreshToken, pair.RefreshExp)
	writeJSON(w, http.StatusOK, pair)
}

// POST /auth/logout revokes every token of the caller.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())
	if err := h.authSvc.Logout(r.Context(), userID); err != nil {
		writeError(w, h.logr, err)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     refreshCookie,
		Value:    "",
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   true,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

type activateReq struct {
	ActivationKey string `json:"activation_key"`
}

// POST /auth/activate
func (h *AuthHandler) Activate(w http.ResponseWriter, r *http.Request) {
	var req activateReq
	if !decodeJSON(w, r, &req) {
		return
	}
	session, err := h.authSvc.Activate(r.Context(), req.ActivationKey)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	h.writeSession(w, session)
}

// POST /auth/resend-activation
func (h *AuthHandler) ResendActivation(w http.ResponseWriter, r *http.Request) {
	var req services.ResendActivationInput
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.authSvc.ResendActivation(r.Context(), req); err != nil {
		writeError(w, h.logr, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"email": req.Email})
}

// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserIDFrom(r.Context())
	user, provider, err := h.authSvc.Me(r.Context(), userID)
	if err != nil {
		writeError(w, h.logr, err)
		return
	}
	resp := map[string]any{"user": user, "provider": nil}
	if provider != nil {
		p := presenter{siteURL: h.cfg.SiteURL, locale: i18n.FromContext(r.Context())}
		resp["provider"] = p.provider(provider)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) setRefreshCookie(w http.ResponseWriter, token string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     refreshCookie,
		Value:    token,
		Expires:  expires,
		HttpOnly: true,
		Secure:   h.cfg.Environment == "production",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
	}
	http.SetCookie(w, cookie)
}
