package auth

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// TokenResponse carries the token under both names older and newer clients read.
type TokenResponse struct {
	AccessToken string `json:"access_token,omitempty"`
	Token       string `json:"token,omitempty"`
	TokenType   string `json:"token_type"`
}

func (h *Handler) LoginJSON(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	h.login(w, r, req.Email, req.Password)
}

// LoginForm accepts the OAuth2 password form: username carries the email.
func (h *Handler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, "invalid form body")
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")
	if username == "" || password == "" {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, "username and password are required")
		return
	}
	h.login(w, r, username, password)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request, email, password string) {
	token, err := h.svc.Login(r.Context(), email, password)
	if err != nil {
		h.logger.Debugw("login failed", "err", err)
		switch {
		case errors.Is(err, user.ErrBadCredentials):
			w.Header().Set("WWW-Authenticate", "Bearer")
			utilities.WriteDetail(w, http.StatusUnauthorized, "Incorrect email or password")
		case errors.Is(err, user.ErrInactive):
			utilities.WriteDetail(w, http.StatusForbidden, "User account is deactivated")
		default:
			utilities.WriteDetail(w, http.StatusInternalServerError, "login failed")
		}
		return
	}
	utilities.WriteJSON(w, http.StatusOK, TokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	raw := BearerToken(r)
	if raw == "" {
		writeUnauthorized(w)
		return
	}
	token, err := h.svc.Refresh(r.Context(), raw)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, ErrRevoked):
			h.logger.Debugw("refresh rejected", "err", err)
			writeUnauthorized(w)
		case errors.Is(err, user.ErrInactive):
			utilities.WriteDetail(w, http.StatusForbidden, "User account is deactivated")
		default:
			h.logger.Errorw("refresh failed", "err", err)
			utilities.WriteDetail(w, http.StatusInternalServerError, "refresh failed")
		}
		return
	}
	utilities.WriteJSON(w, http.StatusOK, TokenResponse{Token: token, TokenType: "bearer"})
}

// Logout revokes the presented session. It answers 204 even for tokens that
// are unknown or already revoked.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if raw := BearerToken(r); raw != "" {
		if err := h.svc.Logout(r.Context(), raw); err != nil {
			h.logger.Warnw("logout failed", "err", err)
			utilities.WriteDetail(w, http.StatusInternalServerError, "logout failed")
			return
		}
	}
	w.WriteHeader(http.StatusNoContent)
}

// Me must run behind RequireAuth.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := UserFromContext(r.Context())
	if !ok {
		writeUnauthorized(w)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, u)
}
