package user

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/user/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

// Handler exposes HTTP endpoints for registration and user management.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// RegisterRequest request body for the register endpoint.
type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=100"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u, err := h.svc.Register(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrEmailTaken) {
			utilities.WriteDetail(w, http.StatusBadRequest, "Email already registered")
			return
		}
		h.logger.Warnw("register failed", "err", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "register failed")
		return
	}
	h.logger.Infow("user registered", "user_id", u.ID)
	utilities.WriteJSON(w, http.StatusCreated, u)
}

// UpdateRequest carries the optional fields of PUT /users/{id}.
type UpdateRequest struct {
	Name     *string `json:"name" validate:"omitempty,min=2,max=100"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=6,max=100"`
	Role     *string `json:"role" validate:"omitempty,oneof=user moderator admin"`
	IsActive *bool   `json:"is_active"`
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUserNotFound):
		utilities.WriteDetail(w, http.StatusNotFound, "User not found")
	case errors.Is(err, ErrEmailTaken):
		utilities.WriteDetail(w, http.StatusBadRequest, "Email already registered")
	case errors.Is(err, ErrInvalidRole):
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Errorw("user request failed", "err", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
	}
}

// List serves GET /users?skip=&limit=.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	skip, err := utilities.QueryInt64(r, "skip")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	limit, err := utilities.QueryInt64(r, "limit")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	out, err := h.svc.List(r.Context(), int(skip), int(limit))
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

// Get serves GET /users/{id}; users may read themselves, admins anyone.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := utilities.PathID(r, "id")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	me, ok := FromContext(r.Context())
	if !ok || (me.ID != id && !me.HasRole(entity.RoleAdmin)) {
		utilities.WriteDetail(w, http.StatusForbidden, "Not enough permissions")
		return
	}
	u, err := h.svc.GetByID(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := utilities.PathID(r, "id")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var req UpdateRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	u, err := h.svc.Update(r.Context(), id, Patch{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		IsActive: req.IsActive,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Infow("user updated", "user_id", u.ID)
	utilities.WriteJSON(w, http.StatusOK, u)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := utilities.PathID(r, "id")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if me, ok := FromContext(r.Context()); ok && me.ID == id {
		utilities.WriteDetail(w, http.StatusBadRequest, "Cannot delete your own account")
		return
	}
	if err := h.svc.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	h.logger.Infow("user deleted", "user_id", id)
	w.WriteHeader(http.StatusNoContent)
}
