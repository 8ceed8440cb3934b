package expense

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type CreateRequest struct {
	Name       string `json:"name" validate:"required,min=2,max=100"`
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
}

type UpdateRequest struct {
	Name       *string `json:"name" validate:"omitempty,min=2,max=100"`
	CategoryID *int64  `json:"category_id" validate:"omitempty,gt=0"`
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		utilities.WriteDetail(w, http.StatusNotFound, "Expense not found")
	case errors.Is(err, ErrDuplicate):
		utilities.WriteDetail(w, http.StatusBadRequest, "Expense already exists in this category for this user")
	case errors.Is(err, ErrCategoryNotFound):
		utilities.WriteDetail(w, http.StatusBadRequest, "Category not found for this user")
	default:
		h.logger.Errorw("expense request failed", "err", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	categoryID, err := utilities.QueryInt64(r, "category_id")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	out, err := h.svc.List(r.Context(), auth.UserID(r.Context()), categoryID)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := utilities.PathID(r, "id")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	e, err := h.svc.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	e, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), req.CategoryID, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, e)
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
	e, err := h.svc.Update(r.Context(), auth.UserID(r.Context()), id, Patch{Name: req.Name, CategoryID: req.CategoryID})
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, e)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := utilities.PathID(r, "id")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.Delete(r.Context(), auth.UserID(r.Context()), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
