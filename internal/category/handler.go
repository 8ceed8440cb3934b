package category

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

type CategoryRequest struct {
	Name string `json:"name" validate:"required,min=2,max=100"`
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		utilities.WriteDetail(w, http.StatusNotFound, "Category not found")
	case errors.Is(err, ErrDuplicate):
		utilities.WriteDetail(w, http.StatusBadRequest, "Category already exists for this user")
	default:
		h.logger.Errorw("category request failed", "err", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.List(r.Context(), auth.UserID(r.Context()))
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
	c, err := h.svc.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, c)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CategoryRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := utilities.PathID(r, "id")
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	var req CategoryRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	c, err := h.svc.Rename(r.Context(), auth.UserID(r.Context()), id, req.Name)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, c)
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
