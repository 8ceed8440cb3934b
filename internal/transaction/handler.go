package transaction

import (
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-finance-go/internal/auth"
	"github.com/ovaphlow/pitchfork/service-finance-go/internal/transaction/entity"
	"github.com/ovaphlow/pitchfork/service-finance-go/pkg/utilities"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Amount accepts "45.80"; the date is YYYY-MM-DD.
type CreateRequest struct {
	ExpenseID       int64       `json:"expense_id" validate:"required,gt=0"`
	Amount          string      `json:"amount" validate:"required"`
	Description     *string     `json:"description" validate:"omitempty,max=500"`
	TransactionDate entity.Date `json:"transaction_date"`
}

type UpdateRequest struct {
	Amount          *string      `json:"amount"`
	Description     *string      `json:"description" validate:"omitempty,max=500"`
	TransactionDate *entity.Date `json:"transaction_date"`
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		utilities.WriteDetail(w, http.StatusNotFound, "Transaction not found")
	case errors.Is(err, ErrExpenseNotFound):
		utilities.WriteDetail(w, http.StatusBadRequest, "Expense not found for this user")
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidRange):
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Errorw("transaction request failed", "err", err)
		utilities.WriteDetail(w, http.StatusInternalServerError, "internal error")
	}
}

func parseFilter(r *http.Request) (entity.Filter, error) {
	var f entity.Filter
	var err error
	if f.ExpenseID, err = utilities.QueryInt64(r, "expense_id"); err != nil {
		return f, err
	}
	if f.CategoryID, err = utilities.QueryInt64(r, "category_id"); err != nil {
		return f, err
	}
	q := r.URL.Query()
	for name, dst := range map[string]**entity.Date{"start_date": &f.StartDate, "end_date": &f.EndDate} {
		if v := q.Get(name); v != "" {
			d, err := entity.ParseDate(v)
			if err != nil {
				return f, errors.New("invalid " + name)
			}
			*dst = &d
		}
	}
	for name, dst := range map[string]*int{"skip": &f.Skip, "limit": &f.Limit} {
		if v := q.Get(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return f, errors.New("invalid " + name)
			}
			*dst = n
		}
	}
	return f, nil
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r)
	if err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	out, err := h.svc.List(r.Context(), auth.UserID(r.Context()), f)
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
	t, err := h.svc.Get(r.Context(), auth.UserID(r.Context()), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, t)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := utilities.DecodeJSON(r, &req); err != nil {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if req.TransactionDate.IsZero() {
		utilities.WriteDetail(w, http.StatusUnprocessableEntity, "transaction_date is required")
		return
	}
	t, err := h.svc.Create(r.Context(), auth.UserID(r.Context()), Input{
		ExpenseID:       req.ExpenseID,
		Amount:          req.Amount,
		Description:     req.Description,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusCreated, t)
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
	t, err := h.svc.Update(r.Context(), auth.UserID(r.Context()), id, Patch{
		Amount:          req.Amount,
		Description:     req.Description,
		TransactionDate: req.TransactionDate,
	})
	if err != nil {
		h.fail(w, err)
		return
	}
	utilities.WriteJSON(w, http.StatusOK, t)
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
