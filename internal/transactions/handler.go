package transactions

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the transaction lifecycle over HTTP.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
	}
}

type transactionResponse struct {
	ID              int64      `json:"id"`
	Reference       uuid.UUID  `json:"reference"`
	CompanyID       *int64     `json:"company_id,omitempty"`
	ClientID        *int64     `json:"client_id,omitempty"`
	CashRegisterID  *int64     `json:"cash_register_id,omitempty"`
	CurrencyID      int64      `json:"currency_id"`
	Amount          string     `json:"amount"`
	Type            int        `json:"type"`
	IsDebt          bool       `json:"is_debt"`
	SourceKind      string     `json:"source_kind,omitempty"`
	SourceID        int64      `json:"source_id,omitempty"`
	ExchangeRate    *string    `json:"exchange_rate,omitempty"`
	CashCurrencyID  *int64     `json:"cash_currency_id,omitempty"`
	ClientBalanceID *int64     `json:"client_balance_id,omitempty"`
	Date            time.Time  `json:"date"`
	Note            *string    `json:"note,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	DeletedAt       *time.Time `json:"deleted_at,omitempty"`
}

func toTransactionResponse(t *Transaction) transactionResponse {
	resp := transactionResponse{
		ID:              t.ID,
		Reference:       t.Reference,
		CompanyID:       t.CompanyID,
		ClientID:        t.ClientID,
		CashRegisterID:  t.CashRegisterID,
		CurrencyID:      t.CurrencyID,
		Amount:          t.Amount.String(),
		Type:            int(t.Type),
		IsDebt:          t.IsDebt,
		SourceKind:      string(t.Source.Kind),
		SourceID:        t.Source.ID,
		CashCurrencyID:  t.CashCurrencyID,
		ClientBalanceID: t.ClientBalanceID,
		Date:            t.Date,
		Note:            t.Note,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
		DeletedAt:       t.DeletedAt,
	}
	if t.ExchangeRate != nil {
		rate := t.ExchangeRate.String()
		resp.ExchangeRate = &rate
	}
	return resp
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.service.Create(r.Context(), req, shared.ActorFrom(r.Context()))
	if err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			http.Error(w, "duplicate transaction reference", http.StatusConflict)
			return
		}
		h.fail(w, r, err, "create transaction failed")
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	t, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		h.fail(w, r, err, "get transaction failed")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	req := ListTransactionsRequest{Limit: 50}
	q := r.URL.Query()
	if v := q.Get("company_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid company_id", http.StatusBadRequest)
			return
		}
		req.CompanyID = &id
	}
	if v := q.Get("client_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			http.Error(w, "invalid client_id", http.StatusBadRequest)
			return
		}
		req.ClientID = &id
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			req.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			req.Offset = n
		}
	}

	list, total, err := h.service.List(r.Context(), req)
	if err != nil {
		h.fail(w, r, err, "list transactions failed")
		return
	}
	out := make([]transactionResponse, 0, len(list))
	for i := range list {
		out = append(out, toTransactionResponse(&list[i]))
	}
	writeJSON(w, http.StatusOK, map[string]any{"transactions": out, "total": total})
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req UpdateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := h.validate.Struct(req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	t, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		h.fail(w, r, err, "update transaction failed")
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	skip := r.URL.Query().Get("skip_balance_update") == "true"
	if err := h.service.Delete(r.Context(), id, skip); err != nil {
		if errors.Is(err, ErrNotFound) {
			http.Error(w, "transaction not found", http.StatusNotFound)
			return
		}
		h.fail(w, r, err, "delete transaction failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid transaction id", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, msg string) {
	if errors.Is(err, ledger.ErrConversionFailed) || errors.Is(err, ledger.ErrDefaultBalanceCurrencyMissing) {
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	}
	h.logger.Error(msg, slog.String("path", r.URL.Path), slog.Any("error", err))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
