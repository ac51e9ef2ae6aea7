package ledger

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/fx"
)

// Handler exposes read access to client balances.
type Handler struct {
	logger     *slog.Logger
	balances   *ClientBalanceService
	currencies fx.Repository
}

func NewHandler(logger *slog.Logger, balances *ClientBalanceService, currencies fx.Repository) *Handler {
	return &Handler{logger: logger, balances: balances, currencies: currencies}
}

type balanceResponse struct {
	ID         int64   `json:"id"`
	ClientID   int64   `json:"client_id"`
	CurrencyID int64   `json:"currency_id"`
	Balance    string  `json:"balance"`
	IsDefault  bool    `json:"is_default"`
	Note       *string `json:"note,omitempty"`
}

func toBalanceResponse(b ClientBalance) balanceResponse {
	return balanceResponse{
		ID:         b.ID,
		ClientID:   b.ClientID,
		CurrencyID: b.CurrencyID,
		Balance:    b.Balance.String(),
		IsDefault:  b.IsDefault,
		Note:       b.Note,
	}
}

// List returns every balance of a client, default first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	clientID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}

	balances, err := h.balances.ListBalances(r.Context(), clientID)
	if err != nil {
		h.logger.Error("list balances failed", slog.Int64("client_id", clientID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	out := make([]balanceResponse, 0, len(balances))
	for _, b := range balances {
		out = append(out, toBalanceResponse(b))
	}
	writeJSON(w, http.StatusOK, map[string]any{"balances": out})
}

// Show returns one balance: the default-flagged row, or the row matching the
// currency query parameter.
func (h *Handler) Show(w http.ResponseWriter, r *http.Request) {
	clientID, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid client id", http.StatusBadRequest)
		return
	}

	var currency *fx.Currency
	if code := r.URL.Query().Get("currency"); code != "" {
		if !fx.ValidCode(code) {
			http.Error(w, "invalid currency code", http.StatusBadRequest)
			return
		}
		currency, err = h.currencies.GetByCode(r.Context(), code)
		if err != nil {
			if errors.Is(err, fx.ErrCurrencyNotFound) {
				http.Error(w, "unknown currency", http.StatusNotFound)
				return
			}
			h.logger.Error("resolve currency failed", slog.String("code", code), slog.Any("error", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
	}

	balance, err := h.balances.GetBalance(r.Context(), clientID, currency)
	if err != nil {
		if errors.Is(err, ErrBalanceNotFound) {
			http.Error(w, "balance not found", http.StatusNotFound)
			return
		}
		h.logger.Error("get balance failed", slog.Int64("client_id", clientID), slog.Any("error", err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toBalanceResponse(*balance))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
