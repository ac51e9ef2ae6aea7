package ledger

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/clients"
	"github.com/meridian-erp/meridian-erp/internal/companies"
	"github.com/meridian-erp/meridian-erp/internal/fx"
)

// memoryBalanceRepo is an in-memory Repository. With serialize set, WithUnit
// serializes callers the way a row lock would; without it, only the
// per-client locks taken through LockClient order the writers. Nested calls
// join the outer unit.
type memoryBalanceRepo struct {
	serialize bool

	unitMu      sync.Mutex
	mu          sync.Mutex
	seq         int64
	rows        map[int64]*ClientBalance
	clientLocks map[int64]*sync.Mutex
	calls       []string
}

func newMemoryBalanceRepo() *memoryBalanceRepo {
	return &memoryBalanceRepo{
		serialize:   true,
		rows:        make(map[int64]*ClientBalance),
		clientLocks: make(map[int64]*sync.Mutex),
	}
}

type memUnitKey struct{}

// memUnit tracks the client locks a unit holds so re-acquisition inside the
// same unit is a no-op, like an advisory lock within one transaction.
type memUnit struct {
	held map[int64]bool
}

func (r *memoryBalanceRepo) WithUnit(ctx context.Context, fn func(context.Context) error) error {
	if ctx.Value(memUnitKey{}) != nil {
		return fn(ctx)
	}
	if r.serialize {
		r.unitMu.Lock()
		defer r.unitMu.Unlock()
	}
	u := &memUnit{held: make(map[int64]bool)}
	defer func() {
		r.mu.Lock()
		locks := make([]*sync.Mutex, 0, len(u.held))
		for id := range u.held {
			locks = append(locks, r.clientLocks[id])
		}
		r.mu.Unlock()
		for _, l := range locks {
			l.Unlock()
		}
	}()
	return fn(context.WithValue(ctx, memUnitKey{}, u))
}

func (r *memoryBalanceRepo) LockClient(ctx context.Context, clientID int64) error {
	r.record("lock_client")
	u, _ := ctx.Value(memUnitKey{}).(*memUnit)
	if u == nil || u.held[clientID] {
		return nil
	}
	r.mu.Lock()
	l, ok := r.clientLocks[clientID]
	if !ok {
		l = &sync.Mutex{}
		r.clientLocks[clientID] = l
	}
	r.mu.Unlock()
	l.Lock()
	u.held[clientID] = true
	return nil
}

func (r *memoryBalanceRepo) record(op string) {
	r.mu.Lock()
	r.calls = append(r.calls, op)
	r.mu.Unlock()
}

func (r *memoryBalanceRepo) callIndex(op string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, c := range r.calls {
		if c == op {
			return i
		}
	}
	return -1
}

func (r *memoryBalanceRepo) sorted() []*ClientBalance {
	out := make([]*ClientBalance, 0, len(r.rows))
	for _, b := range r.rows {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *memoryBalanceRepo) GetBalance(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.sorted() {
		if b.ClientID == clientID && b.CurrencyID == currencyID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrBalanceNotFound
}

func (r *memoryBalanceRepo) GetDefaultBalance(ctx context.Context, clientID int64) (*ClientBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows {
		if b.ClientID == clientID && b.IsDefault {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrBalanceNotFound
}

func (r *memoryBalanceRepo) ListBalances(ctx context.Context, clientID int64) ([]ClientBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []ClientBalance
	for _, b := range r.sorted() {
		if b.ClientID == clientID {
			out = append(out, *b)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].IsDefault && !out[j].IsDefault })
	return out, nil
}

func (r *memoryBalanceRepo) GetDefaultInCurrencyForUpdate(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows {
		if b.ClientID == clientID && b.CurrencyID == currencyID && b.IsDefault {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrBalanceNotFound
}

func (r *memoryBalanceRepo) GetOldestInCurrencyForUpdate(ctx context.Context, clientID, currencyID int64) (*ClientBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.sorted() {
		if b.ClientID == clientID && b.CurrencyID == currencyID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrBalanceNotFound
}

func (r *memoryBalanceRepo) GetDefaultBalanceForUpdate(ctx context.Context, clientID int64) (*ClientBalance, error) {
	r.record("get_default_for_update")
	return r.GetDefaultBalance(ctx, clientID)
}

func (r *memoryBalanceRepo) GetBalanceByIDForUpdate(ctx context.Context, id int64) (*ClientBalance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return nil, ErrBalanceNotFound
	}
	cp := *b
	return &cp, nil
}

func (r *memoryBalanceRepo) CreateBalance(ctx context.Context, balance ClientBalance) (int64, error) {
	r.record("create_balance")
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	balance.ID = r.seq
	balance.CreatedAt = time.Now()
	balance.UpdatedAt = balance.CreatedAt
	r.rows[balance.ID] = &balance
	return balance.ID, nil
}

func (r *memoryBalanceRepo) IncrementBalance(ctx context.Context, id int64, delta decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.rows[id]
	if !ok {
		return ErrBalanceNotFound
	}
	b.Balance = b.Balance.Add(delta)
	b.UpdatedAt = time.Now()
	return nil
}

func (r *memoryBalanceRepo) ClearDefaultFlags(ctx context.Context, clientID int64, excludeID *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.rows {
		if b.ClientID == clientID && b.IsDefault && (excludeID == nil || b.ID != *excludeID) {
			b.IsDefault = false
		}
	}
	return nil
}

type memoryCurrencyRepo struct {
	byID map[int64]*fx.Currency
}

func newMemoryCurrencyRepo(currencies ...*fx.Currency) *memoryCurrencyRepo {
	r := &memoryCurrencyRepo{byID: make(map[int64]*fx.Currency)}
	for _, c := range currencies {
		r.byID[c.ID] = c
	}
	return r
}

func (r *memoryCurrencyRepo) Get(ctx context.Context, id int64) (*fx.Currency, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, fx.ErrCurrencyNotFound
	}
	return c, nil
}

func (r *memoryCurrencyRepo) GetByCode(ctx context.Context, code string) (*fx.Currency, error) {
	for _, c := range r.byID {
		if c.Code == code {
			return c, nil
		}
	}
	return nil, fx.ErrCurrencyNotFound
}

func (r *memoryCurrencyRepo) GetDefault(ctx context.Context) (*fx.Currency, error) {
	for _, c := range r.byID {
		if c.IsDefault {
			return c, nil
		}
	}
	return nil, fx.ErrDefaultCurrencyNotConfigured
}

func (r *memoryCurrencyRepo) List(ctx context.Context) ([]fx.Currency, error) {
	var out []fx.Currency
	for _, c := range r.byID {
		out = append(out, *c)
	}
	return out, nil
}

type memoryClientRepo struct {
	byID map[int64]*clients.Client
}

func (r *memoryClientRepo) Get(ctx context.Context, id int64) (*clients.Client, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, clients.ErrNotFound
	}
	return c, nil
}

type memoryCompanyRepo struct {
	byID map[int64]*companies.Company
}

func (r *memoryCompanyRepo) Get(ctx context.Context, id int64) (*companies.Company, error) {
	c, ok := r.byID[id]
	if !ok {
		return nil, companies.ErrNotFound
	}
	return c, nil
}

type memoryOrderResolver struct {
	projects map[int64]int64
}

func (r *memoryOrderResolver) OrderProjectID(ctx context.Context, orderID int64) (*int64, error) {
	if id, ok := r.projects[orderID]; ok {
		return &id, nil
	}
	return nil, nil
}

type recordingInvalidator struct {
	mu    sync.Mutex
	calls [][]string
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, entities ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, entities)
}

// ledgerFixture wires the balance services against in-memory collaborators.
type ledgerFixture struct {
	repo        *memoryBalanceRepo
	currencies  *memoryCurrencyRepo
	clients     *memoryClientRepo
	companies   *memoryCompanyRepo
	orders      *memoryOrderResolver
	invalidator *recordingInvalidator
	balances    *ClientBalanceService
	service     *BalanceService
}

const (
	usdID = int64(1)
	amdID = int64(2)
	eurID = int64(3)
)

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()

	usd := &fx.Currency{ID: usdID, Code: "USD", ExchangeRate: decimal.NewFromInt(1), IsDefault: true}
	amd := &fx.Currency{ID: amdID, Code: "AMD", ExchangeRate: decimal.NewFromInt(400)}
	eur := &fx.Currency{ID: eurID, Code: "EUR", ExchangeRate: decimal.RequireFromString("0.8")}

	f := &ledgerFixture{
		repo:       newMemoryBalanceRepo(),
		currencies: newMemoryCurrencyRepo(usd, amd, eur),
		clients: &memoryClientRepo{byID: map[int64]*clients.Client{
			1: {ID: 1, Name: "Acme", Type: clients.TypeCompany, CompanyID: 10},
			2: {ID: 2, Name: "Nare", Type: clients.TypeIndividual, CompanyID: 10},
		}},
		companies: &memoryCompanyRepo{byID: map[int64]*companies.Company{
			10: {ID: 10, Name: "Meridian", RoundingEnabled: true, RoundingDecimals: 2},
		}},
		orders:      &memoryOrderResolver{projects: map[int64]int64{}},
		invalidator: &recordingInvalidator{},
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	metrics := NewMetrics(nil)
	rounding := companies.NewRoundingService(f.companies)
	f.balances = NewClientBalanceService(f.repo, f.currencies, fx.NewConverter(), rounding, logger, metrics)
	f.service = NewBalanceService(f.balances, f.repo, f.clients, f.currencies, f.orders, f.invalidator, logger, metrics)
	return f
}

func (f *ledgerFixture) seedBalance(t *testing.T, clientID, currencyID int64, amount string, isDefault bool) int64 {
	t.Helper()
	id, err := f.repo.CreateBalance(context.Background(), ClientBalance{
		ClientID:   clientID,
		CurrencyID: currencyID,
		Balance:    decimal.RequireFromString(amount),
		IsDefault:  isDefault,
	})
	if err != nil {
		t.Fatalf("seed balance: %v", err)
	}
	return id
}

func (f *ledgerFixture) balanceOf(t *testing.T, id int64) decimal.Decimal {
	t.Helper()
	b, err := f.repo.GetBalanceByIDForUpdate(context.Background(), id)
	if err != nil {
		t.Fatalf("read balance %d: %v", id, err)
	}
	return b.Balance
}

func debtIncome(clientID int64, currencyID int64, amount string) TransactionEvent {
	cid := clientID
	companyID := int64(10)
	return TransactionEvent{
		ID:         100,
		ClientID:   &cid,
		CompanyID:  &companyID,
		CurrencyID: currencyID,
		Amount:     decimal.RequireFromString(amount),
		Type:       TypeIncome,
		IsDebt:     true,
		Date:       time.Now(),
	}
}
