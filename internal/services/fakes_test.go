package services

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/aolagbe/vtuwallet/internal/gateway"
	"github.com/aolagbe/vtuwallet/internal/models"
	repo "github.com/aolagbe/vtuwallet/internal/repository"
	"github.com/google/uuid"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// memStore is an in-memory stand-in for the Postgres repositories. It
// mirrors their atomicity: one mutex guards every read-decide-write.
type memStore struct {
	mu       sync.Mutex
	wallets  map[string]*models.Wallet
	entries  []models.LedgerEntry
	payments map[string]*models.Payment
	ghosts   map[string]*models.GhostWallet
	audits   []models.AuditLog

	// failCredit, when set, makes wallet credits fail to simulate the
	// store being unavailable mid-settlement.
	failCredit error
}

func newMemStore() *memStore {
	return &memStore{
		wallets:  map[string]*models.Wallet{},
		payments: map[string]*models.Payment{},
		ghosts:   map[string]*models.GhostWallet{},
	}
}

func (m *memStore) setFailCredit(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCredit = err
}

func (m *memStore) walletLocked(userID string) *models.Wallet {
	w, ok := m.wallets[userID]
	if !ok {
		w = &models.Wallet{UserID: userID, CreatedAt: time.Now()}
		m.wallets[userID] = w
	}
	return w
}

// --- repo.Wallets ---

func (m *memStore) Ensure(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.walletLocked(userID)
	return nil
}

func (m *memStore) Get(_ context.Context, userID string) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w, ok := m.wallets[userID]
	if !ok {
		return models.Wallet{}, repo.ErrNotFound
	}
	return *w, nil
}

func (m *memStore) Credit(_ context.Context, p repo.CreditParams) (models.Wallet, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failCredit != nil {
		return models.Wallet{}, false, m.failCredit
	}
	w := m.walletLocked(p.UserID)
	if p.ExternalRef != "" {
		for _, e := range m.entries {
			if e.Direction == models.DirCredit && e.ExternalRef != nil && *e.ExternalRef == p.ExternalRef {
				return *w, false, nil
			}
		}
	}
	m.addLocked(w, p.WalletType, p.Amount)
	entry := models.LedgerEntry{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		WalletType:  p.WalletType,
		Direction:   models.DirCredit,
		Amount:      p.Amount,
		Description: p.Description,
		CreatedAt:   time.Now(),
	}
	if p.ExternalRef != "" {
		ref := p.ExternalRef
		entry.ExternalRef = &ref
	}
	m.entries = append(m.entries, entry)
	return *w, true, nil
}

func (m *memStore) Debit(_ context.Context, p repo.DebitParams) (models.Wallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	w := m.walletLocked(p.UserID)
	if w.Balance(p.WalletType) < p.Amount {
		return models.Wallet{}, repo.ErrInsufficientBalance
	}
	m.addLocked(w, p.WalletType, -p.Amount)
	m.entries = append(m.entries, models.LedgerEntry{
		ID:          uuid.NewString(),
		UserID:      p.UserID,
		WalletType:  p.WalletType,
		Direction:   models.DirDebit,
		Amount:      p.Amount,
		Description: p.Description,
		CreatedAt:   time.Now(),
	})
	return *w, nil
}

func (m *memStore) addLocked(w *models.Wallet, wt models.WalletType, delta int64) {
	switch wt {
	case models.WalletCashback:
		w.CashbackBalance += delta
	case models.WalletReferral:
		w.ReferralBalance += delta
	default:
		w.MainBalance += delta
	}
	w.UpdatedAt = time.Now()
}

// --- repo.Ledger ---

func (m *memStore) HasCreditWithRef(_ context.Context, ref string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.entries {
		if e.Direction == models.DirCredit && e.ExternalRef != nil && *e.ExternalRef == ref {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) ListByUser(_ context.Context, userID string, limit, offset int) ([]models.LedgerEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.LedgerEntry
	for _, e := range m.entries {
		if e.UserID == userID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memStore) creditEntriesWithRef(ref string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, e := range m.entries {
		if e.Direction == models.DirCredit && e.ExternalRef != nil && *e.ExternalRef == ref {
			n++
		}
	}
	return n
}

// --- repo.Payments ---

func (m *memStore) getPayment(_ context.Context, txRef string) (models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok {
		return models.Payment{}, repo.ErrNotFound
	}
	return *p, nil
}

type memPayments struct{ *memStore }

func (m memPayments) Get(ctx context.Context, txRef string) (models.Payment, error) {
	return m.getPayment(ctx, txRef)
}

func (m memPayments) Create(_ context.Context, p models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[p.TxRef]; ok {
		return nil
	}
	p.CreatedAt = time.Now()
	m.payments[p.TxRef] = &p
	return nil
}

func (m memPayments) Claim(_ context.Context, txRef, userID string, amount int64) (repo.ClaimOutcome, models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok {
		p = &models.Payment{TxRef: txRef, UserID: userID, Amount: amount, Status: models.PaymentPending, CreatedAt: time.Now()}
		m.payments[txRef] = p
	}
	switch string(p.Status) {
	case string(models.PaymentSuccess), "completed", string(models.PaymentProcessingCredit):
		return repo.ClaimAlreadyProcessed, *p, nil
	case string(models.PaymentFailed):
		return repo.ClaimRefusedFailed, *p, nil
	}
	p.Status = models.PaymentProcessingCredit
	return repo.ClaimAcquired, *p, nil
}

func (m memPayments) Finalize(_ context.Context, txRef string, amountPaid int64, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	p.Status = models.PaymentSuccess
	p.AmountPaid = amountPaid
	p.ProviderResponse = raw
	p.VerifiedAt = &now
	p.Notes = ""
	return nil
}

func (m memPayments) Release(_ context.Context, txRef, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok || p.Status != models.PaymentProcessingCredit {
		return nil
	}
	p.Status = models.PaymentPending
	p.Notes = note
	return nil
}

func (m memPayments) MarkFailed(_ context.Context, txRef, userID string, amount int64, raw []byte, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok {
		p = &models.Payment{TxRef: txRef, UserID: userID, Amount: amount, CreatedAt: time.Now()}
		m.payments[txRef] = p
	}
	switch string(p.Status) {
	case string(models.PaymentSuccess), "completed", string(models.PaymentProcessingCredit):
		return nil
	}
	p.Status = models.PaymentFailed
	p.ProviderResponse = raw
	p.Notes = note
	return nil
}

func (m memPayments) MarkReconciled(_ context.Context, txRef, userID string, amountPaid int64, raw []byte, note string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[txRef]
	if !ok {
		p = &models.Payment{TxRef: txRef, CreatedAt: time.Now()}
		m.payments[txRef] = p
	}
	now := time.Now()
	p.UserID = userID
	p.Status = models.PaymentSuccess
	p.AmountPaid = amountPaid
	p.ProviderResponse = raw
	p.Notes = note
	if p.VerifiedAt == nil {
		p.VerifiedAt = &now
	}
	p.ReconciledAt = &now
	return nil
}

func (m memPayments) ListStalePending(_ context.Context, olderThan time.Duration, limit int) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []models.Payment
	for _, p := range m.payments {
		if p.Status == models.PaymentPending && p.CreatedAt.Before(cutoff) {
			out = append(out, *p)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// --- repo.GhostWallets ---

type memGhosts struct{ *memStore }

func (m memGhosts) ListUnmigrated(_ context.Context, limit, offset int) ([]models.GhostWallet, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var all []models.GhostWallet
	for _, g := range m.ghosts {
		if !g.Migrated && g.MainBalance > 0 {
			all = append(all, *g)
		}
	}
	if offset >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m memGhosts) MarkMigrated(_ context.Context, email, migratedTo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.ghosts[email]
	if !ok {
		return repo.ErrNotFound
	}
	now := time.Now()
	g.MainBalance = 0
	g.Migrated = true
	g.MigratedTo = &migratedTo
	g.MigratedAt = &now
	return nil
}

// --- repo.AuditLogs ---

type memAudits struct{ *memStore }

func (m memAudits) Create(_ context.Context, l models.AuditLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.audits = append(m.audits, l)
	return nil
}

// --- gateway fake ---

type fakeGateway struct {
	mu      sync.Mutex
	results map[string]gateway.VerificationResult
	errs    map[string]error
	calls   int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		results: map[string]gateway.VerificationResult{},
		errs:    map[string]error{},
	}
}

func (g *fakeGateway) set(ref string, r gateway.VerificationResult) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.results[ref] = r
}

func (g *fakeGateway) setErr(ref string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.errs[ref] = err
}

func (g *fakeGateway) lookup(key string) (gateway.VerificationResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if err, ok := g.errs[key]; ok {
		return gateway.VerificationResult{}, err
	}
	if r, ok := g.results[key]; ok {
		return r, nil
	}
	return gateway.VerificationResult{}, gateway.ErrInvalidReference
}

func (g *fakeGateway) VerifyByReference(_ context.Context, ref string) (gateway.VerificationResult, error) {
	return g.lookup(ref)
}

func (g *fakeGateway) VerifyByID(_ context.Context, id int64) (gateway.VerificationResult, error) {
	return g.lookup("id:" + strconv.FormatInt(id, 10))
}

// --- identity fake ---

type fakeResolver struct {
	byEmail map[string]string
}

func (r *fakeResolver) FindUserIDByEmail(_ context.Context, email string) (string, error) {
	if id, ok := r.byEmail[email]; ok {
		return id, nil
	}
	return "", repo.ErrNotFound
}

func (r *fakeResolver) Exists(_ context.Context, userID string) (bool, error) {
	return true, nil
}

// --- wiring helpers ---

type fixture struct {
	store     *memStore
	gw        *fakeGateway
	wallet    *WalletService
	settle    *SettlementService
	reconcile *ReconcileService
	resolver  *fakeResolver
}

func newFixture() *fixture {
	store := newMemStore()
	gw := newFakeGateway()
	log := discardLogger()
	resolver := &fakeResolver{byEmail: map[string]string{}}

	wallet := NewWalletService(store, store, memAudits{store}, log)
	settle := NewSettlementService(memPayments{store}, wallet, gw, memAudits{store}, log)
	reconcile := NewReconcileService(memPayments{store}, store, memGhosts{store}, wallet, gw, resolver, memAudits{store}, log)

	return &fixture{store: store, gw: gw, wallet: wallet, settle: settle, reconcile: reconcile, resolver: resolver}
}
