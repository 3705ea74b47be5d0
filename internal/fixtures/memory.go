// Package fixtures provides in-memory test doubles for the repository and
// provider contracts. MemoryUoW emulates transactional semantics with a
// snapshot-and-restore around Do, so tests can assert that failed operations
// leave no partial state.
package fixtures

import (
	"context"
	"sync"
	"time"

	"github.com/amirasaad/tradelens/pkg/domain"
	"github.com/amirasaad/tradelens/pkg/domain/analysis"
	"github.com/amirasaad/tradelens/pkg/domain/credit"
	"github.com/amirasaad/tradelens/pkg/domain/knowledge"
	"github.com/amirasaad/tradelens/pkg/domain/user"
	"github.com/amirasaad/tradelens/pkg/repository"
	"github.com/google/uuid"
)

// MemoryUoW is an in-memory repository.UnitOfWork. All state is guarded by
// one mutex held for the duration of Do, which gives the per-account
// serializability the real store provides with row-level guards.
type MemoryUoW struct {
	mu sync.Mutex

	accounts  map[uuid.UUID]*credit.Account // by account id
	byUser    map[uuid.UUID]uuid.UUID       // user id -> account id
	txs       []*credit.Transaction
	sessions  map[uuid.UUID]*analysis.Session
	records   []*analysis.Record
	users     map[uuid.UUID]*user.User
	knowledge []*knowledge.Entry
	feedback  []*knowledge.Feedback

	// FailNextTxCreate forces the next transaction insert to fail, for
	// atomicity tests.
	FailNextTxCreate error

	inDo bool
}

var _ repository.UnitOfWork = (*MemoryUoW)(nil)

// NewMemoryUoW creates an empty in-memory unit of work.
func NewMemoryUoW() *MemoryUoW {
	return &MemoryUoW{
		accounts: make(map[uuid.UUID]*credit.Account),
		byUser:   make(map[uuid.UUID]uuid.UUID),
		sessions: make(map[uuid.UUID]*analysis.Session),
		users:    make(map[uuid.UUID]*user.User),
	}
}

type snapshot struct {
	accounts  map[uuid.UUID]*credit.Account
	byUser    map[uuid.UUID]uuid.UUID
	txs       []*credit.Transaction
	sessions  map[uuid.UUID]*analysis.Session
	records   []*analysis.Record
	users     map[uuid.UUID]*user.User
	knowledge []*knowledge.Entry
	feedback  []*knowledge.Feedback
}

func (m *MemoryUoW) snapshot() snapshot {
	s := snapshot{
		accounts: make(map[uuid.UUID]*credit.Account, len(m.accounts)),
		byUser:   make(map[uuid.UUID]uuid.UUID, len(m.byUser)),
		sessions: make(map[uuid.UUID]*analysis.Session, len(m.sessions)),
		users:    make(map[uuid.UUID]*user.User, len(m.users)),
	}
	for k, v := range m.accounts {
		cp := *v
		s.accounts[k] = &cp
	}
	for k, v := range m.byUser {
		s.byUser[k] = v
	}
	for k, v := range m.sessions {
		cp := *v
		s.sessions[k] = &cp
	}
	for k, v := range m.users {
		cp := *v
		s.users[k] = &cp
	}
	s.txs = append(s.txs, m.txs...)
	s.records = append(s.records, m.records...)
	s.knowledge = append(s.knowledge, m.knowledge...)
	s.feedback = append(s.feedback, m.feedback...)
	return s
}

func (m *MemoryUoW) restore(s snapshot) {
	m.accounts = s.accounts
	m.byUser = s.byUser
	m.txs = s.txs
	m.sessions = s.sessions
	m.records = s.records
	m.users = s.users
	m.knowledge = s.knowledge
	m.feedback = s.feedback
}

// Do runs fn under the store lock, rolling state back if fn errors.
// Nested Do calls join the outer transaction, matching gorm's behavior
// with SkipDefaultTransaction inside an open transaction.
func (m *MemoryUoW) Do(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	if m.inDo {
		return fn(m)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inDo = true
	defer func() { m.inDo = false }()

	snap := m.snapshot()
	if err := fn(m); err != nil {
		m.restore(snap)
		return err
	}
	return nil
}

func (m *MemoryUoW) CreditAccountRepository() (repository.CreditAccountRepository, error) {
	return (*memAccounts)(m), nil
}

func (m *MemoryUoW) CreditTransactionRepository() (repository.CreditTransactionRepository, error) {
	return (*memTxs)(m), nil
}

func (m *MemoryUoW) AnalysisSessionRepository() (repository.AnalysisSessionRepository, error) {
	return (*memSessions)(m), nil
}

func (m *MemoryUoW) AnalysisRecordRepository() (repository.AnalysisRecordRepository, error) {
	return (*memRecords)(m), nil
}

func (m *MemoryUoW) UserRepository() (repository.UserRepository, error) {
	return (*memUsers)(m), nil
}

func (m *MemoryUoW) KnowledgeRepository() (repository.KnowledgeRepository, error) {
	return (*memKnowledge)(m), nil
}

// Accounts returns a copy of all credit accounts, for assertions.
func (m *MemoryUoW) Accounts() []*credit.Account {
	out := make([]*credit.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		cp := *a
		out = append(out, &cp)
	}
	return out
}

// Transactions returns a copy of all ledger transactions, for assertions.
func (m *MemoryUoW) Transactions() []*credit.Transaction {
	out := make([]*credit.Transaction, 0, len(m.txs))
	for _, tx := range m.txs {
		cp := *tx
		out = append(out, &cp)
	}
	return out
}

// Records returns all persisted analysis records, for assertions.
func (m *MemoryUoW) AnalysisRecords() []*analysis.Record {
	out := make([]*analysis.Record, 0, len(m.records))
	for _, r := range m.records {
		cp := *r
		out = append(out, &cp)
	}
	return out
}

// Feedback returns all recorded retrieval feedback, for assertions.
func (m *MemoryUoW) Feedback() []*knowledge.Feedback {
	out := make([]*knowledge.Feedback, 0, len(m.feedback))
	for _, f := range m.feedback {
		cp := *f
		out = append(out, &cp)
	}
	return out
}

// SeedUser inserts a user directly.
func (m *MemoryUoW) SeedUser(u *user.User) {
	cp := *u
	m.users[u.ID] = &cp
}

// SeedKnowledge inserts a knowledge entry directly, returning its id.
func (m *MemoryUoW) SeedKnowledge(category, content string, embedding []float32) uuid.UUID {
	e := &knowledge.Entry{
		ID:        uuid.New(),
		Category:  category,
		Content:   content,
		Embedding: embedding,
		CreatedAt: time.Now().UTC(),
	}
	m.knowledge = append(m.knowledge, e)
	return e.ID
}

// SeedSession inserts a session directly.
func (m *MemoryUoW) SeedSession(s *analysis.Session) {
	cp := *s
	m.sessions[s.ID] = &cp
}

type memAccounts MemoryUoW

func (m *memAccounts) GetOrCreate(ctx context.Context, userID uuid.UUID) (*credit.Account, error) {
	if id, ok := m.byUser[userID]; ok {
		cp := *m.accounts[id]
		return &cp, nil
	}
	acct := &credit.Account{
		ID:        uuid.New(),
		UserID:    userID,
		Balance:   0,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	m.accounts[acct.ID] = acct
	m.byUser[userID] = acct.ID
	cp := *acct
	return &cp, nil
}

func (m *memAccounts) DebitGuarded(ctx context.Context, accountID uuid.UUID, amount int64) (bool, error) {
	acct, ok := m.accounts[accountID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if acct.Balance < amount {
		return false, nil
	}
	acct.Balance -= amount
	acct.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (m *memAccounts) Credit(ctx context.Context, accountID uuid.UUID, amount int64) error {
	acct, ok := m.accounts[accountID]
	if !ok {
		return domain.ErrNotFound
	}
	acct.Balance += amount
	acct.UpdatedAt = time.Now().UTC()
	return nil
}

type memTxs MemoryUoW

func (m *memTxs) Create(ctx context.Context, tx *credit.Transaction) error {
	if m.FailNextTxCreate != nil {
		err := m.FailNextTxCreate
		m.FailNextTxCreate = nil
		return err
	}
	cp := *tx
	m.txs = append(m.txs, &cp)
	return nil
}

func (m *memTxs) ExistsDedupKey(ctx context.Context, key string) (bool, error) {
	for _, tx := range m.txs {
		if tx.DedupKey == key {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTxs) ListByAccount(ctx context.Context, accountID uuid.UUID) ([]*credit.Transaction, error) {
	var out []*credit.Transaction
	for i := len(m.txs) - 1; i >= 0; i-- {
		if m.txs[i].AccountID == accountID {
			cp := *m.txs[i]
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memTxs) SumCompleted(ctx context.Context, accountID uuid.UUID) (int64, error) {
	var sum int64
	for _, tx := range m.txs {
		if tx.AccountID == accountID && tx.Status == credit.TxCompleted {
			sum += tx.Amount
		}
	}
	return sum, nil
}

type memSessions MemoryUoW

func (m *memSessions) Create(ctx context.Context, s *analysis.Session) error {
	cp := *s
	m.sessions[s.ID] = &cp
	return nil
}

func (m *memSessions) Get(ctx context.Context, id uuid.UUID) (*analysis.Session, error) {
	s, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *memSessions) Touch(ctx context.Context, id uuid.UUID, at time.Time) error {
	s, ok := m.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.UpdatedAt = at
	return nil
}

type memRecords MemoryUoW

func (m *memRecords) Create(ctx context.Context, r *analysis.Record) error {
	cp := *r
	m.records = append(m.records, &cp)
	return nil
}

func (m *memRecords) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*analysis.Record, error) {
	var out []*analysis.Record
	for _, r := range m.records {
		if r.SessionID == sessionID {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

type memUsers MemoryUoW

func (m *memUsers) Get(ctx context.Context, id uuid.UUID) (*user.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *memUsers) GetByUsername(ctx context.Context, username string) (*user.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *memUsers) GetByEmail(ctx context.Context, email string) (*user.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *memUsers) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*user.User, error) {
	for _, u := range m.users {
		if u.StripeSubscriptionID == subscriptionID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, user.ErrUserNotFound
}

func (m *memUsers) Create(ctx context.Context, u *user.User) error {
	if _, err := m.GetByUsername(ctx, u.Username); err == nil {
		return domain.ErrAlreadyExists
	}
	if _, err := m.GetByEmail(ctx, u.Email); err == nil {
		return domain.ErrAlreadyExists
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *memUsers) UpdateSubscription(
	ctx context.Context,
	userID uuid.UUID,
	customerID, subscriptionID, priceID string,
	periodEnd time.Time,
) error {
	u, ok := m.users[userID]
	if !ok {
		return user.ErrUserNotFound
	}
	u.StripeCustomerID = customerID
	u.StripeSubscriptionID = subscriptionID
	u.StripePriceID = priceID
	end := periodEnd
	u.StripePeriodEnd = &end
	u.UpdatedAt = time.Now().UTC()
	return nil
}

type memKnowledge MemoryUoW

func (m *memKnowledge) Add(ctx context.Context, e *knowledge.Entry) error {
	cp := *e
	m.knowledge = append(m.knowledge, &cp)
	return nil
}

func (m *memKnowledge) List(ctx context.Context, category string) ([]*knowledge.Entry, error) {
	var out []*knowledge.Entry
	for _, e := range m.knowledge {
		if category != "" && e.Category != category {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	return out, nil
}

func (m *memKnowledge) CreateFeedback(ctx context.Context, f *knowledge.Feedback) error {
	cp := *f
	m.feedback = append(m.feedback, &cp)
	return nil
}
