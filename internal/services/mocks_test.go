package services

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/models"
)

// mockLedger implements TransactionLedger for coordinator and evaluator tests.
type mockLedger struct {
	sumFn func(ctx context.Context, ownerID, category string, window models.DateRange) (decimal.Decimal, error)

	mu    sync.Mutex
	calls int
}

var _ TransactionLedger = (*mockLedger)(nil)

func (m *mockLedger) SumByScope(ctx context.Context, ownerID, category string, window models.DateRange) (decimal.Decimal, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return m.sumFn(ctx, ownerID, category, window)
}

func (m *mockLedger) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockBudgetStore implements BudgetStore.
type mockBudgetStore struct {
	listFn func(ctx context.Context, ownerID string) ([]models.Budget, error)
}

var _ BudgetStore = (*mockBudgetStore)(nil)

func (m *mockBudgetStore) ListByOwner(ctx context.Context, ownerID string) ([]models.Budget, error) {
	return m.listFn(ctx, ownerID)
}

// mockUserService implements UserServicer with only GetUserByID wired.
type mockUserService struct {
	getUserByIDFn func(ctx context.Context, id string) (*models.User, error)
}

var _ UserServicer = (*mockUserService)(nil)

func (m *mockUserService) CreateUser(context.Context, string, string, string, string) (*models.User, error) {
	panic("CreateUser not expected")
}

func (m *mockUserService) GetUserByEmail(context.Context, string) (*models.User, error) {
	panic("GetUserByEmail not expected")
}

func (m *mockUserService) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	return m.getUserByIDFn(ctx, id)
}

func (m *mockUserService) VerifyPassword(*models.User, string) bool { return false }

func (m *mockUserService) AttemptLogin(context.Context, string, string) (*models.User, error) {
	panic("AttemptLogin not expected")
}

func (m *mockUserService) ListActiveUserIDs(context.Context) ([]string, error) {
	panic("ListActiveUserIDs not expected")
}

// sentMessage records one notifier call.
type sentMessage struct {
	destination string
	name        string
	subject     string
	body        string
}

// mockNotifier implements Notifier and records every send.
type mockNotifier struct {
	sendFn func(ctx context.Context, to models.Recipient, subject, body string) error

	mu   sync.Mutex
	sent []sentMessage
}

var _ Notifier = (*mockNotifier)(nil)

func (m *mockNotifier) Send(ctx context.Context, to models.Recipient, subject, body string) error {
	m.mu.Lock()
	m.sent = append(m.sent, sentMessage{destination: to.Address, name: to.Name, subject: subject, body: body})
	m.mu.Unlock()
	if m.sendFn != nil {
		return m.sendFn(ctx, to, subject, body)
	}
	return nil
}

func (m *mockNotifier) Sent() []sentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]sentMessage(nil), m.sent...)
}

// memoryCooldown implements AlertCooldown with a plain map.
type memoryCooldown struct {
	mu     sync.Mutex
	active map[string]bool
}

var _ AlertCooldown = (*memoryCooldown)(nil)

func newMemoryCooldown() *memoryCooldown {
	return &memoryCooldown{active: map[string]bool{}}
}

func (c *memoryCooldown) Active(budgetID, status string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active[budgetID+"|"+status]
}

func (c *memoryCooldown) Record(budgetID, status string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.active[budgetID+"|"+status] = true
}
