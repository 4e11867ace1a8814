package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
)

// UserServicer defines the contract for user-related business logic.
type UserServicer interface {
	CreateUser(ctx context.Context, email, password, firstName, lastName string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	VerifyPassword(user *models.User, password string) bool
	AttemptLogin(ctx context.Context, email, password string) (*models.User, error)
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// BudgetStore lists the budgets an evaluation runs over.
type BudgetStore interface {
	// ListByOwner returns every budget owned by ownerID in a stable order.
	ListByOwner(ctx context.Context, ownerID string) ([]models.Budget, error)
}

// BudgetInput carries the fields of a new budget.
type BudgetInput struct {
	Category       string
	Limit          decimal.Decimal
	StartDate      time.Time
	EndDate        time.Time
	AlertThreshold *float64
}

// BudgetUpdate carries a partial budget update; nil fields are left unchanged.
type BudgetUpdate struct {
	Category       *string
	Limit          *decimal.Decimal
	StartDate      *time.Time
	EndDate        *time.Time
	AlertThreshold *float64
}

// BudgetServicer defines the contract for budget-related business logic.
type BudgetServicer interface {
	BudgetStore
	CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error)
	GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error)
	GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error)
	UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetUpdate) (*models.Budget, error)
	DeleteBudget(ctx context.Context, userID, budgetID string) error
}

// TransactionLedger answers spend aggregation queries.
type TransactionLedger interface {
	// SumByScope totals the amounts of ownerID's transactions in category
	// whose date falls within window, inclusive on both ends. No matches
	// yields zero.
	SumByScope(ctx context.Context, ownerID, category string, window models.DateRange) (decimal.Decimal, error)
}

// TransactionInput carries the fields of a new transaction.
type TransactionInput struct {
	Type               models.TransactionType
	Amount             decimal.Decimal
	Category           string
	Description        string
	Date               time.Time
	IsRecurring        bool
	RecurrenceInterval *models.RecurrenceInterval
}

// TransactionUpdate carries a partial transaction update.
type TransactionUpdate struct {
	Type               *models.TransactionType
	Amount             *decimal.Decimal
	Category           *string
	Description        *string
	Date               *time.Time
	IsRecurring        *bool
	RecurrenceInterval *models.RecurrenceInterval
}

// TransactionFilter holds optional filter parameters for listing transactions.
type TransactionFilter struct {
	FromDate    *time.Time
	ToDate      *time.Time
	Type        *models.TransactionType
	Category    *string
	MinAmount   *decimal.Decimal
	MaxAmount   *decimal.Decimal
	IsRecurring *bool
}

// TransactionServicer defines the contract for transaction-related business logic.
type TransactionServicer interface {
	CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error)
	GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error)
	GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, transactionID string, in TransactionUpdate) (*models.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, transactionID string) error
}

// BudgetEvaluator computes the status of a single budget.
type BudgetEvaluator interface {
	// Evaluate never returns a nil-status result: on failure the returned
	// result carries StatusUnknown and the error message alongside err.
	Evaluate(ctx context.Context, budget models.Budget) (BudgetStatusResult, error)
}

// AlertCoordinator evaluates all of a user's budgets and dispatches alerts.
type AlertCoordinator interface {
	EvaluateUser(ctx context.Context, userID string) (*EvaluationReport, error)
}

// Notifier delivers one alert message to a recipient.
type Notifier interface {
	Send(ctx context.Context, to models.Recipient, subject, body string) error
}

// AlertCooldown suppresses repeat alerts for a budget that is still in the
// same status.
type AlertCooldown interface {
	Active(budgetID, status string) bool
	Record(budgetID, status string)
}

// AuditServicer defines the contract for audit logging.
type AuditServicer interface {
	Log(userID, action, resourceType, resourceID, ipAddress string, changes map[string]interface{})
}
