package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"budgetwatch/internal/models"

	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// counter provides unique values across fixtures within a test run.
var counter atomic.Int64

func nextID() int64 {
	return counter.Add(1)
}

// Date returns midnight UTC on the given day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// Money parses a decimal literal, failing the test on bad input.
func Money(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid money literal %q: %v", s, err)
	}
	return d
}

// CreateTestUser creates a user with a hashed password and unique email.
func CreateTestUser(t *testing.T, db *gorm.DB) *models.User {
	t.Helper()
	email := fmt.Sprintf("user%d@test.com", nextID())
	return CreateTestUserWithEmail(t, db, email)
}

// CreateTestUserWithEmail creates a user with the given email.
func CreateTestUserWithEmail(t *testing.T, db *gorm.DB, email string) *models.User {
	t.Helper()

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to hash password: %v", err)
	}

	user := &models.User{
		Email:     email,
		Password:  string(hash),
		FirstName: "Test",
		IsActive:  true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("failed to create test user: %v", err)
	}
	return user
}

// BudgetOpts describes a budget fixture. Zero values fall back to a $100 limit
// over January 2024 with the default threshold.
type BudgetOpts struct {
	Category  string
	Limit     string
	Start     time.Time
	End       time.Time
	Threshold float64
}

// CreateTestBudget creates a budget for userID.
func CreateTestBudget(t *testing.T, db *gorm.DB, userID string, opts BudgetOpts) *models.Budget {
	t.Helper()

	if opts.Category == "" {
		opts.Category = fmt.Sprintf("category%d", nextID())
	}
	if opts.Limit == "" {
		opts.Limit = "100"
	}
	if opts.Start.IsZero() {
		opts.Start = Date(2024, time.January, 1)
	}
	if opts.End.IsZero() {
		opts.End = Date(2024, time.January, 31)
	}
	if opts.Threshold == 0 {
		opts.Threshold = models.DefaultAlertThreshold
	}

	budget := &models.Budget{
		UserID:         userID,
		Category:       opts.Category,
		Limit:          Money(t, opts.Limit),
		StartDate:      opts.Start,
		EndDate:        opts.End,
		AlertThreshold: opts.Threshold,
	}
	if err := db.Create(budget).Error; err != nil {
		t.Fatalf("failed to create test budget: %v", err)
	}
	return budget
}

// CreateTestTransaction records an expense (or income) in category on date.
func CreateTestTransaction(t *testing.T, db *gorm.DB, userID string, txType models.TransactionType, category, amount string, date time.Time) *models.Transaction {
	t.Helper()

	tx := &models.Transaction{
		UserID:      userID,
		Type:        txType,
		Amount:      Money(t, amount),
		Category:    category,
		Description: fmt.Sprintf("Test transaction %d", nextID()),
		Date:        date,
	}
	if err := db.Create(tx).Error; err != nil {
		t.Fatalf("failed to create test transaction: %v", err)
	}
	return tx
}
