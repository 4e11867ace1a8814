package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionType represents the type of transaction
type TransactionType string

const (
	TransactionTypeIncome  TransactionType = "income"
	TransactionTypeExpense TransactionType = "expense"
)

// RecurrenceInterval is how often a recurring transaction repeats.
type RecurrenceInterval string

const (
	RecurrenceDaily   RecurrenceInterval = "daily"
	RecurrenceWeekly  RecurrenceInterval = "weekly"
	RecurrenceMonthly RecurrenceInterval = "monthly"
	RecurrenceYearly  RecurrenceInterval = "yearly"
)

// Transaction represents a single recorded income or expense event.
type Transaction struct {
	Base
	UserID             string              `gorm:"type:uuid;not null;index:idx_transactions_scope,priority:1" json:"user_id"`
	Type               TransactionType     `gorm:"not null" json:"type"`
	Amount             decimal.Decimal     `gorm:"type:numeric(15,2);not null" json:"amount"`
	Category           string              `gorm:"not null;index:idx_transactions_scope,priority:2" json:"category"`
	Description        string              `json:"description"`
	Date               time.Time           `gorm:"not null;index:idx_transactions_scope,priority:3" json:"date"`
	IsRecurring        bool                `gorm:"not null;default:false" json:"is_recurring"`
	RecurrenceInterval *RecurrenceInterval `json:"recurrence_interval,omitempty"`
}
