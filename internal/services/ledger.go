package services

import (
	"context"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
)

// transactionLedger sums transactions straight from the transactions table.
type transactionLedger struct {
	db *gorm.DB
}

// NewTransactionLedger creates a TransactionLedger backed by db.
func NewTransactionLedger(db *gorm.DB) TransactionLedger {
	return &transactionLedger{db: db}
}

// SumByScope totals amounts regardless of transaction type. Any query failure
// is reported as ErrTransientQuery.
func (l *transactionLedger) SumByScope(ctx context.Context, ownerID, category string, window models.DateRange) (decimal.Decimal, error) {
	var result struct {
		Total decimal.Decimal
	}
	err := l.db.WithContext(ctx).
		Model(&models.Transaction{}).
		Select("COALESCE(SUM(amount), 0) AS total").
		Where("user_id = ? AND category = ? AND date BETWEEN ? AND ?",
			ownerID, NormalizeCategory(category), window.From, window.To).
		Scan(&result).Error
	if err != nil {
		return decimal.Zero, apperrors.Wrap(apperrors.ErrTransientQuery, err)
	}
	// Amounts are stored with two places; drivers that sum in floating point
	// may drift past that.
	return result.Total.Round(2), nil
}
