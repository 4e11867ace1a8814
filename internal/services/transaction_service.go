package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
)

// transactionService handles transaction-related business logic.
type transactionService struct {
	db *gorm.DB
}

// NewTransactionService creates a new TransactionServicer.
func NewTransactionService(db *gorm.DB) TransactionServicer {
	return &transactionService{db: db}
}

// normalizeType lower-cases t and rejects anything but income or expense.
func normalizeType(t models.TransactionType) (models.TransactionType, error) {
	switch normalized := models.TransactionType(strings.ToLower(strings.TrimSpace(string(t)))); normalized {
	case models.TransactionTypeIncome, models.TransactionTypeExpense:
		return normalized, nil
	}
	return "", apperrors.ErrInvalidTransactionType
}

// normalizeRecurrence enforces that an interval is present exactly when the
// transaction recurs.
func normalizeRecurrence(isRecurring bool, interval *models.RecurrenceInterval) (*models.RecurrenceInterval, error) {
	if !isRecurring {
		return nil, nil
	}
	if interval == nil || *interval == "" {
		return nil, apperrors.ErrMissingRecurrenceInterval
	}
	normalized := models.RecurrenceInterval(strings.ToLower(string(*interval)))
	switch normalized {
	case models.RecurrenceDaily, models.RecurrenceWeekly, models.RecurrenceMonthly, models.RecurrenceYearly:
		return &normalized, nil
	}
	return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "recurrence interval must be daily, weekly, monthly or yearly")
}

// CreateTransaction records a new transaction for the user.
func (s *transactionService) CreateTransaction(ctx context.Context, userID string, in TransactionInput) (*models.Transaction, error) {
	if !in.Amount.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
	}

	txType, err := normalizeType(in.Type)
	if err != nil {
		return nil, err
	}

	category := NormalizeCategory(in.Category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}

	interval, err := normalizeRecurrence(in.IsRecurring, in.RecurrenceInterval)
	if err != nil {
		return nil, err
	}

	// Default date to now if not provided
	date := in.Date
	if date.IsZero() {
		date = time.Now()
	}

	transaction := &models.Transaction{
		UserID:             userID,
		Type:               txType,
		Amount:             in.Amount,
		Category:           category,
		Description:        in.Description,
		Date:               date,
		IsRecurring:        in.IsRecurring,
		RecurrenceInterval: interval,
	}

	if err := s.db.WithContext(ctx).Create(transaction).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return transaction, nil
}

// GetUserTransactions retrieves a paginated, filtered list of the user's transactions.
func (s *transactionService) GetUserTransactions(ctx context.Context, userID string, page pagination.PageRequest, filter TransactionFilter) (*pagination.PageResponse[models.Transaction], error) {
	page.Normalize()

	base := s.db.WithContext(ctx).Model(&models.Transaction{}).Where("user_id = ?", userID)
	base = applyTransactionFilters(base, filter)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var transactions []models.Transaction
	if err := base.Scopes(pagination.Paginate(page)).
		Order("date DESC").
		Find(&transactions).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(transactions, page, totalItems)
	return &result, nil
}

func applyTransactionFilters(q *gorm.DB, f TransactionFilter) *gorm.DB {
	if f.FromDate != nil {
		q = q.Where("date >= ?", *f.FromDate)
	}
	if f.ToDate != nil {
		q = q.Where("date <= ?", *f.ToDate)
	}
	if f.Type != nil {
		q = q.Where("type = ?", models.TransactionType(strings.ToLower(string(*f.Type))))
	}
	if f.Category != nil {
		q = q.Where("category = ?", NormalizeCategory(*f.Category))
	}
	if f.MinAmount != nil {
		q = q.Where("amount >= ?", *f.MinAmount)
	}
	if f.MaxAmount != nil {
		q = q.Where("amount <= ?", *f.MaxAmount)
	}
	if f.IsRecurring != nil {
		q = q.Where("is_recurring = ?", *f.IsRecurring)
	}
	return q
}

// GetTransactionByID retrieves a transaction by ID for a specific user
func (s *transactionService) GetTransactionByID(ctx context.Context, userID, transactionID string) (*models.Transaction, error) {
	var transaction models.Transaction
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", transactionID, userID).First(&transaction).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTransactionNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &transaction, nil
}

// UpdateTransaction applies a partial update. Turning recurrence off clears
// the interval.
func (s *transactionService) UpdateTransaction(ctx context.Context, userID, transactionID string, in TransactionUpdate) (*models.Transaction, error) {
	transaction, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return nil, err
	}

	if in.Amount != nil {
		if !in.Amount.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "amount must be greater than zero")
		}
		transaction.Amount = *in.Amount
	}
	if in.Type != nil {
		txType, err := normalizeType(*in.Type)
		if err != nil {
			return nil, err
		}
		transaction.Type = txType
	}
	if in.Category != nil {
		category := NormalizeCategory(*in.Category)
		if category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category cannot be empty")
		}
		transaction.Category = category
	}
	if in.Description != nil {
		transaction.Description = *in.Description
	}
	if in.Date != nil && !in.Date.IsZero() {
		transaction.Date = *in.Date
	}
	if in.IsRecurring != nil {
		transaction.IsRecurring = *in.IsRecurring
	}

	interval := transaction.RecurrenceInterval
	if in.RecurrenceInterval != nil {
		interval = in.RecurrenceInterval
	}
	transaction.RecurrenceInterval, err = normalizeRecurrence(transaction.IsRecurring, interval)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{
		"type":                transaction.Type,
		"amount":              transaction.Amount,
		"category":            transaction.Category,
		"description":         transaction.Description,
		"date":                transaction.Date,
		"is_recurring":        transaction.IsRecurring,
		"recurrence_interval": transaction.RecurrenceInterval,
	}
	if err := s.db.WithContext(ctx).Model(transaction).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return transaction, nil
}

// DeleteTransaction soft-deletes a transaction.
func (s *transactionService) DeleteTransaction(ctx context.Context, userID, transactionID string) error {
	transaction, err := s.GetTransactionByID(ctx, userID, transactionID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(transaction).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
