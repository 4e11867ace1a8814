package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
)

// BudgetStatus classifies how much of a budget has been used.
type BudgetStatus string

const (
	StatusWithinLimit BudgetStatus = "within_limit"
	StatusNearLimit   BudgetStatus = "near_limit"
	StatusExceeded    BudgetStatus = "exceeded"
	// StatusUnknown marks a budget whose spend could not be determined.
	StatusUnknown BudgetStatus = "unknown"
)

// Alerting reports whether a budget in this status should notify its owner.
func (s BudgetStatus) Alerting() bool {
	return s == StatusNearLimit || s == StatusExceeded
}

// Label is the status as written in alert messages.
func (s BudgetStatus) Label() string {
	return strings.ReplaceAll(string(s), "_", " ")
}

var hundred = decimal.NewFromInt(100)

// BudgetStatusResult is the evaluated state of one budget.
type BudgetStatusResult struct {
	BudgetID       string          `json:"budget_id"`
	Category       string          `json:"category"`
	Limit          decimal.Decimal `json:"limit"`
	Spent          decimal.Decimal `json:"spent"`
	PercentageUsed float64         `json:"percentage_used"`
	Status         BudgetStatus    `json:"status"`
	Error          string          `json:"error,omitempty"`
}

// NormalizeCategory folds a category name to the form it is stored and matched in.
func NormalizeCategory(category string) string {
	return strings.ToLower(strings.TrimSpace(category))
}

// ValidateForEvaluation rejects budgets that cannot be classified.
func ValidateForEvaluation(b models.Budget) error {
	switch {
	case NormalizeCategory(b.Category) == "":
		return apperrors.WithMessage(apperrors.ErrInvalidBudget, "budget has no category")
	case b.Limit.IsNegative():
		return apperrors.WithMessage(apperrors.ErrInvalidBudget, "budget limit is negative")
	case !b.EndDate.After(b.StartDate):
		return apperrors.WithMessage(apperrors.ErrInvalidBudget, "budget end date is not after its start date")
	case b.AlertThreshold <= 0:
		return apperrors.WithMessage(apperrors.ErrInvalidBudget, "budget alert threshold must be positive")
	}
	return nil
}

// Classify derives the status of b given the amount spent in its scope.
//
// percentage_used is rounded to two places before it is compared with the
// threshold, so a budget at 79.996% with an 80% threshold is near_limit. A
// zero limit reports 0% and is exceeded by any positive spend.
func Classify(b models.Budget, spent decimal.Decimal) BudgetStatusResult {
	result := BudgetStatusResult{
		BudgetID: b.ID,
		Category: NormalizeCategory(b.Category),
		Limit:    b.Limit,
		Spent:    spent,
		Status:   StatusWithinLimit,
	}

	if b.Limit.IsZero() {
		if spent.IsPositive() {
			result.Status = StatusExceeded
		}
		return result
	}

	pct := spent.Div(b.Limit).Mul(hundred).Round(2)
	result.PercentageUsed = pct.InexactFloat64()

	if pct.GreaterThanOrEqual(decimal.NewFromFloat(b.AlertThreshold)) {
		result.Status = StatusNearLimit
	}
	if spent.GreaterThan(b.Limit) {
		result.Status = StatusExceeded
	}
	return result
}

// degradedResult is the entry reported for a budget that could not be evaluated.
func degradedResult(b models.Budget, err error) BudgetStatusResult {
	return BudgetStatusResult{
		BudgetID: b.ID,
		Category: NormalizeCategory(b.Category),
		Limit:    b.Limit,
		Spent:    decimal.Zero,
		Status:   StatusUnknown,
		Error:    err.Error(),
	}
}

// budgetEvaluator classifies budgets using a ledger query per budget.
type budgetEvaluator struct {
	ledger       TransactionLedger
	queryTimeout time.Duration
}

// DefaultQueryTimeout bounds a ledger query when no positive timeout is configured.
const DefaultQueryTimeout = 5 * time.Second

// NewBudgetEvaluator creates a BudgetEvaluator. A non-positive queryTimeout
// is replaced by DefaultQueryTimeout.
func NewBudgetEvaluator(ledger TransactionLedger, queryTimeout time.Duration) BudgetEvaluator {
	if queryTimeout <= 0 {
		queryTimeout = DefaultQueryTimeout
	}
	return &budgetEvaluator{ledger: ledger, queryTimeout: queryTimeout}
}

// Evaluate computes spend-to-date for budget and classifies it.
func (e *budgetEvaluator) Evaluate(ctx context.Context, budget models.Budget) (BudgetStatusResult, error) {
	if err := ValidateForEvaluation(budget); err != nil {
		return degradedResult(budget, err), err
	}

	queryCtx, cancel := context.WithTimeout(ctx, e.queryTimeout)
	defer cancel()

	spent, err := e.ledger.SumByScope(queryCtx, budget.UserID, NormalizeCategory(budget.Category), budget.DateRange())
	if err != nil {
		var appErr *apperrors.AppError
		if !errors.As(err, &appErr) {
			err = apperrors.Wrap(apperrors.ErrTransientQuery, err)
		}
		return degradedResult(budget, err), err
	}

	return Classify(budget, spent), nil
}

// AlertSubject is the notification subject for a budget alert.
func AlertSubject(category string) string {
	return fmt.Sprintf("Budget Alert: %s", category)
}

// AlertMessage renders the alert text for an evaluated budget.
func AlertMessage(r BudgetStatusResult) string {
	return fmt.Sprintf("Your budget for %s is %s. You have spent $%s out of your limit of $%s.",
		r.Category, r.Status.Label(), r.Spent.String(), r.Limit.String())
}
