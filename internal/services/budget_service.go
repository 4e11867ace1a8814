package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/models"
	"budgetwatch/internal/pagination"
)

// budgetService handles budget-related business logic.
type budgetService struct {
	db *gorm.DB
}

// NewBudgetService creates a new BudgetServicer.
func NewBudgetService(db *gorm.DB) BudgetServicer {
	return &budgetService{db: db}
}

// CreateBudget creates a new budget for a category.
func (s *budgetService) CreateBudget(ctx context.Context, userID string, in BudgetInput) (*models.Budget, error) {
	category := NormalizeCategory(in.Category)
	if category == "" {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category is required")
	}
	if !in.Limit.IsPositive() {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be greater than zero")
	}
	if !in.EndDate.After(in.StartDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	threshold := models.DefaultAlertThreshold
	if in.AlertThreshold != nil {
		threshold = *in.AlertThreshold
	}
	if threshold <= 0 {
		return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be greater than zero")
	}

	budget := &models.Budget{
		UserID:         userID,
		Category:       category,
		Limit:          in.Limit,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		AlertThreshold: threshold,
	}

	if err := s.db.WithContext(ctx).Create(budget).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// GetUserBudgets returns a paginated list of budgets, latest start date first.
func (s *budgetService) GetUserBudgets(ctx context.Context, userID string, page pagination.PageRequest) (*pagination.PageResponse[models.Budget], error) {
	page.Normalize()

	base := s.db.WithContext(ctx).Model(&models.Budget{}).Where("user_id = ?", userID)

	var totalItems int64
	if err := base.Count(&totalItems).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	var budgets []models.Budget
	if err := base.Order("start_date DESC").Scopes(pagination.Paginate(page)).Find(&budgets).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	result := pagination.NewPageResponse(budgets, page, totalItems)
	return &result, nil
}

// ListByOwner returns all of the owner's budgets in creation order.
func (s *budgetService) ListByOwner(ctx context.Context, ownerID string) ([]models.Budget, error) {
	var budgets []models.Budget
	err := s.db.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at ASC, id ASC").
		Find(&budgets).Error
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return budgets, nil
}

// GetBudgetByID returns a budget by ID if it belongs to the user.
func (s *budgetService) GetBudgetByID(ctx context.Context, userID, budgetID string) (*models.Budget, error) {
	var budget models.Budget
	if err := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", budgetID, userID).First(&budget).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrBudgetNotFound
		}
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return &budget, nil
}

// UpdateBudget applies a partial update. The date range is checked against the
// merged values.
func (s *budgetService) UpdateBudget(ctx context.Context, userID, budgetID string, in BudgetUpdate) (*models.Budget, error) {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	if in.Category != nil {
		category := NormalizeCategory(*in.Category)
		if category == "" {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "category cannot be empty")
		}
		budget.Category = category
	}
	if in.Limit != nil {
		if !in.Limit.IsPositive() {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "limit must be greater than zero")
		}
		budget.Limit = *in.Limit
	}
	if in.StartDate != nil {
		budget.StartDate = *in.StartDate
	}
	if in.EndDate != nil {
		budget.EndDate = *in.EndDate
	}
	if in.AlertThreshold != nil {
		if *in.AlertThreshold <= 0 {
			return nil, apperrors.WithMessage(apperrors.ErrInvalidInput, "alert threshold must be greater than zero")
		}
		budget.AlertThreshold = *in.AlertThreshold
	}

	if !budget.EndDate.After(budget.StartDate) {
		return nil, apperrors.ErrInvalidDateRange
	}

	updates := map[string]interface{}{
		"category":        budget.Category,
		"limit_amount":    budget.Limit,
		"start_date":      budget.StartDate,
		"end_date":        budget.EndDate,
		"alert_threshold": budget.AlertThreshold,
	}
	if err := s.db.WithContext(ctx).Model(budget).Updates(updates).Error; err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInternalServer, err)
	}

	return budget, nil
}

// DeleteBudget soft-deletes a budget.
func (s *budgetService) DeleteBudget(ctx context.Context, userID, budgetID string) error {
	budget, err := s.GetBudgetByID(ctx, userID, budgetID)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(budget).Error; err != nil {
		return apperrors.Wrap(apperrors.ErrInternalServer, err)
	}
	return nil
}
