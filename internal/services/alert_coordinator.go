package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "budgetwatch/internal/errors"
	"budgetwatch/internal/logger"
	"budgetwatch/internal/models"
)

// Alert is a notification raised for a budget that is near or over its limit.
type Alert struct {
	BudgetID   string `json:"budget_id"`
	Category   string `json:"category"`
	Message    string `json:"message"`
	Delivered  bool   `json:"delivered"`
	Suppressed bool   `json:"suppressed,omitempty"`
	Error      string `json:"error,omitempty"`
}

// EvaluationReport is the outcome of evaluating every budget of one user.
// Statuses keeps the order budgets were listed in.
type EvaluationReport struct {
	Statuses []BudgetStatusResult `json:"statuses"`
	Alerts   []Alert              `json:"alerts"`

	Degraded       int `json:"-"`
	NotifyFailures int `json:"-"`
}

// DefaultNotifyTimeout bounds a notifier send when no positive timeout is configured.
const DefaultNotifyTimeout = 10 * time.Second

// CoordinatorConfig tunes an AlertCoordinator.
type CoordinatorConfig struct {
	// Concurrency bounds how many budgets are evaluated at once.
	Concurrency int
	// NotifyTimeout bounds each notifier send. Non-positive values use
	// DefaultNotifyTimeout.
	NotifyTimeout time.Duration
	// Cooldown, when set, suppresses repeat alerts.
	Cooldown AlertCooldown
}

// alertCoordinator fans a user's budgets out to the evaluator and notifier.
type alertCoordinator struct {
	budgets   BudgetStore
	users     UserServicer
	evaluator BudgetEvaluator
	notifier  Notifier
	cfg       CoordinatorConfig
}

// NewAlertCoordinator creates a new AlertCoordinator.
func NewAlertCoordinator(budgets BudgetStore, users UserServicer, evaluator BudgetEvaluator, notifier Notifier, cfg CoordinatorConfig) AlertCoordinator {
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.NotifyTimeout <= 0 {
		cfg.NotifyTimeout = DefaultNotifyTimeout
	}
	return &alertCoordinator{
		budgets:   budgets,
		users:     users,
		evaluator: evaluator,
		notifier:  notifier,
		cfg:       cfg,
	}
}

// budgetOutcome is one budget's slot in the fan-out.
type budgetOutcome struct {
	status BudgetStatusResult
	alert  *Alert
}

// EvaluateUser evaluates every budget owned by userID. Only a failure to list
// the budgets or resolve the user fails the call; per-budget failures are
// reported as degraded entries.
func (c *alertCoordinator) EvaluateUser(ctx context.Context, userID string) (*EvaluationReport, error) {
	budgets, err := c.budgets.ListByOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &EvaluationReport{
		Statuses: make([]BudgetStatusResult, 0, len(budgets)),
		Alerts:   []Alert{},
	}
	if len(budgets) == 0 {
		return report, nil
	}

	user, err := c.users.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]budgetOutcome, len(budgets))
	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i := range budgets {
		g.Go(func() error {
			outcomes[i] = c.evaluateOne(ctx, user, budgets[i])
			return nil
		})
	}
	_ = g.Wait()

	for _, o := range outcomes {
		report.Statuses = append(report.Statuses, o.status)
		if o.status.Status == StatusUnknown {
			report.Degraded++
		}
		if o.alert == nil {
			continue
		}
		if !o.alert.Delivered && !o.alert.Suppressed {
			report.NotifyFailures++
		}
		report.Alerts = append(report.Alerts, *o.alert)
	}

	logger.Get().Infow("budget evaluation complete",
		"user_id", userID,
		"budgets", len(budgets),
		"alerts", len(report.Alerts),
		"degraded", report.Degraded,
		"notify_failures", report.NotifyFailures,
	)
	return report, nil
}

func (c *alertCoordinator) evaluateOne(ctx context.Context, user *models.User, budget models.Budget) budgetOutcome {
	log := logger.With("user_id", user.ID, "budget_id", budget.ID, "category", budget.Category)

	// Budgets reached after the request is gone are not started.
	if err := ctx.Err(); err != nil {
		skipped := apperrors.Wrap(apperrors.ErrEvaluationSkipped, err)
		log.Warnw("budget evaluation skipped", "error", err)
		return budgetOutcome{status: degradedResult(budget, skipped)}
	}

	if budget.UserID != user.ID {
		log.Errorw("budget does not belong to the evaluated user", "owner_id", budget.UserID)
		return budgetOutcome{status: degradedResult(budget, apperrors.ErrForbidden)}
	}

	result, err := c.evaluator.Evaluate(ctx, budget)
	if err != nil {
		log.Warnw("budget evaluation failed", "error", err)
		return budgetOutcome{status: result}
	}
	if !result.Status.Alerting() {
		return budgetOutcome{status: result}
	}

	alert := &Alert{
		BudgetID: budget.ID,
		Category: result.Category,
		Message:  AlertMessage(result),
	}

	if c.cfg.Cooldown != nil && c.cfg.Cooldown.Active(budget.ID, string(result.Status)) {
		alert.Suppressed = true
		log.Debugw("alert suppressed by cooldown", "status", result.Status)
		return budgetOutcome{status: result, alert: alert}
	}

	if err := c.send(ctx, user.Recipient(), result.Category, alert.Message); err != nil {
		alert.Error = apperrors.ErrNotifyFailed.Message
		log.Errorw("failed to send budget alert", "status", result.Status, "error", err)
		return budgetOutcome{status: result, alert: alert}
	}

	alert.Delivered = true
	if c.cfg.Cooldown != nil {
		c.cfg.Cooldown.Record(budget.ID, string(result.Status))
	}
	return budgetOutcome{status: result, alert: alert}
}

// send delivers one alert. A send already underway outlives the request that
// started it and is bounded only by NotifyTimeout.
func (c *alertCoordinator) send(ctx context.Context, to models.Recipient, category, body string) error {
	sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.NotifyTimeout)
	defer cancel()
	if err := c.notifier.Send(sendCtx, to, AlertSubject(category), body); err != nil {
		return apperrors.Wrap(apperrors.ErrNotifyFailed, err)
	}
	return nil
}
