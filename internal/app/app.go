// Package app assembles the services shared by the API server and the evaluator CLI.
package app

import (
	"fmt"

	"gorm.io/gorm"

	"budgetwatch/internal/config"
	"budgetwatch/internal/logger"
	"budgetwatch/internal/notify"
	"budgetwatch/internal/services"
)

// Services is the wired service graph.
type Services struct {
	Users        services.UserServicer
	Budgets      services.BudgetServicer
	Transactions services.TransactionServicer
	Audit        services.AuditServicer
	Coordinator  services.AlertCoordinator

	cooldown *notify.Cooldown
}

// Close releases resources held by the services.
func (s *Services) Close() {
	if s.cooldown != nil {
		s.cooldown.Close()
	}
}

// Build wires every service against db using the notifier transports and
// evaluation limits in cfg.
func Build(db *gorm.DB, cfg *config.Config) (*Services, error) {
	notifier, err := notify.FromConfig(cfg.Notify)
	if err != nil {
		return nil, fmt.Errorf("failed to configure notifiers: %w", err)
	}
	return BuildWithNotifier(db, cfg.Evaluation, notifier)
}

// BuildWithNotifier is Build with an explicit notifier.
func BuildWithNotifier(db *gorm.DB, eval config.EvaluationConfig, notifier services.Notifier) (*Services, error) {
	s := &Services{
		Users:        services.NewUserService(db),
		Budgets:      services.NewBudgetService(db),
		Transactions: services.NewTransactionService(db),
		Audit:        services.NewAuditService(db),
	}

	coordCfg := services.CoordinatorConfig{
		Concurrency:   eval.Concurrency,
		NotifyTimeout: eval.NotifyTimeout,
	}
	if eval.AlertCooldown > 0 {
		cooldown, err := notify.NewCooldown(eval.AlertCooldown, eval.CooldownCapacity)
		if err != nil {
			return nil, fmt.Errorf("failed to create alert cooldown: %w", err)
		}
		s.cooldown = cooldown
		coordCfg.Cooldown = cooldown
	}

	evaluator := services.NewBudgetEvaluator(services.NewTransactionLedger(db), eval.QueryTimeout)
	s.Coordinator = services.NewAlertCoordinator(s.Budgets, s.Users, evaluator, notifier, coordCfg)

	if m, ok := notifier.(*notify.Multi); ok {
		logger.Get().Infow("alert transports configured", "transports", m.Names(), "cooldown", eval.AlertCooldown)
	}
	return s, nil
}
