// Package evaluator runs budget evaluations outside of an HTTP request, either
// once or on a cron schedule.
package evaluator

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"

	"github.com/robfig/cron/v3"

	"budgetwatch/internal/logger"
	"budgetwatch/internal/services"
)

// UserLister lists the users a full sweep covers.
type UserLister interface {
	ListActiveUserIDs(ctx context.Context) ([]string, error)
}

// UserReport pairs a user with the outcome of their evaluation.
type UserReport struct {
	UserID string
	Report *services.EvaluationReport
	Err    error
}

// Runner drives the AlertCoordinator for one or all users.
type Runner struct {
	users       UserLister
	coordinator services.AlertCoordinator

	// mu keeps scheduled sweeps from overlapping.
	mu sync.Mutex
}

// NewRunner creates a Runner.
func NewRunner(users UserLister, coordinator services.AlertCoordinator) *Runner {
	return &Runner{users: users, coordinator: coordinator}
}

// RunUser evaluates one user's budgets.
func (r *Runner) RunUser(ctx context.Context, userID string) (*services.EvaluationReport, error) {
	return r.coordinator.EvaluateUser(ctx, userID)
}

// RunAll evaluates every active user in turn. A failure for one user is
// recorded in its UserReport and does not stop the sweep; only a failure to
// list users or a cancelled ctx ends it early.
func (r *Runner) RunAll(ctx context.Context) ([]UserReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids, err := r.users.ListActiveUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	log := logger.Get()
	reports := make([]UserReport, 0, len(ids))
	var failed, alerts int
	for _, id := range ids {
		if err := ctx.Err(); err != nil {
			return reports, err
		}
		report, err := r.coordinator.EvaluateUser(ctx, id)
		if err != nil {
			failed++
			log.Warnw("user evaluation failed", "user_id", id, "error", err)
		} else {
			alerts += len(report.Alerts)
		}
		reports = append(reports, UserReport{UserID: id, Report: report, Err: err})
	}

	log.Infow("evaluation sweep complete", "users", len(ids), "failed", failed, "alerts", alerts)
	return reports, nil
}

// Schedule registers a RunAll sweep on spec (standard five-field cron or a
// descriptor such as "@every 1h") and returns the unstarted scheduler.
func (r *Runner) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		if _, err := r.RunAll(ctx); err != nil {
			logger.Get().Errorw("scheduled evaluation sweep failed", "error", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	return c, nil
}

// WriteReport prints a report as an aligned table.
func WriteReport(out io.Writer, userID string, report *services.EvaluationReport) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "USER\t%s\n", userID)
	if len(report.Statuses) == 0 {
		fmt.Fprintln(w, "No budgets configured.")
		return w.Flush()
	}

	fmt.Fprintf(w, "CATEGORY\tLIMIT\tSPENT\tUSAGE\tSTATUS\n")
	for _, s := range report.Statuses {
		status := string(s.Status)
		if s.Error != "" {
			status += " (" + s.Error + ")"
		}
		fmt.Fprintf(w, "%s\t$%s\t$%s\t%.2f%%\t%s\n",
			s.Category, s.Limit.StringFixed(2), s.Spent.StringFixed(2), s.PercentageUsed, status)
	}
	for _, a := range report.Alerts {
		state := "delivered"
		switch {
		case a.Suppressed:
			state = "suppressed"
		case !a.Delivered:
			state = "failed: " + a.Error
		}
		fmt.Fprintf(w, "ALERT\t%s\t%s\n", a.Category, state)
	}
	return w.Flush()
}
