package evaluator

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"budgetwatch/internal/logger"
	"budgetwatch/internal/services"
)

func TestMain(m *testing.M) {
	logger.Init("test")
	os.Exit(m.Run())
}

type stubUsers struct {
	ids []string
	err error
}

func (s stubUsers) ListActiveUserIDs(context.Context) ([]string, error) { return s.ids, s.err }

type stubCoordinator struct {
	mu       sync.Mutex
	calls    []string
	reportFn func(userID string) (*services.EvaluationReport, error)
}

var _ services.AlertCoordinator = (*stubCoordinator)(nil)

func (s *stubCoordinator) EvaluateUser(_ context.Context, userID string) (*services.EvaluationReport, error) {
	s.mu.Lock()
	s.calls = append(s.calls, userID)
	s.mu.Unlock()
	return s.reportFn(userID)
}

func oneAlert(string) (*services.EvaluationReport, error) {
	return &services.EvaluationReport{
		Statuses: []services.BudgetStatusResult{{Category: "food", Status: services.StatusNearLimit}},
		Alerts:   []services.Alert{{Category: "food", Delivered: true}},
	}, nil
}

func TestRunAll_EvaluatesEveryUser(t *testing.T) {
	coord := &stubCoordinator{reportFn: oneAlert}
	r := NewRunner(stubUsers{ids: []string{"u1", "u2", "u3"}}, coord)

	reports, err := r.RunAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"u1", "u2", "u3"}, coord.calls)
	require.Len(t, reports, 3)
	for _, rep := range reports {
		assert.NoError(t, rep.Err)
		assert.Len(t, rep.Report.Alerts, 1)
	}
}

func TestRunAll_ContinuesPastFailedUser(t *testing.T) {
	boom := errors.New("boom")
	coord := &stubCoordinator{reportFn: func(id string) (*services.EvaluationReport, error) {
		if id == "u2" {
			return nil, boom
		}
		return oneAlert(id)
	}}
	r := NewRunner(stubUsers{ids: []string{"u1", "u2", "u3"}}, coord)

	reports, err := r.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, reports, 3)
	assert.ErrorIs(t, reports[1].Err, boom)
	assert.NoError(t, reports[2].Err)
}

func TestRunAll_ListFailure(t *testing.T) {
	coord := &stubCoordinator{reportFn: oneAlert}
	r := NewRunner(stubUsers{err: errors.New("db down")}, coord)

	_, err := r.RunAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list users")
	assert.Empty(t, coord.calls)
}

func TestRunAll_StopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	coord := &stubCoordinator{}
	coord.reportFn = func(id string) (*services.EvaluationReport, error) {
		cancel()
		return oneAlert(id)
	}
	r := NewRunner(stubUsers{ids: []string{"u1", "u2"}}, coord)

	reports, err := r.RunAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, reports, 1)
	assert.Equal(t, []string{"u1"}, coord.calls)
}

func TestSchedule_RejectsInvalidCronExpression(t *testing.T) {
	r := NewRunner(stubUsers{}, &stubCoordinator{reportFn: oneAlert})

	_, err := r.Schedule(context.Background(), "every now and then")
	assert.Error(t, err)

	c, err := r.Schedule(context.Background(), "@every 1h")
	require.NoError(t, err)
	assert.Len(t, c.Entries(), 1)
}

func TestWriteReport(t *testing.T) {
	t.Run("empty report", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, "u1", &services.EvaluationReport{}))
		assert.Contains(t, buf.String(), "No budgets configured.")
	})

	t.Run("statuses and alerts", func(t *testing.T) {
		report := &services.EvaluationReport{
			Statuses: []services.BudgetStatusResult{
				{Category: "food", Limit: decimal.NewFromInt(100), Spent: decimal.RequireFromString("85.5"), PercentageUsed: 85.5, Status: services.StatusNearLimit},
				{Category: "fuel", Limit: decimal.NewFromInt(50), Status: services.StatusUnknown, Error: "spending unavailable"},
			},
			Alerts: []services.Alert{
				{Category: "food", Suppressed: true},
			},
		}
		var buf bytes.Buffer
		require.NoError(t, WriteReport(&buf, "u1", report))

		out := buf.String()
		assert.Contains(t, out, "$85.50")
		assert.Contains(t, out, "85.50%")
		assert.Contains(t, out, "unknown (spending unavailable)")
		lines := strings.Split(strings.TrimSpace(out), "\n")
		assert.True(t, strings.HasPrefix(lines[len(lines)-1], "ALERT"))
		assert.Contains(t, lines[len(lines)-1], "suppressed")
	})
}
