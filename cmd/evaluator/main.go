package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"budgetwatch/internal/app"
	"budgetwatch/internal/config"
	"budgetwatch/internal/database"
	"budgetwatch/internal/evaluator"
	"budgetwatch/internal/logger"
)

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		logger.Get().Fatalf("Evaluator error: %v", err)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "evaluator",
		Short:         "Evaluate budgets and dispatch alerts outside the API server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Evaluate one user's budgets, or every active user's",
		Args:  cobra.NoArgs,
		RunE:  runOnce,
	}
	runCmd.Flags().String("user", "", "user ID to evaluate")
	runCmd.Flags().Bool("all", false, "evaluate every active user")

	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Evaluate every active user on a cron schedule until interrupted",
		Args:  cobra.NoArgs,
		RunE:  runScheduled,
	}
	scheduleCmd.Flags().String("cron", "", "cron spec (defaults to EVALUATOR_SCHEDULE)")

	root.AddCommand(runCmd, scheduleCmd)
	return root
}

func runOnce(cmd *cobra.Command, _ []string) error {
	userID, _ := cmd.Flags().GetString("user")
	all, _ := cmd.Flags().GetBool("all")
	if (userID == "") == !all {
		return errors.New("exactly one of --user or --all is required")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withRunner(func(_ *config.Config, r *evaluator.Runner) error {
		out := cmd.OutOrStdout()
		if userID != "" {
			report, err := r.RunUser(ctx, userID)
			if err != nil {
				return err
			}
			return evaluator.WriteReport(out, userID, report)
		}

		reports, err := r.RunAll(ctx)
		if err != nil {
			return err
		}
		for _, rep := range reports {
			if rep.Err != nil {
				fmt.Fprintf(out, "USER  %s\nerror: %v\n\n", rep.UserID, rep.Err)
				continue
			}
			if err := evaluator.WriteReport(out, rep.UserID, rep.Report); err != nil {
				return err
			}
			fmt.Fprintln(out)
		}
		return nil
	})
}

func runScheduled(cmd *cobra.Command, _ []string) error {
	spec, _ := cmd.Flags().GetString("cron")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return withRunner(func(cfg *config.Config, r *evaluator.Runner) error {
		if spec == "" {
			spec = cfg.Evaluation.Schedule
		}
		c, err := r.Schedule(ctx, spec)
		if err != nil {
			return err
		}

		log := logger.Get()
		log.Infow("evaluator scheduled", "schedule", spec)
		c.Start()
		<-ctx.Done()

		log.Info("Stopping evaluator, waiting for running sweep")
		<-c.Stop().Done()
		return nil
	})
}

// withRunner connects to the database, wires the services and runs fn.
func withRunner(fn func(*config.Config, *evaluator.Runner) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	dbManager, err := database.NewManager(database.NewConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}
	defer func() {
		if err := dbManager.Close(); err != nil {
			logger.Get().Warnf("failed to close database: %v", err)
		}
	}()

	svc, err := app.Build(dbManager.DB(), cfg)
	if err != nil {
		return err
	}
	defer svc.Close()

	return fn(cfg, evaluator.NewRunner(svc.Users, svc.Coordinator))
}
