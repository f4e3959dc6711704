package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"Debate_Community/internal/app"
	"Debate_Community/internal/config"
	"Debate_Community/internal/pkg"

	"github.com/spf13/cobra"
)

var (
	cursor   string
	logLevel string

	rootCmd = &cobra.Command{
		Use:           "debatectl",
		Short:         "Operator commands for the debate engine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	anonymizeCmd = &cobra.Command{
		Use:   "anonymize [username]",
		Short: "Replace a user's identity with the redaction placeholder in every debate",
		Args:  cobra.ExactArgs(1),
		RunE:  runAnonymize,
	}

	activityCmd = &cobra.Command{
		Use:   "activity [username]",
		Short: "Print the debates, positions and comments attributed to a user",
		Args:  cobra.ExactArgs(1),
		RunE:  runActivity,
	}

	reconcileCmd = &cobra.Command{
		Use:   "reconcile-ranking",
		Short: "Rebuild the popularity ranking cache from the store",
		Args:  cobra.NoArgs,
		RunE:  runReconcile,
	}

	tokenCmd = &cobra.Command{
		Use:   "token [uid] [username]",
		Short: "Issue a short-lived access token for local testing",
		Args:  cobra.ExactArgs(2),
		RunE:  runToken,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	anonymizeCmd.Flags().StringVar(&cursor, "cursor", "", "resume after this debate id")
	rootCmd.AddCommand(anonymizeCmd, activityCmd, reconcileCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// withApp 加载配置并组装服务，fn 返回后释放资源
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, app.NewLogger(logLevel, false))
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runAnonymize(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		stats, err := a.Anonymizer.AnonymizeFrom(ctx, args[0], cursor)
		if perr := printJSON(cmd, stats); perr != nil {
			return perr
		}
		if err != nil && stats.Cursor != "" {
			return fmt.Errorf("%w (resume with --cursor %s)", err, stats.Cursor)
		}
		return err
	})
}

func runActivity(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		sum, err := a.Anonymizer.ActivitySummary(ctx, args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd, sum)
	})
}

func runReconcile(cmd *cobra.Command, _ []string) error {
	return withApp(cmd, func(ctx context.Context, a *app.App) error {
		if a.Reconciler == nil {
			return fmt.Errorf("ranking cache disabled: set DEBATE_REDIS_ADDR")
		}
		n, err := a.Reconciler.ReconcileOnce(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ranking rebuilt with %d debates\n", n)
		return nil
	})
}

func runToken(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	token, err := pkg.NewTokenVerifier(cfg.JWTSecret).GenerateAccess(args[0], args[1])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), token)
	return nil
}
