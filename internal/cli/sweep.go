package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/timecapsule/internal/adapter/notify"
	"github.com/pscheid92/timecapsule/internal/adapter/postgres"
	"github.com/pscheid92/timecapsule/internal/app"
	"github.com/pscheid92/timecapsule/internal/domain"
	"github.com/pscheid92/timecapsule/internal/platform/config"
	"github.com/pscheid92/timecapsule/internal/platform/correlation"
	"github.com/pscheid92/timecapsule/internal/platform/crypto"
	"github.com/pscheid92/timecapsule/internal/platform/logging"
	"github.com/spf13/cobra"
)

type sweepRunner interface {
	Run(ctx context.Context) (*app.SweepReport, error)
}

type sweepOptions struct {
	dryRun  bool
	timeout time.Duration
}

// NewSweepCommand runs a single reveal sweep against the configured database.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &sweepOptions{}

	cmd := &cobra.Command{
		Use:   "sweep",
		Short: "Reveal every capsule that is due and notify its owner",
		Long: `Run one reveal sweep against DATABASE_URL. Notifications go through the
email API when EMAIL_API_KEY is set and to the log otherwise. Safe to run while
servers are sweeping: each capsule is claimed by exactly one sweep.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logging.InitLogger(cfg.LogLevel, cfg.LogFormat)

			ctx, cancel := context.WithTimeout(cmd.Context(), opts.timeout)
			defer cancel()
			ctx = correlation.WithID(ctx, correlation.NewSweepID())

			pool, err := postgres.Connect(ctx, cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer pool.Close()

			cipher, err := crypto.New(cfg.MessageEncryptionKey)
			if err != nil {
				return err
			}

			clock := clockwork.NewRealClock()
			capsules := postgres.NewCapsuleRepo(pool, cipher)

			if opts.dryRun {
				return listDue(ctx, capsules, clock.Now(), cmd.OutOrStdout(), rootOpts.Format)
			}

			notifier := notify.NewSender(notify.EmailConfig{
				Endpoint: cfg.EmailAPIURL,
				APIKey:   cfg.EmailAPIKey,
				From:     cfg.EmailFrom,
				AppURL:   cfg.AppURL,
				Location: cfg.Location(),
			})
			sweeper := app.NewRevealSweeper(capsules, postgres.NewResponseRepo(pool, cipher), postgres.NewUserRepo(pool), notifier, clock, cfg.SweepConcurrency)
			return runSweep(ctx, sweeper, cmd.OutOrStdout(), rootOpts.Format)
		},
	}

	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "list due capsules without revealing them")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 5*time.Minute, "maximum time for the sweep")

	return cmd
}

type dueCapsule struct {
	ID       string    `json:"id"`
	OwnerID  string    `json:"owner_id"`
	RevealAt time.Time `json:"reveal_at"`
}

func listDue(ctx context.Context, capsules domain.CapsuleRepository, now time.Time, w io.Writer, format string) error {
	due, err := capsules.ListDue(ctx, now)
	if err != nil {
		return fmt.Errorf("failed to list due capsules: %w", err)
	}

	out := make([]dueCapsule, 0, len(due))
	for _, c := range due {
		out = append(out, dueCapsule{ID: c.ID.String(), OwnerID: c.OwnerID.String(), RevealAt: c.RevealAt})
	}
	if format == "json" {
		return writeJSON(w, out)
	}

	if _, err := fmt.Fprintf(w, "%d capsule(s) due\n", len(out)); err != nil {
		return err
	}
	for _, c := range out {
		if _, err := fmt.Fprintf(w, "%s  owner=%s  reveal_at=%s\n", c.ID, c.OwnerID, c.RevealAt.Format(time.RFC3339)); err != nil {
			return err
		}
	}
	return nil
}

type sweepErrorOutput struct {
	CapsuleID string `json:"capsule_id"`
	Step      string `json:"step"`
	Error     string `json:"error"`
}

type sweepOutput struct {
	TotalDue      int                `json:"total_due"`
	RevealedCount int                `json:"revealed_count"`
	SkippedCount  int                `json:"skipped_count"`
	Errors        []sweepErrorOutput `json:"errors"`
}

func runSweep(ctx context.Context, sweeper sweepRunner, w io.Writer, format string) error {
	report, err := sweeper.Run(ctx)
	if err != nil {
		return fmt.Errorf("sweep failed: %w", err)
	}

	out := sweepOutput{
		TotalDue:      report.TotalDue,
		RevealedCount: report.RevealedCount,
		SkippedCount:  report.SkippedCount,
		Errors:        make([]sweepErrorOutput, 0, len(report.Errors)),
	}
	for _, e := range report.Errors {
		out.Errors = append(out.Errors, sweepErrorOutput{CapsuleID: e.CapsuleID.String(), Step: e.Step, Error: e.Err.Error()})
	}
	if format == "json" {
		return writeJSON(w, out)
	}

	if _, err := fmt.Fprintf(w, "due: %d  revealed: %d  skipped: %d  errors: %d\n",
		out.TotalDue, out.RevealedCount, out.SkippedCount, len(out.Errors)); err != nil {
		return err
	}
	for _, e := range out.Errors {
		if _, err := fmt.Fprintf(w, "  %s  %s: %s\n", e.CapsuleID, e.Step, e.Error); err != nil {
			return err
		}
	}
	return nil
}
