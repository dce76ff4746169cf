package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"timetrack/internal/backend"
	"timetrack/internal/config"
	"timetrack/internal/core"
	applog "timetrack/internal/log"
	"timetrack/internal/report"
	"timetrack/internal/services"
	"timetrack/internal/worker"
)

// CtlOptions carries what every timetrackctl subcommand shares.
type CtlOptions struct {
	Version string
	Clock   core.Clock
	Logger  *applog.Logger
	// Open returns the store to operate on. Defaults to the backend named
	// by the environment.
	Open func(ctx context.Context) (*backend.BackendResult, error)
}

func (o *CtlOptions) open(ctx context.Context) (*backend.BackendResult, error) {
	if o.Open != nil {
		return o.Open(ctx)
	}
	bcfg, err := backend.FromAppConfig(config.Load())
	if err != nil {
		return nil, err
	}
	return backend.NewFactory(o.Logger).CreateBackend(ctx, bcfg)
}

// NewCtlCommand builds the timetrackctl command tree.
func NewCtlCommand(opts *CtlOptions) *cobra.Command {
	if opts.Clock == nil {
		opts.Clock = core.SystemClock{}
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}

	cmd := &cobra.Command{
		Use:           "timetrackctl",
		Short:         "Maintenance commands for the timetrack backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newMigrateCommand(opts))
	cmd.AddCommand(newSweepCommand(opts))
	cmd.AddCommand(newReportCommand(opts))
	cmd.AddCommand(newVersionCommand(opts))
	return cmd
}

func newMigrateCommand(opts *CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Opening a SQL backend migrates it.
			res, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer res.Cleanup()
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

func newSweepCommand(opts *CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Remove time entries left behind by deactivated projects",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := opts.open(cmd.Context())
			if err != nil {
				return err
			}
			defer res.Cleanup()

			n, err := worker.NewCascadeWorker(res.Store, opts.Logger).Sweep(cmd.Context())
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries\n", n)
			return err
		},
	}
}

type reportOptions struct {
	email string
	kind  string
	from  string
	to    string
	out   string
}

func newReportCommand(opts *CtlOptions) *cobra.Command {
	ro := &reportOptions{}
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Render a PDF summary for one user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReport(cmd, opts, ro)
		},
	}
	cmd.Flags().StringVar(&ro.email, "email", "", "email of the user to report on")
	cmd.Flags().StringVar(&ro.kind, "kind", string(report.KindProjects), "report kind (projects|overview)")
	cmd.Flags().StringVar(&ro.from, "from", "", "first day, DD-MM-YYYY")
	cmd.Flags().StringVar(&ro.to, "to", "", "last day, DD-MM-YYYY")
	cmd.Flags().StringVarP(&ro.out, "out", "o", "", "output file (default: generated name in the current directory)")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func runReport(cmd *cobra.Command, opts *CtlOptions, ro *reportOptions) error {
	kind := report.Kind(ro.kind)
	if kind != report.KindProjects && kind != report.KindOverview {
		return fmt.Errorf("invalid kind %q: must be projects or overview", ro.kind)
	}

	ctx := cmd.Context()
	res, err := opts.open(ctx)
	if err != nil {
		return err
	}
	defer res.Cleanup()

	user, err := res.Store.GetUserByEmail(ctx, strings.ToLower(strings.TrimSpace(ro.email)))
	if err != nil {
		return fmt.Errorf("find user %s: %w", ro.email, err)
	}

	summary := services.NewSummaryService(res.Store, res.Store)
	f, err := summary.ParseRange(ro.from, ro.to)
	if err != nil {
		return err
	}

	out := ro.out
	if out == "" {
		out = report.Filename(kind, f)
	}
	file, err := os.Create(filepath.Clean(out))
	if err != nil {
		return fmt.Errorf("create %s: %w", out, err)
	}
	defer file.Close()

	if err := render(ctx, report.NewRenderer(opts.Clock), summary, file, kind, user.ID, f); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	if err := file.Close(); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
	return nil
}

func render(ctx context.Context, r *report.Renderer, summary *services.SummaryService, w io.Writer, kind report.Kind, ownerID string, f core.RangeFilter) error {
	if kind == report.KindOverview {
		overview, err := summary.Overview(ctx, ownerID, f)
		if err != nil {
			return err
		}
		return r.RenderOverview(w, overview, f)
	}
	projects, err := summary.Projects(ctx, ownerID, f)
	if err != nil {
		return err
	}
	return r.RenderProjects(w, projects, f)
}

func newVersionCommand(opts *CtlOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the build version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), opts.Version)
		},
	}
}
