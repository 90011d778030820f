// Package cli defines the polyglot command tree: the HTTP server and the
// maintenance commands that reconcile orphaned overrides, report
// translation statistics and purge expired rows.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"regexp"
	"strings"
	"syscall"
	"text/tabwriter"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/tbourn/go-polyglot/internal/app"
	"github.com/tbourn/go-polyglot/internal/config"
	"github.com/tbourn/go-polyglot/internal/domain"
	"github.com/tbourn/go-polyglot/internal/repo"
	"github.com/tbourn/go-polyglot/internal/services"
	"github.com/tbourn/go-polyglot/internal/sysutil"
)

// defaultEnvFile is read when present; a missing default is not an error.
const defaultEnvFile = ".env"

var (
	localeRE = regexp.MustCompile(`^[A-Za-z]{2,3}([_-][A-Za-z0-9]{2,8})*$`)
	modelRE  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
)

// Builder wires an App from configuration. app.Build in production.
type Builder func(ctx context.Context, cfg config.Config, log zerolog.Logger) (*app.App, error)

type root struct {
	envFile string
	build   Builder
	cfg     config.Config
}

// NewRootCommand returns the polyglot command with all subcommands.
func NewRootCommand(build Builder) *cobra.Command {
	r := &root{build: build}
	cmd := &cobra.Command{
		Use:           "polyglot",
		Short:         "Per-field, per-locale translation service",
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return r.setup()
		},
	}
	cmd.PersistentFlags().StringVar(&r.envFile, "env-file", "", "dotenv file to load (default $POLYGLOT_ENV_FILE or .env)")

	cmd.AddCommand(r.serveCommand(), r.cleanOrphanedCommand(), r.statsCommand(), r.purgeCommand())
	return cmd
}

// setup loads the dotenv file, the configuration and the global logger.
func (r *root) setup() error {
	if err := loadEnvFile(r.envFile); err != nil {
		return err
	}
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	r.cfg = cfg
	sysutil.InitLogging(sysutil.LogOptions{
		Level:   cfg.LogLevel,
		Pretty:  cfg.LogPretty,
		Service: cfg.OTEL.ServiceName,
		Version: app.Version,
	})
	return nil
}

// loadEnvFile loads explicit, else $POLYGLOT_ENV_FILE, else .env. Values
// already present in the environment win. Only a missing default file is
// tolerated.
func loadEnvFile(explicit string) error {
	path := sysutil.FirstNonEmpty(explicit, os.Getenv("POLYGLOT_ENV_FILE"))
	optional := path == ""
	if optional {
		path = defaultEnvFile
	}
	path = strings.TrimSpace(path)
	if err := godotenv.Load(path); err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load env file %s: %w", path, err)
	}
	return nil
}

func (r *root) open(ctx context.Context) (*app.App, error) {
	return r.build(ctx, r.cfg, log.Logger)
}

// ---------- serve ----------

func (r *root) serveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := r.open(ctx)
			if err != nil {
				return err
			}
			defer func() {
				if err := a.Close(context.Background()); err != nil {
					log.Error().Err(err).Msg("close")
				}
			}()
			return a.ListenAndServe(ctx)
		},
	}
}

// ---------- clean-orphaned ----------

func (r *root) cleanOrphanedCommand() *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "clean-orphaned",
		Short: "Remove translations whose owning record no longer exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())
			return cleanOrphaned(cmd.Context(), cmd.OutOrStdout(), a.Maintenance, dryRun)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list orphaned translations without deleting them")
	return cmd
}

// OrphanCleaner is the maintenance surface used by clean-orphaned.
type OrphanCleaner interface {
	Orphans(ctx context.Context) ([]domain.Translation, error)
	CleanOrphans(ctx context.Context) (int, error)
}

func cleanOrphaned(ctx context.Context, out io.Writer, m OrphanCleaner, dryRun bool) error {
	fmt.Fprintln(out, "Scanning for orphaned translations...")
	orphans, err := m.Orphans(ctx)
	if err != nil {
		return fmt.Errorf("scan orphans: %w", err)
	}
	if len(orphans) == 0 {
		fmt.Fprintln(out, "No orphaned translations found.")
		return nil
	}
	fmt.Fprintf(out, "Found %d orphaned translation(s).\n", len(orphans))

	if dryRun {
		fmt.Fprintln(out, "Dry run: no records were deleted.")
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tMODEL\tMODEL ID\tFIELD\tLOCALE")
		for _, t := range orphans {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", t.ID, t.EntityType, t.EntityID, t.Field, t.Locale)
		}
		return tw.Flush()
	}

	n, err := m.CleanOrphans(ctx)
	if err != nil {
		return fmt.Errorf("clean orphans: %w", err)
	}
	fmt.Fprintf(out, "Deleted %d orphaned translation(s).\n", n)
	return nil
}

// ---------- purge ----------

func (r *root) purgeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired database cache entries and idempotency keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			entries, err := repo.NewDBCache(a.DB).Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge cache: %w", err)
			}
			keys, err := a.Idempotency.Purge(cmd.Context())
			if err != nil {
				return fmt.Errorf("purge idempotency keys: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Purged %d cache entr(ies) and %d idempotency key(s).\n", entries, keys)
			return nil
		},
	}
}

// ---------- stats ----------

type statsOptions struct {
	Model  string
	Locale string
	Format string
}

func (o statsOptions) Validate() error {
	return validation.ValidateStruct(&o,
		validation.Field(&o.Model, validation.Match(modelRE).Error("must be an entity type tag such as post")),
		validation.Field(&o.Locale, validation.Match(localeRE).Error("must be a locale code such as pt_BR")),
		validation.Field(&o.Format, validation.Required, validation.In("text", "json")),
	)
}

func (o statsOptions) filter() repo.StatsFilter {
	return repo.StatsFilter{EntityType: o.Model, Locale: o.Locale}
}

func (r *root) statsCommand() *cobra.Command {
	var opt statsOptions
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Display translation statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := opt.Validate(); err != nil {
				return err
			}
			a, err := r.open(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close(context.Background())

			rep, err := a.Maintenance.Stats(cmd.Context(), opt.filter())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			if opt.Format == "json" {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(rep)
			}
			return writeStats(cmd.OutOrStdout(), rep)
		},
	}
	cmd.Flags().StringVar(&opt.Model, "model", "", "only count translations of this entity type")
	cmd.Flags().StringVar(&opt.Locale, "locale", "", "only count translations in this locale")
	cmd.Flags().StringVar(&opt.Format, "format", "text", "output format: text or json")
	return cmd
}

func writeStats(out io.Writer, rep *services.StatsReport) error {
	fmt.Fprintln(out, "Translation Statistics")
	if rep.Filter.EntityType != "" || rep.Filter.Locale != "" {
		fmt.Fprintf(out, "Filter: model=%q locale=%q\n", rep.Filter.EntityType, rep.Filter.Locale)
	}
	fmt.Fprintf(out, "\nTotal translations: %d\n", rep.Total)

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	groups := []struct {
		title, column string
		rows          []repo.GroupCount
	}{
		{"Translations by model", "MODEL", rep.ByType},
		{"Translations by locale", "LOCALE", rep.ByLocale},
		{"Most translated fields", "FIELD", rep.TopFields},
	}
	for _, g := range groups {
		fmt.Fprintf(tw, "\n%s:\n", g.title)
		if len(g.rows) == 0 {
			fmt.Fprintln(tw, "  No translations found.")
			continue
		}
		fmt.Fprintf(tw, "  %s\tCOUNT\n", g.column)
		for _, row := range g.rows {
			fmt.Fprintf(tw, "  %s\t%d\n", row.Name, row.Total)
		}
	}

	fmt.Fprintln(tw, "\nRecently updated:")
	if len(rep.Recent) == 0 {
		fmt.Fprintln(tw, "  No translations found.")
	} else {
		fmt.Fprintln(tw, "  MODEL\tMODEL ID\tFIELD\tLOCALE\tUPDATED")
		for _, t := range rep.Recent {
			fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\t%s\n", t.EntityType, t.EntityID, t.Field, t.Locale, t.UpdatedAt.Format("2006-01-02 15:04:05"))
		}
	}
	return tw.Flush()
}
