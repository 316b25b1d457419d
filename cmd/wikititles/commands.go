package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/heartmarshall/wikititles/internal/adapter/postgres"
	"github.com/heartmarshall/wikititles/internal/app"
	"github.com/heartmarshall/wikititles/internal/app/ingest"
	"github.com/heartmarshall/wikititles/internal/config"
	"github.com/heartmarshall/wikititles/internal/domain"
)

// translateTimeout bounds a single resolution including store connects.
const translateTimeout = 30 * time.Second

// cliState is shared by every subcommand of one invocation.
type cliState struct {
	configPath string
	logLevel   string

	cfg *config.Config
	log *slog.Logger
	app *app.App
}

func (s *cliState) init(cmd *cobra.Command, _ []string) error {
	cfg, err := config.LoadFile(s.configPath)
	if err != nil {
		return err
	}
	if s.logLevel != "" {
		cfg.Log.Level = s.logLevel
	}
	s.cfg = cfg
	s.log = app.NewLogger(cfg.Log)

	a, err := app.New(cfg, s.log)
	if err != nil {
		return err
	}
	s.app = a
	return nil
}

func (s *cliState) close() error {
	if s.app == nil {
		return nil
	}
	return s.app.Close()
}

func newRootCommand(state *cliState) *cobra.Command {
	root := &cobra.Command{
		Use:   "wikititles",
		Short: "Cross-lingual encyclopedia title resolution",
		Long: `wikititles translates article titles between encyclopedia languages
using the page and langlinks tables of the public SQL dumps.

Examples:
  wikititles ingest                       # parse ./dumps into tables and indexes
  wikititles translate bratislava sk fi   # resolve a Slovak title to Finnish
  wikititles build --secondary de,en      # fill the cluster store`,
		Version:           app.BuildVersion(),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: state.init,
	}
	root.PersistentFlags().StringVar(&state.configPath, "config", "", "config file (default is $CONFIG_PATH or ./config.yaml)")
	root.PersistentFlags().StringVar(&state.logLevel, "log-level", "", "override log level (debug, info, warn, error)")

	root.AddCommand(
		newIngestCommand(state),
		newBuildCommand(state),
		newTranslateCommand(state),
		newStatsCommand(state),
		newBacklinksCommand(state),
		newMigrateCommand(state),
		newStatusCommand(state),
		newVersionCommand(),
	)
	return root
}

func newIngestCommand(state *cliState) *cobra.Command {
	var (
		opts  ingest.Options
		langs string
	)
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Parse dump files into page tables, link tables and Title Indexes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var err error
			if opts.Languages, err = config.ParseLanguages(langs); err != nil {
				return err
			}
			report, err := state.app.Ingest(cmd.Context(), opts)
			if err != nil {
				return err
			}
			renderIngest(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&opts.PagesOnly, "pages-only", "p", false, "only parse page dumps")
	cmd.Flags().BoolVarP(&opts.LangLinksOnly, "langlinks-only", "l", false, "only parse langlinks dumps")
	cmd.Flags().BoolVarP(&opts.Force, "force", "f", false, "rebuild existing Title Indexes")
	cmd.Flags().StringVar(&langs, "lang", "", "comma-separated languages to ingest (default: all found)")
	return cmd
}

func newBuildCommand(state *cliState) *cobra.Command {
	var secondary string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Join every primary/secondary language pair into the cluster store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			langs, err := config.ParseLanguages(secondary)
			if err != nil {
				return err
			}
			report, err := state.app.Build(cmd.Context(), langs)
			if report != nil {
				renderBuild(cmd.OutOrStdout(), report)
			}
			if err != nil {
				return err
			}
			if report.HasFailures() {
				return fmt.Errorf("%d of %d units failed", len(report.Failed), report.Total)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&secondary, "secondary", "", "comma-separated target languages (default: config, then all ingested)")
	return cmd
}

func newTranslateCommand(state *cliState) *cobra.Command {
	var (
		showUntranslated bool
		raw              bool
	)
	cmd := &cobra.Command{
		Use:   "translate TITLE FROM TO",
		Short: "Resolve a title from one language to another",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), translateTimeout)
			defer cancel()

			res, err := state.app.Translate(ctx, args[0], args[1], args[2])
			var notFound *domain.PageNotFoundError
			if errors.As(err, &notFound) {
				renderNotFound(cmd.OutOrStdout(), notFound)
				return err
			}
			if err != nil {
				return err
			}
			show := showUntranslated || state.cfg.Resolver.ShowUntranslated
			renderResult(cmd.OutOrStdout(), res, show, raw)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&showUntranslated, "show-untranslated", "u", false, "list titles found without a translation")
	cmd.Flags().BoolVar(&raw, "raw", false, "print the joined rows without namespace cleanup or deduplication")
	return cmd
}

func newStatsCommand(state *cliState) *cobra.Command {
	var langs string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Report page and link table statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			list, err := config.ParseLanguages(langs)
			if err != nil {
				return err
			}
			if len(list) == 0 {
				list = state.cfg.Languages.Primary
			}
			st, err := state.app.Stats().Compute(cmd.Context(), list, state.app.Info().AllLangs)
			if err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), st)
			return nil
		},
	}
	cmd.Flags().StringVar(&langs, "lang", "", "comma-separated languages (default: primary)")
	return cmd
}

func newBacklinksCommand(state *cliState) *cobra.Command {
	var from, to string
	cmd := &cobra.Command{
		Use:   "backlinks",
		Short: "Check that language links lead back to their source page",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			pairs := []domain.Pair{{Source: from, Target: to}}
			if from == "" && to == "" {
				pairs = nil
				primary := state.cfg.Languages.Primary
				for _, a := range primary {
					for _, b := range primary {
						if a != b {
							pairs = append(pairs, domain.Pair{Source: a, Target: b})
						}
					}
				}
			}

			svc := state.app.Stats()
			for _, p := range pairs {
				report, err := svc.Backlinks(cmd.Context(), p.Source, p.Target)
				if err != nil {
					return err
				}
				renderBacklinks(cmd.OutOrStdout(), report)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "source language (default: every primary pair)")
	cmd.Flags().StringVar(&to, "to", "", "target language")
	cmd.MarkFlagsRequiredTogether("from", "to")
	return cmd
}

func newStatusCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show ingested tables, Title Indexes and the last bulk build",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := state.app.Status(cmd.Context())
			if err != nil {
				return err
			}
			renderStatus(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newMigrateCommand(state *cliState) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down|status]",
		Short:     "Apply the cluster store schema",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{postgres.MigrateUp, postgres.MigrateDown, postgres.MigrateStatus},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := postgres.MigrateUp
			if len(args) == 1 {
				direction = args[0]
			}
			return state.app.Migrate(cmd.Context(), direction)
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		// Skip config loading.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.BuildVersion())
		},
	}
}
