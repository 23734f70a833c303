package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/asaidimu/go-cdibase/core/persistence"
	"github.com/asaidimu/go-cdibase/core/query"
	"github.com/asaidimu/go-cdibase/core/schema"
	"github.com/asaidimu/go-cdibase/utils"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

func newRootCommand(a *app) *cobra.Command {
	var configFile string
	var traceEvents bool

	root := &cobra.Command{
		Use:           "cdibase",
		Short:         "Query CDI snapshot records and export CSV reports",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.open(cmd.Context(), configFile); err != nil {
				return err
			}
			if traceEvents {
				a.traceEvents(cmd.ErrOrStderr())
			}
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&configFile, "config", "", "config file (default ./cdibase.yaml or $HOME/.cdibase/cdibase.yaml)")
	flags.String("log-level", "", "log level (debug, info, warn, error)")
	flags.String("driver", "", "database driver (sqlite3, sqlite, pgx)")
	flags.String("dsn", "", "database connection string")
	flags.BoolVar(&traceEvents, "trace-events", false, "print query, update and report events to stderr")
	_ = a.v.BindPFlag("log.level", flags.Lookup("log-level"))
	_ = a.v.BindPFlag("database.driver", flags.Lookup("driver"))
	_ = a.v.BindPFlag("database.dsn", flags.Lookup("dsn"))

	root.AddCommand(
		newInitCommand(a),
		newImportCommand(a),
		newSearchCommand(a),
		newReportCommand(a),
		newUpdateCommand(a, "delete", "Soft delete the records matching the filters"),
		newUpdateCommand(a, "restore", "Restore soft deleted records matching the filters"),
		newFormatCommand(a),
	)
	return root
}

// filterFlags are the flags shared by every command that selects records.
type filterFlags struct {
	where          []string
	includeDeleted bool
	strict         bool
}

func (f *filterFlags) register(cmd *cobra.Command, withDeleted bool) {
	cmd.Flags().StringArrayVarP(&f.where, "where", "w", nil, `filter as "field operator operand", e.g. "age gteq 18" (repeatable)`)
	cmd.Flags().BoolVar(&f.strict, "strict", false, "reject unknown fields and operators instead of ignoring them")
	if withDeleted {
		cmd.Flags().BoolVar(&f.includeDeleted, "include-deleted", false, "include soft deleted records")
	}
}

func (f *filterFlags) filters() ([]query.Filter, error) {
	return query.ParseFilters(f.where)
}

func (f *filterFlags) excludeDeleted(cmd *cobra.Command, a *app) bool {
	if cmd.Flags().Changed("include-deleted") {
		return !f.includeDeleted
	}
	return a.cfg.Report.ExcludeDeleted
}

func newInitCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the database tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.CreateTables(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized tables in %s\n", a.cfg.Database.DSN)
			return nil
		},
	}
}

// importRecord is one snapshot in an import file.
type importRecord struct {
	schema.SnapshotMetadata `yaml:",inline"`
	Answers                 map[string]int `yaml:"answers"`
}

func newImportCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import snapshots and their answers from a YAML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			var records []importRecord
			if err := yaml.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("failed to decode %s: %w", args[0], err)
			}
			for i, record := range records {
				var answers []schema.WordAnswerEntry
				for _, word := range utils.SortedKeys(record.Answers) {
					answers = append(answers, schema.WordAnswerEntry{Word: word, Value: record.Answers[word], Revision: record.Revision})
				}
				if _, err := a.store.InsertSnapshot(cmd.Context(), record.SnapshotMetadata, answers); err != nil {
					return fmt.Errorf("record %d: %w", i, err)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d snapshots\n", len(records))
			return nil
		},
	}
}

func newSearchCommand(a *app) *cobra.Command {
	var ff filterFlags
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Print the records matching the filters as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := ff.filters()
			if err != nil {
				return err
			}
			records, err := a.executor(ff.strict).RunSearchQuery(cmd.Context(), filters, ff.excludeDeleted(cmd, a))
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			for _, record := range records {
				if err := enc.Encode(record); err != nil {
					return err
				}
			}
			return nil
		},
	}
	ff.register(cmd, true)
	return cmd
}

func newReportCommand(a *app) *cobra.Command {
	var ff filterFlags
	var presentation, kind, out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Export the records matching the filters as CSV",
		Long: `Export the records matching the filters.

Kinds:
  study         zip archive with one <study>.csv per study (default)
  consolidated  one CSV holding every record`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			filters, err := ff.filters()
			if err != nil {
				return err
			}
			format, err := a.presentationFormat(ctx, presentation)
			if err != nil {
				return err
			}
			records, err := a.executor(ff.strict).RunSearchQuery(ctx, filters, ff.excludeDeleted(cmd, a))
			if err != nil {
				return err
			}

			var data []byte
			switch kind {
			case "study":
				data, err = a.generator().GenerateStudyReport(ctx, records, format)
			case "consolidated":
				data, err = a.generator().GenerateConsolidatedStudyReport(ctx, records, format)
			default:
				return fmt.Errorf("unknown report kind %q", kind)
			}
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), out, data)
		},
	}
	ff.register(cmd, true)
	cmd.Flags().StringVarP(&presentation, "presentation", "p", "", "presentation format name")
	cmd.Flags().StringVarP(&kind, "kind", "k", "study", "report kind (study, consolidated)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	return cmd
}

func newUpdateCommand(a *app, name, short string) *cobra.Command {
	var ff filterFlags
	var all bool
	cmd := &cobra.Command{
		Use:   name,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filters, err := ff.filters()
			if err != nil {
				return err
			}
			if len(filters) == 0 && !all {
				return errors.New("refusing to touch every record without --all")
			}
			exec := a.executor(ff.strict)
			var affected int64
			if name == "delete" {
				affected, err = exec.RunDeleteQuery(cmd.Context(), filters)
			} else {
				affected, err = exec.RunRestoreQuery(cmd.Context(), filters)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d records affected\n", affected)
			return nil
		},
	}
	ff.register(cmd, false)
	cmd.Flags().BoolVar(&all, "all", false, "allow running without filters")
	return cmd
}

func newFormatCommand(a *app) *cobra.Command {
	var kind string
	cmd := &cobra.Command{
		Use:   "format",
		Short: "Manage presentation and CDI formats",
	}
	cmd.PersistentFlags().StringVar(&kind, "kind", string(schema.FormatKindCDI), "format kind (cdi, presentation)")
	formatKind := func() (schema.FormatKind, error) {
		switch k := schema.FormatKind(kind); k {
		case schema.FormatKindCDI, schema.FormatKindPresentation:
			return k, nil
		default:
			return "", fmt.Errorf("unknown format kind %q", kind)
		}
	}

	var name string
	add := &cobra.Command{
		Use:   "add FILE",
		Short: "Validate and store a format file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := formatKind()
			if err != nil {
				return err
			}
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			meta, issues, err := a.formats.Add(cmd.Context(), k, name, data)
			for _, issue := range issues {
				fmt.Fprintf(cmd.ErrOrStderr(), "%s %s %s: %s\n", issue.Severity, issue.Code, issue.Path, issue.Message)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %s format %s (%s)\n", k, meta.SafeName, meta.Filename)
			return nil
		},
	}
	add.Flags().StringVarP(&name, "name", "n", "", "human readable format name")
	_ = add.MarkFlagRequired("name")

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := formatKind()
			if err != nil {
				return err
			}
			rows, err := a.formats.List(cmd.Context(), k)
			if err != nil {
				return err
			}
			for _, row := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\n", row.SafeName, row.HumanName, row.Filename)
			}
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove NAME",
		Short: "Delete a stored format",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			k, err := formatKind()
			if err != nil {
				return err
			}
			removed, err := a.formats.Remove(cmd.Context(), k, args[0])
			if err != nil {
				return err
			}
			if !removed {
				return fmt.Errorf("no %s format named %q", k, args[0])
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s format %s\n", k, args[0])
			return nil
		},
	}

	cmd.AddCommand(add, list, remove)
	return cmd
}

func (a *app) presentationFormat(ctx context.Context, name string) (*schema.PresentationFormat, error) {
	if name == "" {
		return nil, nil
	}
	format, err := a.formats.LoadPresentationFormat(ctx, schema.SafeName(name))
	if err != nil {
		return nil, err
	}
	if format == nil {
		return nil, fmt.Errorf("no presentation format named %q", name)
	}
	return format, nil
}

// traceEvents prints every lifecycle event to w.
func (a *app) traceEvents(w io.Writer) {
	types := []persistence.PersistenceEventType{
		persistence.QueryStart, persistence.QuerySuccess, persistence.QueryFailed,
		persistence.UpdateStart, persistence.UpdateSuccess, persistence.UpdateFailed,
		persistence.ReportStart, persistence.ReportSuccess, persistence.ReportFailed,
	}
	for _, t := range types {
		a.events.RegisterSubscription(persistence.RegisterSubscriptionOptions{
			Event: t,
			Callback: func(ctx context.Context, event persistence.PersistenceEvent) error {
				var duration int64
				if event.Duration != nil {
					duration = *event.Duration
				}
				fmt.Fprintf(w, "%d %s %s %dms\n", event.Timestamp, event.Type, event.Operation, duration)
				return nil
			},
		})
	}
	a.logger.Debug("Tracing lifecycle events", zap.Int("subscriptions", len(a.events.Subscriptions())))
}

func writeOutput(stdout io.Writer, path string, data []byte) error {
	if path == "" {
		_, err := stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
