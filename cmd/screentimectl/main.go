package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"screentime/internal/amqp"
	"screentime/internal/backend"
	"screentime/internal/cli"
	"screentime/internal/config"
	"screentime/internal/core"
	"screentime/internal/dashboard"
	"screentime/internal/document"
	"screentime/internal/log"
	"screentime/internal/services"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var verbose bool

	root := &cobra.Command{
		Use:           "screentimectl",
		Short:         "Record and inspect screen-time survey data",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			cli.LoadEnvFile()
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			log.SetDefault(log.New(log.Config{Level: level, Component: "ctl", Output: cmd.ErrOrStderr()}))
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(newAppendCmd())
	root.AddCommand(newReplaceWeekCmd())
	root.AddCommand(newShowCmd())
	root.AddCommand(newActivitiesCmd())
	root.AddCommand(newSyncCmd())
	return root
}

// app is the configured store plus the optional event publisher.
type app struct {
	cfg       *config.Config
	store     *backend.BackendResult
	publisher *amqp.Client
}

func loadApp(ctx context.Context, withPublisher bool) (*app, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	result, err := backend.NewFactory(slog.Default()).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, store: result}
	if withPublisher && cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			slog.Warn("AMQP unavailable, record events disabled", "error", err)
		} else {
			a.publisher = client
		}
	}
	return a, nil
}

func (a *app) recorder() *services.Recorder {
	var pub services.EventPublisher
	if a.publisher != nil {
		pub = a.publisher
	}
	return services.NewRecorder(a.store.Backend, pub, a.cfg.Schema().WriteMode)
}

func (a *app) Close() {
	if a.publisher != nil {
		_ = a.publisher.Close()
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Backend close error", "error", err)
	}
}

func newAppendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "append <category> <hours>",
		Short: "Append one record to the store",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			hours, err := core.ParseHours(args[1])
			if err != nil {
				return err
			}
			if err := core.ValidateHours(hours); err != nil {
				return err
			}
			rec := core.Record{Category: strings.TrimSpace(args[0]), Value: hours}
			if err := rec.Validate(); err != nil {
				return err
			}

			a, err := loadApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.recorder().Append(cmd.Context(), rec); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "appended %s: %s hours\n", rec.Category, core.FormatValue(rec.Value))
			return nil
		},
	}
}

func newReplaceWeekCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "replace-week <Day=hours>...",
		Short: "Replace the store with one record per weekday",
		Long: "Replace the store with the seven weekday records. Days not given are written as 0;\n" +
			"hours outside 0..24 are clamped.",
		Example: "  screentimectl replace-week Monday=2 Tuesday=3.5 Sunday=6",
		RunE: func(cmd *cobra.Command, args []string) error {
			week, err := parseWeekArgs(args)
			if err != nil {
				return err
			}

			a, err := loadApp(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer a.Close()

			written, err := a.recorder().ReplaceWeek(cmd.Context(), week)
			if err != nil {
				return err
			}
			return printRecords(cmd.OutOrStdout(), written)
		},
	}
}

// parseWeekArgs reads Day=hours pairs. Day names match case-insensitively.
func parseWeekArgs(args []string) (map[string]float64, error) {
	week := make(map[string]float64, len(args))
	for _, arg := range args {
		name, raw, ok := strings.Cut(arg, "=")
		if !ok {
			return nil, &core.ValidationError{Field: arg, Reason: "expected Day=hours"}
		}
		day := ""
		for _, d := range core.Weekdays {
			if strings.EqualFold(d, strings.TrimSpace(name)) {
				day = d
				break
			}
		}
		if day == "" {
			return nil, &core.ValidationError{Field: name, Reason: "not a weekday"}
		}
		h, err := core.ParseHours(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", day, err)
		}
		week[day] = h
	}
	return week, nil
}

func newShowCmd() *cobra.Command {
	var (
		first    int
		minValue float64
		totals   bool
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			records, found, err := a.store.Backend.LoadRecords(cmd.Context())
			if err != nil {
				return err
			}
			if !found {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No CSV data available yet.")
				return nil
			}
			if cmd.Flags().Changed("first") {
				records = dashboard.TakeFirstN(records, dashboard.ClampN(first, len(records)))
			}
			records = dashboard.FilterByMinValue(records, minValue)

			if totals {
				return printTotals(cmd.OutOrStdout(), dashboard.TotalsByCategory(records))
			}
			return printRecords(cmd.OutOrStdout(), records)
		},
	}
	cmd.Flags().IntVarP(&first, "first", "n", 0, "only the first N records, clamped to 1..count")
	cmd.Flags().Float64Var(&minValue, "min", 0, "only records with at least this value")
	cmd.Flags().BoolVar(&totals, "totals", false, "sum values per category")
	return cmd
}

func newActivitiesCmd() *cobra.Command {
	var (
		minHours float64
		labels   []string
	)
	cmd := &cobra.Command{
		Use:   "activities",
		Short: "Print the activity document",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			loader, err := document.NewLoader(cfg.DocumentPath, cfg.Schema().MeasureField)
			if err != nil {
				return err
			}
			points, found, err := loader.LoadDocument(cmd.Context())
			if err != nil {
				return err
			}
			if !found {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "No JSON data available.")
				return nil
			}

			params := dashboard.ActivityParams{
				MinHours: minHours,
				Labels:   labels,
				Selected: cmd.Flags().Changed("label"),
			}
			if params.NothingSelected() {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Select at least one activity.")
				return nil
			}
			return printPoints(cmd.OutOrStdout(), params.Apply(points))
		},
	}
	cmd.Flags().Float64Var(&minHours, "min-hours", 0, "only activities with at least this many hours")
	cmd.Flags().StringSliceVarP(&labels, "label", "l", nil, "only these activities")
	return cmd
}

func newSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Copy the store into the mirror backend once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := loadApp(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer a.Close()

			mirrorCfg, err := backend.MirrorFromAppConfig(a.cfg)
			if err != nil {
				return err
			}
			mirror, err := backend.NewFactory(slog.Default()).CreateBackend(cmd.Context(), mirrorCfg)
			if err != nil {
				return err
			}
			defer func() { _ = mirror.Close() }()

			p := services.NewSyncProcessor(a.store.Backend, mirror.Backend, services.DefaultSyncProcessorConfig())
			changed, err := p.SyncOnce(cmd.Context())
			if err != nil {
				return err
			}
			if changed {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mirror %s updated\n", mirrorCfg.Type)
			} else {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "mirror %s already up to date\n", mirrorCfg.Type)
			}
			return nil
		},
	}
}

func printRecords(w io.Writer, records []core.Record) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintf(tw, "%s\t%s\t\n", core.StoreHeader[0], core.StoreHeader[1])
	for _, r := range records {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t\n", r.Category, core.FormatValue(r.Value))
	}
	_, _ = fmt.Fprintf(tw, "Total\t%s\t\n", core.FormatValue(dashboard.SumValues(records, dashboard.RecordValue)))
	return tw.Flush()
}

func printTotals(w io.Writer, totals []dashboard.CategoryTotal) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "Category\tTotal\t")
	for _, t := range totals {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t\n", t.Category, core.FormatValue(t.Total))
	}
	return tw.Flush()
}

func printPoints(w io.Writer, points []core.ActivityPoint) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	_, _ = fmt.Fprintln(tw, "Activity\tHours\tSessions\t")
	for _, p := range points {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%d\t\n", p.Label, core.FormatValue(p.Hours), p.Sessions)
	}
	_, _ = fmt.Fprintf(tw, "Total\t%s\t%s\t\n",
		core.FormatValue(dashboard.SumValues(points, dashboard.PointHours)),
		core.FormatValue(dashboard.SumValues(points, func(p core.ActivityPoint) float64 { return float64(p.Sessions) })))
	return tw.Flush()
}
