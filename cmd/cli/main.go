package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/kurihiro0119/gitwaka-bot/internal/aggregator"
	"github.com/kurihiro0119/gitwaka-bot/internal/api"
	"github.com/kurihiro0119/gitwaka-bot/internal/app"
	"github.com/kurihiro0119/gitwaka-bot/internal/checker"
	"github.com/kurihiro0119/gitwaka-bot/internal/config"
	"github.com/kurihiro0119/gitwaka-bot/internal/domain"
	"github.com/kurihiro0119/gitwaka-bot/internal/notifier"
	"github.com/kurihiro0119/gitwaka-bot/internal/report"
	"github.com/kurihiro0119/gitwaka-bot/pkg/client"
)

var (
	cfgFile     string
	outputJSON  bool
	startDate   string
	endDate     string
	granularity string
	dryRun      bool
)

var rootCmd = &cobra.Command{
	Use:   "gitwaka",
	Short: "GitWaka daily activity checks",
	Long: `A CLI for the GitWaka bot.

It checks today's GitHub commits and WakaTime coding time, sends the
report to Telegram, and shows the stored report history.`,
	SilenceUsage: true,
}

var todayCmd = &cobra.Command{
	Use:   "today",
	Short: "Show today's status",
	Long:  `Query GitHub and WakaTime and print today's classified status without sending it.`,
	Args:  cobra.NoArgs,
	RunE:  runToday,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Run a status check",
	Long:  `Run one status check and send the report to the configured Telegram chat.`,
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show stored reports",
	Long:  `Display the status checks recorded in the report history.`,
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

var historySummaryCmd = &cobra.Command{
	Use:   "summary",
	Short: "Summarize stored reports",
	Long:  `Display the report history aggregated per day, week or month.`,
	Args:  cobra.NoArgs,
	RunE:  runHistorySummary,
}

var triggerCmd = &cobra.Command{
	Use:   "trigger",
	Short: "Ask the running bot to run a check",
	Long:  `Ask a running bot, through its HTTP API, to run a status check and report it to the chat.`,
	Args:  cobra.NoArgs,
	RunE:  runTrigger,
}

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check that the running bot's API is healthy",
	Args:  cobra.NoArgs,
	RunE:  runPing,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .env)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "output in JSON format")

	historyCmd.PersistentFlags().StringVar(&startDate, "start", "", "start date (YYYY-MM-DD, default 6 days before end)")
	historyCmd.PersistentFlags().StringVar(&endDate, "end", "", "end date (YYYY-MM-DD, default today)")
	historySummaryCmd.Flags().StringVar(&granularity, "granularity", "day", "time granularity (day, week, month)")

	checkCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the report instead of sending it")

	rootCmd.AddCommand(todayCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(historyCmd)
	historyCmd.AddCommand(historySummaryCmd)
	rootCmd.AddCommand(triggerCmd)
	rootCmd.AddCommand(pingCmd)
}

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		cancel()
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// sourceFields are the settings needed to query GitHub and WakaTime
var sourceFields = []string{"GitHubToken", "GitHubUsername", "GitHubAPIURL", "WakaTimeAPIKey", "WakaTimeBaseURL", "Timezone", "LogLevel", "LogFormat"}

// loadConfig loads the configuration and validates the named fields, or all
// of them when none are named
func loadConfig(fields ...string) (*config.Config, error) {
	if cfgFile != "" {
		if err := godotenv.Load(cfgFile); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(fields...); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func runToday(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(sourceFields...)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.LogLevel, "text", os.Stderr)

	commits, coding := app.NewSources(cfg, logger)
	c := checker.New(checker.Config{Commits: commits, Coding: coding, Logger: logger})

	res, err := c.Today(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to check status: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, api.ToStatusResponse(res))
	}

	fmt.Fprintf(out, "\nToday's status (%s)\n\n", time.Now().In(cfg.Location()).Format("2006-01-02"))
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Metric", "Value"})
	table.Append([]string{"Commits", fmt.Sprintf("%d", res.Report.CommitCount)})
	table.Append([]string{"Coding Time", report.FormatDuration(res.Report.CodingSeconds)})
	table.Append([]string{"Classification", string(res.Classification)})
	table.Render()
	fmt.Fprintf(out, "\n%s\n", res.Text)
	return nil
}

func runCheck(cmd *cobra.Command, args []string) error {
	var fields []string
	if dryRun {
		fields = sourceFields
	}
	cfg, err := loadConfig(fields...)
	if err != nil {
		return err
	}
	logger := app.NewLogger(cfg.LogLevel, "text", os.Stderr)

	var n notifier.Notifier = notifier.NewWriterNotifier(cmd.OutOrStdout())
	var recorder checker.Recorder
	if !dryRun {
		n, err = notifier.NewTelegramTransport(notifier.TelegramConfig{
			Token:       cfg.TelegramToken,
			APIEndpoint: cfg.TelegramAPIEndpoint,
			Logger:      logger,
		})
		if err != nil {
			return err
		}

		store, err := app.OpenStorage(cfg)
		if err != nil {
			return err
		}
		if store != nil {
			defer store.Close()
			recorder = store
		}
	}

	commits, coding := app.NewSources(cfg, logger)
	c := checker.New(checker.Config{
		Commits:  commits,
		Coding:   coding,
		Notifier: n,
		ChatID:   cfg.TelegramChatID,
		Recorder: recorder,
		Logger:   logger,
	})
	if err := c.Run(cmd.Context(), domain.TriggerCLI); err != nil {
		return err
	}
	if !dryRun {
		fmt.Fprintln(cmd.OutOrStdout(), "Report sent.")
	}
	return nil
}

// history is an open report history and the range a command queries
type history struct {
	agg       aggregator.Aggregator
	loc       *time.Location
	timeRange domain.TimeRange
	close     func()
}

func openHistory(gran string) (*history, error) {
	cfg, err := loadConfig("StorageType", "PostgresURL", "Timezone")
	if err != nil {
		return nil, err
	}
	if !cfg.StorageEnabled() {
		return nil, errors.New("report history is disabled; set STORAGE_TYPE to sqlite or postgres")
	}

	loc := cfg.Location()
	timeRange, err := api.ParseTimeRange(startDate, endDate, gran, time.Now().In(loc))
	if err != nil {
		return nil, err
	}

	store, err := app.OpenStorage(cfg)
	if err != nil {
		return nil, err
	}
	return &history{
		agg:       aggregator.NewAggregator(store),
		loc:       loc,
		timeRange: timeRange,
		close:     func() { _ = store.Close() },
	}, nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	h, err := openHistory("day")
	if err != nil {
		return err
	}
	defer h.close()

	reports, err := h.agg.Reports(cmd.Context(), h.timeRange)
	if err != nil {
		return fmt.Errorf("failed to get reports: %w", err)
	}

	out := cmd.OutOrStdout()
	loc := h.loc
	if outputJSON {
		data := make([]api.ReportResponse, 0, len(reports))
		for _, r := range reports {
			data = append(data, api.ToReportResponse(r, loc))
		}
		return writeJSON(out, data)
	}

	fmt.Fprintf(out, "\nReports: %s to %s\n\n", h.timeRange.Start.Format("2006-01-02"), h.timeRange.End.Format("2006-01-02"))
	table := tablewriter.NewWriter(out)
	table.SetHeader([]string{"Checked At", "Trigger", "Commits", "Coding Time", "Classification"})
	for _, r := range reports {
		table.Append([]string{
			r.CheckedAt.In(loc).Format("2006-01-02 15:04"),
			string(r.Trigger),
			fmt.Sprintf("%d", r.CommitCount),
			report.FormatDuration(r.CodingSeconds),
			string(r.Classification),
		})
	}
	table.Render()
	return nil
}

func runHistorySummary(cmd *cobra.Command, args []string) error {
	h, err := openHistory(granularity)
	if err != nil {
		return err
	}
	defer h.close()

	summary, err := h.agg.Summarize(cmd.Context(), h.timeRange)
	if err != nil {
		return fmt.Errorf("failed to summarize reports: %w", err)
	}

	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, api.ToSummaryResponse(summary, h.loc))
	}

	fmt.Fprintf(out, "\nReport Summary: %s to %s (%s)\n\n", h.timeRange.Start.Format("2006-01-02"), h.timeRange.End.Format("2006-01-02"), h.timeRange.Granularity)
	totals := tablewriter.NewWriter(out)
	totals.SetHeader([]string{"Metric", "Value"})
	totals.Append([]string{"Checks", fmt.Sprintf("%d", summary.Checks)})
	totals.Append([]string{"Max Commits", fmt.Sprintf("%d", summary.MaxCommits)})
	totals.Append([]string{"Max Coding Time", report.FormatDuration(summary.MaxCodingSeconds)})
	for _, class := range []domain.Classification{
		domain.ClassificationGood,
		domain.ClassificationLowTime,
		domain.ClassificationNoCommits,
		domain.ClassificationNoCommitsLowTime,
	} {
		totals.Append([]string{string(class), fmt.Sprintf("%d", summary.Classifications[class])})
	}
	totals.Render()
	fmt.Fprintln(out)

	periods := tablewriter.NewWriter(out)
	periods.SetHeader([]string{"Period", "Checks", "Max Commits", "Max Coding Time", "Last Classification"})
	for _, p := range summary.Periods {
		periods.Append([]string{
			p.Start.Format("2006-01-02"),
			fmt.Sprintf("%d", p.Checks),
			fmt.Sprintf("%d", p.MaxCommits),
			report.FormatDuration(p.MaxCodingSeconds),
			string(p.LastClassification),
		})
	}
	periods.Render()
	return nil
}

func runTrigger(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("APIEndpoint")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 2*time.Minute)
	defer cancel()
	if err := client.NewClient(cfg.APIEndpoint).TriggerCheck(ctx); err != nil {
		return fmt.Errorf("failed to trigger check: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Check triggered; the report was sent to the chat.")
	return nil
}

func runPing(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig("APIEndpoint")
	if err != nil {
		return err
	}

	if err := client.NewClient(cfg.APIEndpoint).HealthCheck(cmd.Context()); err != nil {
		return fmt.Errorf("bot API is not healthy: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is healthy\n", cfg.APIEndpoint)
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
