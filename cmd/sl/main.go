package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"streakline/internal/app"
	"streakline/internal/config"
	"streakline/internal/db"
	"streakline/internal/domain"
	"streakline/internal/engine"
	"streakline/internal/events"
	"streakline/internal/server"
	"streakline/internal/tracker"
)

var rootCmd = &cobra.Command{
	Use:   "sl",
	Short: "Streakline CLI",
	Long: `Streakline tracks personal challenges: a goal pursued every day for a fixed number of days.
- Challenge: a name, a duration in days, and a start date (the day you create it).
- Progress: once a day, register whether you fulfilled the goal. The first registration of a day counts;
  later ones on the same day are kept as notes and do not move your streak.
- Streak: consecutive calendar days fulfilled. Missing a day or registering a failure resets it.
- Status: active until fulfilled days reach the duration, then completed. You can also set it by hand.
- Store: challenges live in .streakline/ as JSON (default), YAML or SQLite; see streakline.yml.
- Event log: with the sqlite backend every change is journaled, view it with 'sl log tail'.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
		if err := loadDotEnv(workspace); err != nil {
			return err
		}
		if _, err := db.EnsureWorkspace(workspace); err != nil {
			return err
		}
		return nil
	},
}

func main() {
	cobra.OnInitialize(initConfig)
	addPersistentFlags()
	registerCommands()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("error:", err)
		stop()
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("STREAKLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("backend", "", "store backend: json, yaml or sqlite (overrides streakline.yml)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log each change with its operation id")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("backend", rootCmd.PersistentFlags().Lookup("backend"))
	_ = viper.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
}

func registerCommands() {
	rootCmd.AddCommand(initCmd())
	rootCmd.AddCommand(createCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(showCmd())
	rootCmd.AddCommand(registerCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(deleteCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(useBackendCmd())
	rootCmd.AddCommand(serveCmd())
}

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default streakline.yml into the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")
	return cmd
}

func createCmd() *cobra.Command {
	var duration int
	var description string
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Create a challenge starting today",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				days := duration
				if !cmd.Flags().Changed("duration") {
					days = a.Config.Defaults.DurationDays
				}
				c, err := a.Engine.Create(ctx, tracker.CreateInput{
					Name:         strings.Join(args, " "),
					DurationDays: days,
					Description:  description,
				})
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(c)
				}
				fmt.Printf("Created challenge %d %q: %d days, %s to %s\n", c.ID, c.Name, c.DurationDays, c.StartDate, c.EndDate)
				return nil
			})
		},
	}
	cmd.Flags().IntVarP(&duration, "duration", "d", 0, "duration in days (default from streakline.yml)")
	cmd.Flags().StringVar(&description, "description", "", "description")
	return cmd
}

func listCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List challenges",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				var (
					items []tracker.Summary
					err   error
				)
				if status == "" || strings.EqualFold(status, tracker.FilterAll) {
					items, err = a.Engine.List(ctx)
				} else {
					var filtered []domain.Challenge
					filtered, err = a.Engine.Filter(ctx, status)
					if err == nil {
						items, err = tracker.ListAll(filtered)
					}
				}
				if errors.Is(err, domain.ErrNoChallenges) {
					if viper.GetBool("json") {
						return printJSON([]tracker.Summary{})
					}
					fmt.Println("No challenges found.")
					return nil
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Name", "Status", "Days", "Success %"})
				for _, s := range items {
					tw.AppendRow(table.Row{s.ID, s.Name, s.Status, s.DurationDays, fmt.Sprintf("%.1f", s.SuccessPercentage)})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", tracker.FilterAll, "status filter: all, active, completed, abandoned")
	return cmd
}

func showCmd() *cobra.Command {
	var withLog bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show a challenge with its statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				an, err := a.Engine.Show(ctx, id)
				if err != nil {
					return err
				}
				var c domain.Challenge
				if withLog {
					if c, err = a.Engine.Get(ctx, id); err != nil {
						return err
					}
				}
				if viper.GetBool("json") {
					if withLog {
						return printJSON(map[string]any{"analysis": an, "progressLog": c.ProgressLog})
					}
					return printJSON(an)
				}
				printAnalysis(an)
				if withLog {
					printProgressLog(c)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&withLog, "log", false, "include the progress log")
	return cmd
}

func registerCmd() *cobra.Command {
	var fulfilled bool
	var note string
	cmd := &cobra.Command{
		Use:   "register <id>",
		Short: "Register today's progress",
		Long:  "Records whether today's goal was fulfilled. Use --fulfilled=false for a missed day.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				reg, err := a.Engine.RegisterProgress(ctx, id, fulfilled, note)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(reg)
				}
				outcome := "fulfilled"
				if !fulfilled {
					outcome = "missed"
				}
				c := reg.Challenge
				fmt.Printf("Day %d of %q marked %s. Streak %d (best %d), success %.1f%%\n",
					reg.Entry.DayIndex, c.Name, outcome, c.CurrentStreak, c.BestStreak, c.Stats.SuccessPercentage)
				for _, n := range reg.Notices {
					fmt.Println("note:", n)
				}
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&fulfilled, "fulfilled", true, "whether the goal was met today")
	cmd.Flags().StringVar(&note, "note", "", "optional note")
	return cmd
}

func statusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:       "status <id> <active|completed|abandoned>",
		Short:     "Override a challenge's status",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(domain.StatusActive), string(domain.StatusCompleted), string(domain.StatusAbandoned)},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Engine.SetStatus(ctx, id, args[1])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(c)
				}
				fmt.Printf("Challenge %d %q is now %s\n", c.ID, c.Name, c.Status)
				return nil
			})
		},
	}
	return cmd
}

func deleteCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a challenge and its progress log",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				c, err := a.Engine.Get(ctx, id)
				if err != nil {
					return err
				}
				if !yes {
					question := fmt.Sprintf("Delete challenge %d %q with %d entries? This cannot be undone.", c.ID, c.Name, len(c.ProgressLog))
					ok, err := confirm(cmd.InOrStdin(), cmd.OutOrStdout(), question)
					if err != nil {
						return err
					}
					if !ok {
						fmt.Println("Aborted.")
						return nil
					}
				}
				removed, err := a.Engine.Delete(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(removed)
				}
				fmt.Printf("Deleted challenge %d %q\n", removed.ID, removed.Name)
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip the confirmation prompt")
	return cmd
}

func logCmd() *cobra.Command {
	logc := &cobra.Command{
		Use:   "log",
		Short: "Event log",
		Long:  "Every change to a challenge, newest first. Needs the sqlite backend.",
	}
	logc.AddCommand(logTailCmd())
	return logc
}

func logTailCmd() *cobra.Command {
	var n, challengeID int
	var evtType string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(ctx context.Context, a *app.App) error {
				items, err := a.Engine.Events(ctx, events.Filter{Limit: n, Type: evtType, ChallengeID: challengeID})
				if errors.Is(err, engine.ErrNoJournal) {
					return fmt.Errorf("%w (current backend: %s; try sl use-backend sqlite)", err, a.Config.Store.Backend)
				}
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := newTable()
				tw.AppendHeader(table.Row{"ID", "Time", "Type", "Challenge", "Payload"})
				for _, e := range items {
					tw.AppendRow(table.Row{e.ID, e.TS, e.Type, e.ChallengeID, e.Payload})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().IntVar(&challengeID, "challenge", 0, "challenge id filter")
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Inspect streakline.yml"}
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the effective config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.ResolveConfig(viper.GetString("workspace"), viper.GetString("backend"))
			if err != nil {
				return err
			}
			return printConfig(cfg)
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate streakline.yml",
		Long:  "Validates the workspace streakline.yml, or the file given with --file.",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if file != "" {
				_, err = config.FromFile(file)
			} else {
				_, err = config.Load(viper.GetString("workspace"))
			}
			if viper.GetBool("json") {
				return printJSON(map[string]any{"ok": err == nil, "error": fmt.Sprint(err)})
			}
			if err != nil {
				return err
			}
			fmt.Println("config OK")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "config file to validate instead of the workspace one")
	return cmd
}

func useBackendCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "use-backend <json|yaml|sqlite>",
		Short: "Set the store backend for this workspace",
		Long:  "Writes STREAKLINE_BACKEND to the workspace .env. Records are not copied between backends.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			backend := strings.ToLower(strings.TrimSpace(args[0]))
			workspace := viper.GetString("workspace")
			if _, err := app.ResolveConfig(workspace, backend); err != nil {
				return err
			}
			if err := setEnvValue(filepath.Join(workspace, ".env"), "STREAKLINE_BACKEND", backend); err != nil {
				return err
			}
			fmt.Printf("Set STREAKLINE_BACKEND=%s in %s/.env\n", backend, workspace)
			return nil
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		Long: `Serves the challenge API under the base path.

With STREAKLINE_JWT_SECRET set, every API route and /metrics require an HS256
bearer token. The health check, the OpenAPI document and /docs stay public.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.New(os.Stderr, "", log.LstdFlags)
			a, err := app.Open(cmd.Context(), app.Options{
				Workspace: viper.GetString("workspace"),
				Backend:   viper.GetString("backend"),
				Logger:    logger,
				Verbose:   true,
			})
			if err != nil {
				return err
			}
			defer a.Close()
			if !cmd.Flags().Changed("addr") {
				addr = a.Config.Server.Addr
			}
			if !cmd.Flags().Changed("base-path") {
				basePath = a.Config.Server.BasePath
			}
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("STREAKLINE_JWT_SECRET"), Logger: logger}
			if authCfg.JWTSecret == "" {
				logger.Printf("WARNING: STREAKLINE_JWT_SECRET is not set; the API accepts unauthenticated requests")
			}
			handler, err := server.New(server.Config{
				Engine:          a.Engine,
				BasePath:        basePath,
				DefaultDuration: a.Config.Defaults.DurationDays,
				Auth:            authCfg,
				RateLimit: server.RateLimitConfig{
					PerSecond:  a.Config.Server.RateLimit.PerSecond,
					Burst:      a.Config.Server.RateLimit.Burst,
					TrustProxy: a.Config.Server.RateLimit.TrustProxy,
				},
				Metrics: a.Metrics,
				Logger:  logger,
			})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Streakline API on http://%s%s (OpenAPI at %s/openapi.json, docs at /docs, metrics at /metrics)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address (default from streakline.yml)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path (default from streakline.yml)")
	return cmd
}

func withApp(ctx context.Context, fn func(context.Context, *app.App) error) error {
	a, err := app.Open(ctx, app.Options{
		Workspace: viper.GetString("workspace"),
		Backend:   viper.GetString("backend"),
		Logger:    log.New(os.Stderr, "", 0),
		Verbose:   viper.GetBool("verbose"),
	})
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

func loadDotEnv(workspace string) error {
	path := filepath.Join(workspace, ".env")
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: challenge id %q", domain.ErrInvalidInput, s)
	}
	return id, nil
}

// confirm asks a yes/no question; anything but y or yes is a no.
func confirm(in io.Reader, out io.Writer, question string) (bool, error) {
	fmt.Fprintf(out, "%s [y/N]: ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}

func newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetOutputMirror(os.Stdout)
	return tw
}

func printAnalysis(a tracker.Analysis) {
	tw := newTable()
	tw.SetTitle(fmt.Sprintf("#%d %s", a.ID, a.Name))
	tw.AppendRows([]table.Row{
		{"Description", a.Description},
		{"Status", a.Status},
		{"Period", fmt.Sprintf("%s to %s (%d days)", a.StartDate, a.EndDate, a.DurationDays)},
		{"Elapsed / remaining", fmt.Sprintf("%d / %d days", a.DaysElapsed, a.DaysRemaining)},
		{"Current streak", a.CurrentStreak},
		{"Best streak", a.BestStreak},
		{"Fulfilled / failed", fmt.Sprintf("%d / %d", a.Stats.DaysFulfilled, a.Stats.DaysFailed)},
		{"Success", fmt.Sprintf("%.1f%%", a.Stats.SuccessPercentage)},
		{"Completion", fmt.Sprintf("%.2f%%", a.CompletionRate)},
		{"Entries", fmt.Sprintf("%d (%d same-day extra)", a.Entries, a.SupplementaryEntries)},
	})
	if a.LastEntry != nil {
		tw.AppendRow(table.Row{"Last entry", fmt.Sprintf("%s %s", a.LastEntry.Date, outcome(a.LastEntry.Fulfilled))})
	}
	tw.Render()
}

func printProgressLog(c domain.Challenge) {
	tw := newTable()
	tw.AppendHeader(table.Row{"Day", "Date", "Outcome", "Counts", "Note"})
	for i, e := range c.ProgressLog {
		counts := "yes"
		if !c.IsAuthoritative(i) {
			counts = "no"
		}
		tw.AppendRow(table.Row{e.DayIndex, e.Date, outcome(e.Fulfilled), counts, e.Note})
	}
	tw.Render()
}

func outcome(fulfilled bool) string {
	if fulfilled {
		return "fulfilled"
	}
	return "missed"
}

func printConfig(cfg *config.Config) error {
	if viper.GetBool("json") {
		return printJSON(cfg)
	}
	tw := newTable()
	tw.AppendHeader(table.Row{"Key", "Value"})
	tw.AppendRows([]table.Row{
		{"store.backend", cfg.Store.Backend},
		{"store.path", cfg.StorePath()},
		{"defaults.duration_days", cfg.Defaults.DurationDays},
		{"server.addr", cfg.Server.Addr},
		{"server.base_path", cfg.Server.BasePath},
		{"server.rate_limit.per_second", cfg.Server.RateLimit.PerSecond},
		{"server.rate_limit.burst", cfg.Server.RateLimit.Burst},
		{"server.rate_limit.trust_proxy", cfg.Server.RateLimit.TrustProxy},
	})
	tw.Render()
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func setEnvValue(path, key, value string) error {
	var lines []string
	seen := false
	f, err := os.Open(path)
	if err == nil {
		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			line := scanner.Text()
			if strings.HasPrefix(line, key+"=") {
				lines = append(lines, fmt.Sprintf("%s=%s", key, value))
				seen = true
			} else {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			f.Close()
			return err
		}
		f.Close()
	} else if !os.IsNotExist(err) {
		return err
	}
	if !seen {
		lines = append(lines, fmt.Sprintf("%s=%s", key, value))
	}
	content := strings.Join(lines, "\n")
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	return os.WriteFile(path, []byte(content), 0o644)
}
