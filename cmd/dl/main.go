package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docketline/internal/audit"
	"docketline/internal/config"
	"docketline/internal/db"
	"docketline/internal/domain"
	"docketline/internal/engine"
	"docketline/internal/migrate"
	"docketline/internal/repo"
	"docketline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "dl",
	Short: "Docketline CLI",
	Long: `Docketline prioritizes pending court cases and allocates hearing slots.
Core concepts:
- Workspace: your .docketline directory holding the case database; docketline.yml tunes the court's rules.
- Cases: filed matters scored 0-100 from pendency age, urgency, adjournment history, and social factors; the score decides who gets a slot first.
- Hearings: cause-list entries. 'dl schedule auto' fills the next court days highest-score-first, skipping the weekly off day.
- Adjournments: an adjourned case returns to the pending pool with a higher score, so chronic adjournment cannot bury a matter.
- ADR: eligible civil-side cases are flagged for mediation, lok adalat, or arbitration with an expected time saving.
- Insights: standalone calculators for priority, ADR referral, resolution timelines, and counsel no-show risk.
- Audit log: every intake, adjournment, disposal, and scheduling run lands in a hashed audit log; view with 'dl log tail'.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		workspace := viper.GetString("workspace")
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
	if err := rootCmd.Execute(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}

func initConfig() {
	viper.SetEnvPrefix("DOCKETLINE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	rootCmd.PersistentFlags().String("actor-id", "local-user", "actor identifier")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
	_ = viper.BindPFlag("actor-id", rootCmd.PersistentFlags().Lookup("actor-id"))
}

func registerCommands() {
	rootCmd.AddCommand(caseCmd())
	rootCmd.AddCommand(insightCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(hearingCmd())
	rootCmd.AddCommand(counselCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func caseCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "case",
		Short: "Manage cases",
		Long:  "Cases flow Pending -> Listed -> Disposed, with adjournments sending a Listed case back to Pending at a higher priority score.",
	}
	c.AddCommand(caseCreateCmd())
	c.AddCommand(caseListCmd())
	c.AddCommand(caseGetCmd())
	c.AddCommand(caseAdjournCmd())
	c.AddCommand(caseDisposeCmd())
	return c
}

func caseCreateCmd() *cobra.Command {
	var opts engine.CaseCreateOptions
	var urgency int
	var claim float64
	cmd := &cobra.Command{
		Use:   "create",
		Short: "File a new case",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.ActorID = viper.GetString("actor-id")
			if cmd.Flags().Changed("urgency") {
				opts.UrgencyScore = &urgency
			}
			if cmd.Flags().Changed("claim-amount") {
				opts.ClaimAmount = &claim
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCase(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.ID, "id", "", "case id (optional, generated if omitted)")
	cmd.Flags().StringVar(&opts.Title, "title", "", "case title")
	cmd.Flags().StringVar(&opts.Type, "type", "", "case type (Civil, Criminal, Family, ...)")
	cmd.Flags().StringVar(&opts.FilingDate, "filing-date", "", "filing date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&urgency, "urgency", 5, "urgency score 1-10")
	cmd.Flags().BoolVar(&opts.HasSeniorCitizen, "senior-citizen", false, "a party is a senior citizen")
	cmd.Flags().BoolVar(&opts.HasMinor, "minor", false, "a party is a minor")
	cmd.Flags().BoolVar(&opts.HealthEmergency, "health-emergency", false, "health emergency involved")
	cmd.Flags().Float64Var(&claim, "claim-amount", 0, "claim amount")
	cmd.Flags().StringVar(&opts.CounselID, "counsel-id", "", "lead counsel id")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("filing-date")
	return cmd
}

func caseListCmd() *cobra.Command {
	var f repo.CaseFilters
	var minPriority, maxPriority float64
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cases by priority",
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("min-priority") {
				f.MinPriority = &minPriority
			}
			if cmd.Flags().Changed("max-priority") {
				f.MaxPriority = &maxPriority
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				cases, err := r.ListCases(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(cases)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Type", "Status", "Score", "Adj", "Next Hearing"})
				for _, c := range cases {
					next := ""
					if c.NextHearingDate != nil {
						next = *c.NextHearingDate
					}
					tw.AppendRow(table.Row{c.ID, c.Title, c.Type, c.Status, c.PriorityScore, c.AdjournmentCount, next})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().StringVar(&f.Type, "type", "", "case type filter")
	cmd.Flags().StringVar(&f.Query, "q", "", "title substring filter")
	cmd.Flags().Float64Var(&minPriority, "min-priority", 0, "minimum priority score")
	cmd.Flags().Float64Var(&maxPriority, "max-priority", 0, "maximum priority score")
	cmd.Flags().StringVar(&f.FiledFrom, "filed-from", "", "earliest filing date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.FiledTo, "filed-to", "", "latest filing date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&f.Limit, "limit", 50, "maximum rows")
	return cmd
}

func caseGetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Show a case with its hearings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetCase(ctx, id)
				if err != nil {
					return err
				}
				hearings, err := r.ListHearings(ctx, repo.HearingFilters{CaseID: id})
				if err != nil {
					return err
				}
				return printJSONOrTable(map[string]any{"case": c, "hearings": hearings})
			})
		},
	}
	return cmd
}

func caseAdjournCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "adjourn <id>",
		Short: "Adjourn a case back to the pending pool",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.AdjournCase(ctx, id, reason, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "adjournment reason")
	return cmd
}

func caseDisposeCmd() *cobra.Command {
	var outcome string
	cmd := &cobra.Command{
		Use:   "dispose <id>",
		Short: "Dispose a case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.DisposeCase(ctx, id, outcome, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "disposal outcome")
	return cmd
}

func insightCmd() *cobra.Command {
	ins := &cobra.Command{
		Use:   "insight",
		Short: "Standalone calculators",
		Long:  "Score hypothetical inputs without touching the case database, the same math the engine applies at intake.",
	}
	ins.AddCommand(insightPriorityCmd())
	ins.AddCommand(insightADRCmd())
	ins.AddCommand(insightResolutionCmd())
	ins.AddCommand(insightNoShowCmd())
	return ins
}

func insightPriorityCmd() *cobra.Command {
	var in priorityInput
	cmd := &cobra.Command{
		Use:   "priority",
		Short: "Score a hypothetical case",
		RunE: func(cmd *cobra.Command, args []string) error {
			var urgency *int
			if cmd.Flags().Changed("urgency") {
				urgency = &in.urgency
			}
			res, err := priorityScore(in, urgency)
			if err != nil {
				return err
			}
			return printJSONOrTable(res)
		},
	}
	cmd.Flags().Float64Var(&in.ageYears, "age-years", 0, "years since filing")
	cmd.Flags().IntVar(&in.urgency, "urgency", 5, "urgency score 1-10")
	cmd.Flags().IntVar(&in.adjournments, "adjournments", 0, "adjournment count")
	cmd.Flags().BoolVar(&in.senior, "senior-citizen", false, "a party is a senior citizen")
	cmd.Flags().BoolVar(&in.minor, "minor", false, "a party is a minor")
	cmd.Flags().BoolVar(&in.health, "health-emergency", false, "health emergency involved")
	return cmd
}

func insightADRCmd() *cobra.Command {
	var caseType string
	var claim float64
	cmd := &cobra.Command{
		Use:   "adr",
		Short: "Evaluate ADR referral for a case type",
		RunE: func(cmd *cobra.Command, args []string) error {
			if caseType == "" {
				return fmt.Errorf("--type required")
			}
			return withReadOnlyEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				var claimPtr *float64
				if cmd.Flags().Changed("claim-amount") {
					claimPtr = &claim
				}
				res := adrEvaluate(e, caseType, claimPtr)
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&caseType, "type", "", "case type")
	cmd.Flags().Float64Var(&claim, "claim-amount", 0, "claim amount")
	return cmd
}

func insightResolutionCmd() *cobra.Command {
	var caseType string
	var adjournments, urgency int
	cmd := &cobra.Command{
		Use:   "resolution",
		Short: "Predict resolution timeline",
		RunE: func(cmd *cobra.Command, args []string) error {
			if caseType == "" {
				return fmt.Errorf("--type required")
			}
			return withReadOnlyEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				res, err := resolutionPredict(e, caseType, adjournments, urgency)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&caseType, "type", "", "case type")
	cmd.Flags().IntVar(&adjournments, "adjournments", 0, "adjournment count")
	cmd.Flags().IntVar(&urgency, "urgency", 5, "urgency score 1-10")
	return cmd
}

func insightNoShowCmd() *cobra.Command {
	var counselID string
	var absenceRate float64
	var recentNoShows int
	cmd := &cobra.Command{
		Use:   "no-show",
		Short: "Predict counsel no-show risk",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReadOnlyEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if counselID != "" {
					h, err := e.Repo.GetCounselHistory(ctx, counselID)
					if err != nil {
						return err
					}
					absenceRate = h.AbsenceRate
					recentNoShows = h.RecentNoShows
				} else if !cmd.Flags().Changed("absence-rate") {
					return fmt.Errorf("--counsel-id or --absence-rate required")
				}
				res, err := noShowPredict(absenceRate, recentNoShows)
				if err != nil {
					return err
				}
				return printJSONOrTable(res)
			})
		},
	}
	cmd.Flags().StringVar(&counselID, "counsel-id", "", "look up recorded counsel history")
	cmd.Flags().Float64Var(&absenceRate, "absence-rate", 0, "historical absence rate 0-1")
	cmd.Flags().IntVar(&recentNoShows, "recent-no-shows", 0, "no-shows in the recent window")
	return cmd
}

func scheduleCmd() *cobra.Command {
	sched := &cobra.Command{
		Use:   "schedule",
		Short: "Hearing allocation",
	}
	sched.AddCommand(scheduleAutoCmd())
	sched.AddCommand(hearingListCmd())
	return sched
}

func scheduleAutoCmd() *cobra.Command {
	var maxBatch int
	cmd := &cobra.Command{
		Use:   "auto",
		Short: "Allocate hearing slots to the highest-priority pending cases",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				allocs, err := e.AutoSchedule(ctx, maxBatch, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(allocs)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Case", "Title", "Score", "Date", "Slot", "Counsel Risk"})
				for _, a := range allocs {
					tw.AppendRow(table.Row{a.CaseID, a.CaseTitle, a.PriorityScore, a.Date, a.SlotLabel, a.CounselRisk})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&maxBatch, "max-batch", 0, "cases to schedule (0 uses config max_batch)")
	return cmd
}

func hearingCmd() *cobra.Command {
	h := &cobra.Command{
		Use:   "hearing",
		Short: "Inspect the cause list",
	}
	h.AddCommand(hearingListCmd())
	return h
}

func hearingListCmd() *cobra.Command {
	var f repo.HearingFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List hearings in calendar order",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				hearings, err := r.ListHearings(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(hearings)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Case", "Date", "Slot", "Status"})
				for _, h := range hearings {
					tw.AppendRow(table.Row{h.ID, h.CaseID, h.Date, h.SlotLabel, h.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.CaseID, "case-id", "", "case id filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 100, "maximum rows")
	return cmd
}

func counselCmd() *cobra.Command {
	c := &cobra.Command{
		Use:   "counsel",
		Short: "Manage counsel appearance history",
	}
	c.AddCommand(counselRecordCmd())
	c.AddCommand(counselShowCmd())
	return c
}

func counselRecordCmd() *cobra.Command {
	var h domain.CounselHistory
	cmd := &cobra.Command{
		Use:   "record <counsel-id>",
		Short: "Record counsel appearance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h.CounselID = args[0]
			if h.AbsenceRate < 0 || h.AbsenceRate > 1 {
				return fmt.Errorf("absence rate must be in [0,1], got %v", h.AbsenceRate)
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				h.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
				if err := r.UpsertCounselHistory(ctx, h); err != nil {
					return err
				}
				return printJSONOrTable(h)
			})
		},
	}
	cmd.Flags().Float64Var(&h.AbsenceRate, "absence-rate", 0, "historical absence rate 0-1")
	cmd.Flags().IntVar(&h.RecentNoShows, "recent-no-shows", 0, "no-shows in the recent window")
	return cmd
}

func counselShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show <counsel-id>",
		Short: "Show counsel appearance history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				h, err := r.GetCounselHistory(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(h)
			})
		},
	}
	return cmd
}

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show docket statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				stats, err := r.DashboardStats(cmd.Context())
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				fmt.Printf("Cases: %d total, %d pending, %d disposed\n", stats.TotalCases, stats.PendingCases, stats.DisposedCases)
				fmt.Printf("Tiers: %d critical, %d high, %d normal\n", stats.CriticalCount, stats.HighCount, stats.NormalCount)
				fmt.Printf("ADR eligible: %d\n", stats.ADREligibleCases)
				return nil
			})
		},
	}
	return cmd
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{
		Use:   "config",
		Short: "Inspect court config",
		Long:  "Config is the court's rulebook (docketline.yml): slots per day, the weekly off day, ADR eligibility and thresholds, and resolution baselines.",
	}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	cfg.AddCommand(configValidateCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var courtName string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default docketline.yml to the workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(courtName)), 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&courtName, "court", "District Court", "court name")
	return cmd
}

func configShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show loaded config",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withReadOnlyEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return printJSONOrTable(e.Config)
			})
		},
	}
	return cmd
}

func configValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate workspace config",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := withReadOnlyEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.Config.Validate()
			})
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
	return cmd
}

func apikeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Manage API keys",
	}
	cmd.AddCommand(apikeyCreateCmd())
	cmd.AddCommand(apikeyListCmd())
	cmd.AddCommand(apikeyRevokeCmd())
	return cmd
}

func apikeyCreateCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Issue an API key for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			raw := make([]byte, 32)
			if _, err := rand.Read(raw); err != nil {
				return err
			}
			key := hex.EncodeToString(raw)
			rec := domain.APIKey{
				ID:        uuid.NewString(),
				ActorID:   viper.GetString("actor-id"),
				Name:      name,
				KeyHash:   repo.HashAPIKey(key),
				CreatedAt: time.Now().UTC().Format(time.RFC3339),
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.InsertAPIKey(ctx, nil, rec); err != nil {
					return err
				}
				sink := audit.Writer{DB: r.DB}
				_ = sink.Log(ctx, audit.EventAPIKeyCreated, rec.ActorID, "", audit.Payload{"key_id": rec.ID, "name": rec.Name})
				// The raw key is shown once; only its hash is stored.
				return printJSONOrTable(map[string]any{"id": rec.ID, "key": key, "name": rec.Name})
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "key label")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys for the current actor",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				keys, err := r.ListAPIKeys(ctx, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(keys)
			})
		},
	}
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				sink := audit.Writer{DB: r.DB}
				_ = sink.Log(ctx, audit.EventAPIKeyDeleted, viper.GetString("actor-id"), "", audit.Payload{"key_id": args[0]})
				return nil
			})
		},
	}
	return cmd
}

func logCmd() *cobra.Command {
	log := &cobra.Command{
		Use:   "log",
		Short: "Audit log",
		Long:  "The append-only record of intakes, adjournments, disposals, and scheduling runs.",
	}
	log.AddCommand(logTailCmd())
	return log
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, caseID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail audit events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.ListAuditEvents(ctx, n, evtType, caseID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&caseID, "case-id", "", "case id filter")
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	var allowActorHeader bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			if _, err := db.EnsureWorkspace(workspace); err != nil {
				return err
			}
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := loadConfig(workspace)
			if err != nil {
				return err
			}
			e := engine.New(conn, cfg)
			authCfg := server.AuthConfig{
				JWTSecret:              os.Getenv("DOCKETLINE_JWT_SECRET"),
				AllowLegacyActorHeader: allowActorHeader,
			}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("DOCKETLINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg})
			if err != nil {
				return err
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving Docketline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	cmd.Flags().BoolVar(&allowActorHeader, "allow-actor-header", false, "accept X-Actor-Id without credentials (dev only)")
	return cmd
}

// --- helpers ---

func loadConfig(workspace string) (*config.Config, error) {
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		cfg = config.Default("District Court")
	}
	return cfg, nil
}

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	cfg, err := loadConfig(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg)
	return fn(ctx, e)
}

// withReadOnlyEngine is withEngine with the audit sink disabled; commands
// that only read the docket must not leave audit rows behind.
func withReadOnlyEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	return withEngine(ctx, func(ctx context.Context, e engine.Engine) error {
		e.Audit = audit.Discard{}
		return fn(ctx, e)
	})
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	workspace := viper.GetString("workspace")
	conn, err := db.Open(db.Config{Workspace: workspace})
	if err != nil {
		return err
	}
	defer conn.Close()
	if err := migrate.Migrate(conn); err != nil {
		return err
	}
	return fn(ctx, repo.Repo{DB: conn})
}

func printJSONOrTable(v any) error {
	if viper.GetBool("json") {
		return printJSON(v)
	}
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Println(string(b))
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
