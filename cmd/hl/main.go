package main

import (
	"context"
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

	"hireline/internal/app"
	"hireline/internal/config"
	"hireline/internal/db"
	"hireline/internal/domain"
	"hireline/internal/engine"
	"hireline/internal/notify"
	"hireline/internal/repo"
	"hireline/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "hl",
	Short: "Hireline CLI",
	Long: `Hireline tracks hiring pipelines: candidates move through a chain of
interview stages, interviews are booked against interviewer calendars with
conflict checking, and every change lands in the event log.

- Workspace: the .hireline directory holding the database; hireline.yml holds config.
- Vacancy: an open position candidates apply to.
- Chain: the ordered interview stages for one candidate; editing it archives completed feedback.
- Stage statuses: waiting -> pending -> in_progress -> passed/failed.
- Candidate statuses: active -> documentation -> hired (rejected/dismissed/archived are exits).
- Event log: view with 'hl log tail'.`,
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
	viper.SetEnvPrefix("HIRELINE")
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
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(vacancyCmd())
	rootCmd.AddCommand(userCmd())
	rootCmd.AddCommand(candidateCmd())
	rootCmd.AddCommand(stageCmd())
	rootCmd.AddCommand(interviewCmd())
	rootCmd.AddCommand(scheduleCmd())
	rootCmd.AddCommand(apikeyCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

// --- config ---

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Workspace config"}
	cfg.AddCommand(configInitCmd())
	cfg.AddCommand(configShowCmd())
	return cfg
}

func configInitCmd() *cobra.Command {
	var orgID string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write default hireline.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			path := config.Path(workspace)
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault(orgID)), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	}
	cmd.Flags().StringVar(&orgID, "org", "default-org", "organization id")
	return cmd
}

func configShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show resolved config",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			if cfg == nil {
				cfg = config.Default("default-org")
			}
			return printJSONOrTable(cfg)
		},
	}
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Pipeline summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				counts, err := r.CountCandidatesByStatus(ctx)
				if err != nil {
					return err
				}
				return printJSONOrTable(counts)
			})
		},
	}
}

// --- vacancies ---

func vacancyCmd() *cobra.Command {
	v := &cobra.Command{Use: "vacancy", Short: "Manage vacancies"}
	v.AddCommand(vacancyAddCmd())
	v.AddCommand(vacancyListCmd())
	v.AddCommand(vacancyCloseCmd())
	return v
}

func vacancyCloseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "close <id>",
		Short: "Close vacancy",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.UpdateVacancyStatus(ctx, args[0], "closed"); err != nil {
					return err
				}
				fmt.Println("closed", args[0])
				return nil
			})
		},
	}
}

func vacancyAddCmd() *cobra.Command {
	var id, title string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create vacancy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				v, err := e.CreateVacancy(ctx, id, title)
				if err != nil {
					return err
				}
				return printJSONOrTable(v)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "vacancy id (generated if empty)")
	cmd.Flags().StringVar(&title, "title", "", "vacancy title")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func vacancyListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List vacancies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListVacancies(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Status", "Created"})
				for _, v := range items {
					tw.AppendRow(table.Row{v.ID, v.Title, v.Status, v.CreatedAt})
				}
				tw.Render()
				return nil
			})
		},
	}
}

// --- users ---

func userCmd() *cobra.Command {
	u := &cobra.Command{Use: "user", Short: "Manage users"}
	u.AddCommand(userAddCmd())
	u.AddCommand(userListCmd())
	return u
}

func userAddCmd() *cobra.Command {
	var id, name, email, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Register user",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				u, err := e.CreateUser(ctx, domain.User{ID: id, FullName: name, Email: email, Role: role})
				if err != nil {
					return err
				}
				return printJSONOrTable(u)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "user id (generated if empty)")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringVar(&role, "role", "interviewer", "role: admin, hr or interviewer")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func userListCmd() *cobra.Command {
	var role string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListUsers(ctx, role)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Email", "Role"})
				for _, u := range items {
					tw.AppendRow(table.Row{u.ID, u.FullName, u.Email, u.Role})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&role, "role", "", "role filter")
	return cmd
}

// --- candidates ---

func candidateCmd() *cobra.Command {
	c := &cobra.Command{Use: "candidate", Short: "Manage candidates"}
	c.AddCommand(candidateCreateCmd())
	c.AddCommand(candidateListCmd())
	c.AddCommand(candidateShowCmd())
	c.AddCommand(candidateDeleteCmd())
	c.AddCommand(candidateChainCmd())
	c.AddCommand(candidateHistoryCmd())
	c.AddCommand(candidateInterviewsCmd())
	c.AddCommand(candidateDocsCmd())
	c.AddCommand(candidateHireCmd())
	c.AddCommand(candidateDismissCmd())
	c.AddCommand(candidateArchiveCmd())
	return c
}

// parseChain turns repeated --stage "Name:interviewer-id" flags into a chain.
func parseChain(specs []string) ([]domain.StageRef, error) {
	chain := make([]domain.StageRef, 0, len(specs))
	for _, spec := range specs {
		idx := strings.LastIndex(spec, ":")
		if idx <= 0 || idx == len(spec)-1 {
			return nil, fmt.Errorf("invalid --stage %q, expected name:interviewer-id", spec)
		}
		chain = append(chain, domain.StageRef{
			StageName:     strings.TrimSpace(spec[:idx]),
			InterviewerID: strings.TrimSpace(spec[idx+1:]),
		})
	}
	return chain, nil
}

func candidateCreateCmd() *cobra.Command {
	var id, vacancyID, name, email string
	var stages []string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create candidate with stage chain",
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := parseChain(stages)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCandidate(ctx, engine.CandidateCreateOptions{
					ID:        id,
					VacancyID: vacancyID,
					FullName:  name,
					Email:     email,
					Chain:     chain,
					ActorID:   viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&id, "id", "", "candidate id (generated if empty)")
	cmd.Flags().StringVar(&vacancyID, "vacancy", "", "vacancy id")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&email, "email", "", "email")
	cmd.Flags().StringArrayVar(&stages, "stage", []string{}, `stage chain entry "name:interviewer-id" (repeatable, in order)`)
	_ = cmd.MarkFlagRequired("vacancy")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func candidateListCmd() *cobra.Command {
	var f repo.CandidateFilters
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListCandidates(ctx, f)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Vacancy", "Status", "Stage"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.FullName, c.VacancyID, c.Status, c.CurrentStageIndex})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&f.VacancyID, "vacancy", "", "vacancy filter")
	cmd.Flags().StringVar(&f.Status, "status", "", "status filter")
	cmd.Flags().IntVar(&f.Limit, "limit", 0, "page size")
	return cmd
}

func candidateShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show candidate and its chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				c, err := r.GetCandidate(ctx, args[0])
				if err != nil {
					return err
				}
				stages, err := r.ListStages(ctx, c.ID)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"candidate": c, "chain": stages})
				}
				b, _ := json.MarshalIndent(c, "", "  ")
				fmt.Println(string(b))
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"#", "Stage", "Interviewer", "Status", "Scheduled", "Rating"})
				for _, s := range stages {
					scheduled := ""
					if s.ScheduledAt != nil {
						scheduled = *s.ScheduledAt
					}
					rating := ""
					if s.Rating != nil {
						rating = fmt.Sprintf("%d", *s.Rating)
					}
					tw.AppendRow(table.Row{s.StageIndex, s.StageName, s.InterviewerID, s.Status, scheduled, rating})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func candidateDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete candidate and its stages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				if err := e.DeleteCandidate(ctx, args[0], viper.GetString("actor-id")); err != nil {
					return err
				}
				fmt.Println("deleted", args[0])
				return nil
			})
		},
	}
}

func candidateChainCmd() *cobra.Command {
	var stages []string
	cmd := &cobra.Command{
		Use:   "chain <id>",
		Short: "Replace candidate stage chain",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			chain, err := parseChain(stages)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				out, err := e.MaterializeChain(ctx, args[0], chain, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(out)
			})
		},
	}
	cmd.Flags().StringArrayVar(&stages, "stage", []string{}, `stage chain entry "name:interviewer-id" (repeatable, in order)`)
	return cmd
}

func candidateHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show archived stage snapshots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListStageHistory(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func candidateInterviewsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "interviews <id>",
		Short: "List candidate interviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListInterviewsByCandidate(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
}

func candidateDocsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "docs <id>",
		Short: "Move candidate to documentation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.MoveToDocumentation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func candidateHireCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hire <id>",
		Short: "Complete documentation and hire",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CompleteDocumentation(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

func candidateDismissCmd() *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "dismiss <id>",
		Short: "Dismiss a hired candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Dismiss(ctx, args[0], reason, nil, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "dismissal reason")
	_ = cmd.MarkFlagRequired("reason")
	return cmd
}

func candidateArchiveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "archive <id>",
		Short: "Archive candidate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.Archive(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
}

// --- stages ---

func stageCmd() *cobra.Command {
	s := &cobra.Command{Use: "stage", Short: "Manage stages"}
	s.AddCommand(stageActivateCmd())
	s.AddCommand(stageOutcomeCmd())
	return s
}

func stageActivateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "activate <stage-id>",
		Short: "Activate a waiting stage",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				s, err := e.ActivateStage(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
}

func stageOutcomeCmd() *cobra.Command {
	var outcome, comments string
	var rating int
	cmd := &cobra.Command{
		Use:   "outcome <stage-id>",
		Short: "Record stage outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opts := engine.OutcomeOptions{
					StageID:  args[0],
					Outcome:  outcome,
					Comments: comments,
					ActorID:  viper.GetString("actor-id"),
				}
				if cmd.Flags().Changed("rating") {
					opts.Rating = &rating
				}
				s, err := e.RecordOutcome(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(s)
			})
		},
	}
	cmd.Flags().StringVar(&outcome, "outcome", "", "passed or failed")
	cmd.Flags().StringVar(&comments, "comments", "", "interviewer feedback")
	cmd.Flags().IntVar(&rating, "rating", 0, "rating 1-5")
	_ = cmd.MarkFlagRequired("outcome")
	_ = cmd.MarkFlagRequired("comments")
	return cmd
}

// --- interviews ---

func interviewCmd() *cobra.Command {
	iv := &cobra.Command{Use: "interview", Short: "Manage interviews"}
	iv.AddCommand(interviewBookCmd())
	iv.AddCommand(interviewRescheduleCmd())
	iv.AddCommand(interviewCancelCmd())
	return iv
}

func interviewBookCmd() *cobra.Command {
	var at, interviewer, notes string
	var duration int
	cmd := &cobra.Command{
		Use:   "book <stage-id>",
		Short: "Book an interview slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("--at must be RFC3339: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				iv, err := e.BookInterview(ctx, engine.BookOptions{
					StageID:         args[0],
					InterviewerID:   interviewer,
					ScheduledAt:     when,
					DurationMinutes: duration,
					Notes:           notes,
					ActorID:         viper.GetString("actor-id"),
				})
				if err != nil {
					return err
				}
				return printJSONOrTable(iv)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "slot start, RFC3339")
	cmd.Flags().StringVar(&interviewer, "interviewer", "", "override stage interviewer")
	cmd.Flags().IntVar(&duration, "duration", 0, "duration in minutes (config default if omitted)")
	cmd.Flags().StringVar(&notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func interviewRescheduleCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "reschedule <interview-id>",
		Short: "Move interview to a new slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			when, err := time.Parse(time.RFC3339, at)
			if err != nil {
				return fmt.Errorf("--at must be RFC3339: %w", err)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				iv, err := e.RescheduleInterview(ctx, args[0], when, viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(iv)
			})
		},
	}
	cmd.Flags().StringVar(&at, "at", "", "new slot start, RFC3339")
	_ = cmd.MarkFlagRequired("at")
	return cmd
}

func interviewCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <interview-id>",
		Short: "Cancel interview and free the slot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				iv, err := e.CancelInterview(ctx, args[0], viper.GetString("actor-id"))
				if err != nil {
					return err
				}
				return printJSONOrTable(iv)
			})
		},
	}
}

func scheduleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schedule <interviewer-id>",
		Short: "Show an interviewer's interviews",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListInterviewsByInterviewer(ctx, args[0])
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Candidate", "Scheduled", "Minutes", "Status"})
				for _, iv := range items {
					tw.AppendRow(table.Row{iv.ID, iv.CandidateID, iv.ScheduledAt, iv.DurationMinutes, iv.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
}

// --- api keys ---

func apikeyCmd() *cobra.Command {
	k := &cobra.Command{Use: "apikey", Short: "Manage API keys"}
	k.AddCommand(apikeyCreateCmd())
	k.AddCommand(apikeyListCmd())
	k.AddCommand(apikeyRevokeCmd())
	return k
}

func apikeyCreateCmd() *cobra.Command {
	var actorID, name string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create API key (plaintext printed once)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				plaintext := uuid.NewString()
				key := domain.APIKey{
					ID:      uuid.NewString(),
					ActorID: actorID,
					Name:    name,
					KeyHash: repo.HashAPIKey(plaintext),
				}
				if err := r.InsertAPIKey(ctx, nil, key); err != nil {
					return err
				}
				fmt.Println("api key:", plaintext)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor this key authenticates as")
	cmd.Flags().StringVar(&name, "name", "", "key label")
	_ = cmd.MarkFlagRequired("actor")
	return cmd
}

func apikeyListCmd() *cobra.Command {
	var actorID string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List API keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAPIKeys(ctx, actorID)
				if err != nil {
					return err
				}
				return printJSONOrTable(items)
			})
		},
	}
	cmd.Flags().StringVar(&actorID, "actor", "", "actor filter")
	return cmd
}

func apikeyRevokeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "revoke <id>",
		Short: "Delete API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				if err := r.DeleteAPIKey(ctx, args[0]); err != nil {
					return err
				}
				fmt.Println("revoked", args[0])
				return nil
			})
		},
	}
}

// --- log ---

func logCmd() *cobra.Command {
	l := &cobra.Command{Use: "log", Short: "Event log"}
	l.AddCommand(logTailCmd())
	return l
}

func logTailCmd() *cobra.Command {
	var n int
	var evtType, candidateID, entityKind, entityID string
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, candidateID, evtType, entityKind, entityID)
				if err != nil {
					return err
				}
				return printJSONOrTable(events)
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of events")
	cmd.Flags().StringVar(&evtType, "type", "", "event type filter")
	cmd.Flags().StringVar(&candidateID, "candidate", "", "candidate filter")
	cmd.Flags().StringVar(&entityKind, "entity-kind", "", "entity kind")
	cmd.Flags().StringVar(&entityID, "entity-id", "", "entity id")
	return cmd
}

// --- serve ---

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			appCtx, err := app.Open(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			defer appCtx.Close()
			hub := notify.NewHub(notify.LogSink{})
			defer hub.Close()
			e := engine.New(appCtx.DB, appCtx.Config, hub)
			authCfg := server.AuthConfig{JWTSecret: os.Getenv("HIRELINE_JWT_SECRET")}
			if authCfg.JWTSecret == "" {
				return fmt.Errorf("HIRELINE_JWT_SECRET is required for bearer auth")
			}
			handler, err := server.New(server.Config{Engine: e, BasePath: basePath, Auth: authCfg, Hub: hub})
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
			fmt.Printf("Serving Hireline API on http://%s%s (OpenAPI at /openapi.json, Swagger UI at /docs)\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8080", "listen address")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	appCtx, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer appCtx.Close()
	e := engine.New(appCtx.DB, appCtx.Config, notify.NewHub(notify.LogSink{}))
	return fn(ctx, e)
}

func withRepo(ctx context.Context, fn func(context.Context, repo.Repo) error) error {
	appCtx, err := app.Open(viper.GetString("workspace"))
	if err != nil {
		return err
	}
	defer appCtx.Close()
	return fn(ctx, repo.Repo{DB: appCtx.DB})
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
