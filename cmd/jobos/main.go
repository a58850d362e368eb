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

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"jobos/internal/app"
	"jobos/internal/config"
	"jobos/internal/db"
	"jobos/internal/domain"
	"jobos/internal/engine"
	"jobos/internal/migrate"
	"jobos/internal/server"
	"jobos/internal/store"
)

var rootCmd = &cobra.Command{
	Use:   "jobos",
	Short: "Jobos CLI",
	Long: `Jobos tracks a job search across three pipelines.
- Discovery: leads you found but have not applied to (found -> qualified -> archived).
- Application: roles you are actively pursuing (accepted -> submitted -> ... -> offer/rejected).
- Networking: people who can open doors (identified -> contacted -> referral -> converted).
Qualified leads and referrals convert into application records; every change lands in an
append-only activity log that feeds the weekly scoreboard.
Data lives in a local SQLite workspace by default; 'jobos connect' switches to a sync server.`,
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
	viper.SetEnvPrefix("JOBOS")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv()
}

func addPersistentFlags() {
	rootCmd.PersistentFlags().StringP("workspace", "w", ".", "workspace directory")
	rootCmd.PersistentFlags().Bool("json", false, "output JSON")
	_ = viper.BindPFlag("workspace", rootCmd.PersistentFlags().Lookup("workspace"))
	_ = viper.BindPFlag("json", rootCmd.PersistentFlags().Lookup("json"))
}

func registerCommands() {
	rootCmd.AddCommand(companyCmd())
	rootCmd.AddCommand(oppCmd())
	rootCmd.AddCommand(contactCmd())
	rootCmd.AddCommand(taskCmd())
	rootCmd.AddCommand(boardCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(metricsCmd())
	rootCmd.AddCommand(profileCmd())
	rootCmd.AddCommand(connectCmd())
	rootCmd.AddCommand(disconnectCmd())
	rootCmd.AddCommand(serveCmd())
}

func companyCmd() *cobra.Command {
	c := &cobra.Command{Use: "company", Short: "Manage target companies"}
	c.AddCommand(companyAddCmd())
	c.AddCommand(companyListCmd())
	return c
}

func companyAddCmd() *cobra.Command {
	var opts engine.CompanyCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a target company",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateCompany(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "company name")
	cmd.Flags().StringVar(&opts.Website, "website", "", "website URL")
	cmd.Flags().StringVar(&opts.Location, "location", "", "location")
	cmd.Flags().StringVar(&opts.Industry, "industry", "", "industry")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("name")
	return cmd
}

func companyListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List target companies",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Companies(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Industry", "Location"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.Industry, c.Location})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func oppCmd() *cobra.Command {
	c := &cobra.Command{Use: "opp", Short: "Manage opportunities"}
	c.AddCommand(oppAddCmd())
	c.AddCommand(oppListCmd())
	c.AddCommand(oppMoveCmd())
	c.AddCommand(oppConvertCmd())
	c.AddCommand(oppDeleteCmd())
	return c
}

func oppAddCmd() *cobra.Command {
	var opts engine.OpportunityCreateOptions
	var pipeline string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add an opportunity",
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Pipeline = domain.Pipeline(pipeline)
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				o, err := e.CreateOpportunity(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(o)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "role title")
	cmd.Flags().StringVar(&opts.CompanyName, "company", "", "company name")
	cmd.Flags().StringVar(&pipeline, "pipeline", "discovery", "pipeline (discovery, application)")
	cmd.Flags().StringVar(&opts.Status, "status", "", "stage (defaults to the pipeline's entry stage)")
	cmd.Flags().StringVar(&opts.Priority, "priority", "", "priority (low, medium, high)")
	cmd.Flags().StringVar(&opts.Description, "description", "", "description")
	_ = cmd.MarkFlagRequired("title")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func oppListCmd() *cobra.Command {
	var pipeline string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List opportunities",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Opportunities(ctx)
				if err != nil {
					return err
				}
				if pipeline != "" {
					filtered := items[:0]
					for _, o := range items {
						if string(o.Pipeline) == pipeline {
							filtered = append(filtered, o)
						}
					}
					items = filtered
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Company", "Pipeline", "Stage", "Priority"})
				for _, o := range items {
					tw.AppendRow(table.Row{o.ID, o.Title, o.CompanyName, o.Pipeline, o.Status, o.Priority})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pipeline, "pipeline", "", "pipeline filter")
	return cmd
}

func oppMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move an opportunity to a stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ref := domain.EntityRef{Kind: domain.KindOpportunity, ID: args[0]}
				return e.TransitionStage(ctx, ref, args[1])
			})
		},
	}
	return cmd
}

func oppConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <id>",
		Short: "Convert a qualified discovery lead into an application",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				clone, err := e.ConvertOpportunityToApplication(ctx, args[0])
				var pf *engine.PartialFailure
				if errors.As(err, &pf) {
					fmt.Printf("warning: %v\n", pf)
					return printJSONOrTable(clone)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(clone)
			})
		},
	}
	return cmd
}

func oppDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteOpportunity(ctx, args[0])
			})
		},
	}
	return cmd
}

func contactCmd() *cobra.Command {
	c := &cobra.Command{Use: "contact", Short: "Manage networking contacts"}
	c.AddCommand(contactAddCmd())
	c.AddCommand(contactListCmd())
	c.AddCommand(contactMoveCmd())
	c.AddCommand(contactConvertCmd())
	c.AddCommand(contactDeleteCmd())
	return c
}

func contactAddCmd() *cobra.Command {
	var opts engine.ContactCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a networking contact",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				c, err := e.CreateContact(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(c)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Name, "name", "", "contact name")
	cmd.Flags().StringVar(&opts.RoleTitle, "role", "", "role title")
	cmd.Flags().StringVar(&opts.CompanyName, "company", "", "company name")
	cmd.Flags().StringVar(&opts.Status, "status", "", "stage (defaults to PERSON_IDENTIFIED)")
	cmd.Flags().StringVar(&opts.Notes, "notes", "", "notes")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("company")
	return cmd
}

func contactListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List networking contacts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Contacts(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Name", "Role", "Company", "Stage"})
				for _, c := range items {
					tw.AppendRow(table.Row{c.ID, c.Name, c.RoleTitle, c.CompanyName, c.Status})
				}
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func contactMoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a contact to a stage",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				ref := domain.EntityRef{Kind: domain.KindContact, ID: args[0]}
				return e.TransitionStage(ctx, ref, args[1])
			})
		},
	}
	return cmd
}

func contactConvertCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "convert <id>",
		Short: "Convert a referral into an application opportunity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				opp, err := e.ConvertContactToApplication(ctx, args[0])
				var pf *engine.PartialFailure
				if errors.As(err, &pf) {
					fmt.Printf("warning: %v\n", pf)
					return printJSONOrTable(opp)
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(opp)
			})
		},
	}
	return cmd
}

func contactDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a contact",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteContact(ctx, args[0])
			})
		},
	}
	return cmd
}

func taskCmd() *cobra.Command {
	c := &cobra.Command{Use: "task", Short: "Manage follow-up tasks"}
	c.AddCommand(taskAddCmd())
	c.AddCommand(taskListCmd())
	c.AddCommand(taskDoneCmd())
	c.AddCommand(taskDeleteCmd())
	return c
}

func taskAddCmd() *cobra.Command {
	var opts engine.TaskCreateOptions
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a task",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.CreateTask(ctx, opts)
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	cmd.Flags().StringVar(&opts.Title, "title", "", "task title")
	cmd.Flags().StringVar(&opts.DueDate, "due", "", "due date (RFC 3339)")
	cmd.Flags().StringVar(&opts.RelatedEntityID, "related-id", "", "linked opportunity or contact id")
	cmd.Flags().StringVar(&opts.RelatedEntityName, "related-name", "", "linked company or contact name")
	cmd.Flags().StringVar(&opts.Comments, "comments", "", "comments")
	_ = cmd.MarkFlagRequired("title")
	return cmd
}

func taskListCmd() *cobra.Command {
	var pending bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				items, err := e.Tasks(ctx)
				if err != nil {
					return err
				}
				if pending {
					filtered := items[:0]
					for _, t := range items {
						if !t.IsCompleted {
							filtered = append(filtered, t)
						}
					}
					items = filtered
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Title", "Due", "Done", "Related"})
				for _, t := range items {
					tw.AppendRow(table.Row{t.ID, t.Title, t.DueDate, t.IsCompleted, t.RelatedEntityName})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&pending, "pending", false, "only incomplete tasks")
	return cmd
}

func taskDoneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "done <id>",
		Short: "Toggle a task's completion",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				t, err := e.ToggleTaskCompletion(ctx, args[0])
				if err != nil {
					return err
				}
				return printJSONOrTable(t)
			})
		},
	}
	return cmd
}

func taskDeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				return e.DeleteTask(ctx, args[0])
			})
		},
	}
	return cmd
}

func boardCmd() *cobra.Command {
	var pipeline string
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show a pipeline board",
		RunE: func(cmd *cobra.Command, args []string) error {
			p := domain.Pipeline(pipeline)
			stages := domain.Stages(p)
			if stages == nil {
				return fmt.Errorf("unknown pipeline %q", pipeline)
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				byStage := map[string][]string{}
				if p == domain.PipelineNetworking {
					contacts, err := e.Contacts(ctx)
					if err != nil {
						return err
					}
					for _, c := range contacts {
						byStage[c.Status] = append(byStage[c.Status], fmt.Sprintf("%s (%s)", c.Name, c.CompanyName))
					}
				} else {
					opps, err := e.Opportunities(ctx)
					if err != nil {
						return err
					}
					for _, o := range opps {
						if o.Pipeline != p {
							continue
						}
						byStage[o.Status] = append(byStage[o.Status], fmt.Sprintf("%s (%s)", o.Title, o.CompanyName))
					}
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Stage", "Cards"})
				for _, stage := range stages {
					tw.AppendRow(table.Row{stage, strings.Join(byStage[stage], "\n")})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&pipeline, "pipeline", "application", "pipeline (discovery, application, networking)")
	return cmd
}

func logCmd() *cobra.Command {
	c := &cobra.Command{Use: "log", Short: "Inspect the activity log"}
	c.AddCommand(logTailCmd())
	return c
}

func logTailCmd() *cobra.Command {
	var n int
	cmd := &cobra.Command{
		Use:   "tail",
		Short: "Show the latest activity entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				entries, err := e.Activity(ctx)
				if err != nil {
					return err
				}
				if n > 0 && len(entries) > n {
					entries = entries[:n]
				}
				if viper.GetBool("json") {
					return printJSON(entries)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Action", "Details"})
				for _, entry := range entries {
					tw.AppendRow(table.Row{entry.CreatedAt, entry.ActionType, entry.Details})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&n, "n", 20, "number of entries")
	return cmd
}

func metricsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "metrics",
		Short: "Show this week's progress against targets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				w, err := e.WeeklyMetrics(ctx)
				if err != nil {
					return err
				}
				targets := domain.DefaultProfile().WeeklyTargets
				if p, err := e.Profile(ctx); err == nil {
					targets = p.WeeklyTargets
				}
				if viper.GetBool("json") {
					return printJSON(map[string]any{"week": w, "targets": targets})
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Metric", "This week", "Target"})
				tw.AppendRow(table.Row{"Applications", w.Apps, targets.Applications})
				tw.AppendRow(table.Row{"Outreach", w.Outreach, targets.Outreaches})
				tw.AppendRow(table.Row{"Completed tasks", w.CompletedTasks, ""})
				tw.Render()
				return nil
			})
		},
	}
	return cmd
}

func profileCmd() *cobra.Command {
	c := &cobra.Command{Use: "profile", Short: "Manage the account profile"}
	c.AddCommand(profileShowCmd())
	c.AddCommand(profileInitCmd())
	return c
}

func profileShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show the profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p, err := e.Profile(ctx)
				if errors.Is(err, store.ErrNotFound) {
					return fmt.Errorf("no profile yet; run 'jobos profile init'")
				}
				if err != nil {
					return err
				}
				return printJSONOrTable(p)
			})
		},
	}
	return cmd
}

func profileInitCmd() *cobra.Command {
	var name, deadline string
	var roles []string
	var apps, outreaches, companies int
	var seed bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the profile (and optionally seed sample data)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				p := domain.DefaultProfile()
				if name != "" {
					p.FullName = name
				}
				if len(roles) > 0 {
					p.RoleFocus = roles
				}
				p.DeadlineDate = deadline
				if apps > 0 {
					p.WeeklyTargets.Applications = apps
				}
				if outreaches > 0 {
					p.WeeklyTargets.Outreaches = outreaches
				}
				if companies > 0 {
					p.WeeklyTargets.NewCompanies = companies
				}
				if err := e.SaveProfile(ctx, p); err != nil {
					return err
				}
				if seed {
					if err := e.SeedDemoData(ctx); err != nil {
						return err
					}
				}
				return printJSONOrTable(p)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringArrayVar(&roles, "role", nil, "target role (repeatable)")
	cmd.Flags().StringVar(&deadline, "deadline", "", "search deadline (YYYY-MM-DD)")
	cmd.Flags().IntVar(&apps, "target-apps", 0, "weekly application target")
	cmd.Flags().IntVar(&outreaches, "target-outreach", 0, "weekly outreach target")
	cmd.Flags().IntVar(&companies, "target-companies", 0, "weekly new-company target")
	cmd.Flags().BoolVar(&seed, "seed", false, "seed sample data into an empty workspace")
	return cmd
}

func connectCmd() *cobra.Command {
	var baseURL, secret, token string
	cmd := &cobra.Command{
		Use:   "connect",
		Short: "Switch the workspace to a sync server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			sess := &app.Session{Workspace: workspace}
			defer sess.Close()
			remote := sess.ConnectRemote(baseURL, token)
			if err := remote.Health(cmd.Context()); err != nil {
				return fmt.Errorf("server unreachable: %w", err)
			}
			if token == "" && secret != "" {
				if err := remote.Authenticate(cmd.Context(), secret); err != nil {
					return fmt.Errorf("authentication failed: %w", err)
				}
			}
			cfg.Mode = config.ModeRemote
			cfg.Remote.BaseURL = baseURL
			cfg.Remote.Token = remote.Token
			if err := cfg.Save(workspace); err != nil {
				return err
			}
			if remote.IsAuthenticated() {
				fmt.Printf("Connected to %s (authenticated)\n", baseURL)
			} else {
				fmt.Printf("Connected to %s (read-only until authenticated)\n", baseURL)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&baseURL, "url", "", "sync server base URL")
	cmd.Flags().StringVar(&secret, "secret", "", "shared secret to exchange for a token")
	cmd.Flags().StringVar(&token, "token", "", "bearer token (skips the secret exchange)")
	_ = cmd.MarkFlagRequired("url")
	return cmd
}

func disconnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disconnect",
		Short: "Switch the workspace back to local storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			cfg.Mode = config.ModeLocal
			cfg.Remote.Token = ""
			if err := cfg.Save(workspace); err != nil {
				return err
			}
			fmt.Println("Using local storage")
			return nil
		},
	}
	return cmd
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the sync server over the local workspace",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			cfg, err := config.Load(workspace)
			if err != nil {
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
			secret := os.Getenv("JOBOS_SYNC_SECRET")
			if secret == "" {
				secret = cfg.Server.Secret
			}
			if secret == "" {
				fmt.Println("warning: no sync secret configured; serving without authentication")
			}
			handler, err := server.New(server.Config{
				Store:    store.NewLocal(conn),
				BasePath: basePath,
				Auth:     server.AuthConfig{Secret: secret},
			})
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving sync API on http://%s%s\n", addr, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to config)")
	cmd.Flags().StringVar(&basePath, "base-path", "/v0", "API base path")
	return cmd
}

// --- helpers ---

func withEngine(ctx context.Context, fn func(context.Context, engine.Engine) error) error {
	workspace := viper.GetString("workspace")
	cfg, err := config.Load(workspace)
	if err != nil {
		return err
	}
	sess, err := app.Open(workspace, cfg)
	if err != nil {
		return err
	}
	defer sess.Close()
	if err := fn(ctx, sess.Engine()); err != nil {
		if errors.Is(err, store.ErrAuthenticationRequired) {
			return fmt.Errorf("%w; run 'jobos connect --url %s --secret <secret>'", err, cfg.Remote.BaseURL)
		}
		return err
	}
	return nil
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
