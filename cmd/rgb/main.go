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

	"rgbportal/internal/app"
	"rgbportal/internal/auth"
	"rgbportal/internal/config"
	"rgbportal/internal/db"
	"rgbportal/internal/domain"
	"rgbportal/internal/engine"
	"rgbportal/internal/migrate"
	"rgbportal/internal/notify"
	"rgbportal/internal/repo"
	"rgbportal/internal/server"
)

var rootCmd = &cobra.Command{
	Use:   "rgb",
	Short: "RGB registration portal CLI",
	Long: `rgb manages the organization registration portal.
Applications move through a chained review: FBO officer intake, division
manager, head of department, secretary general, then CEO. Approval
issues a registration certificate; every step lands in the audit trail
and the event log ('rgb log tail').`,
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
	viper.SetEnvPrefix("RGBPORTAL")
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
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(adminCmd())
	rootCmd.AddCommand(applicationCmd())
	rootCmd.AddCommand(certCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(logCmd())
	rootCmd.AddCommand(serveCmd())
}

func configCmd() *cobra.Command {
	cfg := &cobra.Command{Use: "config", Short: "Manage configuration"}
	cfg.AddCommand(&cobra.Command{
		Use:   "init",
		Short: "Write default rgbportal.yml",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := config.Path(viper.GetString("workspace"))
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("%s already exists", path)
			}
			if err := os.WriteFile(path, []byte(config.GenerateDefault()), 0o644); err != nil {
				return err
			}
			fmt.Println("wrote", path)
			return nil
		},
	})
	cfg.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show effective configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := config.LoadOptional(viper.GetString("workspace"))
			if err != nil {
				return err
			}
			return printJSON(c)
		},
	})
	return cfg
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			conn, err := db.Open(db.Config{Workspace: viper.GetString("workspace")})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			fmt.Println("migrations applied:", db.Path(viper.GetString("workspace")))
			return nil
		},
	}
}

func adminCmd() *cobra.Command {
	adm := &cobra.Command{Use: "admin", Short: "Manage reviewer accounts"}
	adm.AddCommand(adminAddCmd())
	adm.AddCommand(adminListCmd())
	adm.AddCommand(adminSetEnabledCmd("enable", true))
	adm.AddCommand(adminSetEnabledCmd("disable", false))
	return adm
}

func adminAddCmd() *cobra.Command {
	var email, password, first, last, phone, role string
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create reviewer account",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsedRole, err := domain.ParseRole(role)
			if err != nil {
				return err
			}
			if email == "" {
				return fmt.Errorf("--email required")
			}
			hash, err := auth.HashPassword(password)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				now := e.Now().UTC().Format(time.RFC3339)
				admin := domain.Admin{
					Email:        email,
					PasswordHash: hash,
					FirstName:    first,
					LastName:     last,
					PhoneNumber:  phone,
					Role:         parsedRole,
					Enabled:      true,
					CreatedAt:    now,
					UpdatedAt:    now,
				}
				admin.ID, err = e.Repo.InsertAdmin(ctx, admin)
				if err != nil {
					return err
				}
				fmt.Printf("created admin %d (%s, %s)\n", admin.ID, admin.Email, admin.Role)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	cmd.Flags().StringVar(&first, "firstname", "", "first name")
	cmd.Flags().StringVar(&last, "lastname", "", "last name")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&role, "role", "", "FBO_OFFICER|DIVISION_MANAGER|HOD|SECRETARY_GENERAL|CEO")
	return cmd
}

func adminListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List reviewer accounts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListAdmins(ctx)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Email", "Name", "Role", "Enabled"})
				for _, a := range items {
					tw.AppendRow(table.Row{a.ID, a.Email, a.FullName(), a.Role, a.Enabled})
				}
				tw.Render()
				return nil
			})
		},
	}
}

func adminSetEnabledCmd(use string, enabled bool) *cobra.Command {
	var id int64
	short := "Enable a reviewer account"
	if !enabled {
		short = "Disable a reviewer account"
	}
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				admin, err := r.GetAdmin(ctx, id)
				if err != nil {
					return err
				}
				admin.Enabled = enabled
				admin.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
				if err := r.UpdateAdmin(ctx, admin); err != nil {
					return err
				}
				fmt.Printf("admin %d %sd\n", id, use)
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "admin id")
	return cmd
}

func applicationCmd() *cobra.Command {
	appCmd := &cobra.Command{Use: "application", Short: "Inspect and move applications"}
	appCmd.AddCommand(applicationListCmd())
	appCmd.AddCommand(applicationShowCmd())
	appCmd.AddCommand(applicationStatusCmd())
	appCmd.AddCommand(applicationAuditCmd())
	return appCmd
}

func applicationListCmd() *cobra.Command {
	var status string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List applications",
		RunE: func(cmd *cobra.Command, args []string) error {
			filters := repo.ApplicationFilters{Limit: limit}
			if status != "" {
				parsed, err := domain.ParseStatus(status)
				if err != nil {
					return err
				}
				filters.Statuses = []domain.Status{parsed}
			}
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				items, err := r.ListApplications(ctx, filters)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(items)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"ID", "Organization", "District", "Status", "Submitted", "Certificate"})
				for _, a := range items {
					cert := ""
					if a.CertificateNumber != nil {
						cert = *a.CertificateNumber
					}
					tw.AppendRow(table.Row{a.ID, a.OrganizationName, a.District, a.Status, a.SubmittedAt, cert})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "max rows")
	return cmd
}

func applicationShowCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show one application",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				a, err := r.GetApplication(ctx, id)
				if err != nil {
					return err
				}
				return printJSON(a)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "application id")
	return cmd
}

func applicationStatusCmd() *cobra.Command {
	var id, actorID int64
	var target, comment string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Apply a status transition as a reviewer",
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := domain.ParseStatus(target)
			if err != nil {
				return err
			}
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				actor, err := e.Repo.GetAdmin(ctx, actorID)
				if err != nil {
					return err
				}
				out, err := e.ApplyTransition(ctx, engine.TransitionOptions{
					ApplicationID: id,
					Actor:         actor,
					Target:        parsed,
					Comment:       comment,
				})
				if err != nil {
					return err
				}
				for _, w := range out.Warnings {
					fmt.Fprintln(os.Stderr, "warning:", w)
				}
				return printJSON(out.Application)
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "application id")
	cmd.Flags().Int64Var(&actorID, "actor", 0, "acting admin id")
	cmd.Flags().StringVar(&target, "to", "", "target status")
	cmd.Flags().StringVar(&comment, "comment", "", "optional comment")
	return cmd
}

func applicationAuditCmd() *cobra.Command {
	var id int64
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show an application's audit trail",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				records, err := e.Audit.ListFor(ctx, id)
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(records)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"When", "Actor", "From", "To", "Comment"})
				for _, rec := range records {
					from, to := "", ""
					if rec.FromStatus != nil {
						from = string(*rec.FromStatus)
					}
					if rec.ToStatus != nil {
						to = string(*rec.ToStatus)
					}
					tw.AppendRow(table.Row{rec.CreatedAt, rec.ActorName, from, to, rec.Comment})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().Int64Var(&id, "id", 0, "application id")
	return cmd
}

func certCmd() *cobra.Command {
	cert := &cobra.Command{Use: "cert", Short: "Certificates"}
	var number string
	verify := &cobra.Command{
		Use:   "verify",
		Short: "Verify a certificate number",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				a, err := e.VerifyCertificate(ctx, number)
				if err != nil {
					if errors.Is(err, repo.ErrNotFound) {
						return fmt.Errorf("certificate %s not found", number)
					}
					return err
				}
				fmt.Printf("valid: %s issued to %s (%s)\n", number, a.OrganizationName, a.District)
				return nil
			})
		},
	}
	verify.Flags().StringVar(&number, "number", "", "certificate number")
	cert.AddCommand(verify)
	return cert
}

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Pipeline statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withEngine(cmd.Context(), func(ctx context.Context, e engine.Engine) error {
				stats, err := e.GetStats(ctx, "")
				if err != nil {
					return err
				}
				if viper.GetBool("json") {
					return printJSON(stats)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(os.Stdout)
				tw.AppendHeader(table.Row{"Status", "Count"})
				for _, status := range domain.Statuses() {
					if n := stats.ByStatus[status]; n > 0 {
						tw.AppendRow(table.Row{status, n})
					}
				}
				tw.AppendFooter(table.Row{"Total", stats.Total})
				tw.Render()
				return nil
			})
		},
	}
}

func logCmd() *cobra.Command {
	logRoot := &cobra.Command{Use: "log", Short: "Event log"}
	var n int
	var evtType string
	var applicationID int64
	tail := &cobra.Command{
		Use:   "tail",
		Short: "Tail events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRepo(cmd.Context(), func(ctx context.Context, r repo.Repo) error {
				events, err := r.LatestEvents(ctx, n, evtType, applicationID)
				if err != nil {
					return err
				}
				return printJSON(events)
			})
		},
	}
	tail.Flags().IntVar(&n, "n", 20, "number of events")
	tail.Flags().StringVar(&evtType, "type", "", "event type filter")
	tail.Flags().Int64Var(&applicationID, "application", 0, "application id filter")
	logRoot.AddCommand(tail)
	return logRoot
}

func serveCmd() *cobra.Command {
	var addr, basePath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			workspace := viper.GetString("workspace")
			conn, err := db.Open(db.Config{Workspace: workspace})
			if err != nil {
				return err
			}
			defer conn.Close()
			if err := migrate.Migrate(conn); err != nil {
				return err
			}
			cfg, err := config.Load(workspace)
			if err != nil {
				return err
			}
			secret := cfg.Auth.JWTSecret
			if env := os.Getenv("RGBPORTAL_JWT_SECRET"); env != "" {
				secret = env
			}
			if secret == "" {
				return fmt.Errorf("auth.jwt_secret or RGBPORTAL_JWT_SECRET is required")
			}
			hub := notify.NewHub()
			e := engine.New(conn, cfg, hub)
			if seeded, err := app.SeedInitialAdmin(cmd.Context(), e); err != nil {
				return err
			} else if seeded {
				fmt.Println("seeded initial CEO account:", cfg.Bootstrap.CEOEmail)
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}
			if basePath == "" {
				basePath = cfg.Server.BasePath
			}
			handler, err := server.New(server.Config{
				Engine:   e,
				Hub:      hub,
				BasePath: basePath,
				Auth:     server.AuthConfig{JWTSecret: secret, TokenTTLHours: cfg.TokenTTLHoursOrDefault()},
			})
			if err != nil {
				return err
			}
			server.StartWebhookDispatcher(e)
			srv := &http.Server{Addr: addr, Handler: handler}
			go func() {
				<-cmd.Context().Done()
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				srv.Shutdown(ctx)
			}()
			fmt.Printf("Serving RGB Portal API on http://%s%s (OpenAPI at %s/openapi.json)\n", addr, basePath, basePath)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().StringVar(&basePath, "base-path", "", "API base path (default from config)")
	return cmd
}

// --- helpers ---

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
	cfg, err := config.LoadOptional(workspace)
	if err != nil {
		return err
	}
	e := engine.New(conn, cfg, notify.NewHub())
	return fn(ctx, e)
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

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
