package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusdesk/internal/authz"
	"campusdesk/internal/config"
	"campusdesk/internal/db"
	"campusdesk/internal/logger"
	"campusdesk/internal/realtime"
	"campusdesk/internal/router"
	"campusdesk/internal/services"
	"campusdesk/internal/storage"
	"campusdesk/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

const uploadDir = "./uploads"

func main() {
	rootCmd := &cobra.Command{
		Use:           "campusdesk",
		Short:         "Campus issues, hostel leave and gate pass server",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), migrateCmd(), promoteCmd())

	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// bootstrap loads config, installs the logger and opens the database.
func bootstrap() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	logger.Init(cfg.LogLevel, cfg.LogFormat)

	conn, err := db.Init(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return cfg, conn, nil
}

func serveCmd() *cobra.Command {
	var skipMigrate bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(skipMigrate)
		},
	}
	cmd.Flags().BoolVar(&skipMigrate, "skip-migrate", false, "Do not run migrations on startup")
	return cmd
}

func serve(skipMigrate bool) error {
	cfg, conn, err := bootstrap()
	if err != nil {
		return err
	}
	if !skipMigrate {
		if err := db.Migrate(conn); err != nil {
			return err
		}
	}

	rdb, err := realtime.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		slog.Warn("realtime feed disabled: REDIS_URL not set")
	}
	pub := realtime.NewPublisher(rdb)

	var sender services.MailSender
	if cfg.MailEnabled() {
		sender = services.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}
	mail := services.NewMailService(sender)
	defer mail.Wait()

	var fence *services.Geofence
	if cfg.GeofenceEnabled() {
		fence = &services.Geofence{Lat: cfg.CampusLat, Lng: cfg.CampusLng, RadiusMeters: cfg.CampusRadiusMeters}
		slog.Info("gate geofence enabled", "radius_m", cfg.CampusRadiusMeters)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	triage := services.NewTriageService(conn)
	triage.Start(ctx)

	notify := services.NewNotificationService(conn)
	votes := services.NewVoteService(conn, triage, pub)

	enforcer, err := authz.NewEnforcer()
	if err != nil {
		return err
	}

	var uploader storage.Uploader
	if cfg.UploadEndpoint != "" {
		uploader = storage.NewRemoteUploader(cfg.UploadEndpoint, cfg.UploadPreset)
	} else {
		uploader = &storage.LocalUploader{Dir: uploadDir, BaseURL: "/uploads"}
		slog.Info("storing uploads on disk", "dir", uploadDir)
	}

	gin.SetMode(cfg.GinMode)
	r := router.New(router.Deps{
		Accounts:       services.NewAccountService(conn, mail, cfg.CampusEmailDomain),
		Issues:         services.NewIssueService(conn, votes, triage, notify, mail, pub),
		Votes:          votes,
		Leaves:         services.NewLeaveService(conn, notify, mail, pub),
		Gate:           services.NewGatePassService(conn, fence, pub),
		Clubs:          services.NewClubService(conn),
		Notifications:  notify,
		Publisher:      pub,
		Uploader:       uploader,
		Enforcer:       enforcer,
		Cache:          utils.GetCache(),
		Logger:         logger.WithComponent("http"),
		SessionSecret:  cfg.SessionSecret,
		CookieSecure:   cfg.CookieSecure,
		UploadMaxBytes: cfg.UploadMaxBytes,
		Ping:           pinger(conn),
	})
	if _, ok := uploader.(*storage.LocalUploader); ok {
		r.Static("/uploads", uploadDir)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("campusdesk server starting", "addr", srv.Addr, "mode", cfg.GinMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	slog.Info("server exited")
	return nil
}

func pinger(conn *gorm.DB) func() error {
	return func() error {
		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		return sqlDB.PingContext(ctx)
	}
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update tables and seed the club directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap()
			if err != nil {
				return err
			}
			return db.Migrate(conn)
		},
	}
}

func promoteCmd() *cobra.Command {
	var email, role string
	cmd := &cobra.Command{
		Use:     "promote",
		Short:   "Change an account's role",
		Example: "  campusdesk promote --email warden@nitp.ac.in --role admin",
		RunE: func(cmd *cobra.Command, args []string) error {
			r, err := authz.ParseRole(role)
			if err != nil {
				return err
			}
			cfg, conn, err := bootstrap()
			if err != nil {
				return err
			}
			accounts := services.NewAccountService(conn, services.NewMailService(nil), cfg.CampusEmailDomain)
			u, err := accounts.SetRole(cmd.Context(), email, r)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now %s\n", u.Email, u.Role)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "Account email")
	cmd.Flags().StringVar(&role, "role", "", "One of admin, club-admin, student, public")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}
