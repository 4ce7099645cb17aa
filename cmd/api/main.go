package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/harentsoaR/hospital-api/internal/blobstore"
	"github.com/harentsoaR/hospital-api/internal/config"
	"github.com/harentsoaR/hospital-api/internal/handlers"
	"github.com/harentsoaR/hospital-api/internal/middleware"
	"github.com/harentsoaR/hospital-api/internal/repository"
	"github.com/harentsoaR/hospital-api/internal/services"
	"github.com/harentsoaR/hospital-api/internal/utils"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "hospital-api",
		Short:         "Hospital appointment booking API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(serveCmd(), createAdminCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}
}

func createAdminCmd() *cobra.Command {
	var form services.RegisterForm
	cmd := &cobra.Command{
		Use:   "create-admin",
		Short: "Create an administrator account in an empty database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			st, err := openStores(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer st.close()

			accounts := services.NewAccountService(st.users, st.blobs, utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpires), logger)
			admin, err := accounts.CreateAdmin(ctx, form)
			if err != nil {
				return err
			}
			logger.Info().Str("email", admin.Email).Str("id", admin.ID.Hex()).Msg("admin created")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&form.FirstName, "first-name", "", "first name (at least 3 characters)")
	f.StringVar(&form.LastName, "last-name", "", "last name (at least 3 characters)")
	f.StringVar(&form.Email, "email", "", "login email")
	f.StringVar(&form.Phone, "phone", "", "phone number, 11 digits")
	f.StringVar(&form.NIC, "nic", "", "national id, 13 digits")
	f.StringVar(&form.DOB, "dob", "", "date of birth, YYYY-MM-DD")
	f.StringVar(&form.Gender, "gender", "", "Male or Female")
	f.StringVar(&form.Password, "password", "", "password (at least 8 characters)")
	for _, name := range []string{"first-name", "last-name", "email", "phone", "nic", "dob", "gender", "password"} {
		_ = cmd.MarkFlagRequired(name)
	}
	return cmd
}

func setup() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, logger, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, logger, nil
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if cfg.IsDev() {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger.Level(level)
}

// stores bundles the repositories for the configured driver.
type stores struct {
	users        repository.UserRepository
	appointments repository.AppointmentRepository
	messages     repository.MessageRepository
	blobs        blobstore.Store
	ping         func(ctx context.Context) error
	close        func()
}

func openStores(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.DriverMemory {
		logger.Warn().Msg("using in-memory store; data is lost on restart")
		mem := repository.NewMemoryStore()
		return &stores{
			users:        mem.Users,
			appointments: mem.Appointments,
			messages:     mem.Messages,
			blobs:        blobstore.NewMemoryStore(cfg.AvatarBaseURL()),
			close:        func() {},
		}, nil
	}

	client, err := repository.Connect(ctx, cfg.MongoURI, cfg.ConnectTimeout)
	if err != nil {
		return nil, err
	}
	closeClient := func() {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(dctx); err != nil {
			logger.Warn().Err(err).Msg("mongodb disconnect")
		}
	}
	db := client.Database(cfg.MongoDatabase)

	ictx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()
	if err := repository.EnsureIndexes(ictx, db); err != nil {
		closeClient()
		return nil, err
	}
	blobs, err := blobstore.NewGridFSStore(db, cfg.AvatarBucket, cfg.AvatarBaseURL())
	if err != nil {
		closeClient()
		return nil, err
	}
	logger.Info().Str("database", cfg.MongoDatabase).Msg("connected to mongodb")

	return &stores{
		users:        repository.NewUserStore(db),
		appointments: repository.NewAppointmentStore(db),
		messages:     repository.NewMessageStore(db),
		blobs:        blobs,
		ping:         func(ctx context.Context) error { return client.Ping(ctx, nil) },
		close:        closeClient,
	}, nil
}

func newHandler(cfg *config.Config, st *stores, logger zerolog.Logger) *handlers.Handler {
	tokens := utils.NewTokenManager(cfg.JWTSecret, cfg.JWTExpires)
	notifier := services.NewNotificationService(cfg.TextbeltAPIKey, cfg.TextbeltURL, cfg.SMSTimeout, logger)
	return &handlers.Handler{
		Accounts: services.NewAccountService(st.users, st.blobs, tokens, logger),
		Booking:  services.NewBookingService(st.appointments, st.users, nil),
		Status:   services.NewStatusService(st.appointments, st.users, notifier, logger),
		Slots:    services.NewSlotService(st.appointments, st.users),
		Messages: services.NewMessageService(st.messages),
		Cookies:  handlers.CookieSettings{MaxAge: cfg.CookieMaxAge(), Secure: cfg.CookieSecure},
		Ping:     st.ping,
	}
}

func newRouter(cfg *config.Config, h *handlers.Handler, logger zerolog.Logger) *gin.Engine {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.MaxMultipartMemory = blobstore.MaxFileSize + 1<<20
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	h.RegisterRoutes(r)
	return r
}

func runServer(ctx context.Context) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           newRouter(cfg, newHandler(cfg, st, logger), logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Str("env", cfg.Env).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info().Msg("server stopped")
	return nil
}
