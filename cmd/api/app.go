package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/auth"
	"godsendjoseph.dev/gaushala-api/internal/cron"
	"godsendjoseph.dev/gaushala-api/internal/notification"
	"godsendjoseph.dev/gaushala-api/internal/ratelimiter"
	"godsendjoseph.dev/gaushala-api/internal/storage"
	"godsendjoseph.dev/gaushala-api/internal/store"
	"godsendjoseph.dev/gaushala-api/internal/store/cache"
	"godsendjoseph.dev/gaushala-api/internal/upload"
)

type application struct {
	config        config
	store         store.Storage
	cacheStorage  cache.Storage
	logger        *zap.SugaredLogger
	authenticator auth.Authenticator
	rateLimiter   ratelimiter.Limiter
	scheduler     *cron.Scheduler
	slackNotifier *notification.SlackNotifier
	storageClient storage.Client
	provisioner   *upload.Provisioner
	uploader      *upload.Coordinator
	filesystem    *upload.FilesystemStrategy
}

type config struct {
	addr          string
	db            dbConfig
	env           string
	apiURL        string
	auth          authConfig
	redisCfg      redisConfig
	rateLimiter   ratelimiter.Config
	timezone      string
	slack         slackConfig
	storage       storageConfig
	uploadMaxSize int64
}

type redisConfig struct {
	addr    string
	pwd     string
	db      int
	enabled bool
}

type storageConfig struct {
	provider               string
	bucket                 string
	public                 bool
	maxObjectBytes         int64
	allowedMimeTypes       []string
	signedURLTTL           time.Duration
	remoteTimeout          time.Duration
	uploadsDir             string
	authenticatedPrincipal string
	reprovisionSchedule    string
	supabase               supabaseConfig
	s3                     s3Config
	minio                  minioConfig
}

type supabaseConfig struct {
	url            string
	serviceRoleKey string
	dbURL          string
}

type s3Config struct {
	endpoint        string
	region          string
	accessKeyID     string
	secretAccessKey string
	publicURL       string
}

type minioConfig struct {
	endpoint  string
	accessKey string
	secretKey string
	useSSL    bool
	region    string
	publicURL string
}

type authConfig struct {
	enabled bool
	token   tokenConfig
}

type tokenConfig struct {
	secret   string
	audience string
	issuer   string
}

type dbConfig struct {
	addr         string
	user         string
	password     string
	dbName       string
	maxOpenConns int
	maxIdleConns int
	maxIdleTime  string
	enabled      bool
}

type slackConfig struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	enabled    bool
}

type contextKey string

func (cfg storageConfig) container() storage.Container {
	return storage.Container{
		Name:             cfg.bucket,
		IsPublic:         cfg.public,
		MaxObjectBytes:   cfg.maxObjectBytes,
		AllowedMimeTypes: cfg.allowedMimeTypes,
	}
}

func (app *application) mount() http.Handler {
	router := chi.NewRouter()

	// middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	// cors
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*", "http://localhost:*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}))

	router.Use(app.RateLimiterMiddleware)

	// the upload chain may spend the whole remote deadline before the local fallback runs
	router.Use(middleware.Timeout(app.config.storage.remoteTimeout + 15*time.Second))

	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		app.notFoundResponse(w, r, errors.New("route not found"))
	})

	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		app.methodNotAllowedResponse(w, r, errors.New("method not allowed"))
	})

	fileServer := http.FileServer(http.Dir(app.filesystem.Dir()))
	router.Handle(upload.UploadsURLPrefix+"/*", http.StripPrefix(upload.UploadsURLPrefix, fileServer))

	// routes
	app.registerRoutes(router)

	return router
}

func (app *application) run(mux http.Handler) error {
	server := &http.Server{
		Addr:         app.config.addr,
		Handler:      mux,
		WriteTimeout: app.config.storage.remoteTimeout + 30*time.Second,
		ReadTimeout:  time.Minute,
		IdleTimeout:  time.Minute,
	}

	shutdown := make(chan error)

	go func() {
		quit := make(chan os.Signal, 1)

		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

		s := <-quit

		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)

		defer cancel()

		app.logger.Infow("signals caught", "signal", s.String())

		shutdown <- server.Shutdown(ctx)
	}()

	app.logger.Infow("Server has started", "addr", app.config.addr, "env", app.config.env, "storage", app.config.storage.provider)

	err := server.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	err = <-shutdown
	if err != nil {
		return err
	}

	app.logger.Infow("Server has stopped", "addr", app.config.addr, "env", app.config.env)

	return nil
}
