package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"godsendjoseph.dev/gaushala-api/internal/auth"
	"godsendjoseph.dev/gaushala-api/internal/cron"
	"godsendjoseph.dev/gaushala-api/internal/db"
	"godsendjoseph.dev/gaushala-api/internal/env"
	"godsendjoseph.dev/gaushala-api/internal/notification"
	"godsendjoseph.dev/gaushala-api/internal/ratelimiter"
	"godsendjoseph.dev/gaushala-api/internal/storage"
	"godsendjoseph.dev/gaushala-api/internal/store"
	"godsendjoseph.dev/gaushala-api/internal/store/cache"
	"godsendjoseph.dev/gaushala-api/internal/upload"
)

const version = "0.1.0"

func loadConfig() config {
	return config{
		addr:   env.GetString("ADDR", ":8080"),
		apiURL: env.GetString("EXTERNAL_URL", "http://localhost:8080"),
		env:    env.GetString("ENV", "development"),
		db: dbConfig{
			addr:         fmt.Sprintf("%s:%s", env.GetString("DB_HOST", "127.0.0.1"), env.GetString("DB_PORT", "3306")),
			user:         env.GetString("DB_USER", "root"),
			password:     env.GetString("DB_PASSWORD", "root"),
			dbName:       env.GetString("DB_NAME", "gaushala_db"),
			maxOpenConns: env.GetInt("DB_MAX_OPEN_CONNS", 25),
			maxIdleConns: env.GetInt("DB_MAX_IDLE_CONNS", 25),
			maxIdleTime:  env.GetString("DB_MAX_IDLE_TIME", "15m"),
			enabled:      env.GetBool("DB_ENABLED", true),
		},
		redisCfg: redisConfig{
			addr:    env.GetString("REDIS_ADDR", "localhost:6379"),
			pwd:     env.GetString("REDIS_PASSWORD", ""),
			db:      env.GetInt("REDIS_DB", 0),
			enabled: env.GetBool("REDIS_ENABLED", false),
		},
		storage: storageConfig{
			provider:               env.GetString("STORAGE_PROVIDER", providerSupabase),
			bucket:                 env.GetString("STORAGE_BUCKET", storage.DefaultContainer),
			public:                 env.GetBool("STORAGE_PUBLIC", true),
			maxObjectBytes:         env.GetBytes("STORAGE_MAX_OBJECT_SIZE", storage.DefaultMaxObjectBytes),
			allowedMimeTypes:       env.GetStringSlice("STORAGE_ALLOWED_MIME_TYPES", nil),
			signedURLTTL:           env.GetDuration("STORAGE_SIGNED_URL_TTL", 5*time.Minute),
			remoteTimeout:          env.GetDuration("STORAGE_REMOTE_TIMEOUT", upload.DefaultRemoteTimeout),
			uploadsDir:             env.GetString("STORAGE_UPLOADS_DIR", upload.DefaultUploadsDir),
			authenticatedPrincipal: env.GetString("STORAGE_AUTHENTICATED_PRINCIPAL", ""),
			reprovisionSchedule:    env.GetString("STORAGE_REPROVISION_SCHEDULE", "0 * * * *"),
			supabase: supabaseConfig{
				url:            env.GetString("SUPABASE_URL", "http://localhost:54321"),
				serviceRoleKey: env.GetString("SUPABASE_SERVICE_ROLE_KEY", ""),
				dbURL:          env.GetString("SUPABASE_DB_URL", ""),
			},
			s3: s3Config{
				endpoint:        env.GetString("S3_ENDPOINT", ""),
				region:          env.GetString("S3_REGION", "auto"),
				accessKeyID:     env.GetString("S3_ACCESS_KEY_ID", ""),
				secretAccessKey: env.GetString("S3_SECRET_ACCESS_KEY", ""),
				publicURL:       env.GetString("S3_PUBLIC_URL", ""),
			},
			minio: minioConfig{
				endpoint:  env.GetString("MINIO_ENDPOINT", "localhost:9000"),
				accessKey: env.GetString("MINIO_ACCESS_KEY", "minioadmin"),
				secretKey: env.GetString("MINIO_SECRET_KEY", "minioadmin"),
				useSSL:    env.GetBool("MINIO_USE_SSL", false),
				region:    env.GetString("MINIO_REGION", "us-east-1"),
				publicURL: env.GetString("MINIO_PUBLIC_URL", ""),
			},
		},
		uploadMaxSize: env.GetBytes("UPLOAD_MAX_SIZE", 12*1024*1024),
		auth: authConfig{
			enabled: env.GetBool("AUTH_ENABLED", false),
			token: tokenConfig{
				secret:   env.GetString("AUTH_JWT_SECRET", "super-secret-jwt-token-with-at-least-32-characters-long"),
				audience: env.GetString("AUTH_AUDIENCE", "authenticated"),
				issuer:   env.GetString("AUTH_ISSUER", ""),
			},
		},
		rateLimiter: ratelimiter.Config{
			RequestPerTimeForIP: env.GetInt("RATE_LIMITER_REQUEST_COUNT", 20),
			TimeFrame:           env.GetDuration("RATE_LIMITER_TIME_FRAME", time.Minute*5),
			Enabled:             env.GetBool("RATE_LIMITER_ENABLED", true),
		},
		timezone: env.GetString("TIMEZONE", "UTC"),
		slack: slackConfig{
			webhookURL: env.GetString("SLACK_WEBHOOK_URL", ""),
			channel:    env.GetString("SLACK_CHANNEL", "#notifications"),
			username:   env.GetString("SLACK_USERNAME", "Gaushala Bot"),
			iconEmoji:  env.GetString("SLACK_ICON_EMOJI", ":cow:"),
			enabled:    env.GetBool("SLACK_ENABLED", false),
		},
	}
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}

	cfg := loadConfig()

	// Logger
	logger := zap.Must(zap.NewProduction()).Sugar()
	if cfg.env == "development" {
		logger = zap.Must(zap.NewDevelopment()).Sugar()
	}
	defer logger.Sync()

	// Activity log database
	var appStore store.Storage
	if cfg.db.enabled {
		conn, err := db.New(
			cfg.db.addr,
			cfg.db.user,
			cfg.db.password,
			cfg.db.dbName,
			cfg.db.maxOpenConns,
			cfg.db.maxIdleConns,
			cfg.db.maxIdleTime,
		)
		if err != nil {
			logger.Panic(err)
		}
		defer conn.Close()
		logger.Info("connected to database")

		if err := handleMigrations(conn); err != nil {
			logger.Fatal(err)
		}

		// check for exiting after migrations
		if len(os.Args) > 1 && (os.Args[len(os.Args)-1] == "up" || os.Args[len(os.Args)-1] == "down" || os.Args[len(os.Args)-1] == "force") {
			return
		}

		appStore = store.NewStorage(conn)
	}

	// Cache instance
	var redisDB *redis.Client
	if cfg.redisCfg.enabled {
		redisDB = cache.NewRedisClient(
			cfg.redisCfg.addr,
			cfg.redisCfg.pwd,
			cfg.redisCfg.db,
		)
		logger.Info("redis connection has been established")
	}

	// Remote storage
	storageClient, closeStorage, err := newStorageClient(context.Background(), cfg.storage, logger)
	if err != nil {
		logger.Fatalw("failed to initialize storage client", "provider", cfg.storage.provider, "error", err)
	}
	defer closeStorage()
	if storageClient == nil {
		logger.Warnw("no remote storage configured, uploads go to the local directory", "dir", cfg.storage.uploadsDir)
	}

	uploader, provisioner, filesystem := newUploader(storageClient, cfg.storage, logger)
	if err := filesystem.EnsureDir(); err != nil {
		logger.Warnw("uploads directory unavailable", "dir", cfg.storage.uploadsDir, "error", err)
	}

	// Rate Limiter
	rateLimiter := ratelimiter.NewFixedWindowLimiter(
		cfg.rateLimiter.RequestPerTimeForIP,
		cfg.rateLimiter.TimeFrame,
	)

	jwtAuthenticator := auth.NewJWTAuthenticator(
		cfg.auth.token.secret,
		cfg.auth.token.audience,
		cfg.auth.token.issuer,
	)

	slackNotifier := notification.NewSlackNotifier(
		cfg.slack.webhookURL,
		cfg.slack.channel,
		cfg.slack.username,
		cfg.slack.iconEmoji,
		cfg.slack.enabled,
	)

	scheduler, err := cron.NewScheduler(logger, cfg.timezone)
	if err != nil {
		logger.Fatal(err)
	}
	if provisioner != nil && cfg.storage.reprovisionSchedule != "" {
		jobManager := cron.NewJobManager(logger, provisioner, slackNotifier)
		scheduler.Custom("reprovision-storage", cfg.storage.reprovisionSchedule, jobManager.ReprovisionStorage(cfg.storage.container()))
	}

	// Start the scheduler
	go scheduler.Start()
	// Ensure the scheduler stops when the app shuts down
	defer scheduler.Stop()

	app := &application{
		config:        cfg,
		store:         appStore,
		cacheStorage:  cache.NewRedisStorage(redisDB),
		logger:        logger,
		authenticator: jwtAuthenticator,
		rateLimiter:   rateLimiter,
		scheduler:     scheduler,
		slackNotifier: slackNotifier,
		storageClient: storageClient,
		provisioner:   provisioner,
		uploader:      uploader,
		filesystem:    filesystem,
	}

	app.provisionOnStartup()

	mux := app.mount()

	logger.Fatal(app.run(mux))
}

func handleMigrations(db *sql.DB) error {
	driver, err := mysql.WithInstance(db, &mysql.Config{})
	if err != nil {
		return fmt.Errorf("could not create driver instance: %v", err)
	}

	migrationsPath := "file://cmd/migrate/migrations"
	if os.Getenv("DOCKER_ENV") == "true" {
		migrationsPath = "file:///app/cmd/migrate/migrations"
	}

	m, err := migrate.NewWithDatabaseInstance(
		migrationsPath,
		"mysql",
		driver,
	)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %v", err)
	}

	cmd := os.Args[len(os.Args)-1]
	switch cmd {
	case "down":
		if err := m.Down(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("could not run down migration: %v", err)
		}
	case "force":
		if len(os.Args) != 3 {
			return fmt.Errorf("force command requires a version number")
		}
		version, err := strconv.ParseInt(os.Args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid version number: %v", err)
		}
		if err := m.Force(int(version)); err != nil {
			return fmt.Errorf("could not force version: %v", err)
		}
	default:
		// the server always runs pending migrations before serving
		if err := m.Up(); err != nil && err != migrate.ErrNoChange {
			return fmt.Errorf("could not run up migration: %v", err)
		}
	}

	return nil
}
