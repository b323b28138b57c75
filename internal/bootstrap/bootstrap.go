package bootstrap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	appControllers "github.com/famfund/famfund/internal/app/controllers"
	"github.com/famfund/famfund/internal/app/governance"
	appMigrations "github.com/famfund/famfund/internal/app/migrations"
	appRepos "github.com/famfund/famfund/internal/app/repositories"
	appRoutes "github.com/famfund/famfund/internal/app/routes"
	appServices "github.com/famfund/famfund/internal/app/services"
	"github.com/famfund/famfund/internal/config"
	"github.com/famfund/famfund/internal/db"
	appMiddleware "github.com/famfund/famfund/internal/middleware"
	pkgAuth "github.com/famfund/famfund/internal/pkg/auth"
	"github.com/famfund/famfund/internal/pkg/helpers"
	"github.com/famfund/famfund/internal/pkg/keylock"
	"github.com/famfund/famfund/internal/pkg/logger"
	"github.com/famfund/famfund/internal/pkg/websocket"
	"github.com/famfund/famfund/internal/seed"
)

// Dependencies holds all the application dependencies
type Dependencies struct {
	CommunityService    appServices.CommunityService
	LoanService         appServices.LoanService
	CommunityController *appControllers.CommunityController
	LoanController      *appControllers.LoanController
	AuthMiddleware      *appMiddleware.AuthMiddleware
	Repos               *appRepos.Repositories
	JWTService          *pkgAuth.JWTService
	Hub                 *websocket.Hub
	WSHandler           *websocket.Handler
	Logger              zerolog.Logger
}

// LoadConfigAndSetupLogger loads configuration and initializes the logger.
func LoadConfigAndSetupLogger() (*config.Config, zerolog.Logger, error) {
	configPath := filepath.Join("configs", "config.yaml")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to load configuration")
		return nil, zerolog.Logger{}, err
	}

	logLevel := logger.LogLevel(strings.ToLower(cfg.Logging.Level))
	prettyLog := strings.ToLower(cfg.Logging.Format) == "text"

	logger.Configure(logger.Config{
		Level:  logLevel,
		Pretty: prettyLog,
	})

	lgr := log.Logger
	lgr.Info().Str("logLevel", string(logLevel)).Str("logFormat", cfg.Logging.Format).Msg("Logger configured")
	return cfg, lgr, nil
}

// SetupDatabase establishes the database connection and runs migrations.
func SetupDatabase(cfg *config.Config, lgr zerolog.Logger) (*pgxpool.Pool, error) {
	lgr.Info().Msg("Establishing database connection...")
	database, err := db.NewPostgresDB(cfg)
	if err != nil {
		lgr.Error().Err(err).Msg("Failed to connect to database")
		return nil, err
	}
	dbPool := database.Pool

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := dbPool.Ping(ctx); err != nil {
		lgr.Error().Err(err).Msg("Failed to ping database")
		dbPool.Close()
		return nil, err
	}
	lgr.Info().Msg("Database connection successfully established.")

	lgr.Info().Msg("Running database migrations...")
	migrator := appMigrations.NewMigrator(dbPool)

	migrationsDir := "migrations"
	if _, err := os.Stat(migrationsDir); os.IsNotExist(err) {
		lgr.Error().Str("path", migrationsDir).Msg("Migrations directory not found")
		return nil, fmt.Errorf("migrations directory not found at %s: %w", migrationsDir, err)
	}

	if err := migrator.MigrateFromDirectory(context.Background(), migrationsDir); err != nil {
		lgr.Error().Err(err).Msg("Database migration error")
		return nil, fmt.Errorf("database migrations failed: %w", err)
	}

	lgr.Info().Msg("Database migrations successfully applied.")

	if err := seed.CreateDefaultData(context.Background(), dbPool, cfg.Governance.DefaultMaxMembers, lgr); err != nil {
		// Seed data is a convenience, not a startup requirement.
		lgr.Error().Err(err).Msg("Failed to create default data, proceeding anyway...")
	}

	return dbPool, nil
}

// BuildDependencies initializes repositories, services, controllers and the
// event hub. The returned Hub is already running.
func BuildDependencies(cfg *config.Config, dbPool *pgxpool.Pool, lgr zerolog.Logger) (*Dependencies, error) {
	deps := &Dependencies{Logger: lgr}

	deps.Repos = appRepos.NewRepositories(dbPool)

	deps.JWTService = pkgAuth.NewJWTService(pkgAuth.JWTConfig{
		SecretKey:      cfg.JWT.Secret,
		AccessTokenExp: helpers.ParseDuration(cfg.JWT.AccessTokenExpiration, 1*time.Hour),
		TokenIssuer:    cfg.JWT.Issuer,
	})

	policy, err := governance.NewPolicy(cfg.Governance.ApprovalThreshold)
	if err != nil {
		return nil, fmt.Errorf("invalid governance configuration: %w", err)
	}

	deps.Hub = websocket.NewHub(lgr)
	go deps.Hub.Run()

	locks := keylock.New()
	txRunner := appServices.PoolTxRunner{Pool: dbPool}

	deps.CommunityService = appServices.NewCommunityService(
		deps.Repos.CommunityRepository,
		deps.Repos.MemberRepository,
		txRunner,
		locks,
		deps.Hub,
		cfg.Governance.DefaultMaxMembers,
		lgr,
	)

	deps.LoanService = appServices.NewLoanService(
		deps.Repos.LoanRepository,
		deps.Repos.VoteRepository,
		deps.Repos.CommunityRepository,
		deps.Repos.MemberRepository,
		txRunner,
		locks,
		deps.Hub,
		policy,
		lgr,
	)

	deps.AuthMiddleware = appMiddleware.NewAuthMiddleware(deps.JWTService)

	deps.CommunityController = appControllers.NewCommunityController(deps.CommunityService)
	deps.LoanController = appControllers.NewLoanController(deps.LoanService)
	deps.WSHandler = websocket.NewHandler(deps.Hub, deps.CommunityService, lgr)

	return deps, nil
}

// SetupRouter configures the Gin engine with middleware and routes.
func SetupRouter(cfg *config.Config, deps *Dependencies, lgr zerolog.Logger) *gin.Engine {
	if strings.ToLower(cfg.Server.Mode) == "production" {
		gin.SetMode(gin.ReleaseMode)
		lgr.Info().Msg("Setting Gin mode to release")
	} else {
		gin.SetMode(gin.DebugMode)
		lgr.Info().Msg("Setting Gin mode to debug")
	}

	router := gin.Default()

	appRoutes.SetupRouter(router,
		deps.CommunityController,
		deps.LoanController,
		deps.WSHandler,
		deps.AuthMiddleware,
	)

	return router
}
