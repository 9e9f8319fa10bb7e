package app

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/awwsmm/subway/auth"
	"github.com/awwsmm/subway/config"
	"github.com/awwsmm/subway/handlers"
	"github.com/awwsmm/subway/internal/observability"
	"github.com/awwsmm/subway/keycloak"
	"github.com/awwsmm/subway/middleware"
	"github.com/awwsmm/subway/realm"
	"github.com/awwsmm/subway/repositories"
	"github.com/awwsmm/subway/repositories/memory"
	"github.com/awwsmm/subway/repositories/postgres"
	"github.com/awwsmm/subway/services"
	"github.com/awwsmm/subway/services/content"
	"github.com/awwsmm/subway/session"
)

// Dependencies holds all application dependencies.
// This is the central wiring point for dependency injection.
type Dependencies struct {
	// Infrastructure
	Config   *config.Config
	Logger   *zap.Logger
	Registry *prometheus.Registry
	Metrics  *observability.AuthMetrics

	// Storage. RepoFactory is nil in memory mode.
	RepoFactory  *postgres.RepositoryFactory
	Repositories *repositories.Repositories

	// Auth
	Sessions       *session.Store
	Authenticator  *auth.Authenticator
	authHandler    *auth.Handler
	AuthMiddleware *middleware.AuthMiddleware
	LoginLimiter   *middleware.LoginRateLimiter
	keycloakJWKS   handlers.ReadinessCheck

	// Content
	Content        *content.Service
	ContentHandler *handlers.ContentHandler
	HealthHandler  *handlers.HealthHandler
}

// AuthHandler returns the auth handler for route wiring (implements handlers.AuthDeps)
func (d *Dependencies) AuthHandler() *auth.Handler {
	return d.authHandler
}

// NewDependencies creates and wires up all application dependencies.
// Any configuration problem found here is fatal to startup.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics()

	if err := deps.initStorage(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	if err := deps.initAuth(cfg); err != nil {
		_ = deps.closeStorage()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	deps.Content = content.NewService(deps.Repositories, logger)
	deps.ContentHandler = handlers.NewContentHandler(deps.Content, logger)
	deps.initHealth()

	logger.Info("all dependencies initialized successfully",
		zap.String("auth_mode", string(deps.Authenticator.Mode())),
		zap.String("db_mode", cfg.Database.Mode))
	return deps, nil
}

func (d *Dependencies) initMetrics() {
	d.Registry = prometheus.NewRegistry()
	d.Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	d.Metrics = observability.NewAuthMetrics(d.Registry)
}

// initStorage selects the in-memory or PostgreSQL repositories
func (d *Dependencies) initStorage(ctx context.Context, cfg *config.Config) error {
	if cfg.Database.Mode != config.DBModePostgres {
		d.Repositories = memory.NewRepositories()
		d.Logger.Info("using in-memory storage")
		return nil
	}

	factory, err := postgres.NewRepositoryFactory(cfg.Database, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	if err := factory.GetDB().PingContext(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("database ping failed: %w", err)
	}

	d.RepoFactory = factory
	d.Repositories = factory.NewRepositories()
	return nil
}

// initAuth builds the authenticator for the configured mode
func (d *Dependencies) initAuth(cfg *config.Config) error {
	mode, err := auth.ParseMode(cfg.Auth.Mode)
	if err != nil {
		return err
	}

	d.Sessions = session.NewStore()

	switch mode {
	case auth.ModeLocal:
		// Reads happen per login; parse once here so a broken export fails startup.
		if _, err := realm.LoadFile(cfg.Auth.RealmExportPath); err != nil {
			return services.WrapError(services.ErrConfiguration, err)
		}
		local := auth.NewLocalAuthenticator(realm.NewFileSource(cfg.Auth.RealmExportPath), d.Sessions, cfg.Auth.LocalSessionTTL, d.Logger)
		d.Authenticator = auth.NewLocal(local, d.Logger, auth.WithLoginRecorder(d.Metrics))
		d.Logger.Info("local authentication enabled",
			zap.String("realm_export", cfg.Auth.RealmExportPath))

	case auth.ModeKeycloak:
		kc := keycloakConfig(cfg.Keycloak)
		httpClient := keycloak.NewHTTPClient(kc)
		validator := keycloak.NewValidator(kc,
			keycloak.WithHTTPClient(httpClient),
			keycloak.WithFetchObserver(d.Metrics))
		exchanger := keycloak.NewPasswordExchanger(kc, httpClient)
		oidc := auth.NewOIDCAuthenticator(validator, exchanger, d.Sessions, d.Logger)
		d.Authenticator = auth.NewOIDC(oidc, d.Logger, auth.WithLoginRecorder(d.Metrics))
		d.keycloakJWKS = func(ctx context.Context) error {
			_, err := validator.FetchJWKS(ctx, kc.Realm)
			return err
		}
		if kc.HTTPTimeout == 0 {
			d.Logger.Warn("keycloak HTTP timeout disabled, provider calls are bounded by the request timeout only",
				zap.Duration("request_timeout", cfg.Server.RequestTimeout))
		}
		d.Logger.Info("keycloak authentication enabled",
			zap.String("base_url", kc.BaseURL),
			zap.String("realm", kc.Realm),
			zap.String("issuer", validator.Issuer()))
	}

	d.authHandler = auth.NewHandler(d.Authenticator, d.Logger)
	d.AuthMiddleware = middleware.NewAuthMiddleware(d.Authenticator, d.Logger).WithRecorder(d.Metrics)

	if cfg.Auth.LoginRatePerMinute > 0 {
		d.LoginLimiter = middleware.NewLoginRateLimiter(middleware.PerMinute(cfg.Auth.LoginRatePerMinute), d.Logger)
	}
	return nil
}

func (d *Dependencies) initHealth() {
	d.HealthHandler = handlers.NewHealthHandler(nil, d.Logger)
	if d.RepoFactory != nil {
		d.HealthHandler = handlers.NewHealthHandler(d.RepoFactory.GetDB().DB, d.Logger)
	}
	if d.keycloakJWKS != nil {
		d.HealthHandler.WithCheck("keycloak", d.keycloakJWKS)
	}
}

func keycloakConfig(cfg config.KeycloakConfig) keycloak.Config {
	return keycloak.Config{
		BaseURL:            cfg.BaseURL,
		IssuerBaseURL:      cfg.IssuerBaseURL,
		Realm:              cfg.Realm,
		ClientID:           cfg.ClientID,
		ClientSecret:       cfg.ClientSecret,
		HTTPTimeout:        cfg.HTTPTimeout,
		InsecureSkipVerify: cfg.InsecureSkipVerify,
	}
}

func (d *Dependencies) closeStorage() error {
	if d.RepoFactory == nil {
		return nil
	}
	return d.RepoFactory.Close()
}

// Close gracefully shuts down all dependencies
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.LoginLimiter != nil {
		d.LoginLimiter.Stop()
	}

	// Close database connection
	if err := d.closeStorage(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close database: %w", err))
	} else if d.RepoFactory != nil {
		d.Logger.Info("database connection closed")
	}

	// Sync logger
	if d.Logger != nil {
		_ = d.Logger.Sync()
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors during shutdown: %v", errs)
	}

	return nil
}
