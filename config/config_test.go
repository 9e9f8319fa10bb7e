package config

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr bool
		check   func(*testing.T, *Config)
	}{
		{
			name:    "default configuration",
			envVars: map[string]string{},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "development", cfg.Environment)
				assert.Equal(t, "0.0.0.0", cfg.Server.Host)
				assert.Equal(t, 7878, cfg.Server.Port)
				assert.False(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, 60*time.Second, cfg.Server.RequestTimeout)
				assert.Equal(t, AuthModeLocal, cfg.Auth.Mode)
				assert.Equal(t, "../keycloak/realm-export.json", cfg.Auth.RealmExportPath)
				assert.Equal(t, 30*time.Second, cfg.Auth.LocalSessionTTL)
				assert.Equal(t, 30, cfg.Auth.LoginRatePerMinute)
				assert.Equal(t, DBModeMemory, cfg.Database.Mode)
				assert.Equal(t, "info", cfg.Observability.LogLevel)
				assert.True(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "keycloak configuration",
			envVars: map[string]string{
				"AUTH_MODE":                     "Keycloak",
				"KEYCLOAK_BASE_URL":             "https://kc.internal:8443",
				"KEYCLOAK_ISSUER_BASE_URL":      "https://kc.example.com",
				"KEYCLOAK_REALM":                "subway",
				"KEYCLOAK_CLIENT_ID":            "backend",
				"KEYCLOAK_CLIENT_SECRET":        "s3cret",
				"KEYCLOAK_INSECURE_SKIP_VERIFY": "true",
				"KEYCLOAK_HTTP_TIMEOUT":         "5s",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, AuthModeKeycloak, cfg.Auth.Mode)
				assert.Equal(t, "https://kc.internal:8443", cfg.Keycloak.BaseURL)
				assert.Equal(t, "https://kc.example.com", cfg.Keycloak.IssuerBaseURL)
				assert.Equal(t, "subway", cfg.Keycloak.Realm)
				assert.Equal(t, "backend", cfg.Keycloak.ClientID)
				assert.Equal(t, "s3cret", cfg.Keycloak.ClientSecret)
				assert.True(t, cfg.Keycloak.InsecureSkipVerify)
				assert.Equal(t, 5*time.Second, cfg.Keycloak.HTTPTimeout)
			},
		},
		{
			name: "keycloak defaults",
			envVars: map[string]string{
				"AUTH_MODE": "keycloak",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "https://subway-keycloak:8443", cfg.Keycloak.BaseURL)
				assert.Equal(t, "https://localhost:8443", cfg.Keycloak.IssuerBaseURL)
				assert.Equal(t, "myrealm", cfg.Keycloak.Realm)
				assert.Equal(t, "my-confidential-client", cfg.Keycloak.ClientID)
				assert.Zero(t, cfg.Keycloak.HTTPTimeout)
			},
		},
		{
			name: "postgres configuration from DATABASE_URL",
			envVars: map[string]string{
				"DB_MODE":           "postgres",
				"DATABASE_URL":      "postgres://subway:pw@db:5432/subway?sslmode=disable",
				"DB_MAX_OPEN_CONNS": "50",
				"DB_MAX_IDLE_CONNS": "10",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, DBModePostgres, cfg.Database.Mode)
				assert.Equal(t, "postgres://subway:pw@db:5432/subway?sslmode=disable", cfg.Database.DSN())
				assert.Equal(t, "host=db port=5432 database=subway", cfg.Database.LogString())
				assert.Equal(t, 50, cfg.Database.MaxOpenConns)
				assert.Equal(t, 10, cfg.Database.MaxIdleConns)
			},
		},
		{
			name: "custom timeouts",
			envVars: map[string]string{
				"SERVER_READ_TIMEOUT":  "60s",
				"SERVER_WRITE_TIMEOUT": "90s",
				"LOCAL_SESSION_TTL":    "1m",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 60*time.Second, cfg.Server.ReadTimeout)
				assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
				assert.Equal(t, time.Minute, cfg.Auth.LocalSessionTTL)
			},
		},
		{
			name: "observability configuration",
			envVars: map[string]string{
				"LOG_LEVEL":       "debug",
				"LOG_FORMAT":      "console",
				"METRICS_ENABLED": "false",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, "debug", cfg.Observability.LogLevel)
				assert.Equal(t, "console", cfg.Observability.LogFormat)
				assert.False(t, cfg.Observability.MetricsEnabled)
			},
		},
		{
			name: "CORS origins",
			envVars: map[string]string{
				"CORS_ALLOWED_ORIGINS": "https://a.example.com, https://b.example.com,",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Server.AllowedOrigins)
			},
		},
		{
			name: "TLS configuration overrides",
			envVars: map[string]string{
				"TLS_ENABLED":   "true",
				"TLS_CERT_FILE": "/etc/ssl/certs/server.crt",
				"TLS_KEY_FILE":  "/etc/ssl/private/server.key",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.True(t, cfg.Server.TLS.Enabled)
				assert.Equal(t, "/etc/ssl/certs/server.crt", cfg.Server.TLS.CertFile)
				assert.Equal(t, "/etc/ssl/private/server.key", cfg.Server.TLS.KeyFile)
			},
		},
		{
			name: "PORT env var takes precedence over SERVER_PORT",
			envVars: map[string]string{
				"PORT":        "9443",
				"SERVER_PORT": "9000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9443, cfg.Server.Port)
			},
		},
		{
			name: "SERVER_PORT env var when PORT not set",
			envVars: map[string]string{
				"SERVER_PORT": "9000",
			},
			wantErr: false,
			check: func(t *testing.T, cfg *Config) {
				assert.Equal(t, 9000, cfg.Server.Port)
			},
		},
		{
			name: "unsupported auth mode",
			envVars: map[string]string{
				"AUTH_MODE": "saml",
			},
			wantErr: true,
		},
		{
			name: "unsupported database mode",
			envVars: map[string]string{
				"DB_MODE": "cassandra",
			},
			wantErr: true,
		},
		{
			name: "production refuses insecure keycloak TLS",
			envVars: map[string]string{
				"ENVIRONMENT":                   "production",
				"AUTH_MODE":                     "keycloak",
				"KEYCLOAK_INSECURE_SKIP_VERIFY": "true",
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Clear environment
			os.Clearenv()

			// Set test environment variables
			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}

			// Create config
			cfg, err := New(context.Background())

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			require.NoError(t, err)
			require.NotNil(t, cfg)

			if tt.check != nil {
				tt.check(t, cfg)
			}
		})
	}
}

func validConfig() *Config {
	return &Config{
		Environment: "development",
		Auth: AuthConfig{
			Mode:            AuthModeLocal,
			RealmExportPath: "realm-export.json",
			LocalSessionTTL: 30 * time.Second,
		},
		Keycloak: KeycloakConfig{
			BaseURL:  "https://kc:8443",
			Realm:    "myrealm",
			ClientID: "client",
		},
		Database: DatabaseConfig{
			Mode: DBModeMemory,
		},
		Observability: ObservabilityConfig{
			LogLevel: "info",
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
		errMsg  string
	}{
		{
			name:    "valid local memory config",
			mutate:  func(c *Config) {},
			wantErr: false,
		},
		{
			name:    "valid keycloak config",
			mutate:  func(c *Config) { c.Auth.Mode = AuthModeKeycloak },
			wantErr: false,
		},
		{
			name:    "unknown auth mode",
			mutate:  func(c *Config) { c.Auth.Mode = "ldap" },
			wantErr: true,
			errMsg:  "unsupported auth mode",
		},
		{
			name:    "local mode without realm export",
			mutate:  func(c *Config) { c.Auth.RealmExportPath = "" },
			wantErr: true,
			errMsg:  "realm export path is required",
		},
		{
			name:    "local mode with zero TTL",
			mutate:  func(c *Config) { c.Auth.LocalSessionTTL = 0 },
			wantErr: true,
			errMsg:  "session TTL must be positive",
		},
		{
			name: "keycloak mode without client id",
			mutate: func(c *Config) {
				c.Auth.Mode = AuthModeKeycloak
				c.Keycloak.ClientID = ""
			},
			wantErr: true,
			errMsg:  "keycloak client ID is required",
		},
		{
			name: "keycloak mode without realm",
			mutate: func(c *Config) {
				c.Auth.Mode = AuthModeKeycloak
				c.Keycloak.Realm = ""
			},
			wantErr: true,
			errMsg:  "keycloak realm is required",
		},
		{
			name: "postgres without connection info",
			mutate: func(c *Config) {
				c.Database = DatabaseConfig{Mode: DBModePostgres}
			},
			wantErr: true,
			errMsg:  "database configuration required",
		},
		{
			name: "postgres missing database user",
			mutate: func(c *Config) {
				c.Database = DatabaseConfig{Mode: DBModePostgres, Host: "localhost", Database: "db"}
			},
			wantErr: true,
			errMsg:  "database user is required",
		},
		{
			name: "postgres with fields",
			mutate: func(c *Config) {
				c.Database = DatabaseConfig{Mode: DBModePostgres, Host: "localhost", User: "u", Database: "db"}
			},
			wantErr: false,
		},
		{
			name:    "missing log level",
			mutate:  func(c *Config) { c.Observability.LogLevel = "" },
			wantErr: true,
			errMsg:  "log level is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()

			if tt.wantErr {
				assert.Error(t, err)
				if tt.errMsg != "" {
					assert.Contains(t, err.Error(), tt.errMsg)
				}
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_IsProduction(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"production", "production", true},
		{"prod", "prod", true},
		{"development", "development", false},
		{"dev", "dev", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsProduction())
		})
	}
}

func TestConfig_IsDevelopment(t *testing.T) {
	tests := []struct {
		name        string
		environment string
		want        bool
	}{
		{"development", "development", true},
		{"dev", "dev", true},
		{"production", "production", false},
		{"staging", "staging", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Environment: tt.environment}
			assert.Equal(t, tt.want, cfg.IsDevelopment())
		})
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "testuser",
		Password: "testpass",
		Database: "testdb",
		SSLMode:  "disable",
	}

	expected := "host=localhost port=5432 user=testuser password=testpass dbname=testdb sslmode=disable"
	assert.Equal(t, expected, cfg.DSN())
	assert.Equal(t, "host=localhost port=5432 database=testdb", cfg.LogString())
}

func TestServerConfig_Address(t *testing.T) {
	cfg := ServerConfig{
		Host: "0.0.0.0",
		Port: 7878,
	}

	assert.Equal(t, "0.0.0.0:7878", cfg.Address())
}

func TestGetEnvAsInt(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue int
		want         int
	}{
		{"valid int", "TEST_INT", "42", 10, 42},
		{"empty value", "TEST_INT", "", 10, 10},
		{"invalid int", "TEST_INT", "not-a-number", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsInt(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsBool(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue bool
		want         bool
	}{
		{"true", "TEST_BOOL", "true", false, true},
		{"false", "TEST_BOOL", "false", true, false},
		{"empty value", "TEST_BOOL", "", true, true},
		{"invalid bool", "TEST_BOOL", "not-a-bool", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsBool(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsDuration(t *testing.T) {
	tests := []struct {
		name         string
		key          string
		value        string
		defaultValue time.Duration
		want         time.Duration
	}{
		{"valid duration", "TEST_DURATION", "30s", 10 * time.Second, 30 * time.Second},
		{"empty value", "TEST_DURATION", "", 10 * time.Second, 10 * time.Second},
		{"invalid duration", "TEST_DURATION", "not-a-duration", 10 * time.Second, 10 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			if tt.value != "" {
				os.Setenv(tt.key, tt.value)
			}
			got := getEnvAsDuration(tt.key, tt.defaultValue)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Clearenv()
	assert.Equal(t, []string{"x"}, getEnvAsList("TEST_LIST", []string{"x"}))

	os.Setenv("TEST_LIST", " , ")
	assert.Equal(t, []string{"x"}, getEnvAsList("TEST_LIST", []string{"x"}))

	os.Setenv("TEST_LIST", "a,b")
	assert.Equal(t, []string{"a", "b"}, getEnvAsList("TEST_LIST", nil))
}
