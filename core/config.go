package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ReadTimeout               time.Duration
		WriteTimeout              time.Duration
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CORSAllowOrigins          []string
	}

	DatabaseConfig struct {
		URI            string
		Name           string
		ConnectTimeout time.Duration
		QueryTimeout   time.Duration
	}

	RedisConfig struct {
		Addr     string
		Password string
		DB       int
	}

	Config struct {
		Env      string
		Build    string
		Debug    bool
		TestMode bool
		WorkDir  string

		AppName                   string
		SecretKey                 string
		FrontendBaseURL           string
		DefaultFromEmailAddr      string
		PasswordResetTimeoutDelta time.Duration
		AllowedEmailDomains       []string
		GoogleClientID            string
		FormLockTTL               time.Duration
		NotificationTimeout       time.Duration

		RollbarToken   string
		SendgridApiKey string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
	}
)

func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.DefaultFromEmailAddr)
	if err != nil {
		return mail.Address{Name: c.AppName, Address: c.DefaultFromEmailAddr}
	}
	if addr.Name == "" {
		addr.Name = c.AppName
	}
	return *addr
}

// NewConfig loads the app configs from the environment.
// ENV selects the environment (DEV (default), TEST, QA, PROD) and is used as the env vars prefix, eg: DEV_SECRET_KEY.
// `config/.env.<env>` is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "IES")
	v.SetDefault("secretKey", "k#1z-qe5)p8b$+w7=fx&ioa2(d!m)#*v4(#tz0h^$xrbq3ary")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "IES <noreply@localhost>")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("allowedEmailDomains", []string{"buksu.edu.ph", "student.buksu.edu.ph"})
	v.SetDefault("googleClientID", "")
	v.SetDefault("formLockTTL", 5*time.Minute)
	v.SetDefault("notificationTimeout", 30*time.Second)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("sendgridApiKey", "")

	v.SetDefault("server_host", "0.0.0.0:8000")
	v.SetDefault("server_debugHost", "0.0.0.0:4000")
	v.SetDefault("server_readTimeout", 5*time.Second)
	v.SetDefault("server_writeTimeout", 10*time.Second)
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server_corsAllowOrigins", []string{"*"})

	v.SetDefault("database_uri", "mongodb://localhost:27017")
	v.SetDefault("database_name", "ies")
	v.SetDefault("database_connectTimeout", 10*time.Second)
	v.SetDefault("database_queryTimeout", 5*time.Second)

	v.SetDefault("redis_addr", "")
	v.SetDefault("redis_password", "")
	v.SetDefault("redis_db", 0)

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	workDir := os.Getenv("WORK_DIR")
	if workDir == "" {
		workDir = Getwd()
	}
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:      env,
		Build:    v.GetString("build"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		WorkDir:  workDir,

		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		DefaultFromEmailAddr:      v.GetString("defaultFromEmail"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		AllowedEmailDomains:       cleanList(v.GetStringSlice("allowedEmailDomains")),
		GoogleClientID:            v.GetString("googleClientID"),
		FormLockTTL:               v.GetDuration("formLockTTL"),
		NotificationTimeout:       v.GetDuration("notificationTimeout"),

		RollbarToken:   v.GetString("rollbarToken"),
		SendgridApiKey: v.GetString("sendgridApiKey"),

		Server: ServerConfig{
			Host:                      v.GetString("server_host"),
			DebugHost:                 v.GetString("server_debugHost"),
			ReadTimeout:               v.GetDuration("server_readTimeout"),
			WriteTimeout:              v.GetDuration("server_writeTimeout"),
			ShutdownTimeout:           v.GetDuration("server_shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwtRefreshExpirationDelta"),
			CORSAllowOrigins:          cleanList(v.GetStringSlice("server_corsAllowOrigins")),
		},
		Database: DatabaseConfig{
			URI:            v.GetString("database_uri"),
			Name:           v.GetString("database_name"),
			ConnectTimeout: v.GetDuration("database_connectTimeout"),
			QueryTimeout:   v.GetDuration("database_queryTimeout"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
	}
}

// NewTestConfig returns the configs used by tests. It does not read the environment.
func NewTestConfig() *Config {
	return &Config{
		Env:                       "TEST",
		Build:                     "test",
		TestMode:                  true,
		AppName:                   "IES",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:3000",
		DefaultFromEmailAddr:      "IES <noreply@localhost>",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		AllowedEmailDomains:       []string{"buksu.edu.ph", "student.buksu.edu.ph"},
		FormLockTTL:               5 * time.Minute,
		NotificationTimeout:       5 * time.Second,
		Server: ServerConfig{
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
			CORSAllowOrigins:          []string{"*"},
		},
		Database: DatabaseConfig{
			Name:           "ies_test",
			ConnectTimeout: 5 * time.Second,
			QueryTimeout:   5 * time.Second,
		},
	}
}

func cleanList(items []string) []string {
	// env vars come in as a single comma-separated value
	if len(items) == 1 && strings.Contains(items[0], ",") {
		items = strings.Split(items[0], ",")
	}
	cleaned := make([]string, 0, len(items))
	for _, item := range items {
		if item = CleanString(item); item != "" {
			cleaned = append(cleaned, item)
		}
	}
	return cleaned
}
