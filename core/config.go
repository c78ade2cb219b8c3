package core

import (
	"fmt"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		Address                   string
		DebugHost                 string
		DisableReqLogs            bool
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	CalculatorConfig struct {
		SessionTTL    time.Duration
		SweepInterval time.Duration
		MaxEntries    int
	}

	// AuthConfig drives sign-in by one-time codes sent by email.
	AuthConfig struct {
		CodeTTL            time.Duration
		CodeResendInterval time.Duration
		CodeMaxAttempts    int
		AllowedDomains     []string // empty allows any domain
	}

	Config struct {
		Env                 string // DEV (local; default), TEST, QA, PROD
		Build               string
		Debug               bool
		TestMode            bool
		AppName             string
		SecretKey           string
		FrontendBaseURL     string
		DefaultFromEmailStr string
		SendgridApiKey      string
		RollbarToken        string
		Server              ServerConfig
		Auth                AuthConfig
		Calculator          CalculatorConfig
	}
)

// NewConfig loads the configuration from defaults, an optional `.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env name, e.g. `PROD_SECRETKEY`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Campus Desk")
	v.SetDefault("secretKey", "x7k!d2#mf0qz-portal-dev-(p4$9)q+rsv8w&t1n*e3")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Campus Desk <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 30*24*time.Hour)

	v.SetDefault("calculator.sessionTTL", 2*time.Hour)
	v.SetDefault("calculator.sweepInterval", 5*time.Minute)
	v.SetDefault("calculator.maxEntries", 50)

	v.SetDefault("auth.codeTTL", 10*time.Minute)
	v.SetDefault("auth.codeResendInterval", 30*time.Second)
	v.SetDefault("auth.codeMaxAttempts", 5)
	v.SetDefault("auth.allowedDomains", []string{})

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	case "QA", "PROD":
		v.SetDefault("debug", false)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if err := loadDotEnv(env); err != nil {
		panic(err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:                 env,
		Build:               v.GetString("build"),
		Debug:               v.GetBool("debug"),
		TestMode:            v.GetBool("testMode"),
		AppName:             v.GetString("appName"),
		SecretKey:           v.GetString("secretKey"),
		FrontendBaseURL:     v.GetString("frontendBaseURL"),
		DefaultFromEmailStr: v.GetString("defaultFromEmail"),
		SendgridApiKey:      v.GetString("sendgridApiKey"),
		RollbarToken:        v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			Address:                   v.GetString("server.address"),
			DebugHost:                 v.GetString("server.debugHost"),
			DisableReqLogs:            v.GetBool("server.disableReqLogs"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
		},
		Calculator: CalculatorConfig{
			SessionTTL:    v.GetDuration("calculator.sessionTTL"),
			SweepInterval: v.GetDuration("calculator.sweepInterval"),
			MaxEntries:    v.GetInt("calculator.maxEntries"),
		},
		Auth: AuthConfig{
			CodeTTL:            v.GetDuration("auth.codeTTL"),
			CodeResendInterval: v.GetDuration("auth.codeResendInterval"),
			CodeMaxAttempts:    v.GetInt("auth.codeMaxAttempts"),
			AllowedDomains:     v.GetStringSlice("auth.allowedDomains"),
		},
	}
}

// NewTestConfig returns the default configuration with test mode on and request logs off.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.SecretKey = "secret"
	conf.Server.DisableReqLogs = true
	return conf
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.DefaultFromEmailStr)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.DefaultFromEmailStr}
	}
	return *addr
}

func loadDotEnv(env string) error {
	dotEnvPath := os.Getenv("DOTENV_PATH")
	if dotEnvPath == "" {
		wd, err := os.Getwd()
		if err != nil {
			return errors.Wrap(err, "getting working directory")
		}
		dotEnvPath = filepath.Join(wd, ".env."+strings.ToLower(env))
	}

	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return errors.Wrap(err, fmt.Sprintf("config.godotenv(%s)", dotEnvPath))
		}
	} else if !os.IsNotExist(err) {
		return errors.Wrap(err, fmt.Sprintf("config.os.Stat(%s)", dotEnvPath))
	}
	return nil
}
