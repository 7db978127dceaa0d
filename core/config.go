package core

import (
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kat-co/vala"
	"github.com/spf13/viper"
)

// Conf is the application configuration singleton. Set it up once with LoadConfig.
var Conf *Config

type (
	Config struct {
		AppName          string
		Env              string // DEV (local; default), TEST, QA, PROD
		Debug            bool
		TestMode         bool
		Build            string
		SecretKey        string
		WorkDir          string
		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server      ServerConfig
		Database    DatabaseConfig
		Progress    ProgressConfig
		Leaderboard LeaderboardConfig
	}

	ServerConfig struct {
		Host                      string
		Addr                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		Host          string
		Port          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ProgressConfig struct {
		// CountMandatoryOnly controls the course completion denominator:
		// when true, only mandatory modules count towards the completion percentage.
		CountMandatoryOnly bool
	}

	LeaderboardConfig struct {
		// User score weights. The score must stay monotonic in each of its
		// inputs, so all three weights must be non-negative.
		PointsWeight   float64
		ModulesWeight  float64
		AccuracyWeight float64

		TeamCompletionWeight float64
		TeamPointsWeight     float64

		// RecalcSchedule is a cron spec (UTC); empty disables scheduled recalculation.
		RecalcSchedule string
	}
)

func (c DatabaseConfig) Address() string {
	return c.Host + ":" + c.Port
}

func (c *Config) Validate() error {
	return vala.BeginValidation().Validate(
		vala.StringNotEmpty(c.AppName, "appName"),
		vala.StringNotEmpty(c.SecretKey, "secretKey"),
		vala.StringNotEmpty(c.Server.Addr, "serverAddr"),
		vala.StringNotEmpty(c.Database.Engine, "dbEngine"),
		vala.StringNotEmpty(c.Database.Name, "dbName"),
	).Check()
}

// LoadConfig loads the configuration from defaults, an optional config/.env.<env>
// file and ENV-prefixed environment variables; it then sets the Conf singleton.
func LoadConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Hatua")
	v.SetDefault("secretKey", "w3=k2#begh$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("dbEngine", "postgres")
	v.SetDefault("dbName", "hatua")
	v.SetDefault("dbHost", "localhost")
	v.SetDefault("dbPort", "5432")
	v.SetDefault("dbDisableTLS", true)
	v.SetDefault("progressCountMandatoryOnly", false)
	v.SetDefault("leaderboardPointsWeight", 1.0)
	v.SetDefault("leaderboardModulesWeight", 40.0)
	v.SetDefault("leaderboardAccuracyWeight", 30.0)
	v.SetDefault("leaderboardTeamCompletionWeight", 0.7)
	v.SetDefault("leaderboardTeamPointsWeight", 0.3)
	v.SetDefault("leaderboardRecalcSchedule", "")

	env := os.Getenv("ENV")
	var testMode bool
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		testMode = true
	}
	v.SetEnvPrefix(env)

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Debug:            v.GetBool("debug"),
		TestMode:         testMode,
		Build:            v.GetString("build"),
		SecretKey:        v.GetString("secretKey"),
		WorkDir:          wd,
		FrontendBaseURL:  v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{Name: v.GetString("appName"), Address: v.GetString("defaultFromEmail")},
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		RollbarToken:     v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                      v.GetString("serverHost"),
			Addr:                      v.GetString("serverAddr"),
			JWTExpirationDelta:        v.GetDuration("jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("jwtRefreshExpirationDelta"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("dbEngine"),
			Name:          v.GetString("dbName"),
			Host:          v.GetString("dbHost"),
			Port:          v.GetString("dbPort"),
			User:          v.GetString("dbUser"),
			Password:      v.GetString("dbPassword"),
			AdminUser:     v.GetString("dbAdminUser"),
			AdminPassword: v.GetString("dbAdminPassword"),
			DisableTLS:    v.GetBool("dbDisableTLS"),
		},
		Progress: ProgressConfig{
			CountMandatoryOnly: v.GetBool("progressCountMandatoryOnly"),
		},
		Leaderboard: LeaderboardConfig{
			PointsWeight:         v.GetFloat64("leaderboardPointsWeight"),
			ModulesWeight:        v.GetFloat64("leaderboardModulesWeight"),
			AccuracyWeight:       v.GetFloat64("leaderboardAccuracyWeight"),
			TeamCompletionWeight: v.GetFloat64("leaderboardTeamCompletionWeight"),
			TeamPointsWeight:     v.GetFloat64("leaderboardTeamPointsWeight"),
			RecalcSchedule:       v.GetString("leaderboardRecalcSchedule"),
		},
	}
	if err := conf.Validate(); err != nil {
		log.Fatalf("config.Validate: %v", err)
	}

	Conf = conf
	return conf
}
