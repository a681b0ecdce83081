package core

import (
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host string
		Port int
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3 | inmem
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	ScoringConfig struct {
		// ApprovalThreshold is the minimum percentage for an attempt to pass,
		// unless the level defines its own.
		ApprovalThreshold float64
		DistinctScenes    bool
		// SceneBonus credits scene bonuses (floored at 0 per scene) in user scores too.
		SceneBonus bool
	}

	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		WorkDir      string
		RollbarToken string
		Server       ServerConfig
		Database     DatabaseConfig
		Scoring      ScoringConfig
	}
)

func (c ServerConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

func setDefaults(v *viper.Viper) {
	v.SetTypeByDefaultValue(true)
	v.SetDefault("appName", "Masomo Training")
	v.SetDefault("build", "dev")
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "")
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "masomo")
	v.SetDefault("database.user", "masomo")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("scoring.approvalThreshold", 80.0)
	v.SetDefault("scoring.distinctScenes", false)
	v.SetDefault("scoring.sceneBonus", false)
}

// NewConfig loads the app configuration from defaults, an optional `config/.env.<env>` file
// and environment variables prefixed with the env name (e.g. DEV_DATABASE.HOST).
func NewConfig() (*Config, error) {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, errors.Wrap(err, "getting working directory")
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}

	v := viper.New()
	setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("database.engine", "inmem")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return configFrom(v, env, wd), nil
}

func configFrom(v *viper.Viper, env, wd string) *Config {
	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		WorkDir:      wd,
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host: v.GetString("server.host"),
			Port: v.GetInt("server.port"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Scoring: ScoringConfig{
			ApprovalThreshold: v.GetFloat64("scoring.approvalThreshold"),
			DistinctScenes:    v.GetBool("scoring.distinctScenes"),
			SceneBonus:        v.GetBool("scoring.sceneBonus"),
		},
	}
}
