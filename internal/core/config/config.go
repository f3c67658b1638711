package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type HTTP struct {
	Host            string
	Port            int
	ReadTimeoutSec  int
	WriteTimeoutSec int
	IdleTimeoutSec  int
}
type AdminHTTP struct {
	Host string
	Port int
}

type App struct {
	Name      string
	Env       string
	PublicURL string // 邮件链接的前缀，如 https://cineverse.example
	HTTP      HTTP
	Admin     AdminHTTP
}

type Log struct {
	Level string
	JSON  bool
	File  LogFile
}

type LogFile struct {
	Enable     bool
	Filename   string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

type JWT struct {
	Secret            string
	Issuer            string
	AccessTokenTTLMin int
}

type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type DB struct {
	Driver             string
	DSN                string
	Username           string
	Password           string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetimeMin int
	AutoMigrate        bool
	LogLevel           string
}

type Session struct {
	CookieName        string
	Secure            bool
	ResolveTimeoutSec int // 0 = 不限制
	ProfileCacheSec   int
}

type Mail struct {
	From         string
	SMTPHost     string
	SMTPPort     int
	Username     string
	Password     string
	VerifyTTLMin int
	ResetTTLMin  int
}

type Worker struct {
	Concurrency   int
	ReconcileCron string
}

type Limits struct {
	RPS           float64
	Burst         int
	AuthRPS       float64
	AuthBurst     int
	MaxConcurrent int64
	MaxBodyMB     int64
	TimeoutSec    int
}

type CORS struct {
	AllowOrigins []string
}

type Config struct {
	App     App
	Log     Log
	JWT     JWT
	DB      DB
	Redis   Redis `mapstructure:"redis"`
	Session Session
	Mail    Mail
	Worker  Worker
	Limits  Limits
	CORS    CORS
}

func (c *Config) IsProduction() bool { return c != nil && c.App.Env == "production" }

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenTTLMin) * time.Minute
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "cineverse")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.publicurl", "http://127.0.0.1:8080")
	v.SetDefault("app.http.host", "0.0.0.0")
	v.SetDefault("app.http.port", 8080)
	v.SetDefault("app.http.readtimeoutsec", 5)
	v.SetDefault("app.http.writetimeoutsec", 10)
	v.SetDefault("app.http.idletimeoutsec", 60)
	v.SetDefault("app.admin.host", "0.0.0.0")
	v.SetDefault("app.admin.port", 8081)
	v.SetDefault("log.level", "info")
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.issuer", "cineverse")
	v.SetDefault("jwt.accesstokenttlmin", 7*24*60)
	v.SetDefault("db.driver", "postgres")
	v.SetDefault("db.maxopenconns", 20)
	v.SetDefault("db.maxidleconns", 10)
	v.SetDefault("db.connmaxlifetimemin", 30)
	v.SetDefault("db.loglevel", "warn")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("session.cookiename", "cv_session")
	v.SetDefault("session.profilecachesec", 300)
	v.SetDefault("mail.from", "no-reply@cineverse.local")
	v.SetDefault("mail.smtpport", 1025)
	v.SetDefault("mail.verifyttlmin", 24*60)
	v.SetDefault("mail.resetttlmin", 60)
	v.SetDefault("worker.concurrency", 5)
	v.SetDefault("worker.reconcilecron", "@every 1h")
	v.SetDefault("limits.rps", 200)
	v.SetDefault("limits.burst", 400)
	v.SetDefault("limits.authrps", 2)
	v.SetDefault("limits.authburst", 10)
	v.SetDefault("limits.maxconcurrent", 300)
	v.SetDefault("limits.maxbodymb", 16)
	v.SetDefault("limits.timeoutsec", 10)
}

// LoadE 读取 YAML + APP_ 前缀环境变量（APP_JWT_SECRET 覆盖 jwt.secret）
func LoadE(path string) (*Config, error) {
	v := viper.New()
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
		if path == "" {
			path = "./configs/config.local.yaml"
		}
	}
	setDefaults(v)
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if c.JWT.Secret == "" {
		return nil, fmt.Errorf("jwt.secret must be provided")
	}
	return &c, nil
}

func Load(path string) *Config {
	c, err := LoadE(path)
	if err != nil {
		log.Fatalf("%v", err)
	}
	return c
}
