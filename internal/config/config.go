// Package config 负责加载和管理应用程序的配置。
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Auth     AuthConfig     `mapstructure:"auth"`
	List     ListConfig     `mapstructure:"list"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// AuthConfig 是准入策略。所有开关都显式来自配置文件，不根据运行环境推断。
type AuthConfig struct {
	// BypassAdminCheck 允许非管理员进入管理员页面，只用于非生产环境。
	BypassAdminCheck bool `mapstructure:"bypass_admin_check"`
	// LookupFailureRole 是角色查询失败时采用的角色，必须显式配置。
	LookupFailureRole string `mapstructure:"lookup_failure_role"`
	AdminRole         string `mapstructure:"admin_role"`
	SignInPath        string `mapstructure:"sign_in_path"`
	DefaultPath       string `mapstructure:"default_path"`
	// LookupTimeout 限制单次角色查询的时长。
	LookupTimeout time.Duration `mapstructure:"lookup_timeout"`
}

// ListConfig 是列表页的默认参数。
type ListConfig struct {
	DefaultPageSize int `mapstructure:"default_page_size"`
	MaxPageSize     int `mapstructure:"max_page_size"`
}

// Load 从指定路径读取 YAML 配置文件并解析为 Config，随后做校验。
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")

	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jwt.access_token_expire_hours", 2)
	v.SetDefault("jwt.refresh_token_expire_days", 7)
	v.SetDefault("auth.admin_role", "admin")
	v.SetDefault("auth.sign_in_path", "/login")
	v.SetDefault("auth.default_path", "/")
	v.SetDefault("auth.lookup_timeout", "5s")
	v.SetDefault("list.default_page_size", 10)
	v.SetDefault("list.max_page_size", 100)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 检查启动必需的配置项。
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.Database.MySQL.DSN) == "" {
		errs = append(errs, errors.New("database.mysql.dsn is required"))
	}
	if strings.TrimSpace(c.JWT.Secret) == "" {
		errs = append(errs, errors.New("jwt.secret is required"))
	}
	// 角色查询失败时的回退角色是显式策略，不允许留空走隐式默认值
	if strings.TrimSpace(c.Auth.LookupFailureRole) == "" {
		errs = append(errs, errors.New("auth.lookup_failure_role is required"))
	}
	if c.List.DefaultPageSize <= 0 {
		errs = append(errs, errors.New("list.default_page_size must be positive"))
	}
	if c.List.MaxPageSize < c.List.DefaultPageSize {
		errs = append(errs, errors.New("list.max_page_size must not be smaller than list.default_page_size"))
	}
	return errors.Join(errs...)
}
