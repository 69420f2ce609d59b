package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Redis   RedisConfig   `mapstructure:"redis"`
	Session SessionConfig `mapstructure:"session"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	Editor  EditorConfig  `mapstructure:"editor"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"`
	LogLevel     string        `mapstructure:"log_level"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type SessionConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DatasetConfig struct {
	Root       string   `mapstructure:"root"`
	ImageDir   string   `mapstructure:"image_dir"`
	MaskDir    string   `mapstructure:"mask_dir"`
	Extensions []string `mapstructure:"extensions"`
}

type EditorConfig struct {
	Transparency   float64 `mapstructure:"transparency"`
	Brush          int     `mapstructure:"brush"`
	BrushStep      int     `mapstructure:"brush_step"`
	MinBrush       int     `mapstructure:"min_brush"`
	MaskColor      string  `mapstructure:"mask_color"`
	BrushColor     string  `mapstructure:"brush_color"`
	Resample       string  `mapstructure:"resample"`
	SaveOnPrev     bool    `mapstructure:"save_on_prev"`
	ViewportWidth  int     `mapstructure:"viewport_width"`
	ViewportHeight int     `mapstructure:"viewport_height"`
}

// DefaultPath 未指定 -c 时尝试读取的配置文件
const DefaultPath = "config.yaml"

// FromViper 从已绑定命令行参数的 viper 实例解析配置。
// configPath 为空时读取 DefaultPath，文件不存在则只使用默认值。
func FromViper(v *viper.Viper, configPath string) (*Config, error) {
	setDefaults(v)

	if configPath == "" {
		if _, err := os.Stat(DefaultPath); err != nil {
			return decode(v)
		}
		configPath = DefaultPath
	}
	if err := readFile(v, configPath); err != nil {
		return nil, err
	}
	return decode(v)
}

// Default 返回内置默认配置
func Default() *Config {
	cfg, err := decode(withDefaults())
	if err != nil {
		panic(err)
	}
	return cfg
}

func readFile(v *viper.Viper, configPath string) error {
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func withDefaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.log_level", "")
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 10*time.Second)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 7*24*time.Hour)

	v.SetDefault("session.enabled", true)

	v.SetDefault("dataset.root", "")
	v.SetDefault("dataset.image_dir", "images")
	v.SetDefault("dataset.mask_dir", "masks")
	v.SetDefault("dataset.extensions", []string{".png"})

	v.SetDefault("editor.transparency", 0.2)
	v.SetDefault("editor.brush", 20)
	v.SetDefault("editor.brush_step", 2)
	v.SetDefault("editor.min_brush", 1)
	v.SetDefault("editor.mask_color", "#ff0000")
	v.SetDefault("editor.brush_color", "#00ff00")
	v.SetDefault("editor.resample", "nearest")
	v.SetDefault("editor.save_on_prev", false)
	v.SetDefault("editor.viewport_width", 0)
	v.SetDefault("editor.viewport_height", 0)
}
