package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// DefaultPageURL 是抓取日历页面的固定入口，可通过配置覆盖。
const DefaultPageURL = "https://yogawithadriene.com/calendar/"

// DefaultViewer 是未指定 --using 时使用的查看器名称。
const DefaultViewer = "firefox"

// Load 读取并解析 TOML 配置文件，同时注入默认值与校验逻辑。
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	return finishLoad(v)
}

// LoadOrDefault 与 Load 相同，但默认路径缺失时静默回退到内置默认值。
// 显式传入 --config 的调用方应使用 Load，让缺失文件成为错误。
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = "config.toml"
	}
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return Default()
	}
	return Load(path)
}

// Default 返回纯默认配置，等价于加载一个空配置文件。
func Default() (*Config, error) {
	v := viper.New()
	setDefaults(v)
	return finishLoad(v)
}

func finishLoad(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(durationDecodeHook())); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	absStorage, err := filepath.Abs(cfg.StorageDir)
	if err != nil {
		return nil, fmt.Errorf("无法解析缓存目录: %w", err)
	}
	cfg.StorageDir = absStorage

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PageURL", DefaultPageURL)
	v.SetDefault("Viewer", DefaultViewer)
	v.SetDefault("HTTPTimeout", "30s")
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFilePath", "")
	v.SetDefault("LogMaxSize", 100)
	v.SetDefault("LogMaxBackups", 10)
	v.SetDefault("LogCompress", true)
}

func applyDefaults(cfg *Config) {
	if cfg.StorageDir == "" {
		cfg.StorageDir = defaultStorageDir()
	}
	if cfg.HTTPTimeout.DurationValue() == 0 {
		cfg.HTTPTimeout = Duration(30 * time.Second)
	}
	if cfg.Viewer == "" {
		cfg.Viewer = DefaultViewer
	}
}

// defaultStorageDir 返回可执行文件旁的 .calendars 目录；定位失败时退回工作目录。
func defaultStorageDir() string {
	exe, err := os.Executable()
	if err != nil {
		return ".calendars"
	}
	return filepath.Join(filepath.Dir(exe), ".calendars")
}

func durationDecodeHook() mapstructure.DecodeHookFunc {
	targetType := reflect.TypeOf(Duration(0))

	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != targetType {
			return data, nil
		}

		switch v := data.(type) {
		case string:
			if v == "" {
				return Duration(0), nil
			}
			if parsed, err := time.ParseDuration(v); err == nil {
				return Duration(parsed), nil
			}
			if seconds, err := strconv.ParseFloat(v, 64); err == nil {
				return Duration(time.Duration(seconds * float64(time.Second))), nil
			}
			return nil, fmt.Errorf("无法解析 Duration 字段: %s", v)
		case int:
			return Duration(time.Duration(v) * time.Second), nil
		case int64:
			return Duration(time.Duration(v) * time.Second), nil
		case float64:
			return Duration(time.Duration(v * float64(time.Second))), nil
		case time.Duration:
			return Duration(v), nil
		case Duration:
			return v, nil
		default:
			return nil, fmt.Errorf("不支持的 Duration 类型: %T", v)
		}
	}
}
