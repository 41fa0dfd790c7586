package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Storage  StorageConfig  `mapstructure:"storage"`
	Log      LogConfig      `mapstructure:"log"`
	Business BusinessConfig `mapstructure:"business"`
}

type StorageConfig struct {
	File          string `mapstructure:"file"`
	BusyTimeoutMS int    `mapstructure:"busy_timeout_ms"`
	MaxOpenConns  int    `mapstructure:"max_open_conns"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type BusinessConfig struct {
	IssuerPrefix    string `mapstructure:"issuer_prefix"`
	MaxOpenAttempts int    `mapstructure:"max_open_attempts"`
}

const (
	DefaultStorageFile = "card.s3db"
	envPrefix          = "BANKING"
)

// LoadConfig 加载配置
//
// 优先级（高 -> 低）：命令行参数 > 环境变量（BANKING_ 前缀）> 配置文件 > 默认值
// .env 文件存在时先载入环境变量，不存在时忽略
func LoadConfig(args []string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	fs := pflag.NewFlagSet("banking", pflag.ContinueOnError)
	fs.String("fileName", DefaultStorageFile, "数据库文件路径")
	configFile := fs.String("config", "", "YAML 配置文件路径（可选）")
	if err := fs.Parse(normalizeArgs(args)); err != nil {
		return nil, fmt.Errorf("解析命令行参数失败: %w", err)
	}
	if err := v.BindPFlag("storage.file", fs.Lookup("fileName")); err != nil {
		return nil, err
	}

	if *configFile != "" {
		v.SetConfigFile(*configFile)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("storage.file", DefaultStorageFile)
	v.SetDefault("storage.busy_timeout_ms", 5000)
	v.SetDefault("storage.max_open_conns", 4)
	v.SetDefault("log.level", "warn")
	v.SetDefault("log.format", "text")
	v.SetDefault("business.issuer_prefix", "400000")
	v.SetDefault("business.max_open_attempts", 10)
}

func (c *Config) validate() error {
	if c.Storage.File == "" {
		return errors.New("storage.file 不能为空")
	}
	// 文件名直接拼进 go-sqlite3 的 URI 连接串
	if strings.ContainsAny(c.Storage.File, "?#") {
		return fmt.Errorf("storage.file 不能包含 '?' 或 '#': %s", c.Storage.File)
	}
	if c.Storage.BusyTimeoutMS < 0 {
		return fmt.Errorf("storage.busy_timeout_ms 不能为负数: %d", c.Storage.BusyTimeoutMS)
	}
	if c.Storage.MaxOpenConns <= 0 {
		return fmt.Errorf("storage.max_open_conns 必须大于 0: %d", c.Storage.MaxOpenConns)
	}
	if c.Business.MaxOpenAttempts <= 0 {
		return fmt.Errorf("business.max_open_attempts 必须大于 0: %d", c.Business.MaxOpenAttempts)
	}
	return nil
}

// normalizeArgs 兼容单横线长参数写法（-fileName x），pflag 只认 --fileName
func normalizeArgs(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if strings.HasPrefix(a, "-") && !strings.HasPrefix(a, "--") && len(a) > 2 {
			a = "-" + a
		}
		out = append(out, a)
	}
	return out
}
