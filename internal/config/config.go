// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Log      LogConfig      `mapstructure:"log"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	MinIO    MinIOConfig    `mapstructure:"minio"`
	LLM      LLMConfig      `mapstructure:"llm"`
	Chat     ChatConfig     `mapstructure:"chat"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Profile  ProfileConfig  `mapstructure:"profile"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	MySQL MySQLConfig `mapstructure:"mysql"`
	Redis RedisConfig `mapstructure:"redis"`
}

// MySQLConfig 存储 MySQL 数据库的配置。DSN 为空时不启用问答归档。
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	// TTLHours 为访客数据设置过期时间，0 表示永不过期
	TTLHours int `mapstructure:"ttl_hours"`
}

// JWTConfig 存储访客令牌相关的配置。
type JWTConfig struct {
	Secret                 string `mapstructure:"secret"`
	AccessTokenExpireHours int    `mapstructure:"access_token_expire_hours"`
	RefreshTokenExpireDays int    `mapstructure:"refresh_token_expire_days"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。Brokers 为空时分析事件在进程内直接处理。
type KafkaConfig struct {
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// MinIOConfig 存储 MinIO 对象存储的配置。Endpoint 为空时不提供下载链接。
type MinIOConfig struct {
	Endpoint             string `mapstructure:"endpoint"`
	AccessKeyID          string `mapstructure:"access_key_id"`
	SecretAccessKey      string `mapstructure:"secret_access_key"`
	UseSSL               bool   `mapstructure:"use_ssl"`
	BucketName           string `mapstructure:"bucket_name"`
	PresignExpiryMinutes int    `mapstructure:"presign_expiry_minutes"`
}

// LLMConfig 存储对话补全接口相关的配置。
type LLMConfig struct {
	APIKey         string              `mapstructure:"api_key"`
	BaseURL        string              `mapstructure:"base_url"`
	Model          string              `mapstructure:"model"`
	Referer        string              `mapstructure:"referer"`
	Title          string              `mapstructure:"title"`
	TimeoutSeconds int                 `mapstructure:"timeout_seconds"`
	Generation     LLMGenerationConfig `mapstructure:"generation"`
}

// LLMGenerationConfig 配置生成相关参数，所有请求保持一致。
type LLMGenerationConfig struct {
	Temperature      float64 `mapstructure:"temperature"`
	TopP             float64 `mapstructure:"top_p"`
	MaxTokens        int     `mapstructure:"max_tokens"`
	FrequencyPenalty float64 `mapstructure:"frequency_penalty"`
	PresencePenalty  float64 `mapstructure:"presence_penalty"`
}

// ChatConfig 存储会话相关的配置。
type ChatConfig struct {
	// ContextWindow 是发送给模型的最近消息条数
	ContextWindow int `mapstructure:"context_window"`
	// MaxPersistedTurns 限制持久化的消息条数，0 表示不限制
	MaxPersistedTurns int `mapstructure:"max_persisted_turns"`
}

// AdminConfig 存储管理接口的 Basic Auth 凭证，密码以 bcrypt 哈希保存。
type AdminConfig struct {
	Username     string `mapstructure:"username"`
	PasswordHash string `mapstructure:"password_hash"`
}

// ProfileConfig 指向个人资料文件。
type ProfileConfig struct {
	Path string `mapstructure:"path"`
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
// 以 PORTFOLIO_ 为前缀的环境变量会覆盖文件中的同名键，例如 PORTFOLIO_LLM_API_KEY。
func Init(configPath string) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("PORTFOLIO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		panic(fmt.Errorf("读取配置文件失败: %w", err))
	}

	if err := v.Unmarshal(&Conf); err != nil {
		panic(fmt.Errorf("无法将配置解析到结构体中: %w", err))
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8081")
	v.SetDefault("server.mode", "release")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("jwt.access_token_expire_hours", 24)
	v.SetDefault("jwt.refresh_token_expire_days", 30)
	v.SetDefault("kafka.group_id", "portfolio-assistant-analytics")
	v.SetDefault("minio.presign_expiry_minutes", 60)
	v.SetDefault("llm.base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("llm.model", "openai/gpt-3.5-turbo")
	v.SetDefault("llm.timeout_seconds", 30)
	v.SetDefault("llm.generation.temperature", 0.7)
	v.SetDefault("llm.generation.top_p", 1.0)
	v.SetDefault("llm.generation.max_tokens", 300)
	v.SetDefault("chat.context_window", 10)
	v.SetDefault("profile.path", "./configs/profile.yaml")
	// 让 AutomaticEnv 能覆盖没有出现在文件里的键
	v.SetDefault("llm.api_key", "")
	v.SetDefault("admin.password_hash", "")
}
