// Package config 负责加载和管理应用程序的配置。
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// 全局配置变量，存储从配置文件加载的所有设置。
var Conf Config

// Config 是整个应用程序的配置结构体，与 config.yaml 文件结构对应。
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Identity      IdentityConfig      `mapstructure:"identity"`
	Realtime      RealtimeConfig      `mapstructure:"realtime"`
	Log           LogConfig           `mapstructure:"log"`
	Kafka         KafkaConfig         `mapstructure:"kafka"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Assistant     AssistantConfig     `mapstructure:"assistant"`
}

// ServerConfig 存储服务器相关的配置。
type ServerConfig struct {
	Port        string   `mapstructure:"port"`
	Mode        string   `mapstructure:"mode"`
	CORSOrigins []string `mapstructure:"cors_origins"`
}

// DatabaseConfig 存储所有数据库连接的配置。
type DatabaseConfig struct {
	Driver string      `mapstructure:"driver"` // mysql | postgres | sqlite
	DSN    string      `mapstructure:"dsn"`
	Redis  RedisConfig `mapstructure:"redis"`
}

// RedisConfig 存储 Redis 的配置。
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// IdentityConfig 存储 Keycloak 身份服务相关的配置。
type IdentityConfig struct {
	KeycloakURL   string `mapstructure:"keycloak_url"`
	Realm         string `mapstructure:"realm"`
	ClientID      string `mapstructure:"client_id"`
	ClientSecret  string `mapstructure:"client_secret"`
	JWKSURL       string `mapstructure:"jwks_url"`    // 为空时由 keycloak_url + realm 推导
	HMACSecret    string `mapstructure:"hmac_secret"` // 仅本地开发：设置后改用 HS256 校验
	ProfessorRole string `mapstructure:"professor_role"`
	StudentRole   string `mapstructure:"student_role"`
}

// RealmURL 返回 realm 的根地址。
func (c IdentityConfig) RealmURL() string {
	return strings.TrimRight(c.KeycloakURL, "/") + "/realms/" + c.Realm
}

// CertsURL 返回 JWKS 地址。
func (c IdentityConfig) CertsURL() string {
	if c.JWKSURL != "" {
		return c.JWKSURL
	}
	return c.RealmURL() + "/protocol/openid-connect/certs"
}

// TokenURL 返回密码模式换取 token 的地址。
func (c IdentityConfig) TokenURL() string {
	return c.RealmURL() + "/protocol/openid-connect/token"
}

// RealtimeConfig 存储 WebSocket 推送通道的配置。
type RealtimeConfig struct {
	Cluster         bool          `mapstructure:"cluster"` // true 时通过 Redis 在多实例间转发推送
	ChannelPrefix   string        `mapstructure:"channel_prefix"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	PongWait        time.Duration `mapstructure:"pong_wait"`
	PingInterval    time.Duration `mapstructure:"ping_interval"`
	MaxMessageBytes int64         `mapstructure:"max_message_bytes"`
}

// LogConfig 存储日志相关的配置。
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

// KafkaConfig 存储 Kafka 相关的配置。
type KafkaConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Brokers string `mapstructure:"brokers"`
	Topic   string `mapstructure:"topic"`
	GroupID string `mapstructure:"group_id"`
}

// ElasticsearchConfig 存储 Elasticsearch 相关的配置。
type ElasticsearchConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Addresses string `mapstructure:"addresses"`
	Username  string `mapstructure:"username"`
	Password  string `mapstructure:"password"`
	IndexName string `mapstructure:"index_name"`
}

// AssistantConfig 存储本地对话补全服务（Ollama 兼容接口）的配置。
type AssistantConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8001")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"http://localhost:3001"})
	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.dsn", "")
	v.SetDefault("database.redis.addr", "localhost:6379")
	v.SetDefault("database.redis.password", "")
	v.SetDefault("database.redis.db", 0)
	v.SetDefault("identity.keycloak_url", "http://localhost:8080")
	v.SetDefault("identity.realm", "ENT")
	v.SetDefault("identity.client_secret", "")
	v.SetDefault("identity.jwks_url", "")
	v.SetDefault("identity.hmac_secret", "")
	v.SetDefault("identity.client_id", "ENT")
	v.SetDefault("identity.professor_role", "prof")
	v.SetDefault("identity.student_role", "etudiant")
	v.SetDefault("realtime.cluster", false)
	v.SetDefault("realtime.channel_prefix", "ent")
	v.SetDefault("realtime.write_timeout", 5*time.Second)
	v.SetDefault("realtime.pong_wait", 60*time.Second)
	v.SetDefault("realtime.ping_interval", 50*time.Second)
	v.SetDefault("realtime.max_message_bytes", 1<<16)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.output_path", "")
	v.SetDefault("kafka.enabled", false)
	v.SetDefault("kafka.brokers", "localhost:9092")
	v.SetDefault("kafka.topic", "ent-messages")
	v.SetDefault("kafka.group_id", "ent-messaging-indexer")
	v.SetDefault("elasticsearch.enabled", false)
	v.SetDefault("elasticsearch.addresses", "http://localhost:9200")
	v.SetDefault("elasticsearch.username", "")
	v.SetDefault("elasticsearch.password", "")
	v.SetDefault("elasticsearch.index_name", "ent_messages")
	v.SetDefault("assistant.base_url", "http://localhost:11434")
	v.SetDefault("assistant.model", "tinyllama")
	v.SetDefault("assistant.timeout_seconds", 30)
}

// Load 读取 .env（可选）与 YAML 配置文件，环境变量 ENT_<SECTION>_<KEY> 可覆盖任意配置项。
func Load(configPath string) (*Config, error) {
	// .env 不存在不算错误
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix("ENT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("无法将配置解析到结构体中: %w", err)
	}
	return &cfg, nil
}

// Init 初始化配置加载，从指定的路径读取 YAML 文件并解析到 Conf 变量中。
func Init(configPath string) {
	cfg, err := Load(configPath)
	if err != nil {
		panic(err)
	}
	Conf = *cfg
}
