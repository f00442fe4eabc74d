package config

import (
	"io/fs"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
)

// EnvPrefix 所有环境变量形如 PRELAY_HTTP_ADDR
const EnvPrefix = "PRELAY"

const (
	StoreMongo    = "mongo"
	StorePostgres = "postgres"
	StoreMemory   = "memory"

	SinkNone  = "none"
	SinkNats  = "nats"
	SinkKafka = "kafka"
)

type AppConfig struct {
	NodeID   string `split_words:"true" default:"relay-1" validate:"required"`
	HTTPAddr string `split_words:"true" default:":8080" validate:"required"`
	GRPCAddr string `split_words:"true" default:":50051"` // 空则不启 gRPC health

	WS    WSConfig
	Log   LogConfig
	Auth  AuthConfig
	Store StoreConfig
	Redis RedisConfig
	Sink  SinkConfig
	Nats  NatsConfig
	Kafka KafkaConfig
}

type WSConfig struct {
	Path              string        `split_words:"true" default:"/ws" validate:"startswith=/"`
	AllowedOrigins    []string      `split_words:"true"` // 空 = 不校验
	PingInterval      time.Duration `split_words:"true" default:"10s" validate:"gt=0"`
	PingTimeout       time.Duration `split_words:"true" default:"5s" validate:"gt=0"`
	WriteWait         time.Duration `split_words:"true" default:"10s" validate:"gt=0"`
	MaxMessageBytes   int64         `split_words:"true" default:"1048576" validate:"gt=0"`
	SendQueueSize     int           `split_words:"true" default:"256" validate:"gt=0"`
	OpTimeout         time.Duration `split_words:"true" default:"5s" validate:"gt=0"`
	EnableCompression bool          `split_words:"true" default:"true"`
}

type LogConfig struct {
	Level string `split_words:"true" default:"info" validate:"oneof=debug info warn error"`
	JSON  bool   `split_words:"true" default:"false"`
}

type AuthConfig struct {
	JWTSecret    string `split_words:"true"`
	RequireToken bool   `split_words:"true" default:"false"`
}

type StoreConfig struct {
	Driver string `split_words:"true" default:"mongo" validate:"oneof=mongo postgres memory"`

	MongoURI      string   `split_words:"true"`
	MongoAddress  []string `split_words:"true" default:"127.0.0.1:27017"`
	MongoDatabase string   `split_words:"true" default:"dating"`
	MongoUsername string   `split_words:"true"`
	MongoPassword string   `split_words:"true"`
	MongoPoolSize int      `split_words:"true" default:"50" validate:"gte=0"`

	PostgresDSN string        `split_words:"true" validate:"required_if=Driver postgres"`
	MemorySeed  string        `split_words:"true"` // JSON 种子文件
	ReadyWait   time.Duration `split_words:"true" default:"30s"`
}

type RedisConfig struct {
	Enabled      bool          `split_words:"true" default:"false"`
	Addr         string        `split_words:"true" default:"127.0.0.1:6379" validate:"required_if=Enabled true"`
	Password     string        `split_words:"true"`
	DB           int           `split_words:"true" default:"0" validate:"gte=0"`
	PresenceTTL  time.Duration `split_words:"true" default:"60s" validate:"gt=0"`
	RefreshEvery time.Duration `split_words:"true" default:"20s" validate:"gt=0"`
}

type SinkConfig struct {
	Driver  string        `split_words:"true" default:"none" validate:"oneof=none nats kafka"`
	Timeout time.Duration `split_words:"true" default:"3s" validate:"gt=0"`
}

type NatsConfig struct {
	Servers       []string `split_words:"true" default:"nats://127.0.0.1:4222"`
	Name          string   `split_words:"true" default:"prelay"`
	User          string   `split_words:"true"`
	Password      string   `split_words:"true"`
	SubjectPrefix string   `split_words:"true" default:"relay"`
	Mode          string   `split_words:"true" default:"core" validate:"oneof=core jetstream Core JetStream"`
	Retries       int      `split_words:"true" default:"2" validate:"gte=0"`
}

type KafkaConfig struct {
	Brokers      []string `split_words:"true" default:"127.0.0.1:9092"`
	TopicPattern string   `split_words:"true" default:"relay.shard-%02d" validate:"contains=%"`
	TopicCount   int      `split_words:"true" default:"8" validate:"gt=0"`
	Version      string   `split_words:"true" default:"2.1.0"`
	Compression  string   `split_words:"true" default:"snappy" validate:"oneof=none snappy lz4 zstd"`
	AutoCreate   bool     `split_words:"true" default:"true"`
}

// Load 先读可选的 .env（不覆盖已有环境变量），再按 PRELAY_ 前缀解析并校验
func Load(envFiles ...string) (*AppConfig, error) {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "load %s", f)
		}
	}
	return FromEnv()
}

// FromEnv 仅解析环境变量
func FromEnv() (*AppConfig, error) {
	var c AppConfig
	if err := envconfig.Process(EnvPrefix, &c); err != nil {
		return nil, errors.Wrap(err, "parse env")
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

var validate = validator.New()

func (c *AppConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(err, "invalid config")
	}
	if c.Auth.RequireToken && c.Auth.JWTSecret == "" {
		return errors.New("invalid config: AUTH_REQUIRE_TOKEN needs AUTH_JWT_SECRET")
	}
	return nil
}
