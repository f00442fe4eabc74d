package kafka

import (
	"strings"
	"time"

	"github.com/Shopify/sarama"
)

// BuildBaseConfig 生产端公共配置；Key 决定分区
func BuildBaseConfig(c Config) (*sarama.Config, error) {
	c.norm()
	v, err := c.kafkaVersion()
	if err != nil {
		return nil, err
	}
	cfg := sarama.NewConfig()
	cfg.Version = v

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = c.Retries
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(c.Compression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg, nil
}

// Producer client 与同步生产者成对关闭
type Producer struct {
	client sarama.Client
	sync   sarama.SyncProducer
}

// NewProducer 建 client；AutoCreateTopics 时先确保 Topic 存在
func NewProducer(c Config) (*Producer, error) {
	c.norm()
	cfg, err := BuildBaseConfig(c)
	if err != nil {
		return nil, err
	}
	if c.AutoCreateTopics {
		admin, err := sarama.NewClusterAdmin(c.Brokers, cfg)
		if err != nil {
			return nil, err
		}
		err = EnsureTopics(admin, GenTopics(c), c)
		_ = admin.Close()
		if err != nil {
			return nil, err
		}
	}
	client, err := sarama.NewClient(c.Brokers, cfg)
	if err != nil {
		return nil, err
	}
	p, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	return &Producer{client: client, sync: p}, nil
}

func (p *Producer) Sync() sarama.SyncProducer { return p.sync }

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	err := p.sync.Close()
	if cerr := p.client.Close(); err == nil && cerr != sarama.ErrClosedClient {
		err = cerr
	}
	return err
}
