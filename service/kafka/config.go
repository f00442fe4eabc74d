package kafka

import (
	"fmt"

	"github.com/Shopify/sarama"
)

// Config 中继事件落 Kafka 的配置
type Config struct {
	Brokers            []string
	TopicPattern       string // 例如 "relay.shard-%02d"
	TopicCount         int    // 1 表示不分片
	PartitionsPerTopic int32
	ReplicationFactor  int16
	Retries            int
	Compression        string // none/snappy/lz4/zstd
	Version            string // 例如 "2.1.0"
	AutoCreateTopics   bool
}

// DefaultConfig 单机演示用
func DefaultConfig() Config {
	return Config{
		Brokers:            []string{"127.0.0.1:9092"},
		TopicPattern:       "relay.shard-%02d",
		TopicCount:         8,
		PartitionsPerTopic: 8,
		ReplicationFactor:  1,
		Retries:            5,
		Compression:        "snappy",
		Version:            "2.1.0",
		AutoCreateTopics:   true,
	}
}

func (c *Config) norm() {
	d := DefaultConfig()
	if len(c.Brokers) == 0 {
		c.Brokers = d.Brokers
	}
	if c.TopicPattern == "" {
		c.TopicPattern = d.TopicPattern
	}
	if c.TopicCount <= 0 {
		c.TopicCount = 1
	}
	if c.PartitionsPerTopic <= 0 {
		c.PartitionsPerTopic = d.PartitionsPerTopic
	}
	if c.ReplicationFactor <= 0 {
		c.ReplicationFactor = 1
	}
	if c.Retries <= 0 {
		c.Retries = 1
	}
	if c.Version == "" {
		c.Version = d.Version
	}
}

func (c Config) kafkaVersion() (sarama.KafkaVersion, error) {
	v, err := sarama.ParseKafkaVersion(c.Version)
	if err != nil {
		return sarama.KafkaVersion{}, fmt.Errorf("kafka version %q: %w", c.Version, err)
	}
	return v, nil
}
