package kafka

import (
	"fmt"
	"hash/crc32"
)

// GenTopics 生成分片 Topic：relay.shard-00, relay.shard-01, ...
func GenTopics(cfg Config) []string {
	cfg.norm()
	out := make([]string, 0, cfg.TopicCount)
	for i := 0; i < cfg.TopicCount; i++ {
		out = append(out, fmt.Sprintf(cfg.TopicPattern, i))
	}
	return out
}

// SelectTopicByUser 同一 userId 永远命中同一个 Topic
func SelectTopicByUser(userID string, topics []string) string {
	if len(topics) == 0 {
		return ""
	}
	h := crc32.ChecksumIEEE([]byte(userID))
	return topics[int(h%uint32(len(topics)))]
}
