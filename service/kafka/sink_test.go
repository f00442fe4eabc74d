package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"PRelay/module/message"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureProducer struct {
	msgs []*sarama.ProducerMessage
}

func (c *captureProducer) SendMessage(m *sarama.ProducerMessage) (int32, int64, error) {
	c.msgs = append(c.msgs, m)
	return 0, int64(len(c.msgs)), nil
}

func (c *captureProducer) SendMessages(ms []*sarama.ProducerMessage) error {
	c.msgs = append(c.msgs, ms...)
	return nil
}

func (c *captureProducer) Close() error { return nil }

func sentEvent() message.Event {
	return message.Event{ID: "m-1", Type: message.SinkMessageSent, Key: "u2", At: time.Unix(0, 0).UTC(), Data: map[string]string{"text": "hi"}}
}

func TestGenTopicsAndSelect(t *testing.T) {
	topics := GenTopics(Config{TopicPattern: "relay.shard-%02d", TopicCount: 4})
	assert.Equal(t, []string{"relay.shard-00", "relay.shard-01", "relay.shard-02", "relay.shard-03"}, topics)
	assert.Len(t, GenTopics(Config{}), 1)

	first := SelectTopicByUser("u2", topics)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, SelectTopicByUser("u2", topics))
	}
	assert.Contains(t, topics, first)
	assert.Equal(t, "", SelectTopicByUser("u2", nil))
}

func TestBuildBaseConfig(t *testing.T) {
	cfg, err := BuildBaseConfig(Config{Compression: "lz4", Retries: 3})
	require.NoError(t, err)
	assert.Equal(t, sarama.CompressionLZ4, cfg.Producer.Compression)
	assert.Equal(t, 3, cfg.Producer.Retry.Max)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.True(t, cfg.Producer.Return.Successes)

	_, err = BuildBaseConfig(Config{Version: "not-a-version"})
	assert.Error(t, err)
}

func TestEventSinkKeysByReceiver(t *testing.T) {
	cp := &captureProducer{}
	topics := GenTopics(Config{TopicCount: 4})
	s := NewEventSink(cp, topics)
	require.NoError(t, s.Publish(context.Background(), sentEvent()))

	require.Len(t, cp.msgs, 1)
	m := cp.msgs[0]
	assert.Equal(t, SelectTopicByUser("u2", topics), m.Topic)
	key, err := m.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "u2", string(key))

	hdr := map[string]string{}
	for _, h := range m.Headers {
		hdr[string(h.Key)] = string(h.Value)
	}
	assert.Equal(t, "m-1", hdr[HeaderEventID])
	assert.Equal(t, message.SinkMessageSent, hdr[HeaderEventType])
}

func TestEventSinkWithMockProducer(t *testing.T) {
	mp := mocks.NewSyncProducer(t, nil)
	mp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var got map[string]any
		if err := json.Unmarshal(val, &got); err != nil {
			return err
		}
		if got["id"] != "m-1" {
			return errors.New("unexpected id")
		}
		return nil
	})
	mp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	s := NewEventSink(mp, []string{"relay.shard-00"})
	require.NoError(t, s.Publish(context.Background(), sentEvent()))
	assert.ErrorIs(t, s.Publish(context.Background(), sentEvent()), sarama.ErrOutOfBrokers)
	require.NoError(t, mp.Close())
}

func TestEventSinkCanceledContext(t *testing.T) {
	cp := &captureProducer{}
	s := NewEventSink(cp, []string{"t"})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Publish(ctx, sentEvent()), context.Canceled)
	assert.Empty(t, cp.msgs)
}
