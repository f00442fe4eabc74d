package message_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	matchmodel "PRelay/module/match/model"
	"PRelay/module/message"
	"PRelay/module/relation"
	"PRelay/module/relation/mocks"
	usermodel "PRelay/module/user/model"
	"PRelay/service/registry"
	"PRelay/service/registry/registrytest"
	"PRelay/tools/errs"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	userA = "64b7f0c2a1e4c3d2b1a09f0a"
	userB = "64b7f0c2a1e4c3d2b1a09f0b"
	userC = "64b7f0c2a1e4c3d2b1a09f0c"
	userD = "64b7f0c2a1e4c3d2b1a09f0d"
)

var fixedNow = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type captureSink struct {
	mu     sync.Mutex
	events []message.Event
}

func (s *captureSink) Publish(_ context.Context, ev message.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *captureSink) Events() []message.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]message.Event(nil), s.events...)
}

type fixture struct {
	reg   *registry.Registry
	store *relation.MemoryStore
	relay *message.Relay
	sink  *captureSink
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := relation.NewMemoryStore()
	for _, id := range []string{userA, userB, userC, userD} {
		store.PutUser(usermodel.User{ID: id, Username: id[len(id)-1:]})
	}
	store.Befriend(userA, userB)
	store.PutMatch(matchmodel.Match{User1ID: userC, User2ID: userA, Status: matchmodel.MatchAccepted})
	store.PutMatch(matchmodel.Match{User1ID: userA, User2ID: userD, Status: matchmodel.MatchPending})

	reg := registry.New(registry.Conf{})
	sink := &captureSink{}
	n := 0
	relay := message.NewRelay(reg, relation.NewScoper(store, nil),
		message.WithSink(sink),
		message.WithClock(func() time.Time { return fixedNow }),
		message.WithIDFunc(func() string { n++; return "m" + string(rune('0'+n)) }),
	)
	return &fixture{reg: reg, store: store, relay: relay, sink: sink}
}

func (f *fixture) conn(t *testing.T, id, user string) *registrytest.Conn {
	t.Helper()
	c := registrytest.NewConn(id, user)
	require.NoError(t, f.reg.Admit(c))
	return c
}

func TestSendFansOutToEveryReceiverConnection(t *testing.T) {
	f := newFixture(t)
	c1 := f.conn(t, "c1", userA)
	c2 := f.conn(t, "c2", userB)
	c3 := f.conn(t, "c3", userB)

	ack := f.relay.Send(context.Background(), c1, message.SendRequest{ReceiverID: userB, Text: "hi"})
	require.True(t, ack.OK(), ack.Error)
	require.NotNil(t, ack.Message)
	assert.True(t, ack.Message.IsDelivered)
	assert.Equal(t, userA, ack.Message.SenderID)
	assert.Equal(t, "m1", ack.Message.ID)
	assert.Equal(t, fixedNow, ack.Message.CreatedAt)

	for _, c := range []*registrytest.Conn{c1, c2, c3} {
		got := c.Named(message.EventNewMessage)
		require.Len(t, got, 1, c.ID())
		assert.Equal(t, ack.Message, got[0].Payload)
	}

	assert.Eventually(t, func() bool { return len(f.sink.Events()) == 1 }, time.Second, 5*time.Millisecond)
	ev := f.sink.Events()[0]
	assert.Equal(t, message.SinkMessageSent, ev.Type)
	assert.Equal(t, userB, ev.Key)
}

func TestSendToMatchIsAuthorized(t *testing.T) {
	f := newFixture(t)
	c := f.conn(t, "c", userC)
	ack := f.relay.Send(context.Background(), c, message.SendRequest{ReceiverID: userA, Text: "hey"})
	require.True(t, ack.OK())
	assert.False(t, ack.Message.IsDelivered)
}

func TestSendToOfflineReceiver(t *testing.T) {
	f := newFixture(t)
	c1 := f.conn(t, "c1", userA)

	ack := f.relay.Send(context.Background(), c1, message.SendRequest{ReceiverID: userB, Text: "later"})
	require.True(t, ack.OK())
	assert.False(t, ack.Message.IsDelivered)
	assert.Empty(t, c1.Events(), "no echo for undelivered message")
}

func TestSendRejections(t *testing.T) {
	cases := []struct {
		name string
		req  message.SendRequest
		code string
	}{
		{"self", message.SendRequest{ReceiverID: userA, Text: "me"}, "InvalidMessageData"},
		{"blank text", message.SendRequest{ReceiverID: userB, Text: "   "}, "InvalidMessageData"},
		{"missing receiver", message.SendRequest{Text: "x"}, "InvalidMessageData"},
		{"bad receiver", message.SendRequest{ReceiverID: "nope", Text: "x"}, "InvalidMessageData"},
		{"bad shared kind", message.SendRequest{ReceiverID: userB, SharedContent: &message.SharedContent{Kind: "video", RefID: "1"}}, "InvalidMessageData"},
		{"shared without ref", message.SendRequest{ReceiverID: userB, SharedContent: &message.SharedContent{Kind: "song"}}, "InvalidMessageData"},
		{"pending match", message.SendRequest{ReceiverID: userD, Text: "x"}, "NotAuthorized"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			c1 := f.conn(t, "c1", userA)
			cd := f.conn(t, "cd", userD)
			ack := f.relay.Send(context.Background(), c1, tc.req)
			assert.False(t, ack.OK())
			assert.Equal(t, tc.code, ack.Code)
			assert.Empty(t, c1.Events())
			assert.Empty(t, cd.Events())
		})
	}
}

func TestSendSharedContentOnly(t *testing.T) {
	f := newFixture(t)
	c1 := f.conn(t, "c1", userA)
	c2 := f.conn(t, "c2", userB)

	sc := &message.SharedContent{Kind: "playlist", RefID: "pl-9", Title: "Road trip"}
	ack := f.relay.Send(context.Background(), c1, message.SendRequest{ReceiverID: userB, SharedContent: sc})
	require.True(t, ack.OK(), ack.Error)
	got := c2.Named(message.EventNewMessage)
	require.Len(t, got, 1)
	assert.Equal(t, sc, got[0].Payload.(*message.RelayMessage).SharedContent)
}

func TestSendScopeErrors(t *testing.T) {
	ctrl := gomock.NewController(t)
	store := mocks.NewMockStore(ctrl)
	reg := registry.New(registry.Conf{})
	relay := message.NewRelay(reg, relation.NewScoper(store, nil))
	c := registrytest.NewConn("c", userA)
	require.NoError(t, reg.Admit(c))

	t.Run("sender unknown", func(t *testing.T) {
		store.EXPECT().FindUserByID(gomock.Any(), userA).Return(nil, errs.ErrUserNotFound)
		ack := relay.Send(context.Background(), c, message.SendRequest{ReceiverID: userB, Text: "x"})
		assert.Equal(t, "UserNotFound", ack.Code)
		assert.Equal(t, "User not found", ack.Error)
	})

	t.Run("store down", func(t *testing.T) {
		store.EXPECT().FindUserByID(gomock.Any(), userA).Return(nil, errors.New("connection refused"))
		ack := relay.Send(context.Background(), c, message.SendRequest{ReceiverID: userB, Text: "x"})
		assert.Equal(t, "ServerInternal", ack.Code)
		assert.Equal(t, "Failed to send message", ack.Error)
	})
}

func TestTyping(t *testing.T) {
	f := newFixture(t)
	c1 := f.conn(t, "c1", userA)

	assert.False(t, f.relay.Typing(c1, message.TypingRequest{ConversationID: "conv", ReceiverID: userB}))

	c2 := f.conn(t, "c2", userB)
	assert.True(t, f.relay.Typing(c1, message.TypingRequest{ConversationID: "conv", ReceiverID: userB}))
	got := c2.Named(message.EventUserTyping)
	require.Len(t, got, 1)
	assert.Equal(t, message.TypingSignal{UserID: userA, ConversationID: "conv", Timestamp: fixedNow.UnixMilli()}, got[0].Payload)
	assert.Empty(t, c1.Events())

	assert.False(t, f.relay.Typing(c1, message.TypingRequest{ReceiverID: userA}))
}

func TestReadReceipt(t *testing.T) {
	f := newFixture(t)
	reader := f.conn(t, "r", userB)
	author := f.conn(t, "a", userA)

	delivered, err := f.relay.Read(reader, message.ReadRequest{MessageID: "m42", SenderID: userA})
	require.NoError(t, err)
	assert.True(t, delivered)
	got := author.Named(message.EventMessageRead)
	require.Len(t, got, 1)
	receipt := got[0].Payload.(message.ReadReceipt)
	assert.Equal(t, "m42", receipt.MessageID)
	assert.Equal(t, userB, receipt.ReaderID)

	_, err = f.relay.Read(reader, message.ReadRequest{SenderID: userA})
	assert.Error(t, err)
}

func TestAckJSON(t *testing.T) {
	raw, err := json.Marshal(message.FriendsAck(nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"ok","friends":[]}`, string(raw))

	raw, err = json.Marshal(message.FailAck(errs.ErrUserNotFound, "Failed to get friends"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","code":"UserNotFound","message":"User not found"}`, string(raw))

	raw, err = json.Marshal(message.FailAck(errors.New("boom"), "Failed to get friends"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"error","code":"ServerInternal","message":"Failed to get friends"}`, string(raw))
}
