package handlers

import (
	"PRelay/module/message"
	"PRelay/service/chat"
	"context"
	"encoding/json"
)

const (
	EventGetFriends     = "getFriends"
	EventGetUsersToChat = "getUsersToChat"
	EventGetOnlinePeers = "getOnlinePeers"
)

// FriendsHandler getFriends -> {status, friends[]}
type FriendsHandler struct{}

func NewFriendsHandler() chat.Handler { return FriendsHandler{} }

func (FriendsHandler) Event() string { return EventGetFriends }

func (FriendsHandler) Handle(ctx context.Context, cc *chat.ChatContext, c *chat.WsConn, _ json.RawMessage) *message.Ack {
	list, err := cc.S.Presence().Friends(ctx, c.UserID())
	if err != nil {
		ack := message.FailAck(err, "Failed to get friends")
		logFail(EventGetFriends, c, err)
		return &ack
	}
	ack := message.FriendsAck(list)
	return &ack
}

// UsersToChatHandler getUsersToChat -> {status, users[]}，好友 ∪ 已接受配对
type UsersToChatHandler struct{}

func NewUsersToChatHandler() chat.Handler { return UsersToChatHandler{} }

func (UsersToChatHandler) Event() string { return EventGetUsersToChat }

func (UsersToChatHandler) Handle(ctx context.Context, cc *chat.ChatContext, c *chat.WsConn, _ json.RawMessage) *message.Ack {
	list, err := cc.S.Presence().UsersToChat(ctx, c.UserID())
	if err != nil {
		ack := message.FailAck(err, "Failed to get users to chat")
		logFail(EventGetUsersToChat, c, err)
		return &ack
	}
	ack := message.UsersAck(list)
	return &ack
}

// OnlinePeersHandler getOnlinePeers -> {status, users[]}，只含在线对端
type OnlinePeersHandler struct{}

func NewOnlinePeersHandler() chat.Handler { return OnlinePeersHandler{} }

func (OnlinePeersHandler) Event() string { return EventGetOnlinePeers }

func (OnlinePeersHandler) Handle(ctx context.Context, cc *chat.ChatContext, c *chat.WsConn, _ json.RawMessage) *message.Ack {
	list, err := cc.S.Presence().OnlinePeers(ctx, c.UserID())
	if err != nil {
		ack := message.FailAck(err, "Failed to get online peers")
		logFail(EventGetOnlinePeers, c, err)
		return &ack
	}
	ack := message.UsersAck(list)
	return &ack
}
