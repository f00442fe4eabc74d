package model

import (
	"time"
)

const UserCollection = "users"

// User 用户主档中中继需要的部分。
// 好友以 id 列表存在 friends.id 下，历史数据里可能混有非法值，读取方需自行过滤。
type User struct {
	ID             string     `bson:"-" json:"_id"`
	Username       string     `bson:"username" json:"username"`
	DisplayName    string     `bson:"displayName" json:"displayName"`
	FirstName      string     `bson:"firstName,omitempty" json:"firstName,omitempty"`
	LastName       string     `bson:"lastName,omitempty" json:"lastName,omitempty"`
	ProfilePicture string     `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	LastSeen       *time.Time `bson:"lastSeen,omitempty" json:"lastSeen,omitempty"`
	FriendIDs      []string   `bson:"-" json:"-"`
}

// Projection 决定对外返回哪些资料字段
type Projection int

const (
	// FriendProjection: _id displayName firstName lastName profilePicture lastSeen
	FriendProjection Projection = iota + 1
	// ChatProjection: _id username displayName profilePicture lastSeen
	ChatProjection
)

// Fields 投影包含的字段名（与文档字段一致）
func (p Projection) Fields() []string {
	switch p {
	case FriendProjection:
		return []string{"_id", "displayName", "firstName", "lastName", "profilePicture", "lastSeen"}
	case ChatProjection:
		return []string{"_id", "username", "displayName", "profilePicture", "lastSeen"}
	default:
		return []string{"_id"}
	}
}

// Profile 投影后的对外资料；Online 由在线表补充
type Profile struct {
	ID             string     `json:"_id"`
	Username       string     `json:"username,omitempty"`
	DisplayName    string     `json:"displayName,omitempty"`
	FirstName      string     `json:"firstName,omitempty"`
	LastName       string     `json:"lastName,omitempty"`
	ProfilePicture string     `json:"profilePicture,omitempty"`
	LastSeen       *time.Time `json:"lastSeen,omitempty"`
	Online         bool       `json:"online"`
}

// Project 按投影裁剪
func (u *User) Project(p Projection) Profile {
	out := Profile{ID: u.ID}
	switch p {
	case FriendProjection:
		out.DisplayName = u.DisplayName
		out.FirstName = u.FirstName
		out.LastName = u.LastName
		out.ProfilePicture = u.ProfilePicture
		out.LastSeen = u.LastSeen
	case ChatProjection:
		out.Username = u.Username
		out.DisplayName = u.DisplayName
		out.ProfilePicture = u.ProfilePicture
		out.LastSeen = u.LastSeen
	}
	return out
}
