package model

import "time"

const MatchCollection = "matches"

// Status
const (
	MatchPending  = "pending"
	MatchAccepted = "accepted"
	MatchRejected = "rejected"
)

// Match 两个用户之间的配对记录；双方都同意后 status=accepted
type Match struct {
	ID        string    `bson:"-" json:"_id"`
	User1ID   string    `bson:"user1Id" json:"user1Id"`
	User2ID   string    `bson:"user2Id" json:"user2Id"`
	Status    string    `bson:"status" json:"status"`
	CreatedAt time.Time `bson:"createdAt,omitempty" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt,omitempty" json:"updatedAt"`
}

// Other 返回配对中另一方；userID 不在配对里时返回空
func (m *Match) Other(userID string) string {
	switch userID {
	case m.User1ID:
		return m.User2ID
	case m.User2ID:
		return m.User1ID
	default:
		return ""
	}
}

func (m *Match) Accepted() bool { return m.Status == MatchAccepted }
