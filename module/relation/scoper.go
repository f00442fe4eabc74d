package relation

import (
	"PRelay/logger"
	"PRelay/tools/errs"
	"PRelay/tools/ids"
	"context"
	"errors"
	"sort"
)

// PeerSet 可互发消息的对端集合
type PeerSet map[string]struct{}

func (s PeerSet) Has(id string) bool {
	_, ok := s[id]
	return ok
}

// Slice 升序
func (s PeerSet) Slice() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Scoper 计算 好友 ∪ 已接受配对。每次调用都查存储，不做缓存，
// 好友/配对变化在下一条消息上立即生效。
type Scoper struct {
	store     Store
	validator ids.IdentifierValidator
}

func NewScoper(store Store, validator ids.IdentifierValidator) *Scoper {
	if validator == nil {
		validator = ids.ObjectIDValidator{}
	}
	return &Scoper{store: store, validator: validator}
}

// FriendsOf 用户的好友 id，过滤掉存储里的非法值
func (s *Scoper) FriendsOf(ctx context.Context, userID string) ([]string, error) {
	if !s.validator.IsValidIdentifier(userID) {
		return nil, errs.ErrInvalidIdentifier.WrapMsg("", "userId", userID)
	}
	u, err := s.store.FindUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, errs.ErrUserNotFound) {
			return nil, err
		}
		return nil, errs.WrapMsg(err, "find user", "userId", userID)
	}
	valid := ids.FilterValid(s.validator, u.FriendIDs)
	if dropped := len(u.FriendIDs) - len(valid); dropped > 0 {
		logger.Warnf("[Scoper] user=%s dropped %d invalid friend ids", userID, dropped)
	}
	return valid, nil
}

// PeersOf 好友 ∪ 已接受配对的另一方，去重
func (s *Scoper) PeersOf(ctx context.Context, userID string) (PeerSet, error) {
	friends, err := s.FriendsOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	matches, err := s.store.FindAcceptedMatchesInvolving(ctx, userID)
	if err != nil {
		return nil, errs.WrapMsg(err, "find accepted matches", "userId", userID)
	}

	peers := make(PeerSet, len(friends)+len(matches))
	for _, f := range friends {
		peers[f] = struct{}{}
	}
	for i := range matches {
		if !matches[i].Accepted() {
			continue
		}
		other := matches[i].Other(userID)
		if other == "" || !s.validator.IsValidIdentifier(other) {
			continue
		}
		peers[other] = struct{}{}
	}
	delete(peers, userID)
	return peers, nil
}
