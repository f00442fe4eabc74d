package presence

import (
	usermodel "PRelay/module/user/model"
	"context"
	"sort"
)

// PeerMode PeerList 的两种查询方式
type PeerMode int

const (
	// OnlyOnline 只要当前可达的对端
	OnlyOnline PeerMode = iota
	// AllEligible 全部有资格的对端
	AllEligible
)

// PeerList 授权范围内的对端；OnlyOnline 时再与在线快照求交
func (b *Broadcaster) PeerList(ctx context.Context, userID string, mode PeerMode) ([]string, error) {
	peers, err := b.scoper.PeersOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(peers))
	for id := range peers {
		if mode == OnlyOnline && !b.reg.IsOnline(id) {
			continue
		}
		out = append(out, id)
	}
	sort.Strings(out)
	return out, nil
}

// Friends 好友资料（好友投影），附带在线标记
func (b *Broadcaster) Friends(ctx context.Context, userID string) ([]usermodel.Profile, error) {
	ids, err := b.scoper.FriendsOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	return b.profiles(ctx, ids, usermodel.FriendProjection)
}

// UsersToChat 可聊天对象资料（聊天投影）
func (b *Broadcaster) UsersToChat(ctx context.Context, userID string) ([]usermodel.Profile, error) {
	ids, err := b.PeerList(ctx, userID, AllEligible)
	if err != nil {
		return nil, err
	}
	return b.profiles(ctx, ids, usermodel.ChatProjection)
}

// OnlinePeers 当前在线的可聊天对象
func (b *Broadcaster) OnlinePeers(ctx context.Context, userID string) ([]usermodel.Profile, error) {
	ids, err := b.PeerList(ctx, userID, OnlyOnline)
	if err != nil {
		return nil, err
	}
	return b.profiles(ctx, ids, usermodel.ChatProjection)
}

func (b *Broadcaster) profiles(ctx context.Context, ids []string, p usermodel.Projection) ([]usermodel.Profile, error) {
	if len(ids) == 0 {
		return []usermodel.Profile{}, nil
	}
	out, err := b.store.FindUsersByIDs(ctx, ids, p)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Online = b.reg.IsOnline(out[i].ID)
	}
	return out, nil
}
