package presence

import (
	"PRelay/logger"
	"PRelay/module/relation"
	"PRelay/service/registry"
	"context"
	"sync"
	"time"
)

// 服务端推送的事件名
const (
	EventStatusChanged = "user_status_changed"
	EventOnlineUsers   = "getOnlineUsers"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

type StatusChanged struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// Mirror 把在线状态同步到外部（非权威，只供其它服务读取）
type Mirror interface {
	MarkOnline(ctx context.Context, userID string) error
	MarkOffline(ctx context.Context, userID string, at time.Time) error
	Refresh(ctx context.Context, userIDs []string) error
}

// PeerScoper 授权范围
type PeerScoper interface {
	PeersOf(ctx context.Context, userID string) (relation.PeerSet, error)
	FriendsOf(ctx context.Context, userID string) ([]string, error)
}

type Option func(*Broadcaster)

func WithMirror(m Mirror) Option {
	return func(b *Broadcaster) { b.mirror = m }
}

func WithClock(now func() time.Time) Option {
	return func(b *Broadcaster) { b.now = now }
}

func WithMirrorTimeout(d time.Duration) Option {
	return func(b *Broadcaster) { b.mirrorTimeout = d }
}

// Broadcaster 上下线广播与在线快照。
// mu 把“登记/移除 + 入队广播”串成一步：同一用户的上线事件总是先于其下线事件进入每条连接的发送队列。
// 锁内只做内存操作和非阻塞入队，不碰外部存储。
type Broadcaster struct {
	mu     sync.Mutex
	reg    *registry.Registry
	scoper PeerScoper
	store  relation.Store

	mirror        Mirror
	mirrorTimeout time.Duration
	now           func() time.Time
}

func NewBroadcaster(reg *registry.Registry, scoper PeerScoper, store relation.Store, opts ...Option) *Broadcaster {
	b := &Broadcaster{
		reg:           reg,
		scoper:        scoper,
		store:         store,
		mirrorTimeout: 2 * time.Second,
		now:           time.Now,
	}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Join 登记连接并广播上线
func (b *Broadcaster) Join(c registry.Conn) error {
	b.mu.Lock()
	if err := b.reg.Admit(c); err != nil {
		b.mu.Unlock()
		return err
	}
	b.announceLocked(c.UserID(), StatusOnline)
	b.mu.Unlock()

	b.mirrorOnline(c.UserID())
	return nil
}

// Leave 移除连接；只有最后一条连接断开时才广播下线。重复调用是 no-op
func (b *Broadcaster) Leave(connID string) (string, bool) {
	b.mu.Lock()
	user, last := b.reg.Evict(connID)
	if last {
		b.announceLocked(user, StatusOffline)
	}
	b.mu.Unlock()

	if last {
		b.mirrorOffline(user)
	}
	return user, last
}

// OnConnect 向全部连接广播 {userId, online} 和在线快照
func (b *Broadcaster) OnConnect(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.announceLocked(userID, StatusOnline)
}

// OnDisconnect 用户仍有连接时不广播
func (b *Broadcaster) OnDisconnect(userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.reg.IsOnline(userID) {
		return
	}
	b.announceLocked(userID, StatusOffline)
}

// OnlineUsers 在线快照
func (b *Broadcaster) OnlineUsers() []string {
	return b.reg.Snapshot()
}

func (b *Broadcaster) announceLocked(userID, status string) {
	conns := b.reg.All()
	changed := StatusChanged{UserID: userID, Status: status}
	snapshot := b.reg.Snapshot()

	failed := 0
	for _, c := range conns {
		if err := c.Emit(EventStatusChanged, changed); err != nil {
			failed++
			continue
		}
		if err := c.Emit(EventOnlineUsers, snapshot); err != nil {
			failed++
		}
	}
	logger.Infof("[Presence] user=%s status=%s conns=%d online=%d failed=%d",
		userID, status, len(conns), len(snapshot), failed)
}

func (b *Broadcaster) mirrorOnline(userID string) {
	if b.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.mirrorTimeout)
	defer cancel()
	if err := b.mirror.MarkOnline(ctx, userID); err != nil {
		logger.Warnf("[Presence] mirror online user=%s err=%v", userID, err)
	}
}

func (b *Broadcaster) mirrorOffline(userID string) {
	if b.mirror == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), b.mirrorTimeout)
	defer cancel()
	if err := b.mirror.MarkOffline(ctx, userID, b.now()); err != nil {
		logger.Warnf("[Presence] mirror offline user=%s err=%v", userID, err)
	}
}

// RunMirror 周期性把在线快照刷到 mirror（续期 TTL），直到 ctx 结束
func (b *Broadcaster) RunMirror(ctx context.Context, every time.Duration) {
	if b.mirror == nil || every <= 0 {
		return
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			rctx, cancel := context.WithTimeout(ctx, b.mirrorTimeout)
			if err := b.mirror.Refresh(rctx, b.reg.Snapshot()); err != nil {
				logger.Warnf("[Presence] mirror refresh err=%v", err)
			}
			cancel()
		}
	}
}
