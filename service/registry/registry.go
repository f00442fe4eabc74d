package registry

import (
	"errors"
	"sort"
	"sync"
	"time"
)

// Conn 一条已通过握手的连接句柄；由传输层实现
type Conn interface {
	ID() string
	UserID() string
	// Emit 非阻塞投递一个事件；失败只影响这一条连接
	Emit(event string, payload any) error
}

// Connection 连接记录（只读快照）
type Connection struct {
	ID        string
	UserID    string
	CreatedAt time.Time
}

var (
	ErrInvalidConn = errors.New("registry: conn id/user id empty")
	ErrConnExists  = errors.New("registry: conn id already admitted")
)

type Conf struct {
	Clock func() time.Time // 可注入时钟（单测用）；nil => time.Now
}

func (c *Conf) norm() {
	if c.Clock == nil {
		c.Clock = time.Now
	}
}

type entry struct {
	conn      Conn
	createdAt time.Time
}

// Registry 在线连接表：userId -> 活跃连接集合。
// 用户在表中当且仅当至少有一条活跃连接。
type Registry struct {
	mu     sync.RWMutex
	byConn map[string]*entry            // 主索引：connID -> entry
	byUser map[string]map[string]*entry // 辅助索引：userID -> (connID -> entry)

	conf Conf
}

func New(conf Conf) *Registry {
	conf.norm()
	return &Registry{
		byConn: make(map[string]*entry),
		byUser: make(map[string]map[string]*entry),
		conf:   conf,
	}
}

// Admit 登记连接；用户不存在时创建条目
func (r *Registry) Admit(c Conn) error {
	if c == nil || c.ID() == "" || c.UserID() == "" {
		return ErrInvalidConn
	}
	now := r.conf.Clock()

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byConn[c.ID()]; exists {
		return ErrConnExists
	}
	e := &entry{conn: c, createdAt: now}
	r.byConn[c.ID()] = e

	mm := r.byUser[c.UserID()]
	if mm == nil {
		mm = make(map[string]*entry)
		r.byUser[c.UserID()] = mm
	}
	mm[c.ID()] = e
	return nil
}

// Evict 移除连接。只有移除的是该用户最后一条连接时才返回 (userID, true)；
// 连接不存在是 no-op，返回 ("", false)
func (r *Registry) Evict(connID string) (string, bool) {
	if connID == "" {
		return "", false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	delete(r.byConn, connID)

	user := e.conn.UserID()
	mm := r.byUser[user]
	delete(mm, connID)
	if len(mm) == 0 {
		delete(r.byUser, user)
		return user, true
	}
	return "", false
}

// ConnectionsFor 用户的全部活跃连接；离线返回空
func (r *Registry) ConnectionsFor(userID string) []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	mm := r.byUser[userID]
	out := make([]Conn, 0, len(mm))
	for _, e := range mm {
		out = append(out, e.conn)
	}
	return out
}

// IsOnline 至少一条活跃连接
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser[userID]) > 0
}

// Snapshot 当前全部在线用户（升序）
func (r *Registry) Snapshot() []string {
	r.mu.RLock()
	out := make([]string, 0, len(r.byUser))
	for u := range r.byUser {
		out = append(out, u)
	}
	r.mu.RUnlock()

	sort.Strings(out)
	return out
}

// All 全部活跃连接，用于全员广播
func (r *Registry) All() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Conn, 0, len(r.byConn))
	for _, e := range r.byConn {
		out = append(out, e.conn)
	}
	return out
}

// Lookup 按 connID 查询连接记录
func (r *Registry) Lookup(connID string) (Connection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byConn[connID]
	if !ok {
		return Connection{}, false
	}
	return Connection{ID: connID, UserID: e.conn.UserID(), CreatedAt: e.createdAt}, true
}

// Stats 在线用户数 / 连接数
func (r *Registry) Stats() (users, conns int) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser), len(r.byConn)
}
