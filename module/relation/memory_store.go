package relation

import (
	matchmodel "PRelay/module/match/model"
	usermodel "PRelay/module/user/model"
	"PRelay/tools/errs"
	"context"
	"encoding/json"
	"os"
	"sync"
)

// MemoryStore 进程内存储：单测与本地联调用
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]usermodel.User
	matches []matchmodel.Match
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{users: make(map[string]usermodel.User)}
}

// seedFile 本地联调的种子数据格式
type seedFile struct {
	Users []struct {
		usermodel.User
		ID      string   `json:"_id"`
		Friends []string `json:"friends"`
	} `json:"users"`
	Matches []matchmodel.Match `json:"matches"`
}

// LoadMemoryStore 从 JSON 种子文件构建
func LoadMemoryStore(path string) (*MemoryStore, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.WrapMsg(err, "read seed file", "path", path)
	}
	var seed seedFile
	if err := json.Unmarshal(raw, &seed); err != nil {
		return nil, errs.WrapMsg(err, "parse seed file", "path", path)
	}
	s := NewMemoryStore()
	for _, u := range seed.Users {
		user := u.User
		user.ID = u.ID
		user.FriendIDs = u.Friends
		s.PutUser(user)
	}
	for _, m := range seed.Matches {
		s.PutMatch(m)
	}
	return s, nil
}

func (s *MemoryStore) PutUser(u usermodel.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.FriendIDs = append([]string(nil), u.FriendIDs...)
	s.users[u.ID] = u
}

// Befriend 双向写入好友
func (s *MemoryStore) Befriend(a, b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, pair := range [][2]string{{a, b}, {b, a}} {
		u := s.users[pair[0]]
		u.ID = pair[0]
		u.FriendIDs = append(u.FriendIDs, pair[1])
		s.users[pair[0]] = u
	}
}

func (s *MemoryStore) PutMatch(m matchmodel.Match) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.matches = append(s.matches, m)
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*usermodel.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrUserNotFound.WrapMsg("", "userId", id)
	}
	u.FriendIDs = append([]string(nil), u.FriendIDs...)
	return &u, nil
}

func (s *MemoryStore) FindUsersByIDs(_ context.Context, ids []string, p usermodel.Projection) ([]usermodel.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]usermodel.Profile, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		if u, ok := s.users[id]; ok {
			out = append(out, u.Project(p))
		}
	}
	return out, nil
}

func (s *MemoryStore) FindAcceptedMatchesInvolving(_ context.Context, userID string) ([]matchmodel.Match, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []matchmodel.Match
	for _, m := range s.matches {
		if m.Accepted() && (m.User1ID == userID || m.User2ID == userID) {
			out = append(out, m)
		}
	}
	return out, nil
}
