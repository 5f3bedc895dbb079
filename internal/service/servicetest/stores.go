package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"qrious/internal/core"
	fluentdModel "qrious/internal/database/fluentd/model"
	"qrious/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// APIKeyStore 記憶體版 API key 儲存
type APIKeyStore struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*model.APIKey
	calls map[string]int

	FailFind func() error
}

func NewAPIKeyStore() *APIKeyStore {
	return &APIKeyStore{
		items: make(map[primitive.ObjectID]*model.APIKey),
		calls: make(map[string]int),
	}
}

func (s *APIKeyStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func (s *APIKeyStore) Put(apiKey *model.APIKey) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if apiKey.ID.IsZero() {
		apiKey.ID = primitive.NewObjectID()
	}
	copied := *apiKey
	s.items[apiKey.ID] = &copied
}

func (s *APIKeyStore) Get(id primitive.ObjectID) (*model.APIKey, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	copied := *item
	return &copied, true
}

func (s *APIKeyStore) Create(_ context.Context, apiKey *model.APIKey) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Create"]++
	if apiKey.ID.IsZero() {
		apiKey.ID = primitive.NewObjectID()
	}
	copied := *apiKey
	s.items[apiKey.ID] = &copied
	return apiKey, nil
}

func (s *APIKeyStore) FindByID(_ context.Context, id primitive.ObjectID) (*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindByID"]++
	if s.FailFind != nil {
		if err := s.FailFind(); err != nil {
			return nil, err
		}
	}
	item, ok := s.items[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *item
	return &copied, nil
}

func (s *APIKeyStore) ListByOwner(_ context.Context, userID primitive.ObjectID) ([]*model.APIKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListByOwner"]++
	rows := make([]*model.APIKey, 0)
	for _, item := range s.items {
		if item.UserID == userID {
			copied := *item
			rows = append(rows, &copied)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	return rows, nil
}

func (s *APIKeyStore) Revoke(_ context.Context, id, userID primitive.ObjectID, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Revoke"]++
	item, ok := s.items[id]
	if !ok || item.UserID != userID {
		return false, nil
	}
	if item.Status != core.StatusRevoked {
		at = at.UTC()
		item.Status = core.StatusRevoked
		item.RevokedAt = &at
	}
	return true, nil
}

func (s *APIKeyStore) DeleteOwned(_ context.Context, id, userID primitive.ObjectID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["DeleteOwned"]++
	item, ok := s.items[id]
	if !ok || item.UserID != userID {
		return false, nil
	}
	delete(s.items, id)
	return true, nil
}

func (s *APIKeyStore) MarkExpired(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["MarkExpired"]++
	if item, ok := s.items[id]; ok && item.Status == core.StatusActive {
		item.Status = core.StatusExpired
	}
	return nil
}

func (s *APIKeyStore) TouchLastUsed(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["TouchLastUsed"]++
	if item, ok := s.items[id]; ok {
		at = at.UTC()
		item.LastUsed = &at
	}
	return nil
}

func (s *APIKeyStore) ExpireBefore(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ExpireBefore"]++
	var affected int64
	for _, item := range s.items {
		if item.Status == core.StatusActive && item.Expired(now) {
			item.Status = core.StatusExpired
			affected++
		}
	}
	return affected, nil
}

// UserStore 記憶體版使用者儲存
type UserStore struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*model.User
}

func NewUserStore() *UserStore {
	return &UserStore{items: make(map[primitive.ObjectID]*model.User)}
}

func (s *UserStore) Put(user *model.User) *model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	if user.Role == "" {
		user.Role = core.RoleUser
	}
	if user.Status == "" {
		user.Status = core.StatusActive
	}
	copied := *user
	s.items[user.ID] = &copied
	return user
}

func (s *UserStore) Get(id primitive.ObjectID) (*model.User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	copied := *item
	return &copied, true
}

func (s *UserStore) Create(_ context.Context, user *model.User) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range s.items {
		if item.Username == user.Username || item.Email == user.Email {
			return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000, Message: "duplicate key"}}}
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	copied := *user
	s.items[user.ID] = &copied
	return user, nil
}

func (s *UserStore) GetByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, mongo.ErrNoDocuments
	}
	copied := *item
	return &copied, nil
}

func (s *UserStore) FindByLogin(_ context.Context, login string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	login = strings.TrimSpace(login)
	for _, item := range s.items {
		if item.Email == strings.ToLower(login) || item.Username == login {
			copied := *item
			return &copied, nil
		}
	}
	return nil, mongo.ErrNoDocuments
}

func (s *UserStore) ExistsByUsernameOrEmail(_ context.Context, username, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	username = strings.TrimSpace(username)
	for _, item := range s.items {
		if item.Email == email || item.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *UserStore) UpdateStatus(_ context.Context, id primitive.ObjectID, status core.Status) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return 0, nil
	}
	item.Status = status
	return 1, nil
}

func (s *UserStore) UpdateRole(_ context.Context, id primitive.ObjectID, role core.Role) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return 0, nil
	}
	item.Role = role
	return 1, nil
}

func (s *UserStore) UpdateLastSeen(_ context.Context, id primitive.ObjectID, at time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return 0, nil
	}
	at = at.UTC()
	item.LastSeen = &at
	return 1, nil
}

// List 只支援 role / status 等值篩選
func (s *UserStore) List(_ context.Context, opts core.ListOptions) ([]*model.User, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rows := make([]*model.User, 0)
	for _, item := range s.items {
		if role, ok := opts.Filter["role"]; ok && role != string(item.Role) && role != item.Role {
			continue
		}
		if status, ok := opts.Filter["status"]; ok && status != string(item.Status) && status != item.Status {
			continue
		}
		copied := *item
		rows = append(rows, &copied)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
	total := int64(len(rows))
	size := opts.Size
	if size <= 0 {
		size = 20
	}
	start := opts.Page * size
	if start >= total {
		return []*model.User{}, total, nil
	}
	stop := start + size
	if stop > total {
		stop = total
	}
	return rows[start:stop], total, nil
}

// Blacklist 記憶體版 jti 黑名單
type Blacklist struct {
	mu      sync.Mutex
	entries map[string]time.Duration

	FailExists func() error
}

func NewBlacklist() *Blacklist {
	return &Blacklist{entries: make(map[string]time.Duration)}
}

func (b *Blacklist) Add(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[jti] = ttl
	return nil
}

func (b *Blacklist) Exists(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.FailExists != nil {
		if err := b.FailExists(); err != nil {
			return false, err
		}
	}
	_, ok := b.entries[jti]
	return ok, nil
}

// TTL 取得加入時的存活時間
func (b *Blacklist) TTL(jti string) (time.Duration, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ttl, ok := b.entries[jti]
	return ttl, ok
}

// GenerationLogger 收集寫出的產生紀錄
type GenerationLogger struct {
	mu      sync.Mutex
	entries []fluentdModel.GenerationLog
}

func (l *GenerationLogger) LogGeneration(_ context.Context, generation fluentdModel.GenerationLog) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, generation)
	return nil
}

func (l *GenerationLogger) Entries() []fluentdModel.GenerationLog {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]fluentdModel.GenerationLog(nil), l.entries...)
}

// Results 依序回傳每筆紀錄的 result
func (l *GenerationLogger) Results() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	results := make([]string, 0, len(l.entries))
	for _, entry := range l.entries {
		results = append(results, entry.Result)
	}
	return results
}
