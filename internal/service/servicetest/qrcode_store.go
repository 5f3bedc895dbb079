package servicetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"qrious/internal/core"
	"qrious/internal/database/mongodb/model"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// QRCodeStore 記憶體版產物儲存，行為對齊 Mongo repository；Fail* 欄位可注入錯誤
type QRCodeStore struct {
	mu    sync.Mutex
	items map[primitive.ObjectID]*model.QRCode
	calls map[string]int

	FailCreate       func() error
	FailFinalize     func() error
	FailFindLatest   func(attempt int) error
	FailRecordAccess func() error
	FailRecordScan   func() error
	FailCount        func() error
}

func NewQRCodeStore() *QRCodeStore {
	return &QRCodeStore{
		items: make(map[primitive.ObjectID]*model.QRCode),
		calls: make(map[string]int),
	}
}

// Calls 某方法被呼叫的次數
func (s *QRCodeStore) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

// TotalCalls 所有方法呼叫次數總和
func (s *QRCodeStore) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.calls {
		total += n
	}
	return total
}

// Put 直接放入一筆（測試準備資料用）
func (s *QRCodeStore) Put(qrCode *model.QRCode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if qrCode.ID.IsZero() {
		qrCode.ID = primitive.NewObjectID()
	}
	if qrCode.State == "" {
		qrCode.State = core.ArtifactFinalized
	}
	s.items[qrCode.ID] = clone(qrCode)
}

// Get 取出目前狀態的複本
func (s *QRCodeStore) Get(id primitive.ObjectID) (*model.QRCode, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item, ok := s.items[id]
	if !ok {
		return nil, false
	}
	return clone(item), true
}

func (s *QRCodeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *QRCodeStore) Create(_ context.Context, qrCode *model.QRCode) (*model.QRCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Create"]++
	if s.FailCreate != nil {
		if err := s.FailCreate(); err != nil {
			return nil, err
		}
	}
	if qrCode.ID.IsZero() {
		qrCode.ID = primitive.NewObjectID()
	}
	if qrCode.CreatedAt.IsZero() {
		qrCode.CreatedAt = time.Now().UTC()
	}
	qrCode.UpdatedAt = qrCode.CreatedAt
	s.items[qrCode.ID] = clone(qrCode)
	return qrCode, nil
}

func (s *QRCodeStore) Finalize(_ context.Context, id primitive.ObjectID, image string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Finalize"]++
	if s.FailFinalize != nil {
		if err := s.FailFinalize(); err != nil {
			return err
		}
	}
	item, ok := s.items[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	item.QRCodeImage = image
	item.State = core.ArtifactFinalized
	return nil
}

func (s *QRCodeStore) FindByID(_ context.Context, id primitive.ObjectID) (*model.QRCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindByID"]++
	item, ok := s.items[id]
	if !ok || item.State != core.ArtifactFinalized {
		return nil, mongo.ErrNoDocuments
	}
	out := clone(item)
	out.QRCodeImage = ""
	out.ScanHistory = nil
	return out, nil
}

func (s *QRCodeStore) FindOwned(_ context.Context, id, userID primitive.ObjectID) (*model.QRCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindOwned"]++
	item, ok := s.items[id]
	if !ok || item.UserID != userID || item.State != core.ArtifactFinalized {
		return nil, mongo.ErrNoDocuments
	}
	out := clone(item)
	if n := len(out.ScanHistory); n > 10 {
		out.ScanHistory = out.ScanHistory[n-10:]
	}
	return out, nil
}

func (s *QRCodeStore) FindLatest(_ context.Context, lookup model.QRCodeLookup) (*model.QRCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["FindLatest"]++
	if s.FailFindLatest != nil {
		if err := s.FailFindLatest(s.calls["FindLatest"]); err != nil {
			return nil, err
		}
	}
	var latest *model.QRCode
	for _, item := range s.items {
		if item.State != core.ArtifactFinalized ||
			item.URL != lookup.URL ||
			item.UserID != lookup.UserID ||
			item.GeneratedVia != lookup.Channel {
			continue
		}
		if lookup.StyleKey != "" && item.StyleKey != lookup.StyleKey {
			continue
		}
		if latest == nil || item.CreatedAt.After(latest.CreatedAt) ||
			(item.CreatedAt.Equal(latest.CreatedAt) && item.ID.Hex() > latest.ID.Hex()) {
			latest = item
		}
	}
	if latest == nil {
		return nil, mongo.ErrNoDocuments
	}
	out := clone(latest)
	out.ScanHistory = nil
	return out, nil
}

func (s *QRCodeStore) RecordAccess(_ context.Context, id primitive.ObjectID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["RecordAccess"]++
	if s.FailRecordAccess != nil {
		if err := s.FailRecordAccess(); err != nil {
			return err
		}
	}
	item, ok := s.items[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	at = at.UTC()
	item.AccessCount++
	item.LastAccessed = &at
	return nil
}

func (s *QRCodeStore) RecordScan(_ context.Context, id primitive.ObjectID, event model.ScanEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["RecordScan"]++
	if s.FailRecordScan != nil {
		if err := s.FailRecordScan(); err != nil {
			return err
		}
	}
	item, ok := s.items[id]
	if !ok {
		return mongo.ErrNoDocuments
	}
	ts := event.Timestamp.UTC()
	item.ScanCount++
	item.LastScanned = &ts
	item.ScanHistory = append(item.ScanHistory, event)
	if n := len(item.ScanHistory); n > core.ScanHistoryLimit {
		item.ScanHistory = append([]model.ScanEvent(nil), item.ScanHistory[n-core.ScanHistoryLimit:]...)
	}
	return nil
}

func (s *QRCodeStore) CountCreatedSince(_ context.Context, userID primitive.ObjectID, channel core.Channel, since time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["CountCreatedSince"]++
	if s.FailCount != nil {
		if err := s.FailCount(); err != nil {
			return 0, err
		}
	}
	var count int64
	for _, item := range s.items {
		if item.UserID == userID && item.GeneratedVia == channel && !item.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (s *QRCodeStore) OldestCreatedSince(_ context.Context, userID primitive.ObjectID, channel core.Channel, since time.Time) (*time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["OldestCreatedSince"]++
	var oldest *time.Time
	for _, item := range s.items {
		if item.UserID != userID || item.GeneratedVia != channel || item.CreatedAt.Before(since) {
			continue
		}
		if oldest == nil || item.CreatedAt.Before(*oldest) {
			createdAt := item.CreatedAt
			oldest = &createdAt
		}
	}
	if oldest == nil {
		return nil, mongo.ErrNoDocuments
	}
	return oldest, nil
}

func (s *QRCodeStore) ListOwned(_ context.Context, query model.QRCodeListQuery) ([]*model.QRCode, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["ListOwned"]++
	rows := make([]*model.QRCode, 0)
	for _, item := range s.items {
		if item.UserID == query.UserID && item.State == core.ArtifactFinalized {
			out := clone(item)
			out.QRCodeImage = ""
			out.ScanHistory = nil
			rows = append(rows, out)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool {
		less := lessBy(query.SortBy, rows[i], rows[j])
		if query.SortOrder > 0 {
			return less
		}
		return lessBy(query.SortBy, rows[j], rows[i])
	})
	total := int64(len(rows))
	page := query.Page
	if page < 1 {
		page = 1
	}
	start := (page - 1) * query.Limit
	if start >= total {
		return []*model.QRCode{}, total, nil
	}
	stop := start + query.Limit
	if stop > total {
		stop = total
	}
	return rows[start:stop], total, nil
}

func (s *QRCodeStore) DeleteOwned(_ context.Context, id, userID primitive.ObjectID) (bool, error) {
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

func (s *QRCodeStore) DeleteByID(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["DeleteByID"]++
	delete(s.items, id)
	return nil
}

func (s *QRCodeStore) Analytics(_ context.Context, userID primitive.ObjectID, since time.Time) (*model.QRCodeAnalytics, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls["Analytics"]++
	result := &model.QRCodeAnalytics{GenerationMethods: []model.MethodCount{}, TopQRCodes: []*model.QRCode{}}
	methods := map[string]int64{}
	owned := make([]*model.QRCode, 0)
	for _, item := range s.items {
		if item.UserID != userID || item.State != core.ArtifactFinalized {
			continue
		}
		result.TotalQRCodes++
		result.TotalAccesses += item.AccessCount
		result.TotalScans += item.ScanCount
		if !item.CreatedAt.Before(since) {
			result.RecentQRCodes++
		}
		methods[string(item.GeneratedVia)]++
		owned = append(owned, clone(item))
	}
	for method, count := range methods {
		result.GenerationMethods = append(result.GenerationMethods, model.MethodCount{Method: method, Count: count})
	}
	sort.Slice(result.GenerationMethods, func(i, j int) bool {
		a, b := result.GenerationMethods[i], result.GenerationMethods[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Method < b.Method
	})
	sort.SliceStable(owned, func(i, j int) bool {
		if owned[i].AccessCount != owned[j].AccessCount {
			return owned[i].AccessCount > owned[j].AccessCount
		}
		return owned[i].CreatedAt.After(owned[j].CreatedAt)
	})
	if len(owned) > 5 {
		owned = owned[:5]
	}
	for _, item := range owned {
		item.QRCodeImage = ""
		item.ScanHistory = nil
	}
	result.TopQRCodes = owned
	return result, nil
}

func lessBy(field string, a, b *model.QRCode) bool {
	switch field {
	case "name":
		return strings.Compare(a.Name, b.Name) < 0
	case "accessCount":
		return a.AccessCount < b.AccessCount
	case "scanCount":
		return a.ScanCount < b.ScanCount
	case "lastScanned":
		return timeOf(a.LastScanned).Before(timeOf(b.LastScanned))
	default:
		return a.CreatedAt.Before(b.CreatedAt)
	}
}

func timeOf(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

func clone(in *model.QRCode) *model.QRCode {
	out := *in
	out.ScanHistory = append([]model.ScanEvent(nil), in.ScanHistory...)
	return &out
}
