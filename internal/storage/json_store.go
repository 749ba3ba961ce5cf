package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/AntarcBall/every-archive/internal/core/domain"
	"github.com/AntarcBall/every-archive/internal/core/ports"
)

// JSONStore는 DATABASE_URL이 없을 때 쓰는 파일 저장소입니다.
// 변경이 있을 때마다 파일 전체를 다시 씁니다.
type JSONStore struct {
	FilePath string
	mu       sync.RWMutex
	data     storeData
}

type storeData struct {
	Articles map[string]storedArticle `json:"articles"`
	Logs     []domain.ChangeEvent     `json:"logs"`
}

// 파일 포맷. 필드 이름은 업스트림 속성 이름을 따릅니다.
type storedArticle struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
	Posvote    int       `json:"posvote"`
	Comment    int       `json:"comment"`
	ScrapCount int       `json:"scrap_count"`
	StoredAt   time.Time `json:"stored_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func NewJSONStore(filePath string) (*JSONStore, error) {
	s := &JSONStore{
		FilePath: filePath,
		data:     storeData{Articles: make(map[string]storedArticle)},
	}
	if err := os.MkdirAll(filepath.Dir(filePath), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	if err := s.loadFromFile(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	return s, nil
}

var (
	_ ports.SnapshotStore = (*JSONStore)(nil)
	_ ports.ChangeLog     = (*JSONStore)(nil)
)

func (s *JSONStore) loadFromFile() error {
	file, err := os.ReadFile(s.FilePath)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(file, &s.data); err != nil {
		return err
	}
	if s.data.Articles == nil {
		s.data.Articles = make(map[string]storedArticle)
	}
	return nil
}

func (s *JSONStore) saveToFile() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	if err := os.WriteFile(s.FilePath, data, 0644); err != nil {
		return fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	return nil
}

func (s *JSONStore) GetAll(ctx context.Context) (map[string]domain.ArticleSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snaps := make(map[string]domain.ArticleSnapshot, len(s.data.Articles))
	for id, a := range s.data.Articles {
		snaps[id] = toSnapshot(a)
	}
	return snaps, nil
}

func (s *JSONStore) Get(ctx context.Context, id string) (domain.ArticleSnapshot, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.data.Articles[id]
	if !ok {
		return domain.ArticleSnapshot{}, false, nil
	}
	return toSnapshot(a), true, nil
}

func (s *JSONStore) Put(ctx context.Context, snap domain.ArticleSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Articles[snap.ID] = fromSnapshot(snap)
	return s.saveToFile()
}

func (s *JSONStore) ApplyUpdate(ctx context.Context, id string, upd domain.CounterUpdate, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.data.Articles[id]
	if !ok {
		return fmt.Errorf("%w: article %s not found", ports.ErrStore, id)
	}
	snap := toSnapshot(a)
	upd.Apply(&snap.Article)
	snap.UpdatedAt = updatedAt
	s.data.Articles[id] = fromSnapshot(snap)
	return s.saveToFile()
}

func (s *JSONStore) Append(ctx context.Context, ev domain.ChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.Logs = append(s.data.Logs, ev)
	return s.saveToFile()
}

func (s *JSONStore) ListRecent(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := make([]domain.ChangeEvent, len(s.data.Logs))
	copy(events, s.data.Logs)
	// 표시 정렬 기준은 저장 순서가 아니라 timestamp.
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp > events[j].Timestamp
	})
	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// Reset은 스냅샷과 로그를 모두 비웁니다.
func (s *JSONStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data = storeData{Articles: make(map[string]storedArticle)}
	return s.saveToFile()
}

func toSnapshot(a storedArticle) domain.ArticleSnapshot {
	return domain.ArticleSnapshot{
		Article: domain.Article{
			ID:           a.ID,
			Title:        a.Title,
			Text:         a.Text,
			CreatedAt:    a.CreatedAt,
			Upvotes:      a.Posvote,
			CommentCount: a.Comment,
			ScrapCount:   a.ScrapCount,
		},
		StoredAt:  a.StoredAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func fromSnapshot(snap domain.ArticleSnapshot) storedArticle {
	return storedArticle{
		ID:         snap.ID,
		Title:      snap.Title,
		Text:       snap.Text,
		CreatedAt:  snap.CreatedAt,
		Posvote:    snap.Upvotes,
		Comment:    snap.CommentCount,
		ScrapCount: snap.ScrapCount,
		StoredAt:   snap.StoredAt,
		UpdatedAt:  snap.UpdatedAt,
	}
}
