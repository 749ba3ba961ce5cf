package ports

import (
	"context"
	"errors"
	"time"

	"github.com/AntarcBall/every-archive/internal/core/domain"
)

// 협력자 실패 분류. 어댑터는 반드시 이 센티널 중 하나를 %w로 감싸서
// 돌려줘야 호출자가 errors.Is로 구분할 수 있습니다.
var (
	// ErrTransport: 원격 소스에 닿지 못했거나 non-2xx 응답.
	ErrTransport = errors.New("source transport failure")
	// ErrParse: 응답은 받았지만 형태가 깨져 있음.
	ErrParse = errors.New("malformed source payload")
	// ErrStore: 저장소 연결 불가 또는 쓰기/읽기 실패.
	ErrStore = errors.New("store failure")
)

// Source는 원격 게시판 API 어댑터입니다.
type Source interface {
	// FetchPage는 offset부터 최대 limit개의 최신 게시글 한 페이지를
	// 돌려줍니다. 결과가 한 건이어도 목록으로 돌려줍니다.
	FetchPage(ctx context.Context, offset, limit int) ([]domain.Article, error)
	// FetchComments는 게시글의 현재 댓글 전체를 돌려줍니다.
	FetchComments(ctx context.Context, articleID string) ([]domain.Comment, error)
}

// SnapshotStore는 게시글 스냅샷의 키-값 보관소입니다.
type SnapshotStore interface {
	GetAll(ctx context.Context) (map[string]domain.ArticleSnapshot, error)
	Get(ctx context.Context, id string) (domain.ArticleSnapshot, bool, error)
	// Put은 생성 또는 전체 교체입니다.
	Put(ctx context.Context, snap domain.ArticleSnapshot) error
	// ApplyUpdate는 카운터 하나와 updated_at만 고칩니다.
	ApplyUpdate(ctx context.Context, id string, upd domain.CounterUpdate, updatedAt time.Time) error
}

// ChangeLog는 append-only 변경 로그입니다.
type ChangeLog interface {
	Append(ctx context.Context, ev domain.ChangeEvent) error
	// ListRecent는 최신 timestamp부터 최대 limit건을 돌려줍니다.
	ListRecent(ctx context.Context, limit int) ([]domain.ChangeEvent, error)
}

// Notifier는 신규 글을 외부 채널로 알리는 선택적 협력자입니다.
// 실패해도 사이클에는 영향을 주지 않습니다.
type Notifier interface {
	NotifyNewPost(ctx context.Context, article domain.Article) error
}
