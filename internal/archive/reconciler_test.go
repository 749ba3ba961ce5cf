package archive

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/AntarcBall/every-archive/internal/core/domain"
	"github.com/AntarcBall/every-archive/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var detectionTime = time.Date(2025, 8, 29, 12, 0, 0, 0, time.Local)

// memStore는 쓰기 횟수를 세는 인메모리 스냅샷 보관소입니다.
type memStore struct {
	snaps   map[string]domain.ArticleSnapshot
	puts    int
	updates int
}

func newMemStore() *memStore {
	return &memStore{snaps: make(map[string]domain.ArticleSnapshot)}
}

func (m *memStore) GetAll(ctx context.Context) (map[string]domain.ArticleSnapshot, error) {
	out := make(map[string]domain.ArticleSnapshot, len(m.snaps))
	for id, s := range m.snaps {
		out[id] = s
	}
	return out, nil
}

func (m *memStore) Get(ctx context.Context, id string) (domain.ArticleSnapshot, bool, error) {
	s, ok := m.snaps[id]
	return s, ok, nil
}

func (m *memStore) Put(ctx context.Context, snap domain.ArticleSnapshot) error {
	m.puts++
	m.snaps[snap.ID] = snap
	return nil
}

func (m *memStore) ApplyUpdate(ctx context.Context, id string, upd domain.CounterUpdate, updatedAt time.Time) error {
	m.updates++
	snap, ok := m.snaps[id]
	if !ok {
		return fmt.Errorf("%w: article %s not found", ports.ErrStore, id)
	}
	upd.Apply(&snap.Article)
	snap.UpdatedAt = updatedAt
	m.snaps[id] = snap
	return nil
}

type memLog struct {
	events []domain.ChangeEvent
}

func (m *memLog) Append(ctx context.Context, ev domain.ChangeEvent) error {
	m.events = append(m.events, ev)
	return nil
}

func (m *memLog) ListRecent(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	return nil, nil
}

// commentSource는 게시글별 댓글 응답만 흉내 냅니다.
type commentSource struct {
	comments map[string][]domain.Comment
	errs     map[string]error
}

func (s *commentSource) FetchPage(ctx context.Context, offset, limit int) ([]domain.Article, error) {
	return nil, nil
}

func (s *commentSource) FetchComments(ctx context.Context, articleID string) ([]domain.Comment, error) {
	if err := s.errs[articleID]; err != nil {
		return nil, err
	}
	return s.comments[articleID], nil
}

func newTestReconciler(source ports.Source, store *memStore, log *memLog) *Reconciler {
	r := NewReconciler(source, store, log)
	r.Clock = func() time.Time { return detectionTime }
	return r
}

func comments(n int) []domain.Comment {
	list := make([]domain.Comment, n)
	for i := range list {
		list[i] = domain.Comment{ID: fmt.Sprintf("c%d", i), Text: "댓글", Nickname: domain.AnonymousNickname}
	}
	return list
}

func TestReconcileArchivesNewArticle(t *testing.T) {
	origin := time.Date(2025, 8, 28, 9, 30, 0, 0, time.Local)
	article := domain.Article{ID: "100", Title: "A", Text: "본문", CreatedAt: origin}

	store := newMemStore()
	log := &memLog{}
	source := &commentSource{comments: map[string][]domain.Comment{"100": comments(2)}}
	r := newTestReconciler(source, store, log)

	err := r.Reconcile(context.Background(), []domain.Article{article}, nil)
	require.NoError(t, err)

	snap, ok := store.snaps["100"]
	require.True(t, ok)
	assert.Equal(t, detectionTime, snap.StoredAt)
	assert.Equal(t, detectionTime, snap.UpdatedAt)

	require.Len(t, log.events, 2)

	created := log.events[0]
	assert.Equal(t, domain.EventNewPost, created.Kind)
	// 신규 작성 이벤트는 감지 시각이 아니라 원본 작성 시각
	assert.Equal(t, domain.FormatTimestamp(origin), created.Timestamp)
	assert.Equal(t, domain.Placeholder, created.Before)
	assert.Equal(t, domain.Placeholder, created.After)
	assert.Equal(t, "본문", created.Content)
	assert.Equal(t, domain.AnonymousNickname, created.Nickname)

	narrative := log.events[1]
	assert.Equal(t, domain.EventComment, narrative.Kind)
	assert.Equal(t, "0", narrative.Before)
	assert.Equal(t, "2", narrative.After)
	assert.Equal(t, domain.SystemNickname, narrative.Nickname)
	assert.Equal(t, domain.FormatTimestamp(detectionTime), narrative.Timestamp)
}

func TestReconcileSkipsCommentNarrativeWhenCountsMatch(t *testing.T) {
	article := domain.Article{ID: "100", Title: "A", CommentCount: 2}

	store := newMemStore()
	log := &memLog{}
	source := &commentSource{comments: map[string][]domain.Comment{"100": comments(2)}}
	r := newTestReconciler(source, store, log)

	require.NoError(t, r.Reconcile(context.Background(), []domain.Article{article}, nil))
	require.Len(t, log.events, 1)
	assert.Equal(t, domain.EventNewPost, log.events[0].Kind)
}

func TestReconcileArchivesNewInNumericIDOrder(t *testing.T) {
	// API는 최신순으로 내려주지만 보관과 로그는 오래된 글부터
	collected := []domain.Article{
		{ID: "305", Title: "셋"},
		{ID: "17", Title: "하나"},
		{ID: "204", Title: "둘"},
	}

	store := newMemStore()
	log := &memLog{}
	r := newTestReconciler(&commentSource{}, store, log)

	require.NoError(t, r.Reconcile(context.Background(), collected, nil))
	require.Len(t, log.events, 3)

	var order []string
	for _, ev := range log.events {
		order = append(order, ev.ArticleID)
	}
	assert.Equal(t, []string{"17", "204", "305"}, order)
}

func TestReconcileEmitsOneEventPerDriftedCounter(t *testing.T) {
	prev := domain.ArticleSnapshot{
		Article:  domain.Article{ID: "100", Title: "A", Upvotes: 3, CommentCount: 2, ScrapCount: 1},
		StoredAt: detectionTime.Add(-time.Hour),
	}
	existing := map[string]domain.ArticleSnapshot{"100": prev}

	cur := prev.Article
	cur.Upvotes = 5

	store := newMemStore()
	store.snaps["100"] = prev
	log := &memLog{}
	r := newTestReconciler(&commentSource{}, store, log)

	require.NoError(t, r.Reconcile(context.Background(), []domain.Article{cur}, existing))

	assert.Equal(t, 0, store.puts)
	assert.Equal(t, 1, store.updates)
	require.Len(t, log.events, 1)
	assert.Equal(t, domain.EventUpvote, log.events[0].Kind)
	assert.Equal(t, "3", log.events[0].Before)
	assert.Equal(t, "5", log.events[0].After)

	snap := store.snaps["100"]
	assert.Equal(t, 5, snap.Upvotes)
	assert.Equal(t, 2, snap.CommentCount)
	assert.Equal(t, detectionTime, snap.UpdatedAt)
}

func TestReconcileAllThreeCountersDrift(t *testing.T) {
	prev := domain.ArticleSnapshot{
		Article: domain.Article{ID: "100", Upvotes: 1, CommentCount: 1, ScrapCount: 1},
	}
	existing := map[string]domain.ArticleSnapshot{"100": prev}

	cur := domain.Article{ID: "100", Upvotes: 2, CommentCount: 3, ScrapCount: 0}

	store := newMemStore()
	store.snaps["100"] = prev
	log := &memLog{}
	r := newTestReconciler(&commentSource{}, store, log)

	require.NoError(t, r.Reconcile(context.Background(), []domain.Article{cur}, existing))

	assert.Equal(t, 3, store.updates)
	require.Len(t, log.events, 3)

	kinds := make(map[domain.EventKind]bool)
	for _, ev := range log.events {
		kinds[ev.Kind] = true
		assert.Equal(t, domain.FormatTimestamp(detectionTime), ev.Timestamp)
	}
	assert.True(t, kinds[domain.EventUpvote])
	assert.True(t, kinds[domain.EventComment])
	assert.True(t, kinds[domain.EventScrap])
}

func TestReconcileCounterDecreaseStillEmits(t *testing.T) {
	prev := domain.ArticleSnapshot{Article: domain.Article{ID: "100", Upvotes: 5}}
	existing := map[string]domain.ArticleSnapshot{"100": prev}

	store := newMemStore()
	store.snaps["100"] = prev
	log := &memLog{}
	r := newTestReconciler(&commentSource{}, store, log)

	cur := domain.Article{ID: "100", Upvotes: 3}
	require.NoError(t, r.Reconcile(context.Background(), []domain.Article{cur}, existing))

	require.Len(t, log.events, 1)
	assert.Equal(t, "5", log.events[0].Before)
	assert.Equal(t, "3", log.events[0].After)
}

func TestReconcileIsIdempotent(t *testing.T) {
	article := domain.Article{ID: "100", Title: "A", Upvotes: 4, CommentCount: 1, ScrapCount: 0}

	store := newMemStore()
	log := &memLog{}
	source := &commentSource{comments: map[string][]domain.Comment{"100": comments(1)}}
	r := newTestReconciler(source, store, log)

	collected := []domain.Article{article}
	require.NoError(t, r.Reconcile(context.Background(), collected, nil))

	firstPuts, firstUpdates, firstEvents := store.puts, store.updates, len(log.events)

	// 외부 변화 없이 같은 수집 결과로 다시 실행
	existing, err := store.GetAll(context.Background())
	require.NoError(t, err)
	require.NoError(t, r.Reconcile(context.Background(), collected, existing))

	assert.Equal(t, firstPuts, store.puts)
	assert.Equal(t, firstUpdates, store.updates)
	assert.Len(t, log.events, firstEvents)
}

func TestReconcileIsolatesCommentFailurePerArticle(t *testing.T) {
	collected := []domain.Article{
		{ID: "1", Title: "실패할 글"},
		{ID: "2", Title: "성공할 글"},
	}

	store := newMemStore()
	log := &memLog{}
	source := &commentSource{
		comments: map[string][]domain.Comment{"2": comments(3)},
		errs:     map[string]error{"1": fmt.Errorf("comment fetch: %w", ports.ErrTransport)},
	}
	r := newTestReconciler(source, store, log)

	// 한 글의 댓글 실패는 사이클을 깨뜨리지 않음
	require.NoError(t, r.Reconcile(context.Background(), collected, nil))

	assert.Equal(t, 2, store.puts)

	var newPosts, narratives int
	for _, ev := range log.events {
		switch ev.Kind {
		case domain.EventNewPost:
			newPosts++
		case domain.EventComment:
			narratives++
			assert.Equal(t, "2", ev.ArticleID)
		}
	}
	assert.Equal(t, 2, newPosts)
	assert.Equal(t, 1, narratives)
}

// failingNotifier는 알림 실패가 사이클에 영향을 주지 않는지 확인합니다.
type failingNotifier struct{ calls int }

func (n *failingNotifier) NotifyNewPost(ctx context.Context, a domain.Article) error {
	n.calls++
	return fmt.Errorf("telegram unreachable")
}

func TestReconcileNotifierFailureIsIgnored(t *testing.T) {
	store := newMemStore()
	log := &memLog{}
	r := newTestReconciler(&commentSource{}, store, log)
	notifier := &failingNotifier{}
	r.Notifier = notifier

	require.NoError(t, r.Reconcile(context.Background(), []domain.Article{{ID: "1"}}, nil))
	assert.Equal(t, 1, notifier.calls)
	assert.Equal(t, 1, store.puts)
	assert.Len(t, log.events, 1)
}
