package archive

import (
	"context"
	"fmt"
	"testing"

	"github.com/AntarcBall/every-archive/internal/core/domain"
	"github.com/AntarcBall/every-archive/internal/core/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pagedSource는 호출 순서대로 미리 짜 둔 페이지를 돌려줍니다.
type pagedSource struct {
	pages  [][]domain.Article
	failAt int // 1부터 세는 호출 번호, 0이면 실패 없음
	calls  []pageCall
}

type pageCall struct{ offset, limit int }

func (s *pagedSource) FetchPage(ctx context.Context, offset, limit int) ([]domain.Article, error) {
	s.calls = append(s.calls, pageCall{offset, limit})
	if s.failAt == len(s.calls) {
		return nil, fmt.Errorf("fake page failure: %w", ports.ErrTransport)
	}
	if len(s.calls) > len(s.pages) {
		return nil, nil
	}
	return s.pages[len(s.calls)-1], nil
}

func (s *pagedSource) FetchComments(ctx context.Context, articleID string) ([]domain.Comment, error) {
	return nil, nil
}

func articles(ids ...string) []domain.Article {
	list := make([]domain.Article, len(ids))
	for i, id := range ids {
		list[i] = domain.Article{ID: id, Title: "글 " + id}
	}
	return list
}

func TestCollectLatestRespectsBound(t *testing.T) {
	source := &pagedSource{pages: [][]domain.Article{
		articles("10", "9", "8", "7", "6"),
		articles("5", "4", "3"),
	}}
	collector := NewCollector(source, 5)

	collected, err := collector.CollectLatest(context.Background(), 8)
	require.NoError(t, err)
	assert.Len(t, collected, 8)

	// 남은 수요만큼만 요청
	assert.Equal(t, []pageCall{{0, 5}, {5, 3}}, source.calls)

	seen := make(map[string]bool)
	for _, a := range collected {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}
}

func TestCollectLatestDeduplicatesAcrossPages(t *testing.T) {
	// 수집 도중 새 글이 올라와 피드가 밀리면 페이지가 겹칩니다.
	source := &pagedSource{pages: [][]domain.Article{
		articles("10", "9", "8", "7", "6"),
		articles("6", "5", "4", "3", "2"),
	}}
	collector := NewCollector(source, 5)

	collected, err := collector.CollectLatest(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, collected, 9)

	// 중복이 있어도 커서는 페이지 원본 길이만큼 전진
	require.Len(t, source.calls, 3)
	assert.Equal(t, 10, source.calls[2].offset)
}

func TestCollectLatestStopsOnShortPage(t *testing.T) {
	source := &pagedSource{pages: [][]domain.Article{
		articles("7", "6", "5", "4", "3"),
		articles("2", "1"),
	}}
	collector := NewCollector(source, 5)

	collected, err := collector.CollectLatest(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, collected, 7)
	assert.Len(t, source.calls, 2)
}

func TestCollectLatestStopsOnEmptyPage(t *testing.T) {
	source := &pagedSource{pages: [][]domain.Article{
		articles("3", "2", "1"),
	}}
	// 페이지 크기 3: 꽉 찬 페이지라 계속 가다가 빈 페이지에서 멈춤
	collector := NewCollector(source, 3)

	collected, err := collector.CollectLatest(context.Background(), 50)
	require.NoError(t, err)
	assert.Len(t, collected, 3)
	assert.Len(t, source.calls, 2)
}

func TestCollectLatestPropagatesSourceFailure(t *testing.T) {
	source := &pagedSource{
		pages:  [][]domain.Article{articles("5", "4", "3", "2", "1")},
		failAt: 2,
	}
	collector := NewCollector(source, 5)

	collected, err := collector.CollectLatest(context.Background(), 50)
	require.Error(t, err)
	assert.ErrorIs(t, err, ports.ErrTransport)
	assert.Nil(t, collected)
	assert.Len(t, source.calls, 2)
}
