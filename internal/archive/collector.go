package archive

import (
	"context"
	"fmt"

	"github.com/AntarcBall/every-archive/internal/core/domain"
	"github.com/AntarcBall/every-archive/internal/core/ports"
)

// Collector는 원격 소스를 페이지 단위로 훑어 최신 글 목록을 만듭니다.
type Collector struct {
	Source   ports.Source
	PageSize int
}

func NewCollector(source ports.Source, pageSize int) *Collector {
	return &Collector{Source: source, PageSize: pageSize}
}

// CollectLatest는 ID 기준으로 중복을 제거한 최신 글을 최대 maxItems개까지
// 모읍니다. 종료 조건은 세 가지입니다: 빈 페이지(소스 소진), maxItems 도달,
// 요청보다 짧은 페이지(마지막 페이지 추정 휴리스틱 — 업스트림이 짧은
// 페이지를 채워 보내는 경우 한 페이지 일찍 멈출 수 있으나 왕복 한 번을
// 아끼는 쪽을 택함). 소스 실패는 즉시 전파되어 수집 전체가 중단됩니다.
func (c *Collector) CollectLatest(ctx context.Context, maxItems int) ([]domain.Article, error) {
	var collected []domain.Article
	seen := make(map[string]struct{})
	start := 0

	for len(collected) < maxItems {
		want := c.PageSize
		if remain := maxItems - len(collected); remain < want {
			want = remain
		}

		page, err := c.Source.FetchPage(ctx, start, want)
		if err != nil {
			return nil, fmt.Errorf("fetch page at offset %d: %w", start, err)
		}
		if len(page) == 0 {
			break
		}

		for _, a := range page {
			if _, ok := seen[a.ID]; ok {
				continue
			}
			seen[a.ID] = struct{}{}
			collected = append(collected, a)
		}

		// 중복이 섞여 있어도 커서는 페이지 원본 길이만큼 전진시켜
		// 무한 루프를 막습니다.
		start += len(page)
		if len(page) < want {
			break // 마지막 페이지 추정
		}
	}

	return collected, nil
}
