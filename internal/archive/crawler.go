package archive

import (
	"context"
	"fmt"

	"github.com/AntarcBall/every-archive/internal/core/ports"
	"go.uber.org/zap"
)

// Crawler는 수집-비교-보관 사이클 하나를 끝까지 돌립니다.
// 같은 게시판에 대해 동시에 두 사이클을 돌리면 같은 "이전" 스냅샷을 두 번
// 관측해 이벤트가 중복될 수 있으므로, 호출자는 GuardedRunner 등으로
// 실행을 직렬화해야 합니다.
type Crawler struct {
	Collector  *Collector
	Reconciler *Reconciler
	Store      ports.SnapshotStore
	Lookback   int
}

func NewCrawler(collector *Collector, reconciler *Reconciler, store ports.SnapshotStore, lookback int) *Crawler {
	return &Crawler{Collector: collector, Reconciler: reconciler, Store: store, Lookback: lookback}
}

// Run은 사이클 한 번입니다. 어느 단계에서든 잡히지 않은 실패가 나오면
// 사이클을 중단하고 에러를 전파하며, 이미 커밋된 쓰기는 되돌리지
// 않습니다(전부-아니면-전무 대신 전진을 택함).
func (c *Crawler) Run(ctx context.Context) error {
	zap.S().Infow("크롤링 시작", "lookback", c.Lookback)

	latest, err := c.Collector.CollectLatest(ctx, c.Lookback)
	if err != nil {
		return fmt.Errorf("collect latest articles: %w", err)
	}
	zap.S().Infof("최신 글 %d건 수집", len(latest))

	existing, err := c.Store.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("load stored snapshots: %w", err)
	}
	zap.S().Infof("저장된 글 %d건 조회", len(existing))

	if err := c.Reconciler.Reconcile(ctx, latest, existing); err != nil {
		return err
	}

	zap.S().Info("크롤링 및 아카이빙 완료")
	return nil
}
