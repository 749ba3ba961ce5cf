package archive

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/AntarcBall/every-archive/internal/core/domain"
	"github.com/AntarcBall/every-archive/internal/core/ports"
	"go.uber.org/zap"
)

// Reconciler는 수집한 글 목록을 저장된 스냅샷과 맞춰보고, 차이를 반영하는
// 최소한의 쓰기와 변경 로그만 만들어 냅니다. 비교 결과가 모든 쓰기와
// 로그의 유일한 관문이므로, 변화가 없으면 같은 입력으로 몇 번을 돌려도
// 아무것도 쓰지 않습니다.
type Reconciler struct {
	Source ports.Source
	Store  ports.SnapshotStore
	Log    ports.ChangeLog
	// Notifier는 nil일 수 있습니다. 실패는 기록만 하고 무시합니다.
	Notifier ports.Notifier
	// Clock은 테스트에서 감지 시각을 고정하기 위한 구멍입니다.
	Clock func() time.Time
}

func NewReconciler(source ports.Source, store ports.SnapshotStore, log ports.ChangeLog) *Reconciler {
	return &Reconciler{Source: source, Store: store, Log: log, Clock: time.Now}
}

// Reconcile은 수집 결과를 신규/기존으로 나눠 각각 처리합니다.
// 신규 글은 숫자 ID 오름차순으로 보관해, 최신순으로 내려오는 API를
// 상대로도 변경 로그가 원본 작성 순서에 가깝게 쌓이도록 합니다.
func (r *Reconciler) Reconcile(ctx context.Context, collected []domain.Article, existing map[string]domain.ArticleSnapshot) error {
	var fresh []domain.Article
	for _, a := range collected {
		if _, ok := existing[a.ID]; !ok {
			fresh = append(fresh, a)
		}
	}
	zap.S().Infof("신규 글 %d건 감지", len(fresh))

	sort.Slice(fresh, func(i, j int) bool {
		return numericID(fresh[i].ID) < numericID(fresh[j].ID)
	})

	for _, a := range fresh {
		if err := r.archiveNew(ctx, a); err != nil {
			return err
		}
	}

	for _, a := range collected {
		prev, ok := existing[a.ID]
		if !ok {
			continue
		}
		if err := r.applyDrift(ctx, a, prev); err != nil {
			return err
		}
	}
	return nil
}

// archiveNew는 글 하나를 처음 보관합니다. 스냅샷과 신규 작성 이벤트까지가
// 필수이고, 댓글 요약은 best-effort입니다. 댓글 쪽 실패는 이 글 경계에서
// 잡아서 기록만 하고 다음 글로 넘어갑니다.
func (r *Reconciler) archiveNew(ctx context.Context, a domain.Article) error {
	now := r.Clock()
	snap := domain.ArticleSnapshot{Article: a, StoredAt: now, UpdatedAt: now}
	if err := r.Store.Put(ctx, snap); err != nil {
		return fmt.Errorf("save new article %s: %w", a.ID, err)
	}
	zap.S().Infof("신규 글 저장: %s", a.ID)

	// 신규 작성 이벤트의 timestamp는 감지 시각이 아니라 원본 작성 시각.
	// 백필 중에도 사람이 읽는 타임라인이 실제 작성 순서를 따라가게 합니다.
	origin := a.CreatedAt
	if origin.IsZero() {
		origin = now
	}
	ev := domain.ChangeEvent{
		Timestamp: domain.FormatTimestamp(origin),
		Kind:      domain.EventNewPost,
		Title:     a.Title,
		Content:   a.Text,
		Nickname:  domain.AnonymousNickname,
		Before:    domain.Placeholder,
		After:     domain.Placeholder,
		ArticleID: a.ID,
	}
	if err := r.Log.Append(ctx, ev); err != nil {
		return fmt.Errorf("log new article %s: %w", a.ID, err)
	}

	if r.Notifier != nil {
		if err := r.Notifier.NotifyNewPost(ctx, a); err != nil {
			zap.S().Warnw("신규 글 알림 실패", "article_id", a.ID, "error", err)
		}
	}

	if err := r.logCommentNarrative(ctx, a); err != nil {
		zap.S().Errorw("댓글 요약 기록 실패", "article_id", a.ID, "error", err)
	}
	return nil
}

// logCommentNarrative는 방금 보관한 글의 현재 댓글 수를 조회해, 저장된
// 댓글 카운터와 다르면 요약 이벤트 한 건을 남깁니다.
func (r *Reconciler) logCommentNarrative(ctx context.Context, a domain.Article) error {
	comments, err := r.Source.FetchComments(ctx, a.ID)
	if err != nil {
		return err
	}

	stored := 0
	if snap, ok, err := r.Store.Get(ctx, a.ID); err != nil {
		return err
	} else if ok {
		stored = snap.CommentCount
	}

	current := len(comments)
	if stored == current {
		return nil
	}

	ev := domain.ChangeEvent{
		Timestamp: domain.FormatTimestamp(r.Clock()),
		Kind:      domain.EventComment,
		Title:     a.Title,
		Content:   fmt.Sprintf("총 댓글 수: %d -> %d", stored, current),
		Nickname:  domain.SystemNickname,
		Before:    strconv.Itoa(stored),
		After:     strconv.Itoa(current),
		ArticleID: a.ID,
	}
	return r.Log.Append(ctx, ev)
}

// applyDrift는 기존 글의 세 카운터를 독립적으로 비교해, 달라진 카운터마다
// 단일 필드 쓰기와 이벤트 한 건을 만듭니다. 같은 감지 시각을 공유하며
// 카운터 간 순서는 의미가 없습니다.
func (r *Reconciler) applyDrift(ctx context.Context, a domain.Article, prev domain.ArticleSnapshot) error {
	updates := domain.DiffCounters(prev.Article, a)
	if len(updates) == 0 {
		return nil
	}

	now := r.Clock()
	timestamp := domain.FormatTimestamp(now)
	for _, upd := range updates {
		if err := r.Store.ApplyUpdate(ctx, a.ID, upd, now); err != nil {
			return fmt.Errorf("update %s of article %s: %w", upd.Counter.Column(), a.ID, err)
		}
		zap.S().Infof("글 %s %s 변동: %d -> %d", a.ID, upd.Counter.Column(), upd.Before, upd.Value)

		if err := r.Log.Append(ctx, upd.Event(timestamp, a)); err != nil {
			return fmt.Errorf("log %s change of article %s: %w", upd.Counter.Column(), a.ID, err)
		}
	}
	return nil
}

// numericID는 정렬용 숫자 값입니다. 숫자가 아닌 ID는 0으로 취급해
// 앞쪽에 모읍니다.
func numericID(id string) int64 {
	n, _ := strconv.ParseInt(id, 10, 64)
	return n
}
