package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/AntarcBall/every-archive/internal/core/domain"
	"github.com/AntarcBall/every-archive/internal/core/ports"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore는 스냅샷 보관소와 변경 로그를 한 데이터베이스에 담습니다.
// 카운터 컬럼 이름(posvote, comment, scrap_count)은 업스트림 속성 이름을
// 그대로 따릅니다.
type PostgresStore struct {
	Pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, connStr string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		return nil, fmt.Errorf("unable to connect to database: %v", err)
	}

	s := &PostgresStore{Pool: pool}
	if err := s.initSchema(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

var (
	_ ports.SnapshotStore = (*PostgresStore)(nil)
	_ ports.ChangeLog     = (*PostgresStore)(nil)
)

func (s *PostgresStore) initSchema(ctx context.Context) error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS articles (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL DEFAULT '',
			text TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ,
			posvote INT NOT NULL DEFAULT 0,
			comment INT NOT NULL DEFAULT 0,
			scrap_count INT NOT NULL DEFAULT 0,
			stored_at TIMESTAMPTZ NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS change_logs (
			id BIGSERIAL PRIMARY KEY,
			timestamp TEXT NOT NULL,
			type TEXT NOT NULL,
			details TEXT NOT NULL DEFAULT '',
			content TEXT NOT NULL DEFAULT '',
			user_nickname TEXT NOT NULL DEFAULT '',
			before_value TEXT NOT NULL DEFAULT '',
			after_value TEXT NOT NULL DEFAULT '',
			article_id TEXT NOT NULL,
			comment_id TEXT NOT NULL DEFAULT ''
		)`,
	}

	for _, q := range queries {
		if _, err := s.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("%w: init schema: %v", ports.ErrStore, err)
		}
	}
	return nil
}

func (s *PostgresStore) GetAll(ctx context.Context) (map[string]domain.ArticleSnapshot, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT id, title, text, created_at, posvote, comment, scrap_count, stored_at, updated_at FROM articles`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	defer rows.Close()

	snaps := make(map[string]domain.ArticleSnapshot)
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrStore, err)
		}
		snaps[snap.ID] = snap
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	return snaps, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (domain.ArticleSnapshot, bool, error) {
	row := s.Pool.QueryRow(ctx,
		`SELECT id, title, text, created_at, posvote, comment, scrap_count, stored_at, updated_at FROM articles WHERE id = $1`, id)
	snap, err := scanSnapshot(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ArticleSnapshot{}, false, nil
	}
	if err != nil {
		return domain.ArticleSnapshot{}, false, fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	return snap, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, snap domain.ArticleSnapshot) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO articles (id, title, text, created_at, posvote, comment, scrap_count, stored_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		 title = $2, text = $3, created_at = $4, posvote = $5, comment = $6, scrap_count = $7,
		 stored_at = $8, updated_at = $9`,
		snap.ID, snap.Title, snap.Text, nullableTime(snap.CreatedAt),
		snap.Upvotes, snap.CommentCount, snap.ScrapCount, snap.StoredAt, snap.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: put article %s: %v", ports.ErrStore, snap.ID, err)
	}
	return nil
}

func (s *PostgresStore) ApplyUpdate(ctx context.Context, id string, upd domain.CounterUpdate, updatedAt time.Time) error {
	// Column()은 닫힌 집합이라 여기 들어가는 식별자는 세 가지뿐입니다.
	q := fmt.Sprintf(`UPDATE articles SET %s = $1, updated_at = $2 WHERE id = $3`, upd.Counter.Column())
	_, err := s.Pool.Exec(ctx, q, upd.Value, updatedAt, id)
	if err != nil {
		return fmt.Errorf("%w: update %s of article %s: %v", ports.ErrStore, upd.Counter.Column(), id, err)
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, ev domain.ChangeEvent) error {
	_, err := s.Pool.Exec(ctx,
		`INSERT INTO change_logs (timestamp, type, details, content, user_nickname, before_value, after_value, article_id, comment_id)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		ev.Timestamp, string(ev.Kind), ev.Title, ev.Content, ev.Nickname,
		ev.Before, ev.After, ev.ArticleID, ev.CommentID)
	if err != nil {
		return fmt.Errorf("%w: append change log: %v", ports.ErrStore, err)
	}
	return nil
}

func (s *PostgresStore) ListRecent(ctx context.Context, limit int) ([]domain.ChangeEvent, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT timestamp, type, details, content, user_nickname, before_value, after_value, article_id, comment_id
		 FROM change_logs ORDER BY timestamp DESC, id DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	defer rows.Close()

	var events []domain.ChangeEvent
	for rows.Next() {
		var ev domain.ChangeEvent
		var kind string
		if err := rows.Scan(&ev.Timestamp, &kind, &ev.Title, &ev.Content, &ev.Nickname,
			&ev.Before, &ev.After, &ev.ArticleID, &ev.CommentID); err != nil {
			return nil, fmt.Errorf("%w: %v", ports.ErrStore, err)
		}
		ev.Kind = domain.EventKind(kind)
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrStore, err)
	}
	return events, nil
}

// Reset은 두 테이블을 비웁니다. 운영용 초기화 도구에서만 씁니다.
func (s *PostgresStore) Reset(ctx context.Context) error {
	for _, q := range []string{`DELETE FROM change_logs`, `DELETE FROM articles`} {
		if _, err := s.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("%w: reset: %v", ports.ErrStore, err)
		}
	}
	return nil
}

func scanSnapshot(row pgx.Row) (domain.ArticleSnapshot, error) {
	var snap domain.ArticleSnapshot
	var createdAt *time.Time
	err := row.Scan(&snap.ID, &snap.Title, &snap.Text, &createdAt,
		&snap.Upvotes, &snap.CommentCount, &snap.ScrapCount, &snap.StoredAt, &snap.UpdatedAt)
	if err != nil {
		return domain.ArticleSnapshot{}, err
	}
	if createdAt != nil {
		snap.CreatedAt = *createdAt
	}
	return snap, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
