package domain

import "time"

// Article은 에브리타임 게시판 API가 내려주는 게시글 한 건입니다.
// ID는 게시판 안에서 유일하며 재사용되지 않는 불투명 문자열로,
// 중복 제거와 저장소 키에 그대로 사용합니다.
type Article struct {
	ID           string
	Title        string
	Text         string
	CreatedAt    time.Time // 원본 작성 시각. 업스트림 파싱 실패 시 zero value.
	Upvotes      int
	CommentCount int
	ScrapCount   int
}

// Comment는 게시글에 달린 댓글 한 건입니다.
// Nickname과 CreatedAt의 기본값 치환은 어댑터 경계에서 끝나 있어야 합니다.
type Comment struct {
	ID        string
	Text      string
	Nickname  string
	CreatedAt time.Time
}

// ArticleSnapshot은 저장소에 보관되는 게시글의 마지막 관측 상태입니다.
// StoredAt은 최초 보관 시 한 번만 기록되고, UpdatedAt은 카운터가 바뀔 때마다
// 갱신됩니다. 쓰기는 아카이버(Reconciler)만 수행합니다.
type ArticleSnapshot struct {
	Article
	StoredAt  time.Time
	UpdatedAt time.Time
}
