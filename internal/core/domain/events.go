package domain

import (
	"fmt"
	"strconv"
	"time"
)

// EventKind는 변경 로그 항목의 종류입니다. 저장 값은 로그 뷰어가 그대로
// 표시하는 한국어 라벨입니다.
type EventKind string

const (
	EventNewPost EventKind = "글 신규 작성"
	EventUpvote  EventKind = "좋아요"
	EventComment EventKind = "댓글"
	EventScrap   EventKind = "스크랩"
)

// Placeholder는 신규 작성 이벤트의 before/after 자리에 들어가는 값입니다.
const Placeholder = "-"

const (
	AnonymousNickname = "익명"
	SystemNickname    = "시스템"
)

// ChangeEvent는 변경 로그 한 줄입니다. 한 번 기록되면 수정되지 않으며,
// 조회 시 정렬 기준은 저장 순서가 아니라 Timestamp입니다(백필 중에는
// 감지 순서와 원본 작성 순서가 다를 수 있음).
type ChangeEvent struct {
	Timestamp string    `json:"timestamp"` // MM.DD | HH:MM'SS
	Kind      EventKind `json:"type"`
	Title     string    `json:"details"`
	Content   string    `json:"content,omitempty"`
	Nickname  string    `json:"user_nickname,omitempty"`
	Before    string    `json:"before"`
	After     string    `json:"after"`
	ArticleID string    `json:"article_id"`
	CommentID string    `json:"comment_id,omitempty"`
}

// FormatTimestamp는 변경 로그용 표시 시각을 만듭니다.
func FormatTimestamp(t time.Time) string {
	return t.Format("01.02 | 15:04'05")
}

// Counter는 게시글이 갖는 세 가지 수치 카운터를 구분합니다.
type Counter int

const (
	CounterUpvotes Counter = iota
	CounterComments
	CounterScraps
)

// Column은 저장소 컬럼/필드 이름입니다. 원본 데이터와의 호환을 위해
// 업스트림 속성 이름을 그대로 씁니다.
func (c Counter) Column() string {
	switch c {
	case CounterUpvotes:
		return "posvote"
	case CounterComments:
		return "comment"
	case CounterScraps:
		return "scrap_count"
	}
	panic(fmt.Sprintf("unknown counter %d", c))
}

// EventKind는 카운터 변동에 대응하는 로그 종류입니다.
func (c Counter) EventKind() EventKind {
	switch c {
	case CounterUpvotes:
		return EventUpvote
	case CounterComments:
		return EventComment
	case CounterScraps:
		return EventScrap
	}
	panic(fmt.Sprintf("unknown counter %d", c))
}

func (c Counter) of(a Article) int {
	switch c {
	case CounterUpvotes:
		return a.Upvotes
	case CounterComments:
		return a.CommentCount
	case CounterScraps:
		return a.ScrapCount
	}
	panic(fmt.Sprintf("unknown counter %d", c))
}

// CounterUpdate는 스냅샷 한 건에 대한 단일 카운터 쓰기입니다.
// 자유형 필드명 대신 닫힌 집합으로 표현해 카운터와 로그 종류의 대응을
// 컴파일 타임에 고정합니다.
type CounterUpdate struct {
	Counter Counter
	Before  int
	Value   int
}

// Apply는 스냅샷에 새 카운터 값을 반영합니다. updated_at 갱신은 저장소
// 구현의 몫입니다.
func (u CounterUpdate) Apply(a *Article) {
	switch u.Counter {
	case CounterUpvotes:
		a.Upvotes = u.Value
	case CounterComments:
		a.CommentCount = u.Value
	case CounterScraps:
		a.ScrapCount = u.Value
	}
}

// Event는 카운터 변동 이벤트를 만듭니다. 카운터당 정확히 한 건입니다.
func (u CounterUpdate) Event(timestamp string, a Article) ChangeEvent {
	return ChangeEvent{
		Timestamp: timestamp,
		Kind:      u.Counter.EventKind(),
		Title:     a.Title,
		Before:    strconv.Itoa(u.Before),
		After:     strconv.Itoa(u.Value),
		ArticleID: a.ID,
	}
}

// DiffCounters는 저장된 값과 새로 수집한 값을 카운터별로 비교해 달라진
// 것만 돌려줍니다. 비교는 정확한 동치이며 감소도 증가와 동일하게
// 변동으로 취급합니다.
func DiffCounters(prev, cur Article) []CounterUpdate {
	var updates []CounterUpdate
	for _, c := range []Counter{CounterUpvotes, CounterComments, CounterScraps} {
		before, after := c.of(prev), c.of(cur)
		if before != after {
			updates = append(updates, CounterUpdate{Counter: c, Before: before, Value: after})
		}
	}
	return updates
}
