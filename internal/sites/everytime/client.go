package everytime

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/AntarcBall/every-archive/internal/config"
	"github.com/AntarcBall/every-archive/internal/core/domain"
	"github.com/AntarcBall/every-archive/internal/core/ports"
	"go.uber.org/zap"
)

const (
	articleListPath = "/find/board/article/list"
	commentListPath = "/find/board/comment/list"
)

// Client는 에브리타임 게시판 XML API를 위한 어댑터입니다.
// ports.Source 인터페이스를 구현하며 요청 구성, XML 디코딩, 기본값 치환을
// 이 경계 안에서 끝냅니다.
type Client struct {
	BaseURL    string
	BoardID    string
	HTTPClient *http.Client

	origin    string
	referer   string
	userAgent string
	cookie    string
	retry     config.RetryConfig
	now       func() time.Time
}

func NewClient(cfg *config.Config) *Client {
	return &Client{
		BaseURL:    cfg.Source.BaseURL,
		BoardID:    cfg.BoardID,
		HTTPClient: &http.Client{Timeout: cfg.Source.RequestTimeout},
		origin:     cfg.Source.Origin,
		referer:    cfg.Source.Referer,
		userAgent:  cfg.Source.UserAgent,
		cookie:     cfg.Source.Cookie,
		retry:      cfg.Retry,
		now:        time.Now,
	}
}

var _ ports.Source = (*Client)(nil)

// FetchPage implements ports.Source.
func (c *Client) FetchPage(ctx context.Context, offset, limit int) ([]domain.Article, error) {
	form := url.Values{
		"id":        {c.BoardID},
		"limit_num": {strconv.Itoa(limit)},
		"start_num": {strconv.Itoa(offset)},
		"moiminfo":  {"true"},
	}

	body, err := c.postForm(ctx, articleListPath, form)
	if err != nil {
		return nil, err
	}

	var res articleListResponse
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: article list: %v", ports.ErrParse, err)
	}

	list := res.Articles
	// 업스트림이 요청보다 많이 내려줘도 요청한 만큼만 취합니다.
	if len(list) > limit {
		list = list[:limit]
	}

	articles := make([]domain.Article, 0, len(list))
	for _, a := range list {
		if a.ID == "" {
			continue
		}
		articles = append(articles, toArticle(a))
	}
	return articles, nil
}

// FetchComments implements ports.Source. limit_num=-1은 전체 댓글 요청입니다.
func (c *Client) FetchComments(ctx context.Context, articleID string) ([]domain.Comment, error) {
	form := url.Values{
		"id":          {articleID},
		"limit_num":   {"-1"},
		"articleInfo": {"true"},
	}

	body, err := c.postForm(ctx, commentListPath, form)
	if err != nil {
		return nil, err
	}

	var res commentListResponse
	if err := xml.Unmarshal(body, &res); err != nil {
		return nil, fmt.Errorf("%w: comment list for article %s: %v", ports.ErrParse, articleID, err)
	}

	fetchedAt := c.now()
	comments := make([]domain.Comment, 0, len(res.Comments))
	for _, cm := range res.Comments {
		if cm.ID == "" {
			continue
		}
		comments = append(comments, toComment(cm, fetchedAt))
	}
	return comments, nil
}

// postForm은 form-encoded POST 한 번을 보냅니다. 재시도가 켜져 있으면
// 전송 실패에 한해 고정 백오프로 다시 시도합니다. 파싱 실패는 재시도
// 대상이 아닙니다.
func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	attempts := 1
	if c.retry.Enabled {
		attempts = c.retry.Attempts
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			zap.S().Warnw("소스 요청 재시도", "path", path, "attempt", i+1, "error", lastErr)
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ports.ErrTransport, ctx.Err())
			case <-time.After(c.retry.Backoff):
			}
		}

		body, err := c.postFormOnce(ctx, path, form)
		if err == nil {
			return body, nil
		}
		if !errors.Is(err, ports.ErrTransport) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (c *Client) postFormOnce(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrTransport, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Origin", c.origin)
	req.Header.Set("Referer", c.referer)
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", ports.ErrTransport, path, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrTransport, err)
	}
	return body, nil
}

func toArticle(a apiArticle) domain.Article {
	return domain.Article{
		ID:           a.ID,
		Title:        a.Title,
		Text:         a.Text,
		CreatedAt:    parseTime(a.CreatedAt),
		Upvotes:      atoiOrZero(a.Posvote),
		CommentCount: atoiOrZero(a.Comment),
		ScrapCount:   atoiOrZero(a.ScrapCount),
	}
}

func toComment(cm apiComment, fetchedAt time.Time) domain.Comment {
	nickname := cm.UserNickname
	if nickname == "" {
		nickname = domain.AnonymousNickname
	}
	createdAt := parseTime(cm.CreatedAt)
	if createdAt.IsZero() {
		// 업스트림이 댓글 작성 시각을 보장하지 않으므로 조회 시각으로 대체
		createdAt = fetchedAt
	}
	return domain.Comment{
		ID:        cm.ID,
		Text:      cm.Text,
		Nickname:  nickname,
		CreatedAt: createdAt,
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

var timeLayouts = []string{
	"2006/01/02 15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseTime(s string) time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return t
		}
	}
	return time.Time{}
}
