package server

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/AntarcBall/every-archive/internal/core/ports"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

//go:embed logs.html
var viewerPage []byte

// CycleRunner는 사이클 트리거 표면이 필요로 하는 만큼만 좁힌 계약입니다.
type CycleRunner interface {
	TryRun(ctx context.Context) (bool, error)
}

// Server는 수동 트리거와 로그 뷰어를 노출합니다.
// GET /crawl — 사이클 한 번 실행 (실행 중이면 409)
// GET /logs  — 최근 변경 로그 100건, 최신순 JSON
// GET /      — 로그 뷰어 페이지
type Server struct {
	router *gin.Engine
	runner CycleRunner
	log    ports.ChangeLog
}

const recentLogLimit = 100

func New(runner CycleRunner, changeLog ports.ChangeLog) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(ginzap.Ginzap(zap.L(), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(zap.L(), true))

	s := &Server{router: router, runner: runner, log: changeLog}

	router.GET("/", s.viewerHandler)
	router.GET("/crawl", s.crawlHandler)
	router.GET("/logs", s.logsHandler)
	return s
}

func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}

// Handler는 테스트에서 httptest로 감쌀 때 씁니다.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) viewerHandler(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", viewerPage)
}

func (s *Server) crawlHandler(c *gin.Context) {
	ran, err := s.runner.TryRun(c.Request.Context())
	if !ran {
		c.String(http.StatusConflict, "Crawling already in progress")
		return
	}
	if err != nil {
		zap.S().Errorw("크롤링 실패", "error", err)
		c.String(http.StatusInternalServerError, "Crawling failed")
		return
	}
	c.String(http.StatusOK, "Crawling and archiving completed")
}

func (s *Server) logsHandler(c *gin.Context) {
	logs, err := s.log.ListRecent(c.Request.Context(), recentLogLimit)
	if err != nil {
		zap.S().Errorw("로그 조회 실패", "error", err)
		c.String(http.StatusInternalServerError, "Failed to retrieve logs")
		return
	}
	c.JSON(http.StatusOK, logs)
}
