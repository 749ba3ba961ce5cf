package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/AntarcBall/every-archive/internal/archive"
	"github.com/AntarcBall/every-archive/internal/config"
	"github.com/AntarcBall/every-archive/internal/core/ports"
	"github.com/AntarcBall/every-archive/internal/server"
	"github.com/AntarcBall/every-archive/internal/sites/everytime"
	"github.com/AntarcBall/every-archive/internal/storage"
	"github.com/AntarcBall/every-archive/internal/ui/telegram"
	"github.com/heptiolabs/healthcheck"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	godotenv.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	configPath := flag.String("config", "crawlconfig.yaml", "크롤 설정 파일 경로")
	reset := flag.Bool("reset", false, "저장된 스냅샷과 변경 로그를 모두 삭제하고 종료")
	flag.Parse()

	cfg := config.Load(*configPath)
	zap.S().Infof("🚀 every-archive 시작 (%s)", cfg)

	ctx := context.Background()

	var snapshots ports.SnapshotStore
	var changeLog ports.ChangeLog
	var maintenance interface{ Reset(context.Context) error }

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pg, err := storage.NewPostgresStore(ctx, dbURL)
		if err != nil {
			zap.S().Fatalw("PostgreSQL 연결 실패", "error", err)
		}
		snapshots, changeLog, maintenance = pg, pg, pg
		zap.S().Info("🐘 Storage: PostgreSQL")
	} else {
		dataFile := os.Getenv("DATA_FILE")
		if dataFile == "" {
			dataFile = "data/archive.json"
		}
		js, err := storage.NewJSONStore(dataFile)
		if err != nil {
			zap.S().Fatalw("JSON 저장소 초기화 실패", "error", err)
		}
		snapshots, changeLog, maintenance = js, js, js
		zap.S().Info("📄 Storage: JSON File Mode")
	}

	if *reset {
		if err := maintenance.Reset(ctx); err != nil {
			zap.S().Fatalw("초기화 실패", "error", err)
		}
		zap.S().Info("저장소를 비웠습니다")
		return
	}

	source := everytime.NewClient(cfg)

	reconciler := archive.NewReconciler(source, snapshots, changeLog)
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		notifier, err := telegram.NewNotifier(token, os.Getenv("TELEGRAM_CHAT_ID"))
		if err != nil {
			zap.S().Warnw("텔레그램 알림 비활성화", "error", err)
		} else {
			reconciler.Notifier = notifier
			zap.S().Info("📨 Telegram notifier enabled")
		}
	}

	collector := archive.NewCollector(source, cfg.PageSize)
	crawler := archive.NewCrawler(collector, reconciler, snapshots, cfg.Lookback())
	runner := archive.NewGuardedRunner(crawler)

	health := healthcheck.NewHandler()
	health.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(100))
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.HealthPort)
		if err := http.ListenAndServe(addr, health); err != nil {
			zap.S().Errorw("healthcheck 서버 종료", "error", err)
		}
	}()

	go scheduleCycles(runner, cfg.Interval())

	srv := server.New(runner, changeLog)
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	zap.S().Infof("Server is running on %s", addr)
	if err := srv.Run(addr); err != nil {
		zap.S().Fatalw("HTTP 서버 종료", "error", err)
	}
}

// scheduleCycles는 설정된 주기로 사이클을 돌립니다. /crawl과 같은 가드를
// 거치므로 수동 트리거와 겹치면 그 회차는 건너뜁니다.
func scheduleCycles(runner *archive.GuardedRunner, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for range ticker.C {
		ran, err := runner.TryRun(context.Background())
		switch {
		case err != nil:
			zap.S().Errorw("주기 크롤링 실패", "error", err)
		case !ran:
			zap.S().Warn("이전 사이클이 아직 실행 중이라 이번 회차를 건너뜁니다")
		}
	}
}
