package archive

import (
	"context"
	"sync"
)

// Runner는 사이클 하나를 실행하는 무언가입니다.
type Runner interface {
	Run(ctx context.Context) error
}

// GuardedRunner는 사이클 실행을 직렬화하는 single-flight 가드입니다.
// Crawler 자체는 동시 실행에 안전하지 않으므로 HTTP 트리거와 스케줄러는
// 반드시 이 가드를 거칩니다.
type GuardedRunner struct {
	mu     sync.Mutex
	runner Runner
}

func NewGuardedRunner(r Runner) *GuardedRunner {
	return &GuardedRunner{runner: r}
}

// TryRun은 다른 사이클이 돌고 있으면 실행하지 않고 false를 돌려줍니다.
// 대기하지 않는 이유: 트리거가 겹쳤을 때 같은 작업을 연달아 두 번 도는
// 것은 의미가 없습니다.
func (g *GuardedRunner) TryRun(ctx context.Context) (bool, error) {
	if !g.mu.TryLock() {
		return false, nil
	}
	defer g.mu.Unlock()
	return true, g.runner.Run(ctx)
}
