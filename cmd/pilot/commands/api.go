package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepilot/internal/api"
	"github.com/wonny/tradepilot/internal/api/handlers"
	"github.com/wonny/tradepilot/pkg/logger"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- 컨플루언스 분석 엔드포인트 제공
- 가이드 플로우 제어 엔드포인트 제공
- WebSocket(/ws)으로 알림과 상태 변경 푸시

Endpoints:
  GET  /health                          - Health check
  GET  /metrics                         - Prometheus metrics
  GET  /api/indicators                  - 지표 카탈로그
  POST /api/confluence/analyze          - 지표 조합 분석
  POST /api/confluence/validate         - 균형 검증
  GET  /api/confluence/combinations     - 전략별 추천 조합
  GET  /api/flow/status                 - 플로우 상태
  POST /api/flow/start|stop|continue    - 플로우 제어
  POST /api/flow/demo|advanced          - 퀵 데모 / 고급 분석
  PUT  /api/flow/mode                   - auto/manual 전환
  GET  /api/flow/prompt                 - 플로우 프롬프트 조회
  PUT  /api/flow/prompt                 - 플로우 프롬프트 저장
  POST /api/flow/prompt/confirm         - 프롬프트 확정 및 계획 생성
  GET  /api/flow/runs[/{id}]            - 실행 이력
  GET  /api/workspace                   - 워크스페이스 상태
  PUT  /api/workspace/bars              - 가격 CSV 업로드
  GET  /ws                              - WebSocket 이벤트

Example:
  go run ./cmd/pilot api
  go run ./cmd/pilot api --port 8080 --scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	apiScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (기본값: PORT 환경변수)")
	apiCmd.Flags().BoolVar(&apiScheduler, "scheduler", false, "스케줄러를 API 서버와 함께 실행")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== TradePilot API Server ===")

	// 1. Load config
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Override port if flag is set
	if apiPort != "" {
		cfg.Port = apiPort
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	log.WithFields(map[string]interface{}{
		"port": cfg.Port,
		"env":  cfg.Env,
	}).Info("Initializing API server")

	// 3. Wire components
	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, err := newRuntime(baseCtx, cfg, log, runtimeOptions{hub: true, history: true})
	if err != nil {
		return err
	}
	defer rt.close()

	// 4. Create handlers
	var runs handlers.RunHistory
	if rt.history != nil {
		runs = rt.history
	}

	router := api.NewRouter(api.Handlers{
		Confluence: handlers.NewConfluenceHandler(rt.analyzer, log),
		Flow:       handlers.NewFlowHandler(baseCtx, rt.sequencer, runs, log),
		Workspace:  handlers.NewWorkspaceHandler(rt.workspace, log),
		Events:     rt.hub,
	}, api.RouterOptions{
		Metrics:    cfg.MetricsEnabled,
		ControlRPS: cfg.Flow.ControlRPS,
	}, log)

	// 5. Optional scheduler
	if apiScheduler {
		sched, err := rt.newScheduler()
		if err != nil {
			return fmt.Errorf("init scheduler: %w", err)
		}
		sched.Start()
		defer sched.Stop()
	}

	// 6. Create server
	server := api.New(cfg, log, router)

	// 7. Start server with graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	log.Info("API server started successfully")
	fmt.Printf("\n✅ Server running on http://localhost:%s\n", cfg.Port)
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
