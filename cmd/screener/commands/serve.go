package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-screener/internal/api"
	"github.com/wonny/aegis-screener/internal/api/handlers"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health               - Health check
  POST /api/screen           - 스크리닝 실행 요청 (비동기, task_id 반환)
  GET  /api/screen           - 최근 실행 목록
  GET  /api/screen/{id}      - 실행 상태 및 결과
  GET  /api/rubrics          - 루브릭 목록
  GET  /api/rubrics/{name}   - 루브릭 상세

Example:
  go run ./cmd/screener serve
  go run ./cmd/screener serve --port 8080 --with-scheduler`,
	RunE: runServe,
}

var (
	servePort          string
	serveWithScheduler bool
)

func init() {
	rootCmd.AddCommand(serveCmd)

	// Flags
	serveCmd.Flags().StringVar(&servePort, "port", "", "API 서버 포트 (기본: PORT)")
	serveCmd.Flags().BoolVar(&serveWithScheduler, "with-scheduler", false, "정기 스크리닝 스케줄러 동시 실행")
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if servePort != "" {
		a.cfg.Port = servePort
	}
	log := a.log

	// In-process cache needs periodic sweeping
	if a.memCache != nil && !serveWithScheduler {
		a.memCache.StartJanitor(ctx, 5*time.Minute, log)
	}

	if serveWithScheduler {
		sched, err := newScheduler(a)
		if err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()
	}

	tracker := a.tracker()
	screenHandler := handlers.NewScreenHandler(ctx, a.orchestrator, tracker, log)
	rubricHandler := handlers.NewRubricHandler(a.registry)

	checks := map[string]api.HealthCheck{
		"redis":     a.redis.Ping,
		"run_store": runStoreCheck(a),
	}
	if a.db != nil {
		checks["postgres"] = a.db.Ping
	}

	router := api.NewRouter(screenHandler, rubricHandler, checks, log)
	server := api.New(a.cfg, log, router, screenHandler.Wait)

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	if err := server.Run(ctx); err != nil {
		return err
	}

	log.Info("Server stopped")
	return nil
}

// runStoreCheck adapts the run store to a health check
func runStoreCheck(a *app) api.HealthCheck {
	return func(ctx context.Context) error {
		_, err := a.runs.List(ctx, 1)
		return err
	}
}
