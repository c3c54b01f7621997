package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-screener/internal/brain"
	"github.com/wonny/aegis-screener/internal/contracts"
	"github.com/wonny/aegis-screener/internal/scheduler"
	"github.com/wonny/aegis-screener/internal/scheduler/jobs"
)

// universeWarmSchedule runs ahead of the default 09:00 screen
const universeWarmSchedule = "0 30 8 * * 1-5"

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "정기 스크리닝 스케줄러",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)
  status  - 최근 실행 이력 (run store)

Example:
  go run ./cmd/screener schedule start
  go run ./cmd/screener schedule run daily_screen`,
}

var (
	scheduleStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- universe_warm: 평일 08:30 (지수 구성 종목 캐시)
- daily_screen: SCREENER_SCHEDULE (기본 평일 09:00)
- cache_sweep: 5분마다 (Redis 미사용 시)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	scheduleListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	scheduleRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	scheduleStatusCmd = &cobra.Command{
		Use:   "status",
		Short: "최근 실행 이력",
		RunE:  showStatus,
	}

	scheduleStrategies []string
	statusLimit        int
)

func init() {
	rootCmd.AddCommand(scheduleCmd)
	scheduleCmd.AddCommand(scheduleStartCmd)
	scheduleCmd.AddCommand(scheduleListCmd)
	scheduleCmd.AddCommand(scheduleRunCmd)
	scheduleCmd.AddCommand(scheduleStatusCmd)

	scheduleCmd.PersistentFlags().StringSliceVar(&scheduleStrategies, "strategies", nil, "정기 스크리닝 루브릭 (기본: buffett)")
	scheduleStatusCmd.Flags().IntVar(&statusLimit, "limit", 10, "조회 개수")
}

// newScheduler registers the screening jobs against a wired app
func newScheduler(a *app) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log)

	req := brain.Request{Strategies: scheduleStrategies}
	indices := []contracts.IndexName{brain.DefaultIndex}

	list := []scheduler.Job{
		jobs.NewUniverseWarmJob(a.port, indices, universeWarmSchedule, a.log),
		jobs.NewScreeningJob(a.orchestrator, a.tracker(), req, a.cfg.Screener.Schedule, a.log),
	}
	if a.memCache != nil {
		list = append(list, jobs.NewCacheSweepJob(a.memCache, a.log))
	}

	for _, job := range list {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	out := printer{w: cmd.OutOrStdout()}
	out.success("Scheduler started successfully")
	fmt.Fprintln(out.w, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Fprintf(out.w, "  - %-14s next: %s\n", jobName, next.Format("2006-01-02 15:04:05"))
	}
	fmt.Fprintln(out.w, "\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	<-cmd.Context().Done()

	fmt.Fprintln(out.w, "\nShutting down scheduler...")
	sched.Stop()
	fmt.Fprintln(out.w, "Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	stats := sched.GetJobStats()
	fmt.Fprintln(cmd.OutOrStdout(), "Registered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(cmd.OutOrStdout(), "  - %-14s %s\n", jobName, stats[jobName].Schedule)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	sched, err := newScheduler(a)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Running job: %s\n", jobName)
	if err := sched.RunJob(jobName); err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	sched.Wait()

	history, err := sched.GetJobHistory(jobName)
	if err != nil {
		return err
	}
	last := history.GetLatestResults(1)
	out := printer{w: cmd.OutOrStdout()}
	if len(last) == 1 && !last[0].Success {
		out.failure(fmt.Sprintf("%s failed after %d attempt(s): %s", jobName, last[0].Attempts, last[0].Error))
		return fmt.Errorf("job %s failed", jobName)
	}
	out.success(fmt.Sprintf("%s completed", jobName))
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	recs, err := a.runs.List(cmd.Context(), statusLimit)
	if err != nil {
		return fmt.Errorf("list runs: %w", err)
	}

	out := printer{w: cmd.OutOrStdout()}
	if len(recs) == 0 {
		out.warning("No runs recorded (run store is in-process unless REDIS_ENABLED=true)")
		return nil
	}

	rows := make([][]string, 0, len(recs))
	for _, rec := range recs {
		positions := "-"
		if rec.Result != nil {
			positions = fmt.Sprint(len(rec.Result.Allocations))
		}
		rows = append(rows, []string{
			rec.ID,
			string(rec.Status),
			rec.Trigger,
			rec.QueuedAt.Format("2006-01-02 15:04:05"),
			positions,
		})
	}
	out.table([]string{"Task ID", "Status", "Trigger", "Queued", "Positions"}, []int{36, 9, 8, 19, 9}, rows)
	return nil
}
