package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-screener/internal/brain"
)

// screenCmd runs one screening pipeline in the foreground
var screenCmd = &cobra.Command{
	Use:   "screen",
	Short: "스크리닝 파이프라인 1회 실행",
	Long: `S1~S5 파이프라인을 실행하고 포트폴리오를 출력합니다.

Flags:
  --index           지수 (SP500, NASDAQ100, RUSSELL2000, RUSSELL3000, DJIA)
  --tickers         명시적 종목 (지수보다 우선)
  --strategies      루브릭 이름 (buffett, lynch, graham, 사용자 정의)
  --criteria        자유 텍스트 기준 (strategies 미지정 시)
  --max-positions   최대 종목 수 (1~100, 기본 10)
  --max-sector-pct  섹터 비중 상한 (0~1, 기본 0.20)

Example:
  go run ./cmd/screener screen
  go run ./cmd/screener screen --index "S&P 500" --strategies buffett,graham
  go run ./cmd/screener screen --tickers AAPL,MSFT,XOM --criteria "peter lynch growth"
  go run ./cmd/screener screen --sectors Energy --json`,
	RunE: runScreen,
}

var (
	screenIndex        string
	screenTickers      []string
	screenStrategies   []string
	screenCriteria     string
	screenMaxPositions int
	screenMaxSectorPct float64
	screenSectors      []string
	screenAsOf         string
	screenWindowDays   int
	screenJSON         bool
	screenStore        bool
)

func init() {
	rootCmd.AddCommand(screenCmd)

	// Flags
	screenCmd.Flags().StringVar(&screenIndex, "index", "", "지수 이름 또는 별칭")
	screenCmd.Flags().StringSliceVar(&screenTickers, "tickers", nil, "종목 목록 (쉼표 구분)")
	screenCmd.Flags().StringSliceVar(&screenStrategies, "strategies", nil, "루브릭 이름 (쉼표 구분)")
	screenCmd.Flags().StringVar(&screenCriteria, "criteria", "", "자유 텍스트 투자 기준")
	screenCmd.Flags().IntVar(&screenMaxPositions, "max-positions", 0, "최대 종목 수 (기본 10)")
	screenCmd.Flags().Float64Var(&screenMaxSectorPct, "max-sector-pct", 0, "섹터 비중 상한 (기본 0.20)")
	screenCmd.Flags().StringSliceVar(&screenSectors, "sectors", nil, "허용 섹터 (쉼표 구분)")
	screenCmd.Flags().StringVar(&screenAsOf, "as-of", "", "기준일 (YYYY-MM-DD, 기본: 오늘)")
	screenCmd.Flags().IntVar(&screenWindowDays, "window-days", 0, "내부자 거래 조회 기간 (기본 90일)")
	screenCmd.Flags().BoolVar(&screenJSON, "json", false, "JSON 출력")
	screenCmd.Flags().BoolVar(&screenStore, "store", false, "결과를 run store에 저장")
}

// buildRequest maps CLI flags onto a pipeline request
func buildRequest() (brain.Request, error) {
	req := brain.Request{
		Universe: brain.UniverseSpec{
			Index:   screenIndex,
			Tickers: upperAll(screenTickers),
		},
		Strategies:        screenStrategies,
		Criteria:          screenCriteria,
		MaxPositions:      screenMaxPositions,
		MaxSectorPct:      screenMaxSectorPct,
		Sectors:           screenSectors,
		InsiderWindowDays: screenWindowDays,
	}

	if screenAsOf != "" {
		asOf, err := time.Parse("2006-01-02", screenAsOf)
		if err != nil {
			return brain.Request{}, fmt.Errorf("invalid --as-of (expected YYYY-MM-DD): %w", err)
		}
		req.AsOf = asOf
	}
	return req, nil
}

func runScreen(cmd *cobra.Command, args []string) error {
	req, err := buildRequest()
	if err != nil {
		return err
	}

	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := printer{w: cmd.OutOrStdout()}

	var res *brain.RunResult
	if screenStore {
		// API/스케줄러와 같은 경로로 저장
		prepared, perr := a.orchestrator.Prepare(req)
		if perr != nil {
			return perr
		}
		tr := a.tracker()
		rec, qerr := tr.Enqueue(cmd.Context(), newRunID(), "cli", prepared)
		if qerr != nil {
			return qerr
		}
		res, err = tr.Execute(cmd.Context(), rec)
	} else {
		res, err = a.orchestrator.Run(cmd.Context(), req)
	}

	if res == nil {
		return err
	}

	if screenJSON {
		if jerr := out.json(res); jerr != nil {
			return jerr
		}
	} else {
		out.runResult(res)
	}
	return err
}

func upperAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			out = append(out, s)
		}
	}
	return out
}
