package contracts

// Pipeline Stage 정의 (SSOT)
// 모든 로그, 런 요약, 에러에서 이 상수를 사용해야 함
//
// 파이프라인 흐름:
//   S1 → S2 → S3 → S4 → S5
//   Universe  QuickFilter  Insider  Strategy  Portfolio

// Stage represents a pipeline stage
type Stage string

const (
	// StageUniverse S1: 유니버스 수집
	// 책임: 지수 구성 종목 또는 명시 종목 목록 확보
	// 위치: internal/s1_universe/
	StageUniverse Stage = "S1_UNIVERSE"

	// StageQuickFilter S2: Hard Cut 필터링
	// 책임: 재무 스냅샷 수집 후 시총/순이익/부채/ROE/유동비율 기준 적용
	// 위치: internal/selection/screener.go
	StageQuickFilter Stage = "S2_QUICK_FILTER"

	// StageInsider S3: 내부자 거래 시그널
	// 책임: 내부자 거래 윈도우 수집, 0-100 점수 산출
	// 위치: internal/signals/
	StageInsider Stage = "S3_INSIDER_SIGNALS"

	// StageStrategy S4: 전략 루브릭 평가 및 최종 점수
	// 책임: 루브릭 점수, insider/strategy 결합, 순위
	// 위치: internal/strategy/, internal/selection/ranker.go
	StageStrategy Stage = "S4_STRATEGY_SCORING"

	// StagePortfolio S5: 포트폴리오 구성
	// 책임: 섹터 상한, 종목 수 제약, 비중 산출, 진입 전략
	// 위치: internal/portfolio/
	StagePortfolio Stage = "S5_PORTFOLIO"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// ShortName returns abbreviated stage name (e.g., "S1", "S2")
func (s Stage) ShortName() string {
	switch s {
	case StageUniverse:
		return "S1"
	case StageQuickFilter:
		return "S2"
	case StageInsider:
		return "S3"
	case StageStrategy:
		return "S4"
	case StagePortfolio:
		return "S5"
	default:
		return "UNKNOWN"
	}
}

// Description returns Korean description of the stage
func (s Stage) Description() string {
	switch s {
	case StageUniverse:
		return "유니버스 수집"
	case StageQuickFilter:
		return "Hard Cut 필터링"
	case StageInsider:
		return "내부자 거래 시그널"
	case StageStrategy:
		return "전략 점수/순위"
	case StagePortfolio:
		return "포트폴리오 구성"
	default:
		return "알 수 없음"
	}
}

// AllStages returns all pipeline stages in order
func AllStages() []Stage {
	return []Stage{
		StageUniverse,
		StageQuickFilter,
		StageInsider,
		StageStrategy,
		StagePortfolio,
	}
}

// IsValidStage checks if a stage string is valid
func IsValidStage(s string) bool {
	for _, stage := range AllStages() {
		if string(stage) == s {
			return true
		}
	}
	return false
}

// StageSummary records the counts and timing of one stage execution
type StageSummary struct {
	Stage      Stage `json:"stage"`
	Input      int   `json:"input"`
	Admitted   int   `json:"admitted"`
	Rejected   int   `json:"rejected"`
	Errors     int   `json:"errors"`
	DurationMs int64 `json:"duration_ms"`
}
