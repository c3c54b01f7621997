package contracts

import "time"

// FilerRole is the insider's role at the issuer
type FilerRole string

const (
	RoleCEO      FilerRole = "CEO"
	RoleCFO      FilerRole = "CFO"
	RoleDirector FilerRole = "DIRECTOR"
	RoleOther    FilerRole = "OTHER"
)

// IsCSuite reports CEO/CFO filers
func (r FilerRole) IsCSuite() bool {
	return r == RoleCEO || r == RoleCFO
}

// TransactionType is the kind of insider filing
type TransactionType string

const (
	TxBuy            TransactionType = "BUY"
	TxSell           TransactionType = "SELL"
	TxOptionExercise TransactionType = "OPTION_EXERCISE"
)

// InsiderTransaction is one insider filing record
// ⭐ SSOT: Data Port → S3 내부자 거래 전달
type InsiderTransaction struct {
	Ticker     string          `json:"ticker" yaml:"ticker" msgpack:"ticker"`
	FilerName  string          `json:"filer_name,omitempty" yaml:"filer_name" msgpack:"filer_name"`
	FilerRole  FilerRole       `json:"filer_role" yaml:"filer_role" msgpack:"filer_role"`
	Type       TransactionType `json:"type" yaml:"type" msgpack:"type"`
	AmountUSD  float64         `json:"amount_usd" yaml:"amount_usd" msgpack:"amount_usd"`
	FilingDate time.Time       `json:"filing_date" yaml:"filing_date" msgpack:"filing_date"`
}

// FilerID identifies a distinct filer; the role stands in when the name is missing
func (t InsiderTransaction) FilerID() string {
	if t.FilerName != "" {
		return t.FilerName
	}
	return string(t.FilerRole)
}

// Window is an inclusive filing-date range
type Window struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// WindowEndingAt returns the window of the given days ending at asOf
func WindowEndingAt(asOf time.Time, days int) Window {
	return Window{From: asOf.AddDate(0, 0, -days), To: asOf}
}

// Contains reports whether t falls inside the window (inclusive)
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.From) && !t.After(w.To)
}

// RationaleTag explains an insider score
type RationaleTag string

const (
	TagStrongBullish  RationaleTag = "STRONG_BULLISH"
	TagClusterBuying  RationaleTag = "CLUSTER_BUYING"
	TagSmallBuying    RationaleTag = "SMALL_BUYING"
	TagOptionExercise RationaleTag = "OPTION_EXERCISE"
	TagInsiderSelling RationaleTag = "INSIDER_SELLING"
	TagCSuiteSelling  RationaleTag = "C_SUITE_SELLING"
	TagNoActivity     RationaleTag = "NO_ACTIVITY"
)

// InsiderScore is the S3 output per ticker
// ⭐ SSOT: S3 → S4 내부자 점수 전달
type InsiderScore struct {
	Ticker string         `json:"ticker" msgpack:"ticker"`
	Score  float64        `json:"score" msgpack:"score"` // 0 ~ 100
	Tags   []RationaleTag `json:"tags" msgpack:"tags"`   // 정렬된 집합
}

// HasTag reports whether the score carries tag
func (s InsiderScore) HasTag(tag RationaleTag) bool {
	for _, t := range s.Tags {
		if t == tag {
			return true
		}
	}
	return false
}
