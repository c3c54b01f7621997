package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/wonny/aegis-screener/internal/brain"
)

// ═══════════════════════════════════════════════════════════
// Common Formatting Utilities
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const lineWidth = 59

// printer writes formatted CLI output
type printer struct {
	w io.Writer
}

func (p printer) separator() {
	fmt.Fprintln(p.w, strings.Repeat("─", lineWidth))
}

func (p printer) doubleSeparator() {
	fmt.Fprintln(p.w, strings.Repeat("═", lineWidth))
}

// header prints a titled block with key/value lines
func (p printer) header(title string, kv [][2]string) {
	fmt.Fprintln(p.w)
	p.doubleSeparator()
	fmt.Fprintf(p.w, "  %s\n", title)
	p.separator()
	for _, pair := range kv {
		fmt.Fprintf(p.w, "  %-12s: %s\n", pair[0], pair[1])
	}
	p.separator()
}

func (p printer) success(message string) {
	fmt.Fprintf(p.w, "✅ %s\n", message)
}

func (p printer) warning(message string) {
	fmt.Fprintf(p.w, "⚠️  %s\n", message)
}

func (p printer) failure(message string) {
	fmt.Fprintf(p.w, "❌ %s\n", message)
}

// table prints left-aligned columns
func (p printer) table(columns []string, widths []int, rows [][]string) {
	p.row(columns, widths)

	total := 0
	for i, width := range widths {
		total += width
		if i < len(widths)-1 {
			total += 2 // spacing
		}
	}
	fmt.Fprintln(p.w, strings.Repeat("─", total))

	for _, r := range rows {
		p.row(r, widths)
	}
}

func (p printer) row(values []string, widths []int) {
	for i, val := range values {
		fmt.Fprintf(p.w, "%-*s", widths[i], val)
		if i < len(values)-1 {
			fmt.Fprint(p.w, "  ")
		}
	}
	fmt.Fprintln(p.w)
}

func (p printer) json(v interface{}) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// runResult prints a finished (or partially finished) screening run
func (p printer) runResult(res *brain.RunResult) {
	p.header("Screening Run", [][2]string{
		{"Run ID", res.RunID},
		{"As of", res.AsOf.Format("2006-01-02")},
		{"Strategies", strings.Join(res.Strategies, ", ")},
		{"Duration", fmt.Sprintf("%dms", res.Summary.TotalDurationMs)},
	})

	stageRows := make([][]string, 0, len(res.Summary.Stages))
	for _, s := range res.Summary.Stages {
		stageRows = append(stageRows, []string{
			string(s.Stage),
			fmt.Sprint(s.Input),
			fmt.Sprint(s.Admitted),
			fmt.Sprint(s.Rejected),
			fmt.Sprint(s.Errors),
			fmt.Sprintf("%dms", s.DurationMs),
		})
	}
	p.table([]string{"Stage", "In", "Pass", "Reject", "Error", "Time"}, []int{14, 6, 6, 6, 6, 8}, stageRows)
	fmt.Fprintln(p.w)

	if len(res.Allocations) > 0 {
		rows := make([][]string, 0, len(res.Allocations))
		for _, a := range res.Allocations {
			rows = append(rows, []string{
				fmt.Sprint(a.Rank),
				a.Ticker,
				a.Sector,
				fmt.Sprintf("%.2f%%", a.WeightPct),
				fmt.Sprintf("%.1f", a.FinalScore),
				string(a.Conviction),
				string(a.EntryStrategy),
			})
		}
		p.table([]string{"#", "Ticker", "Sector", "Weight", "Score", "Conviction", "Entry"}, []int{3, 7, 22, 8, 6, 10, 12}, rows)
		fmt.Fprintf(p.w, "\nCash: %.2f%%\n", res.CashPct)
	}

	if len(res.Skipped) > 0 {
		fmt.Fprintln(p.w, "\nSkipped:")
		for _, s := range res.Skipped {
			fmt.Fprintf(p.w, "   • %-6s %-22s %s\n", s.Ticker, s.Sector, s.Reason)
		}
	}

	if len(res.Summary.TickerErrors) > 0 {
		counts := res.Summary.CountErrors()
		causes := make([]string, 0, len(counts))
		for cause, n := range counts {
			causes = append(causes, fmt.Sprintf("%s=%d", cause, n))
		}
		sort.Strings(causes)

		fmt.Fprintf(p.w, "\nTicker errors (%s):\n", strings.Join(causes, ", "))
		for _, e := range res.Summary.TickerErrors {
			fmt.Fprintf(p.w, "   • %-6s %-14s %s\n", e.Ticker, e.Stage, e.Cause)
		}
	}

	fmt.Fprintln(p.w)
	if res.Summary.StageError != nil {
		p.failure(fmt.Sprintf("%s %s: %s", res.Summary.StageError.Stage, res.Summary.StageError.Kind, res.Summary.StageError.Message))
		return
	}
	p.success(fmt.Sprintf("%d positions", len(res.Allocations)))
}
