package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-screener/internal/strategy"
)

// rubricsCmd represents the rubrics command
var rubricsCmd = &cobra.Command{
	Use:   "rubrics",
	Short: "전략 루브릭 조회 및 검증",
	Long: `내장 루브릭(buffett, lynch, graham)과 SCREENER_RUBRICS_PATH의
사용자 정의 루브릭을 조회합니다.

Example:
  go run ./cmd/screener rubrics list
  go run ./cmd/screener rubrics show "peter lynch"
  go run ./cmd/screener rubrics validate testdata/rubrics`,
}

var (
	rubricsListCmd = &cobra.Command{
		Use:   "list",
		Short: "루브릭 목록",
		RunE:  listRubrics,
	}

	rubricsShowCmd = &cobra.Command{
		Use:   "show [name]",
		Short: "루브릭 상세 (이름 또는 별칭)",
		Args:  cobra.ExactArgs(1),
		RunE:  showRubric,
	}

	rubricsValidateCmd = &cobra.Command{
		Use:   "validate [path]",
		Short: "YAML 루브릭 파일/디렉터리 검증",
		Args:  cobra.ExactArgs(1),
		RunE:  validateRubrics,
	}

	rubricsResolveCmd = &cobra.Command{
		Use:   "resolve [criteria]",
		Short: "자유 텍스트 기준이 선택하는 루브릭",
		Args:  cobra.MinimumNArgs(1),
		RunE:  resolveRubric,
	}
)

func init() {
	rootCmd.AddCommand(rubricsCmd)
	rubricsCmd.AddCommand(rubricsListCmd)
	rubricsCmd.AddCommand(rubricsShowCmd)
	rubricsCmd.AddCommand(rubricsValidateCmd)
	rubricsCmd.AddCommand(rubricsResolveCmd)
}

// loadRegistry builds the registry without touching the data port
func loadRegistry() (*strategy.Registry, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	reg := strategy.NewRegistry()
	if cfg.Screener.RubricsPath == "" {
		return reg, nil
	}

	rubrics, err := strategy.LoadRubrics(cfg.Screener.RubricsPath)
	if err != nil {
		return nil, fmt.Errorf("load rubrics: %w", err)
	}
	for _, r := range rubrics {
		if err := reg.Register(r); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

func listRubrics(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	rows := [][]string{}
	for _, r := range reg.List() {
		name := r.Name
		if r.Name == strategy.DefaultRubric {
			name += " *"
		}
		rows = append(rows, []string{name, r.Version, fmt.Sprint(len(r.Criteria)), strings.Join(r.Aliases, ", ")})
	}

	printer{w: cmd.OutOrStdout()}.table([]string{"Name", "Version", "Criteria", "Aliases"}, []int{12, 8, 8, 40}, rows)
	return nil
}

func showRubric(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	r, err := reg.Lookup(args[0])
	if err != nil {
		return err
	}

	out := printer{w: cmd.OutOrStdout()}
	out.header(r.Name, [][2]string{
		{"Version", r.Version},
		{"Description", r.Description},
		{"Fingerprint", strategy.Fingerprint(r)[:16]},
	})

	rows := make([][]string, 0, len(r.Criteria))
	for _, c := range r.Criteria {
		rows = append(rows, []string{
			c.Name,
			string(c.Metric),
			fmt.Sprintf("%.2f", c.Weight),
			string(c.Direction),
			fmt.Sprintf("%g", c.Full),
			fmt.Sprintf("%g", c.Zero),
		})
	}
	out.table([]string{"Criterion", "Metric", "Weight", "Dir", "Full", "Zero"}, []int{20, 20, 6, 8, 8, 8}, rows)
	return nil
}

func validateRubrics(cmd *cobra.Command, args []string) error {
	out := printer{w: cmd.OutOrStdout()}

	rubrics, err := strategy.LoadRubrics(args[0])
	if err != nil {
		out.failure(err.Error())
		return err
	}

	reg := strategy.NewRegistry()
	for _, r := range rubrics {
		if err := reg.Register(r); err != nil {
			out.failure(err.Error())
			return err
		}
		out.success(fmt.Sprintf("%s %s (%d criteria)", r.Name, r.Version, len(r.Criteria)))
	}
	return nil
}

func resolveRubric(cmd *cobra.Command, args []string) error {
	reg, err := loadRegistry()
	if err != nil {
		return err
	}

	criteria := strings.Join(args, " ")
	r := reg.Resolve(criteria)
	fmt.Fprintf(cmd.OutOrStdout(), "%q → %s\n", criteria, r.Name)
	return nil
}
