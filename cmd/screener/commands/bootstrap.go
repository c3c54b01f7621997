package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/aegis-screener/internal/datasource"
	"github.com/wonny/aegis-screener/internal/datasource/pgstore"
	"github.com/wonny/aegis-screener/pkg/database"
	"github.com/wonny/aegis-screener/pkg/logger"
)

// bootstrapCmd creates the screener schema and loads a fixture snapshot
var bootstrapCmd = &cobra.Command{
	Use:   "bootstrap",
	Short: "PostgreSQL 스키마 생성 및 픽스처 적재",
	Long: `screener 스키마를 생성하고 YAML 픽스처를 PostgreSQL에 적재합니다.
DATA_SOURCE=postgres로 실행하기 전에 한 번 실행합니다.

Flags:
  --fixture    적재할 픽스처 (기본: DATA_FIXTURE_PATH)
  --schema-only  스키마만 생성

Example:
  DATABASE_URL=postgres://... go run ./cmd/screener bootstrap
  go run ./cmd/screener bootstrap --fixture testdata/universe.yaml`,
	RunE: runBootstrap,
}

var (
	bootstrapFixture    string
	bootstrapSchemaOnly bool
)

func init() {
	rootCmd.AddCommand(bootstrapCmd)

	bootstrapCmd.Flags().StringVar(&bootstrapFixture, "fixture", "", "픽스처 경로")
	bootstrapCmd.Flags().BoolVar(&bootstrapSchemaOnly, "schema-only", false, "스키마만 생성")
}

func runBootstrap(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.New(cfg)

	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	store := pgstore.New(db.Pool)
	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	log.Info("Schema ready")

	out := printer{w: cmd.OutOrStdout()}
	if bootstrapSchemaOnly {
		out.success("Schema created")
		return nil
	}

	path := bootstrapFixture
	if path == "" {
		path = cfg.DataSource.FixturePath
	}
	f, err := datasource.LoadFixture(path)
	if err != nil {
		return err
	}
	if err := store.Import(ctx, f); err != nil {
		return fmt.Errorf("import %s: %w", path, err)
	}

	log.WithFields(map[string]interface{}{
		"fixture":      path,
		"indices":      len(f.Indices),
		"fundamentals": len(f.Fundamentals),
		"insider":      len(f.Insider),
	}).Info("Fixture imported")
	out.success(fmt.Sprintf("Imported %s (%d snapshots, %d insider filings)", path, len(f.Fundamentals), len(f.Insider)))
	return nil
}
