package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepilot/internal/confluence"
	"github.com/wonny/tradepilot/internal/strategyconfig"
)

// catalogCmd represents the catalog command group
var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "지표 카탈로그 설정 관리",
	Long: `지표 카탈로그/전략 프리셋 YAML 파일을 검사합니다.
서버와 CLI는 CONFLUENCE_CATALOG 환경변수로 지정된 파일을 사용합니다.`,
}

var catalogCheckCmd = &cobra.Command{
	Use:   "check <path>",
	Short: "카탈로그 YAML 검증",
	Long: `카탈로그 파일을 읽고 검증한 뒤 해시, 카테고리별 지표 수와 경고를 출력합니다.

Example:
  go run ./cmd/pilot catalog check config/confluence/default.yaml`,
	Args: cobra.ExactArgs(1),
	RunE: runCatalogCheck,
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogCheckCmd)
}

func runCatalogCheck(cmd *cobra.Command, args []string) error {
	sc, _, err := strategyconfig.Load(args[0])
	if err != nil {
		PrintError(err.Error())
		return err
	}

	hash, err := strategyconfig.Hash(sc)
	if err != nil {
		return fmt.Errorf("hash catalog: %w", err)
	}

	catalog := sc.Catalog()
	PrintHeader("Confluence Catalog")
	PrintKeyValue("Config", sc.Meta.ConfigID, 10)
	PrintKeyValue("Version", sc.Meta.Version, 10)
	PrintKeyValue("Hash", hash[:12], 10)
	PrintKeyValue("Indicators", fmt.Sprintf("%d", catalog.Len()), 10)
	PrintSeparator()

	for _, cat := range confluence.Categories {
		PrintKeyValue(string(cat), fmt.Sprintf("%d", len(catalog.ByCategory(cat))), 10)
	}

	presets := sc.Presets()
	for _, s := range confluence.Strategies() {
		PrintKeyValue(string(s), fmt.Sprintf("%d presets", len(presets[s])), 16)
	}
	PrintSeparator()

	warnings := strategyconfig.Warn(sc)
	if len(warnings) == 0 {
		PrintSuccess("Catalog is valid")
		return nil
	}
	for _, w := range warnings {
		PrintWarning(fmt.Sprintf("[%s] %s", w.Code, w.Message))
	}
	return nil
}
