package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepilot/internal/confluence"
	"github.com/wonny/tradepilot/internal/indicators"
)

// analyzeCmd scores an indicator selection
var analyzeCmd = &cobra.Command{
	Use:   "analyze [indicator...]",
	Short: "지표 조합 컨플루언스 분석",
	Long: `선택한 지표 조합의 컨플루언스 점수, 카테고리별 점수,
균형 지표와 개선 추천을 출력합니다.

--prices 로 OHLCV CSV를 지정하면 지원되는 지표의 최신 값도 계산합니다.

Example:
  go run ./cmd/pilot analyze SMA MACD RSI BollingerBands Volume
  go run ./cmd/pilot analyze EMA RSI ATR OBV --prices data/aapl.csv
  go run ./cmd/pilot analyze SMA RSI --json`,
	RunE: runAnalyze,
}

var (
	analyzePrices string
	analyzeJSON   bool
)

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().StringVar(&analyzePrices, "prices", "", "OHLCV CSV 파일 (time|date,open,high,low,close,volume)")
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "JSON으로 출력")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := cliLogger(cfg)

	src, err := loadCatalog(cfg, log)
	if err != nil {
		return err
	}
	analyzer := confluence.NewAnalyzer(src.catalog, log)
	analysis := analyzer.Analyze(args)

	var readings []indicators.Reading
	if analyzePrices != "" {
		f, err := os.Open(analyzePrices)
		if err != nil {
			return fmt.Errorf("open prices: %w", err)
		}
		defer f.Close()

		bars, err := indicators.LoadCSV(f)
		if err != nil {
			return fmt.Errorf("load prices: %w", err)
		}
		readings = indicators.NewEvaluator(log).Evaluate(analysis.Selected, bars)
	}

	if analyzeJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(map[string]interface{}{
			"analysis": analysis,
			"readings": readings,
		})
	}

	printAnalysis(analysis)
	if len(readings) > 0 {
		printReadings(readings)
	}
	return nil
}

func printAnalysis(a confluence.Analysis) {
	PrintHeader("Confluence Analysis")
	PrintKeyValue("Selected", strings.Join(a.Selected, ", "), 12)
	PrintKeyValue("Score", fmt.Sprintf("%.1f / 100", a.OverallScore), 12)
	PrintKeyValue("Status", strings.ToUpper(string(a.Status)), 12)
	PrintSeparator()

	fmt.Println("  Category scores")
	for _, cat := range confluence.Categories {
		PrintKeyValue(string(cat), fmt.Sprintf("%.1f", a.CategoryScores[cat]), 12)
	}
	PrintSeparator()

	fmt.Println("  Balance")
	PrintKeyValue("coverage", fmt.Sprintf("%.2f", a.Balance.Coverage), 12)
	PrintKeyValue("diversity", fmt.Sprintf("%.2f", a.Balance.Diversity), 12)
	PrintKeyValue("redundancy", fmt.Sprintf("%.2f", a.Balance.Redundancy), 12)
	PrintKeyValue("synergy", fmt.Sprintf("%.2f", a.Balance.Synergy), 12)

	if len(a.Recommendations) > 0 {
		PrintSeparator()
		fmt.Println("  Recommendations")
		PrintList(a.Recommendations)
	}
	PrintDoubleSeparator()
}

func printReadings(readings []indicators.Reading) {
	fmt.Println()
	widths := []int{16, 14, 9, 30}
	PrintTableHeader([]string{"Indicator", "Value", "Signal", "Note"}, widths)
	for _, r := range readings {
		value := "-"
		if r.Supported && r.Note == "" {
			value = fmt.Sprintf("%.4f", r.Value)
		}
		PrintTableRow([]string{r.Indicator, value, string(r.Signal), r.Note}, widths)
	}
}

// combosCmd lists the preset combinations for a strategy
var combosCmd = &cobra.Command{
	Use:   "combos",
	Short: "전략별 추천 지표 조합",
	Long: `전략(day-trading, swing-trading, position-trading)별
추천 지표 조합과 각 조합의 컨플루언스 점수를 출력합니다.

Example:
  go run ./cmd/pilot combos
  go run ./cmd/pilot combos --strategy day-trading`,
	RunE: runCombos,
}

var combosStrategy string

func init() {
	rootCmd.AddCommand(combosCmd)

	combosCmd.Flags().StringVar(&combosStrategy, "strategy", "", "전략 (비우면 전체)")
}

func runCombos(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := cliLogger(cfg)
	src, err := loadCatalog(cfg, log)
	if err != nil {
		return err
	}
	analyzer := confluence.NewAnalyzer(src.catalog, log)

	strategies := confluence.Strategies()
	if combosStrategy != "" {
		strategy := confluence.ResolveStrategy(combosStrategy)
		if string(strategy) != combosStrategy {
			PrintWarning(fmt.Sprintf("Unknown strategy %q, showing %s", combosStrategy, strategy))
		}
		strategies = []confluence.Strategy{strategy}
	}

	widths := []int{22, 7, 11, 44}
	for _, strategy := range strategies {
		PrintHeader(string(strategy))
		PrintTableHeader([]string{"Name", "Score", "Status", "Indicators"}, widths)

		for _, c := range src.presets.For(string(strategy)) {
			a := analyzer.Analyze(c.Indicators)
			PrintTableRow([]string{
				c.Name,
				fmt.Sprintf("%.1f", a.OverallScore),
				string(a.Status),
				strings.Join(c.Indicators, ", "),
			}, widths)
		}
	}
	fmt.Println()
	return nil
}

// validateCmd checks whether a selection is balanced
var validateCmd = &cobra.Command{
	Use:   "validate [indicator...]",
	Short: "지표 조합 균형 검증",
	Long: `지표 조합이 균형 잡혀 있는지 검증하고 문제점과 제안을 출력합니다.
균형이 아니면 오류로 종료합니다.

Example:
  go run ./cmd/pilot validate SMA MACD RSI BollingerBands Volume`,
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := cliLogger(cfg)
	src, err := loadCatalog(cfg, log)
	if err != nil {
		return err
	}
	verdict := confluence.NewAnalyzer(src.catalog, log).ValidateEquilibrium(args)

	PrintHeader("Equilibrium Check")
	PrintKeyValue("Score", fmt.Sprintf("%.1f", verdict.Score), 8)
	PrintKeyValue("Status", string(verdict.Status), 8)
	PrintSeparator()

	if verdict.Balanced {
		PrintSuccess("Selection is balanced")
		return nil
	}

	PrintWarning("Selection is not balanced")
	if len(verdict.Issues) > 0 {
		fmt.Println("\n  Issues")
		PrintList(verdict.Issues)
	}
	if len(verdict.Suggestions) > 0 {
		fmt.Println("\n  Suggestions")
		PrintList(verdict.Suggestions)
	}
	return errors.New("selection is not balanced")
}
