package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/tradepilot/internal/flow"
)

// flowCmd groups the guided flow commands
var flowCmd = &cobra.Command{
	Use:   "flow",
	Short: "가이드 플로우 실행",
	Long: `분석 워크스페이스를 단계별로 구성하는 가이드 플로우를 실행합니다.

Subcommands:
  run       - 전체 9단계 플로우 실행
  demo      - 앞 4단계 퀵 데모
  advanced  - 고급 분석 프리셋 적용
  history   - 실행 이력 조회 (DATABASE_URL 필요)

Example:
  go run ./cmd/pilot flow run
  go run ./cmd/pilot flow run --mode manual --prompt "crypto momentum with $5,000"
  go run ./cmd/pilot flow demo`,
}

var (
	flowRunCmd = &cobra.Command{
		Use:   "run",
		Short: "전체 플로우 실행",
		Long: `전체 플로우를 실행합니다.
manual 모드에서는 각 단계가 끝날 때마다 Enter를 눌러 계속합니다.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(true, func(s *flow.Sequencer) startFunc { return s.Start })
		},
	}

	flowDemoCmd = &cobra.Command{
		Use:   "demo",
		Short: "퀵 데모 실행",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(false, func(s *flow.Sequencer) startFunc { return s.RunQuickDemo })
		},
	}

	flowAdvancedCmd = &cobra.Command{
		Use:   "advanced",
		Short: "고급 분석 프리셋 적용",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlow(false, func(s *flow.Sequencer) startFunc { return s.RunAdvancedAnalysis })
		},
	}

	flowHistoryCmd = &cobra.Command{
		Use:   "history",
		Short: "플로우 실행 이력",
		RunE:  showFlowHistory,
	}
)

var (
	flowMode    string
	flowPrompt  string
	flowDelay   time.Duration
	flowLimit   int
	flowRecord  bool
	flowConfirm bool
)

type startFunc func(ctx context.Context) (<-chan struct{}, error)

func init() {
	rootCmd.AddCommand(flowCmd)
	flowCmd.AddCommand(flowRunCmd)
	flowCmd.AddCommand(flowDemoCmd)
	flowCmd.AddCommand(flowAdvancedCmd)
	flowCmd.AddCommand(flowHistoryCmd)

	flowCmd.PersistentFlags().StringVar(&flowPrompt, "prompt", "", "플로우 프롬프트 (비우면 FLOW_PROMPT 또는 기본값)")
	flowCmd.PersistentFlags().DurationVar(&flowDelay, "delay", 0, "auto 모드 단계 간 지연 (0이면 FLOW_STEP_DELAY)")
	flowCmd.PersistentFlags().BoolVar(&flowRecord, "record", true, "DATABASE_URL이 설정된 경우 실행 이력 저장")
	flowRunCmd.Flags().StringVar(&flowMode, "mode", "", "auto | manual (비우면 FLOW_MODE)")
	flowRunCmd.Flags().BoolVar(&flowConfirm, "confirm", true, "시작 전에 프롬프트를 확정하고 계획 출력")
	flowHistoryCmd.Flags().IntVar(&flowLimit, "limit", 20, "조회할 실행 수")
}

// consoleNotifier prints flow notifications for an interactive terminal
func consoleNotifier() flow.Notifier {
	return flow.NotifierFunc(func(n flow.Notification) {
		switch n.Severity {
		case flow.SeveritySuccess:
			PrintSuccess(n.Message)
		case flow.SeverityWarning:
			PrintWarning(n.Message)
		case flow.SeverityError:
			PrintError(n.Message)
		default:
			PrintInfo(n.Message)
		}
	})
}

// runFlow drives one entry point to completion. full marks the scripted
// sequence, the only one that pauses in manual mode.
func runFlow(full bool, entry func(*flow.Sequencer) startFunc) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if flowMode != "" {
		cfg.Flow.Mode = flowMode
	}
	if flowPrompt != "" {
		cfg.Flow.Prompt = flowPrompt
	}
	if flowDelay > 0 {
		cfg.Flow.StepDelay = flowDelay
	}
	log := cliLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newRuntime(ctx, cfg, log, runtimeOptions{history: flowRecord, console: consoleNotifier()})
	if err != nil {
		return err
	}
	defer rt.close()

	seq := rt.sequencer
	if full && flowConfirm {
		printPlan(seq.ConfirmFlowPrompt(seq.FlowPrompt().Prompt))
	}

	done, err := entry(seq)(ctx)
	if err != nil {
		return err
	}

	if full && seq.Status().Mode == flow.ModeManual {
		go continueOnEnter(seq)
	}

	<-done

	printWorkspace(rt)
	return nil
}

// continueOnEnter releases each manual-mode pause when the user presses Enter
func continueOnEnter(seq *flow.Sequencer) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		if !seq.Status().IsRunning {
			return
		}
		seq.Continue()
	}
}

func printPlan(plan flow.Plan) {
	PrintHeader("Flow Plan")
	PrintKeyValue("Theme", plan.Theme, 12)
	PrintKeyValue("Symbols", strings.Join(plan.Symbols, ", "), 12)
	PrintKeyValue("Wallet", plan.WalletAmount, 12)
	PrintKeyValue("Market type", plan.MarketType, 12)
	PrintKeyValue("Market", plan.Market, 12)
	PrintDoubleSeparator()
	fmt.Println()
}

func printWorkspace(rt *runtime) {
	st := rt.workspace.Snapshot()

	PrintHeader("Workspace")
	PrintKeyValue("Symbols", strings.Join(st.Symbols, ", "), 12)
	PrintKeyValue("Wallet", st.WalletAmount.StringFixed(2), 12)
	PrintKeyValue("Indicators", strings.Join(st.Indicators, ", "), 12)
	PrintKeyValue("Timeframe", st.Timeframe, 12)
	PrintKeyValue("Market", fmt.Sprintf("%s / %s", st.MarketType, st.Market), 12)
	if st.Analysis != nil {
		PrintKeyValue("Score", fmt.Sprintf("%.1f (%s)", st.Analysis.OverallScore, st.Analysis.Status), 12)
	}
	PrintDoubleSeparator()
}

func showFlowHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	rt, err := newRuntime(cmd.Context(), cfg, cliLogger(cfg), runtimeOptions{history: true})
	if err != nil {
		return err
	}
	defer rt.close()

	if rt.history == nil {
		return errors.New("run history requires DATABASE_URL")
	}

	runs, err := rt.history.ListRuns(cmd.Context(), flowLimit)
	if err != nil {
		return err
	}

	PrintHeader(fmt.Sprintf("Flow runs (%d)", len(runs)))
	widths := []int{36, 9, 7, 10, 5, 6, 19}
	PrintTableHeader([]string{"ID", "Activity", "Mode", "Outcome", "OK", "Failed", "Started"}, widths)
	for _, r := range runs {
		outcome := r.Outcome
		if outcome == "" {
			outcome = "running"
		}
		PrintTableRow([]string{
			r.ID, r.Activity, r.Mode, outcome,
			fmt.Sprintf("%d", r.StepsOK), fmt.Sprintf("%d", r.StepsFailed),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
		}, widths)
	}
	return nil
}
