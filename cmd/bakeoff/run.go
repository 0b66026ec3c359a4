package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/bakeoff/internal/config"
	"github.com/ShayCichocki/bakeoff/internal/confirm"
	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/internal/orchestrator"
	"github.com/ShayCichocki/bakeoff/internal/tui"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

var (
	runPrompt         string
	runCandidates     int
	runYes            bool
	runNo             bool
	runTUI            bool
	runMode           string
	runProvider       string
	runModel          string
	runCandidatesFile string
	runMetricsFile    string
	runScope          string
	runWorkers        int
	runTieBreak       string
)

var runCmd = &cobra.Command{
	Use:   "run [target] --prompt <request>",
	Short: "Run one validation round against a file",
	Long: `Run one validation round: generate candidates for the target file,
validate each in its own workspace, and apply the winner after confirmation.

When the target is omitted, the model picks the file to change (limited to
--scope when given).

Examples:
  bakeoff run calc.py -p "handle division by zero"
  bakeoff run -p "add a slugify helper" --scope pkg/text
  bakeoff run app.py --candidates-file candidates.yaml --yes
  bakeoff run calc.py -p "..." --mode copy --metrics-file round.prom`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRound,
}

func init() {
	runCmd.Flags().StringVarP(&runPrompt, "prompt", "p", "", "Change request handed to the generator")
	runCmd.Flags().IntVarP(&runCandidates, "candidates", "n", 0, "Number of candidates (default from config)")
	runCmd.Flags().BoolVarP(&runYes, "yes", "y", false, "Apply the winner without asking (protected paths still refuse)")
	runCmd.Flags().BoolVar(&runNo, "no", false, "Never apply; report only")
	runCmd.Flags().BoolVar(&runTUI, "tui", false, "Show the live round view")
	runCmd.Flags().StringVar(&runMode, "mode", "", "Workspace isolation: git or copy (default from config)")
	runCmd.Flags().StringVar(&runProvider, "provider", "", "Candidate source: anthropic, openai or file")
	runCmd.Flags().StringVar(&runModel, "model", "", "Model name for the provider")
	runCmd.Flags().StringVar(&runCandidatesFile, "candidates-file", "", "Read candidates from a YAML file instead of a model")
	runCmd.Flags().StringVar(&runMetricsFile, "metrics-file", "", "Write round metrics in Prometheus text format to this file")
	runCmd.Flags().StringVar(&runScope, "scope", "", "Directory new or routed files must live under")
	runCmd.Flags().IntVar(&runWorkers, "workers", -1, "Max concurrent validations, 0 = one per candidate (default from config)")
	runCmd.Flags().StringVar(&runTieBreak, "tie-break", "", "Winner among several successes: lowest_id or first_completed")
}

func runRound(cmd *cobra.Command, args []string) error {
	if runYes && runNo {
		return errors.New("--yes and --no are mutually exclusive")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := applyRunFlags(cfg); err != nil {
		return err
	}
	if runPrompt == "" && cfg.Generator.Provider != config.ProviderFile {
		return errors.New("--prompt is required unless candidates come from a file")
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	root, err := findProjectRoot(cwd, cfg.Workspace.Mode)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\nReceived interrupt, cleaning up...")
			cancel()
		case <-ctx.Done():
		}
	}()

	logger := logging.ForProject(root)
	defer logger.Close()

	comps, err := buildComponents(root, cfg, logger)
	if err != nil {
		return err
	}
	defer comps.Close()

	target := ""
	if len(args) == 1 {
		target, err = projectRelative(root, cwd, args[0])
		if err != nil {
			return err
		}
	} else {
		if target, err = comps.route(ctx, root, runPrompt, runScope); err != nil {
			return err
		}
		printStatus("→", fmt.Sprintf("Routed request to %s", target), color.FgCyan)
	}

	emitter := orchestrator.NewEventEmitter(64, logger)
	var session *tui.Session
	printerDone := make(chan struct{})
	if runTUI && confirm.IsTerminal(os.Stdout) {
		session = tui.Start(target, emitter.Events())
		close(printerDone)
	} else {
		go func() {
			defer close(printerDone)
			printEvents(emitter.Events())
		}()
	}

	confirmer := comps.confirmer(cfg, session)

	orch, err := orchestrator.New(orchestrator.RequiredConfig{
		ProjectRoot: root,
		Source:      comps.source,
		Workspaces:  comps.workspaces,
		Validator:   comps.validator,
		Confirmer:   confirmer,
	},
		orchestrator.WithMaxWorkers(cfg.Validation.MaxWorkers),
		orchestrator.WithTieBreak(orchestrator.TieBreak(cfg.Selection.TieBreak)),
		orchestrator.WithLogger(logger),
		orchestrator.WithLedger(comps.ledgerStore()),
		orchestrator.WithMetrics(comps.metrics),
		orchestrator.WithEventEmitter(emitter),
		orchestrator.WithDefaultCandidates(cfg.Generator.Candidates),
	)
	if err != nil {
		emitter.Close()
		if session != nil {
			session.Stop()
		}
		return err
	}

	report, runErr := orch.Run(ctx, orchestrator.Request{
		TargetPath: target,
		Prompt:     runPrompt,
		Count:      runCandidates,
	})
	emitter.Close()

	if session != nil {
		if err := session.Finish(report, runErr); err != nil {
			logger.Warn("tui: %v", err)
		}
	}
	<-printerDone

	if runMetricsFile != "" {
		if err := comps.metrics.WriteFile(runMetricsFile); err != nil {
			printStatus("⚠", fmt.Sprintf("Could not write metrics: %v", err), color.FgYellow)
		}
	}

	if report != nil {
		printReport(report)
	}
	if runErr != nil {
		return runErr
	}
	return outcomeError(report)
}

// applyRunFlags folds command-line overrides into cfg and revalidates it.
func applyRunFlags(cfg *config.Config) error {
	if runMode != "" {
		cfg.Workspace.Mode = runMode
	}
	if runProvider != "" {
		cfg.Generator.Provider = runProvider
	}
	if runModel != "" {
		cfg.Generator.Model = runModel
	}
	if runCandidatesFile != "" {
		cfg.Generator.Provider = config.ProviderFile
		cfg.Generator.CandidatesFile = runCandidatesFile
	}
	if runCandidates > 0 {
		cfg.Generator.Candidates = runCandidates
	}
	if runWorkers >= 0 {
		cfg.Validation.MaxWorkers = runWorkers
	}
	if runTieBreak != "" {
		cfg.Selection.TieBreak = runTieBreak
	}
	switch {
	case runYes:
		cfg.Apply.AutoConfirm = "yes"
	case runNo:
		cfg.Apply.AutoConfirm = "no"
	}
	return config.Validate(cfg)
}

// projectRelative turns a path given on the command line into a
// slash-separated path relative to root.
func projectRelative(root, cwd, arg string) (string, error) {
	abs := arg
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(cwd, arg)
	}
	rel, err := filepath.Rel(root, filepath.Clean(abs))
	if err != nil {
		return "", fmt.Errorf("resolve target %s: %w", arg, err)
	}
	if rel == "." || rel == ".." || filepath.IsAbs(rel) || len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator) {
		return "", fmt.Errorf("target %s is outside the project root %s", arg, root)
	}
	return filepath.ToSlash(rel), nil
}

// outcomeError maps a finished round to the command's exit status. Only an
// applied round or a round the user chose to reject exits zero.
func outcomeError(report *models.RoundReport) error {
	if report == nil {
		return nil
	}
	switch report.Outcome {
	case models.OutcomeApplied, models.OutcomeRejected:
		return nil
	case models.OutcomeNoWinner:
		return errors.New("no candidate passed validation")
	case models.OutcomeDrifted:
		return fmt.Errorf("%s changed during the round; nothing was written", report.TargetPath)
	default:
		return fmt.Errorf("round ended with outcome %s", report.Outcome)
	}
}
