package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/fatih/color"

	"github.com/ShayCichocki/bakeoff/internal/api"
	"github.com/ShayCichocki/bakeoff/internal/config"
	"github.com/ShayCichocki/bakeoff/internal/confirm"
	"github.com/ShayCichocki/bakeoff/internal/exec"
	"github.com/ShayCichocki/bakeoff/internal/generate"
	"github.com/ShayCichocki/bakeoff/internal/git"
	"github.com/ShayCichocki/bakeoff/internal/logging"
	"github.com/ShayCichocki/bakeoff/internal/orchestrator"
	"github.com/ShayCichocki/bakeoff/internal/protect"
	"github.com/ShayCichocki/bakeoff/internal/state"
	"github.com/ShayCichocki/bakeoff/internal/syntax"
	"github.com/ShayCichocki/bakeoff/internal/testrunner"
	"github.com/ShayCichocki/bakeoff/internal/tui"
	"github.com/ShayCichocki/bakeoff/internal/validation"
	"github.com/ShayCichocki/bakeoff/internal/workspace"
)

// routeExtensions are the source files offered to the router.
var routeExtensions = []string{".go", ".py", ".js", ".jsx", ".mjs", ".ts", ".tsx", ".rs", ".sh"}

// components is everything a round needs, built from config.
type components struct {
	completer  api.Completer
	source     generate.Source
	workspaces *workspace.Manager
	validator  *validation.Validator
	detector   *protect.Detector
	metrics    *orchestrator.Metrics
	ledger     *state.DB
	runner     exec.CommandRunner
	logger     *logging.Logger
}

func buildComponents(root string, cfg *config.Config, logger *logging.Logger) (*components, error) {
	c := &components{
		metrics: orchestrator.NewMetrics(),
		runner:  exec.NewRunner(),
		logger:  logger,
	}

	var err error
	if c.completer, err = newCompleter(cfg); err != nil {
		return nil, err
	}
	c.source = newSource(cfg, c.completer, logger)

	if c.workspaces, _, err = newWorkspaceManager(root, cfg, logger); err != nil {
		return nil, err
	}

	checker := syntax.NewValidator(syntax.WithRunner(c.runner))
	tests := testrunner.NewAdapter(c.runner, testrunner.WithCommands(cfg.Validation.TestCommands))
	c.validator = validation.NewValidator(checker, tests,
		validation.WithTimeout(cfg.Validation.TestTimeout),
		validation.WithLogger(logger),
	)

	if c.detector, err = protect.ForProject(root); err != nil {
		return nil, fmt.Errorf("load protected areas: %w", err)
	}

	// The ledger only serves crash recovery; a round still runs without it.
	if c.ledger, err = state.OpenProject(root); err != nil {
		logger.Warn("round ledger unavailable: %v", err)
		printStatus("⚠", fmt.Sprintf("Round ledger unavailable: %v", err), color.FgYellow)
		c.ledger = nil
	}

	return c, nil
}

// Close releases the ledger.
func (c *components) Close() {
	if c.ledger != nil {
		if err := c.ledger.Close(); err != nil {
			c.logger.Warn("close ledger: %v", err)
		}
	}
}

// ledgerStore returns the ledger as a RoundStore, or a nil interface.
func (c *components) ledgerStore() state.RoundStore {
	if c.ledger == nil {
		return nil
	}
	return c.ledger
}

// route asks the model which file a request should change.
func (c *components) route(ctx context.Context, root, prompt, scope string) (string, error) {
	if c.completer == nil {
		return "", errors.New("a target file is required when candidates come from a file")
	}
	files, err := generate.ListFiles(root, scope, routeExtensions)
	if err != nil {
		return "", fmt.Errorf("list project files: %w", err)
	}
	return generate.NewRouter(c.completer).Route(ctx, prompt, files, scope)
}

// confirmer builds the confirmation chain: the protected-area check wraps
// the configured answer policy, and a running view is stopped before a
// human is asked.
func (c *components) confirmer(cfg *config.Config, session *tui.Session) confirm.Confirmer {
	presenter := confirm.NewPresenter(c.runner, confirm.IsTerminal(os.Stdout))

	var next confirm.Confirmer
	switch cfg.Apply.AutoConfirm {
	case "yes":
		next = confirm.Fixed(true)
	case "no":
		next = confirm.Fixed(false)
	default:
		if confirm.IsTerminal(os.Stdin) && confirm.IsTerminal(os.Stdout) {
			next = confirm.NewForm(os.Stdout, presenter)
		} else {
			next = confirm.NewPrompt(os.Stdin, os.Stdout, presenter)
		}
	}

	protected := confirm.NewProtected(c.detector, next, c.logger)
	protected.OnRefused = func(reason string) {
		printStatus("⚠", fmt.Sprintf("Not applying automatically: %s", reason), color.FgYellow)
	}

	if session == nil {
		return protected
	}
	return confirm.Func(func(ctx context.Context, p confirm.Proposal) (bool, error) {
		if err := session.Stop(); err != nil {
			c.logger.Warn("tui: %v", err)
		}
		return protected.Confirm(ctx, p)
	})
}

// newCompleter returns the model client for the configured provider, or nil
// for the file provider.
func newCompleter(cfg *config.Config) (api.Completer, error) {
	g := cfg.Generator
	switch g.Provider {
	case config.ProviderAnthropic:
		key := ""
		if !g.UseBedrock {
			var err error
			if key, err = config.GetAPIKey(cfg); err != nil {
				return nil, err
			}
		}
		client, err := api.NewClient(api.ClientConfig{
			Model:         anthropic.Model(g.Model),
			APIKey:        key,
			UseAWSBedrock: g.UseBedrock,
			AWSRegion:     g.AWSRegion,
			AWSProfile:    g.AWSProfile,
			BaseURL:       g.BaseURL,
		})
		if err != nil {
			return nil, fmt.Errorf("create anthropic client: %w", err)
		}
		return client, nil
	case config.ProviderOpenAI:
		// Local servers need no key, so a missing one is not an error.
		key, _ := config.GetAPIKey(cfg)
		return api.NewOpenAIClient(api.OpenAIConfig{
			BaseURL: g.BaseURL,
			APIKey:  key,
			Model:   g.Model,
		}), nil
	case config.ProviderFile:
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown generator provider %q", g.Provider)
	}
}

func newSource(cfg *config.Config, completer api.Completer, logger *logging.Logger) generate.Source {
	g := cfg.Generator
	if g.Provider == config.ProviderFile {
		return generate.NewFileSource(g.CandidatesFile)
	}
	return generate.NewModelSource(completer,
		generate.WithConcurrency(g.Concurrency),
		generate.WithRateLimit(g.RateLimit),
		generate.WithTemperature(g.Temperature),
		generate.WithModelLogger(logger),
	)
}

// workspaceBaseDir is where this project's workspaces live.
func workspaceBaseDir(root string, cfg *config.Config) (string, error) {
	if cfg.Workspace.BaseDir != "" {
		return cfg.Workspace.BaseDir, nil
	}
	base, err := workspace.DefaultBaseDir()
	if err != nil {
		return "", err
	}
	return workspace.ProjectBaseDir(base, root), nil
}

func newCheckout(root, baseDir, mode string) workspace.Checkout {
	if mode == workspace.ModeCopy {
		return workspace.NewCopyCheckout(root, baseDir, filepath.Join(root, ".bakeoff"))
	}
	return workspace.NewGitCheckout(git.NewRunner(root))
}

// newWorkspaceManager builds the manager and returns the checkout primitive
// it uses, which cleanup needs for workspaces the manager no longer tracks.
func newWorkspaceManager(root string, cfg *config.Config, logger *logging.Logger) (*workspace.Manager, workspace.Checkout, error) {
	baseDir, err := workspaceBaseDir(root, cfg)
	if err != nil {
		return nil, nil, err
	}
	if abs, err := filepath.Abs(baseDir); err == nil {
		baseDir = abs
	}

	checkout := newCheckout(root, baseDir, cfg.Workspace.Mode)
	m, err := workspace.NewManager(baseDir, checkout,
		workspace.WithLogger(logger),
		workspace.WithBaseRef(cfg.Workspace.BaseRef),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("create workspace manager: %w", err)
	}
	return m, checkout, nil
}
