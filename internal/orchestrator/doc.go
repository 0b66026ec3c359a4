// Package orchestrator runs validation rounds.
//
// A round moves through a fixed sequence:
//   - Generate: ask the candidate source for N candidates
//   - Create workspaces: one isolated workspace per candidate, sequentially
//   - Dispatch: validate candidates on a bounded worker Pool
//   - Select: pick a winner among the successes (SelectWinner)
//   - Apply or reject: ask the confirmer, then write the winner atomically
//   - Cleanup: destroy every workspace, always
//
// Results are collected in completion order and carry their candidate ID.
// The primary project tree is read once at round start and written at most
// once, after confirmation. A DriftWatcher refuses the write when the target
// changed on disk while the round ran.
//
// Example usage:
//
//	orch, err := orchestrator.New(orchestrator.RequiredConfig{
//		ProjectRoot: root,
//		Source:      source,
//		Workspaces:  manager,
//		Validator:   validator,
//		Confirmer:   confirm.Fixed(true),
//	}, orchestrator.WithMaxWorkers(4))
//	report, err := orch.Run(ctx, orchestrator.Request{TargetPath: "calc.py", Prompt: "handle division by zero"})
package orchestrator
