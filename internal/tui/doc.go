// Package tui provides the terminal view for a bakeoff round.
//
// The view is read-only. It follows the orchestrator's event stream and shows
// one row per candidate with its workspace and validation status, a short
// activity log, and the round outcome once the round closes. Users can only
// quit with 'q' or Ctrl+C.
//
// Usage:
//
//	session := tui.Start(req.TargetPath, emitter.Events())
//	report, err := orch.Run(ctx, req)
//	session.Finish(report, err)
//
// Confirmation needs the terminal, so callers Stop the session before prompting.
package tui
