package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/ShayCichocki/bakeoff/internal/orchestrator"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// printStatus prints a status message with a colored symbol.
func printStatus(symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Printf("%s %s\n", c.Sprint(symbol), message)
}

// printEvents prints one status line per round event until events closes.
func printEvents(events <-chan orchestrator.RoundEvent) {
	for ev := range events {
		if symbol, msg, attr, ok := eventLine(ev); ok {
			printStatus(symbol, msg, attr)
		}
	}
}

// eventLine renders an event as a status symbol and message. Events that
// need no line report ok=false.
func eventLine(ev orchestrator.RoundEvent) (symbol, msg string, attr color.Attribute, ok bool) {
	switch ev.Type {
	case orchestrator.EventRoundStarted:
		return "●", fmt.Sprintf("Round %s: %s", ev.RoundID, ev.Message), color.FgCyan, true
	case orchestrator.EventCandidatesGenerated:
		return "●", fmt.Sprintf("Generated %d candidate(s)", ev.Count), color.FgCyan, true
	case orchestrator.EventWorkspaceFailed:
		return "✗", fmt.Sprintf("candidate %d: workspace failed: %v", ev.CandidateID, ev.Error), color.FgRed, true
	case orchestrator.EventValidationCompleted:
		d := ev.Duration.Round(time.Millisecond)
		if ev.Status == models.StatusSuccess {
			return "✓", fmt.Sprintf("candidate %d: %s (%s)", ev.CandidateID, ev.Status, d), color.FgGreen, true
		}
		return "✗", fmt.Sprintf("candidate %d: %s (%s)", ev.CandidateID, ev.Status, d), color.FgRed, true
	case orchestrator.EventWinnerSelected:
		return "★", fmt.Sprintf("Winner: candidate %d", ev.CandidateID), color.FgGreen, true
	case orchestrator.EventDrift:
		return "⚠", ev.Message, color.FgYellow, true
	case orchestrator.EventCleanup:
		return "●", fmt.Sprintf("Removed %d workspace(s)", ev.Count), color.FgCyan, true
	default:
		return "", "", 0, false
	}
}

// printReport prints the per-candidate summary and the outcome.
func printReport(report *models.RoundReport) {
	fmt.Println()
	fmt.Printf("Round %s on %s\n", report.RoundID, report.TargetPath)
	for _, c := range report.Candidates {
		res, ok := report.Result(c.ID)
		if !ok {
			fmt.Printf("  candidate %d: no result\n", c.ID)
			continue
		}
		status := res.Status.String()
		if res.Succeeded() {
			status = color.GreenString(status)
		} else {
			status = color.RedString(status)
		}
		marker := " "
		if report.Winner != nil && report.Winner.CandidateID == c.ID {
			marker = color.GreenString("★")
		}
		fmt.Printf(" %s candidate %d: %s\n", marker, c.ID, status)
		if !res.Succeeded() && res.Diagnostic != "" {
			for _, line := range strings.Split(strings.TrimRight(res.Diagnostic, "\n"), "\n") {
				fmt.Printf("      %s\n", line)
			}
		}
	}

	switch report.Outcome {
	case models.OutcomeApplied:
		fmt.Printf("\n%s Applied candidate %d to %s\n", color.GreenString("✓"), report.Winner.CandidateID, report.TargetPath)
	case models.OutcomeRejected:
		fmt.Printf("\n%s Change rejected; %s left untouched\n", color.YellowString("•"), report.TargetPath)
	case models.OutcomeNoWinner:
		fmt.Printf("\n%s No candidate passed; %s left untouched\n", color.RedString("✗"), report.TargetPath)
	case models.OutcomeDrifted:
		fmt.Printf("\n%s %s changed during the round; nothing written\n", color.YellowString("⚠"), report.TargetPath)
	default:
		fmt.Printf("\n%s Round %s\n", color.RedString("✗"), report.Outcome)
	}
}
