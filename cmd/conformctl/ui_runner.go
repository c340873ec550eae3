package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"conform/internal/fixture"
	"conform/internal/report"
	"conform/internal/ui"
)

type uiMode string

const (
	uiModeAuto uiMode = "auto"
	uiModeOn   uiMode = "on"
	uiModeOff  uiMode = "off"
)

func readUIMode(value string) (uiMode, error) {
	switch mode := uiMode(strings.TrimSpace(strings.ToLower(value))); mode {
	case "":
		return uiModeAuto, nil
	case uiModeAuto, uiModeOn, uiModeOff:
		return mode, nil
	default:
		return "", fmt.Errorf("invalid --ui value %q (expected auto|on|off)", value)
	}
}

// showsProgress decides whether evaluating m renders the progress view.
// In auto mode the view needs a terminal and queries that actually run
// side by side; sequential runs finish in query order and print plain.
func (mode uiMode) showsProgress(m *fixture.Module, jobs int, tty bool) bool {
	switch mode {
	case uiModeOn:
		return true
	case uiModeOff:
		return false
	}
	if !tty || len(m.Queries) < 2 {
		return false
	}
	return report.EffectiveJobs(m, jobs) > 1
}

type evaluateOutcome struct {
	report *report.Report
	err    error
}

// evaluateWithUI runs report.Evaluate on a goroutine while a Bubble Tea
// program renders its progress events.
func evaluateWithUI(ctx context.Context, m *fixture.Module, opts report.Options) (*report.Report, error) {
	events := make(chan report.Event, 256)
	outcomeCh := make(chan evaluateOutcome, 1)

	go func() {
		optsCopy := opts
		optsCopy.Progress = report.ChannelSink{Ch: events}
		rep, err := report.Evaluate(ctx, m, optsCopy)
		outcomeCh <- evaluateOutcome{report: rep, err: err}
		close(events)
	}()

	labels := make([]string, len(m.Queries))
	for i, q := range m.Queries {
		labels[i] = report.QueryLabel(m, q)
	}
	model := ui.NewProgressModel(m.Name, labels, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stderr))
	_, uiErr := program.Run()
	// the program may quit early; keep the sink from blocking the evaluation
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.report, uiErr
	}
	return outcome.report, outcome.err
}
