package main

import (
	"context"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"bindc/internal/driver"
	"bindc/internal/ui"
)

type generateOutcome struct {
	result *driver.Result
	err    error
}

// runGenerateWithUI runs the pipeline behind a live progress view. Events are
// buffered so a slow terminal never blocks a worker goroutine.
func runGenerateWithUI(ctx context.Context, title string, triples []string, req driver.Request) (*driver.Result, error) {
	events := make(chan driver.Event, 256)
	outcomeCh := make(chan generateOutcome, 1)

	go func() {
		req.OnEvent = func(ev driver.Event) { events <- ev }
		res, err := driver.Generate(ctx, req)
		outcomeCh <- generateOutcome{result: res, err: err}
		close(events)
	}()

	model := ui.NewProgressModel(title, triples, events)
	program := tea.NewProgram(model, tea.WithOutput(os.Stdout))
	_, uiErr := program.Run()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}
