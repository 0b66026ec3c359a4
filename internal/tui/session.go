package tui

import (
	"io"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/ShayCichocki/bakeoff/internal/orchestrator"
	"github.com/ShayCichocki/bakeoff/pkg/models"
)

// Session runs a RoundApp on the terminal and feeds it round events.
type Session struct {
	program *tea.Program
	app     *RoundApp
	done    chan struct{}
	once    sync.Once
	err     error
}

// Start launches the view and forwards events until the channel closes or
// the session stops. Extra program options are passed through, which tests
// use to run without a terminal.
func Start(target string, events <-chan orchestrator.RoundEvent, opts ...tea.ProgramOption) *Session {
	app := NewRoundApp(target)
	s := &Session{
		program: tea.NewProgram(app, opts...),
		app:     app,
		done:    make(chan struct{}),
	}

	go func() {
		defer close(s.done)
		_, s.err = s.program.Run()
	}()

	if events != nil {
		go func() {
			for ev := range events {
				select {
				case <-s.done:
					// Keep draining so the emitter never blocks on us.
					continue
				default:
				}
				s.program.Send(EventMsg{Event: ev})
			}
		}()
	}

	return s
}

// StartHeadless runs the view with no terminal, rendering to out.
func StartHeadless(target string, events <-chan orchestrator.RoundEvent, out io.Writer) *Session {
	return Start(target, events, tea.WithInput(nil), tea.WithOutput(out))
}

// Stop releases the terminal and waits for the view to exit.
func (s *Session) Stop() error {
	s.once.Do(func() {
		s.program.Quit()
	})
	<-s.done
	return s.err
}

// Finish shows the round result and waits for the view to exit.
func (s *Session) Finish(report *models.RoundReport, err error) error {
	select {
	case <-s.done:
	default:
		s.program.Send(DoneMsg{Report: report, Err: err})
	}
	return s.Stop()
}

// App returns the underlying model.
func (s *Session) App() *RoundApp {
	return s.app
}
