package cli

import (
	"context"
	"fmt"
	"time"

	"charm.land/bubbles/v2/progress"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/corrx/internal/explainer"
	"github.com/raphaelgruber/corrx/internal/run"
)

const pollInterval = 250 * time.Millisecond

// Theme holds the color scheme for the progress display.
type Theme struct {
	Status  lipgloss.Color
	Success lipgloss.Color
	Error   lipgloss.Color
	Hint    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	Status:  lipgloss.Color("#5FAFD7"), // light blue
	Success: lipgloss.Color("#00D787"), // green
	Error:   lipgloss.Color("#FF005F"), // red
	Hint:    lipgloss.Color("#6C6C6C"), // dim gray
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

func (t Theme) completedStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Success).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error).Bold(true)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

// tickMsg triggers polling the matcher progress.
type tickMsg time.Time

// doneMsg carries the run result once Execute returns.
type doneMsg struct {
	expl *explainer.Explainer
	err  error
}

// matchModel is the bubbletea model for an in-process matching run.
type matchModel struct {
	runner   *run.Runner
	results  <-chan doneMsg
	cancel   context.CancelFunc
	progress progress.Model
	theme    Theme
	checked  int64
	total    int64
	done     bool
	quitting bool
	expl     *explainer.Explainer
	err      error
}

func newMatchModel(runner *run.Runner, results <-chan doneMsg, cancel context.CancelFunc) matchModel {
	prog := progress.New(
		progress.WithDefaultBlend(),
		progress.WithWidth(40),
	)

	return matchModel{
		runner:   runner,
		results:  results,
		cancel:   cancel,
		progress: prog,
		theme:    defaultTheme,
	}
}

// Init returns the initial command (start polling).
func (m matchModel) Init() tea.Cmd {
	return tea.Batch(
		tickCmd(),
		m.progress.Init(),
	)
}

// Update handles messages and returns the updated model.
func (m matchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			m.quitting = true
			m.cancel()
			// Keep polling so the cancellation result arrives.
			return m, tickCmd()
		}

	case tickMsg:
		select {
		case res := <-m.results:
			m.done = true
			m.expl = res.expl
			m.err = res.err
			return m, tea.Quit
		default:
		}
		m.checked, m.total = m.runner.Progress()
		return m, tickCmd()

	case progress.FrameMsg:
		var cmd tea.Cmd
		m.progress, cmd = m.progress.Update(msg)
		return m, cmd
	}

	return m, nil
}

// View renders the progress display.
func (m matchModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m matchModel) renderContent() string {
	if m.done {
		return m.finalView()
	}

	if m.total == 0 {
		status := m.theme.statusStyle().Render("[loading]")
		return fmt.Sprintf("%s Loading graph and correlation matrix...\n", status)
	}

	pct := float64(m.checked) / float64(m.total)
	status := m.theme.statusStyle().Render("[matching]")
	progressBar := m.progress.ViewAs(pct)
	counts := fmt.Sprintf("%d/%d pairs", m.checked, m.total)
	hint := m.theme.hintStyle().Render("Press Ctrl+C to cancel")

	return fmt.Sprintf("%s %s %s\n%s\n", status, progressBar, counts, hint)
}

// finalView renders the completion message.
func (m matchModel) finalView() string {
	if m.err != nil {
		if m.quitting {
			return m.theme.hintStyle().Render("\nRun cancelled.\n")
		}
		return m.theme.errorStyle().Render(fmt.Sprintf("\n✗ Run failed: %s\n", m.err))
	}
	return m.theme.completedStyle().Render(fmt.Sprintf("✓ Matched %d pairs\n", m.total))
}

// tickCmd returns a command that sends a tick after the poll interval.
func tickCmd() tea.Cmd {
	return tea.Tick(pollInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// runMatchProgress executes the runner with an interactive progress bar.
// Ctrl+C cancels the run and returns the cancellation error.
func runMatchProgress(ctx context.Context, runner *run.Runner) (*explainer.Explainer, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the worker never blocks if the UI exits first.
	results := make(chan doneMsg, 1)
	go func() {
		expl, err := runner.Execute(ctx)
		results <- doneMsg{expl: expl, err: err}
	}()

	model := newMatchModel(runner, results, cancel)
	p := tea.NewProgram(model)

	finalModel, err := p.Run()
	if err != nil {
		return nil, fmt.Errorf("progress UI error: %w", err)
	}

	if m, ok := finalModel.(matchModel); ok {
		return m.expl, m.err
	}
	return nil, fmt.Errorf("progress UI returned unexpected model")
}
