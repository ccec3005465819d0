// Package progress renders a live, scrolling view of build log output while
// a build runs. It bridges a [log.Publisher] to a Bubble Tea program: every
// entry written to the publisher during the build appears in the view as it
// arrives, instead of scrolling past in a plain terminal.
package progress

import (
	"context"
	"os"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"golang.org/x/term"

	"go.jacobcolvin.com/struktur/log"
)

// lineMsg carries one published log entry into the Bubble Tea update loop.
type lineMsg string

// doneMsg signals that the publisher's feed has gone quiet, either because
// the build finished and closed it or because the subscription itself was
// torn down.
type doneMsg struct{}

type model struct {
	sub    *log.Subscription
	lines  []string
	width  int
	height int
	done   bool
}

func newModel(sub *log.Subscription, width, height int) *model {
	return &model{sub: sub, width: width, height: height}
}

// terminalSize detects the current terminal width and height, falling back
// to a plain 80x24 guess when detection fails (piped output, no tty) --
// the same fallback shape as the teacher's own width flag default.
func terminalSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80, 24
	}

	return w, h
}

func (m *model) Init() tea.Cmd {
	return m.waitForLine()
}

// waitForLine returns a command that blocks on the subscription's channel
// and turns the next entry (or its closure) into a message, mirroring the
// teacher's readFrame pattern of one in-flight read per tick of the loop.
func (m *model) waitForLine() tea.Cmd {
	sub := m.sub

	return func() tea.Msg {
		entry, ok := <-sub.C()
		if !ok {
			return doneMsg{}
		}

		return lineMsg(strings.TrimRight(string(entry), "\n"))
	}
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyPressMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case lineMsg:
		m.lines = append(m.lines, string(msg))

		return m, m.waitForLine()

	case doneMsg:
		m.done = true

		return m, tea.Quit
	}

	return m, nil
}

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("6"))
	footerStyle = lipgloss.NewStyle().Faint(true)
)

// visibleLines returns the tail of m.lines that fits within the current
// terminal height, reserving one row for the header and one for the footer.
func (m *model) visibleLines() []string {
	room := m.height - 2
	if room < 1 {
		room = 1
	}

	if len(m.lines) <= room {
		return m.lines
	}

	return m.lines[len(m.lines)-room:]
}

// renderContent builds the view's text body. Kept separate from View so
// tests can check the rendered text without going through tea.View.
func (m *model) renderContent() string {
	var b strings.Builder

	b.WriteString(headerStyle.Render("struktur build"))
	b.WriteByte('\n')

	for _, line := range m.visibleLines() {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if m.done {
		b.WriteString(footerStyle.Render("build finished"))
	} else {
		b.WriteString(footerStyle.Render("building..."))
	}

	return b.String()
}

func (m *model) View() tea.View {
	v := tea.NewView(m.renderContent())
	v.AltScreen = true

	return v
}

// Run drives a live view of pub's feed while work runs, returning work's
// error once it completes. The view exits on its own once the build
// finishes and pub is closed, or early if the user presses q, esc, or
// ctrl+c, in which case ctx is canceled so work can unwind promptly.
func Run(ctx context.Context, pub *log.Publisher, work func(ctx context.Context) error) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sub := pub.Subscribe()
	defer sub.Close()

	width, height := terminalSize()
	program := tea.NewProgram(newModel(sub, width, height))

	workErr := make(chan error, 1)

	go func() {
		err := work(ctx)
		pub.Close()
		workErr <- err
	}()

	_, runErr := program.Run()
	cancel()

	if err := <-workErr; err != nil {
		return err
	}

	return runErr
}
