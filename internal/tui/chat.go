// Package tui provides the interactive chat interface.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/mwiater/gyan/internal/logging"
	"github.com/mwiater/gyan/internal/rag"
	"github.com/mwiater/gyan/internal/util"
)

// Asker answers one query. *rag.Service satisfies it.
type Asker interface {
	Ask(ctx context.Context, query, subject string) rag.Reply
}

// Options describe the session shown in the header.
type Options struct {
	Host      string
	Model     string
	Subject   string
	Generator bool
	Entries   int
	Debug     bool
}

// chatMessage is one line of the transcript.
type chatMessage struct {
	Role    string
	Content string
	Reply   *rag.Reply
}

// answerMsg carries a finished reply back to Update.
type answerMsg struct {
	reply   rag.Reply
	elapsed time.Duration
}

// tickMsg keeps the elapsed timer moving while a question is in flight.
type tickMsg time.Time

const subjectCommand = "/subject"

// model is the Bubble Tea model for the chat screen.
type model struct {
	ctx              context.Context
	asker            Asker
	opts             Options
	subject          string
	isLoading        bool
	textArea         textarea.Model
	viewport         viewport.Model
	spinner          spinner.Model
	history          []chatMessage
	lastElapsed      time.Duration
	width, height    int
	requestStartTime time.Time
}

func initialModel(ctx context.Context, asker Asker, opts Options) *model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ta := textarea.New()
	ta.Placeholder = "Ask a question, or /subject Science"
	ta.Focus()
	ta.Prompt = "Ask: "
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(1)
	ta.KeyMap.InsertNewline.SetEnabled(false)

	return &model{
		ctx:      ctx,
		asker:    asker,
		opts:     opts,
		subject:  opts.Subject,
		textArea: ta,
		viewport: viewport.New(100, 5),
		spinner:  s,
	}
}

func askCmd(ctx context.Context, asker Asker, query, subject string) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		ctx = logging.WithRequestID(ctx, uuid.NewString())
		reply := asker.Ask(ctx, query, subject)
		return answerMsg{reply: reply, elapsed: time.Since(start)}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(time.Millisecond*100, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Init starts the spinner.
func (m *model) Init() tea.Cmd {
	return m.spinner.Tick
}

// Update handles keys, window resizes and finished answers.
func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		cmd  tea.Cmd
		cmds []tea.Cmd
	)

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.textArea.SetWidth(msg.Width - 3)
		headerHeight := 3
		footerHeight := 3
		m.viewport.Width = msg.Width
		m.viewport.Height = max(3, msg.Height-headerHeight-footerHeight)

	case answerMsg:
		reply := msg.reply
		m.history = append(m.history, chatMessage{Role: "assistant", Content: reply.Answer, Reply: &reply})
		m.lastElapsed = msg.elapsed
		m.isLoading = false
		m.textArea.Focus()
		m.viewport.GotoBottom()
		return m, nil

	case tickMsg:
		if m.isLoading {
			return m, tickCmd()
		}
		return m, nil
	}

	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)

	if !m.isLoading {
		m.textArea, cmd = m.textArea.Update(msg)
		cmds = append(cmds, cmd)
	}

	if key, ok := msg.(tea.KeyMsg); ok && key.String() == "enter" && !m.isLoading {
		input := strings.TrimSpace(m.textArea.Value())
		m.textArea.Reset()
		switch {
		case input == "":
		case strings.HasPrefix(input, subjectCommand):
			m.subject = strings.TrimSpace(strings.TrimPrefix(input, subjectCommand))
		default:
			m.history = append(m.history, chatMessage{Role: "user", Content: input})
			m.isLoading = true
			m.requestStartTime = time.Now()
			cmds = append(cmds, m.spinner.Tick, askCmd(m.ctx, m.asker, input, m.subject), tickCmd())
		}
	}

	if m.isLoading {
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// View renders the header, transcript and input line.
func (m *model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var builder strings.Builder
	builder.WriteString(m.header() + "\n\n")

	var historyBuilder strings.Builder
	userStyle := lipgloss.NewStyle().Bold(true)
	assistantStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("5"))
	for _, msg := range m.history {
		role := userStyle.Render("You: ")
		if msg.Role == "assistant" {
			role = assistantStyle.Render("Gyan: ")
		}
		content := lipgloss.NewStyle().Width(max(10, m.width-lipgloss.Width(role)-2)).Render(msg.Content)
		historyBuilder.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, role, content) + "\n")
		if m.opts.Debug && msg.Reply != nil {
			historyBuilder.WriteString(formatReplyMeta(*msg.Reply) + "\n")
		}
	}
	m.viewport.SetContent(historyBuilder.String())
	builder.WriteString(m.viewport.View())

	if m.isLoading {
		timer := fmt.Sprintf("%.1f", time.Since(m.requestStartTime).Seconds())
		builder.WriteString("\n" + m.spinner.View() + fmt.Sprintf(" Searching and answering... %ss", timer))
	} else {
		builder.WriteString("\n" + m.textArea.View())
	}
	return builder.String()
}

func (m *model) header() string {
	labelStyle := lipgloss.NewStyle().Background(lipgloss.Color("0")).Foreground(lipgloss.Color("255")).Padding(0, 1)
	headerStyle := lipgloss.NewStyle().Background(lipgloss.Color("62")).Foreground(lipgloss.Color("230")).Padding(0, 1).MarginLeft(1)

	subject := m.subject
	if subject == "" {
		subject = "any"
	}
	status := lipgloss.JoinHorizontal(lipgloss.Top,
		labelStyle.Render("gyan"),
		headerStyle.Render(fmt.Sprintf("Corpus: %d entries", m.opts.Entries)),
		headerStyle.Render("Subject: "+subject),
		renderGeneratorBadge(m.opts),
	)
	help := lipgloss.NewStyle().Foreground(lipgloss.Color("244")).Render(" (esc to quit)")
	return status + help
}

// renderGeneratorBadge shows which host answers, or that none is configured.
func renderGeneratorBadge(opts Options) string {
	label := "Generator: not loaded"
	background := lipgloss.Color("9")
	if opts.Generator {
		label = "Generator: " + opts.Host
		if opts.Model != "" {
			label += " / " + opts.Model
		}
		background = lipgloss.Color("229")
	}
	return lipgloss.NewStyle().Background(background).Foreground(lipgloss.Color("0")).Padding(0, 1).MarginLeft(1).Render(label)
}

// formatReplyMeta summarizes how an answer was produced.
func formatReplyMeta(reply rag.Reply) string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	if reply.Result == nil || reply.Outcome == rag.OutcomeNoMatch {
		return style.Render(fmt.Sprintf("  >>> [Outcome: %s]", reply.Outcome))
	}
	res := reply.Result
	return style.Render(fmt.Sprintf(
		"  >>> [Outcome: %s] [Score: %.3f | Cosine: %.3f | Boost: %.2f] [Embed: %dms | Rank: %dms] [Passage: %s]",
		reply.Outcome,
		res.Match.Score,
		res.Match.Cosine,
		res.Match.Boost,
		res.Timings.Embed.Milliseconds(),
		res.Timings.Rank.Milliseconds(),
		util.Preview(res.Match.Entry.Text, 60),
	))
}

// Run starts the chat program and blocks until the user quits.
func Run(ctx context.Context, asker Asker, opts Options) error {
	m := initialModel(ctx, asker, opts)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run chat: %w", err)
	}
	return nil
}
