package cli

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"github.com/charmbracelet/lipgloss"

	"github.com/raphaelgruber/profilechat/internal/conversation"
)

// Theme holds the color scheme for the chat display.
type Theme struct {
	User      lipgloss.Color
	Assistant lipgloss.Color
	Error     lipgloss.Color
	Hint      lipgloss.Color
	Status    lipgloss.Color
}

// defaultTheme provides default colors.
var defaultTheme = Theme{
	User:      lipgloss.Color("#5FAFD7"), // light blue
	Assistant: lipgloss.Color("#00D787"), // green
	Error:     lipgloss.Color("#FF005F"), // red
	Hint:      lipgloss.Color("#6C6C6C"), // dim gray
	Status:    lipgloss.Color("#AF87FF"), // lavender
}

// Style functions for dynamic theming
func (t Theme) userStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.User).Bold(true)
}

func (t Theme) assistantStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Assistant).Bold(true)
}

func (t Theme) errorStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Error)
}

func (t Theme) hintStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Hint).Italic(true)
}

func (t Theme) statusStyle() lipgloss.Style {
	return lipgloss.NewStyle().Foreground(t.Status)
}

// chatLine is one rendered entry of the chat history.
type chatLine struct {
	role    conversation.Role
	kind    conversation.TurnKind
	content string
	notice  bool
}

// turnMsg carries the reply to a submitted message.
type turnMsg struct {
	turn conversation.Turn
	err  error
}

// commandMsg carries the output of a slash command.
type commandMsg struct {
	text string
	quit bool
}

// chatModel is the bubbletea model for the interactive chat.
type chatModel struct {
	session chatSession
	input   textinput.Model
	spinner spinner.Model
	theme   Theme
	lines   []chatLine
	width   int
	waiting bool
}

// newChatModel creates a new chat model.
func newChatModel(s chatSession) chatModel {
	in := textinput.New()
	in.Placeholder = "Write a message, or /help"
	in.CharLimit = 4000
	in.Focus()

	return chatModel{
		session: s,
		input:   in,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		theme:   defaultTheme,
	}
}

// Init returns the initial command (cursor blink).
func (m chatModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update handles messages and returns the updated model.
func (m chatModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		case "enter":
			if m.waiting {
				return m, nil
			}
			return m.handleInput(m.input.Value())
		}

	case turnMsg:
		m.waiting = false
		if msg.err != nil {
			m.lines = append(m.lines, chatLine{kind: conversation.KindError, content: fmt.Sprintf("❌ Error: %v", msg.err), notice: true})
			return m, nil
		}
		m.lines = append(m.lines, chatLine{role: msg.turn.Role, kind: msg.turn.Kind, content: msg.turn.Content})
		return m, nil

	case commandMsg:
		m.waiting = false
		if msg.quit {
			return m, tea.Quit
		}
		m.lines = append(m.lines, chatLine{content: msg.text, notice: true})
		return m, nil

	case spinner.TickMsg:
		if !m.waiting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleInput processes a line entered by the user.
func (m chatModel) handleInput(value string) (chatModel, tea.Cmd) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return m, nil
	}
	m.input.SetValue("")

	if strings.HasPrefix(trimmed, "/") {
		if strings.EqualFold(trimmed, cmdReset) {
			m.lines = nil
		}
		m.waiting = true
		return m, tea.Batch(m.spinner.Tick, m.command(trimmed))
	}

	m.lines = append(m.lines, chatLine{role: conversation.RoleUser, content: value})
	m.waiting = true
	return m, tea.Batch(m.spinner.Tick, m.send(value))
}

// send submits text to the session.
// Runs in a separate goroutine (command) to avoid blocking Update().
func (m chatModel) send(text string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		turn, err := s.Submit(context.Background(), text)
		return turnMsg{turn: turn, err: err}
	}
}

func (m chatModel) command(line string) tea.Cmd {
	s := m.session
	return func() tea.Msg {
		text, quit := runCommand(context.Background(), s, line)
		return commandMsg{text: text, quit: quit}
	}
}

// View renders the chat display.
func (m chatModel) View() tea.View {
	return tea.NewView(m.renderContent())
}

// renderContent builds the display string.
func (m chatModel) renderContent() string {
	var b strings.Builder

	if len(m.lines) == 0 {
		b.WriteString(m.theme.hintStyle().Render(conversation.Greeting))
		b.WriteString("\n\n")
	}

	body := lipgloss.NewStyle()
	if m.width > 0 {
		body = body.Width(m.width)
	}

	for _, l := range m.lines {
		switch {
		case l.notice && l.kind == conversation.KindError:
			b.WriteString(m.theme.errorStyle().Render(l.content))
		case l.notice:
			b.WriteString(m.theme.hintStyle().Render(l.content))
		case l.role == conversation.RoleUser:
			b.WriteString(m.theme.userStyle().Render("You: "))
			b.WriteString(body.Render(l.content))
		case l.kind == conversation.KindNormal:
			b.WriteString(m.theme.assistantStyle().Render("🤖 "))
			b.WriteString(body.Render(l.content))
		default:
			b.WriteString(m.theme.errorStyle().Render(l.content))
		}
		b.WriteString("\n\n")
	}

	if m.waiting {
		b.WriteString(m.spinner.View() + " thinking...\n")
	} else {
		b.WriteString(m.input.View() + "\n")
	}

	b.WriteString(m.theme.statusStyle().Render(statusLine(m.session)))
	b.WriteString(m.theme.hintStyle().Render("  ·  /save /reset /stats /quit  ·  Ctrl+C to exit"))
	b.WriteString("\n")
	return b.String()
}

// runTUI runs the interactive chat UI until the user quits.
func runTUI(s chatSession) error {
	p := tea.NewProgram(newChatModel(s))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("chat UI error: %w", err)
	}
	return nil
}
