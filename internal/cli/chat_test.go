package cli

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raphaelgruber/profilechat/internal/conversation"
	"github.com/raphaelgruber/profilechat/internal/metrics"
)

// fakeChat is an in-memory chatSession.
type fakeChat struct {
	submitted []string
	count     int
	resets    int
	exportErr error
	submitErr error
}

func (f *fakeChat) Submit(_ context.Context, text string) (conversation.Turn, error) {
	if f.submitErr != nil {
		return conversation.Turn{}, f.submitErr
	}
	f.submitted = append(f.submitted, text)
	f.count += 2
	return conversation.Turn{
		Role:      conversation.RoleAssistant,
		Content:   "reply to " + text,
		Kind:      conversation.KindNormal,
		Timestamp: time.Now(),
	}, nil
}

func (f *fakeChat) Reset(context.Context) error {
	f.resets++
	f.count = 0
	return nil
}

func (f *fakeChat) Export(context.Context) (string, error) {
	if f.count == 0 {
		return "", errNothingToSave
	}
	if f.exportErr != nil {
		return "", f.exportErr
	}
	return "logs/conversation_20250314_092653.txt", nil
}

func (f *fakeChat) Stats(context.Context) (*metrics.Snapshot, error) {
	c := metrics.NewCollector()
	c.RecordSubmit("normal", 120*time.Millisecond, 30, 10)
	c.RecordSubmit("blocked", 80*time.Millisecond, 0, 0)
	snap := c.Snapshot()
	return &snap, nil
}

func (f *fakeChat) Len() int         { return f.count }
func (f *fakeChat) Model() string    { return "gemini-test" }
func (f *fakeChat) Provider() string { return "Google Gemini" }

func TestREPL(t *testing.T) {
	f := &fakeChat{}
	in := strings.NewReader("hello\n\n/save\n/reset\n/save\nagain\n/quit\nignored\n")
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), f, in, &out))

	assert.Equal(t, []string{"hello", "again"}, f.submitted)
	assert.Equal(t, 1, f.resets)

	text := out.String()
	assert.True(t, strings.HasPrefix(text, conversation.Greeting))
	assert.Contains(t, text, "gemini-test · Google Gemini · 0 messages")
	assert.Contains(t, text, "🤖 reply to hello")
	assert.Contains(t, text, "Conversation saved to logs/conversation_20250314_092653.txt")
	assert.Contains(t, text, "Nothing to save yet.")
	assert.Contains(t, text, "🤖 reply to again")
	assert.NotContains(t, text, "ignored")
}

func TestREPLKeepsMessageAsTyped(t *testing.T) {
	f := &fakeChat{}
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), f, strings.NewReader("   \n  indented text\n  /reset  \n"), &out))

	assert.Equal(t, []string{"  indented text"}, f.submitted)
	assert.Equal(t, 1, f.resets)
}

func TestREPLSubmitError(t *testing.T) {
	f := &fakeChat{submitErr: errors.New("connection lost")}
	var out bytes.Buffer

	require.NoError(t, runREPL(context.Background(), f, strings.NewReader("hi\n"), &out))
	assert.Contains(t, out.String(), "❌ Error: connection lost")
}

func TestRunCommand(t *testing.T) {
	ctx := context.Background()

	t.Run("quit", func(t *testing.T) {
		_, quit := runCommand(ctx, &fakeChat{}, "/QUIT")
		assert.True(t, quit)
		_, quit = runCommand(ctx, &fakeChat{}, "/exit")
		assert.True(t, quit)
	})

	t.Run("save failure", func(t *testing.T) {
		f := &fakeChat{count: 2, exportErr: errors.New("disk full")}
		out, quit := runCommand(ctx, f, "/save")
		assert.False(t, quit)
		assert.Equal(t, "❌ Save failed: disk full", out)
	})

	t.Run("stats", func(t *testing.T) {
		out, _ := runCommand(ctx, &fakeChat{}, "/stats")
		assert.Contains(t, out, "Calls: 2")
		assert.Contains(t, out, "blocked")
		assert.Contains(t, out, "normal")
		assert.Contains(t, out, "Tokens In:  30 total, avg 15")
	})

	t.Run("unknown", func(t *testing.T) {
		out, quit := runCommand(ctx, &fakeChat{}, "/dance")
		assert.False(t, quit)
		assert.Contains(t, out, "/help")
	})
}

func TestChatModelSubmit(t *testing.T) {
	f := &fakeChat{}
	m := newChatModel(f)

	m, cmd := m.handleInput("  hi there  ")
	require.NotNil(t, cmd)
	assert.True(t, m.waiting)
	assert.Empty(t, m.input.Value())
	require.Len(t, m.lines, 1)
	assert.Equal(t, conversation.RoleUser, m.lines[0].role)
	assert.Equal(t, "  hi there  ", m.lines[0].content)

	msg := m.send("hi there")()
	updated, _ := m.Update(msg)
	m = updated.(chatModel)

	assert.False(t, m.waiting)
	require.Len(t, m.lines, 2)
	assert.Equal(t, "reply to hi there", m.lines[1].content)
	assert.Contains(t, m.renderContent(), "reply to hi there")
	assert.Contains(t, m.renderContent(), "2 messages")
}

func TestChatModelIgnoresEmptyInput(t *testing.T) {
	m := newChatModel(&fakeChat{})
	m, cmd := m.handleInput("   ")
	assert.Nil(t, cmd)
	assert.False(t, m.waiting)
	assert.Contains(t, m.renderContent(), conversation.Greeting)
}

func TestChatModelEnterWhileWaiting(t *testing.T) {
	m := newChatModel(&fakeChat{})
	m.waiting = true

	updated, cmd := m.Update(tea.KeyPressMsg{Code: tea.KeyEnter})
	assert.Nil(t, cmd)
	assert.True(t, updated.(chatModel).waiting)
}

func TestChatModelCommands(t *testing.T) {
	f := &fakeChat{count: 2}
	m := newChatModel(f)
	m.lines = []chatLine{{role: conversation.RoleUser, content: "old"}}

	m, cmd := m.handleInput("/reset")
	require.NotNil(t, cmd)
	assert.Empty(t, m.lines)

	updated, _ := m.Update(m.command("/reset")())
	m = updated.(chatModel)
	assert.Equal(t, 1, f.resets)
	require.Len(t, m.lines, 1)
	assert.True(t, m.lines[0].notice)

	_, cmd = m.Update(m.command("/quit")())
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
}

func TestChatModelSubmitError(t *testing.T) {
	m := newChatModel(&fakeChat{submitErr: errors.New("server went away")})
	m.waiting = true

	updated, _ := m.Update(m.send("hi")())
	m = updated.(chatModel)
	assert.False(t, m.waiting)
	assert.Contains(t, m.renderContent(), "server went away")
}
