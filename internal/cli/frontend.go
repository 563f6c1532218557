package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/raphaelgruber/profilechat/internal/client"
	"github.com/raphaelgruber/profilechat/internal/conversation"
	"github.com/raphaelgruber/profilechat/internal/metrics"
)

// errNothingToSave is returned when saving an empty conversation.
var errNothingToSave = errors.New("no messages to save yet")

// chatSession is what the chat front-ends drive: a local session or a
// connection to a profilechat server.
type chatSession interface {
	Submit(ctx context.Context, text string) (conversation.Turn, error)
	Reset(ctx context.Context) error
	Export(ctx context.Context) (string, error)
	Stats(ctx context.Context) (*metrics.Snapshot, error)
	Len() int
	Model() string
	Provider() string
}

// localSession runs the conversation engine in-process.
type localSession struct {
	session   *conversation.Session
	collector *metrics.Collector
}

func (l *localSession) Submit(ctx context.Context, text string) (conversation.Turn, error) {
	return l.session.Submit(ctx, text), nil
}

func (l *localSession) Reset(context.Context) error {
	l.session.Reset()
	return nil
}

func (l *localSession) Export(context.Context) (string, error) {
	if !l.session.Started() {
		return "", errNothingToSave
	}
	start := time.Now()
	path, err := l.session.Export()
	l.collector.RecordTiming(metrics.OpExport, time.Since(start))
	return path, err
}

func (l *localSession) Stats(context.Context) (*metrics.Snapshot, error) {
	snap := l.collector.Snapshot()
	return &snap, nil
}

func (l *localSession) Len() int { return l.session.Len() }

func (l *localSession) Model() string { return l.session.Engine().Options().ModelID }

func (l *localSession) Provider() string { return l.session.Engine().Options().Provider }

// remoteSession drives a session hosted by a profilechat server.
type remoteSession struct {
	client *client.Client
	conn   *client.Conn
	count  int
}

func (r *remoteSession) Submit(ctx context.Context, text string) (conversation.Turn, error) {
	msg, err := r.conn.Submit(ctx, text)
	if err != nil {
		return conversation.Turn{}, err
	}
	r.count = msg.Count
	return msg.Turn, nil
}

func (r *remoteSession) Reset(ctx context.Context) error {
	if err := r.conn.Reset(ctx); err != nil {
		return err
	}
	r.count = 0
	return nil
}

func (r *remoteSession) Export(ctx context.Context) (string, error) {
	if r.count == 0 {
		return "", errNothingToSave
	}
	return r.conn.Export(ctx)
}

func (r *remoteSession) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	return r.client.Stats(ctx)
}

func (r *remoteSession) Len() int { return r.count }

func (r *remoteSession) Model() string { return r.conn.Hello().Model }

func (r *remoteSession) Provider() string { return r.conn.Hello().Provider }

// Chat commands understood by both front-ends.
const (
	cmdReset = "/reset"
	cmdSave  = "/save"
	cmdStats = "/stats"
	cmdQuit  = "/quit"
	cmdExit  = "/exit"
	cmdHelp  = "/help"
)

const helpText = `Commands:
  /reset   start a new conversation
  /save    save the conversation to a file
  /stats   show session statistics
  /quit    leave`

// runCommand executes a slash command and returns the text to show.
// quit is true when the front-end should stop.
func runCommand(ctx context.Context, s chatSession, line string) (out string, quit bool) {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case cmdQuit, cmdExit:
		return "", true
	case cmdReset:
		if err := s.Reset(ctx); err != nil {
			return fmt.Sprintf("❌ Reset failed: %v", err), false
		}
		return "🔄 New conversation started.", false
	case cmdSave:
		path, err := s.Export(ctx)
		if errors.Is(err, errNothingToSave) {
			return "Nothing to save yet.", false
		}
		if err != nil {
			return fmt.Sprintf("❌ Save failed: %v", err), false
		}
		return fmt.Sprintf("💾 Conversation saved to %s", path), false
	case cmdStats:
		snap, err := s.Stats(ctx)
		if err != nil {
			return fmt.Sprintf("❌ Stats unavailable: %v", err), false
		}
		var b strings.Builder
		printServerStats(&b, snap)
		return strings.TrimRight(b.String(), "\n"), false
	case cmdHelp:
		return helpText, false
	default:
		return fmt.Sprintf("Unknown command %q. Type /help for the list.", line), false
	}
}

// statusLine shows the model, provider and message count.
func statusLine(s chatSession) string {
	return fmt.Sprintf("%s · %s · %d messages", s.Model(), s.Provider(), s.Len())
}

// writeTurn prints an assistant turn for the line-based front-end.
func writeTurn(w io.Writer, turn conversation.Turn) {
	fmt.Fprintf(w, "\n🤖 %s\n\n", turn.Content)
}
