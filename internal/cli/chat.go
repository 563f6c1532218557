package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/profilechat/internal/conversation"
)

var chatPlain bool

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive chat",
	Long: `Start an interactive chat with the configured model.

Runs a full-screen terminal UI when attached to a terminal, otherwise reads
one message per line from stdin.

Commands inside the chat:
  /reset   start a new conversation
  /save    save the conversation to logs/conversation_<timestamp>.txt
  /stats   show session statistics
  /quit    leave

Examples:
  profilechat chat
  GOOGLE_API_KEY=... profilechat chat --plain
  echo "Hi, I'm Marta" | profilechat chat`,
	Args: cobra.NoArgs,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().BoolVar(&chatPlain, "plain", false, "line-based chat even on a terminal")
}

func runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	session, collector, err := openSession(ctx)
	if err != nil {
		return err
	}
	s := &localSession{session: session, collector: collector}

	if !chatPlain && interactive() {
		return runTUI(s)
	}
	return runREPL(ctx, s, os.Stdin, cmd.OutOrStdout())
}

// runREPL reads one message per line from in until EOF or /quit.
func runREPL(ctx context.Context, s chatSession, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "%s\n%s\n\n", conversation.Greeting, statusLine(s))

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			break
		}

		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if strings.HasPrefix(trimmed, "/") {
			text, quit := runCommand(ctx, s, trimmed)
			if quit {
				return nil
			}
			fmt.Fprintf(out, "%s\n\n", text)
			continue
		}

		turn, err := s.Submit(ctx, line)
		if err != nil {
			fmt.Fprintf(out, "❌ Error: %v\n\n", err)
			continue
		}
		writeTurn(out, turn)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read input: %w", err)
	}
	return nil
}
