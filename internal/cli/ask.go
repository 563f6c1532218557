package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/profilechat/internal/conversation"
)

var askSave bool

var askCmd = &cobra.Command{
	Use:   "ask <message>",
	Short: "Send a single message and print the reply",
	Long: `Send one message to the model with the profiling system prompt and print
the reply. Exits with status 1 when the request fails.

Examples:
  profilechat ask "Hi, I'm a nurse from Turin"
  profilechat ask "What kind of person do I sound like?" --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askSave, "save", false, "save the exchange to the export directory")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("message is empty")
	}

	session, _, err := openSession(ctx)
	if err != nil {
		return err
	}

	turn := session.Submit(ctx, text)
	fmt.Fprintln(cmd.OutOrStdout(), turn.Content)

	if askSave {
		path, err := session.Export()
		if err != nil {
			return fmt.Errorf("save conversation: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "Conversation saved to %s\n", path)
	}

	if turn.Kind == conversation.KindError {
		return errors.New("request failed")
	}
	return nil
}
