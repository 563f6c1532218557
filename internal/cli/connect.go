package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raphaelgruber/profilechat/internal/client"
)

var (
	serverURL    string
	connectPlain bool
)

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Chat through a profilechat server",
	Long: `Open a chat session on a running profilechat-server instead of calling
the model directly. The server holds the credentials and the transcript;
/save writes the file on the server.

Examples:
  profilechat connect
  profilechat connect --server ws://chat.internal:8484/ws`,
	Args: cobra.NoArgs,
	RunE: runConnect,
}

func init() {
	connectCmd.Flags().StringVar(&serverURL, "server", "", "server WebSocket URL (default from config)")
	connectCmd.Flags().BoolVar(&connectPlain, "plain", false, "line-based chat even on a terminal")
}

// newServerClient returns a client for --server or the configured URL.
func newServerClient() *client.Client {
	if serverURL != "" {
		return client.New(serverURL)
	}
	return client.New(cfg.ServerURL)
}

func runConnect(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	c := newServerClient()
	conn, err := c.Connect(ctx)
	if err != nil {
		return fmt.Errorf("connect to %s: %w", c.Endpoint(), err)
	}
	defer conn.Close()

	logger.Info("connected to server", "endpoint", c.Endpoint(), "session", conn.SessionID())

	s := &remoteSession{client: c, conn: conn}
	if !connectPlain && interactive() {
		return runTUI(s)
	}
	return runREPL(ctx, s, os.Stdin, cmd.OutOrStdout())
}
