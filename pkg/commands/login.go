package commands

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"
)

// newLoginCommand 创建 login 子命令
func newLoginCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login TOKEN",
		Short: "Save the access token used to connect to the chat server",
		Long:  "Save the access token used to connect to the chat server. Use - to read the token from stdin.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logr.FromContextOrDiscard(cmd.Context())

			token := args[0]
			if token == "-" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read token from stdin error: %w", err)
				}
				token = strings.TrimSpace(line)
			}

			store := globalOpts.tokenStore()
			if err := store.Save(token); err != nil {
				return fmt.Errorf("save token error: %w", err)
			}
			logger.V(1).Info(fmt.Sprintf("token saved to %s", store.Path()))
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged in.")
			return nil
		},
	}
	return cmd
}

// newLogoutCommand 创建 logout 子命令
func newLogoutCommand(globalOpts *GlobalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Remove the saved access token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := globalOpts.tokenStore().Delete(); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
			return nil
		},
	}
	return cmd
}
