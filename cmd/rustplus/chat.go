package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

func chatCmd(g *globalFlags) *cobra.Command {
	var history bool

	cmd := &cobra.Command{
		Use:   "chat [message...]",
		Short: "Send a team-chat message or print chat history",
		Example: `  rustplus chat "raid at B4"
  rustplus chat --history`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !history && len(args) == 0 {
				return errors.New("message is required (or use --history)")
			}
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()

			if history {
				resp, err := s.rp.Await(s.ctx, &rpclient.AppRequest{GetTeamChat: &rpclient.AppEmpty{}})
				if err != nil {
					return errors.Wrap(err, "get team chat")
				}
				if resp.TeamChat == nil {
					return nil
				}
				for _, m := range resp.TeamChat.Messages {
					at := time.Unix(int64(m.Time), 0).Format("15:04:05")
					fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", at, m.Name, m.Message)
				}
				return nil
			}

			msg := strings.Join(args, " ")
			if _, err := s.rp.Await(s.ctx, &rpclient.AppRequest{
				SendTeamMessage: &rpclient.AppSendMessage{Message: msg},
			}); err != nil {
				return errors.Wrap(err, "send team message")
			}
			fmt.Fprintln(cmd.OutOrStdout(), "sent")
			return nil
		},
	}
	cmd.Flags().BoolVar(&history, "history", false, "Print recent team chat instead of sending")
	return cmd
}
