package main

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/EgorLis/rustplus/internal/rpclient"
)

func infoCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print server info, in-game time and team",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(g)
			if err != nil {
				return err
			}
			defer s.Close()

			// запросы уходят разом, ответы собираем по seq
			reqs := []*rpclient.AppRequest{
				{GetInfo: &rpclient.AppEmpty{}},
				{GetTime: &rpclient.AppEmpty{}},
				{GetTeamInfo: &rpclient.AppEmpty{}},
			}
			futures := make([]*rpclient.Future, 0, len(reqs))
			for _, r := range reqs {
				f, err := s.rp.SendRequestAsync(r, g.timeout)
				if err != nil {
					return errors.Wrap(err, r.Kind())
				}
				futures = append(futures, f)
			}

			out := cmd.OutOrStdout()
			for i, f := range futures {
				resp, err := f.Wait(s.ctx)
				if err != nil {
					return errors.Wrap(err, reqs[i].Kind())
				}
				printResponse(out, resp)
			}
			return nil
		},
	}
}

func printResponse(w io.Writer, r *rpclient.AppResponse) {
	switch {
	case r.Info != nil:
		i := r.Info
		fmt.Fprintf(w, "Server:  %s\n", i.Name)
		fmt.Fprintf(w, "Map:     %s (%d, seed %d)\n", i.Map, i.MapSize, i.Seed)
		fmt.Fprintf(w, "Players: %d/%d (queue %d)\n", i.Players, i.MaxPlayers, i.QueuedPlayers)
		if i.WipeTime > 0 {
			fmt.Fprintf(w, "Wipe:    %s\n", time.Unix(int64(i.WipeTime), 0).Format(time.DateTime))
		}
	case r.Time != nil:
		fmt.Fprintf(w, "Time:    %s (sunrise %s, sunset %s)\n",
			gameClock(r.Time.Time), gameClock(r.Time.Sunrise), gameClock(r.Time.Sunset))
	case r.TeamInfo != nil:
		fmt.Fprintln(w, "Team:")
		for _, m := range r.TeamInfo.GetMembers() {
			state := "offline"
			if m.IsOnline {
				state = "online"
			}
			if !m.IsAlive {
				state += ", dead"
			}
			leader := ""
			if m.SteamID == r.TeamInfo.LeaderSteamID {
				leader = " *"
			}
			fmt.Fprintf(w, "  %s (%d) %s%s\n", m.Name, m.SteamID, state, leader)
		}
	}
}

// gameClock переводит игровые часы (0..24) в HH:MM.
func gameClock(h float32) string {
	mins := int(h*60 + 0.5)
	return fmt.Sprintf("%02d:%02d", (mins/60)%24, mins%60)
}
