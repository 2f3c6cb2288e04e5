package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/partyroom/internal/command"
	"github.com/mcoot/partyroom/internal/model"
)

func newWarCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "war",
		Short: "Card game (war) commands",
	}

	cmd.AddCommand(newWarStartCmd())
	cmd.AddCommand(newActionCmd(model.GameTypeWar, "play", command.ActionWarPlay, "Play your top card"))
	cmd.AddCommand(newActionCmd(model.GameTypeWar, "state", command.ActionWarState, "Show the game"))
	cmd.AddCommand(newActionCmd(model.GameTypeWar, "end", command.ActionWarEnd, "End the game"))

	return cmd
}

func newWarStartCmd() *cobra.Command {
	var players []string

	cmd := &cobra.Command{
		Use:   "start <session>",
		Short: "Deal a new game",
		Long:  "Deal a new game between two players. Without --players the session's two members play.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var payload any
			if len(players) > 0 {
				payload = map[string]any{"players": players}
			}
			return runAction(cmd, args[0], model.GameTypeWar, command.ActionWarStart, payload)
		},
	}

	cmd.Flags().StringSliceVar(&players, "players", nil, "The two participant ids to deal in")

	return cmd
}

// newActionCmd builds a subcommand that sends an action with no payload
func newActionCmd(gameType model.GameType, use, action, short string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], gameType, action, nil)
		},
	}
}

func runAction(cmd *cobra.Command, session string, gameType model.GameType, action string, payload any) error {
	snapshot, err := client.Action(session, gameType, action, payload)
	if err != nil {
		return err
	}

	output(cmd).Print(snapshot)
	return nil
}
