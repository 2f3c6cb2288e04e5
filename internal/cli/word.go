package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/partyroom/internal/command"
	"github.com/mcoot/partyroom/internal/model"
)

func newWordCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "word",
		Aliases: []string{"eratz-ir"},
		Short:   "Word game (eratz-ir) commands",
	}

	cmd.AddCommand(newActionCmd(model.GameTypeEratzIr, "start", command.ActionWordStartGame, "Start a game for the session's members"))
	cmd.AddCommand(newWordRoundCmd())
	cmd.AddCommand(newWordAnswerCmd())
	cmd.AddCommand(newActionCmd(model.GameTypeEratzIr, "finish", command.ActionWordFinishRound, "Finish and score the current round"))
	cmd.AddCommand(newActionCmd(model.GameTypeEratzIr, "countdown", command.ActionWordStartCountdown, "Start the round countdown"))
	cmd.AddCommand(newActionCmd(model.GameTypeEratzIr, "reset", command.ActionWordResetGame, "Reset scores and return to waiting"))
	cmd.AddCommand(newActionCmd(model.GameTypeEratzIr, "state", command.ActionWordState, "Show the game"))

	return cmd
}

func newWordRoundCmd() *cobra.Command {
	var categories []string

	cmd := &cobra.Command{
		Use:   "round <session>",
		Short: "Start a round with a fresh letter",
		Long:  "Start a round with a fresh letter. Without --category the previous round's categories are reused.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], model.GameTypeEratzIr, command.ActionWordStartRound, map[string]any{"categories": categories})
		},
	}

	cmd.Flags().StringSliceVar(&categories, "category", nil, "Round category (repeatable)")

	return cmd
}

func newWordAnswerCmd() *cobra.Command {
	var answers map[string]string

	cmd := &cobra.Command{
		Use:     "answer <session>",
		Short:   "Submit answers for the current round",
		Example: `  partyctl word answer r1 --answer עיר=אשדוד --answer ארץ=איטליה`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAction(cmd, args[0], model.GameTypeEratzIr, command.ActionWordSaveAnswers, map[string]any{"answers": answers})
		},
	}

	cmd.Flags().StringToStringVar(&answers, "answer", nil, "category=answer (repeatable)")
	_ = cmd.MarkFlagRequired("answer")

	return cmd
}
