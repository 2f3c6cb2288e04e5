package cli

import (
	"github.com/spf13/cobra"

	"github.com/mcoot/partyroom/internal/api/response"
	"github.com/mcoot/partyroom/internal/model"
)

func newSessionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Session membership commands",
	}

	cmd.AddCommand(newSessionPostCmd("join", "Join a session", "/join"))
	cmd.AddCommand(newSessionPostCmd("leave", "Leave a session", "/leave"))
	cmd.AddCommand(newSessionStateCmd())
	cmd.AddCommand(newSessionParticipantsCmd())
	cmd.AddCommand(newSessionHistoryCmd())

	return cmd
}

func newSessionPostCmd(use, short, suffix string) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <session>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.Snapshot
			if err := client.Post("/api/v1/sessions/"+args[0]+suffix, nil, &result); err != nil {
				return err
			}

			output(cmd).Print(&result)
			return nil
		},
	}
}

func newSessionStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <session>",
		Short: "Show the full session snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result model.Snapshot
			if err := client.Get("/api/v1/sessions/"+args[0], &result); err != nil {
				return err
			}

			output(cmd).Print(&result)
			return nil
		},
	}
}

func newSessionParticipantsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "participants <session>",
		Short: "List a session's participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Participants
			if err := client.Get("/api/v1/sessions/"+args[0]+"/participants", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newSessionHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <session>",
		Short: "Show scored eratz-ir rounds",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.History
			if err := client.Get("/api/v1/sessions/"+args[0]+"/history", &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}
