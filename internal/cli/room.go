package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mcoot/partyroom/internal/api/response"
)

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Room management commands",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomListCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomDeleteCmd())
	cmd.AddCommand(newRoomQRCmd())

	return cmd
}

func newRoomCreateCmd() *cobra.Command {
	var id, name, game string
	var maxPlayers int

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a room and join it",
		RunE: func(cmd *cobra.Command, args []string) error {
			req := map[string]any{
				"id":          id,
				"name":        name,
				"game_type":   game,
				"max_players": maxPlayers,
			}

			var result response.Room
			if err := client.Post("/api/v1/rooms", req, &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "Room id (generated when empty)")
	cmd.Flags().StringVar(&name, "name", "", "Room name (defaults to the id)")
	cmd.Flags().StringVar(&game, "game", "", "Game type: war or eratz-ir (required)")
	cmd.Flags().IntVar(&maxPlayers, "max-players", 0, "Player limit, 2-10 (default 2)")
	_ = cmd.MarkFlagRequired("game")

	return cmd
}

func newRoomListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List rooms",
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.RoomList
			if err := client.Get("/api/v1/rooms", &result); err != nil {
				return err
			}

			if len(result.Rooms) == 0 && cfg.Output != "json" {
				output(cmd).PrintMessage("No rooms")
				return nil
			}
			output(cmd).Print(result)
			return nil
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show a room and its participants",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var result response.Room
			if err := client.Get("/api/v1/rooms/"+args[0], &result); err != nil {
				return err
			}

			output(cmd).Print(result)
			return nil
		},
	}
}

func newRoomDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a room you created",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Delete("/api/v1/rooms/" + args[0]); err != nil {
				return err
			}

			output(cmd).PrintMessage(fmt.Sprintf("Deleted room %s", args[0]))
			return nil
		},
	}
}

func newRoomQRCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "qr <id>",
		Short: "Save a PNG QR code inviting players to a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			png, err := client.GetRaw("/api/v1/rooms/" + args[0] + "/qr")
			if err != nil {
				return err
			}

			if file == "" {
				file = args[0] + ".png"
			}
			if err := os.WriteFile(file, png, 0644); err != nil {
				return fmt.Errorf("failed to write %s: %w", file, err)
			}

			output(cmd).PrintMessage(fmt.Sprintf("Wrote %s", file))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Output file (default <id>.png)")

	return cmd
}
