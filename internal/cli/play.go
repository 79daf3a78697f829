package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newPlayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "play",
		Short: "In-game actions",
	}

	cmd.AddCommand(newGuessCmd())
	cmd.AddCommand(newVoteCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newStateCmd())
	cmd.AddCommand(newCommandCmd())

	return cmd
}

func newGuessCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "guess <code> <player-id> <text>",
		Short: "Submit a guess or action for the current round",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"player_id": args[1],
				"name":      "guess",
				"value":     args[2],
			}
			if err := client.Post("/api/v1/rooms/"+args[0]+"/command", body, nil); err != nil {
				return err
			}
			fmt.Println("Submitted")
			return nil
		},
	}
}

func newVoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "vote <code> <player-id> <target-player-id>",
		Short: "Vote for a player's generated result",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"player_id": args[1],
				"target_id": args[2],
			}
			if err := client.Post("/api/v1/rooms/"+args[0]+"/vote", body, nil); err != nil {
				return err
			}
			fmt.Println("Vote cast")
			return nil
		},
	}
}

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat <code> <player-id> <text>",
		Short: "Send a chat message",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{
				"player_id": args[1],
				"text":      args[2],
			}
			if err := client.Post("/api/v1/rooms/"+args[0]+"/chat", body, nil); err != nil {
				return err
			}
			fmt.Println("Sent")
			return nil
		},
	}
}

func newStateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "state <code>",
		Short: "Show the room's current game state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var state map[string]any
			if err := client.Get("/api/v1/rooms/"+args[0]+"/state", &state); err != nil {
				return err
			}
			data, _ := json.MarshalIndent(state, "", "  ")
			fmt.Println(string(data))
			return nil
		},
	}
}

func newCommandCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "command <code> <player-id> <name> [value]",
		Short: "Send a raw engine command (e.g. endRound)",
		Args:  cobra.RangeArgs(3, 4),
		RunE: func(cmd *cobra.Command, args []string) error {
			value := ""
			if len(args) == 4 {
				value = args[3]
			}
			body := map[string]string{
				"player_id": args[1],
				"name":      args[2],
				"value":     value,
			}
			if err := client.Post("/api/v1/rooms/"+args[0]+"/command", body, nil); err != nil {
				return err
			}
			fmt.Println("Sent")
			return nil
		},
	}
}
