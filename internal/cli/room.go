package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// roomResponse mirrors the API room representation
type roomResponse struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Players []struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Score    int    `json:"score"`
		IsAI     bool   `json:"is_ai"`
	} `json:"players"`
	Ended bool `json:"ended"`
}

// playerResponse mirrors the API player representation
type playerResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsAI     bool   `json:"is_ai"`
}

func newRoomCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "room",
		Short: "Manage game rooms",
	}

	cmd.AddCommand(newRoomCreateCmd())
	cmd.AddCommand(newRoomGetCmd())
	cmd.AddCommand(newRoomJoinCmd())
	cmd.AddCommand(newRoomAICmd())
	cmd.AddCommand(newRoomLeaveCmd())

	return cmd
}

func newRoomCreateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create <kind>",
		Short: "Create a room (kind: drawing or adventure)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var room roomResponse
			body := map[string]string{"kind": args[0]}
			if err := client.Post("/api/v1/rooms", body, &room); err != nil {
				return err
			}
			printResult(room, func() {
				fmt.Printf("Created %s room %s\n", room.Kind, room.Code)
			})
			return nil
		},
	}
}

func newRoomGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <code>",
		Short: "Show a room and its players",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var room roomResponse
			if err := client.Get("/api/v1/rooms/"+args[0], &room); err != nil {
				return err
			}
			printResult(room, func() {
				status := "live"
				if room.Ended {
					status = "ended"
				}
				fmt.Printf("Room %s (%s, %s)\n", room.Code, room.Kind, status)
				for _, p := range room.Players {
					tag := ""
					if p.IsAI {
						tag = " [AI]"
					}
					fmt.Printf("  %s%s - %d points\n", p.Username, tag, p.Score)
				}
			})
			return nil
		},
	}
}

func newRoomJoinCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "join <code> <username>",
		Short: "Join a room as a player",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var player playerResponse
			body := map[string]string{"username": args[1]}
			if err := client.Post("/api/v1/rooms/"+args[0]+"/join", body, &player); err != nil {
				return err
			}
			printResult(player, func() {
				fmt.Printf("Joined as %s (player id: %s)\n", player.Username, player.ID)
			})
			return nil
		},
	}
}

func newRoomAICmd() *cobra.Command {
	var username, personality string

	cmd := &cobra.Command{
		Use:   "ai <code>",
		Short: "Add a simulated player to a room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var player playerResponse
			body := map[string]string{
				"username":    username,
				"personality": personality,
			}
			if err := client.Post("/api/v1/rooms/"+args[0]+"/ai", body, &player); err != nil {
				return err
			}
			printResult(player, func() {
				fmt.Printf("Added AI player %s (player id: %s)\n", player.Username, player.ID)
			})
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "AI player username (default: from the built-in pool)")
	cmd.Flags().StringVar(&personality, "personality", "", "AI personality prompt (default: from the built-in pool)")

	return cmd
}

func newRoomLeaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "leave <code> <player-id>",
		Short: "Remove a player from a room",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]string{"player_id": args[1]}
			if err := client.Post("/api/v1/rooms/"+args[0]+"/leave", body, nil); err != nil {
				return err
			}
			fmt.Println("Left room")
			return nil
		},
	}
}
