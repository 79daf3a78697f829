package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var result struct {
				Status string `json:"status"`
			}
			if err := client.Get("/api/v1/health", &result); err != nil {
				return err
			}
			printResult(result, func() {
				fmt.Printf("Server status: %s\n", result.Status)
			})
			return nil
		},
	}
}
