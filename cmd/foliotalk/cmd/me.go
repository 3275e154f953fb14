package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the authenticated user's profile",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, err := client.Me(context.Background())
		if err != nil {
			return fmt.Errorf("failed to load profile: %w", err)
		}

		fmt.Println(headerStyle.Render(user.Username))
		fmt.Printf("  id:        %s\n", user.ID)
		fmt.Printf("  email:     %s\n", user.Email)
		fmt.Printf("  confirmed: %t\n", user.IsConfirmed)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(meCmd)
}
