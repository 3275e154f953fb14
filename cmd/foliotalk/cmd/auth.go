package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/foliotalk/foliotalk/internal/api"
)

var authCmd = &cobra.Command{
	Use:   "auth",
	Short: "Manage the FolioTalk session",
}

var signInCmd = &cobra.Command{
	Use:   "sign-in",
	Short: "Sign in with email and password",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := promptCredentials(false)
		if err != nil {
			return err
		}

		tokensResp, err := client.SignIn(context.Background(), api.LoginRequest{
			Email:    email,
			Password: password,
		})
		if err != nil {
			return fmt.Errorf("sign-in failed: %w", err)
		}

		fmt.Printf("Signed in. Access token expires in %d seconds.\n", tokensResp.ExpiresIn)
		return nil
	},
}

var signUpCmd = &cobra.Command{
	Use:   "sign-up",
	Short: "Register a new account",
	RunE: func(cmd *cobra.Command, args []string) error {
		email, password, err := promptCredentials(true)
		if err != nil {
			return err
		}

		user, err := client.SignUp(context.Background(), api.RegisterRequest{
			Email:                email,
			Password:             password,
			ConfirmationPassword: password,
		})
		if err != nil {
			return fmt.Errorf("sign-up failed: %w", err)
		}

		fmt.Printf("Account created for %s. Sign in to start chatting.\n", user.Email)
		return nil
	},
}

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refresh the stored access token",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := client.Refresh(context.Background()); err != nil {
			return fmt.Errorf("refresh failed: %w", err)
		}
		fmt.Println("Access token refreshed.")
		return nil
	},
}

var signOutCmd = &cobra.Command{
	Use:   "sign-out",
	Short: "Discard the stored session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := tokens.Clear(); err != nil {
			return fmt.Errorf("failed to clear session: %w", err)
		}
		fmt.Println("Signed out.")
		return nil
	},
}

// promptCredentials reads an email and a hidden password from the terminal
func promptCredentials(confirm bool) (string, string, error) {
	reader := bufio.NewReader(os.Stdin)

	fmt.Print("Email: ")
	email, err := reader.ReadString('\n')
	if err != nil {
		return "", "", fmt.Errorf("failed to read email: %w", err)
	}
	email = strings.TrimSpace(email)

	fmt.Print("Password: ")
	password, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", "", fmt.Errorf("failed to read password: %w", err)
	}

	if confirm {
		fmt.Print("Confirm password: ")
		again, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Println()
		if err != nil {
			return "", "", fmt.Errorf("failed to read password: %w", err)
		}
		if string(password) != string(again) {
			return "", "", fmt.Errorf("passwords do not match")
		}
	}

	return email, string(password), nil
}

func init() {
	authCmd.AddCommand(signInCmd, signUpCmd, refreshCmd, signOutCmd)
	rootCmd.AddCommand(authCmd)
}
