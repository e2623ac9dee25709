package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/anibalssilva/tech-challenge-books-api/internal/auth"
)

func newUserCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "user",
		Short: "Manage API users",
		Long:  "Create, list, promote, and disable accounts in the local user store.",
	}

	cmd.AddCommand(newUserCreateCmd())
	cmd.AddCommand(newUserListCmd())
	cmd.AddCommand(newUserSetAdminCmd())
	cmd.AddCommand(newUserDisableCmd())

	return cmd
}

// ---------- user create ----------

func newUserCreateCmd() *cobra.Command {
	var (
		username string
		password string
		admin    bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new user",
		Example: `  booksapi user create --username alice --password secret
  booksapi user create --username alice --admin  # prompts for password`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserCreate(username, password, admin)
		},
	}

	cmd.Flags().StringVar(&username, "username", "", "Username (required)")
	cmd.Flags().StringVar(&password, "password", "", "Password (prompted if omitted)")
	cmd.Flags().BoolVar(&admin, "admin", false, "Grant admin privileges")
	cmd.MarkFlagRequired("username")

	return cmd
}

func runUserCreate(username, password string, admin bool) error {
	if password == "" {
		fmt.Print("Password: ")
		pwBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		fmt.Println()
		password = string(pwBytes)

		fmt.Print("Confirm password: ")
		confirmBytes, err := term.ReadPassword(int(os.Stdin.Fd()))
		if err != nil {
			return fmt.Errorf("failed to read confirmation: %w", err)
		}
		fmt.Println()

		if password != string(confirmBytes) {
			return fmt.Errorf("passwords do not match")
		}
	}

	if len(password) < 8 {
		return fmt.Errorf("password must be at least 8 characters")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer st.Close()

	hash, err := auth.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	ctx := context.Background()
	if _, err := st.Create(ctx, username, hash); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if admin {
		if _, err := st.SetAdmin(ctx, username, true); err != nil {
			return fmt.Errorf("grant admin: %w", err)
		}
	}

	fmt.Printf("Created user %q", username)
	if admin {
		fmt.Print(" (admin)")
	}
	fmt.Println()
	return nil
}

// ---------- user list ----------

func newUserListCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserList(jsonOutput)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")

	return cmd
}

func runUserList(jsonOutput bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer st.Close()

	users, err := st.List(context.Background())
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(users)
	}

	if len(users) == 0 {
		fmt.Println("No users yet. Use 'booksapi user create' to create one.")
		return nil
	}

	fmt.Printf("%-24s %-8s %-8s\n", "USERNAME", "ADMIN", "ACTIVE")
	fmt.Printf("%-24s %-8s %-8s\n", "--------", "-----", "------")
	for _, u := range users {
		admin, active := "no", "yes"
		if u.Admin {
			admin = "yes"
		}
		if u.Disabled {
			active = "no"
		}
		fmt.Printf("%-24s %-8s %-8s\n", u.Username, admin, active)
	}
	return nil
}

// ---------- user set-admin / disable ----------

func newUserSetAdminCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set-admin <username>",
		Short: "Grant admin privileges to a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserFlag(args[0], "admin")
		},
	}
	return cmd
}

func newUserDisableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disable <username>",
		Short: "Disable a user account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUserFlag(args[0], "disable")
		},
	}
	return cmd
}

func runUserFlag(username, action string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open user store: %w", err)
	}
	defer st.Close()

	ctx := context.Background()
	if action == "admin" {
		if _, err := st.SetAdmin(ctx, username, true); err != nil {
			return fmt.Errorf("set admin: %w", err)
		}
		fmt.Printf("User %q is now an admin\n", username)
		return nil
	}
	if _, err := st.SetDisabled(ctx, username, true); err != nil {
		return fmt.Errorf("disable user: %w", err)
	}
	fmt.Printf("User %q is disabled\n", username)
	return nil
}
