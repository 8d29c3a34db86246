package cli

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/model"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage user accounts",
	}
	cmd.AddCommand(
		newUsersListCmd(),
		newUsersAddCmd(),
		newUsersUpdateCmd(),
		newUsersToggleCmd(),
		newUsersRemoveCmd(),
		newUsersPasswdCmd(),
	)
	return cmd
}

// readSecret reads one line from r after printing prompt to out.
func readSecret(r io.Reader, out io.Writer, prompt string) (string, error) {
	fmt.Fprint(out, prompt)
	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("reading password: %w", err)
	}
	fmt.Fprintln(out)
	return strings.TrimRight(line, "\r\n"), nil
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			users := s.store.Users()
			return render(s.out, users, func() error { return printUserTable(s.out, users) })
		},
	}
}

func newUsersAddCmd() *cobra.Command {
	var email, name, role, phone string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a user (admin only)",
		Long:  "Creates a user account. The initial password is read from stdin.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.requireAdmin(); err != nil {
				return err
			}
			password, err := readSecret(cmd.InOrStdin(), s.out, "Password: ")
			if err != nil {
				return err
			}

			nu := model.NewUser{Email: email, FullName: name, Role: model.Role(role), Password: password}
			if cmd.Flags().Changed("phone") {
				nu.Phone = &phone
			}
			u, err := s.store.CreateUser(cmd.Context(), nu)
			if err != nil {
				return err
			}
			return render(s.out, u, func() error {
				fmt.Fprintf(s.out, "✓ Created %s %s (%s).\n", u.Role, u.Email, u.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&email, "email", "", "email address")
	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", string(model.RoleUser), "admin|user")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("name")

	return cmd
}

func newUsersUpdateCmd() *cobra.Command {
	var name, role, status, phone, avatar string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a user profile",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !flagsChanged(cmd) {
				return fmt.Errorf("nothing to update")
			}
			fs := cmd.Flags()
			var p model.UserPatch
			setIf(fs, "name", &p.FullName, name)
			setIf(fs, "role", &p.Role, model.Role(role))
			setIf(fs, "status", &p.Status, model.UserStatus(status))
			setIf(fs, "phone", &p.Phone, phone)
			setIf(fs, "avatar", &p.Avatar, avatar)

			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			u, err := s.store.UpdateUser(cmd.Context(), args[0], p)
			if err != nil {
				return err
			}
			return render(s.out, u, func() error {
				fmt.Fprintf(s.out, "✓ Updated user %s.\n", u.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "full name")
	cmd.Flags().StringVar(&role, "role", "", "admin|user")
	cmd.Flags().StringVar(&status, "status", "", "active|inactive|suspended")
	cmd.Flags().StringVar(&phone, "phone", "", "phone number")
	cmd.Flags().StringVar(&avatar, "avatar", "", "avatar URL")

	return cmd
}

func newUsersToggleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Switch a user between active and inactive (admin only)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.requireAdmin(); err != nil {
				return err
			}
			u, err := s.store.ToggleUserStatus(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(s.out, u, func() error {
				fmt.Fprintf(s.out, "✓ %s is now %s.\n", u.Email, u.Status)
				return nil
			})
		},
	}
}

func newUsersRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "remove <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a user (admin only)",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.requireAdmin(); err != nil {
				return err
			}
			if err := s.store.DeleteUser(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(s.out, "✓ Removed user %s.\n", args[0])
			return nil
		},
	}
}

func newUsersPasswdCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "passwd [user-id]",
		Short: "Change a password (your own by default)",
		Long:  "Changes a password. The new password is read from stdin.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			id := s.me.UserID
			if len(args) == 1 {
				id = args[0]
			}
			password, err := readSecret(cmd.InOrStdin(), s.out, "New password: ")
			if err != nil {
				return err
			}
			if err := s.store.ChangePassword(cmd.Context(), id, password); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "✓ Password changed.")
			return nil
		},
	}
}
