package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/client"
	"github.com/evcraddock/estate-crm/internal/identity"
)

func newLoginCmd() *cobra.Command {
	var server, email string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store a session token",
		Long:  "Signs in with email and password. The password is read from stdin. The session token is saved to the config file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd, server, email)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or "+DefaultServerURL+")")
	cmd.Flags().StringVar(&email, "email", "", "account email")

	return cmd
}

func runLogin(cmd *cobra.Command, serverFlag, email string) error {
	out := cmd.OutOrStdout()
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}

	reader := bufio.NewReader(cmd.InOrStdin())
	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("reading email: %w", err)
		}
		email = strings.TrimSpace(line)
	}
	if email == "" {
		return fmt.Errorf("no email provided")
	}

	fmt.Fprint(out, "Password: ")
	line, err := reader.ReadString('\n')
	if err != nil && line == "" {
		return fmt.Errorf("reading password: %w", err)
	}
	password := strings.TrimRight(line, "\r\n")
	fmt.Fprintln(out)

	c := client.New(serverURL, "")
	p := identity.New(c, c.Users(), identity.WithLogger(cliLogger(cmd.ErrOrStderr())))
	me, err := p.SignIn(cmd.Context(), email, password)
	if err != nil {
		return fmt.Errorf("signing in: %w", err)
	}

	err = updateConfig(func(cfg *CLIConfig) {
		cfg.Token = me.Token
		if serverFlag != "" {
			cfg.ServerURL = serverFlag
		}
	})
	if err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintf(out, "✓ Logged in as %s (%s).\n", me.Email, me.Role)
	return nil
}
