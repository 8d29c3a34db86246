package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/client"
)

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the session and remove the stored token",
		Long:  "Revokes the session on the server and removes the token from the config file.",
		Args:  cobra.NoArgs,
		RunE:  runLogout,
	}
}

func runLogout(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if cfg.Token == "" {
		fmt.Fprintln(out, "Not logged in.")
		return nil
	}

	c := client.New(getServerURL(), cfg.Token)
	if err := c.SignOut(cmd.Context()); err != nil {
		warn(cmd, "revoking session: %v", err)
	}

	if err := updateConfig(func(cfg *CLIConfig) { cfg.Token = "" }); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "✓ Logged out. Token removed.")
	return nil
}
