package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored session token is valid.",
		Args:  cobra.NoArgs,
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	serverURL := getServerURL()
	token := getToken()

	fmt.Fprintf(out, "Server:  %s\n", serverURL)

	if token == "" {
		fmt.Fprintln(out, "Token:   not configured")
		fmt.Fprintln(out, "\nRun 'ecrm login' to authenticate.")
		return nil
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	sess, err := client.New(serverURL, token).Session(ctx)
	switch {
	case err == nil:
		fmt.Fprintf(out, "User:    %s\n", sess.Email)
		fmt.Fprintf(out, "Expires: %s\n", sess.ExpiresAt.Local().Format(timeLayout))
		fmt.Fprintln(out, "Status:  ✓ connected and authenticated")
	case errors.Is(err, client.ErrUnauthorized):
		fmt.Fprintln(out, "Status:  ✗ session expired or revoked")
		fmt.Fprintln(out, "\nRun 'ecrm login' to re-authenticate.")
	default:
		var apiErr *client.APIError
		if errors.As(err, &apiErr) {
			fmt.Fprintf(out, "Status:  ✗ unexpected response (%d)\n", apiErr.StatusCode)
		} else {
			fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
		}
	}

	return nil
}
