// Package cli defines the cobra command tree for estate-crm.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/client"
	"github.com/evcraddock/estate-crm/internal/identity"
	"github.com/evcraddock/estate-crm/internal/logging"
	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/store"
)

var (
	flagFormat  string
	flagVerbose bool
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ecrm",
		Short:         "Manage real-estate listings, leads and deals",
		Long:          "A command-line client for the estate-crm server. Track properties, leads and deals, follow the activity feed and run the API server.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "log debug output to stderr")

	root.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
		newServeCmd(),
		newPropertiesCmd(),
		newLeadsCmd(),
		newDealsCmd(),
		newUsersCmd(),
		newActivityCmd(),
		newAuditCmd(),
		newNotificationsCmd(),
		newAnnouncementsCmd(),
		newRewardsCmd(),
		newReferralsCmd(),
		newStatsCmd(),
		newSummaryCmd(),
		newDashboardCmd(),
	)

	return root
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// cliLogger logs warnings to w, or everything in verbose mode.
func cliLogger(w io.Writer) *slog.Logger {
	if flagVerbose {
		return logging.New(w, true)
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// newAPIClient creates an HTTP client for the estate-crm API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getToken())
}

// session is a signed-in client with its cache store.
type session struct {
	identity *identity.Provider
	store    *store.Store
	me       identity.Identity
	out      io.Writer
}

// openSession restores the stored token and loads the cache store.
func openSession(ctx context.Context, cmd *cobra.Command, opts ...store.Option) (*session, error) {
	token := getToken()
	if token == "" {
		return nil, fmt.Errorf("not logged in; run 'ecrm login'")
	}

	logger := cliLogger(cmd.ErrOrStderr())
	c := newAPIClient()
	p := identity.New(c, c.Users(), identity.WithLogger(logger))

	me, err := p.Restore(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w (run 'ecrm login')", err)
	}

	s := store.New(c.Remote(), append([]store.Option{store.WithLogger(logger)}, opts...)...)
	if err := p.LoadStore(ctx, s); err != nil {
		return nil, err
	}

	return &session{identity: p, store: s, me: me, out: cmd.OutOrStdout()}, nil
}

// requireAdmin rejects non-admin sessions before any mutation is sent.
func (s *session) requireAdmin() error {
	if !s.identity.HasRole(model.RoleAdmin) {
		return fmt.Errorf("this command requires an admin account")
	}
	return nil
}

// warn prints a non-fatal message to stderr.
func warn(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", args...)
}
