package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/metrics"
	"github.com/evcraddock/estate-crm/internal/store"
)

func newDashboardCmd() *cobra.Command {
	var (
		interval    time.Duration
		once        bool
		metricsAddr string
	)

	cmd := &cobra.Command{
		Use:   "dashboard",
		Short: "Show a periodically refreshed overview",
		Long:  "Reloads the cache on an interval and prints totals, unread notifications and recent activity. With --metrics-addr the cache's mutation and load metrics are served for Prometheus.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}
			return runDashboard(cmd, interval, once, metricsAddr)
		},
	}

	cmd.Flags().DurationVar(&interval, "interval", 30*time.Second, "refresh interval")
	cmd.Flags().BoolVar(&once, "once", false, "print once and exit")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics on this address, e.g. :9100")

	return cmd
}

func runDashboard(cmd *cobra.Command, interval time.Duration, once bool, metricsAddr string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	s, err := openSession(ctx, cmd, store.WithObserver(m))
	if err != nil {
		return err
	}

	if metricsAddr != "" {
		srv := &http.Server{Addr: metricsAddr, Handler: m.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				warn(cmd, "metrics server: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				warn(cmd, "stopping metrics server: %v", err)
			}
		}()
	}

	s.store.LoadNotifications(ctx)
	if err := printDashboard(ctx, s.out, s); err != nil || once {
		return err
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := s.store.RefreshData(ctx, s.me.UserID, s.me.IsAdmin()); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				warn(cmd, "%s", s.store.Error())
				continue
			}
			s.store.LoadNotifications(ctx)
			if err := printDashboard(ctx, s.out, s); err != nil {
				return err
			}
		}
	}
}

// printDashboard writes one snapshot of the cache.
func printDashboard(ctx context.Context, w io.Writer, s *session) error {
	stats := s.store.GetStats(ctx)
	if isJSON() {
		return printJSON(w, map[string]interface{}{
			"stats":         stats,
			"unread":        s.store.UnreadCountForUser(s.me.UserID),
			"announcements": s.store.ActiveAnnouncements(),
			"activity":      head(s.store.ActivitiesForUser(s.me.UserID, s.me.IsAdmin()), 5),
		})
	}

	fmt.Fprintf(w, "── %s ── %s\n", time.Now().Format(timeLayout), s.me.Email)
	printStats(w, stats)
	fmt.Fprintf(w, "Unread:      %d notifications\n\n", s.store.UnreadCountForUser(s.me.UserID))
	for _, a := range s.store.ActiveAnnouncements() {
		fmt.Fprintf(w, "! %s\n", a.Title)
	}
	printActivityList(w, head(s.store.ActivitiesForUser(s.me.UserID, s.me.IsAdmin()), 5))
	fmt.Fprintln(w)
	return nil
}

func head[T any](items []T, n int) []T {
	if len(items) > n {
		return items[:n]
	}
	return items
}
