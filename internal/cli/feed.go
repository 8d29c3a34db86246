package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/estate-crm/internal/model"
)

func newActivityCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "activity",
		Short: "Show the recent activity feed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			activities := s.store.ActivitiesForUser(s.me.UserID, s.me.IsAdmin())
			if limit > 0 && len(activities) > limit {
				activities = activities[:limit]
			}
			return render(s.out, activities, func() error {
				printActivityList(s.out, activities)
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of entries to show (0 for all)")

	return cmd
}

func newAuditCmd() *cobra.Command {
	var f model.AuditFilter
	var entity string

	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the audit trail (admin only)",
		Long:  "Loads the newest audit entries and filters them. --action matches as a substring.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.requireAdmin(); err != nil {
				return err
			}
			if err := s.store.LoadAuditLogs(cmd.Context()); err != nil {
				return err
			}
			f.EntityType = model.EntityType(entity)
			logs := s.store.AuditLogs(f)
			return render(s.out, logs, func() error { return printAuditTable(s.out, logs) })
		},
	}

	cmd.Flags().StringVar(&f.UserID, "user", "", "only entries by this user id")
	cmd.Flags().StringVar(&entity, "entity", "", "property|lead|deal|user")
	cmd.Flags().StringVar(&f.Action, "action", "", "action substring, e.g. DELETED")

	return cmd
}

func newNotificationsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read and send notifications",
	}
	cmd.AddCommand(
		newNotificationsListCmd(),
		newNotificationsReadCmd(),
		newNotificationsReadAllCmd(),
		newNotificationsSendCmd(),
	)
	return cmd
}

func newNotificationsListCmd() *cobra.Command {
	var unread bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List your notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			s.store.LoadNotifications(cmd.Context())
			notifications := s.store.NotificationsForUser(s.me.UserID)
			if unread {
				notifications = filterSlice(notifications, func(n model.Notification) bool { return !n.Read })
			}
			return render(s.out, notifications, func() error {
				if err := printNotificationTable(s.out, notifications); err != nil {
					return err
				}
				fmt.Fprintf(s.out, "Unread: %d\n", s.store.UnreadCountForUser(s.me.UserID))
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&unread, "unread", false, "only unread notifications")

	return cmd
}

func newNotificationsReadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read <id>",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			n, err := s.store.MarkNotificationRead(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return render(s.out, n, func() error {
				fmt.Fprintf(s.out, "✓ Marked %s read.\n", n.ID)
				return nil
			})
		},
	}
}

func newNotificationsReadAllCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark all your notifications read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			s.store.LoadNotifications(cmd.Context())
			if err := s.store.MarkAllNotificationsRead(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(s.out, "✓ All notifications marked read.")
			return nil
		},
	}
}

func newNotificationsSendCmd() *cobra.Command {
	var to, title, message, priority, ntype string

	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a notification to a user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			n, err := s.store.SendNotification(cmd.Context(), model.Notification{
				Type:        model.NotificationType(ntype),
				Title:       title,
				Message:     message,
				Priority:    model.Priority(priority),
				RecipientID: to,
			})
			if err != nil {
				return err
			}
			return render(s.out, n, func() error {
				fmt.Fprintf(s.out, "✓ Sent notification %s to %s.\n", n.ID, n.RecipientID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&to, "to", "", "recipient user id")
	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&message, "message", "", "message body")
	cmd.Flags().StringVar(&priority, "priority", string(model.PriorityMedium), "low|medium|high")
	cmd.Flags().StringVar(&ntype, "type", string(model.NotificationSystem), "notification type")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func newAnnouncementsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "announcements",
		Short: "Read and publish announcements",
	}
	cmd.AddCommand(newAnnouncementsListCmd(), newAnnouncementsAddCmd())
	return cmd
}

func newAnnouncementsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List active announcements",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			active := s.store.ActiveAnnouncements()
			return render(s.out, active, func() error {
				printAnnouncementList(s.out, active)
				return nil
			})
		},
	}
}

func newAnnouncementsAddCmd() *cobra.Command {
	var title, message, priority, expires string

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Publish an announcement (admin only)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := model.Announcement{Title: title, Message: message, Priority: model.Priority(priority)}
			if expires != "" {
				t, err := parseDate(expires)
				if err != nil {
					return err
				}
				a.ExpiresAt = &t
			}

			s, err := openSession(cmd.Context(), cmd)
			if err != nil {
				return err
			}
			if err := s.requireAdmin(); err != nil {
				return err
			}
			a, err = s.store.CreateAnnouncement(cmd.Context(), a)
			if err != nil {
				return err
			}
			return render(s.out, a, func() error {
				fmt.Fprintf(s.out, "✓ Published announcement %s.\n", a.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "title")
	cmd.Flags().StringVar(&message, "message", "", "message body")
	cmd.Flags().StringVar(&priority, "priority", string(model.PriorityMedium), "low|medium|high")
	cmd.Flags().StringVar(&expires, "expires", "", "expiry date (YYYY-MM-DD or RFC 3339)")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}
