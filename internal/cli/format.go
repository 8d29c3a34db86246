package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/evcraddock/estate-crm/internal/model"
)

const timeLayout = "2006-01-02 15:04"

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// render writes v as JSON when --format=json, otherwise calls text.
func render(w io.Writer, v interface{}, text func() error) error {
	if isJSON() {
		return printJSON(w, v)
	}
	return text()
}

// printTable writes rows under a header and dashed separator, followed by a
// total line naming noun.
func printTable(out io.Writer, header []string, rows [][]string, noun string) error {
	if len(rows) == 0 {
		fmt.Fprintf(out, "No %s found.\n", noun)
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(w, strings.Join(header, "\t")); err != nil {
		return fmt.Errorf("writing table header: %w", err)
	}
	dashes := make([]string, len(header))
	for i, h := range header {
		dashes[i] = strings.Repeat("-", len(h))
	}
	if _, err := fmt.Fprintln(w, strings.Join(dashes, "\t")); err != nil {
		return fmt.Errorf("writing table separator: %w", err)
	}

	for _, row := range rows {
		if _, err := fmt.Fprintln(w, strings.Join(row, "\t")); err != nil {
			return fmt.Errorf("writing table row: %w", err)
		}
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("flushing table: %w", err)
	}

	fmt.Fprintf(out, "\nTotal: %d %s\n", len(rows), noun)
	return nil
}

func printPropertyTable(w io.Writer, props []model.Property) error {
	rows := make([][]string, 0, len(props))
	for _, p := range props {
		rows = append(rows, []string{
			p.ID, truncate(p.Title, 32), string(p.Type), string(p.Status),
			"$" + formatPrice(p.Price), truncate(p.Location, 24), optInt(p.Bedrooms),
		})
	}
	return printTable(w, []string{"ID", "TITLE", "TYPE", "STATUS", "PRICE", "LOCATION", "BED"}, rows, "properties")
}

// printPropertySummary prints a single property in text format.
func printPropertySummary(w io.Writer, p model.Property) {
	fmt.Fprintf(w, "Property %s\n", p.ID)
	fmt.Fprintf(w, "  Title:     %s\n", p.Title)
	fmt.Fprintf(w, "  Type:      %s\n", p.Type)
	fmt.Fprintf(w, "  Status:    %s\n", p.Status)
	fmt.Fprintf(w, "  Price:     $%s\n", formatPrice(p.Price))
	if p.Location != "" {
		fmt.Fprintf(w, "  Location:  %s\n", p.Location)
	}
	if p.Area > 0 {
		fmt.Fprintf(w, "  Area:      %g sqft\n", p.Area)
	}
	if p.Bedrooms != nil {
		fmt.Fprintf(w, "  Beds:      %d\n", *p.Bedrooms)
	}
	if p.Bathrooms != nil {
		fmt.Fprintf(w, "  Baths:     %d\n", *p.Bathrooms)
	}
	if len(p.Features) > 0 {
		fmt.Fprintf(w, "  Features:  %s\n", strings.Join(p.Features, ", "))
	}
	if p.OwnerName != "" {
		fmt.Fprintf(w, "  Owner:     %s %s\n", p.OwnerName, p.OwnerPhone)
	}
	for _, f := range p.Videos {
		fmt.Fprintf(w, "  Video:     %s (%s)\n", f.Name, f.URL)
	}
	for _, f := range p.Documents {
		fmt.Fprintf(w, "  Document:  %s (%s)\n", f.Name, f.URL)
	}
	if p.Description != nil && *p.Description != "" {
		fmt.Fprintf(w, "\n  %s\n", *p.Description)
	}
}

func printLeadTable(w io.Writer, leads []model.Lead) error {
	rows := make([][]string, 0, len(leads))
	for _, l := range leads {
		assigned := "-"
		if l.AssignedTo != nil {
			assigned = *l.AssignedTo
		}
		rows = append(rows, []string{
			l.ID, truncate(l.Name, 28), string(l.Status), orDash(l.Source),
			budget(l.BudgetMin, l.BudgetMax), assigned,
		})
	}
	return printTable(w, []string{"ID", "NAME", "STATUS", "SOURCE", "BUDGET", "ASSIGNED"}, rows, "leads")
}

func printDealTable(w io.Writer, deals []model.Deal) error {
	rows := make([][]string, 0, len(deals))
	for _, d := range deals {
		closed := "-"
		if d.ClosedAt != nil {
			closed = d.ClosedAt.Local().Format("2006-01-02")
		}
		rows = append(rows, []string{
			d.ID, d.PropertyID, string(d.Status), "$" + formatPrice(d.DealValue),
			"$" + formatPrice(d.CommissionAmount), closed,
		})
	}
	return printTable(w, []string{"ID", "PROPERTY", "STATUS", "VALUE", "COMMISSION", "CLOSED"}, rows, "deals")
}

func printUserTable(w io.Writer, users []model.User) error {
	rows := make([][]string, 0, len(users))
	for _, u := range users {
		last := "never"
		if u.LastLogin != nil {
			last = u.LastLogin.Local().Format(timeLayout)
		}
		rows = append(rows, []string{u.ID, u.Email, truncate(u.FullName, 28), string(u.Role), string(u.Status), last})
	}
	return printTable(w, []string{"ID", "EMAIL", "NAME", "ROLE", "STATUS", "LAST LOGIN"}, rows, "users")
}

// printActivityList prints feed entries newest first.
func printActivityList(w io.Writer, activities []model.Activity) {
	if len(activities) == 0 {
		fmt.Fprintln(w, "No activity.")
		return
	}
	for _, a := range activities {
		fmt.Fprintf(w, "[%s] %s %s %q (%s)\n",
			a.CreatedAt.Local().Format(timeLayout), a.UserID, humanize(string(a.Action)), a.EntityName, a.EntityID)
	}
}

func printAuditTable(w io.Writer, logs []model.AuditLog) error {
	rows := make([][]string, 0, len(logs))
	for _, l := range logs {
		rows = append(rows, []string{
			l.CreatedAt.Local().Format(timeLayout), l.UserID, l.Action, string(l.EntityType), l.EntityID,
		})
	}
	return printTable(w, []string{"TIME", "USER", "ACTION", "ENTITY", "ID"}, rows, "audit entries")
}

func printNotificationTable(w io.Writer, notifications []model.Notification) error {
	rows := make([][]string, 0, len(notifications))
	for _, n := range notifications {
		read := " "
		if !n.Read {
			read = "*"
		}
		rows = append(rows, []string{
			read, n.ID, n.CreatedAt.Local().Format(timeLayout), string(n.Priority), truncate(n.Title, 40),
		})
	}
	return printTable(w, []string{"", "ID", "TIME", "PRIORITY", "TITLE"}, rows, "notifications")
}

func printAnnouncementList(w io.Writer, announcements []model.Announcement) {
	if len(announcements) == 0 {
		fmt.Fprintln(w, "No announcements.")
		return
	}
	for _, a := range announcements {
		fmt.Fprintf(w, "[%s] %s (%s)\n", a.CreatedAt.Local().Format(timeLayout), a.Title, a.Priority)
		if a.Message != "" {
			fmt.Fprintf(w, "  %s\n", a.Message)
		}
		if a.ExpiresAt != nil {
			fmt.Fprintf(w, "  expires %s\n", a.ExpiresAt.Local().Format(timeLayout))
		}
		fmt.Fprintln(w)
	}
}

func printRewardTable(w io.Writer, standings []model.RewardStanding) error {
	rows := make([][]string, 0, len(standings))
	for _, s := range standings {
		rows = append(rows, []string{
			s.Reward.ID, truncate(s.Reward.Title, 32), fmt.Sprintf("%d", s.Reward.PointsRequired),
			string(s.Status), progressBar(s.Progress),
		})
	}
	return printTable(w, []string{"ID", "REWARD", "POINTS", "STATUS", "PROGRESS"}, rows, "rewards")
}

func printReferralSummary(w io.Writer, s model.ReferralSummary) error {
	fmt.Fprintf(w, "Lifetime:          $%s\n", formatPrice(s.LifetimeEarnings))
	fmt.Fprintf(w, "This month:        $%s\n", formatPrice(s.ThisMonthEarnings))
	fmt.Fprintf(w, "Signup fees:       $%s\n", formatPrice(s.SignupFees))
	fmt.Fprintf(w, "Commission shares: $%s\n", formatPrice(s.CommissionShares))
	fmt.Fprintf(w, "Referred agents:   %d\n\n", s.ReferredAgents)

	rows := make([][]string, 0, len(s.Agents))
	for _, a := range s.Agents {
		rows = append(rows, []string{a.AgentID, fmt.Sprintf("%d", a.Earnings), "$" + formatPrice(a.Total)})
	}
	return printTable(w, []string{"AGENT", "EARNINGS", "TOTAL"}, rows, "referred agents")
}

func printStats(w io.Writer, s model.Stats) {
	fmt.Fprintf(w, "Properties:  %d (%d available)\n", s.TotalProperties, s.AvailableProperties)
	fmt.Fprintf(w, "Leads:       %d (%d new)\n", s.TotalLeads, s.NewLeads)
	fmt.Fprintf(w, "Deals:       %d active, %d closed\n", s.ActiveDeals, s.ClosedDeals)
	fmt.Fprintf(w, "Revenue:     $%s\n", formatPrice(s.TotalRevenue))
	fmt.Fprintf(w, "Commission:  $%s\n", formatPrice(s.TotalCommission))
}

// formatPrice formats a dollar amount rounded to whole dollars with commas.
func formatPrice(amount float64) string {
	n := int64(math.Round(amount))
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	s := fmt.Sprintf("%d", n)

	if len(s) <= 3 {
		return sign + s
	}

	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	parts = append([]string{s}, parts...)

	return sign + strings.Join(parts, ",")
}

func budget(lo, hi *float64) string {
	switch {
	case lo != nil && hi != nil:
		return "$" + formatPrice(*lo) + "-" + formatPrice(*hi)
	case lo != nil:
		return "$" + formatPrice(*lo) + "+"
	case hi != nil:
		return "up to $" + formatPrice(*hi)
	}
	return "-"
}

// progressBar renders a percentage as a ten-cell bar.
func progressBar(pct int) string {
	pct = max(0, min(pct, 100))
	filled := pct / 10
	return strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + fmt.Sprintf(" %3d%%", pct)
}

func humanize(action string) string {
	return strings.ReplaceAll(action, "_", " ")
}

func optInt(v *int) string {
	if v == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *v)
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

// truncate shortens a string to maxLen, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}

// parseDate accepts a date or RFC 3339 timestamp.
func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	return t, nil
}
