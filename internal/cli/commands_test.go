package cli

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/evcraddock/estate-crm/internal/auth"
	"github.com/evcraddock/estate-crm/internal/db"
	"github.com/evcraddock/estate-crm/internal/model"
	"github.com/evcraddock/estate-crm/internal/repository"
	"github.com/evcraddock/estate-crm/internal/web"
)

const testPassword = "password123"

type cliEnv struct {
	admin model.User
	agent model.User
}

// testEnv runs the API server on a temporary database and points the CLI
// at it with an empty config.
func testEnv(t *testing.T) cliEnv {
	t.Helper()
	d, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if cerr := d.Close(); cerr != nil {
			t.Errorf("close db: %v", cerr)
		}
	})

	users := repository.NewUserRepository(d)
	users.SetHashCost(bcrypt.MinCost)
	ctx := context.Background()
	admin, err := users.Create(ctx, model.NewUser{Email: "admin@example.com", FullName: "Ada Admin", Role: model.RoleAdmin, Password: testPassword})
	if err != nil {
		t.Fatalf("create admin: %v", err)
	}
	agent, err := users.Create(ctx, model.NewUser{Email: "agent@example.com", FullName: "Sam Agent", Role: model.RoleUser, Password: testPassword})
	if err != nil {
		t.Fatalf("create agent: %v", err)
	}

	sessions := auth.NewSessionStore(d, auth.NewTokens("test-secret"), time.Hour)
	srv := web.NewServer(d, sessions,
		web.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		web.WithHashCost(bcrypt.MinCost),
	)
	ts := httptest.NewServer(srv)
	t.Cleanup(ts.Close)

	t.Setenv("HOME", t.TempDir())
	t.Setenv("ECRM_CONFIG", "")
	t.Setenv("ECRM_SERVER_URL", ts.URL)
	t.Setenv("ECRM_TOKEN", "")

	return cliEnv{admin: admin, agent: agent}
}

// login signs in through the CLI and fails the test on error.
func login(t *testing.T, email string) {
	t.Helper()
	if _, stderr, err := executeWithInput(testPassword+"\n", "login", "--email", email); err != nil {
		t.Fatalf("login %s: %v (%s)", email, err, stderr)
	}
}

// runJSON runs a command with --format json and decodes its output into v.
func runJSON(t *testing.T, v interface{}, args ...string) {
	t.Helper()
	stdout, stderr, err := executeWithInput("", append(args, "--format", "json")...)
	if err != nil {
		t.Fatalf("%v: %v (%s)", args, err, stderr)
	}
	if err := json.Unmarshal([]byte(stdout), v); err != nil {
		t.Fatalf("%v: decoding output: %v\n%s", args, err, stdout)
	}
}

// runText runs a command and returns its stdout.
func runText(t *testing.T, args ...string) string {
	t.Helper()
	stdout, stderr, err := executeWithInput("", args...)
	if err != nil {
		t.Fatalf("%v: %v (%s)", args, err, stderr)
	}
	return stdout
}

func TestLoginStatusLogout(t *testing.T) {
	testEnv(t)

	stdout, _, err := executeWithInput(testPassword+"\n", "login", "--email", "Admin@Example.com")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !strings.Contains(stdout, "Logged in as admin@example.com (admin)") {
		t.Errorf("login output = %q", stdout)
	}
	cfg, err := loadConfig()
	if err != nil || cfg.Token == "" {
		t.Fatalf("token not saved: %+v %v", cfg, err)
	}

	if out := runText(t, "status"); !strings.Contains(out, "connected and authenticated") {
		t.Errorf("status output = %q", out)
	}

	if out := runText(t, "logout"); !strings.Contains(out, "Logged out") {
		t.Errorf("logout output = %q", out)
	}
	cfg, err = loadConfig()
	if err != nil || cfg.Token != "" {
		t.Fatalf("token not cleared: %+v %v", cfg, err)
	}

	if out := runText(t, "logout"); !strings.Contains(out, "Not logged in") {
		t.Errorf("second logout output = %q", out)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	testEnv(t)

	_, _, err := executeWithInput("wrong-password\n", "login", "--email", "admin@example.com")
	if err == nil {
		t.Fatal("expected error")
	}
	cfg, err := loadConfig()
	if err != nil || cfg.Token != "" {
		t.Errorf("config = %+v %v, want no token", cfg, err)
	}
}

func TestStatusRevokedToken(t *testing.T) {
	testEnv(t)
	login(t, "agent@example.com")

	cfg, err := loadConfig()
	if err != nil {
		t.Fatal(err)
	}
	t.Setenv("ECRM_TOKEN", cfg.Token+"x")

	if out := runText(t, "status"); !strings.Contains(out, "session expired or revoked") {
		t.Errorf("status output = %q", out)
	}
}

func TestPropertyAndDealLifecycle(t *testing.T) {
	env := testEnv(t)
	login(t, "agent@example.com")

	var p model.Property
	runJSON(t, &p, "properties", "add", "--title", "Marina View", "--price", "450000",
		"--location", "Dubai Marina", "--bedrooms", "2", "--feature", "pool", "--feature", "gym")
	if p.CreatedBy != env.agent.ID || p.Status != model.PropertyStatusAvailable {
		t.Errorf("property = %+v", p)
	}
	if p.Bedrooms == nil || *p.Bedrooms != 2 || len(p.Features) != 2 {
		t.Errorf("bedrooms/features = %v %v", p.Bedrooms, p.Features)
	}

	out := runText(t, "properties", "list")
	if !strings.Contains(out, "Marina View") || !strings.Contains(out, "Total: 1 properties") {
		t.Errorf("list output:\n%s", out)
	}

	runJSON(t, &p, "properties", "update", p.ID, "--price", "475000")
	if p.Price != 475000 {
		t.Errorf("price = %v, want 475000", p.Price)
	}

	var d model.Deal
	runJSON(t, &d, "deals", "add", "--property", p.ID, "--value", "1000000", "--rate", "2")
	if d.CommissionAmount != 20000 || d.CloserID != env.agent.ID || d.Status != model.DealStatusPending {
		t.Errorf("deal = %+v", d)
	}

	runJSON(t, &d, "deals", "close", d.ID)
	if d.Status != model.DealStatusClosed || d.ClosedAt == nil {
		t.Errorf("closed deal = %+v", d)
	}

	var activity []model.Activity
	runJSON(t, &activity, "activity", "--limit", "0")
	actions := map[model.ActivityAction]bool{}
	for _, a := range activity {
		actions[a.Action] = true
	}
	for _, want := range []model.ActivityAction{model.ActionPropertyAdded, model.ActionDealCreated, model.ActionDealClosed} {
		if !actions[want] {
			t.Errorf("activity missing %s: %+v", want, activity)
		}
	}

	var stats model.Stats
	runJSON(t, &stats, "stats")
	if stats.TotalProperties != 1 || stats.ClosedDeals != 1 || stats.TotalCommission != 20000 {
		t.Errorf("stats = %+v", stats)
	}

	var sum model.ActivitySummary
	runJSON(t, &sum, "summary")
	if sum.PropertiesCreated != 1 || sum.Deals != 1 {
		t.Errorf("summary = %+v", sum)
	}

	runJSON(t, &p, "properties", "archive", p.ID)
	if p.Status != model.PropertyStatusArchived {
		t.Errorf("status = %s, want archived", p.Status)
	}

	if out := runText(t, "properties", "remove", p.ID); !strings.Contains(out, "Removed property") {
		t.Errorf("remove output = %q", out)
	}
	var props []model.Property
	runJSON(t, &props, "properties", "list")
	if len(props) != 0 {
		t.Errorf("got %d properties after remove", len(props))
	}
}

func TestDealCancel(t *testing.T) {
	testEnv(t)
	login(t, "agent@example.com")

	var p model.Property
	runJSON(t, &p, "properties", "add", "--title", "Palm Villa", "--type", "villa")
	var d model.Deal
	runJSON(t, &d, "deals", "add", "--property", p.ID, "--value", "500000", "--rate", "3", "--commission", "12000")
	if d.CommissionAmount != 12000 {
		t.Errorf("commission = %v, want the given 12000", d.CommissionAmount)
	}

	runJSON(t, &d, "deals", "cancel", d.ID)
	if d.Status != model.DealStatusCancelled {
		t.Errorf("status = %s, want cancelled", d.Status)
	}
	var deals []model.Deal
	runJSON(t, &deals, "deals", "list", "--status", "cancelled")
	if len(deals) != 1 {
		t.Errorf("got %d cancelled deals, want 1", len(deals))
	}
}

func TestLeadAssignNotifies(t *testing.T) {
	env := testEnv(t)
	login(t, "admin@example.com")

	var l model.Lead
	runJSON(t, &l, "leads", "add", "--name", "Jane Buyer", "--email", "jane@example.com",
		"--budget-min", "300000", "--preferred-type", "villa")
	if l.Status != model.LeadStatusNew || l.BudgetMin == nil || *l.BudgetMin != 300000 {
		t.Errorf("lead = %+v", l)
	}

	runJSON(t, &l, "leads", "assign", l.ID, env.agent.ID)
	if l.AssignedTo == nil || *l.AssignedTo != env.agent.ID {
		t.Errorf("assigned_to = %v", l.AssignedTo)
	}

	login(t, "agent@example.com")
	var leads []model.Lead
	runJSON(t, &leads, "leads", "list")
	if len(leads) != 1 || leads[0].ID != l.ID {
		t.Errorf("agent leads = %+v", leads)
	}

	var notifications []model.Notification
	runJSON(t, &notifications, "notifications", "list", "--unread")
	if len(notifications) != 1 || notifications[0].Type != model.NotificationLeadAssigned {
		t.Fatalf("notifications = %+v", notifications)
	}

	runText(t, "notifications", "read-all")
	runJSON(t, &notifications, "notifications", "list", "--unread")
	if len(notifications) != 0 {
		t.Errorf("unread after read-all = %d", len(notifications))
	}

	runJSON(t, &l, "leads", "update", l.ID, "--status", "qualified")
	if l.Status != model.LeadStatusQualified {
		t.Errorf("status = %s", l.Status)
	}
}

func TestAdminOnlyCommands(t *testing.T) {
	testEnv(t)
	login(t, "agent@example.com")

	for _, args := range [][]string{
		{"audit"},
		{"users", "toggle", "someone"},
		{"users", "remove", "someone"},
		{"announcements", "add", "--title", "Hello"},
	} {
		_, _, err := executeWithInput("", args...)
		if err == nil || !strings.Contains(err.Error(), "requires an admin") {
			t.Errorf("%v: err = %v, want admin error", args, err)
		}
	}
}

func TestUserManagement(t *testing.T) {
	env := testEnv(t)
	login(t, "admin@example.com")

	stdout, stderr, err := executeWithInput("newpassword1\n",
		"users", "add", "--email", "new@example.com", "--name", "New Agent", "--format", "json")
	if err != nil {
		t.Fatalf("users add: %v (%s)", err, stderr)
	}
	var u model.User
	if err := json.Unmarshal([]byte(stdout[strings.Index(stdout, "{"):]), &u); err != nil {
		t.Fatalf("decoding user: %v\n%s", err, stdout)
	}
	if u.Role != model.RoleUser || u.Status != model.UserStatusActive {
		t.Errorf("user = %+v", u)
	}

	runJSON(t, &u, "users", "toggle", u.ID)
	if u.Status != model.UserStatusInactive {
		t.Errorf("status = %s, want inactive", u.Status)
	}

	var users []model.User
	runJSON(t, &users, "users", "list")
	if len(users) != 3 {
		t.Errorf("got %d users, want 3", len(users))
	}

	var logs []model.AuditLog
	runJSON(t, &logs, "audit", "--entity", "user", "--user", env.admin.ID)
	if len(logs) < 2 {
		t.Errorf("got %d user audit entries, want at least 2", len(logs))
	}
	runJSON(t, &logs, "audit", "--action", "NO_SUCH_ACTION")
	if len(logs) != 0 {
		t.Errorf("got %d entries for unknown action", len(logs))
	}

	if out := runText(t, "users", "remove", u.ID); !strings.Contains(out, "Removed user") {
		t.Errorf("remove output = %q", out)
	}
}

func TestChangeOwnPassword(t *testing.T) {
	testEnv(t)
	login(t, "agent@example.com")

	if _, _, err := executeWithInput("short\n", "users", "passwd"); err == nil {
		t.Fatal("expected error for short password")
	}

	if _, stderr, err := executeWithInput("a-longer-password\n", "users", "passwd"); err != nil {
		t.Fatalf("passwd: %v (%s)", err, stderr)
	}
	if _, _, err := executeWithInput("a-longer-password\n", "login", "--email", "agent@example.com"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestAnnouncementsAndRewards(t *testing.T) {
	testEnv(t)
	login(t, "admin@example.com")

	var a model.Announcement
	runJSON(t, &a, "announcements", "add", "--title", "Quarter close", "--message", "Submit deals by Friday",
		"--expires", time.Now().Add(48*time.Hour).UTC().Format(time.RFC3339))
	runJSON(t, &a, "announcements", "add", "--title", "Old news", "--expires", "2000-01-01")

	var active []model.Announcement
	runJSON(t, &active, "announcements", "list")
	if len(active) != 1 || active[0].Title != "Quarter close" {
		t.Errorf("active = %+v", active)
	}

	var standings []model.RewardStanding
	runJSON(t, &standings, "rewards", "list", "--points", "50")
	if len(standings) != 0 {
		t.Errorf("got %d standings with an empty catalog", len(standings))
	}

	var summary model.ReferralSummary
	runJSON(t, &summary, "referrals", "list")
	if summary.LifetimeEarnings != 0 || summary.ReferredAgents != 0 {
		t.Errorf("summary = %+v", summary)
	}
}

func TestAttachDocument(t *testing.T) {
	testEnv(t)
	root := t.TempDir()
	t.Setenv("ECRM_BLOB_DRIVER", "fs")
	t.Setenv("ECRM_BLOB_FS_ROOT", root)
	t.Setenv("ECRM_BLOB_BASE_URL", "https://cdn.example.com/media")
	login(t, "agent@example.com")

	var p model.Property
	runJSON(t, &p, "properties", "add", "--title", "Marina View")

	file := filepath.Join(t.TempDir(), "floor plan.pdf")
	if err := os.WriteFile(file, []byte("%PDF-1.4 test"), 0o600); err != nil {
		t.Fatal(err)
	}

	runJSON(t, &p, "properties", "attach", p.ID, file, "--kind", "document")
	if len(p.Documents) != 1 {
		t.Fatalf("documents = %+v", p.Documents)
	}
	doc := p.Documents[0]
	if doc.Name != "floor plan.pdf" || doc.ByteSize != int64(len("%PDF-1.4 test")) {
		t.Errorf("document = %+v", doc)
	}
	if !strings.HasPrefix(doc.URL, "https://cdn.example.com/media/properties/"+p.ID+"/documents/") {
		t.Errorf("url = %q", doc.URL)
	}

	stored := filepath.Join(root, "properties", p.ID, "documents", doc.ID+"-floor-plan.pdf")
	if _, err := os.Stat(stored); err != nil {
		t.Errorf("stored file: %v", err)
	}

	out := runText(t, "properties", "show", p.ID)
	if !strings.Contains(out, "Document:  floor plan.pdf") {
		t.Errorf("show output:\n%s", out)
	}
}

func TestDashboardOnce(t *testing.T) {
	testEnv(t)
	login(t, "admin@example.com")
	runText(t, "properties", "add", "--title", "Marina View")

	out := runText(t, "dashboard", "--once")
	for _, want := range []string{"admin@example.com", "Properties:  1 (1 available)", "property added"} {
		if !strings.Contains(out, want) {
			t.Errorf("dashboard missing %q:\n%s", want, out)
		}
	}

	var snapshot struct {
		Stats  model.Stats `json:"stats"`
		Unread int         `json:"unread"`
	}
	runJSON(t, &snapshot, "dashboard", "--once")
	if snapshot.Stats.TotalProperties != 1 {
		t.Errorf("snapshot = %+v", snapshot)
	}
}
