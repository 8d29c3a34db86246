package store

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/evcraddock/estate-crm/internal/model"
)

func ptr[T any](v T) *T { return &v }

func TestCreatePropertyRecordsAuditAndActivity(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	p, err := f.store.CreateProperty(ctx, model.Property{
		Title:    "Marina Loft",
		Price:    2_000_000,
		Location: "Dubai Marina",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == "" {
		t.Fatal("expected a generated id")
	}
	if p.CreatedBy != f.admin.ID {
		t.Errorf("created_by = %q, want %q", p.CreatedBy, f.admin.ID)
	}

	props := f.store.PropertiesForUser(f.admin.ID, true)
	if len(props) != 1 || props[0].ID != p.ID {
		t.Fatalf("cached properties = %+v, want just %s", props, p.ID)
	}

	logs := f.store.AuditLogs(model.AuditFilter{})
	if len(logs) != 1 {
		t.Fatalf("got %d audit entries, want 1", len(logs))
	}
	entry := logs[0]
	if entry.Action != AuditPropertyAdded || entry.EntityType != model.EntityProperty || entry.EntityID != p.ID {
		t.Errorf("audit entry = %s %s %s", entry.Action, entry.EntityType, entry.EntityID)
	}
	if entry.UserID != f.admin.ID {
		t.Errorf("audit user = %q, want %q", entry.UserID, f.admin.ID)
	}
	if entry.OldValue != nil {
		t.Errorf("old_value = %+v, want nil", entry.OldValue)
	}
	want := model.PropertySnapshot{Title: ptr("Marina Loft"), Price: ptr(2_000_000.0), Location: ptr("Dubai Marina")}
	if diff := cmp.Diff(model.Snapshot(want), entry.NewValue); diff != "" {
		t.Errorf("new_value mismatch (-want +got):\n%s", diff)
	}

	acts := f.store.ActivitiesForUser(f.admin.ID, true)
	if len(acts) != 1 {
		t.Fatalf("got %d activities, want 1", len(acts))
	}
	if acts[0].Action != model.ActionPropertyAdded || acts[0].EntityName != "Marina Loft" {
		t.Errorf("activity = %s %q", acts[0].Action, acts[0].EntityName)
	}
}

func TestCacheMatchesRemoteAfterUpdate(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	p, err := f.store.CreateProperty(ctx, model.Property{Title: "Villa", Price: 10})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	features := []string{"sea view"}
	updated, err := f.store.UpdateProperty(ctx, p.ID, model.PropertyPatch{Price: ptr(20.0), Features: &features})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	remote, err := f.properties.GetByID(ctx, p.ID)
	if err != nil {
		t.Fatalf("remote get: %v", err)
	}
	if diff := cmp.Diff(remote, updated); diff != "" {
		t.Errorf("returned record drifted from remote (-remote +returned):\n%s", diff)
	}
	cached, ok := f.store.Property(p.ID)
	if !ok {
		t.Fatal("property missing from cache")
	}
	if diff := cmp.Diff(remote, cached); diff != "" {
		t.Errorf("cached record drifted from remote (-remote +cached):\n%s", diff)
	}
	if n := len(f.store.PropertiesForUser(f.admin.ID, true)); n != 1 {
		t.Errorf("update duplicated the cached record: %d entries", n)
	}
}

func TestEveryMutationIsAudited(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()
	s := f.store
	start := time.Now().UTC()

	type ref struct {
		entity model.EntityType
		id     string
		action string
	}
	var want []ref
	must := func(r ref, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("%s: %v", r.action, err)
		}
		want = append(want, r)
	}

	p, err := s.CreateProperty(ctx, model.Property{Title: "Loft"})
	must(ref{model.EntityProperty, p.ID, AuditPropertyAdded}, err)
	_, err = s.UpdateProperty(ctx, p.ID, model.PropertyPatch{Price: ptr(5.0)})
	must(ref{model.EntityProperty, p.ID, AuditPropertyUpdated}, err)
	_, err = s.ArchiveProperty(ctx, p.ID)
	must(ref{model.EntityProperty, p.ID, AuditPropertyArchived}, err)

	l, err := s.CreateLead(ctx, model.Lead{Name: "Buyer"})
	must(ref{model.EntityLead, l.ID, AuditLeadAdded}, err)
	_, err = s.UpdateLead(ctx, l.ID, model.LeadPatch{Notes: ptr("called")})
	must(ref{model.EntityLead, l.ID, AuditLeadUpdated}, err)
	_, err = s.ArchiveLead(ctx, l.ID)
	must(ref{model.EntityLead, l.ID, AuditLeadArchived}, err)
	must(ref{model.EntityLead, l.ID, AuditLeadDeleted}, s.DeleteLead(ctx, l.ID))

	d, err := s.CreateDeal(ctx, model.Deal{PropertyID: p.ID, DealValue: 100, CommissionRate: 2, CommissionAmount: 2})
	must(ref{model.EntityDeal, d.ID, AuditDealCreated}, err)
	_, err = s.UpdateDeal(ctx, d.ID, model.DealPatch{Notes: ptr("signed")})
	must(ref{model.EntityDeal, d.ID, AuditDealUpdated}, err)
	_, err = s.CloseDeal(ctx, d.ID)
	must(ref{model.EntityDeal, d.ID, AuditDealClosed}, err)
	_, err = s.DeleteDeal(ctx, d.ID)
	must(ref{model.EntityDeal, d.ID, AuditDealDeleted}, err)

	u, err := s.CreateUser(ctx, model.NewUser{Email: "new@example.com", FullName: "New", Role: model.RoleUser, Password: "password123"})
	must(ref{model.EntityUser, u.ID, AuditUserCreated}, err)
	_, err = s.UpdateUser(ctx, u.ID, model.UserPatch{FullName: ptr("Renamed")})
	must(ref{model.EntityUser, u.ID, AuditUserUpdated}, err)
	_, err = s.ToggleUserStatus(ctx, u.ID)
	must(ref{model.EntityUser, u.ID, AuditUserStatus}, err)
	must(ref{model.EntityUser, u.ID, AuditUserDeleted}, s.DeleteUser(ctx, u.ID))

	must(ref{model.EntityProperty, p.ID, AuditPropertyDeleted}, s.DeleteProperty(ctx, p.ID))

	logs := s.AuditLogs(model.AuditFilter{})
	if len(logs) != len(want) {
		t.Fatalf("got %d audit entries, want %d", len(logs), len(want))
	}
	var got []ref
	for i := len(logs) - 1; i >= 0; i-- {
		got = append(got, ref{logs[i].EntityType, logs[i].EntityID, logs[i].Action})
		if logs[i].CreatedAt.Before(start) {
			t.Errorf("audit %s created_at %v is before the mutation started (%v)", logs[i].Action, logs[i].CreatedAt, start)
		}
	}
	if diff := cmp.Diff(want, got, cmp.AllowUnexported(ref{})); diff != "" {
		t.Errorf("audit trail mismatch (-want +got):\n%s", diff)
	}

	stored, err := f.remote.Audit.List(ctx, 0)
	if err != nil {
		t.Fatalf("listing remote audit: %v", err)
	}
	if len(stored) != len(want) {
		t.Errorf("remote has %d audit entries, want %d", len(stored), len(want))
	}

	var actions []model.ActivityAction
	for _, a := range s.ActivitiesForUser(f.admin.ID, true) {
		actions = append(actions, a.Action)
	}
	wantActions := []model.ActivityAction{
		model.ActionUserCreated,
		model.ActionDealClosed,
		model.ActionDealCreated,
		model.ActionLeadArchived,
		model.ActionLeadAdded,
		model.ActionPropertyArchived,
		model.ActionPropertyAdded,
	}
	if diff := cmp.Diff(wantActions, actions); diff != "" {
		t.Errorf("activity feed mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteDealCancels(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	d, err := f.store.CreateDeal(ctx, model.Deal{PropertyID: "p1", DealValue: 900000})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	activitiesBefore := len(f.store.ActivitiesForUser(f.admin.ID, true))

	cancelled, err := f.store.DeleteDeal(ctx, d.ID)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if cancelled.Status != model.DealStatusCancelled {
		t.Errorf("status = %q, want cancelled", cancelled.Status)
	}

	deals := f.store.DealsForUser(f.admin.ID, true)
	if len(deals) != 1 || deals[0].ID != d.ID || deals[0].Status != model.DealStatusCancelled {
		t.Errorf("cached deals = %+v, want %s cancelled", deals, d.ID)
	}
	remote, err := f.deals.GetByID(ctx, d.ID)
	if err != nil {
		t.Fatalf("deal removed from remote: %v", err)
	}
	if remote.Status != model.DealStatusCancelled {
		t.Errorf("remote status = %q, want cancelled", remote.Status)
	}

	logs := f.store.AuditLogs(model.AuditFilter{Action: AuditDealDeleted})
	if len(logs) != 1 {
		t.Fatalf("got %d deal_deleted entries, want 1", len(logs))
	}
	old, ok := logs[0].OldValue.(model.DealSnapshot)
	if !ok || old.Status == nil || *old.Status != model.DealStatusPending {
		t.Errorf("old_value = %+v, want status pending", logs[0].OldValue)
	}
	if n := len(f.store.ActivitiesForUser(f.admin.ID, true)); n != activitiesBefore {
		t.Errorf("delete wrote an activity: %d -> %d", activitiesBefore, n)
	}
}

func TestCloseDealStampsClosedAt(t *testing.T) {
	f := newFixture(t)
	fixed := time.Date(2026, 10, 1, 15, 0, 0, 0, time.UTC)
	f.store = f.newStore(WithClock(func() time.Time { return fixed }))
	f.loadAs(t, f.admin)
	ctx := context.Background()

	p, err := f.store.CreateProperty(ctx, model.Property{Title: "Palm Villa"})
	if err != nil {
		t.Fatalf("create property: %v", err)
	}
	d, err := f.store.CreateDeal(ctx, model.Deal{PropertyID: p.ID, DealValue: 1})
	if err != nil {
		t.Fatalf("create deal: %v", err)
	}

	closed, err := f.store.CloseDeal(ctx, d.ID)
	if err != nil {
		t.Fatalf("close: %v", err)
	}
	if closed.ClosedAt == nil || !closed.ClosedAt.Equal(fixed) {
		t.Errorf("closed_at = %v, want %v", closed.ClosedAt, fixed)
	}

	acts := f.store.ActivitiesForUser(f.admin.ID, true)
	if len(acts) == 0 || acts[0].Action != model.ActionDealClosed || acts[0].EntityName != "Palm Villa" {
		t.Errorf("latest activity = %+v, want deal_closed for Palm Villa", acts)
	}
}

func TestSideEffectFailuresAreSwallowed(t *testing.T) {
	tests := []struct {
		name         string
		breakRemote  func(*Remote)
		wantAudit    int
		wantActivity int
		wantFailure  string
	}{
		{
			name:         "audit write fails",
			breakRemote:  func(r *Remote) { r.Audit = failingAudit{r.Audit} },
			wantAudit:    0,
			wantActivity: 1,
			wantFailure:  "audit:property",
		},
		{
			name:         "activity write fails",
			breakRemote:  func(r *Remote) { r.Activities = failingActivities{r.Activities} },
			wantAudit:    1,
			wantActivity: 0,
			wantFailure:  "activity:property",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			tt.breakRemote(&f.remote)
			f.store = f.newStore()
			f.loadAs(t, f.admin)

			p, err := f.store.CreateProperty(context.Background(), model.Property{Title: "Still saved"})
			if err != nil {
				t.Fatalf("create returned side-effect error: %v", err)
			}
			if _, ok := f.store.Property(p.ID); !ok {
				t.Error("primary record missing from cache")
			}
			if n := len(f.store.AuditLogs(model.AuditFilter{})); n != tt.wantAudit {
				t.Errorf("audit entries = %d, want %d", n, tt.wantAudit)
			}
			if n := len(f.store.ActivitiesForUser(f.admin.ID, true)); n != tt.wantActivity {
				t.Errorf("activities = %d, want %d", n, tt.wantActivity)
			}
			if diff := cmp.Diff([]string{tt.wantFailure}, f.obs.sideEffects); diff != "" {
				t.Errorf("side-effect failures mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestPrimaryFailureLeavesCacheUntouched(t *testing.T) {
	f := newFixture(t)
	f.remote.Properties = failingPropertyCreate{f.remote.Properties}
	f.store = f.newStore()
	f.loadAs(t, f.admin)

	_, err := f.store.CreateProperty(context.Background(), model.Property{Title: "Never"})
	if !errors.Is(err, errBoom) {
		t.Fatalf("err = %v, want errBoom", err)
	}
	if n := len(f.store.PropertiesForUser(f.admin.ID, true)); n != 0 {
		t.Errorf("cache has %d properties, want 0", n)
	}
	if n := len(f.store.AuditLogs(model.AuditFilter{})); n != 0 {
		t.Errorf("failed mutation wrote %d audit entries", n)
	}
	if n := len(f.store.ActivitiesForUser(f.admin.ID, true)); n != 0 {
		t.Errorf("failed mutation wrote %d activities", n)
	}
	if diff := cmp.Diff([]string{"property_added:error"}, f.obs.mutations); diff != "" {
		t.Errorf("observed mutations mismatch (-want +got):\n%s", diff)
	}
}

func TestMutationsRequireIdentity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	if _, err := f.store.CreateProperty(ctx, model.Property{Title: "x"}); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("CreateProperty: err = %v, want ErrNoIdentity", err)
	}
	if _, err := f.store.CreateLead(ctx, model.Lead{Name: "x"}); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("CreateLead: err = %v, want ErrNoIdentity", err)
	}
	if err := f.store.MarkAllNotificationsRead(ctx); !errors.Is(err, ErrNoIdentity) {
		t.Errorf("MarkAllNotificationsRead: err = %v, want ErrNoIdentity", err)
	}
}

func TestToggleUserStatus(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	u, err := f.store.ToggleUserStatus(ctx, f.agent.ID)
	if err != nil {
		t.Fatalf("toggle: %v", err)
	}
	if u.Status != model.UserStatusInactive {
		t.Errorf("status = %q, want inactive", u.Status)
	}
	logs := f.store.AuditLogs(model.AuditFilter{Action: AuditUserStatus})
	if len(logs) != 1 {
		t.Fatalf("got %d status audit entries, want 1", len(logs))
	}
	if diff := cmp.Diff(model.Snapshot(userSnapshot(u)), logs[0].NewValue); diff != "" {
		t.Errorf("new_value mismatch (-want +got):\n%s", diff)
	}

	if u, err = f.store.ToggleUserStatus(ctx, f.agent.ID); err != nil {
		t.Fatalf("toggle back: %v", err)
	}
	if u.Status != model.UserStatusActive {
		t.Errorf("status = %q, want active", u.Status)
	}

	if _, err := f.store.UpdateUser(ctx, f.agent.ID, model.UserPatch{Status: ptr(model.UserStatusSuspended)}); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	if _, err := f.store.ToggleUserStatus(ctx, f.agent.ID); !errors.Is(err, ErrStatusLocked) {
		t.Errorf("toggle suspended: err = %v, want ErrStatusLocked", err)
	}
	remote, err := f.users.GetByID(ctx, f.agent.ID)
	if err != nil {
		t.Fatalf("remote get: %v", err)
	}
	if remote.Status != model.UserStatusSuspended {
		t.Errorf("remote status = %q, want suspended", remote.Status)
	}
}

func TestToggleSuspendedUserWithStaleCache(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	// Suspended behind the cache's back.
	if _, err := f.users.Update(ctx, f.agent.ID, model.UserPatch{Status: ptr(model.UserStatusSuspended)}); err != nil {
		t.Fatalf("suspend: %v", err)
	}

	_, err := f.store.ToggleUserStatus(ctx, f.agent.ID)
	if !errors.Is(err, ErrStatusLocked) {
		t.Errorf("err = %v, want ErrStatusLocked", err)
	}
	if !errors.Is(err, model.ErrConflict) {
		t.Errorf("err = %v, want the remote conflict kept in the chain", err)
	}
	if n := len(f.store.AuditLogs(model.AuditFilter{Action: AuditUserStatus})); n != 0 {
		t.Errorf("refused toggle wrote %d audit entries", n)
	}
	if u, _ := f.store.User(f.agent.ID); u.Status != model.UserStatusActive {
		t.Errorf("cached status = %q, want untouched active", u.Status)
	}
}

func TestConcurrentTogglesBothApply(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.store.ToggleUserStatus(ctx, f.agent.ID)
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		if err != nil {
			t.Fatalf("toggle %d: %v", i, err)
		}
	}

	remote, err := f.users.GetByID(ctx, f.agent.ID)
	if err != nil {
		t.Fatalf("remote get: %v", err)
	}
	if remote.Status != model.UserStatusActive {
		t.Errorf("two toggles left status %q, want active", remote.Status)
	}
}

func TestCreateUserValidation(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	tests := []struct {
		name string
		nu   model.NewUser
	}{
		{"bad email", model.NewUser{Email: "not-an-email", FullName: "X", Role: model.RoleUser, Password: "password123"}},
		{"short password", model.NewUser{Email: "x@example.com", FullName: "X", Role: model.RoleUser, Password: "short"}},
		{"unknown role", model.NewUser{Email: "x@example.com", FullName: "X", Role: "owner", Password: "password123"}},
		{"duplicate email", model.NewUser{Email: "AGENT@example.com", FullName: "X", Role: model.RoleUser, Password: "password123"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.store.CreateUser(ctx, tt.nu); !errors.Is(err, ErrValidation) {
				t.Errorf("err = %v, want ErrValidation", err)
			}
		})
	}

	all, err := f.users.GetAll(ctx)
	if err != nil {
		t.Fatalf("listing users: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("remote has %d users, want the 2 fixtures", len(all))
	}
	if len(f.obs.mutations) != 0 {
		t.Errorf("validation failures reached the remote: %v", f.obs.mutations)
	}
}

func TestChangePassword(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	if err := f.store.ChangePassword(ctx, f.agent.ID, "short"); !errors.Is(err, ErrValidation) {
		t.Errorf("short password: err = %v, want ErrValidation", err)
	}
	if err := f.store.ChangePassword(ctx, f.agent.ID, "a-much-longer-secret"); err != nil {
		t.Fatalf("change password: %v", err)
	}
	if _, err := f.users.Authenticate(ctx, f.agent.Email, "a-much-longer-secret"); err != nil {
		t.Errorf("new password rejected: %v", err)
	}

	logs := f.store.AuditLogs(model.AuditFilter{Action: AuditPasswordChanged})
	if len(logs) != 1 {
		t.Fatalf("got %d password audit entries, want 1", len(logs))
	}
	if logs[0].OldValue != nil || logs[0].NewValue != nil {
		t.Errorf("password audit carries snapshots: %+v", logs[0])
	}
	acts := f.store.ActivitiesForUser(f.admin.ID, true)
	if len(acts) != 1 || acts[0].Action != model.ActionPasswordChanged || acts[0].EntityName != "Sam Agent" {
		t.Errorf("activities = %+v, want one password_changed for Sam Agent", acts)
	}
}

func TestAssignLeadNotifiesAssignee(t *testing.T) {
	f := newFixture(t)
	f.loadAs(t, f.admin)
	ctx := context.Background()

	l, err := f.store.CreateLead(ctx, model.Lead{Name: "Walk-in"})
	if err != nil {
		t.Fatalf("create lead: %v", err)
	}
	assigned, err := f.store.AssignLead(ctx, l.ID, f.agent.ID)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if assigned.AssignedTo == nil || *assigned.AssignedTo != f.agent.ID {
		t.Errorf("assigned_to = %v, want %s", assigned.AssignedTo, f.agent.ID)
	}

	notes := f.store.NotificationsForUser(f.agent.ID)
	if len(notes) != 1 || notes[0].Type != model.NotificationLeadAssigned {
		t.Fatalf("agent notifications = %+v, want one lead_assigned", notes)
	}
	if notes[0].SenderID == nil || *notes[0].SenderID != f.admin.ID {
		t.Errorf("sender = %v, want %s", notes[0].SenderID, f.admin.ID)
	}
}
