package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	mqcontracts "agencyhub/contracts/mq"
	"agencyhub/internal/errs"
	"agencyhub/internal/mailer"
	"agencyhub/internal/model"
	"agencyhub/internal/repository/memory"
	"agencyhub/pkg/rbac"
)

type recordedEvent struct {
	routingKey string
	payload    any
}

type recordingOutbox struct {
	events []recordedEvent
}

func (o *recordingOutbox) Enqueue(_ context.Context, _, _, routingKey string, payload any) error {
	o.events = append(o.events, recordedEvent{routingKey: routingKey, payload: payload})
	return nil
}

func (o *recordingOutbox) count(routingKey string) int {
	n := 0
	for _, e := range o.events {
		if e.routingKey == routingKey {
			n++
		}
	}
	return n
}

type captureSender struct {
	sent []mailer.Message
}

func (s *captureSender) Send(_ context.Context, msg mailer.Message) error {
	s.sent = append(s.sent, msg)
	return nil
}

func addUser(t *testing.T, store *memory.Store, name, role string) *model.User {
	t.Helper()
	u := &model.User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(name) + "@agency.test",
		Role:      role,
		CreatedAt: time.Now().UTC(),
	}
	if err := store.Users().Create(context.Background(), u); err != nil {
		t.Fatal(err)
	}
	return u
}

func TestClientServiceEmailConflict(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	svc := NewClientService(store.Clients(), zap.NewNop())

	first, err := svc.Create(ctx, &model.Client{Name: "A", Email: "a@x.io", Phone: "1", CompanyName: "A"})
	if err != nil {
		t.Fatal(err)
	}
	if first.Status != model.ClientPending {
		t.Errorf("default status = %q", first.Status)
	}

	_, err = svc.Create(ctx, &model.Client{Name: "B", Email: "a@x.io", Phone: "2", CompanyName: "B"})
	if !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}
	if n, _ := store.Clients().Count(ctx); n != 1 {
		t.Fatalf("clients = %d, want 1", n)
	}

	second, err := svc.Create(ctx, &model.Client{Name: "B", Email: "b@x.io", Phone: "2", CompanyName: "B"})
	if err != nil {
		t.Fatal(err)
	}
	taken := "a@x.io"
	if _, err := svc.Update(ctx, second.ID, model.ClientPatch{Email: &taken}); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("update err = %v, want conflict", err)
	}
	// 改回自己的邮箱不算冲突
	own := "b@x.io"
	if _, err := svc.Update(ctx, second.ID, model.ClientPatch{Email: &own}); err != nil {
		t.Fatalf("update own email: %v", err)
	}
}

func TestClientServiceValidation(t *testing.T) {
	svc := NewClientService(memory.NewStore().Clients(), zap.NewNop())
	cases := []*model.Client{
		{Email: "a@x.io", Phone: "1", CompanyName: "A"},
		{Name: "A", Phone: "1", CompanyName: "A"},
		{Name: "A", Email: "a@x.io", CompanyName: "A"},
		{Name: "A", Email: "a@x.io", Phone: "1"},
		{Name: "A", Email: "a@x.io", Phone: "1", CompanyName: "A", Status: "Gone"},
	}
	for i, c := range cases {
		if _, err := svc.Create(context.Background(), c); !errors.Is(err, errs.ErrValidation) {
			t.Errorf("case %d: err = %v, want validation", i, err)
		}
	}
}

func TestTaskStatusAuthorization(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	events := &recordingOutbox{}
	svc := NewTaskService(store.Tasks(), store, events, zap.NewNop())

	admin := addUser(t, store, "Ann", rbac.RoleAdmin)
	owner := addUser(t, store, "Ivy", rbac.RoleIntern)
	other := addUser(t, store, "Oli", rbac.RoleIntern)

	assigned, err := svc.Create(ctx, &model.Task{Name: "Copy", ProjectID: uuid.New(), AssignedToID: &owner.ID})
	if err != nil {
		t.Fatal(err)
	}
	if assigned.Status != model.TaskPending || assigned.Priority != model.PriorityMedium {
		t.Fatalf("defaults = %q/%q", assigned.Status, assigned.Priority)
	}
	if assigned.AssignedTo == nil || assigned.AssignedTo.Name != "Ivy" {
		t.Fatalf("assignedTo = %+v", assigned.AssignedTo)
	}
	if events.count(mqcontracts.RoutingTaskAssigned) != 1 {
		t.Fatal("expected a task.assigned event")
	}

	unassigned, err := svc.Create(ctx, &model.Task{Name: "Loose", ProjectID: uuid.New()})
	if err != nil {
		t.Fatal(err)
	}
	if events.count(mqcontracts.RoutingTaskAssigned) != 1 {
		t.Fatal("unassigned task must not emit task.assigned")
	}

	tests := []struct {
		name  string
		actor *model.User
		task  uuid.UUID
		want  error
	}{
		{"other intern", other, assigned.ID, errs.ErrForbidden},
		{"intern on unassigned task", owner, unassigned.ID, errs.ErrForbidden},
		{"assignee", owner, assigned.ID, nil},
		{"admin on unassigned task", admin, unassigned.ID, nil},
		{"missing task", admin, uuid.New(), errs.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actor := model.Identity{UserID: tt.actor.ID, Role: tt.actor.Role}
			_, err := svc.UpdateStatus(ctx, actor, tt.task, model.TaskInProgress)
			if tt.want == nil && err != nil {
				t.Fatalf("err = %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}

	got, _ := svc.Get(ctx, assigned.ID)
	if got.Status != model.TaskInProgress {
		t.Fatalf("status = %q", got.Status)
	}
}

func TestTaskCompletedOnTransitionOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	events := &recordingOutbox{}
	svc := NewTaskService(store.Tasks(), store, events, zap.NewNop())
	admin := model.Identity{UserID: uuid.New(), Role: rbac.RoleAdmin}

	task, err := svc.Create(ctx, &model.Task{Name: "Ship", ProjectID: uuid.New(), Status: model.TaskCompleted})
	if err != nil {
		t.Fatal(err)
	}
	// 创建时就是 Completed 不算状态迁移
	if events.count(mqcontracts.RoutingTaskCompleted) != 0 {
		t.Fatal("create must not emit task.completed")
	}

	pending := model.TaskPending
	if _, err := svc.Update(ctx, admin, task.ID, model.TaskPatch{Status: &pending}); err != nil {
		t.Fatal(err)
	}
	completed := model.TaskCompleted
	if _, err := svc.Update(ctx, admin, task.ID, model.TaskPatch{Status: &completed}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.UpdateStatus(ctx, admin, task.ID, model.TaskCompleted); err != nil {
		t.Fatal(err)
	}

	if n := events.count(mqcontracts.RoutingTaskCompleted); n != 1 {
		t.Fatalf("task.completed events = %d, want 1", n)
	}
	p := events.events[len(events.events)-1].payload.(mqcontracts.TaskCompletedPayload)
	if p.CompletedBy != admin.UserID.String() || p.EventID == "" {
		t.Fatalf("payload = %+v", p)
	}
}

func TestInvoicePaidOnTransitionOnly(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	events := &recordingOutbox{}
	svc := NewInvoiceService(store.Invoices(), store, events, zap.NewNop())

	inv, err := svc.Create(ctx, &model.Invoice{
		ClientID: uuid.New(), ProjectID: uuid.New(), Amount: 250, DueDate: time.Now().AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	if inv.IssueDate.IsZero() {
		t.Fatal("issueDate should default to now")
	}

	paid := model.InvoicePaid
	for i := 0; i < 2; i++ {
		if _, err := svc.Update(ctx, inv.ID, model.InvoicePatch{Status: &paid}); err != nil {
			t.Fatal(err)
		}
	}
	if n := events.count(mqcontracts.RoutingInvoicePaid); n != 1 {
		t.Fatalf("invoice.paid events = %d, want 1", n)
	}

	negative := -1.0
	if _, err := svc.Update(ctx, inv.ID, model.InvoicePatch{Amount: &negative}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestAnalytics(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	analytics := NewAnalyticsService(store.Users(), store.Projects(), store.Tasks(), store.Invoices())
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	analytics.now = func() time.Time { return now }

	ivy := addUser(t, store, "Ivy", rbac.RoleIntern)
	addUser(t, store, "Oli", rbac.RoleIntern)
	addUser(t, store, "Ann", rbac.RoleAdmin)

	projects := []model.Project{
		{Name: "late", Status: model.ProjectInProgress, EndDate: now.AddDate(0, 0, -1)},
		{Name: "done late", Status: model.ProjectCompleted, EndDate: now.AddDate(0, 0, -10)},
		{Name: "on time", Status: model.ProjectNotStarted, EndDate: now.AddDate(0, 1, 0)},
	}
	for i := range projects {
		projects[i].ID = uuid.New()
		if err := store.Projects().Create(ctx, &projects[i]); err != nil {
			t.Fatal(err)
		}
	}

	for _, status := range []string{model.TaskCompleted, model.TaskCompleted, model.TaskOnHold} {
		task := &model.Task{ID: uuid.New(), Name: "t", ProjectID: projects[0].ID, AssignedToID: &ivy.ID, Status: status}
		if err := store.Tasks().Create(ctx, task); err != nil {
			t.Fatal(err)
		}
	}

	for _, inv := range []model.Invoice{
		{Amount: 100, Status: model.InvoicePaid},
		{Amount: 40.5, Status: model.InvoicePaid},
		{Amount: 60, Status: model.InvoicePending},
		{Amount: 999, Status: model.InvoiceOverdue},
	} {
		inv.ID = uuid.New()
		if err := store.Invoices().Create(ctx, &inv); err != nil {
			t.Fatal(err)
		}
	}

	rev, err := analytics.Revenue(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if rev.Actual != 140.5 || rev.Pending != 60 || rev.Projected != rev.Actual+rev.Pending {
		t.Fatalf("revenue = %+v", rev)
	}

	m, err := analytics.ProjectMetrics(ctx)
	if err != nil {
		t.Fatal(err)
	}
	want := model.ProjectMetrics{Total: 3, Completed: 1, InProgress: 1, Delayed: 1}
	if *m != want {
		t.Fatalf("metrics = %+v, want %+v", *m, want)
	}

	prod, err := analytics.Productivity(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(prod) != 2 {
		t.Fatalf("productivity rows = %d, want 2 interns", len(prod))
	}
	for _, row := range prod {
		switch row.Name {
		case "Ivy":
			if row.Completed != 2 || row.Pending != 1 {
				t.Errorf("Ivy = %+v", row)
			}
		case "Oli":
			if row.Completed != 0 || row.Pending != 0 {
				t.Errorf("Oli = %+v", row)
			}
		}
	}
}

func TestDashboardStatsLimitsRecent(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	tasks := NewTaskService(store.Tasks(), store, &recordingOutbox{}, zap.NewNop())
	projects := NewProjectService(store.Projects(), zap.NewNop())
	dashboard := NewDashboardService(store.Clients(), store.Projects(), store.Tasks(), store.Invoices())

	project, err := projects.Create(ctx, &model.Project{
		Name: "p", ClientID: uuid.New(), StartDate: time.Now(), EndDate: time.Now().AddDate(0, 1, 0),
	})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 7; i++ {
		status := model.TaskPending
		if i%2 == 1 {
			status = model.TaskCompleted
		}
		if _, err := tasks.Create(ctx, &model.Task{Name: "t", ProjectID: project.ID, Status: status}); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := dashboard.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Counts.Tasks != 7 || stats.Counts.PendingTasks != 4 || stats.Counts.CompletedTasks != 3 {
		t.Fatalf("counts = %+v", stats.Counts)
	}
	if len(stats.RecentTasks) != 5 {
		t.Fatalf("recent tasks = %d, want 5", len(stats.RecentTasks))
	}
	if p := stats.RecentTasks[0].Project; p == nil || p.Name != "p" {
		t.Fatalf("recent task project = %+v", p)
	}
	if stats.ActiveProjects == nil {
		t.Fatal("activeProjects must be an empty list, not null")
	}
}

func TestAuthService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	events := &recordingOutbox{}
	auth := NewAuthService(store.Users(), store.ResetTokens(), events, store, "secret", time.Hour, zap.NewNop())

	res, err := auth.Register(ctx, "Ivy", "ivy@agency.test", "pw", "")
	if err != nil {
		t.Fatal(err)
	}
	if res.Token == "" || res.User.Role != rbac.RoleIntern || res.User.PasswordHash == "pw" {
		t.Fatalf("register = %+v", res.User)
	}
	if _, err := auth.Register(ctx, "Ivy2", "ivy@agency.test", "pw", ""); !errors.Is(err, errs.ErrConflict) {
		t.Fatalf("duplicate err = %v", err)
	}
	if _, err := auth.Register(ctx, "X", "x@agency.test", "pw", "Owner"); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("bad role err = %v", err)
	}

	if _, err := auth.Login(ctx, "ivy@agency.test", "wrong"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("wrong password err = %v", err)
	}
	if _, err := auth.Login(ctx, "nobody@agency.test", "pw"); !errors.Is(err, errs.ErrInvalidCredentials) {
		t.Fatalf("unknown email err = %v", err)
	}

	if err := auth.ForgotPassword(ctx, "ivy@agency.test"); err != nil {
		t.Fatal(err)
	}
	if len(events.events) != 1 {
		t.Fatalf("events = %d", len(events.events))
	}
	token := events.events[0].payload.(mqcontracts.PasswordResetPayload).Token

	if err := auth.ResetPassword(ctx, token, "new-pw"); err != nil {
		t.Fatal(err)
	}
	if err := auth.ResetPassword(ctx, token, "again"); !errors.Is(err, errs.ErrInvalidResetToken) {
		t.Fatalf("reuse err = %v", err)
	}
	if _, err := auth.Login(ctx, "ivy@agency.test", "new-pw"); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestNotificationService(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	sender := &captureSender{}
	svc := NewNotificationService(store.Users(), sender, zap.NewNop())

	// 没有 Admin 时跳过
	if err := svc.InvoicePaid(ctx, mqcontracts.InvoicePaidPayload{InvoiceID: "inv-1", Amount: 10}); err != nil {
		t.Fatal(err)
	}
	if len(sender.sent) != 0 {
		t.Fatal("no admins, nothing should be sent")
	}

	addUser(t, store, "Ann", rbac.RoleAdmin)
	addUser(t, store, "Bob", rbac.RoleAdmin)
	ivy := addUser(t, store, "Ivy", rbac.RoleIntern)

	err := svc.TaskCompleted(ctx, mqcontracts.TaskCompletedPayload{TaskName: "Ship", CompletedBy: ivy.ID.String()})
	if err != nil {
		t.Fatal(err)
	}
	msg := sender.sent[0]
	if len(msg.To) != 2 || msg.Subject != "Task Completed: Ship" || !strings.Contains(msg.Body, "by Ivy") {
		t.Fatalf("message = %+v", msg)
	}

	err = svc.PasswordReset(ctx, mqcontracts.PasswordResetPayload{Email: ivy.Email, Name: ivy.Name, Token: "tok"})
	if err != nil {
		t.Fatal(err)
	}
	if last := sender.sent[len(sender.sent)-1]; last.To[0] != ivy.Email || !strings.Contains(last.Body, "tok") {
		t.Fatalf("reset message = %+v", last)
	}

	if err := svc.PasswordReset(ctx, mqcontracts.PasswordResetPayload{}); !errors.Is(err, errs.ErrValidation) {
		t.Fatalf("empty email err = %v", err)
	}
}
