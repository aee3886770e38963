package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"agencyhub/internal/errs"
	"agencyhub/internal/model"
)

func TestNewestFirstOrdering(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	items := []*model.Client{
		{Name: "old", CreatedAt: base},
		{Name: "new", CreatedAt: base.Add(time.Hour)},
		{Name: "tie-a", CreatedAt: base},
	}
	got := newestFirst(items, func(c *model.Client) time.Time { return c.CreatedAt })
	want := []string{"new", "tie-a", "old"}
	for i, c := range got {
		if c.Name != want[i] {
			t.Fatalf("order[%d] = %s, want %s", i, c.Name, want[i])
		}
	}
}

func TestJoinedRefsAndDangling(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	client := &model.Client{ID: uuid.New(), Name: "Acme", Email: "a@acme.io", CreatedAt: time.Now()}
	if err := s.Clients().Create(ctx, client); err != nil {
		t.Fatal(err)
	}
	project := &model.Project{ID: uuid.New(), Name: "Site", ClientID: client.ID, Status: model.ProjectInProgress}
	if err := s.Projects().Create(ctx, project); err != nil {
		t.Fatal(err)
	}
	task := &model.Task{ID: uuid.New(), Name: "Copy", ProjectID: project.ID}
	if err := s.Tasks().Create(ctx, task); err != nil {
		t.Fatal(err)
	}

	got, err := s.Tasks().Get(ctx, task.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Project == nil || got.Project.Status != model.ProjectInProgress || got.AssignedTo != nil {
		t.Fatalf("task refs = %+v / %+v", got.Project, got.AssignedTo)
	}

	if err := s.Clients().Delete(ctx, client.ID); err != nil {
		t.Fatal(err)
	}
	p, err := s.Projects().Get(ctx, project.ID)
	if err != nil {
		t.Fatal(err)
	}
	if p.Client != nil {
		t.Fatalf("dangling client = %+v, want nil", p.Client)
	}

	if err := s.Clients().Delete(ctx, client.ID); !errors.Is(err, errs.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestReturnedRecordsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	c := &model.Client{ID: uuid.New(), Name: "Acme", Email: "a@acme.io"}
	if err := s.Clients().Create(ctx, c); err != nil {
		t.Fatal(err)
	}
	c.Name = "mutated"

	got, _ := s.Clients().Get(ctx, c.ID)
	if got.Name != "Acme" {
		t.Fatalf("store shares memory with caller: %q", got.Name)
	}
}

func TestResetTokenExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	userID := uuid.New()
	tokens := s.ResetTokens()
	if err := tokens.Save(ctx, "fresh", userID, time.Hour); err != nil {
		t.Fatal(err)
	}
	if err := tokens.Save(ctx, "stale", userID, time.Hour); err != nil {
		t.Fatal(err)
	}

	got, err := tokens.Consume(ctx, "fresh")
	if err != nil || got != userID {
		t.Fatalf("consume = %v, %v", got, err)
	}
	if _, err := tokens.Consume(ctx, "fresh"); !errors.Is(err, errs.ErrInvalidResetToken) {
		t.Fatalf("reuse err = %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := tokens.Consume(ctx, "stale"); !errors.Is(err, errs.ErrInvalidResetToken) {
		t.Fatalf("expired err = %v", err)
	}
}
