package experiments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/experiments-backend/internal/data/repos/testutil"
	types "github.com/yungbote/experiments-backend/internal/domain"
	"github.com/yungbote/experiments-backend/internal/platform/dbctx"
)

func TestAssignmentRepoCreateIfAbsent(t *testing.T) {
	db := testutil.DB(t)
	tx := testutil.Tx(t, db)
	dbc := dbctx.Context{Ctx: context.Background(), Tx: tx}
	repo := NewAssignmentRepo(db, testutil.Logger(t))

	exp := testutil.SeedExperiment(t, dbc.Ctx, tx, testutil.ClientID(), 50, 50)
	now := time.Now().UTC()

	first := &types.UserAssignment{ID: uuid.New(), ExperimentID: exp.ID, VariantID: exp.Variants[0].ID, UserID: "alice", AssignedAt: now}
	stored, created, err := repo.CreateIfAbsent(dbc, first)
	if err != nil || !created || stored.ID != first.ID {
		t.Fatalf("first CreateIfAbsent: created=%v err=%v", created, err)
	}

	second := &types.UserAssignment{ID: uuid.New(), ExperimentID: exp.ID, VariantID: exp.Variants[1].ID, UserID: "alice", AssignedAt: now.Add(time.Second)}
	stored, created, err = repo.CreateIfAbsent(dbc, second)
	if err != nil {
		t.Fatalf("second CreateIfAbsent: %v", err)
	}
	if created {
		t.Fatal("second CreateIfAbsent must not insert")
	}
	if stored.ID != first.ID || stored.VariantID != first.VariantID {
		t.Fatalf("second CreateIfAbsent returned %+v, want first row", stored)
	}

	if n, err := repo.CountByExperimentAndUser(dbc, exp.ID, "alice"); err != nil || n != 1 {
		t.Fatalf("CountByExperimentAndUser: n=%d err=%v", n, err)
	}

	got, err := repo.GetByExperimentAndUser(dbc, exp.ID, "alice")
	if err != nil || got == nil || got.ID != first.ID {
		t.Fatalf("GetByExperimentAndUser: got=%v err=%v", got, err)
	}
	if missing, err := repo.GetByExperimentAndUser(dbc, exp.ID, "nobody"); err != nil || missing != nil {
		t.Fatalf("missing user: got=%v err=%v", missing, err)
	}

	testutil.SeedAssignment(t, dbc.Ctx, tx, exp, exp.Variants[1], "bob", now)
	rows, err := repo.ListByExperiment(dbc, exp.ID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListByExperiment: err=%v len=%d", err, len(rows))
	}
}
