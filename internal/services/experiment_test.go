package services

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/experiments-backend/internal/platform/apierr"
)

func TestExperimentServiceCreateValidatesAllocations(t *testing.T) {
	env := newTestEnv(t)
	svc := env.experimentService()

	cases := []struct {
		name     string
		in       CreateExperimentInput
		wantKind apierr.Kind
	}{
		{"sum below 100", CreateExperimentInput{Name: "x", Variants: []VariantInput{{"a", 40}, {"b", 40}}}, apierr.KindValidation},
		{"sum above 100", CreateExperimentInput{Name: "x", Variants: []VariantInput{{"a", 60}, {"b", 60}}}, apierr.KindValidation},
		{"no variants", CreateExperimentInput{Name: "x"}, apierr.KindValidation},
		{"negative allocation", CreateExperimentInput{Name: "x", Variants: []VariantInput{{"a", -10}, {"b", 110}}}, apierr.KindValidation},
		{"blank variant name", CreateExperimentInput{Name: "x", Variants: []VariantInput{{" ", 100}}}, apierr.KindValidation},
		{"blank experiment name", CreateExperimentInput{Name: "", Variants: []VariantInput{{"a", 100}}}, apierr.KindValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(env.ctx, tc.in)
			if !apierr.IsKind(err, tc.wantKind) {
				t.Fatalf("Create: got=%v want kind=%s", err, tc.wantKind)
			}
		})
	}

	exp, err := svc.Create(env.ctx, CreateExperimentInput{Name: "checkout", Variants: []VariantInput{{"control", 40}, {"treatment", 60}}})
	if err != nil {
		t.Fatalf("Create {40,60}: %v", err)
	}
	if exp.ClientID != env.clientID || exp.Status != "active" || len(exp.Variants) != 2 {
		t.Fatalf("unexpected experiment: %+v", exp)
	}
	if exp.Variants[0].Name != "control" || exp.Variants[0].ID >= exp.Variants[1].ID {
		t.Fatalf("variants not stored in input order: %+v %+v", exp.Variants[0], exp.Variants[1])
	}

	thirds := []VariantInput{{"a", 33.3}, {"b", 33.3}, {"c", 33.4}}
	if _, err := svc.Create(env.ctx, CreateExperimentInput{Name: "thirds", Variants: thirds}); err != nil {
		t.Fatalf("Create thirds: %v", err)
	}
}

func TestExperimentServiceRequiresClient(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.experimentService().Create(context.Background(), CreateExperimentInput{Name: "x", Variants: []VariantInput{{"a", 100}}})
	if !apierr.IsKind(err, apierr.KindAuth) {
		t.Fatalf("Create without client: got=%v", err)
	}
}

func TestExperimentServiceGetListDelete(t *testing.T) {
	env := newTestEnv(t)
	svc := env.experimentService()

	exp, err := svc.Create(env.ctx, CreateExperimentInput{Name: "one", Variants: []VariantInput{{"a", 50}, {"b", 50}}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.Get(env.ctx, exp.ID.String())
	if err != nil || got.ID != exp.ID || len(got.Variants) != 2 {
		t.Fatalf("Get: got=%v err=%v", got, err)
	}
	if _, err := svc.Get(asClient(context.Background(), env.clientID+1), exp.ID.String()); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("Get from other client: got=%v", err)
	}
	if _, err := svc.Get(env.ctx, "not-a-uuid"); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("Get malformed id: got=%v", err)
	}
	if _, err := svc.Get(env.ctx, uuid.NewString()); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("Get unknown id: got=%v", err)
	}

	list, err := svc.List(env.ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List: err=%v len=%d", err, len(list))
	}
	if empty, err := svc.List(asClient(context.Background(), env.clientID+1)); err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("List other client: got=%v err=%v", empty, err)
	}

	if err := svc.Delete(env.ctx, exp.ID.String()); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := svc.Get(env.ctx, exp.ID.String()); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("Get after delete: got=%v", err)
	}
	if err := svc.Delete(env.ctx, exp.ID.String()); !apierr.IsKind(err, apierr.KindNotFound) {
		t.Fatalf("second Delete: got=%v", err)
	}
}
