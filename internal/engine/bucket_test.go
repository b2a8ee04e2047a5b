package engine

import (
	"errors"
	"fmt"
	"math"
	"testing"

	"github.com/google/uuid"

	types "github.com/yungbote/experiments-backend/internal/domain"
)

const fixedExperimentID = "3f2504e0-4f89-11d3-9a0c-0305e82c3301"

func newExperiment(t *testing.T, allocations ...float64) *types.Experiment {
	t.Helper()
	exp := &types.Experiment{ID: uuid.MustParse(fixedExperimentID), Name: "exp"}
	for i, a := range allocations {
		exp.Variants = append(exp.Variants, &types.Variant{
			ID:                uint(i + 1),
			ExperimentID:      exp.ID,
			Name:              fmt.Sprintf("v%d", i+1),
			TrafficAllocation: a,
		})
	}
	return exp
}

func TestBucketKnownValues(t *testing.T) {
	cases := []struct {
		exp, user string
		want      int
	}{
		{fixedExperimentID, "alice", 24},
		{fixedExperimentID, "bob", 37},
		{"exp-1", "user-42", 33},
	}
	for _, tc := range cases {
		if got := Bucket(tc.exp, tc.user); got != tc.want {
			t.Fatalf("Bucket(%q,%q): got=%d want=%d", tc.exp, tc.user, got, tc.want)
		}
	}
}

func TestBucketRange(t *testing.T) {
	for i := 0; i < 5000; i++ {
		b := Bucket(fixedExperimentID, fmt.Sprintf("user-%d", i))
		if b < 1 || b > BucketCount {
			t.Fatalf("bucket out of range: %d", b)
		}
	}
}

func TestSelectVariantCumulativeBoundaries(t *testing.T) {
	exp := newExperiment(t, 30, 70)
	cases := []struct {
		bucket int
		want   uint
	}{
		{1, 1}, {30, 1}, {31, 2}, {100, 2},
	}
	for _, tc := range cases {
		v, err := SelectVariant(exp.Variants, tc.bucket)
		if err != nil {
			t.Fatalf("SelectVariant(%d): %v", tc.bucket, err)
		}
		if v.ID != tc.want {
			t.Fatalf("SelectVariant(%d): got=%d want=%d", tc.bucket, v.ID, tc.want)
		}
	}
}

func TestSelectVariantOrdersByID(t *testing.T) {
	exp := newExperiment(t, 30, 70)
	reversed := []*types.Variant{exp.Variants[1], exp.Variants[0]}
	for b := 1; b <= BucketCount; b++ {
		a, _ := SelectVariant(exp.Variants, b)
		r, _ := SelectVariant(reversed, b)
		if a.ID != r.ID {
			t.Fatalf("bucket %d: input order changed selection (%d vs %d)", b, a.ID, r.ID)
		}
	}
	if reversed[0].ID != 2 {
		t.Fatal("SelectVariant must not reorder the caller's slice")
	}
}

func TestSelectVariantFallsBackToLast(t *testing.T) {
	exp := newExperiment(t, 33.3, 33.3, 33.3)
	v, err := SelectVariant(exp.Variants, 100)
	if err != nil {
		t.Fatalf("SelectVariant: %v", err)
	}
	if v.ID != 3 {
		t.Fatalf("fallback: got=%d want=3", v.ID)
	}
}

func TestSelectVariantNoVariants(t *testing.T) {
	if _, err := SelectVariant(nil, 10); !errors.Is(err, ErrNoVariants) {
		t.Fatalf("expected ErrNoVariants, got %v", err)
	}
}

func TestChooseIsDeterministic(t *testing.T) {
	first := newExperiment(t, 50, 50)
	second := newExperiment(t, 50, 50)
	for i := 0; i < 200; i++ {
		user := fmt.Sprintf("user-%d", i)
		a, _, err := Choose(first, user)
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		b, _, _ := Choose(second, user)
		if a.ID != b.ID {
			t.Fatalf("user %s: %d vs %d", user, a.ID, b.ID)
		}
	}
}

func TestChooseCoverageMatchesAllocation(t *testing.T) {
	exp := newExperiment(t, 30, 70)
	const users = 10000
	counts := map[uint]int{}
	for i := 0; i < users; i++ {
		v, _, err := Choose(exp, fmt.Sprintf("user-%d", i))
		if err != nil {
			t.Fatalf("Choose: %v", err)
		}
		counts[v.ID]++
	}
	for _, v := range exp.Variants {
		got := float64(counts[v.ID]) / users * 100
		if math.Abs(got-v.TrafficAllocation) > 2 {
			t.Fatalf("variant %s: observed %.2f%% want %.0f%% ±2", v.Name, got, v.TrafficAllocation)
		}
	}
}

func TestValidateAllocations(t *testing.T) {
	ok := []VariantSpec{{Name: "control", TrafficAllocation: 40}, {Name: "treatment", TrafficAllocation: 60}}
	if err := ValidateAllocations(ok); err != nil {
		t.Fatalf("40/60 rejected: %v", err)
	}
	thirds := []VariantSpec{{Name: "a", TrafficAllocation: 33.3}, {Name: "b", TrafficAllocation: 33.3}, {Name: "c", TrafficAllocation: 33.4}}
	if err := ValidateAllocations(thirds); err != nil {
		t.Fatalf("33.3/33.3/33.4 rejected: %v", err)
	}

	bad := [][]VariantSpec{
		{{Name: "a", TrafficAllocation: 40}, {Name: "b", TrafficAllocation: 40}},
		{},
		{{Name: "", TrafficAllocation: 100}},
		{{Name: "a", TrafficAllocation: 120}, {Name: "b", TrafficAllocation: -20}},
		{{Name: "a", TrafficAllocation: 40}, {Name: "b", TrafficAllocation: 60.001}},
	}
	for i, specs := range bad {
		if err := ValidateAllocations(specs); err == nil {
			t.Fatalf("case %d: expected error", i)
		}
	}
}
