package engine

import (
	"fmt"
	"math"
	"strings"
)

// AllocationTotal is what the traffic allocations of an experiment must add up to.
const AllocationTotal = 100.0

// allocationEpsilon absorbs float64 representation error only; 40+60.0001 is still rejected.
const allocationEpsilon = 1e-9

type VariantSpec struct {
	Name              string
	TrafficAllocation float64
}

// ValidateAllocations checks a variant set for experiment creation.
func ValidateAllocations(specs []VariantSpec) error {
	if len(specs) == 0 {
		return fmt.Errorf("at least one variant is required")
	}
	total := 0.0
	for i, s := range specs {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("variant %d: name is required", i)
		}
		if math.IsNaN(s.TrafficAllocation) || s.TrafficAllocation < 0 || s.TrafficAllocation > AllocationTotal {
			return fmt.Errorf("variant %q: traffic allocation must be between 0 and 100, got %v", s.Name, s.TrafficAllocation)
		}
		total += s.TrafficAllocation
	}
	if math.Abs(total-AllocationTotal) > allocationEpsilon {
		return fmt.Errorf("traffic allocation must sum to 100, got %v", total)
	}
	return nil
}
