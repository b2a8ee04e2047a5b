package engine

import (
	"crypto/md5"
	"errors"
	"math/big"
	"sort"

	types "github.com/yungbote/experiments-backend/internal/domain"
)

// BucketCount is the number of buckets a user can fall into; buckets are 1-based.
const BucketCount = 100

var ErrNoVariants = errors.New("experiment has no variants")

var bucketModulus = big.NewInt(BucketCount)

// Bucket maps (experimentID, userID) onto [1, BucketCount]. The digest is MD5 of
// "experimentID:userID" read as a big-endian unsigned integer. Persisted
// assignments were derived with this exact function, so it must not change.
func Bucket(experimentID, userID string) int {
	sum := md5.Sum([]byte(experimentID + ":" + userID))
	n := new(big.Int).SetBytes(sum[:])
	return int(n.Mod(n, bucketModulus).Int64()) + 1
}

// SortedVariants returns a copy of variants ordered by ascending ID, the
// canonical walk order for cumulative allocation.
func SortedVariants(variants []*types.Variant) []*types.Variant {
	out := make([]*types.Variant, 0, len(variants))
	for _, v := range variants {
		if v != nil {
			out = append(out, v)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// SelectVariant walks variants by ascending ID accumulating traffic allocation
// and returns the first whose running total reaches bucket. When rounding leaves
// the total short of bucket the last variant is returned.
func SelectVariant(variants []*types.Variant, bucket int) (*types.Variant, error) {
	ordered := SortedVariants(variants)
	if len(ordered) == 0 {
		return nil, ErrNoVariants
	}
	cumulative := 0.0
	for _, v := range ordered {
		cumulative += v.TrafficAllocation
		if float64(bucket) <= cumulative {
			return v, nil
		}
	}
	return ordered[len(ordered)-1], nil
}

// Choose is Bucket followed by SelectVariant for an experiment.
func Choose(exp *types.Experiment, userID string) (*types.Variant, int, error) {
	if exp == nil {
		return nil, 0, ErrNoVariants
	}
	bucket := Bucket(exp.ID.String(), userID)
	v, err := SelectVariant(exp.Variants, bucket)
	return v, bucket, err
}
