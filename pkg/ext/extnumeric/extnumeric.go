// Package extnumeric provides numeric methods on numbers and aggregate
// methods on sequences of numbers. Number methods receive their receiver as
// float64 and return float64.
package extnumeric

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/sandrolain/govel/pkg/ext/extutil"
)

// ErrEmpty is returned by aggregates that are undefined on an empty sequence.
var ErrEmpty = errors.New("empty sequence")

// Definitions returns all numeric methods.
func Definitions() []extutil.Def {
	return []extutil.Def{
		{Name: "abs", Kinds: extutil.NumberKinds, Fn: math.Abs},
		{Name: "sign", Kinds: extutil.NumberKinds, Fn: Sign},
		{Name: "trunc", Kinds: extutil.NumberKinds, Fn: math.Trunc},
		{Name: "round", Kinds: extutil.NumberKinds, Fn: Round},
		{Name: "clamp", Kinds: extutil.NumberKinds, Fn: Clamp},
		{Name: "pow", Kinds: extutil.NumberKinds, Fn: math.Pow},

		{Name: "sum", Kinds: extutil.SeqKinds, Fn: Sum},
		{Name: "average", Kinds: extutil.SeqKinds, Fn: Average},
		{Name: "median", Kinds: extutil.SeqKinds, Fn: Median},
		{Name: "stddev", Kinds: extutil.SeqKinds, Fn: Stddev},
	}
}

// Register installs the numeric methods on r.
func Register(r extutil.Registrar) error {
	return extutil.Register(r, Definitions())
}

// Sign returns -1, 0 or 1.
func Sign(n float64) float64 {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}

// Round rounds half away from zero to the given number of decimals.
func Round(n float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(n*p) / p
}

// Clamp limits n to [lo, hi].
func Clamp(n, lo, hi float64) (float64, error) {
	if lo > hi {
		return 0, fmt.Errorf("clamp bounds reversed: %v > %v", lo, hi)
	}
	return math.Min(math.Max(n, lo), hi), nil
}

func floats(recv any) ([]float64, error) {
	arr := extutil.AsSlice(recv)
	out := make([]float64, len(arr))
	for i, v := range arr {
		f, err := extutil.ToFloat(v)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out[i] = f
	}
	return out, nil
}

// Sum adds the elements. An empty sequence sums to 0.
func Sum(recv any) (float64, error) {
	nums, err := floats(recv)
	if err != nil {
		return 0, err
	}
	var total float64
	for _, n := range nums {
		total += n
	}
	return total, nil
}

// Average returns the arithmetic mean.
func Average(recv any) (float64, error) {
	nums, err := floats(recv)
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 0, ErrEmpty
	}
	total, _ := Sum(nums)
	return total / float64(len(nums)), nil
}

// Median returns the middle value, averaging the two middle values of an
// even-length sequence.
func Median(recv any) (float64, error) {
	nums, err := floats(recv)
	if err != nil {
		return 0, err
	}
	if len(nums) == 0 {
		return 0, ErrEmpty
	}
	sort.Float64s(nums)
	mid := len(nums) / 2
	if len(nums)%2 == 0 {
		return (nums[mid-1] + nums[mid]) / 2, nil
	}
	return nums[mid], nil
}

// Stddev returns the population standard deviation.
func Stddev(recv any) (float64, error) {
	mean, err := Average(recv)
	if err != nil {
		return 0, err
	}
	nums, _ := floats(recv)
	var sq float64
	for _, n := range nums {
		sq += (n - mean) * (n - mean)
	}
	return math.Sqrt(sq / float64(len(nums))), nil
}
