// Package extarray provides extended methods on slices and arrays. Results
// are fresh []any values; receivers are never modified.
package extarray

import (
	"fmt"
	"strings"

	"github.com/sandrolain/govel/pkg/ext/extutil"
	"github.com/sandrolain/govel/pkg/mathops"
)

// Definitions returns all extended sequence methods.
func Definitions() []extutil.Def {
	return []extutil.Def{
		{Name: "first", Kinds: extutil.SeqKinds, Fn: First},
		{Name: "last", Kinds: extutil.SeqKinds, Fn: Last},
		{Name: "take", Kinds: extutil.SeqKinds, Fn: Take},
		{Name: "skip", Kinds: extutil.SeqKinds, Fn: Skip},
		{Name: "reverse", Kinds: extutil.SeqKinds, Fn: Reverse},
		{Name: "flatten", Kinds: extutil.SeqKinds, Fn: Flatten},
		{Name: "chunk", Kinds: extutil.SeqKinds, Fn: Chunk},
		{Name: "distinct", Kinds: extutil.SeqKinds, Fn: Distinct},
		{Name: "join", Kinds: extutil.SeqKinds, Fn: Join},
	}
}

// Register installs the sequence methods on r.
func Register(r extutil.Registrar) error {
	return extutil.Register(r, Definitions())
}

// First returns the first element, or nil when empty.
func First(recv any) any {
	arr := extutil.AsSlice(recv)
	if len(arr) == 0 {
		return nil
	}
	return arr[0]
}

// Last returns the last element, or nil when empty.
func Last(recv any) any {
	arr := extutil.AsSlice(recv)
	if len(arr) == 0 {
		return nil
	}
	return arr[len(arr)-1]
}

// Take returns at most the first n elements.
func Take(recv any, n int) []any {
	arr := extutil.AsSlice(recv)
	return arr[:clamp(n, len(arr))]
}

// Skip drops the first n elements.
func Skip(recv any, n int) []any {
	arr := extutil.AsSlice(recv)
	return arr[clamp(n, len(arr)):]
}

func clamp(n, length int) int {
	if n < 0 {
		return 0
	}
	if n > length {
		return length
	}
	return n
}

// Reverse returns the elements in reverse order.
func Reverse(recv any) []any {
	arr := extutil.AsSlice(recv)
	for i, j := 0, len(arr)-1; i < j; i, j = i+1, j-1 {
		arr[i], arr[j] = arr[j], arr[i]
	}
	return arr
}

// Flatten inlines nested sequences up to depth levels.
func Flatten(recv any, depth int) []any {
	return flatten(extutil.AsSlice(recv), depth)
}

func flatten(arr []any, depth int) []any {
	out := make([]any, 0, len(arr))
	for _, v := range arr {
		if nested := extutil.AsSlice(v); nested != nil && depth > 0 {
			out = append(out, flatten(nested, depth-1)...)
			continue
		}
		out = append(out, v)
	}
	return out
}

// Chunk splits the elements into groups of size; the last group may be
// shorter.
func Chunk(recv any, size int) ([][]any, error) {
	if size <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d", size)
	}
	arr := extutil.AsSlice(recv)
	out := make([][]any, 0, (len(arr)+size-1)/size)
	for len(arr) > 0 {
		n := min(size, len(arr))
		out = append(out, arr[:n:n])
		arr = arr[n:]
	}
	return out, nil
}

// Distinct drops repeated elements, keeping the first occurrence. Numbers
// compare by value, so 1 and 1.0 are the same element.
func Distinct(recv any) []any {
	arr := extutil.AsSlice(recv)
	out := make([]any, 0, len(arr))
outer:
	for _, v := range arr {
		for _, seen := range out {
			if mathops.Equal(seen, v) {
				continue outer
			}
		}
		out = append(out, v)
	}
	return out
}

// Join concatenates the string form of the elements with sep.
func Join(recv any, sep string) string {
	arr := extutil.AsSlice(recv)
	parts := make([]string, len(arr))
	for i, v := range arr {
		parts[i] = fmt.Sprint(v)
	}
	return strings.Join(parts, sep)
}
