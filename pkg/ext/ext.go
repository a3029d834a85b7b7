// Package ext provides optional extension methods that go beyond the
// built-in collection and string helpers every engine knows.
//
// The methods live in sub-packages grouped by category:
//   - extstring  – camelCase, snakeCase, padLeft, split, template, …
//   - extarray   – first, last, take, skip, flatten, chunk, distinct, join
//   - extnumeric – abs, round, clamp on numbers; sum, average, median on sequences
//   - extcrypto  – hash, hmac, base64
//
// # Integration – all extensions at once
//
//	e, err := govel.New(govel.WithExtensions(ext.All()...))
//
// # Integration – by category
//
//	err := ext.Register(engine, ext.String, ext.Array)
//
// # Integration – single method from a sub-package
//
//	err := engine.RegisterKindExtension(reflect.String, "camelCase", extstring.CamelCase)
package ext

import (
	"fmt"

	"github.com/sandrolain/govel/pkg/ext/extarray"
	"github.com/sandrolain/govel/pkg/ext/extcrypto"
	"github.com/sandrolain/govel/pkg/ext/extnumeric"
	"github.com/sandrolain/govel/pkg/ext/extstring"
	"github.com/sandrolain/govel/pkg/ext/extutil"
)

// Registrar accepts kind extension methods.
type Registrar = extutil.Registrar

// Group installs one category of extension methods.
type Group func(Registrar) error

// Extension groups.
var (
	String  Group = extstring.Register
	Array   Group = extarray.Register
	Numeric Group = extnumeric.Register
	Crypto  Group = extcrypto.Register
)

// groupsByName maps configuration names onto groups.
var groupsByName = map[string]Group{
	"string":  String,
	"array":   Array,
	"numeric": Numeric,
	"crypto":  Crypto,
}

// All returns every extension group.
func All() []Group {
	return []Group{String, Array, Numeric, Crypto}
}

// Lookup returns the group registered under name: string, array, numeric
// or crypto.
func Lookup(name string) (Group, bool) {
	g, ok := groupsByName[name]
	return g, ok
}

// Named resolves group names as written in configuration files. "all"
// selects every group; duplicates are dropped.
func Named(names []string) ([]Group, error) {
	var out []Group
	seen := make(map[string]bool)
	for _, name := range names {
		if name == "all" {
			return All(), nil
		}
		g, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("unknown extension group %q", name)
		}
		if !seen[name] {
			seen[name] = true
			out = append(out, g)
		}
	}
	return out, nil
}

// Register installs groups on r, stopping at the first failure.
func Register(r Registrar, groups ...Group) error {
	for _, g := range groups {
		if err := g(r); err != nil {
			return err
		}
	}
	return nil
}
