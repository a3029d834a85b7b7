// Benchmarks for compilation and the two evaluation paths.
//
// Run all benchmarks:
//
//	go test -bench=. -benchmem -run=^$ .
//
// Compare the paths:
//
//	go test -bench='BenchmarkEval(Interpreted|Accelerated)' -benchmem -run=^$ .
package govel_test

import (
	"fmt"
	"testing"

	"github.com/sandrolain/govel"
	"github.com/sandrolain/govel/pkg/ast"
	"github.com/sandrolain/govel/pkg/scope"
)

// ---------------------------------------------------------------------------
// Test data
// ---------------------------------------------------------------------------

type benchUser struct {
	ID         int
	Name       string
	Age        int
	Department string
	Salary     float64
	Active     bool
	Address    *address
}

func (u *benchUser) Raise(pct float64) float64 { return u.Salary * (1 + pct/100) }

type benchCompany struct {
	Users []*benchUser
	Index map[string]*benchUser
}

var company = func() *benchCompany {
	departments := []string{"Engineering", "Sales", "Marketing", "HR", "Finance"}
	c := &benchCompany{Index: make(map[string]*benchUser)}
	for i := 0; i < 100; i++ {
		u := &benchUser{
			ID:         i + 1,
			Name:       fmt.Sprintf("User%d", i+1),
			Age:        20 + (i % 40),
			Department: departments[i%5],
			Salary:     float64(70000 + i*1000),
			Active:     i%2 == 0,
			Address:    &address{City: "Turin"},
		}
		c.Users = append(c.Users, u)
		c.Index[u.Name] = u
	}
	return c
}()

func mustCompile(b *testing.B, expr string) *ast.CompiledExpression {
	b.Helper()
	x, err := govel.Default().CompileWith(expr, nil)
	if err != nil {
		b.Fatal(err)
	}
	return x
}

// ---------------------------------------------------------------------------
// Compilation
// ---------------------------------------------------------------------------

func BenchmarkCompilePath(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := govel.Default().CompileWith("users[3].address.city", nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileCollection(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := govel.Default().CompileWith("{'name': users[0].name, 'tags': ['a', 'b', [1, 2]]}", nil); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkCompileCached(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := govel.Compile("users[3].address.city"); err != nil {
			b.Fatal(err)
		}
	}
}

// ---------------------------------------------------------------------------
// Evaluation
// ---------------------------------------------------------------------------

var evalCases = []struct {
	name string
	expr string
}{
	{"Path", "users[42].address.city"},
	{"MapIndex", "index['User7'].salary"},
	{"Method", "users[10].raise(5)"},
	{"Arithmetic", "users[1].salary * 12 + users[2].age"},
	{"Collection", "[users[0].name, users[1].name, users[2].name]"},
}

func BenchmarkEvalInterpreted(b *testing.B) {
	for _, tc := range evalCases {
		x := mustCompile(b, tc.expr)
		b.Run(tc.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := x.Interpret(company, company, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkEvalAccelerated(b *testing.B) {
	for _, tc := range evalCases {
		x := mustCompile(b, tc.expr)
		b.Run(tc.name, func(b *testing.B) {
			for i := 0; i < b.N; i++ {
				if _, err := x.Eval(company, company, nil); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}

func BenchmarkCompoundAssignment(b *testing.B) {
	x := mustCompile(b, "total += users[5].salary; return total")
	for i := 0; i < b.N; i++ {
		vars := scope.New(map[string]any{"total": 0.0})
		if _, err := x.Eval(company, company, vars); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkGetProperty(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if _, err := govel.GetProperty("users[7].name", company); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkEvalParallel(b *testing.B) {
	x := mustCompile(b, "users[42].address.city")
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			if _, err := x.Eval(company, company, nil); err != nil {
				b.Fatal(err)
			}
		}
	})
}
