package cache

import (
	"reflect"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"

	"github.com/sandrolain/govel/pkg/types"
)

// Table selects one of the accessor cache tables.
type Table uint8

const (
	TableRead Table = iota
	TableWrite
	TableMethod
)

// String returns the table name.
func (t Table) String() string {
	switch t {
	case TableRead:
		return "read"
	case TableWrite:
		return "write"
	case TableMethod:
		return "method"
	default:
		return "unknown"
	}
}

// Signature identifies a member on an owner type.
//
// Method signatures carry the raw argument text so two call sites with the
// same method name but different argument expressions never share an entry.
// Static marks lookups made against a reflect.Type value rather than an
// instance of that type. Types holds the runtime argument types of a method
// call, so one call site fed different argument types keeps one entry per
// type tuple.
type Signature struct {
	Name   string
	Args   string
	Static bool
	Types  ArgTypes
}

// MaxKeyedArgs is the number of argument types a Signature can hold.
const MaxKeyedArgs = 4

// ArgTypes is the runtime type tuple of a call. A nil slot is an untyped
// nil argument.
type ArgTypes struct {
	n     int
	types [MaxKeyedArgs]reflect.Type
}

// TypesOf returns the type tuple of args. ok is false when args has more
// elements than ArgTypes holds; such calls cannot be keyed.
func TypesOf(args []any) (ArgTypes, bool) {
	var ts ArgTypes
	if len(args) > MaxKeyedArgs {
		return ts, false
	}
	ts.n = len(args)
	for i, a := range args {
		ts.types[i] = reflect.TypeOf(a)
	}
	return ts, true
}

// NewSignature builds a signature from a member name and raw argument text.
func NewSignature(name, args string) Signature {
	return Signature{Name: name, Args: args}
}

// Occupancy is the number of entries cached for one owner type in one table.
type Occupancy struct {
	Table   Table
	Owner   reflect.Type
	Entries int
}

// AccessorCache memoizes member resolution per owner type and signature.
//
// Implementations must tolerate being cleared at any time. Racing writers
// store the same deterministic result, so last write wins.
type AccessorCache interface {
	Get(table Table, owner reflect.Type, sig Signature) (types.Member, bool)
	Put(table Table, owner reflect.Type, sig Signature, m types.Member)
	GetMethod(owner reflect.Type, sig Signature) (*types.Method, bool)
	PutMethod(owner reflect.Type, sig Signature, m *types.Method)
	Clear()
	Report() []Occupancy
}

type accessorKey struct {
	owner reflect.Type
	sig   Signature
}

// SyncAccessorCache is the thread-safe accessor cache.
type SyncAccessorCache struct {
	read    *xsync.MapOf[accessorKey, types.Member]
	write   *xsync.MapOf[accessorKey, types.Member]
	methods *xsync.MapOf[accessorKey, *types.Method]
}

// NewSyncAccessorCache creates an accessor cache safe for concurrent use.
func NewSyncAccessorCache() *SyncAccessorCache {
	return &SyncAccessorCache{
		read:    xsync.NewMapOf[accessorKey, types.Member](),
		write:   xsync.NewMapOf[accessorKey, types.Member](),
		methods: xsync.NewMapOf[accessorKey, *types.Method](),
	}
}

func (c *SyncAccessorCache) table(t Table) *xsync.MapOf[accessorKey, types.Member] {
	if t == TableWrite {
		return c.write
	}
	return c.read
}

// Get implements AccessorCache.
func (c *SyncAccessorCache) Get(table Table, owner reflect.Type, sig Signature) (types.Member, bool) {
	return c.table(table).Load(accessorKey{owner, sig})
}

// Put implements AccessorCache.
func (c *SyncAccessorCache) Put(table Table, owner reflect.Type, sig Signature, m types.Member) {
	c.table(table).Store(accessorKey{owner, sig}, m)
}

// GetMethod implements AccessorCache.
func (c *SyncAccessorCache) GetMethod(owner reflect.Type, sig Signature) (*types.Method, bool) {
	return c.methods.Load(accessorKey{owner, sig})
}

// PutMethod implements AccessorCache.
func (c *SyncAccessorCache) PutMethod(owner reflect.Type, sig Signature, m *types.Method) {
	c.methods.Store(accessorKey{owner, sig}, m)
}

// Clear implements AccessorCache.
func (c *SyncAccessorCache) Clear() {
	c.read.Clear()
	c.write.Clear()
	c.methods.Clear()
}

// Report implements AccessorCache.
func (c *SyncAccessorCache) Report() []Occupancy {
	counts := make(map[Table]map[reflect.Type]int, 3)
	count := func(t Table) func(k accessorKey) {
		counts[t] = make(map[reflect.Type]int)
		return func(k accessorKey) { counts[t][k.owner]++ }
	}
	readCount, writeCount, methodCount := count(TableRead), count(TableWrite), count(TableMethod)
	c.read.Range(func(k accessorKey, _ types.Member) bool { readCount(k); return true })
	c.write.Range(func(k accessorKey, _ types.Member) bool { writeCount(k); return true })
	c.methods.Range(func(k accessorKey, _ *types.Method) bool { methodCount(k); return true })
	return flatten(counts)
}

// LocalAccessorCache is the unsynchronized accessor cache for hosts that
// evaluate from a single goroutine.
type LocalAccessorCache struct {
	read    map[accessorKey]types.Member
	write   map[accessorKey]types.Member
	methods map[accessorKey]*types.Method
}

// NewLocalAccessorCache creates an accessor cache without internal locking.
func NewLocalAccessorCache() *LocalAccessorCache {
	c := &LocalAccessorCache{}
	c.Clear()
	return c
}

func (c *LocalAccessorCache) table(t Table) map[accessorKey]types.Member {
	if t == TableWrite {
		return c.write
	}
	return c.read
}

// Get implements AccessorCache.
func (c *LocalAccessorCache) Get(table Table, owner reflect.Type, sig Signature) (types.Member, bool) {
	m, ok := c.table(table)[accessorKey{owner, sig}]
	return m, ok
}

// Put implements AccessorCache.
func (c *LocalAccessorCache) Put(table Table, owner reflect.Type, sig Signature, m types.Member) {
	c.table(table)[accessorKey{owner, sig}] = m
}

// GetMethod implements AccessorCache.
func (c *LocalAccessorCache) GetMethod(owner reflect.Type, sig Signature) (*types.Method, bool) {
	m, ok := c.methods[accessorKey{owner, sig}]
	return m, ok
}

// PutMethod implements AccessorCache.
func (c *LocalAccessorCache) PutMethod(owner reflect.Type, sig Signature, m *types.Method) {
	c.methods[accessorKey{owner, sig}] = m
}

// Clear implements AccessorCache.
func (c *LocalAccessorCache) Clear() {
	c.read = make(map[accessorKey]types.Member)
	c.write = make(map[accessorKey]types.Member)
	c.methods = make(map[accessorKey]*types.Method)
}

// Report implements AccessorCache.
func (c *LocalAccessorCache) Report() []Occupancy {
	counts := map[Table]map[reflect.Type]int{
		TableRead:   {},
		TableWrite:  {},
		TableMethod: {},
	}
	for k := range c.read {
		counts[TableRead][k.owner]++
	}
	for k := range c.write {
		counts[TableWrite][k.owner]++
	}
	for k := range c.methods {
		counts[TableMethod][k.owner]++
	}
	return flatten(counts)
}

func flatten(counts map[Table]map[reflect.Type]int) []Occupancy {
	var out []Occupancy
	for table, owners := range counts {
		for owner, n := range owners {
			out = append(out, Occupancy{Table: table, Owner: owner, Entries: n})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Table != out[j].Table {
			return out[i].Table < out[j].Table
		}
		return typeName(out[i].Owner) < typeName(out[j].Owner)
	})
	return out
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
