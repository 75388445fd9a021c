package expr

import (
	"fmt"

	"github.com/dustin/go-humanize"

	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/parallel"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// Materializer walks an expression graph children-first and evaluates every
// node that needs an owned temporary, once per node. A subtree referenced
// from several places is materialized on first visit and reused afterwards,
// which also keeps results consistent when the statement mutates a
// container the subtree reads.
type Materializer struct {
	ctx     *config.Context
	visited map[AnyNode]struct{}
}

// NewMaterializer builds a visitor bound to a selection context.
func NewMaterializer(ctx *config.Context) *Materializer {
	return &Materializer{ctx: ctx, visited: make(map[AnyNode]struct{})}
}

// Visit traverses root bottom-up, materializing temporaries as it returns.
func (m *Materializer) Visit(root AnyNode) {
	if root == nil {
		return
	}
	if _, seen := m.visited[root]; seen {
		return
	}
	m.visited[root] = struct{}{}

	for _, child := range root.Children() {
		m.Visit(child)
	}
	if mat, ok := root.(materializable); ok {
		// Temporaries read their operands through host memory; restore
		// any leaf whose only valid copy is on the device.
		for _, child := range root.Children() {
			m.EnsureHost(child)
		}
		mat.Materialize(m.ctx)
	}
}

// EnsureHost walks the graph and restores host copies for every leaf whose
// container currently only has a valid device copy.
func (m *Materializer) EnsureHost(root AnyNode) {
	if root == nil {
		return
	}
	for _, child := range root.Children() {
		m.EnsureHost(child)
	}
	if hr, ok := root.(hostResident); ok {
		hr.EnsureHost()
	}
}

// allocTemp allocates a statement-scoped temporary. Exceeding the memory
// ceiling is fatal: an expression that cannot get its temporaries cannot
// produce a correct result.
func allocTemp[T tensor.Element](shape tensor.Shape, order tensor.Order) *tensor.Dense[T] {
	need := uint64(shape.NumElements()) * uint64(tensor.DTypeOf[T]().Size())
	if ceiling := config.TempCeilingBytes(); need > ceiling {
		panic(fmt.Sprintf("expr: temporary of %s for shape %v exceeds the %s memory ceiling",
			humanize.IBytes(need), shape, humanize.IBytes(ceiling)))
	}
	return tensor.NewDense[T](shape, order)
}

// Force evaluates a node into a fresh container, materializing whatever the
// subtree needs along the way.
func Force[T tensor.Element](n Node[T], ctx *config.Context) *tensor.Dense[T] {
	if ctx == nil {
		ctx = config.DefaultContext()
	}
	m := NewMaterializer(ctx)
	m.Visit(n)
	m.EnsureHost(n)

	out := allocTemp[T](n.Shape().Clone(), n.Order())
	data := out.Data()
	fillTemp(data, n, ctx)
	return out
}

// fillTemp evaluates a node element-by-element into a temporary's buffer,
// splitting across workers when the source allows concurrent reads.
func fillTemp[T tensor.Element](data []T, n Node[T], ctx *config.Context) {
	par := parCfg(ctx)
	if !n.Traits().ThreadSafe {
		par.Enabled = false
	}
	parallel.For(len(data), func(i int) { data[i] = n.Get(i) }, par)
}
