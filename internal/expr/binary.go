package expr

import (
	"fmt"

	"github.com/vecto-ml/vecto/internal/tensor"
)

// BinOp identifies an elementwise binary operator.
type BinOp int

// Elementwise operators.
const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
	OpMod
)

// String returns the operator symbol.
func (op BinOp) String() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	case OpMod:
		return "%"
	default:
		return "?"
	}
}

// Binary applies an elementwise operator to two operands. Either operand
// may be a scalar broadcast node; shapes of non-scalar operands must match.
type Binary[T tensor.Element] struct {
	op   BinOp
	l, r Node[T]
}

// NewBinary builds an elementwise binary node. Panics on shape mismatch.
func NewBinary[T tensor.Element](op BinOp, l, r Node[T]) *Binary[T] {
	if l.Size() >= 0 && r.Size() >= 0 && !l.Shape().Equal(r.Shape()) {
		panic(fmt.Sprintf("expr: shape mismatch %v %s %v", l.Shape(), op, r.Shape()))
	}
	if l.Size() < 0 && r.Size() < 0 {
		panic("expr: binary operation on two scalar nodes")
	}
	return &Binary[T]{op: op, l: l, r: r}
}

// Add returns l + r.
func Add[T tensor.Element](l, r Node[T]) *Binary[T] { return NewBinary(OpAdd, l, r) }

// Sub returns l - r.
func Sub[T tensor.Element](l, r Node[T]) *Binary[T] { return NewBinary(OpSub, l, r) }

// Mul returns the elementwise product l * r.
func Mul[T tensor.Element](l, r Node[T]) *Binary[T] { return NewBinary(OpMul, l, r) }

// Div returns the elementwise quotient l / r.
func Div[T tensor.Element](l, r Node[T]) *Binary[T] { return NewBinary(OpDiv, l, r) }

// Mod returns the elementwise remainder l % r for integer elements.
func Mod[T tensor.Integer](l, r Node[T]) *Binary[T] { return NewBinary(OpMod, l, r) }

func (b *Binary[T]) Children() []AnyNode { return []AnyNode{b.l, b.r} }

func (b *Binary[T]) Shape() tensor.Shape {
	if b.l.Size() >= 0 {
		return b.l.Shape()
	}
	return b.r.Shape()
}

func (b *Binary[T]) Size() int {
	if b.l.Size() >= 0 {
		return b.l.Size()
	}
	return b.r.Size()
}

func (b *Binary[T]) Order() tensor.Order {
	if b.l.Size() >= 0 {
		return b.l.Order()
	}
	return b.r.Order()
}

// Op returns the node's operator.
func (b *Binary[T]) Op() BinOp { return b.op }

func (b *Binary[T]) Get(i int) T {
	l, r := b.l.Get(i), b.r.Get(i)
	return applyBinOp(b.op, l, r)
}

func applyBinOp[T tensor.Element](op BinOp, l, r T) T {
	switch op {
	case OpAdd:
		return l + r
	case OpSub:
		return l - r
	case OpMul:
		return l * r
	case OpDiv:
		return l / r
	case OpMod:
		return modElem(l, r)
	default:
		panic("expr: unknown operator")
	}
}

// modElem computes l % r. Integer-only; Mod's constraint keeps float trees
// from building OpMod nodes, so the float cases are unreachable.
func modElem[T tensor.Element](l, r T) T {
	switch lv := any(l).(type) {
	case int32:
		return any(lv % any(r).(int32)).(T)
	case int64:
		return any(lv % any(r).(int64)).(T)
	default:
		panic("expr: modulo on non-integer elements")
	}
}

func (b *Binary[T]) Traits() Traits {
	t := b.l.Traits().and(b.r.Traits())
	// No device kernel for the remainder operator.
	if b.op == OpMod {
		t.GPUComputable = false
	}
	return t
}

func (b *Binary[T]) Aliases(lo, hi uintptr) bool {
	return b.l.Aliases(lo, hi) || b.r.Aliases(lo, hi)
}

// Unary applies an elementwise function to one operand.
type Unary[T tensor.Element] struct {
	child Node[T]
	fn    func(T) T
	vec   bool
}

// NewUnary builds an elementwise unary node. vectorizable declares whether
// fn is safe for width-batched evaluation.
func NewUnary[T tensor.Element](child Node[T], vectorizable bool, fn func(T) T) *Unary[T] {
	return &Unary[T]{child: child, fn: fn, vec: vectorizable}
}

// Neg returns -x.
func Neg[T tensor.Element](x Node[T]) *Unary[T] {
	return NewUnary(x, true, func(v T) T { return -v })
}

func (u *Unary[T]) Children() []AnyNode { return []AnyNode{u.child} }
func (u *Unary[T]) Shape() tensor.Shape { return u.child.Shape() }
func (u *Unary[T]) Size() int           { return u.child.Size() }
func (u *Unary[T]) Order() tensor.Order { return u.child.Order() }
func (u *Unary[T]) Get(i int) T         { return u.fn(u.child.Get(i)) }

func (u *Unary[T]) Traits() Traits {
	t := u.child.Traits()
	t.Direct = false
	t.Vectorizable = t.Vectorizable && u.vec
	// An arbitrary host function cannot run on the device.
	t.GPUComputable = false
	return t
}

func (u *Unary[T]) Aliases(lo, hi uintptr) bool { return u.child.Aliases(lo, hi) }

// Cast converts a subtree's elements from S to T. The mixed types make the
// enclosing tree non-homogeneous, which excludes BLAS and device paths.
type Cast[S, T tensor.Element] struct {
	child Node[S]
}

// NewCast builds a conversion node.
func NewCast[S, T tensor.Element](child Node[S]) *Cast[S, T] {
	return &Cast[S, T]{child: child}
}

func (c *Cast[S, T]) Children() []AnyNode { return []AnyNode{c.child} }
func (c *Cast[S, T]) Shape() tensor.Shape { return c.child.Shape() }
func (c *Cast[S, T]) Size() int           { return c.child.Size() }
func (c *Cast[S, T]) Order() tensor.Order { return c.child.Order() }
func (c *Cast[S, T]) Get(i int) T         { return T(c.child.Get(i)) }

func (c *Cast[S, T]) Traits() Traits {
	t := c.child.Traits()
	t.Direct = false
	t.Homogeneous = false
	t.GPUComputable = false
	return t
}

func (c *Cast[S, T]) Aliases(lo, hi uintptr) bool { return c.child.Aliases(lo, hi) }
