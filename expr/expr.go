// Copyright 2026 Vecto Authors. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package expr is the public expression API: build a lazy graph over
// containers, then assign it into a destination. Evaluation picks an
// execution strategy per statement from the operand capabilities, problem
// size, and an optional forced-selection context.
//
// Example:
//
//	a := tensor.Full[float32](1, 512, 512)
//	b := tensor.Full[float32](2, 512, 512)
//	c := tensor.Zeros[float32](512, 512)
//	expr.Assign(c, expr.Add(expr.Of(a), expr.Of(b)), nil)
package expr

import (
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/eval"
	"github.com/vecto-ml/vecto/internal/expr"
	"github.com/vecto-ml/vecto/internal/tensor"
)

// Node is a lazy expression of element type T.
type Node[T tensor.Element] = expr.Node[T]

// Of wraps a container as an expression leaf. The leaf references the
// container; it never copies it.
func Of[T tensor.Element](d *tensor.Dense[T]) Node[T] { return expr.NewRef(d) }

// OfView wraps a rectangular view as an expression leaf.
func OfView[T tensor.Element](v *tensor.SubMatrix[T]) Node[T] { return expr.NewViewRef(v) }

// Const broadcasts a single value to the shape of the surrounding
// expression.
func Const[T tensor.Element](v T) Node[T] { return expr.NewScalar(v) }

// Generate builds a leaf computed purely from the flat index. Pass
// threadSafe=false for functions with internal state; such sources are
// never split across workers.
func Generate[T tensor.Element](shape tensor.Shape, threadSafe bool, fn func(i int) T) Node[T] {
	return expr.NewGenerator(shape, threadSafe, fn)
}

// Add returns the elementwise sum l + r.
func Add[T tensor.Element](l, r Node[T]) Node[T] { return expr.Add(l, r) }

// Sub returns the elementwise difference l - r.
func Sub[T tensor.Element](l, r Node[T]) Node[T] { return expr.Sub(l, r) }

// Mul returns the elementwise product l * r.
func Mul[T tensor.Element](l, r Node[T]) Node[T] { return expr.Mul(l, r) }

// Div returns the elementwise quotient l / r.
func Div[T tensor.Element](l, r Node[T]) Node[T] { return expr.Div(l, r) }

// Mod returns the elementwise remainder l % r for integer elements.
func Mod[T tensor.Integer](l, r Node[T]) Node[T] { return expr.Mod(l, r) }

// Neg returns the elementwise negation -x.
func Neg[T tensor.Element](x Node[T]) Node[T] { return expr.Neg(x) }

// Apply returns fn mapped over x. vectorizable declares whether fn is safe
// for width-batched evaluation.
func Apply[T tensor.Element](x Node[T], vectorizable bool, fn func(T) T) Node[T] {
	return expr.NewUnary(x, vectorizable, fn)
}

// Cast converts a subtree's elements from S to T.
func Cast[S, T tensor.Element](x Node[S]) Node[T] { return expr.NewCast[S, T](x) }

// MatMul returns the matrix product a @ b as a temporary expression.
func MatMul[T tensor.Element](a, b Node[T]) Node[T] { return expr.NewMatMul(a, b) }

// MatVec returns the matrix-vector product a @ x as a temporary expression.
func MatVec[T tensor.Element](a, x Node[T]) Node[T] { return expr.NewMatVec(a, x) }

// VecMat returns the row-vector product x @ a as a temporary expression.
func VecMat[T tensor.Element](x, a Node[T]) Node[T] { return expr.NewVecMat(x, a) }

// Conv2D returns the valid 2-D convolution of in with kernel as a
// temporary expression.
func Conv2D[T tensor.Element](in, kernel Node[T]) Node[T] { return expr.NewConv2D(in, kernel) }

// Share marks a subtree used several times within one statement. The
// subtree is evaluated into a cached buffer once per statement instead of
// once per reference.
func Share[T tensor.Element](x Node[T]) Node[T] { return expr.NewShared(x) }

// Force evaluates a node into a fresh container immediately.
func Force[T tensor.Element](n Node[T], ctx *Context) *tensor.Dense[T] {
	return expr.Force(n, ctx)
}

// Assign runs dst = src.
func Assign[T tensor.Element](dst tensor.Writable[T], src Node[T], ctx *Context) {
	eval.Evaluate(dst, src, eval.Assign, ctx)
}

// AddAssign runs dst += src.
func AddAssign[T tensor.Element](dst tensor.Writable[T], src Node[T], ctx *Context) {
	eval.Evaluate(dst, src, eval.AddAssign, ctx)
}

// SubAssign runs dst -= src.
func SubAssign[T tensor.Element](dst tensor.Writable[T], src Node[T], ctx *Context) {
	eval.Evaluate(dst, src, eval.SubAssign, ctx)
}

// MulAssign runs dst *= src.
func MulAssign[T tensor.Element](dst tensor.Writable[T], src Node[T], ctx *Context) {
	eval.Evaluate(dst, src, eval.MulAssign, ctx)
}

// DivAssign runs dst /= src.
func DivAssign[T tensor.Element](dst tensor.Writable[T], src Node[T], ctx *Context) {
	eval.Evaluate(dst, src, eval.DivAssign, ctx)
}

// ModAssign runs dst %= src for integer elements.
func ModAssign[T tensor.Integer](dst tensor.Writable[T], src Node[T], ctx *Context) {
	eval.Evaluate(dst, src, eval.ModAssign, ctx)
}

// Context records forced strategy choices for a computation region.
type Context = config.Context

// Config is the runtime-tunable selection surface.
type Config = config.Config

// NewContext returns an unforced context over the given configuration.
func NewContext(cfg Config) *Context { return config.NewContext(cfg) }

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config { return config.Default() }

// DefaultContext returns the shared process-wide context.
func DefaultContext() *Context { return config.DefaultContext() }

// AssignStrategy identifies one elementwise-assignment execution path.
type AssignStrategy = config.AssignStrategy

// Assignment strategies.
const (
	AssignAuto       AssignStrategy = config.AssignAuto
	AssignStandard   AssignStrategy = config.AssignStandard
	AssignDirect     AssignStrategy = config.AssignDirect
	AssignFastCopy   AssignStrategy = config.AssignFastCopy
	AssignVectorized AssignStrategy = config.AssignVectorized
	AssignDevice     AssignStrategy = config.AssignDevice
)

// GemmStrategy identifies one matrix-multiply backend.
type GemmStrategy = config.GemmStrategy

// Matrix multiply strategies.
const (
	GemmAuto   GemmStrategy = config.GemmAuto
	GemmStd    GemmStrategy = config.GemmStd
	GemmVec    GemmStrategy = config.GemmVec
	GemmBlas   GemmStrategy = config.GemmBlas
	GemmDevice GemmStrategy = config.GemmDevice
)

// ConvStrategy identifies one convolution backend.
type ConvStrategy = config.ConvStrategy

// Convolution strategies.
const (
	ConvAuto ConvStrategy = config.ConvAuto
	ConvStd  ConvStrategy = config.ConvStd
	ConvVec  ConvStrategy = config.ConvVec
	ConvBlas ConvStrategy = config.ConvBlas
)
