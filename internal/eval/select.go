// Package eval orchestrates assignments: it materializes the source graph,
// selects an elementwise strategy, runs it, and maintains the destination's
// residency flags.
package eval

import (
	"github.com/sirupsen/logrus"

	"github.com/vecto-ml/vecto/internal/backend/device"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/internal/expr"
)

// Op is an assignment operator.
type Op int

// Assignment operators.
const (
	Assign Op = iota // =
	AddAssign
	SubAssign
	MulAssign
	DivAssign
	ModAssign
)

// String returns the operator symbol.
func (op Op) String() string {
	switch op {
	case Assign:
		return "="
	case AddAssign:
		return "+="
	case SubAssign:
		return "-="
	case MulAssign:
		return "*="
	case DivAssign:
		return "/="
	case ModAssign:
		return "%="
	default:
		return "?"
	}
}

// facts are the selector inputs for one assignment: source capability
// traits plus what is known about the destination.
type facts struct {
	src       expr.Traits
	dstDirect bool
	// dstFull means the destination is a whole container, not a view.
	// Device-side writes update whole buffers only.
	dstFull   bool
	sameOrder bool
	n         int
}

// ChooseAssign is the decision function for the elementwise-assign family.
// Deterministic for fixed inputs. A forced strategy that is illegal for the
// operand set logs a warning and degrades to the unforced choice.
func ChooseAssign(ctx *config.Context, op Op, f facts) config.AssignStrategy {
	if forced, ok := ctx.ForcedAssign(); ok {
		if assignLegal(forced, ctx, op, f) {
			return forced
		}
		logrus.Warnf("forced assign strategy %s is not legal for this operand set; using default", forced)
	}

	// Priority order: block copy beats everything when legal, then the
	// device, then vectorized, then raw destination writes, then the
	// always-legal indexed path.
	switch {
	case op == Assign && f.src.Direct && f.dstDirect && f.sameOrder && f.src.Homogeneous:
		return config.AssignFastCopy
	case f.src.GPUComputable && f.dstDirect && f.dstFull && device.Active() != nil &&
		f.n >= config.DeviceMinElems && op != ModAssign:
		return config.AssignDevice
	case ctx.Cfg.VectorizeEnabled && f.src.Vectorizable && f.dstDirect && f.sameOrder:
		return config.AssignVectorized
	case f.dstDirect:
		return config.AssignDirect
	default:
		return config.AssignStandard
	}
}

// assignLegal reports whether a strategy can serve the operand set at all,
// independent of size heuristics.
func assignLegal(s config.AssignStrategy, ctx *config.Context, op Op, f facts) bool {
	switch s {
	case config.AssignFastCopy:
		return op == Assign && f.src.Direct && f.dstDirect && f.sameOrder && f.src.Homogeneous
	case config.AssignDevice:
		return device.Active() != nil && f.src.GPUComputable && f.dstDirect && f.dstFull && op != ModAssign
	case config.AssignVectorized:
		return ctx.Cfg.VectorizeEnabled && f.src.Vectorizable && f.dstDirect && f.sameOrder
	case config.AssignDirect:
		return f.dstDirect
	case config.AssignStandard:
		return true
	default:
		return false
	}
}
