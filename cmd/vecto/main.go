// Package main provides the Vecto CLI.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"

	"github.com/vecto-ml/vecto/expr"
	"github.com/vecto-ml/vecto/internal/config"
	"github.com/vecto-ml/vecto/tensor"
)

const version = "v0.1.0-dev"

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Printf("Vecto %s\n", version)
			return
		case "bench":
			bench()
			return
		}
	}

	fmt.Println("Vecto - Lazy Expression Evaluation for Go")
	fmt.Printf("Version: %s\n\n", version)
	fmt.Println("Commands:")
	fmt.Println("  version    Show version")
	fmt.Println("  bench      Run a quick strategy comparison")
}

// bench times the assignment strategies on one elementwise statement.
func bench() {
	const n = 2048
	logrus.Infof("temporary ceiling: %s", humanize.IBytes(config.TempCeilingBytes()))

	a := tensor.Full[float32](1.5, n, n)
	b := tensor.Full[float32](2.5, n, n)
	c := tensor.Zeros[float32](n, n)
	sum := expr.Add(expr.Of(a), expr.Of(b))

	ctx := expr.NewContext(expr.DefaultConfig())
	for _, s := range []expr.AssignStrategy{
		expr.AssignStandard, expr.AssignDirect, expr.AssignVectorized,
	} {
		restore := ctx.ForceAssign(s)
		start := time.Now()
		expr.Assign[float32](c, sum, ctx)
		restore()
		logrus.Infof("%-10s %8s  %d elements", s, time.Since(start).Round(time.Microsecond), n*n)
	}

	start := time.Now()
	p := expr.Force(expr.MatMul(expr.Of(a), expr.Of(b)), ctx)
	logrus.Infof("%-10s %8s  %v matmul", "gemm", time.Since(start).Round(time.Microsecond), p.Shape())
}
