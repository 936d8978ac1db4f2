// Command tensorforge is a minimal smoke binary exercising the
// backend/scheduler/assign wiring for manual testing — not a product
// surface (§5 Non-goals: "no CLI wrapper beyond a minimal cmd/tensorforge
// smoke binary").
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/tensorforge/tensorforge/assign"
	"github.com/tensorforge/tensorforge/backend"
	_ "github.com/tensorforge/tensorforge/backend/cpu"
	_ "github.com/tensorforge/tensorforge/backend/gpu"
	"github.com/tensorforge/tensorforge/config"
	"github.com/tensorforge/tensorforge/hlir"
	"github.com/tensorforge/tensorforge/llir"
	"github.com/tensorforge/tensorforge/session"
	"github.com/tensorforge/tensorforge/shape"
)

const version = "v0.0.1-dev"

func main() {
	args := os.Args[1:]
	if len(args) > 0 && args[0] == "version" {
		fmt.Printf("tensorforge %s\n", version)
		return
	}

	sess := session.New(args)
	defer func() {
		if err := sess.Shutdown(); err != nil {
			log.Printf("tensorforge: shutdown: %v", err)
		}
	}()

	name := config.BackendName(args)
	be, err := sess.Backend(name)
	if err != nil {
		log.Fatalf("tensorforge: backend %q: %v", name, err)
	}
	fmt.Printf("tensorforge %s\nbackend: %s (%d device(s))\n", version, be.Name(), be.NumDevices())

	if err := smokeSGDStep(be); err != nil {
		log.Fatalf("tensorforge: smoke step: %v", err)
	}
	fmt.Println("sgd_one smoke step composed and compiled without error.")
}

// smokeSGDStep builds one parameter and its gradient, composes sgd_one's
// IR with assign.SGDOne, lowers it, and compiles it against the
// resolved backend's first device — the minimal end-to-end path the
// smoke binary exists to exercise.
func smokeSGDStep(be backend.Backend) error {
	dev, err := be.GetDevice(0)
	if err != nil {
		return fmt.Errorf("device 0: %w", err)
	}
	ctx, err := be.Init(dev)
	if err != nil {
		return fmt.Errorf("init context: %w", err)
	}
	defer func() { _ = be.Finalize(ctx) }()

	w := newParameter("w", 4)
	code, _, err := assign.SGDOne(w, assign.DefaultSGDConfig(0.01))
	if err != nil {
		return fmt.Errorf("sgd_one: %w", err)
	}

	lowered, err := llir.ToLowLevel(code)
	if err != nil {
		return fmt.Errorf("lowering: %w", err)
	}

	compiled, err := be.Compile(ctx, "smoke_sgd_one", false, nil, lowered.Code)
	if err != nil {
		return fmt.Errorf("compile: %w", err)
	}

	work, err := compiled.Schedule()
	if err != nil {
		return fmt.Errorf("schedule: %w", err)
	}
	if err := work.Run(); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	return be.Await(dev)
}

func flatShape(name string, n int) *shape.Shape {
	dims := []shape.Dim{shape.NewConcreteDim(n)}
	row := shape.NewRow(dims, shape.FixedTerm{})
	empty := shape.NewRow(nil, shape.FixedTerm{})
	return shape.New(name, empty, empty, row)
}

func newParameter(name string, n int) *hlir.Node {
	return hlir.NewParameter(hlir.NewTensorRef(name, flatShape(name, n)))
}
