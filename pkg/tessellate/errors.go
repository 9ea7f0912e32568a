package tessellate

import (
	"errors"
	"fmt"
	"math"

	"github.com/magicphoto/relief/pkg/depth"
)

var (
	// ErrDegenerateInput means the grid has fewer than two samples along
	// an axis, so not even a single cell can be triangulated.
	ErrDegenerateInput = errors.New("degenerate input")

	// ErrMalformedInput means the grid is structurally inconsistent, such
	// as a sample buffer that does not hold Width*Height values.
	ErrMalformedInput = errors.New("malformed input")
)

// InputError is returned by Build for depth grids it refuses to mesh.
// Err is ErrDegenerateInput or ErrMalformedInput.
type InputError struct {
	Err     error
	Width   int
	Height  int
	Samples int
	Reason  string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("tessellate: %v: %s (%dx%d grid, %d samples)",
		e.Err, e.Reason, e.Width, e.Height, e.Samples)
}

func (e *InputError) Unwrap() error {
	return e.Err
}

// checkInput rejects grids that cannot be meshed. Too-small dimensions are
// reported before sample count mismatches, so a 0x0 grid is degenerate.
func checkInput(dm *depth.Map) error {
	if dm == nil {
		return &InputError{Err: ErrMalformedInput, Reason: "nil depth map"}
	}
	fail := func(err error, reason string) error {
		return &InputError{Err: err, Width: dm.Width, Height: dm.Height, Samples: dm.Len(), Reason: reason}
	}
	if dm.Width < 2 || dm.Height < 2 {
		return fail(ErrDegenerateInput, "need at least 2x2 samples")
	}
	if uint64(dm.Width) > math.MaxUint32/uint64(dm.Height) {
		return fail(ErrMalformedInput, "grid exceeds the 32-bit index range")
	}
	if n := uint64(dm.Width) * uint64(dm.Height); uint64(dm.Len()) != n {
		return fail(ErrMalformedInput, fmt.Sprintf("want %d samples", n))
	}
	return nil
}
