package recipe

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/magicphoto/relief/pkg/tessellate"
)

// EvalTimeout is the hard limit for a single recipe evaluation.
const EvalTimeout = 2 * time.Second

// ErrSuperseded is returned by Evaluate when a newer evaluation started
// before this one finished.
var ErrSuperseded = errors.New("recipe: evaluation superseded by newer request")

type evalResult struct {
	opts   tessellate.Options
	errors []EvalError
	err    error
}

// waitWithTimeout waits for a result from ch, failing after EvalTimeout or
// when a newer evaluation has started in the meantime.
//
// On timeout the goroutine may still be running; its buffered send lets it
// finish and be collected.
func waitWithTimeout(
	ch <-chan evalResult,
	gen uint64,
	mu *sync.Mutex,
	currentGen *uint64,
) (evalResult, error) {
	timer := time.NewTimer(EvalTimeout)
	defer timer.Stop()

	select {
	case res := <-ch:
		mu.Lock()
		current := *currentGen
		mu.Unlock()

		if gen != current {
			return evalResult{}, ErrSuperseded
		}
		return res, nil

	case <-timer.C:
		return evalResult{}, fmt.Errorf("recipe: evaluation timed out after %s", EvalTimeout)
	}
}
