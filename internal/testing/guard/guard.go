// Package guard flips the runtime into test mode when imported for side
// effect from a test package, so binaries under test skip startup work.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("MADARIS_TEST_MODE") == "" {
			_ = os.Setenv("MADARIS_TEST_MODE", "1")
		}
	})
}
