// Package guard flips the process into test mode when imported for side
// effects from a _test.go file.
package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("INNSUITE_TEST_MODE") == "" {
			_ = os.Setenv("INNSUITE_TEST_MODE", "1")
		}
	})
}
