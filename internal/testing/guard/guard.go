package guard

import (
	"os"
	"sync"
)

var once sync.Once

func init() {
	once.Do(func() {
		if os.Getenv("VOLTLEAD_TEST_MODE") == "" {
			_ = os.Setenv("VOLTLEAD_TEST_MODE", "1")
		}
	})
}
