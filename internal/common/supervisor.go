package common

import (
	"fmt"
	"runtime/debug"

	"github.com/rs/zerolog/log"
)

// Go runs a task in its own goroutine and never lets it take the
// process down: returned errors and panics are logged and dropped
func Go(name string, task func() error) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Error().Str("task", name).Str("stack", string(debug.Stack())).Msg(fmt.Sprintf("Task panicked: %v", r))
			}
		}()
		if err := task(); err != nil {
			log.Error().Err(err).Str("task", name).Msg("Task failed")
		}
	}()
}
