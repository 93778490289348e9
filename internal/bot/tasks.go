package bot

import (
	"log"
	"sync"
)

// Runner tracks the background tasks a dispatched event spawns. Handlers
// return as soon as validation is done; sends and model calls run here. Tests
// call Wait to observe all side effects deterministically.
type Runner struct {
	wg sync.WaitGroup
}

func NewRunner() *Runner {
	return &Runner{}
}

func (r *Runner) Go(name string, fn func()) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				log.Printf("background task %s panicked: %v", name, p)
			}
		}()
		fn()
	}()
}

// Wait blocks until every spawned task has finished.
func (r *Runner) Wait() {
	r.wg.Wait()
}
