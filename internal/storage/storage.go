// Package storage records document interactions as JSONL for offline
// inspection. Sessions themselves are volatile; this log is the only thing
// that outlives the process.
package storage

import "time"

type Interaction struct {
	Time     time.Time `json:"time"`
	Phone    string    `json:"phone"` // masked before recording
	Document string    `json:"document,omitempty"`
	Status   string    `json:"status"`
}

type Recorder interface {
	AppendInteraction(i Interaction) error
}
