package report

import "time"

// Stage describes what a query is doing.
type Stage string

const (
	// StageLookup finds the conformance of the query type.
	StageLookup Stage = "lookup"
	// StageWitness reads the requested witness.
	StageWitness Stage = "witness"
)

// Status captures progress state of a query.
type Status string

const (
	StatusQueued  Status = "queued"
	StatusWorking Status = "working"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Event reports progress for one query.
type Event struct {
	Query   int
	Label   string
	Stage   Stage
	Status  Status
	Err     error
	Elapsed time.Duration
}

// ProgressSink consumes progress events.
type ProgressSink interface {
	OnEvent(Event)
}

// ChannelSink forwards events into a channel.
type ChannelSink struct {
	Ch chan<- Event
}

func (s ChannelSink) OnEvent(evt Event) {
	if s.Ch == nil {
		return
	}
	s.Ch <- evt
}

type nopSink struct{}

func (nopSink) OnEvent(Event) {}
