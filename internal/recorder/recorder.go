package recorder

import "AssetKeeper/internal/model"

// RetrievalEvent describes one Retrieve attempt.
type RetrievalEvent struct {
	Asset     string
	Ticker    string
	Backend   string // "API" or "File"
	Source    string // provider name or file path
	Rows      int
	Status    string // "OK" or "FAILED"
	ErrorKind string
	Message   string
}

// Snapshot holds the summary of a successfully loaded table.
type Snapshot struct {
	Asset   string
	Summary model.Summary
}

// Recorder persists retrieval history for analysis.
type Recorder interface {
	RecordRetrieval(evt *RetrievalEvent) error
	RecordSnapshot(snap *Snapshot) error
	Close() error
}
