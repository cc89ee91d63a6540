package session

import "wavecast/pkg/framer"

// EventKind discriminates the control-surface notifications a Sender or
// Receiver emits while running, so a caller (CLI, test, GUI) can report
// progress without polling internal state.
type EventKind int

const (
	EventCalibrationDone EventKind = iota
	EventMetaReceived
	EventChunkSent
	EventChunkReceived
	EventTransferDone
	EventError
)

func (k EventKind) String() string {
	switch k {
	case EventCalibrationDone:
		return "calibration_done"
	case EventMetaReceived:
		return "meta_received"
	case EventChunkSent:
		return "chunk_sent"
	case EventChunkReceived:
		return "chunk_received"
	case EventTransferDone:
		return "transfer_done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Event is one notification on a Sender's or Receiver's Events channel.
type Event struct {
	Kind EventKind

	ChunkIndex int
	ChunkTotal int

	Metadata framer.FileMetadata
	Err      error
}
