package bridge

import "time"

// Stats is a point-in-time snapshot of a session's tables.
type Stats struct {
	Session string    `cbor:"1,keyasint" json:"session"`
	Taken   time.Time `cbor:"2,keyasint" json:"taken"`

	LiveFrames    int `cbor:"3,keyasint" json:"liveFrames"`
	FreeFrames    int `cbor:"4,keyasint" json:"freeFrames"`
	FrameCapacity int `cbor:"5,keyasint" json:"frameCapacity"`
	PeakFrames    int `cbor:"6,keyasint" json:"peakFrames"`

	Callables    int    `cbor:"7,keyasint" json:"callables"`
	Classes      int    `cbor:"8,keyasint" json:"classes"`
	BoundObjects int    `cbor:"9,keyasint" json:"boundObjects"`
	Revivals     uint64 `cbor:"10,keyasint" json:"revivals"`

	PendingFinalizers   int    `cbor:"11,keyasint" json:"pendingFinalizers"`
	QueuedFinalizations int    `cbor:"12,keyasint" json:"queuedFinalizations"`
	Released            uint64 `cbor:"13,keyasint" json:"released"`
}

// Stats returns a snapshot of every table.
func (e *Engine) Stats() Stats {
	return Stats{
		Session:             e.id,
		Taken:               time.Now().UTC(),
		LiveFrames:          e.Frames.Live(),
		FreeFrames:          e.Frames.Free(),
		FrameCapacity:       e.Frames.Capacity(),
		PeakFrames:          e.Frames.Peak(),
		Callables:           e.Callables.Count(),
		Classes:             e.Objects.ClassCount(),
		BoundObjects:        e.Objects.Len(),
		Revivals:            e.Objects.Revivals(),
		PendingFinalizers:   e.Finalization.Pending(),
		QueuedFinalizations: e.Finalization.Queued(),
		Released:            e.Finalization.Fired(),
	}
}
