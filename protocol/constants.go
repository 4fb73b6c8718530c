package protocol

import "time"

const (
	// How long a disconnected session stays resumable.
	ResumeGrace = 2 * time.Minute

	// Hub housekeeping cadence.
	PruneInterval = 5 * time.Second

	SendBuffer = 64
)
