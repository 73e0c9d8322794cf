package domain

// CallHandle references a live remote group call.
type CallHandle struct {
	ID         int64 `json:"id"`
	AccessHash int64 `json:"access_hash"`
}

// GroupFullInfo is the subset of full group metadata teardown needs.
// Call is nil when no call is active.
type GroupFullInfo struct {
	ID   int64       `json:"id"`
	Call *CallHandle `json:"call,omitempty"`
}

// StreamSpec describes the media to play into the call.
type StreamSpec struct {
	Source       string `json:"source"`
	VideoIgnored bool   `json:"video_ignored"`
}

// JoinConfig controls how the engine joins the call.
type JoinConfig struct {
	JoinAs    PeerAddress `json:"-"`
	AutoStart bool        `json:"auto_start"`
}
