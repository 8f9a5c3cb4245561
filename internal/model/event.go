package model

// Event kinds carried on the notification channel.
const (
	EventCreated = "created"
	EventStatus  = "status"
	// EventResync asks the receiver to re-read everything; hints were lost.
	EventResync = "resync"
)

// PickupEvent is a cache-invalidation hint. It is never a data source.
type PickupEvent struct {
	Seq      uint64 `json:"seq"`
	PickupID int64  `json:"pickup_id,omitempty"`
	Kind     string `json:"kind"`
	Status   string `json:"status,omitempty"`
}

// Frame types on the notification websocket.
const (
	FrameJoin   = "join"
	FrameLeave  = "leave"
	FrameJoined = "joined"
	FrameLeft   = "left"
	FrameEvent  = "event"
	FrameError  = "error"
)

// Channels a session can ask to join. The user channel is joined on connect.
const (
	ChannelUser  = "user"
	ChannelPool  = "pool"
	ChannelAdmin = "admin"
)

// Frame is one message on the notification websocket.
type Frame struct {
	Type    string       `json:"type"`
	Channel string       `json:"channel,omitempty"`
	Event   *PickupEvent `json:"event,omitempty"`
	Error   string       `json:"error,omitempty"`
}
