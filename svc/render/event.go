package render

import "slices"

// EventType identifies the kind of transactional email.
type EventType string

const (
	EventWelcome         EventType = "welcome"
	EventVerification    EventType = "verification"
	EventPasswordReset   EventType = "password_reset"
	EventPasswordChanged EventType = "password_changed"
	EventFriendRequest   EventType = "friend_request"
	EventFriendAccepted  EventType = "friend_accepted"
	EventCustom          EventType = "custom"
)

var eventTypes = []EventType{
	EventWelcome,
	EventVerification,
	EventPasswordReset,
	EventPasswordChanged,
	EventFriendRequest,
	EventFriendAccepted,
	EventCustom,
}

// EventTypes returns the closed set of event types in a stable order.
func EventTypes() []EventType {
	return slices.Clone(eventTypes)
}

// Valid reports whether t belongs to the closed set.
func (t EventType) Valid() bool {
	return slices.Contains(eventTypes, t)
}

func (t EventType) String() string { return string(t) }
