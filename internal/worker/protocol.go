// Package worker is the background worker router: a second logical process
// that outlives any single application window. It receives click
// interactions on displayed notifications, displays push-originated
// notifications, and decides whether to focus an existing window or open a
// new one. It communicates with the foreground only by asynchronous
// message passing and the shared platform notification surface, never by
// shared memory.
package worker

import (
	"github.com/kanbanflow/herald/internal/domain"
)

// ProtocolVersion identifies the worker message contract. The message set
// below is closed: foreground and worker only ever exchange these shapes.
const ProtocolVersion = 1

// MessageType names a message in the foreground↔worker protocol.
type MessageType string

const (
	// MessageSkipWaiting asks a waiting worker version to activate now.
	MessageSkipWaiting MessageType = "SKIP_WAITING"

	// MessageNotificationClick is posted to a focused window after a
	// notification click, carrying the click payload.
	MessageNotificationClick MessageType = "NOTIFICATION_CLICK"
)

// WindowMessage is the message posted to an application window.
type WindowMessage struct {
	Type MessageType             `json:"type"`
	Data domain.NotificationData `json:"data"`
}

// Click describes a user interaction with a displayed notification.
type Click struct {
	// Action is the notification action button pressed, or empty for a
	// click on the notification body.
	Action string

	// Tag identifies the clicked notification so it can be closed.
	Tag string

	// Data is the payload the notification was displayed with.
	Data domain.NotificationData
}

// inbox message variants. showRequest is the only one with a reply: the
// dispatcher needs the outcome to decide on its foreground fallback.
type message struct {
	show        *showRequest
	click       *Click
	push        []byte
	skipWaiting bool
}

type showRequest struct {
	notification domain.Notification
	reply        chan error
}
