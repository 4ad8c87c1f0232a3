package types

import "time"

// PushStatus is the lifecycle state of the device's push registration.
type PushStatus string

const (
	PushIdle        PushStatus = "idle"
	PushSubscribing PushStatus = "subscribing"
	PushSubscribed  PushStatus = "subscribed"
	PushError       PushStatus = "error"
)

// PushSubscriptionState is a snapshot of the device registration.
// Token is empty whenever Status is idle.
type PushSubscriptionState struct {
	Token  string     `json:"token,omitempty"`
	Status PushStatus `json:"status"`
}

// NotificationPermission mirrors the platform's tri-state permission.
type NotificationPermission string

const (
	PermissionDefault NotificationPermission = "default"
	PermissionGranted NotificationPermission = "granted"
	PermissionDenied  NotificationPermission = "denied"
)

// Subscriber is a remote-directory record keyed by token.
type Subscriber struct {
	Token     string    `json:"token"`
	UserAgent string    `json:"user_agent"`
	UpdatedAt time.Time `json:"updated_at"`
}

// PushMessage is the provider-agnostic content of a push notification.
type PushMessage struct {
	Token string
	Title string
	Body  string
	URL   string // optional deep link carried in the data payload
	Link  string // click-through link; falls back to the public app URL
}

// DispatchMessage is the SQS payload for a queued broadcast delivery.
type DispatchMessage struct {
	ID         string    `json:"id"`
	Token      string    `json:"token"`
	Title      string    `json:"title"`
	Body       string    `json:"body"`
	URL        string    `json:"url,omitempty"`
	EnqueuedAt time.Time `json:"enqueued_at"`
	TraceID    string    `json:"trace_id,omitempty"`
}

// DeviceRecord is what the client remembers about its own push setup between
// runs. Token is the live token this device holds; empty after unsubscribe.
type DeviceRecord struct {
	Permission NotificationPermission `json:"permission,omitempty"`
	Token      string                 `json:"token,omitempty"`
}
