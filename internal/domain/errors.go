// Package domain contains domain errors shared by the event hub and its
// subscribers.
package domain

import "errors"

// Sentinel errors for the event hub.
var (
	ErrHubNotRunning    = errors.New("event hub is not running")
	ErrSubscriberClosed = errors.New("subscriber is closed")
)
