package dto

import "time"

// ErrorEvent is what the pipeline hands to the host for presentation.
type ErrorEvent struct {
	Category string    `json:"category"`
	Message  string    `json:"message"`
	Sink     string    `json:"sink,omitempty"`
	ItemID   string    `json:"item_id,omitempty"`
	Time     time.Time `json:"time"`
}
