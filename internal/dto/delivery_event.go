package dto

import "time"

// DeliveryEvent reports one sink outcome for one item.
type DeliveryEvent struct {
	ItemID     string    `json:"item_id"`
	Sink       string    `json:"sink"`
	Status     string    `json:"status"`
	DurationMs int64     `json:"duration_ms"`
	Time       time.Time `json:"time"`
}

// Event is the envelope pushed to websocket viewers.
type Event struct {
	Type     string         `json:"type"`
	Error    *ErrorEvent    `json:"error,omitempty"`
	Delivery *DeliveryEvent `json:"delivery,omitempty"`
}
