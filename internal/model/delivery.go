package model

import "time"

// Delivery is one journaled sink outcome for a captured item.
type Delivery struct {
	ID          int64     `json:"id"`
	ItemID      string    `json:"item_id"`
	Sink        string    `json:"sink"`
	Status      string    `json:"status"`
	Reason      string    `json:"reason,omitempty"`
	AttemptedAt time.Time `json:"attempted_at"`
	DurationMs  int64     `json:"duration_ms"`
}

// DeliveryStats aggregates the delivery journal.
type DeliveryStats struct {
	Total    int                       `json:"total"`
	PerSink  map[string]map[string]int `json:"per_sink"`
	LastFail *Delivery                 `json:"last_failure,omitempty"`
}
