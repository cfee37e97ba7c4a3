package model

import "time"

// Location is a position fix attached to every captured picture.
type Location struct {
	Accuracy  float64   `json:"accuracy"`
	Altitude  float64   `json:"altitude"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Provider  string    `json:"provider"`
	Speed     float64   `json:"speed"`
	Time      time.Time `json:"time"`
}

// CapturedItem is an encoded picture travelling through the delivery queue.
// It is created once by the sampler and never modified afterwards.
type CapturedItem struct {
	ID         string
	Data       []byte
	CapturedAt time.Time
	Location   Location
}
