package model

import "time"

// Picture represents a catalogued picture record.
type Picture struct {
	ID         string    `json:"id"`
	Filename   string    `json:"filename"`
	CapturedAt time.Time `json:"captured_at"`
	Location   Location  `json:"location"`
	FileSize   int64     `json:"filesize"`
	Data       []byte    `json:"-"`
}
