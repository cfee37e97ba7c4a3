package dto

import "autosendpic/internal/model"

// Status is the payload of /api/status.
type Status struct {
	Sending         bool                 `json:"sending"`
	Flash           bool                 `json:"flash"`
	CameraAvailable bool                 `json:"camera_available"`
	Pending         int                  `json:"pending"`
	Sinks           []string             `json:"sinks"`
	IntervalSeconds int                  `json:"interval_seconds"`
	Location        model.Location       `json:"location"`
	Deliveries      *model.DeliveryStats `json:"deliveries,omitempty"`
}
