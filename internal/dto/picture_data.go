// PicturesData is a paginated response payload for the pictures gallery.
package dto

import "autosendpic/internal/model"

type PicturesData struct {
	Pictures    []model.Picture `json:"pictures"`
	Length      int             `json:"length"`
	TotalPages  int             `json:"totalPages"`
	CurrentPage int             `json:"currentPage"`
	Limit       int             `json:"pageSize"`
}
