// PictureFilters describe user-provided filters to narrow the picture list.
package dto

import "time"

type PictureFilters struct {
	Provider string
	After    time.Time
	Before   time.Time
	Limit    int
	Offset   int
}
