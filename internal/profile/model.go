package profile

import "time"

// Profile is the display metadata a principal keeps about itself.
type Profile struct {
	Name      string    `json:"name"`
	UpdatedAt time.Time `json:"-"`
}
