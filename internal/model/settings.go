package model

import "time"

// Settings is the single administrator settings document.
type Settings struct {
	AvailableTimes     []string  `json:"availableTimes"`
	EmailNotifications bool      `json:"emailNotifications"`
	UpdatedAt          time.Time `json:"updatedAt"`
}
