package service

import (
	"time"

	"updown/internal/models"
)

// EffectiveStatus is the single place where "is this room over" is decided: a
// stored started room whose end time has passed reports completed even though
// the persisted row still says started (the reconciler settles it later).
// Every component reads room status through this function; none compares
// timestamps on its own.
func EffectiveStatus(room *models.Room, now time.Time) models.RoomStatus {
	if room == nil {
		return ""
	}
	if room.Status == models.StatusStarted && room.EndsAt != nil && !now.Before(*room.EndsAt) {
		return models.StatusCompleted
	}
	return room.Status
}
