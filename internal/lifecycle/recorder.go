package lifecycle

import (
	"time"

	"github.com/desertthunder/djq/internal/models"
)

// Recorder receives lifecycle events, typically to export them as metrics.
type Recorder interface {
	Transition(from, to models.Status)
	Reorder(direction models.Direction, moved bool)
	Rejected(operation string, err error)
	StoreFailure(operation string)
	Synced(counts map[models.Status]int, at time.Time)
}

type nopRecorder struct{}

func (nopRecorder) Transition(models.Status, models.Status) {}
func (nopRecorder) Reorder(models.Direction, bool)          {}
func (nopRecorder) Rejected(string, error)                  {}
func (nopRecorder) StoreFailure(string)                     {}
func (nopRecorder) Synced(map[models.Status]int, time.Time) {}
