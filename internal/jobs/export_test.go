package jobs

import (
	"time"

	"github.com/book-expert/events"

	"github.com/book-expert/raster-pipeline/internal/pnm"
)

// SetClockForTest makes event timestamps and IDs deterministic.
func (h *Handler) SetClockForTest(now func() time.Time, newID func() string) {
	h.now = now
	h.newID = newID
}

// DefaultResultKeyForTest exposes defaultResultKey.
func DefaultResultKeyForTest(header *events.EventHeader, imageKey string, variant pnm.Variant) string {
	return defaultResultKey(header, imageKey, variant)
}
