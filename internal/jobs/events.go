package jobs

import (
	"github.com/book-expert/events"

	"github.com/book-expert/raster-pipeline/internal/pipeline"
)

// ImageRequestedEvent asks the worker to run a pipeline on an image stored in
// the source object store.
type ImageRequestedEvent struct {
	Header events.EventHeader `json:"header"`
	// ImageKey names the source object. A ".zst" suffix marks zstd framing.
	ImageKey string `json:"image_key"`
	// ResultKey names the result object; empty means
	// "<tenant>/<workflow>/<base>.<ext>".
	ResultKey string `json:"result_key,omitempty"`
	// ExpectFamily is "pbm", "pgm", "ppm" or empty for any.
	ExpectFamily string          `json:"expect_family,omitempty"`
	Steps        []pipeline.Step `json:"steps"`
	// Output is a variant name such as "pgm-binary" or "P1"; empty keeps the
	// input variant.
	Output   string `json:"output,omitempty"`
	MaxValue int    `json:"max_value,omitempty"`
}

// ImageProcessedEvent announces a stored result.
type ImageProcessedEvent struct {
	Header    events.EventHeader `json:"header"`
	SourceKey string             `json:"source_key"`
	ResultKey string             `json:"result_key"`
	Variant   string             `json:"variant"`
	Width     int                `json:"width"`
	Height    int                `json:"height"`
}
