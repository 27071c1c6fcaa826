package export

import "context"

// Result identifies a created external document
type Result struct {
	URL        string
	DocumentID string
}

// Exporter creates one external document per call. Callers are responsible
// for not exporting the same report twice.
type Exporter interface {
	Export(ctx context.Context, doc Document) (*Result, error)
	Name() string
}
