package entities

// Backend names a recognition backend
type Backend string

const (
	BackendCloud Backend = "cloud"
	BackendLocal Backend = "local"
)

// VisualSample is a temporary raster capture of a candidate's region
type VisualSample struct {
	Path   string      `json:"path"`
	Region BoundingBox `json:"region"`
}
