package ocr

import (
	"fmt"

	"cartbot/domain/entities"
	"cartbot/domain/interfaces"
)

// Registry maps recognition backends to recognizers
type Registry struct {
	backends map[entities.Backend]interfaces.Recognizer
}

func NewRegistry() *Registry {
	return &Registry{backends: make(map[entities.Backend]interfaces.Recognizer)}
}

// Register binds rec to backend, replacing any earlier binding
func (r *Registry) Register(backend entities.Backend, rec interfaces.Recognizer) *Registry {
	r.backends[backend] = rec
	return r
}

// Select returns the recognizer bound to backend
func (r *Registry) Select(backend entities.Backend) (interfaces.Recognizer, error) {
	rec, ok := r.backends[backend]
	if !ok {
		return nil, fmt.Errorf("recognition backend %q is not available", backend)
	}
	return rec, nil
}
