package interfaces

import "cartbot/domain/entities"

// Storage keeps the history of runs
type Storage interface {
	// SaveRun appends a run record
	SaveRun(record entities.RunRecord) error

	// LoadHistory returns every saved run, oldest first
	LoadHistory() ([]entities.RunRecord, error)
}
