package services

import "github.com/mrlokans/catalogimport/internal/entities"

// JobStore persists import job progress.
// Implemented by database/progress.Repository.
type JobStore interface {
	CreatePending(jobID string, opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error)
	CompleteImport(p entities.ImportProgress) error
	GetProgress(jobID string) (*entities.ImportProgress, error)
	ListRecent(limit int) ([]entities.ImportProgress, error)
	IsImportRunning() (bool, error)
}

// JobQueue hands a job to background workers.
// Implemented by tasks.Client.
type JobQueue interface {
	EnqueueImport(jobID string, opts entities.ImportOptions, sources []entities.Source) error
}
