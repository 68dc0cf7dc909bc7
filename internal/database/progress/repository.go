// Package progress provides database operations for import job progress.
//
// This package implements the ProgressReporter interface used by the import
// orchestrator. Each job is one row keyed by its job ID; every report
// overwrites the row with the latest snapshot.
//
// # Interface Implementation
//
//	var _ importers.ProgressReporter = (*Repository)(nil)
//
// # Usage
//
//	repo := progress.NewRepository(db)
//	orchestrator.SetProgressReporter(repo)
//	job, err := repo.GetProgress(jobID)
package progress

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/mrlokans/catalogimport/internal/entities"
	"github.com/mrlokans/catalogimport/internal/importers"
)

const (
	staleThreshold = 10 * time.Minute
	interruptedMsg = "import was interrupted"
)

var _ importers.ProgressReporter = (*Repository)(nil)

// Repository handles all import progress database operations.
type Repository struct {
	db *gorm.DB
}

// NewRepository creates a new progress repository.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// CreatePending records a job that has been queued but not started, so that
// its ID resolves before a worker picks it up.
func (r *Repository) CreatePending(jobID string, opts entities.ImportOptions, sources []entities.Source) (*entities.ImportProgress, error) {
	now := time.Now()
	p := entities.ImportProgress{
		JobID:     jobID,
		Sources:   sources,
		Options:   opts,
		Status:    entities.ImportStatusIdle,
		Errors:    []string{},
		StartedAt: now,
		UpdatedAt: now,
	}
	if err := r.db.Create(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// StartImport stores the first snapshot of a job.
// Implements ProgressReporter.StartImport.
func (r *Repository) StartImport(p entities.ImportProgress) error {
	return r.save(p)
}

// UpdateProgress stores an intermediate snapshot.
// Implements ProgressReporter.UpdateProgress.
func (r *Repository) UpdateProgress(p entities.ImportProgress) error {
	return r.save(p)
}

// CompleteImport stores the terminal snapshot.
// Implements ProgressReporter.CompleteImport.
func (r *Repository) CompleteImport(p entities.ImportProgress) error {
	return r.save(p)
}

func (r *Repository) save(p entities.ImportProgress) error {
	p.ID = 0
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "job_id"}},
		UpdateAll: true,
	}).Create(&p).Error
}

// GetProgress retrieves one job's progress.
func (r *Repository) GetProgress(jobID string) (*entities.ImportProgress, error) {
	var p entities.ImportProgress
	if err := r.db.Where("job_id = ?", jobID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListRecent returns the most recently started jobs.
func (r *Repository) ListRecent(limit int) ([]entities.ImportProgress, error) {
	if limit <= 0 {
		limit = 20
	}
	var jobs []entities.ImportProgress
	err := r.db.Order("started_at DESC, id DESC").Limit(limit).Find(&jobs).Error
	return jobs, err
}

// IsImportRunning checks whether any job is pending or importing. A job not
// updated in 10 minutes is considered interrupted and is closed with an error.
func (r *Repository) IsImportRunning() (bool, error) {
	var jobs []entities.ImportProgress
	err := r.db.Where("status IN ?", []entities.ImportStatus{
		entities.ImportStatusIdle,
		entities.ImportStatusImporting,
	}).Find(&jobs).Error
	if err != nil {
		return false, err
	}

	running := false
	threshold := time.Now().Add(-staleThreshold)
	for _, job := range jobs {
		if job.UpdatedAt.Before(threshold) {
			if err := r.markInterrupted(job); err != nil {
				return false, err
			}
			continue
		}
		running = true
	}
	return running, nil
}

func (r *Repository) markInterrupted(job entities.ImportProgress) error {
	now := time.Now()
	processed := job.Processed()
	job.Status = entities.ImportStatusError
	job.Errors = append(job.Errors, interruptedMsg)
	job.Total = processed
	job.CurrentBook = ""
	job.UpdatedAt = now
	job.CompletedAt = &now
	return r.db.Save(&job).Error
}

// IsNotFound reports whether err means the job does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
