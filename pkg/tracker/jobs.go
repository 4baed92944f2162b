package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// JobStatus represents the current state of a scrape job
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
	JobStatusCancelled JobStatus = "cancelled"
)

// Job represents an enqueued scrape of one tracked game. The scraping backend
// itself runs elsewhere; jobs here track what the console asked for and what
// the backend's processing records later confirmed.
type Job struct {
	ID           string    `json:"id"`
	GameID       string    `json:"game_id"`
	VenueKey     string    `json:"venue_key"`
	Status       JobStatus `json:"status"`
	StartedAt    time.Time `json:"started_at"`
	CompletedAt  time.Time `json:"completed_at,omitempty"`
	ErrorMessage string    `json:"error_message,omitempty"`

	// Internal fields
	ctx    context.Context
	cancel context.CancelFunc
}

// JobManager manages scrape jobs with per-venue single-flight: one active
// scrape per venue at a time, so the console never double-hits a site.
type JobManager struct {
	jobs    map[string]*Job
	mu      sync.RWMutex
	byVenue map[string]string // venueKey -> jobID for active jobs
}

// NewJobManager creates a new job manager
func NewJobManager() *JobManager {
	return &JobManager{
		jobs:    make(map[string]*Job),
		byVenue: make(map[string]string),
	}
}

// CreateJob creates a new job for a game. If a job is already active for the
// game's venue, that job is returned instead and created is false.
func (m *JobManager) CreateJob(venueKey, gameID string) (job *Job, created bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existingJobID, exists := m.byVenue[venueKey]; exists {
		existing := m.jobs[existingJobID]
		if existing != nil && (existing.Status == JobStatusPending || existing.Status == JobStatusRunning) {
			return existing, false
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	job = &Job{
		ID:        uuid.New().String(),
		GameID:    gameID,
		VenueKey:  venueKey,
		Status:    JobStatusPending,
		StartedAt: time.Now(),
		ctx:       ctx,
		cancel:    cancel,
	}

	m.jobs[job.ID] = job
	m.byVenue[venueKey] = job.ID
	return job, true
}

// GetJob retrieves a job by ID
func (m *JobManager) GetJob(jobID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.jobs[jobID]
}

// GetJobByGame retrieves the active job for a game, if any
func (m *JobManager) GetJobByGame(gameID string) *Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, job := range m.jobs {
		if job.GameID == gameID && (job.Status == JobStatusPending || job.Status == JobStatusRunning) {
			return job
		}
	}
	return nil
}

// IsVenueBusy checks if a job is currently active for a venue
func (m *JobManager) IsVenueBusy(venueKey string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if jobID, exists := m.byVenue[venueKey]; exists {
		job := m.jobs[jobID]
		return job != nil && (job.Status == JobStatusPending || job.Status == JobStatusRunning)
	}
	return false
}

// UpdateStatus updates the status of a job. Terminal statuses release the
// venue for new jobs.
func (m *JobManager) UpdateStatus(jobID string, status JobStatus, errorMsg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		job.Status = status
		if status == JobStatusCompleted || status == JobStatusFailed || status == JobStatusCancelled {
			job.CompletedAt = time.Now()
			delete(m.byVenue, job.VenueKey)
		}
		if errorMsg != "" {
			job.ErrorMessage = errorMsg
		}
	}
}

// CancelJob cancels an active job
func (m *JobManager) CancelJob(jobID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if job, exists := m.jobs[jobID]; exists {
		if job.Status == JobStatusPending || job.Status == JobStatusRunning {
			job.cancel()
			job.Status = JobStatusCancelled
			job.CompletedAt = time.Now()
			delete(m.byVenue, job.VenueKey)
			return true
		}
	}
	return false
}

// CancelAll cancels all active jobs
func (m *JobManager) CancelAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, job := range m.jobs {
		if job.Status == JobStatusPending || job.Status == JobStatusRunning {
			job.cancel()
			job.Status = JobStatusCancelled
			job.CompletedAt = time.Now()
		}
	}
	m.byVenue = make(map[string]string)
}

// ListJobs returns all jobs
func (m *JobManager) ListJobs() []*Job {
	m.mu.RLock()
	defer m.mu.RUnlock()

	jobs := make([]*Job, 0, len(m.jobs))
	for _, job := range m.jobs {
		jobs = append(jobs, job)
	}
	return jobs
}

// GetContext returns the context for a job
func (m *JobManager) GetContext(jobID string) context.Context {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if job, exists := m.jobs[jobID]; exists {
		return job.ctx
	}
	return context.Background()
}
