package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"utmlens/internal/config"
	"utmlens/internal/crm"
	"utmlens/internal/timeframe"
)

// Scheduler is responsible for running background jobs
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	cfg       *config.Config

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	// Job instances
	retryJob   *CRMRetryJob
	cleanupJob *CleanupJob

	// Tickers for each job type
	retryTicker   *time.Ticker
	cleanupTicker *time.Ticker
}

func NewScheduler(dbManager ConnectionProvider, updater crm.ContactUpdater, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()
	clock := &timeframe.DefaultTimeProvider{}

	s := &Scheduler{
		logger:    logger,
		ctx:       ctx,
		cancel:    cancel,
		enabled:   true,
		isRunning: false,
		cfg:       cfg,
	}

	s.retryJob = NewCRMRetryJob(dbManager, updater, logger, cfg, clock)
	s.cleanupJob = NewCleanupJob(dbManager, logger, cfg, clock)

	return s, nil
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(jobName string, jobFunc func() error) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", jobName))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", jobName),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := jobFunc(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", jobName), slog.Any("error", err))
	}
}

// Start begins all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...")

	s.isRunning = true

	s.startCRMRetryJob()
	s.startCleanupJob()

	s.logger.Info("Background jobs started",
		slog.Bool("enabled", s.enabled),
		slog.Bool("isRunning", s.isRunning))

	return nil
}

func (s *Scheduler) startCRMRetryJob() {
	interval := s.cfg.GetCRMRetryInterval()
	s.logger.Info("Starting CRM retry job", slog.Duration("interval", interval))
	s.retryTicker = time.NewTicker(interval)

	go func() {
		for {
			select {
			case <-s.retryTicker.C:
				s.executeJobSafely("crm_retry", s.retryJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("CRM retry job stopped")
				return
			}
		}
	}()
}

func (s *Scheduler) startCleanupJob() {
	interval := 24 * time.Hour
	s.logger.Info("Starting cleanup job", slog.Duration("interval", interval))
	s.cleanupTicker = time.NewTicker(interval)

	go func() {
		s.logger.Info("Running initial cleanup...")
		s.executeJobSafely("cleanup", s.cleanupJob.Run)

		for {
			select {
			case <-s.cleanupTicker.C:
				s.executeJobSafely("cleanup", s.cleanupJob.Run)
			case <-s.ctx.Done():
				s.logger.Info("Cleanup job stopped")
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	if s.retryTicker != nil {
		s.retryTicker.Stop()
	}
	if s.cleanupTicker != nil {
		s.cleanupTicker.Stop()
	}

	s.cancel()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// RetryFailedSyncs runs the CRM retry job once, outside the ticker.
func (s *Scheduler) RetryFailedSyncs() error {
	if !s.enabled {
		return nil
	}
	return s.retryJob.Run()
}
