package jobs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// StaleResetter clears activations that never reached completion.
type StaleResetter interface {
	ResetStaleActivations(cutoff time.Time) (int64, error)
}

// MaintenanceConfig contains configuration for the maintenance job
type MaintenanceConfig struct {
	Schedule          string        // cron schedule, e.g. "*/15 * * * *"
	ScratchDir        string        // directory holding transcription scratch files
	ScratchPrefix     string        // only files with this prefix are swept
	ScratchMaxAge     time.Duration // age after which a scratch file is orphaned
	InterviewDuration time.Duration
	StaleAfter        time.Duration // slack past the interview duration before an activation is stale
}

// MaintenanceJob sweeps orphaned scratch audio and resets dropped sessions.
type MaintenanceJob struct {
	repo   StaleResetter
	config *MaintenanceConfig
	cron   *cron.Cron
	logger *zap.Logger
	now    func() time.Time
}

func NewMaintenanceJob(repo StaleResetter, config *MaintenanceConfig, logger *zap.Logger) *MaintenanceJob {
	if config.ScratchMaxAge <= 0 {
		config.ScratchMaxAge = time.Hour
	}
	if config.StaleAfter <= 0 {
		config.StaleAfter = time.Hour
	}
	return &MaintenanceJob{
		repo:   repo,
		config: config,
		cron:   cron.New(),
		logger: logger,
		now:    time.Now,
	}
}

// Start begins the scheduled maintenance runs
func (j *MaintenanceJob) Start() error {
	if j.config.Schedule == "" {
		j.logger.Info("maintenance schedule empty, skipping scheduler")
		return nil
	}
	_, err := j.cron.AddFunc(j.config.Schedule, j.RunOnce)
	if err != nil {
		return fmt.Errorf("failed to schedule maintenance job: %w", err)
	}
	j.cron.Start()
	j.logger.Info("maintenance job started", zap.String("schedule", j.config.Schedule))
	return nil
}

// Stop waits for a running job to finish
func (j *MaintenanceJob) Stop() {
	if j.cron != nil {
		<-j.cron.Stop().Done()
		j.logger.Info("maintenance job stopped")
	}
}

func (j *MaintenanceJob) RunOnce() {
	if n, err := j.SweepScratch(); err != nil {
		j.logger.Warn("scratch sweep failed", zap.Error(err))
	} else if n > 0 {
		j.logger.Info("removed orphaned scratch files", zap.Int("count", n))
	}
	if n, err := j.ResetStale(); err != nil {
		j.logger.Warn("stale activation reset failed", zap.Error(err))
	} else if n > 0 {
		j.logger.Info("reset stale interview activations", zap.Int64("count", n))
	}
}

// SweepScratch removes scratch files older than ScratchMaxAge and returns how many were removed.
func (j *MaintenanceJob) SweepScratch() (int, error) {
	entries, err := os.ReadDir(j.config.ScratchDir)
	if err != nil {
		return 0, fmt.Errorf("read scratch dir: %w", err)
	}
	cutoff := j.now().Add(-j.config.ScratchMaxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasPrefix(entry.Name(), j.config.ScratchPrefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil || info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(j.config.ScratchDir, entry.Name())
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			j.logger.Warn("failed to remove scratch file", zap.String("path", path), zap.Error(err))
			continue
		}
		removed++
	}
	return removed, nil
}

// ResetStale clears is_active on interviews activated longer ago than duration + StaleAfter.
func (j *MaintenanceJob) ResetStale() (int64, error) {
	cutoff := j.now().Add(-(j.config.InterviewDuration + j.config.StaleAfter))
	return j.repo.ResetStaleActivations(cutoff)
}
