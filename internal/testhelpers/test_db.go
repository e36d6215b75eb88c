package testhelpers

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"aptiview/interview/internal/models"
)

var (
	openSQLite = func(dsn string) (*gorm.DB, error) {
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Discard})
	}
	migrateSchema = func(db *gorm.DB) error { return db.AutoMigrate(models.All()...) }
)

// SetupTestDB creates an isolated in-memory SQLite database for tests.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := openSQLite(dsn)
	if err != nil {
		panic(fmt.Sprintf("failed to open test database: %v", err))
	}
	if err := migrateSchema(db); err != nil {
		panic(fmt.Sprintf("failed to migrate test database: %v", err))
	}
	// one connection keeps the shared in-memory database alive and avoids sqlite table locks
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
		t.Cleanup(func() { sqlDB.Close() })
	}
	return db
}

// InterviewFixture describes a seeded interview.
type InterviewFixture struct {
	Token           string
	ScheduledAt     time.Time
	IsActive        bool
	EndedAt         *time.Time
	CandidateName   string
	JobTitle        string
	CustomQuestions string
	ResumeURL       string
	ResumeSummary   string
}

// SeedInterview inserts a job, application and interview and returns the interview.
func SeedInterview(t *testing.T, db *gorm.DB, f InterviewFixture) *models.Interview {
	t.Helper()
	if f.CandidateName == "" {
		f.CandidateName = "Test Candidate"
	}
	if f.JobTitle == "" {
		f.JobTitle = "Software Engineer"
	}
	if f.ScheduledAt.IsZero() {
		f.ScheduledAt = time.Now()
	}

	job := models.Job{Title: f.JobTitle, CompanyName: "Acme", Description: "Build reliable services.", CustomQuestions: f.CustomQuestions}
	if err := db.Create(&job).Error; err != nil {
		t.Fatalf("seed job: %v", err)
	}
	app := models.Application{JobID: job.ID, CandidateName: f.CandidateName, ResumeURL: f.ResumeURL, ResumeSummary: f.ResumeSummary}
	if err := db.Create(&app).Error; err != nil {
		t.Fatalf("seed application: %v", err)
	}
	interview := models.Interview{
		ApplicationID: app.ID,
		SessionToken:  f.Token,
		ScheduledAt:   f.ScheduledAt,
		IsActive:      f.IsActive,
		EndedAt:       f.EndedAt,
	}
	if err := db.Create(&interview).Error; err != nil {
		t.Fatalf("seed interview: %v", err)
	}
	interview.Application = app
	interview.Application.Job = job
	return &interview
}
