package infrastructure

import (
	"fmt"

	"github.com/yourusername/sonic-extract-go/internal/domain"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// SQLiteHistoryRepository implements HistoryRepository using SQLite
type SQLiteHistoryRepository struct {
	db *gorm.DB
}

// NewSQLiteHistoryRepository creates a new SQLite history repository
func NewSQLiteHistoryRepository(dbPath string) (*SQLiteHistoryRepository, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&domain.TaskRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &SQLiteHistoryRepository{db: db}, nil
}

// RecordTerminal stores the summary of a terminal task. Re-recording the
// same task id overwrites the previous summary, which keeps recording
// idempotent for retried writes.
func (r *SQLiteHistoryRepository) RecordTerminal(record *domain.TaskRecord) error {
	return r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(record).Error
}

// FindByID finds a record by task id
func (r *SQLiteHistoryRepository) FindByID(id string) (*domain.TaskRecord, error) {
	var record domain.TaskRecord
	err := r.db.First(&record, "id = ?", id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotFound, id)
		}
		return nil, err
	}
	return &record, nil
}

// FindAll finds records with optional filters, newest first
func (r *SQLiteHistoryRepository) FindAll(filters map[string]interface{}) ([]*domain.TaskRecord, error) {
	var records []*domain.TaskRecord
	query := r.db

	for key, value := range filters {
		query = query.Where(fmt.Sprintf("%s = ?", key), value)
	}

	err := query.Order("finished_at DESC").Find(&records).Error
	return records, err
}

// GetStats returns counts of recorded tasks by outcome
func (r *SQLiteHistoryRepository) GetStats() (*domain.HistoryStats, error) {
	stats := &domain.HistoryStats{}

	if err := r.db.Model(&domain.TaskRecord{}).Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	statusCounts := []struct {
		Status domain.TaskStatus
		Count  int64
	}{}

	if err := r.db.Model(&domain.TaskRecord{}).
		Select("status, count(*) as count").
		Group("status").
		Scan(&statusCounts).Error; err != nil {
		return nil, err
	}

	for _, sc := range statusCounts {
		switch sc.Status {
		case domain.StatusCompleted:
			stats.Completed = sc.Count
		case domain.StatusFailed:
			stats.Failed = sc.Count
		case domain.StatusCancelled:
			stats.Cancelled = sc.Count
		}
	}

	return stats, nil
}

// Close closes the database connection
func (r *SQLiteHistoryRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ domain.HistoryRepository = (*SQLiteHistoryRepository)(nil)
