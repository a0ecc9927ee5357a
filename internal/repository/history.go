package repository

import (
	"batchup/internal/db"
	"batchup/internal/model"
)

type HistoryRepository struct{}

func NewHistoryRepository() *HistoryRepository {
	return &HistoryRepository{}
}

func (r *HistoryRepository) Save(s model.JobSummary) error {
	rec := model.JobRecord{
		Kind:       s.Kind,
		JobID:      s.JobID,
		Outcome:    s.Outcome,
		TotalItems: s.TotalItems,
		Completed:  s.Completed,
		Skipped:    s.Skipped,
		Failed:     s.Failed,
		BytesDone:  s.BytesDone,
		DurationMS: s.Duration().Milliseconds(),
		Cancelled:  s.Cancelled,
		ErrMsg:     s.ErrMsg,
		FinishedAt: s.FinishedAt,
	}

	return db.DB.Create(&rec).Error
}

func (r *HistoryRepository) GetRecent(n int) ([]model.JobRecord, error) {
	var records []model.JobRecord
	return records, db.DB.Order("finished_at DESC").Limit(n).Find(&records).Error
}
