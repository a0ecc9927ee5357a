package model

import (
	"time"

	"gorm.io/gorm"
)

// JobRecord is the persisted summary of one finished job. Row state is
// never persisted; only the run's outcome survives a restart.
type JobRecord struct {
	gorm.Model
	Kind       JobKind    `gorm:"not null"`
	JobID      string     `gorm:"not null"`
	Outcome    JobOutcome `gorm:"not null"`
	TotalItems int
	Completed  int
	Skipped    int
	Failed     int
	BytesDone  int64
	DurationMS int64
	Cancelled  bool
	ErrMsg     string
	FinishedAt time.Time `gorm:"not null"`
}
