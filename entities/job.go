package entities

import (
	"time"

	"github.com/google/uuid"

	"live-session-service/constant"
)

type Job struct {
	ID         uuid.UUID          `json:"id" gorm:"type:uuid;primary_key"`
	EntityId   uuid.UUID          `json:"entity_id" gorm:"type:uuid;not null;index:idx_jobs_entity_id"`
	EntityType string             `json:"entity_type" gorm:"type:varchar(50);not null"`
	Status     constant.JobStatus `json:"status" gorm:"type:varchar(20);not null"`
	JobType    constant.JobType   `json:"job_type" gorm:"type:varchar(50);not null"`
	CreatedAt  time.Time          `json:"created_at" gorm:"not null"`
	UpdatedAt  time.Time          `json:"updated_at" gorm:"not null"`
}

func (Job) TableName() string {
	return "jobs"
}
