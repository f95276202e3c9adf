package entities

import (
	"time"

	"github.com/google/uuid"

	"live-session-service/constant"
)

type LiveSession struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	JanusSessionId int64      `json:"janus_session_id" gorm:"type:bigint;not null"`
	JanusHandleId  int64      `json:"janus_handle_id" gorm:"type:bigint;not null"`
	RoomId         int64      `json:"room_id" gorm:"type:bigint;not null;uniqueIndex:unique_room_id"`
	InstructorId   uuid.UUID  `json:"instructor_id" gorm:"type:uuid;not null;index:idx_live_sessions_instructor_id"`
	BatchId        uuid.UUID  `json:"batch_id" gorm:"type:uuid;not null;index:idx_live_sessions_batch_id"`
	Status         string     `json:"status" gorm:"type:varchar(20);not null;default:'PUBLISHED';index:idx_live_sessions_status"`
	Title          *string    `json:"title" gorm:"type:varchar(255)"`
	Description    *string    `json:"description" gorm:"type:text"`
	StartedAt      *time.Time `json:"started_at"`
	EndedAt        *time.Time `json:"ended_at"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null"`
	UpdatedAt      time.Time  `json:"updated_at" gorm:"not null"`

	RecordingStatus      string  `json:"recording_status" gorm:"type:varchar(20);not null;default:'NOT_STARTED'"`
	FinalVideoObjectName *string `json:"final_video_object_name" gorm:"type:varchar(500)"`
	RecordingDuration    *int    `json:"recording_duration" gorm:"type:integer"`
	TotalChunks          int     `json:"total_chunks" gorm:"type:integer;default:0"`
}

func (LiveSession) TableName() string {
	return "live_sessions"
}

func (s *LiveSession) IsPublished() bool {
	return s.Status == constant.LiveStatusPublished.String()
}
