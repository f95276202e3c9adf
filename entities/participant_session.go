package entities

import (
	"time"

	"github.com/google/uuid"
)

type ParticipantSession struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	RoomId         int64      `json:"room_id" gorm:"type:bigint;not null;index:idx_participant_sessions_room;uniqueIndex:uniq_active_participant_session,where:active"`
	UserId         uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uniq_active_participant_session,where:active"`
	JanusSessionId int64      `json:"janus_session_id" gorm:"type:bigint;not null"`
	JanusHandleId  int64      `json:"janus_handle_id" gorm:"type:bigint;not null"`
	DisplayName    string     `json:"display_name" gorm:"type:varchar(255);not null"`
	Active         bool       `json:"active" gorm:"not null;default:true"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null"`
	EndedAt        *time.Time `json:"ended_at"`
}

func (ParticipantSession) TableName() string {
	return "participant_sessions"
}
