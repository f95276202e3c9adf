package entities

import (
	"time"

	"github.com/google/uuid"
)

// FeedId equals the publishing handle id and is the token other
// participants subscribe to.
type ParticipantFeed struct {
	ID             uuid.UUID  `json:"id" gorm:"type:uuid;primary_key"`
	RoomId         int64      `json:"room_id" gorm:"type:bigint;not null;index:idx_participant_feeds_room;uniqueIndex:uniq_active_participant_feed,where:active"`
	UserId         uuid.UUID  `json:"user_id" gorm:"type:uuid;not null;uniqueIndex:uniq_active_participant_feed,where:active"`
	Kind           string     `json:"kind" gorm:"type:varchar(20);not null;uniqueIndex:uniq_active_participant_feed,where:active"`
	FeedId         int64      `json:"feed_id" gorm:"type:bigint;not null"`
	JanusSessionId int64      `json:"janus_session_id" gorm:"type:bigint;not null"`
	JanusHandleId  int64      `json:"janus_handle_id" gorm:"type:bigint;not null"`
	DisplayName    string     `json:"display_name" gorm:"type:varchar(255);not null"`
	Active         bool       `json:"active" gorm:"not null;default:true"`
	CreatedAt      time.Time  `json:"created_at" gorm:"not null"`
	EndedAt        *time.Time `json:"ended_at"`
}

func (ParticipantFeed) TableName() string {
	return "participant_feeds"
}
