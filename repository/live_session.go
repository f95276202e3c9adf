package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"live-session-service/constant"
	"live-session-service/entities"
)

func (r *repo) CreateLiveSession(ctx context.Context, session *entities.LiveSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	return r.conn(ctx).Create(session).Error
}

func (r *repo) FindLiveSessionByRoomId(ctx context.Context, roomId int64) (*entities.LiveSession, error) {
	session := &entities.LiveSession{}
	err := r.conn(ctx).First(session, "room_id = ?", roomId).Error
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *repo) FindPublishedLiveSessionByBatch(ctx context.Context, batchId uuid.UUID) (*entities.LiveSession, error) {
	session := &entities.LiveSession{}
	err := r.conn(ctx).
		Where("batch_id = ? AND status = ?", batchId, constant.LiveStatusPublished).
		First(session).Error
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *repo) RoomIdInUse(ctx context.Context, roomId int64) (bool, error) {
	var count int64
	err := r.conn(ctx).Model(&entities.LiveSession{}).
		Where("room_id = ?", roomId).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *repo) EndLiveSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	return r.conn(ctx).Model(&entities.LiveSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":   constant.LiveStatusEnded,
			"ended_at": endedAt,
		}).Error
}

func (r *repo) UpdateRecordingStatus(ctx context.Context, id uuid.UUID, status constant.RecordingStatus) error {
	return r.conn(ctx).Model(&entities.LiveSession{}).
		Where("id = ?", id).
		Update("recording_status", status).Error
}

// FinalizeLiveSessionRecording stores the merge outcome without touching
// total_chunks, which was fixed when the merge was dispatched.
func (r *repo) FinalizeLiveSessionRecording(ctx context.Context, id uuid.UUID, finalVideoObjectName string, recordingDuration int) error {
	return r.conn(ctx).Model(&entities.LiveSession{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"recording_status":        constant.RecordingStatusCompleted,
			"final_video_object_name": finalVideoObjectName,
			"recording_duration":      recordingDuration,
		}).Error
}

func (r *repo) UpdateLiveSessionRecording(ctx context.Context, id uuid.UUID, status constant.RecordingStatus, finalVideoObjectName string, recordingDuration int, totalChunks int) error {
	updates := map[string]interface{}{
		"recording_status":        status,
		"final_video_object_name": finalVideoObjectName,
		"recording_duration":      recordingDuration,
		"total_chunks":            totalChunks,
	}
	return r.conn(ctx).Model(&entities.LiveSession{}).
		Where("id = ?", id).
		Updates(updates).Error
}
