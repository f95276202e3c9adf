package repository

import (
	"context"

	"github.com/google/uuid"

	"live-session-service/constant"
	"live-session-service/entities"
)

func (r *repo) CreateRecordingChunk(ctx context.Context, chunk *entities.RecordingChunk) error {
	if chunk.ID == uuid.Nil {
		chunk.ID = uuid.New()
	}
	return r.conn(ctx).Create(chunk).Error
}

func (r *repo) CountRecordingChunks(ctx context.Context, liveSessionId uuid.UUID) (int64, error) {
	var count int64
	err := r.conn(ctx).Model(&entities.RecordingChunk{}).
		Where("live_session_id = ?", liveSessionId).
		Count(&count).Error
	if err != nil {
		return 0, err
	}

	return count, nil
}

func (r *repo) GetRecordingChunksByLiveSessionId(ctx context.Context, liveSessionId uuid.UUID) ([]*entities.RecordingChunk, error) {
	var chunks []*entities.RecordingChunk
	err := r.conn(ctx).
		Where("live_session_id = ?", liveSessionId).
		Order("chunk_index ASC").
		Find(&chunks).Error
	if err != nil {
		return nil, err
	}

	return chunks, nil
}

func (r *repo) CreateJob(ctx context.Context, job *entities.Job) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	return r.conn(ctx).Create(job).Error
}

func (r *repo) UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error {
	return r.conn(ctx).Model(&entities.Job{}).
		Where("id = ?", id).
		Update("status", status).Error
}
