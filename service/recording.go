package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"live-session-service/config"
	"live-session-service/constant"
	"live-session-service/dto"
	"live-session-service/entities"
	"live-session-service/pkg/rabbitmq"
	"live-session-service/pkg/storage"
	"live-session-service/repository"
)

// Sub-kilobyte uploads are corrupt recorder output, not real chunks.
const minChunkSize = 1024

const entityTypeLiveSession = "live_session"

type RecordingService interface {
	UploadChunk(ctx context.Context, identity dto.Identity, roomId int64, chunkIndex, durationSeconds int, data io.Reader, size int64) (*dto.UploadChunkResponse, error)
	CompleteRecording(ctx context.Context, identity dto.Identity, roomId int64, req dto.CompleteRecordingRequest) (*dto.CompleteRecordingResponse, error)
	RecordingStatus(ctx context.Context, roomId int64) (*dto.RecordingStatusResponse, error)
	MergeCompleted(ctx context.Context, req dto.MergeCompletedRequest) error
	SweepRawCapture(ctx context.Context, session *entities.LiveSession) error
}

type recordingService struct {
	repo      repository.Repository
	store     storage.ObjectStore
	publisher rabbitmq.Publisher
	cfg       *config.Config
}

func NewRecordingService(repo repository.Repository, store storage.ObjectStore, publisher rabbitmq.Publisher, cfg *config.Config) RecordingService {
	return &recordingService{
		repo:      repo,
		store:     store,
		publisher: publisher,
		cfg:       cfg,
	}
}

func chunkObjectName(liveSessionId string, chunkIndex int) string {
	return fmt.Sprintf("live-recordings/%s/chunks/chunk_%04d.webm", liveSessionId, chunkIndex)
}

func (s *recordingService) instructorSession(ctx context.Context, identity dto.Identity, roomId int64) (*entities.LiveSession, error) {
	session, err := s.repo.FindLiveSessionByRoomId(ctx, roomId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %d", ErrNotFound, roomId)
		}
		return nil, errors.Join(ErrInfrastructure, err)
	}
	if session.InstructorId != identity.UserId {
		return nil, fmt.Errorf("%w: only the session's instructor may manage its recording", ErrForbidden)
	}

	return session, nil
}

func (s *recordingService) UploadChunk(ctx context.Context, identity dto.Identity, roomId int64, chunkIndex, durationSeconds int, data io.Reader, size int64) (*dto.UploadChunkResponse, error) {
	session, err := s.instructorSession(ctx, identity, roomId)
	if err != nil {
		return nil, err
	}

	switch session.RecordingStatus {
	case constant.RecordingStatusNotStarted.String(), constant.RecordingStatusRecording.String():
	default:
		return nil, fmt.Errorf("%w: recording is %s", ErrInvalidState, session.RecordingStatus)
	}

	if size < minChunkSize {
		return nil, fmt.Errorf("%w: chunk %d is %d bytes, below the %d byte minimum", ErrDataIntegrity, chunkIndex, size, minChunkSize)
	}

	count, err := s.repo.CountRecordingChunks(ctx, session.ID)
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}
	if int64(chunkIndex) != count {
		return nil, fmt.Errorf("%w: chunk index %d out of sequence, expected %d", ErrDataIntegrity, chunkIndex, count)
	}

	objectName := chunkObjectName(session.ID.String(), chunkIndex)
	if err := s.store.PutObject(ctx, objectName, data, size, "video/webm"); err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	// Metadata only lands after the object-store write succeeded.
	chunk := &entities.RecordingChunk{
		LiveSessionId:   session.ID,
		ChunkIndex:      chunkIndex,
		ObjectName:      objectName,
		FileSize:        &size,
		DurationSeconds: &durationSeconds,
		Status:          string(constant.ChunkStatusUploaded),
		CreatedAt:       time.Now(),
	}
	if err := s.repo.CreateRecordingChunk(ctx, chunk); err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	if session.RecordingStatus == constant.RecordingStatusNotStarted.String() {
		if err := s.repo.UpdateRecordingStatus(ctx, session.ID, constant.RecordingStatusRecording); err != nil {
			return nil, errors.Join(ErrInfrastructure, err)
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("live_session_id", session.ID.String()).
		Int("chunk_index", chunkIndex).
		Int64("size", size).
		Str("object_name", objectName).
		Msg("recording chunk stored")

	return &dto.UploadChunkResponse{
		ChunkIndex: chunkIndex,
		ObjectName: objectName,
	}, nil
}

func (s *recordingService) CompleteRecording(ctx context.Context, identity dto.Identity, roomId int64, req dto.CompleteRecordingRequest) (*dto.CompleteRecordingResponse, error) {
	session, err := s.instructorSession(ctx, identity, roomId)
	if err != nil {
		return nil, err
	}

	if session.RecordingStatus != constant.RecordingStatusRecording.String() {
		return nil, fmt.Errorf("%w: recording is %s, not RECORDING", ErrInvalidState, session.RecordingStatus)
	}

	count, err := s.repo.CountRecordingChunks(ctx, session.ID)
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}
	if int64(req.TotalChunks) != count {
		return nil, fmt.Errorf("%w: declared %d chunks but %d are persisted", ErrDataIntegrity, req.TotalChunks, count)
	}

	now := time.Now()
	job := &entities.Job{
		EntityId:   session.ID,
		EntityType: entityTypeLiveSession,
		Status:     constant.JobStatusPending,
		JobType:    constant.JobTypeRecordingMerge,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateJob(ctx, job); err != nil {
			return err
		}
		return s.repo.UpdateLiveSessionRecording(ctx, session.ID, constant.RecordingStatusProcessing, "", req.TotalDuration, req.TotalChunks)
	})
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	message := dto.RecordingMergeMessage{
		JobId:         job.ID,
		LiveSessionId: session.ID,
	}
	if err := s.publisher.PublishRecordingMerge(ctx, message); err != nil {
		if updateErr := s.repo.UpdateStatusJob(ctx, constant.JobStatusFailed, job.ID); updateErr != nil {
			zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update job status")
		}
		if updateErr := s.repo.UpdateRecordingStatus(ctx, session.ID, constant.RecordingStatusFailed); updateErr != nil {
			zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update recording status")
		}
		return nil, errors.Join(ErrInfrastructure, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("live_session_id", session.ID.String()).
		Str("job_id", job.ID.String()).
		Int("total_chunks", req.TotalChunks).
		Msg("recording merge dispatched")

	return &dto.CompleteRecordingResponse{
		JobId:  job.ID,
		Status: string(constant.RecordingStatusProcessing),
	}, nil
}

func (s *recordingService) RecordingStatus(ctx context.Context, roomId int64) (*dto.RecordingStatusResponse, error) {
	session, err := s.repo.FindLiveSessionByRoomId(ctx, roomId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %d", ErrNotFound, roomId)
		}
		return nil, errors.Join(ErrInfrastructure, err)
	}

	resp := &dto.RecordingStatusResponse{
		RecordingStatus:   session.RecordingStatus,
		TotalChunks:       session.TotalChunks,
		RecordingDuration: session.RecordingDuration,
	}

	if session.RecordingStatus == constant.RecordingStatusCompleted.String() && session.FinalVideoObjectName != nil {
		url, err := s.store.PresignedGetUrl(ctx, *session.FinalVideoObjectName, s.cfg.Recording.UrlExpiry)
		if err != nil {
			return nil, errors.Join(ErrInfrastructure, err)
		}
		resp.PlaybackUrl = &url
	}

	return resp, nil
}

// MergeCompleted records the worker's outcome. The transport layer
// acknowledges the caller regardless of what happens here, so redelivery is
// never provoked by our own persistence problems.
func (s *recordingService) MergeCompleted(ctx context.Context, req dto.MergeCompletedRequest) error {
	status := constant.RecordingStatus(req.Status)
	switch status {
	case constant.RecordingStatusCompleted, constant.RecordingStatusFailed:
	default:
		return fmt.Errorf("%w: unexpected merge outcome %q", ErrDataIntegrity, req.Status)
	}

	jobStatus := constant.JobStatusCompleted
	if status == constant.RecordingStatusFailed {
		jobStatus = constant.JobStatusFailed
	}

	return s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.UpdateStatusJob(ctx, jobStatus, req.JobId); err != nil {
			return err
		}
		if status == constant.RecordingStatusFailed {
			return s.repo.UpdateRecordingStatus(ctx, req.LiveSessionId, status)
		}
		return s.repo.FinalizeLiveSessionRecording(ctx, req.LiveSessionId, req.FinalObjectName, req.DurationSeconds)
	})
}

// SweepRawCapture uploads the SFU's own raw segment file for an ended room
// and dispatches a transcode job for it. Segment files are matched by room id
// in sorted order; the first one carrying a video track wins.
func (s *recordingService) SweepRawCapture(ctx context.Context, session *entities.LiveSession) error {
	dir := s.cfg.Recording.Dir
	entries, err := os.ReadDir(dir)
	if err != nil {
		s.markRecordingFailed(ctx, session.ID)
		return fmt.Errorf("%w: recording directory %s unavailable: %v", ErrDataIntegrity, dir, err)
	}

	roomToken := fmt.Sprintf("-%d-", session.RoomId)
	var videoFile string
	var roomFiles []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.Contains(entry.Name(), roomToken) {
			continue
		}
		roomFiles = append(roomFiles, entry.Name())
		if videoFile == "" && strings.Contains(entry.Name(), "-video") {
			videoFile = entry.Name()
		}
	}

	if videoFile == "" {
		s.markRecordingFailed(ctx, session.ID)
		return fmt.Errorf("%w: no raw video segment for room %d in %s", ErrDataIntegrity, session.RoomId, dir)
	}

	objectName := fmt.Sprintf("live-recordings/%s/raw/%s", session.ID.String(), videoFile)
	if err := s.store.UploadFile(ctx, objectName, filepath.Join(dir, videoFile), "application/octet-stream"); err != nil {
		s.markRecordingFailed(ctx, session.ID)
		return errors.Join(ErrInfrastructure, err)
	}

	now := time.Now()
	job := &entities.Job{
		EntityId:   session.ID,
		EntityType: entityTypeLiveSession,
		Status:     constant.JobStatusPending,
		JobType:    constant.JobTypeTranscoder,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.CreateJob(ctx, job); err != nil {
			return err
		}
		return s.repo.UpdateRecordingStatus(ctx, session.ID, constant.RecordingStatusProcessing)
	})
	if err != nil {
		return errors.Join(ErrInfrastructure, err)
	}

	message := dto.JobMessage{
		JobId:      job.ID,
		ObjectPath: objectName,
		FileName:   videoFile,
	}
	if err := s.publisher.PublishTranscode(ctx, message); err != nil {
		if updateErr := s.repo.UpdateStatusJob(ctx, constant.JobStatusFailed, job.ID); updateErr != nil {
			zerolog.Ctx(ctx).Error().Err(updateErr).Msg("failed to update job status")
		}
		s.markRecordingFailed(ctx, session.ID)
		return errors.Join(ErrInfrastructure, err)
	}

	for _, name := range roomFiles {
		if err := os.Remove(filepath.Join(dir, name)); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Str("file", name).Msg("failed to remove local segment file")
		}
	}

	zerolog.Ctx(ctx).Info().
		Str("live_session_id", session.ID.String()).
		Str("job_id", job.ID.String()).
		Str("object_name", objectName).
		Msg("raw capture dispatched for transcode")

	return nil
}

func (s *recordingService) markRecordingFailed(ctx context.Context, liveSessionId uuid.UUID) {
	if err := s.repo.UpdateRecordingStatus(ctx, liveSessionId, constant.RecordingStatusFailed); err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("failed to update recording status")
	}
}
