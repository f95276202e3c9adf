package service

import (
	"context"
	"database/sql"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"

	"live-session-service/constant"
	"live-session-service/dto"
	"live-session-service/entities"
	"live-session-service/pkg/janus"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return callback(ctx)
}

func (m *MockRepository) GetDB() *gorm.DB {
	return nil
}

func (m *MockRepository) CreateLiveSession(ctx context.Context, session *entities.LiveSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRepository) FindLiveSessionByRoomId(ctx context.Context, roomId int64) (*entities.LiveSession, error) {
	args := m.Called(ctx, roomId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LiveSession), args.Error(1)
}

func (m *MockRepository) FindPublishedLiveSessionByBatch(ctx context.Context, batchId uuid.UUID) (*entities.LiveSession, error) {
	args := m.Called(ctx, batchId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.LiveSession), args.Error(1)
}

func (m *MockRepository) RoomIdInUse(ctx context.Context, roomId int64) (bool, error) {
	args := m.Called(ctx, roomId)
	return args.Bool(0), args.Error(1)
}

func (m *MockRepository) EndLiveSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error {
	args := m.Called(ctx, id, endedAt)
	return args.Error(0)
}

func (m *MockRepository) UpdateRecordingStatus(ctx context.Context, id uuid.UUID, status constant.RecordingStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *MockRepository) UpdateLiveSessionRecording(ctx context.Context, id uuid.UUID, status constant.RecordingStatus, finalVideoObjectName string, recordingDuration int, totalChunks int) error {
	args := m.Called(ctx, id, status, finalVideoObjectName, recordingDuration, totalChunks)
	return args.Error(0)
}

func (m *MockRepository) FinalizeLiveSessionRecording(ctx context.Context, id uuid.UUID, finalVideoObjectName string, recordingDuration int) error {
	args := m.Called(ctx, id, finalVideoObjectName, recordingDuration)
	return args.Error(0)
}

func (m *MockRepository) FindActiveParticipantSession(ctx context.Context, userId uuid.UUID, roomId int64) (*entities.ParticipantSession, error) {
	args := m.Called(ctx, userId, roomId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ParticipantSession), args.Error(1)
}

func (m *MockRepository) CreateParticipantSession(ctx context.Context, session *entities.ParticipantSession) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *MockRepository) DeactivateParticipantSession(ctx context.Context, userId uuid.UUID, roomId int64) error {
	args := m.Called(ctx, userId, roomId)
	return args.Error(0)
}

func (m *MockRepository) DeactivateAllParticipantSessions(ctx context.Context, roomId int64) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}

func (m *MockRepository) FindActiveFeed(ctx context.Context, userId uuid.UUID, roomId int64, kind constant.FeedKind) (*entities.ParticipantFeed, error) {
	args := m.Called(ctx, userId, roomId, kind)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ParticipantFeed), args.Error(1)
}

func (m *MockRepository) FindActiveFeedByFeedId(ctx context.Context, roomId, feedId int64) (*entities.ParticipantFeed, error) {
	args := m.Called(ctx, roomId, feedId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entities.ParticipantFeed), args.Error(1)
}

func (m *MockRepository) RecordFeed(ctx context.Context, feed *entities.ParticipantFeed) error {
	args := m.Called(ctx, feed)
	return args.Error(0)
}

func (m *MockRepository) DeactivateFeedByHandle(ctx context.Context, janusSessionId, janusHandleId int64) error {
	args := m.Called(ctx, janusSessionId, janusHandleId)
	return args.Error(0)
}

func (m *MockRepository) DeactivateUserFeeds(ctx context.Context, userId uuid.UUID, roomId int64) error {
	args := m.Called(ctx, userId, roomId)
	return args.Error(0)
}

func (m *MockRepository) DeactivateAllFeeds(ctx context.Context, roomId int64) error {
	args := m.Called(ctx, roomId)
	return args.Error(0)
}

func (m *MockRepository) ActiveFeedIds(ctx context.Context, roomId int64, excludeUser *uuid.UUID) ([]int64, error) {
	args := m.Called(ctx, roomId, excludeUser)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockRepository) CreateRecordingChunk(ctx context.Context, chunk *entities.RecordingChunk) error {
	args := m.Called(ctx, chunk)
	return args.Error(0)
}

func (m *MockRepository) CountRecordingChunks(ctx context.Context, liveSessionId uuid.UUID) (int64, error) {
	args := m.Called(ctx, liveSessionId)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepository) GetRecordingChunksByLiveSessionId(ctx context.Context, liveSessionId uuid.UUID) ([]*entities.RecordingChunk, error) {
	args := m.Called(ctx, liveSessionId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*entities.RecordingChunk), args.Error(1)
}

func (m *MockRepository) CreateJob(ctx context.Context, job *entities.Job) error {
	args := m.Called(ctx, job)
	return args.Error(0)
}

func (m *MockRepository) UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error {
	args := m.Called(ctx, status, id)
	return args.Error(0)
}

type MockSignaling struct {
	mock.Mock
}

func (m *MockSignaling) CreateSession(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSignaling) AttachPlugin(ctx context.Context, sessionId int64) (int64, error) {
	args := m.Called(ctx, sessionId)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSignaling) CreateRoom(ctx context.Context, sessionId, handleId, roomId int64) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId, roomId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) JoinRoom(ctx context.Context, sessionId, handleId, roomId int64, participantType, displayName string) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId, roomId, participantType, displayName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) Publish(ctx context.Context, sessionId, handleId int64, sdpOffer string) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId, sdpOffer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) Unpublish(ctx context.Context, sessionId, handleId int64) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) Kick(ctx context.Context, sessionId, handleId, roomId, participantId int64) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId, roomId, participantId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) ListParticipants(ctx context.Context, sessionId, handleId, roomId int64) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId, roomId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) ConfigureSubscriber(ctx context.Context, sessionId, handleId, roomId, feedId int64) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId, roomId, feedId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) StartSubscriber(ctx context.Context, sessionId, handleId int64, sdpAnswer string) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId, sdpAnswer)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) DestroyRoom(ctx context.Context, sessionId, handleId, roomId int64) (*janus.Response, error) {
	args := m.Called(ctx, sessionId, handleId, roomId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

func (m *MockSignaling) DestroySession(ctx context.Context, sessionId int64) error {
	args := m.Called(ctx, sessionId)
	return args.Error(0)
}

func (m *MockSignaling) KeepAlive(ctx context.Context, sessionId int64) (*janus.Response, error) {
	args := m.Called(ctx, sessionId)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*janus.Response), args.Error(1)
}

type MockObjectStore struct {
	mock.Mock
}

func (m *MockObjectStore) PutObject(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) error {
	args := m.Called(ctx, objectName, size, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) UploadFile(ctx context.Context, objectName, filePath, contentType string) error {
	args := m.Called(ctx, objectName, filePath, contentType)
	return args.Error(0)
}

func (m *MockObjectStore) PresignedGetUrl(ctx context.Context, objectName string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, objectName, expiry)
	return args.String(0), args.Error(1)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishRecordingMerge(ctx context.Context, message dto.RecordingMergeMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

func (m *MockPublisher) PublishTranscode(ctx context.Context, message dto.JobMessage) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}
