package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"live-session-service/constant"
	"live-session-service/entities"
)

type Repository interface {
	Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error
	GetDB() *gorm.DB

	CreateLiveSession(ctx context.Context, session *entities.LiveSession) error
	FindLiveSessionByRoomId(ctx context.Context, roomId int64) (*entities.LiveSession, error)
	FindPublishedLiveSessionByBatch(ctx context.Context, batchId uuid.UUID) (*entities.LiveSession, error)
	RoomIdInUse(ctx context.Context, roomId int64) (bool, error)
	EndLiveSession(ctx context.Context, id uuid.UUID, endedAt time.Time) error
	UpdateRecordingStatus(ctx context.Context, id uuid.UUID, status constant.RecordingStatus) error
	UpdateLiveSessionRecording(ctx context.Context, id uuid.UUID, status constant.RecordingStatus, finalVideoObjectName string, recordingDuration int, totalChunks int) error
	FinalizeLiveSessionRecording(ctx context.Context, id uuid.UUID, finalVideoObjectName string, recordingDuration int) error

	FindActiveParticipantSession(ctx context.Context, userId uuid.UUID, roomId int64) (*entities.ParticipantSession, error)
	CreateParticipantSession(ctx context.Context, session *entities.ParticipantSession) error
	DeactivateParticipantSession(ctx context.Context, userId uuid.UUID, roomId int64) error
	DeactivateAllParticipantSessions(ctx context.Context, roomId int64) error

	FindActiveFeed(ctx context.Context, userId uuid.UUID, roomId int64, kind constant.FeedKind) (*entities.ParticipantFeed, error)
	FindActiveFeedByFeedId(ctx context.Context, roomId, feedId int64) (*entities.ParticipantFeed, error)
	RecordFeed(ctx context.Context, feed *entities.ParticipantFeed) error
	DeactivateFeedByHandle(ctx context.Context, janusSessionId, janusHandleId int64) error
	DeactivateUserFeeds(ctx context.Context, userId uuid.UUID, roomId int64) error
	DeactivateAllFeeds(ctx context.Context, roomId int64) error
	ActiveFeedIds(ctx context.Context, roomId int64, excludeUser *uuid.UUID) ([]int64, error)

	CreateRecordingChunk(ctx context.Context, chunk *entities.RecordingChunk) error
	CountRecordingChunks(ctx context.Context, liveSessionId uuid.UUID) (int64, error)
	GetRecordingChunksByLiveSessionId(ctx context.Context, liveSessionId uuid.UUID) ([]*entities.RecordingChunk, error)

	CreateJob(ctx context.Context, job *entities.Job) error
	UpdateStatusJob(ctx context.Context, status constant.JobStatus, id uuid.UUID) error
}

type repo struct {
	db *gorm.DB
}

func NewRepo(db *sql.DB) Repository {
	gormDB, _ := gorm.Open(postgres.New(postgres.Config{
		Conn: db}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Warn),
		},
	)
	return &repo{
		db: gormDB,
	}
}

// NewRepoWithDB wraps an already opened gorm connection.
func NewRepoWithDB(db *gorm.DB) Repository {
	return &repo{
		db: db,
	}
}

func (r *repo) GetDB() *gorm.DB {
	return r.db
}

type txKey struct{}

// conn returns the transaction bound to the context when one is open,
// otherwise the root connection.
func (r *repo) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(txKey{}).(*gorm.DB); ok {
		return tx
	}
	return r.db.WithContext(ctx)
}

func (r *repo) Transaction(ctx context.Context, callback func(ctx context.Context) error, opts ...*sql.TxOptions) error {
	return r.conn(ctx).Transaction(func(tx *gorm.DB) error {
		return callback(context.WithValue(ctx, txKey{}, tx))
	}, opts...)
}
