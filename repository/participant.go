package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"live-session-service/constant"
	"live-session-service/entities"
)

func (r *repo) FindActiveParticipantSession(ctx context.Context, userId uuid.UUID, roomId int64) (*entities.ParticipantSession, error) {
	session := &entities.ParticipantSession{}
	err := r.conn(ctx).
		Where("user_id = ? AND room_id = ? AND active = ?", userId, roomId, true).
		First(session).Error
	if err != nil {
		return nil, err
	}

	return session, nil
}

func (r *repo) CreateParticipantSession(ctx context.Context, session *entities.ParticipantSession) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	session.Active = true
	return r.conn(ctx).Create(session).Error
}

func (r *repo) DeactivateParticipantSession(ctx context.Context, userId uuid.UUID, roomId int64) error {
	return r.conn(ctx).Model(&entities.ParticipantSession{}).
		Where("user_id = ? AND room_id = ? AND active = ?", userId, roomId, true).
		Updates(map[string]interface{}{
			"active":   false,
			"ended_at": time.Now(),
		}).Error
}

func (r *repo) DeactivateAllParticipantSessions(ctx context.Context, roomId int64) error {
	return r.conn(ctx).Model(&entities.ParticipantSession{}).
		Where("room_id = ? AND active = ?", roomId, true).
		Updates(map[string]interface{}{
			"active":   false,
			"ended_at": time.Now(),
		}).Error
}

func (r *repo) FindActiveFeed(ctx context.Context, userId uuid.UUID, roomId int64, kind constant.FeedKind) (*entities.ParticipantFeed, error) {
	feed := &entities.ParticipantFeed{}
	err := r.conn(ctx).
		Where("user_id = ? AND room_id = ? AND kind = ? AND active = ?", userId, roomId, kind, true).
		First(feed).Error
	if err != nil {
		return nil, err
	}

	return feed, nil
}

func (r *repo) FindActiveFeedByFeedId(ctx context.Context, roomId, feedId int64) (*entities.ParticipantFeed, error) {
	feed := &entities.ParticipantFeed{}
	err := r.conn(ctx).
		Where("room_id = ? AND feed_id = ? AND active = ?", roomId, feedId, true).
		First(feed).Error
	if err != nil {
		return nil, err
	}

	return feed, nil
}

// RecordFeed replaces rather than duplicates: any active feed of the same
// kind for (user, room) is deactivated before the new one is created, inside
// a single transaction.
func (r *repo) RecordFeed(ctx context.Context, feed *entities.ParticipantFeed) error {
	return r.Transaction(ctx, func(ctx context.Context) error {
		err := r.conn(ctx).Model(&entities.ParticipantFeed{}).
			Where("user_id = ? AND room_id = ? AND kind = ? AND active = ?", feed.UserId, feed.RoomId, feed.Kind, true).
			Updates(map[string]interface{}{
				"active":   false,
				"ended_at": time.Now(),
			}).Error
		if err != nil {
			return err
		}

		if feed.ID == uuid.Nil {
			feed.ID = uuid.New()
		}
		feed.Active = true
		return r.conn(ctx).Create(feed).Error
	})
}

func (r *repo) DeactivateFeedByHandle(ctx context.Context, janusSessionId, janusHandleId int64) error {
	return r.conn(ctx).Model(&entities.ParticipantFeed{}).
		Where("janus_session_id = ? AND janus_handle_id = ? AND active = ?", janusSessionId, janusHandleId, true).
		Updates(map[string]interface{}{
			"active":   false,
			"ended_at": time.Now(),
		}).Error
}

func (r *repo) DeactivateUserFeeds(ctx context.Context, userId uuid.UUID, roomId int64) error {
	return r.conn(ctx).Model(&entities.ParticipantFeed{}).
		Where("user_id = ? AND room_id = ? AND active = ?", userId, roomId, true).
		Updates(map[string]interface{}{
			"active":   false,
			"ended_at": time.Now(),
		}).Error
}

func (r *repo) DeactivateAllFeeds(ctx context.Context, roomId int64) error {
	return r.conn(ctx).Model(&entities.ParticipantFeed{}).
		Where("room_id = ? AND active = ?", roomId, true).
		Updates(map[string]interface{}{
			"active":   false,
			"ended_at": time.Now(),
		}).Error
}

func (r *repo) ActiveFeedIds(ctx context.Context, roomId int64, excludeUser *uuid.UUID) ([]int64, error) {
	query := r.conn(ctx).Model(&entities.ParticipantFeed{}).
		Where("room_id = ? AND active = ?", roomId, true)
	if excludeUser != nil {
		query = query.Where("user_id <> ?", *excludeUser)
	}

	var feedIds []int64
	err := query.Pluck("feed_id", &feedIds).Error
	if err != nil {
		return nil, err
	}

	return feedIds, nil
}
