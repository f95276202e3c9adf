package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"live-session-service/constant"
	"live-session-service/dto"
	"live-session-service/entities"
	"live-session-service/pkg/janus"
	"live-session-service/repository"
)

const roomIdAttempts = 5

type LiveService interface {
	Start(ctx context.Context, identity dto.Identity, req dto.StartLiveRequest) (*dto.StartLiveResponse, error)
	Join(ctx context.Context, identity dto.Identity, roomId int64, participantType constant.ParticipantType) (*dto.JoinRoomResponse, error)
	PublishCamera(ctx context.Context, identity dto.Identity, roomId int64, sdpOffer string, kind constant.FeedKind) (*dto.PublishResponse, error)
	PublishScreen(ctx context.Context, identity dto.Identity, roomId int64, sdpOffer string) (*dto.PublishResponse, error)
	UnpublishCamera(ctx context.Context, identity dto.Identity, roomId int64) error
	UnpublishScreen(ctx context.Context, identity dto.Identity, roomId, sessionId, handleId int64) error
	Kick(ctx context.Context, identity dto.Identity, roomId, participantId int64) error
	ListParticipants(ctx context.Context, identity dto.Identity, roomId int64, excludeFeedId *int64) ([]dto.ParticipantInfo, error)
	Subscribe(ctx context.Context, identity dto.Identity, roomId, feedId int64) (*dto.SubscribeResponse, error)
	StartSubscriber(ctx context.Context, req dto.StartSubscriberRequest) error
	KeepAlive(ctx context.Context, sessionId int64) error
	End(ctx context.Context, identity dto.Identity, roomId int64) error
	Status(ctx context.Context, roomId int64) (*dto.LiveStatusResponse, error)
}

// RawCaptureSweeper locates and dispatches the SFU's server-side raw segment
// files once a room has ended without a chunked client-side capture.
type RawCaptureSweeper interface {
	SweepRawCapture(ctx context.Context, session *entities.LiveSession) error
}

type liveService struct {
	repo      repository.Repository
	signaling janus.API
	sweeper   RawCaptureSweeper
}

func NewLiveService(repo repository.Repository, signaling janus.API, sweeper RawCaptureSweeper) LiveService {
	return &liveService{
		repo:      repo,
		signaling: signaling,
		sweeper:   sweeper,
	}
}

// publishedRoom resolves roomId to its live session and rejects rooms that
// are not currently PUBLISHED, before any signaling call is made.
func (s *liveService) publishedRoom(ctx context.Context, roomId int64) (*entities.LiveSession, error) {
	session, err := s.repo.FindLiveSessionByRoomId(ctx, roomId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %d", ErrNotFound, roomId)
		}
		return nil, errors.Join(ErrInfrastructure, err)
	}
	if !session.IsPublished() {
		return nil, fmt.Errorf("%w: room %d is %s", ErrInvalidState, roomId, session.Status)
	}

	return session, nil
}

func (s *liveService) Start(ctx context.Context, identity dto.Identity, req dto.StartLiveRequest) (*dto.StartLiveResponse, error) {
	if !identity.HasRole(constant.RoleInstructor) {
		return nil, fmt.Errorf("%w: only instructors can start a live session", ErrForbidden)
	}

	_, err := s.repo.FindPublishedLiveSessionByBatch(ctx, req.BatchId)
	if err == nil {
		return nil, fmt.Errorf("%w: batch %s already has a published live session", ErrInvalidState, req.BatchId)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	roomId, err := s.pickRoomId(ctx)
	if err != nil {
		return nil, err
	}

	sessionId, err := s.signaling.CreateSession(ctx)
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	handleId, err := s.signaling.AttachPlugin(ctx, sessionId)
	if err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, errors.Join(ErrInfrastructure, err)
	}

	if _, err := signalingResult(s.signaling.CreateRoom(ctx, sessionId, handleId, roomId)); err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, err
	}

	now := time.Now()
	live := &entities.LiveSession{
		JanusSessionId:  sessionId,
		JanusHandleId:   handleId,
		RoomId:          roomId,
		InstructorId:    identity.UserId,
		BatchId:         req.BatchId,
		Status:          constant.LiveStatusPublished.String(),
		Title:           &req.Title,
		StartedAt:       &now,
		RecordingStatus: constant.RecordingStatusNotStarted.String(),
	}
	if req.Description != "" {
		live.Description = &req.Description
	}

	if err := s.repo.CreateLiveSession(ctx, live); err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, errors.Join(ErrInfrastructure, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("live_session_id", live.ID.String()).
		Int64("room_id", roomId).
		Str("instructor_id", identity.UserId.String()).
		Msg("live session started")

	return &dto.StartLiveResponse{
		LiveSessionId: live.ID,
		RoomId:        roomId,
		Status:        live.Status,
	}, nil
}

// pickRoomId draws from the six-digit space and re-draws on conflict with any
// existing room, bounded so a full id space cannot spin forever.
func (s *liveService) pickRoomId(ctx context.Context) (int64, error) {
	for i := 0; i < roomIdAttempts; i++ {
		roomId := int64(100000 + rand.IntN(900000))
		inUse, err := s.repo.RoomIdInUse(ctx, roomId)
		if err != nil {
			return 0, errors.Join(ErrInfrastructure, err)
		}
		if !inUse {
			return roomId, nil
		}
	}
	return 0, fmt.Errorf("%w: could not allocate an unused room id", ErrInfrastructure)
}

func (s *liveService) destroySessionQuietly(ctx context.Context, sessionId int64) {
	if err := s.signaling.DestroySession(ctx, sessionId); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Int64("session_id", sessionId).Msg("failed to destroy orphaned signaling session")
	}
}

func (s *liveService) Join(ctx context.Context, identity dto.Identity, roomId int64, participantType constant.ParticipantType) (*dto.JoinRoomResponse, error) {
	if !participantType.Valid() {
		return nil, fmt.Errorf("%w: unknown participant type %q", ErrInvalidState, participantType)
	}

	if _, err := s.publishedRoom(ctx, roomId); err != nil {
		return nil, err
	}

	// Rejoin is idempotent: an active registry row wins over minting a
	// second signaling pair for the same user.
	existing, err := s.repo.FindActiveParticipantSession(ctx, identity.UserId, roomId)
	if err == nil {
		return &dto.JoinRoomResponse{
			SessionId: existing.JanusSessionId,
			HandleId:  existing.JanusHandleId,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	sessionId, err := s.signaling.CreateSession(ctx)
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	handleId, err := s.signaling.AttachPlugin(ctx, sessionId)
	if err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, errors.Join(ErrInfrastructure, err)
	}

	resp, err := signalingResult(s.signaling.JoinRoom(ctx, sessionId, handleId, roomId, string(participantType), identity.DisplayName))
	if err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, err
	}

	participant := &entities.ParticipantSession{
		RoomId:         roomId,
		UserId:         identity.UserId,
		JanusSessionId: sessionId,
		JanusHandleId:  handleId,
		DisplayName:    identity.DisplayName,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.CreateParticipantSession(ctx, participant); err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, errors.Join(ErrInfrastructure, err)
	}

	result := &dto.JoinRoomResponse{
		SessionId: sessionId,
		HandleId:  handleId,
	}
	if resp.PluginData != nil {
		result.PluginData = resp.PluginData.Data
	}

	return result, nil
}

func (s *liveService) PublishCamera(ctx context.Context, identity dto.Identity, roomId int64, sdpOffer string, kind constant.FeedKind) (*dto.PublishResponse, error) {
	if kind == "" {
		kind = constant.FeedKindCamera
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown feed kind %q", ErrInvalidState, kind)
	}

	if _, err := s.publishedRoom(ctx, roomId); err != nil {
		return nil, err
	}

	participant, err := s.repo.FindActiveParticipantSession(ctx, identity.UserId, roomId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: user has not joined room %d", ErrInvalidState, roomId)
		}
		return nil, errors.Join(ErrInfrastructure, err)
	}

	resp, err := signalingResult(s.signaling.Publish(ctx, participant.JanusSessionId, participant.JanusHandleId, sdpOffer))
	if err != nil {
		return nil, err
	}
	if resp.Jsep == nil {
		return nil, fmt.Errorf("%w: no negotiation answer from the SFU", ErrInfrastructure)
	}

	feed := &entities.ParticipantFeed{
		RoomId:         roomId,
		UserId:         identity.UserId,
		Kind:           string(kind),
		FeedId:         participant.JanusHandleId,
		JanusSessionId: participant.JanusSessionId,
		JanusHandleId:  participant.JanusHandleId,
		DisplayName:    identity.DisplayName,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.RecordFeed(ctx, feed); err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	return &dto.PublishResponse{
		SessionId: participant.JanusSessionId,
		HandleId:  participant.JanusHandleId,
		FeedId:    feed.FeedId,
		SdpAnswer: resp.Jsep.Sdp,
	}, nil
}

// PublishScreen mints a session+handle pair entirely independent from the
// camera's, so toggling one never perturbs the other.
func (s *liveService) PublishScreen(ctx context.Context, identity dto.Identity, roomId int64, sdpOffer string) (*dto.PublishResponse, error) {
	if _, err := s.publishedRoom(ctx, roomId); err != nil {
		return nil, err
	}

	sessionId, err := s.signaling.CreateSession(ctx)
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	handleId, err := s.signaling.AttachPlugin(ctx, sessionId)
	if err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, errors.Join(ErrInfrastructure, err)
	}

	displayName := identity.DisplayName + " (screen)"
	if _, err := signalingResult(s.signaling.JoinRoom(ctx, sessionId, handleId, roomId, string(constant.ParticipantTypePublisher), displayName)); err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, err
	}

	resp, err := signalingResult(s.signaling.Publish(ctx, sessionId, handleId, sdpOffer))
	if err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, err
	}
	if resp.Jsep == nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, fmt.Errorf("%w: no negotiation answer from the SFU", ErrInfrastructure)
	}

	feed := &entities.ParticipantFeed{
		RoomId:         roomId,
		UserId:         identity.UserId,
		Kind:           string(constant.FeedKindScreen),
		FeedId:         handleId,
		JanusSessionId: sessionId,
		JanusHandleId:  handleId,
		DisplayName:    displayName,
		CreatedAt:      time.Now(),
	}
	if err := s.repo.RecordFeed(ctx, feed); err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	return &dto.PublishResponse{
		SessionId: sessionId,
		HandleId:  handleId,
		FeedId:    feed.FeedId,
		SdpAnswer: resp.Jsep.Sdp,
	}, nil
}

func (s *liveService) UnpublishCamera(ctx context.Context, identity dto.Identity, roomId int64) error {
	if _, err := s.publishedRoom(ctx, roomId); err != nil {
		return err
	}

	feed, err := s.repo.FindActiveFeed(ctx, identity.UserId, roomId, constant.FeedKindCamera)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no active camera feed in room %d", ErrNotFound, roomId)
		}
		return errors.Join(ErrInfrastructure, err)
	}

	if _, err := signalingResult(s.signaling.Unpublish(ctx, feed.JanusSessionId, feed.JanusHandleId)); err != nil {
		return err
	}

	if err := s.repo.DeactivateFeedByHandle(ctx, feed.JanusSessionId, feed.JanusHandleId); err != nil {
		return errors.Join(ErrInfrastructure, err)
	}

	return nil
}

// UnpublishScreen also destroys the screen's dedicated signaling session; the
// camera's primary session is retained for the room's lifetime.
func (s *liveService) UnpublishScreen(ctx context.Context, identity dto.Identity, roomId, sessionId, handleId int64) error {
	feed, err := s.repo.FindActiveFeed(ctx, identity.UserId, roomId, constant.FeedKindScreen)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: no active screen feed in room %d", ErrNotFound, roomId)
		}
		return errors.Join(ErrInfrastructure, err)
	}
	if feed.JanusSessionId != sessionId || feed.JanusHandleId != handleId {
		return fmt.Errorf("%w: screen feed does not belong to the caller", ErrForbidden)
	}

	if _, err := signalingResult(s.signaling.Unpublish(ctx, sessionId, handleId)); err != nil {
		return err
	}

	s.destroySessionQuietly(ctx, sessionId)

	if err := s.repo.DeactivateFeedByHandle(ctx, sessionId, handleId); err != nil {
		return errors.Join(ErrInfrastructure, err)
	}

	return nil
}

func (s *liveService) Kick(ctx context.Context, identity dto.Identity, roomId, participantId int64) error {
	session, err := s.publishedRoom(ctx, roomId)
	if err != nil {
		return err
	}
	if session.InstructorId != identity.UserId {
		return fmt.Errorf("%w: only the room's instructor can kick participants", ErrForbidden)
	}

	if _, err := signalingResult(s.signaling.Kick(ctx, session.JanusSessionId, session.JanusHandleId, roomId, participantId)); err != nil {
		return err
	}

	// The kicked user's registry rows must go inactive, otherwise a rejoin
	// would hand back the now-dead session/handle pair. participantId is the
	// publisher feed id; pure subscribers have no feed row to resolve.
	feed, err := s.repo.FindActiveFeedByFeedId(ctx, roomId, participantId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return errors.Join(ErrInfrastructure, err)
	}

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.DeactivateUserFeeds(ctx, feed.UserId, roomId); err != nil {
			return err
		}
		return s.repo.DeactivateParticipantSession(ctx, feed.UserId, roomId)
	})
	if err != nil {
		return errors.Join(ErrInfrastructure, err)
	}

	zerolog.Ctx(ctx).Info().
		Int64("room_id", roomId).
		Int64("feed_id", participantId).
		Str("user_id", feed.UserId.String()).
		Msg("participant kicked")

	return nil
}

func (s *liveService) ListParticipants(ctx context.Context, identity dto.Identity, roomId int64, excludeFeedId *int64) ([]dto.ParticipantInfo, error) {
	session, err := s.publishedRoom(ctx, roomId)
	if err != nil {
		return nil, err
	}

	resp, err := signalingResult(s.signaling.ListParticipants(ctx, session.JanusSessionId, session.JanusHandleId, roomId))
	if err != nil {
		return nil, err
	}

	raw, _ := resp.DataValue("participants").([]any)
	participants := make([]dto.ParticipantInfo, 0, len(raw))
	for _, entry := range raw {
		fields, ok := entry.(map[string]any)
		if !ok {
			continue
		}
		info := dto.ParticipantInfo{}
		if id, ok := fields["id"].(float64); ok {
			info.FeedId = int64(id)
		}
		if display, ok := fields["display"].(string); ok {
			info.DisplayName = display
		}
		if publisher, ok := fields["publisher"].(bool); ok {
			info.Publisher = publisher
		}
		if excludeFeedId != nil && info.FeedId == *excludeFeedId {
			continue
		}
		participants = append(participants, info)
	}

	return participants, nil
}

func (s *liveService) Subscribe(ctx context.Context, identity dto.Identity, roomId, feedId int64) (*dto.SubscribeResponse, error) {
	if _, err := s.publishedRoom(ctx, roomId); err != nil {
		return nil, err
	}

	// The registry is the source of truth for live feeds; a stale or made-up
	// feed id is rejected before any signaling session is minted.
	feedIds, err := s.repo.ActiveFeedIds(ctx, roomId, nil)
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}
	if !slices.Contains(feedIds, feedId) {
		return nil, fmt.Errorf("%w: feed %d is not active in room %d", ErrNotFound, feedId, roomId)
	}

	sessionId, err := s.signaling.CreateSession(ctx)
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}

	handleId, err := s.signaling.AttachPlugin(ctx, sessionId)
	if err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, errors.Join(ErrInfrastructure, err)
	}

	resp, err := signalingResult(s.signaling.ConfigureSubscriber(ctx, sessionId, handleId, roomId, feedId))
	if err != nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, err
	}
	if resp.Jsep == nil {
		s.destroySessionQuietly(ctx, sessionId)
		return nil, fmt.Errorf("%w: no negotiation offer from the SFU", ErrInfrastructure)
	}

	return &dto.SubscribeResponse{
		SessionId: sessionId,
		HandleId:  handleId,
		FeedId:    feedId,
		SdpOffer:  resp.Jsep.Sdp,
	}, nil
}

func (s *liveService) StartSubscriber(ctx context.Context, req dto.StartSubscriberRequest) error {
	if _, err := signalingResult(s.signaling.StartSubscriber(ctx, req.SessionId, req.HandleId, req.Sdp)); err != nil {
		return err
	}
	return nil
}

func (s *liveService) KeepAlive(ctx context.Context, sessionId int64) error {
	if _, err := signalingResult(s.signaling.KeepAlive(ctx, sessionId)); err != nil {
		return err
	}
	return nil
}

func (s *liveService) End(ctx context.Context, identity dto.Identity, roomId int64) error {
	session, err := s.publishedRoom(ctx, roomId)
	if err != nil {
		return err
	}
	if session.InstructorId != identity.UserId {
		return fmt.Errorf("%w: only the room's instructor can end the session", ErrForbidden)
	}

	if _, err := signalingResult(s.signaling.DestroyRoom(ctx, session.JanusSessionId, session.JanusHandleId, roomId)); err != nil {
		return err
	}
	s.destroySessionQuietly(ctx, session.JanusSessionId)

	err = s.repo.Transaction(ctx, func(ctx context.Context) error {
		if err := s.repo.EndLiveSession(ctx, session.ID, time.Now()); err != nil {
			return err
		}
		if err := s.repo.DeactivateAllFeeds(ctx, roomId); err != nil {
			return err
		}
		return s.repo.DeactivateAllParticipantSessions(ctx, roomId)
	})
	if err != nil {
		return errors.Join(ErrInfrastructure, err)
	}

	zerolog.Ctx(ctx).Info().
		Str("live_session_id", session.ID.String()).
		Int64("room_id", roomId).
		Msg("live session ended")

	// Rooms without a chunked client-side capture may still have raw
	// segment files written by the SFU; sweep failures only mark the
	// recording, never the end itself.
	if s.sweeper != nil && session.RecordingStatus == constant.RecordingStatusNotStarted.String() {
		if err := s.sweeper.SweepRawCapture(ctx, session); err != nil {
			zerolog.Ctx(ctx).Error().Err(err).
				Str("live_session_id", session.ID.String()).
				Msg("raw capture sweep failed")
		}
	}

	return nil
}

func (s *liveService) Status(ctx context.Context, roomId int64) (*dto.LiveStatusResponse, error) {
	session, err := s.repo.FindLiveSessionByRoomId(ctx, roomId)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: room %d", ErrNotFound, roomId)
		}
		return nil, errors.Join(ErrInfrastructure, err)
	}

	return &dto.LiveStatusResponse{
		LiveSessionId:   session.ID,
		RoomId:          session.RoomId,
		Status:          session.Status,
		RecordingStatus: session.RecordingStatus,
		Title:           session.Title,
		Description:     session.Description,
	}, nil
}
