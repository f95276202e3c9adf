package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"live-session-service/constant"
	"live-session-service/dto"
	"live-session-service/entities"
	"live-session-service/pkg/janus"
)

func instructorIdentity() dto.Identity {
	return dto.Identity{
		UserId:      uuid.New(),
		DisplayName: "Alice",
		Roles:       []string{string(constant.RoleInstructor)},
	}
}

func studentIdentity() dto.Identity {
	return dto.Identity{
		UserId:      uuid.New(),
		DisplayName: "Bob",
		Roles:       []string{string(constant.RoleStudent)},
	}
}

func successResponse() *janus.Response {
	return &janus.Response{Janus: "success"}
}

func answerResponse(sdp string) *janus.Response {
	return &janus.Response{Janus: "event", Jsep: &janus.Jsep{Type: "answer", Sdp: sdp}}
}

func publishedSession(instructorId uuid.UUID, roomId int64) *entities.LiveSession {
	return &entities.LiveSession{
		ID:              uuid.New(),
		JanusSessionId:  1000,
		JanusHandleId:   2000,
		RoomId:          roomId,
		InstructorId:    instructorId,
		BatchId:         uuid.New(),
		Status:          constant.LiveStatusPublished.String(),
		RecordingStatus: constant.RecordingStatusNotStarted.String(),
	}
}

func TestStartRejectsNonInstructor(t *testing.T) {
	svc := NewLiveService(new(MockRepository), new(MockSignaling), nil)

	_, err := svc.Start(context.Background(), studentIdentity(), dto.StartLiveRequest{
		BatchId: uuid.New(),
		Title:   "Lecture 1",
	})

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestStartRejectsSecondPublishedSessionForBatch(t *testing.T) {
	repo := new(MockRepository)
	identity := instructorIdentity()
	batchId := uuid.New()
	repo.On("FindPublishedLiveSessionByBatch", mock.Anything, batchId).
		Return(publishedSession(identity.UserId, 123456), nil)

	svc := NewLiveService(repo, new(MockSignaling), nil)

	_, err := svc.Start(context.Background(), identity, dto.StartLiveRequest{
		BatchId: batchId,
		Title:   "Lecture 2",
	})

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestStartCreatesRoomAndPersistsSession(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := instructorIdentity()
	batchId := uuid.New()

	repo.On("FindPublishedLiveSessionByBatch", mock.Anything, batchId).
		Return(nil, gorm.ErrRecordNotFound)
	repo.On("RoomIdInUse", mock.Anything, mock.AnythingOfType("int64")).Return(false, nil)
	signaling.On("CreateSession", mock.Anything).Return(int64(1000), nil)
	signaling.On("AttachPlugin", mock.Anything, int64(1000)).Return(int64(2000), nil)
	signaling.On("CreateRoom", mock.Anything, int64(1000), int64(2000), mock.AnythingOfType("int64")).
		Return(successResponse(), nil)

	var persisted *entities.LiveSession
	repo.On("CreateLiveSession", mock.Anything, mock.AnythingOfType("*entities.LiveSession")).
		Run(func(args mock.Arguments) {
			persisted = args.Get(1).(*entities.LiveSession)
			persisted.ID = uuid.New()
		}).
		Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	resp, err := svc.Start(context.Background(), identity, dto.StartLiveRequest{
		BatchId: batchId,
		Title:   "Lecture 1",
	})

	require.NoError(t, err)
	require.NotNil(t, persisted)
	assert.Equal(t, constant.LiveStatusPublished.String(), resp.Status)
	assert.GreaterOrEqual(t, resp.RoomId, int64(100000))
	assert.Less(t, resp.RoomId, int64(1000000))
	assert.Equal(t, int64(1000), persisted.JanusSessionId)
	assert.Equal(t, int64(2000), persisted.JanusHandleId)
	assert.Equal(t, identity.UserId, persisted.InstructorId)
	assert.NotNil(t, persisted.StartedAt)
}

func TestStartAbortsWithoutPersistingOnSignalingError(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := instructorIdentity()
	batchId := uuid.New()

	repo.On("FindPublishedLiveSessionByBatch", mock.Anything, batchId).
		Return(nil, gorm.ErrRecordNotFound)
	repo.On("RoomIdInUse", mock.Anything, mock.AnythingOfType("int64")).Return(false, nil)
	signaling.On("CreateSession", mock.Anything).Return(int64(1000), nil)
	signaling.On("AttachPlugin", mock.Anything, int64(1000)).Return(int64(2000), nil)
	signaling.On("CreateRoom", mock.Anything, int64(1000), int64(2000), mock.AnythingOfType("int64")).
		Return(&janus.Response{Janus: "error", Error: &janus.ErrorData{Code: 427, Reason: "room exists"}}, nil)
	signaling.On("DestroySession", mock.Anything, int64(1000)).Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	_, err := svc.Start(context.Background(), identity, dto.StartLiveRequest{
		BatchId: batchId,
		Title:   "Lecture 1",
	})

	var sigErr *SignalingError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, 427, sigErr.Code)
	repo.AssertNotCalled(t, "CreateLiveSession", mock.Anything, mock.Anything)
}

func TestJoinReusesActiveParticipantSession(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := studentIdentity()
	live := publishedSession(uuid.New(), 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	repo.On("FindActiveParticipantSession", mock.Anything, identity.UserId, int64(123456)).
		Return(&entities.ParticipantSession{
			JanusSessionId: 3000,
			JanusHandleId:  4000,
			Active:         true,
		}, nil)

	svc := NewLiveService(repo, signaling, nil)

	resp, err := svc.Join(context.Background(), identity, 123456, constant.ParticipantTypeSubscriber)

	require.NoError(t, err)
	assert.Equal(t, int64(3000), resp.SessionId)
	assert.Equal(t, int64(4000), resp.HandleId)
	signaling.AssertNotCalled(t, "CreateSession", mock.Anything)
}

func TestJoinAllocatesFreshPair(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := studentIdentity()
	live := publishedSession(uuid.New(), 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	repo.On("FindActiveParticipantSession", mock.Anything, identity.UserId, int64(123456)).
		Return(nil, gorm.ErrRecordNotFound)
	signaling.On("CreateSession", mock.Anything).Return(int64(3000), nil)
	signaling.On("AttachPlugin", mock.Anything, int64(3000)).Return(int64(4000), nil)
	signaling.On("JoinRoom", mock.Anything, int64(3000), int64(4000), int64(123456), "subscriber", "Bob").
		Return(successResponse(), nil)
	repo.On("CreateParticipantSession", mock.Anything, mock.MatchedBy(func(p *entities.ParticipantSession) bool {
		return p.JanusSessionId == 3000 && p.JanusHandleId == 4000 && p.UserId == identity.UserId
	})).Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	resp, err := svc.Join(context.Background(), identity, 123456, constant.ParticipantTypeSubscriber)

	require.NoError(t, err)
	assert.Equal(t, int64(3000), resp.SessionId)
	assert.Equal(t, int64(4000), resp.HandleId)
}

func TestJoinRejectsEndedRoom(t *testing.T) {
	repo := new(MockRepository)
	live := publishedSession(uuid.New(), 123456)
	live.Status = constant.LiveStatusEnded.String()
	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)

	svc := NewLiveService(repo, new(MockSignaling), nil)

	_, err := svc.Join(context.Background(), studentIdentity(), 123456, constant.ParticipantTypePublisher)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestPublishCameraRecordsFeed(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := instructorIdentity()
	live := publishedSession(identity.UserId, 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	repo.On("FindActiveParticipantSession", mock.Anything, identity.UserId, int64(123456)).
		Return(&entities.ParticipantSession{JanusSessionId: 3000, JanusHandleId: 4000, Active: true}, nil)
	signaling.On("Publish", mock.Anything, int64(3000), int64(4000), "offer-sdp").
		Return(answerResponse("answer-sdp"), nil)
	repo.On("RecordFeed", mock.Anything, mock.MatchedBy(func(f *entities.ParticipantFeed) bool {
		return f.Kind == string(constant.FeedKindCamera) && f.FeedId == 4000 && f.JanusSessionId == 3000
	})).Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	resp, err := svc.PublishCamera(context.Background(), identity, 123456, "offer-sdp", "")

	require.NoError(t, err)
	assert.Equal(t, "answer-sdp", resp.SdpAnswer)
	assert.Equal(t, int64(4000), resp.FeedId)
}

func TestPublishScreenMintsIndependentPair(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := instructorIdentity()
	live := publishedSession(identity.UserId, 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	signaling.On("CreateSession", mock.Anything).Return(int64(5000), nil)
	signaling.On("AttachPlugin", mock.Anything, int64(5000)).Return(int64(6000), nil)
	signaling.On("JoinRoom", mock.Anything, int64(5000), int64(6000), int64(123456), "publisher", "Alice (screen)").
		Return(successResponse(), nil)
	signaling.On("Publish", mock.Anything, int64(5000), int64(6000), "screen-offer").
		Return(answerResponse("screen-answer"), nil)
	repo.On("RecordFeed", mock.Anything, mock.MatchedBy(func(f *entities.ParticipantFeed) bool {
		return f.Kind == string(constant.FeedKindScreen) && f.JanusSessionId == 5000 && f.JanusHandleId == 6000
	})).Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	resp, err := svc.PublishScreen(context.Background(), identity, 123456, "screen-offer")

	require.NoError(t, err)
	assert.Equal(t, int64(5000), resp.SessionId)
	assert.Equal(t, int64(6000), resp.HandleId)
	assert.Equal(t, "screen-answer", resp.SdpAnswer)
}

func TestUnpublishScreenLeavesCameraSessionAlone(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := instructorIdentity()

	repo.On("FindActiveFeed", mock.Anything, identity.UserId, int64(123456), constant.FeedKindScreen).
		Return(&entities.ParticipantFeed{
			JanusSessionId: 5000,
			JanusHandleId:  6000,
			Kind:           string(constant.FeedKindScreen),
			Active:         true,
		}, nil)
	signaling.On("Unpublish", mock.Anything, int64(5000), int64(6000)).Return(successResponse(), nil)
	signaling.On("DestroySession", mock.Anything, int64(5000)).Return(nil)
	repo.On("DeactivateFeedByHandle", mock.Anything, int64(5000), int64(6000)).Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	err := svc.UnpublishScreen(context.Background(), identity, 123456, 5000, 6000)

	require.NoError(t, err)
	// The camera's primary session is never destroyed or deactivated.
	signaling.AssertNumberOfCalls(t, "DestroySession", 1)
	repo.AssertNotCalled(t, "DeactivateUserFeeds", mock.Anything, mock.Anything, mock.Anything)
}

func TestUnpublishScreenRejectsForeignHandle(t *testing.T) {
	repo := new(MockRepository)
	identity := instructorIdentity()

	repo.On("FindActiveFeed", mock.Anything, identity.UserId, int64(123456), constant.FeedKindScreen).
		Return(&entities.ParticipantFeed{JanusSessionId: 5000, JanusHandleId: 6000, Active: true}, nil)

	svc := NewLiveService(repo, new(MockSignaling), nil)

	err := svc.UnpublishScreen(context.Background(), identity, 123456, 7000, 8000)

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestKickDeactivatesKickedUser(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := instructorIdentity()
	live := publishedSession(identity.UserId, 123456)
	kicked := uuid.New()

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	signaling.On("Kick", mock.Anything, int64(1000), int64(2000), int64(123456), int64(4001)).
		Return(successResponse(), nil)
	repo.On("FindActiveFeedByFeedId", mock.Anything, int64(123456), int64(4001)).
		Return(&entities.ParticipantFeed{
			RoomId: 123456,
			UserId: kicked,
			FeedId: 4001,
			Active: true,
		}, nil)
	repo.On("DeactivateUserFeeds", mock.Anything, kicked, int64(123456)).Return(nil)
	repo.On("DeactivateParticipantSession", mock.Anything, kicked, int64(123456)).Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	err := svc.Kick(context.Background(), identity, 123456, 4001)

	require.NoError(t, err)
	// Kicked users must not rejoin into their dead session pair.
	repo.AssertCalled(t, "DeactivateUserFeeds", mock.Anything, kicked, int64(123456))
	repo.AssertCalled(t, "DeactivateParticipantSession", mock.Anything, kicked, int64(123456))
}

func TestKickWithoutFeedRowStillSucceeds(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := instructorIdentity()
	live := publishedSession(identity.UserId, 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	signaling.On("Kick", mock.Anything, int64(1000), int64(2000), int64(123456), int64(9999)).
		Return(successResponse(), nil)
	repo.On("FindActiveFeedByFeedId", mock.Anything, int64(123456), int64(9999)).
		Return(nil, gorm.ErrRecordNotFound)

	svc := NewLiveService(repo, signaling, nil)

	err := svc.Kick(context.Background(), identity, 123456, 9999)

	require.NoError(t, err)
	repo.AssertNotCalled(t, "DeactivateUserFeeds", mock.Anything, mock.Anything, mock.Anything)
}

func TestKickRequiresOwningInstructor(t *testing.T) {
	repo := new(MockRepository)
	live := publishedSession(uuid.New(), 123456)
	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)

	svc := NewLiveService(repo, new(MockSignaling), nil)

	err := svc.Kick(context.Background(), instructorIdentity(), 123456, 42)

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestEndDeactivatesEverything(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := instructorIdentity()
	live := publishedSession(identity.UserId, 123456)
	live.RecordingStatus = constant.RecordingStatusRecording.String()

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	signaling.On("DestroyRoom", mock.Anything, int64(1000), int64(2000), int64(123456)).
		Return(successResponse(), nil)
	signaling.On("DestroySession", mock.Anything, int64(1000)).Return(nil)
	repo.On("EndLiveSession", mock.Anything, live.ID, mock.AnythingOfType("time.Time")).Return(nil)
	repo.On("DeactivateAllFeeds", mock.Anything, int64(123456)).Return(nil)
	repo.On("DeactivateAllParticipantSessions", mock.Anything, int64(123456)).Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	err := svc.End(context.Background(), identity, 123456)

	require.NoError(t, err)
	repo.AssertCalled(t, "EndLiveSession", mock.Anything, live.ID, mock.AnythingOfType("time.Time"))
	repo.AssertCalled(t, "DeactivateAllFeeds", mock.Anything, int64(123456))
	repo.AssertCalled(t, "DeactivateAllParticipantSessions", mock.Anything, int64(123456))
}

func TestEndRejectsAlreadyEndedRoom(t *testing.T) {
	repo := new(MockRepository)
	identity := instructorIdentity()
	live := publishedSession(identity.UserId, 123456)
	live.Status = constant.LiveStatusEnded.String()
	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)

	svc := NewLiveService(repo, new(MockSignaling), nil)

	err := svc.End(context.Background(), identity, 123456)

	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestEndRejectsNonOwner(t *testing.T) {
	repo := new(MockRepository)
	live := publishedSession(uuid.New(), 123456)
	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)

	svc := NewLiveService(repo, new(MockSignaling), nil)

	err := svc.End(context.Background(), instructorIdentity(), 123456)

	assert.ErrorIs(t, err, ErrForbidden)
}

func TestSubscribeReturnsOffer(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	live := publishedSession(uuid.New(), 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	repo.On("ActiveFeedIds", mock.Anything, int64(123456), mock.Anything).Return([]int64{4000}, nil)
	signaling.On("CreateSession", mock.Anything).Return(int64(7000), nil)
	signaling.On("AttachPlugin", mock.Anything, int64(7000)).Return(int64(8000), nil)
	signaling.On("ConfigureSubscriber", mock.Anything, int64(7000), int64(8000), int64(123456), int64(4000)).
		Return(&janus.Response{Janus: "event", Jsep: &janus.Jsep{Type: "offer", Sdp: "offer-sdp"}}, nil)

	svc := NewLiveService(repo, signaling, nil)

	resp, err := svc.Subscribe(context.Background(), studentIdentity(), 123456, 4000)

	require.NoError(t, err)
	assert.Equal(t, "offer-sdp", resp.SdpOffer)
	assert.Equal(t, int64(7000), resp.SessionId)
	assert.Equal(t, int64(8000), resp.HandleId)
}

func TestSubscribeRejectsInactiveFeed(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	live := publishedSession(uuid.New(), 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	repo.On("ActiveFeedIds", mock.Anything, int64(123456), mock.Anything).Return([]int64{4000}, nil)

	svc := NewLiveService(repo, signaling, nil)

	_, err := svc.Subscribe(context.Background(), studentIdentity(), 123456, 9999)

	assert.ErrorIs(t, err, ErrNotFound)
	signaling.AssertNotCalled(t, "CreateSession", mock.Anything)
}

func TestJoinDestroysSessionWhenPersistFails(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	identity := studentIdentity()
	live := publishedSession(uuid.New(), 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	repo.On("FindActiveParticipantSession", mock.Anything, identity.UserId, int64(123456)).
		Return(nil, gorm.ErrRecordNotFound)
	signaling.On("CreateSession", mock.Anything).Return(int64(3000), nil)
	signaling.On("AttachPlugin", mock.Anything, int64(3000)).Return(int64(4000), nil)
	signaling.On("JoinRoom", mock.Anything, int64(3000), int64(4000), int64(123456), "subscriber", "Bob").
		Return(successResponse(), nil)
	repo.On("CreateParticipantSession", mock.Anything, mock.AnythingOfType("*entities.ParticipantSession")).
		Return(assert.AnError)
	signaling.On("DestroySession", mock.Anything, int64(3000)).Return(nil)

	svc := NewLiveService(repo, signaling, nil)

	_, err := svc.Join(context.Background(), identity, 123456, constant.ParticipantTypeSubscriber)

	assert.ErrorIs(t, err, ErrInfrastructure)
	signaling.AssertCalled(t, "DestroySession", mock.Anything, int64(3000))
}

func TestKeepAliveSurfacesRejection(t *testing.T) {
	signaling := new(MockSignaling)
	signaling.On("KeepAlive", mock.Anything, int64(3000)).
		Return(&janus.Response{Janus: "error", Error: &janus.ErrorData{Code: 458, Reason: "no such session"}}, nil)

	svc := NewLiveService(new(MockRepository), signaling, nil)

	err := svc.KeepAlive(context.Background(), 3000)

	var sigErr *SignalingError
	require.ErrorAs(t, err, &sigErr)
	assert.Equal(t, 458, sigErr.Code)
}

func TestListParticipantsFiltersExcludedFeed(t *testing.T) {
	repo := new(MockRepository)
	signaling := new(MockSignaling)
	live := publishedSession(uuid.New(), 123456)

	repo.On("FindLiveSessionByRoomId", mock.Anything, int64(123456)).Return(live, nil)
	signaling.On("ListParticipants", mock.Anything, int64(1000), int64(2000), int64(123456)).
		Return(&janus.Response{
			Janus: "success",
			PluginData: &janus.PluginData{
				Plugin: "janus.plugin.videoroom",
				Data: map[string]any{
					"participants": []any{
						map[string]any{"id": float64(4000), "display": "Alice", "publisher": true},
						map[string]any{"id": float64(6000), "display": "Alice (screen)", "publisher": true},
					},
				},
			},
		}, nil)

	svc := NewLiveService(repo, signaling, nil)

	exclude := int64(4000)
	participants, err := svc.ListParticipants(context.Background(), studentIdentity(), 123456, &exclude)

	require.NoError(t, err)
	require.Len(t, participants, 1)
	assert.Equal(t, int64(6000), participants[0].FeedId)
}
