package dto

import (
	"github.com/google/uuid"

	"live-session-service/constant"
)

// Identity is the resolved caller, extracted from the bearer token by the
// transport layer and passed explicitly into every service call.
type Identity struct {
	UserId      uuid.UUID
	DisplayName string
	Roles       []string
}

func (i Identity) HasRole(role constant.Role) bool {
	for _, r := range i.Roles {
		if r == string(role) {
			return true
		}
	}
	return false
}

type StartLiveRequest struct {
	BatchId     uuid.UUID `json:"batchId" binding:"required"`
	Title       string    `json:"title" binding:"required"`
	Description string    `json:"description"`
}

type StartLiveResponse struct {
	LiveSessionId uuid.UUID `json:"liveSessionId"`
	RoomId        int64     `json:"roomId"`
	Status        string    `json:"status"`
}

type JoinRoomRequest struct {
	ParticipantType string `json:"participantType" binding:"required"`
}

type JoinRoomResponse struct {
	SessionId  int64          `json:"sessionId"`
	HandleId   int64          `json:"handleId"`
	PluginData map[string]any `json:"pluginData,omitempty"`
}

type PublishRequest struct {
	Sdp  string `json:"sdp" binding:"required"`
	Kind string `json:"kind"`
}

type PublishResponse struct {
	SessionId int64  `json:"sessionId"`
	HandleId  int64  `json:"handleId"`
	FeedId    int64  `json:"feedId"`
	SdpAnswer string `json:"sdpAnswer,omitempty"`
}

type UnpublishScreenRequest struct {
	SessionId int64 `json:"sessionId" binding:"required"`
	HandleId  int64 `json:"handleId" binding:"required"`
}

type KickRequest struct {
	ParticipantId int64 `json:"participantId" binding:"required"`
}

type SubscribeRequest struct {
	FeedId int64 `json:"feedId" binding:"required"`
}

type SubscribeResponse struct {
	SessionId int64  `json:"sessionId"`
	HandleId  int64  `json:"handleId"`
	FeedId    int64  `json:"feedId"`
	SdpOffer  string `json:"sdpOffer,omitempty"`
}

type StartSubscriberRequest struct {
	SessionId int64  `json:"sessionId" binding:"required"`
	HandleId  int64  `json:"handleId" binding:"required"`
	Sdp       string `json:"sdp" binding:"required"`
}

type KeepAliveRequest struct {
	SessionId int64 `json:"sessionId" binding:"required"`
}

type ParticipantInfo struct {
	FeedId      int64  `json:"feedId"`
	DisplayName string `json:"displayName"`
	Publisher   bool   `json:"publisher"`
}

type LiveStatusResponse struct {
	LiveSessionId   uuid.UUID `json:"liveSessionId"`
	RoomId          int64     `json:"roomId"`
	Status          string    `json:"status"`
	RecordingStatus string    `json:"recordingStatus"`
	Title           *string   `json:"title,omitempty"`
	Description     *string   `json:"description,omitempty"`
}

type UploadChunkResponse struct {
	ChunkIndex int    `json:"chunkIndex"`
	ObjectName string `json:"objectName"`
}

type CompleteRecordingRequest struct {
	TotalChunks   int `json:"totalChunks"`
	TotalDuration int `json:"totalDuration"`
}

type CompleteRecordingResponse struct {
	JobId  uuid.UUID `json:"jobId"`
	Status string    `json:"status"`
}

type RecordingStatusResponse struct {
	RecordingStatus   string  `json:"recordingStatus"`
	TotalChunks       int     `json:"totalChunks"`
	RecordingDuration *int    `json:"recordingDuration,omitempty"`
	PlaybackUrl       *string `json:"playbackUrl,omitempty"`
}

type MergeCompletedRequest struct {
	LiveSessionId   uuid.UUID `json:"liveSessionId" binding:"required"`
	JobId           uuid.UUID `json:"jobId" binding:"required"`
	Status          string    `json:"status" binding:"required"`
	FinalObjectName string    `json:"finalObjectName"`
	DurationSeconds int       `json:"durationSeconds"`
}

// JobMessage is the transcoding_queue payload the transcode worker consumes.
type JobMessage struct {
	JobId      uuid.UUID `json:"jobId"`
	ObjectPath string    `json:"objectPath"`
	FileName   string    `json:"fileName"`
}

// RecordingMergeMessage is the recording_merge_queue payload the merge
// worker consumes.
type RecordingMergeMessage struct {
	JobId         uuid.UUID `json:"jobId"`
	LiveSessionId uuid.UUID `json:"liveSessionId"`
}
