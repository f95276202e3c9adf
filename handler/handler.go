package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"live-session-service/constant"
	"live-session-service/dto"
	"live-session-service/service"
)

type Handler struct {
	live      service.LiveService
	recording service.RecordingService
}

func NewHandler(live service.LiveService, recording service.RecordingService) *Handler {
	return &Handler{
		live:      live,
		recording: recording,
	}
}

func (h *Handler) Register(r gin.IRouter, jwtSecret string) {
	api := r.Group("/api/live", AuthMiddleware(jwtSecret))
	api.POST("/start", h.StartLive)
	api.POST("/keepalive", h.KeepAlive)
	api.POST("/subscriber/start", h.StartSubscriber)
	api.POST("/screen/unpublish", h.UnpublishScreen)
	api.POST("/:roomId/join", h.Join)
	api.POST("/:roomId/publish", h.PublishCamera)
	api.POST("/:roomId/screen/publish", h.PublishScreen)
	api.POST("/:roomId/unpublish", h.UnpublishCamera)
	api.POST("/:roomId/kick", h.Kick)
	api.GET("/:roomId/participants", h.ListParticipants)
	api.POST("/:roomId/subscribe", h.Subscribe)
	api.POST("/:roomId/end", h.End)
	api.GET("/:roomId", h.Status)
	api.POST("/:roomId/chunks", h.UploadChunk)
	api.POST("/:roomId/recording/complete", h.CompleteRecording)
	api.GET("/:roomId/recording", h.RecordingStatus)

	r.POST("/internal/recordings/complete", h.MergeCompleted)
}

func writeError(c *gin.Context, err error) {
	var sigErr *service.SignalingError
	switch {
	case errors.As(err, &sigErr):
		c.JSON(http.StatusBadGateway, gin.H{"error": sigErr.Reason, "errorCode": sigErr.Code})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidState):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrDataIntegrity):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	default:
		zerolog.Ctx(c.Request.Context()).Error().Err(err).Msg("internal error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func roomIdParam(c *gin.Context) (int64, bool) {
	roomId, err := strconv.ParseInt(c.Param("roomId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return 0, false
	}
	return roomId, true
}

func (h *Handler) StartLive(c *gin.Context) {
	var req dto.StartLiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.live.Start(c.Request.Context(), identityFrom(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) Join(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}
	var req dto.JoinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.live.Join(c.Request.Context(), identityFrom(c), roomId, constant.ParticipantType(req.ParticipantType))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) PublishCamera(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.live.PublishCamera(c.Request.Context(), identityFrom(c), roomId, req.Sdp, constant.FeedKind(req.Kind))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) PublishScreen(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}
	var req dto.PublishRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.live.PublishScreen(c.Request.Context(), identityFrom(c), roomId, req.Sdp)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UnpublishCamera(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}

	if err := h.live.UnpublishCamera(c.Request.Context(), identityFrom(c), roomId); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) UnpublishScreen(c *gin.Context) {
	var req dto.UnpublishScreenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	roomId, err := strconv.ParseInt(c.Query("roomId"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid room id"})
		return
	}

	if err := h.live.UnpublishScreen(c.Request.Context(), identityFrom(c), roomId, req.SessionId, req.HandleId); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Kick(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}
	var req dto.KickRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.live.Kick(c.Request.Context(), identityFrom(c), roomId, req.ParticipantId); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) ListParticipants(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}

	var excludeFeedId *int64
	if raw := c.Query("excludeFeedId"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid excludeFeedId"})
			return
		}
		excludeFeedId = &parsed
	}

	participants, err := h.live.ListParticipants(c.Request.Context(), identityFrom(c), roomId, excludeFeedId)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"participants": participants})
}

func (h *Handler) Subscribe(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}
	var req dto.SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.live.Subscribe(c.Request.Context(), identityFrom(c), roomId, req.FeedId)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) StartSubscriber(c *gin.Context) {
	var req dto.StartSubscriberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.live.StartSubscriber(c.Request.Context(), req); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) KeepAlive(c *gin.Context) {
	var req dto.KeepAliveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.live.KeepAlive(c.Request.Context(), req.SessionId); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) End(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}

	if err := h.live.End(c.Request.Context(), identityFrom(c), roomId); err != nil {
		writeError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) Status(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}

	resp, err := h.live.Status(c.Request.Context(), roomId)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) UploadChunk(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}

	chunkIndex, err := strconv.Atoi(c.PostForm("chunkIndex"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chunk index"})
		return
	}
	durationSeconds, _ := strconv.Atoi(c.PostForm("durationSeconds"))

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "chunk file required"})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	defer file.Close()

	resp, err := h.recording.UploadChunk(c.Request.Context(), identityFrom(c), roomId, chunkIndex, durationSeconds, file, fileHeader.Size)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

func (h *Handler) CompleteRecording(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}
	var req dto.CompleteRecordingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	resp, err := h.recording.CompleteRecording(c.Request.Context(), identityFrom(c), roomId, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

func (h *Handler) RecordingStatus(c *gin.Context) {
	roomId, ok := roomIdParam(c)
	if !ok {
		return
	}

	resp, err := h.recording.RecordingStatus(c.Request.Context(), roomId)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MergeCompleted acknowledges the worker unconditionally: a redelivered
// completion cannot be reprocessed without duplicate side effects, so
// internal failures are logged rather than surfaced.
func (h *Handler) MergeCompleted(c *gin.Context) {
	var req dto.MergeCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.recording.MergeCompleted(c.Request.Context(), req); err != nil {
		zerolog.Ctx(c.Request.Context()).Error().Err(err).
			Str("job_id", req.JobId.String()).
			Str("live_session_id", req.LiveSessionId.String()).
			Msg("failed to record merge completion")
	}

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
