package janus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// The SFU answers publish/subscribe requests with an immediate "ack" and
// delivers the real payload later as an asynchronous event on the session
// channel. The client reconciles the two with a bounded fixed-interval poll
// so callers see a single synchronous round trip.
const (
	eventPollInterval = 500 * time.Millisecond
	maxEventAttempts  = 8
)

// API is the signaling surface the orchestrator depends on.
type API interface {
	CreateSession(ctx context.Context) (int64, error)
	AttachPlugin(ctx context.Context, sessionId int64) (int64, error)
	CreateRoom(ctx context.Context, sessionId, handleId, roomId int64) (*Response, error)
	JoinRoom(ctx context.Context, sessionId, handleId, roomId int64, participantType, displayName string) (*Response, error)
	Publish(ctx context.Context, sessionId, handleId int64, sdpOffer string) (*Response, error)
	Unpublish(ctx context.Context, sessionId, handleId int64) (*Response, error)
	Kick(ctx context.Context, sessionId, handleId, roomId, participantId int64) (*Response, error)
	ListParticipants(ctx context.Context, sessionId, handleId, roomId int64) (*Response, error)
	ConfigureSubscriber(ctx context.Context, sessionId, handleId, roomId, feedId int64) (*Response, error)
	StartSubscriber(ctx context.Context, sessionId, handleId int64, sdpAnswer string) (*Response, error)
	DestroyRoom(ctx context.Context, sessionId, handleId, roomId int64) (*Response, error)
	DestroySession(ctx context.Context, sessionId int64) error
	KeepAlive(ctx context.Context, sessionId int64) (*Response, error)
}

type Client struct {
	baseUrl       string
	adminKey      string
	recordingDir  string
	maxPublishers int
	httpClient    *http.Client
}

func NewClient(baseUrl, adminKey, recordingDir string, maxPublishers int, timeout time.Duration) *Client {
	return &Client{
		baseUrl:       baseUrl,
		adminKey:      adminKey,
		recordingDir:  recordingDir,
		maxPublishers: maxPublishers,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

func newTransaction() string {
	return uuid.NewString()
}

func (c *Client) post(ctx context.Context, path string, req *request) (*Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseUrl+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("signaling transport: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("signaling transport: unexpected status %d: %s", httpResp.StatusCode, raw)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("signaling transport: decode: %w", err)
	}

	return &resp, nil
}

// pollEvent fetches at most one pending event from the session channel.
func (c *Client) pollEvent(ctx context.Context, sessionId int64) (*Response, error) {
	url := fmt.Sprintf("%s/%d?maxev=1", c.baseUrl, sessionId)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("signaling transport: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("signaling transport: unexpected status %d: %s", httpResp.StatusCode, raw)
	}

	var resp Response
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("signaling transport: decode: %w", err)
	}

	return &resp, nil
}

// awaitEvent polls the session channel until it observes an event carrying a
// negotiation blob or an explicit error, whichever comes first. Exhausting
// the attempts returns the acknowledgment unchanged, with no Jsep; callers
// treat that as a recoverable failure.
func (c *Client) awaitEvent(ctx context.Context, sessionId int64, ack *Response) (*Response, error) {
	for attempt := 0; attempt < maxEventAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(eventPollInterval):
		}

		event, err := c.pollEvent(ctx, sessionId)
		if err != nil {
			return nil, err
		}

		if event.Jsep != nil || event.ErrorInfo() != nil {
			return event, nil
		}

		zerolog.Ctx(ctx).Debug().
			Int64("session_id", sessionId).
			Int("attempt", attempt+1).
			Str("janus", event.Janus).
			Msg("no negotiation event yet")
	}

	zerolog.Ctx(ctx).Warn().
		Int64("session_id", sessionId).
		Int("attempts", maxEventAttempts).
		Msg("gave up waiting for negotiation event")

	return ack, nil
}

// message sends a plugin frame and reconciles the two-phase reply pattern.
func (c *Client) message(ctx context.Context, sessionId, handleId int64, body map[string]any, jsep *Jsep) (*Response, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/%d/%d", sessionId, handleId), &request{
		Janus:       "message",
		Transaction: newTransaction(),
		Body:        body,
		Jsep:        jsep,
	})
	if err != nil {
		return nil, err
	}

	if resp.Janus == protocolAck {
		return c.awaitEvent(ctx, sessionId, resp)
	}

	return resp, nil
}

func (c *Client) CreateSession(ctx context.Context) (int64, error) {
	resp, err := c.post(ctx, "", &request{Janus: "create", Transaction: newTransaction()})
	if err != nil {
		return 0, err
	}
	if info := resp.ErrorInfo(); info != nil {
		return 0, fmt.Errorf("create session rejected: %d %s", info.Code, info.Reason)
	}
	if resp.Data == nil {
		return 0, fmt.Errorf("create session: no id in response")
	}

	return resp.Data.Id, nil
}

func (c *Client) AttachPlugin(ctx context.Context, sessionId int64) (int64, error) {
	resp, err := c.post(ctx, fmt.Sprintf("/%d", sessionId), &request{
		Janus:       "attach",
		Transaction: newTransaction(),
		Plugin:      pluginVideoRoom,
	})
	if err != nil {
		return 0, err
	}
	if info := resp.ErrorInfo(); info != nil {
		return 0, fmt.Errorf("attach plugin rejected: %d %s", info.Code, info.Reason)
	}
	if resp.Data == nil {
		return 0, fmt.Errorf("attach plugin: no id in response")
	}

	return resp.Data.Id, nil
}

// CreateRoom configures server-side recording so the SFU itself writes raw
// segment files into the recording directory.
func (c *Client) CreateRoom(ctx context.Context, sessionId, handleId, roomId int64) (*Response, error) {
	body := map[string]any{
		"request":    "create",
		"room":       roomId,
		"permanent":  false,
		"publishers": c.maxPublishers,
		"record":     true,
		"rec_dir":    c.recordingDir,
	}
	if c.adminKey != "" {
		body["admin_key"] = c.adminKey
	}

	return c.message(ctx, sessionId, handleId, body, nil)
}

func (c *Client) JoinRoom(ctx context.Context, sessionId, handleId, roomId int64, participantType, displayName string) (*Response, error) {
	return c.message(ctx, sessionId, handleId, map[string]any{
		"request": "join",
		"room":    roomId,
		"ptype":   participantType,
		"display": displayName,
	}, nil)
}

func (c *Client) Publish(ctx context.Context, sessionId, handleId int64, sdpOffer string) (*Response, error) {
	return c.message(ctx, sessionId, handleId, map[string]any{
		"request": "publish",
		"audio":   true,
		"video":   true,
	}, &Jsep{Type: "offer", Sdp: sdpOffer})
}

func (c *Client) Unpublish(ctx context.Context, sessionId, handleId int64) (*Response, error) {
	return c.message(ctx, sessionId, handleId, map[string]any{
		"request": "unpublish",
	}, nil)
}

func (c *Client) Kick(ctx context.Context, sessionId, handleId, roomId, participantId int64) (*Response, error) {
	return c.message(ctx, sessionId, handleId, map[string]any{
		"request": "kick",
		"room":    roomId,
		"id":      participantId,
	}, nil)
}

func (c *Client) ListParticipants(ctx context.Context, sessionId, handleId, roomId int64) (*Response, error) {
	return c.message(ctx, sessionId, handleId, map[string]any{
		"request": "listparticipants",
		"room":    roomId,
	}, nil)
}

// ConfigureSubscriber joins the handle as a subscriber of the given feed; the
// SFU replies with the negotiation offer, usually via the session channel.
func (c *Client) ConfigureSubscriber(ctx context.Context, sessionId, handleId, roomId, feedId int64) (*Response, error) {
	return c.message(ctx, sessionId, handleId, map[string]any{
		"request": "join",
		"ptype":   "subscriber",
		"room":    roomId,
		"feed":    feedId,
	}, nil)
}

func (c *Client) StartSubscriber(ctx context.Context, sessionId, handleId int64, sdpAnswer string) (*Response, error) {
	return c.message(ctx, sessionId, handleId, map[string]any{
		"request": "start",
	}, &Jsep{Type: "answer", Sdp: sdpAnswer})
}

func (c *Client) DestroyRoom(ctx context.Context, sessionId, handleId, roomId int64) (*Response, error) {
	return c.message(ctx, sessionId, handleId, map[string]any{
		"request": "destroy",
		"room":    roomId,
	}, nil)
}

func (c *Client) DestroySession(ctx context.Context, sessionId int64) error {
	resp, err := c.post(ctx, fmt.Sprintf("/%d", sessionId), &request{
		Janus:       "destroy",
		Transaction: newTransaction(),
	})
	if err != nil {
		return err
	}
	if info := resp.ErrorInfo(); info != nil {
		return fmt.Errorf("destroy session rejected: %d %s", info.Code, info.Reason)
	}

	return nil
}

// KeepAlive returns the raw response; in-protocol rejections are the
// caller's to classify.
func (c *Client) KeepAlive(ctx context.Context, sessionId int64) (*Response, error) {
	return c.post(ctx, fmt.Sprintf("/%d", sessionId), &request{
		Janus:       "keepalive",
		Transaction: newTransaction(),
	})
}
