package service

import (
	"errors"
	"fmt"

	"live-session-service/pkg/janus"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrForbidden      = errors.New("forbidden")
	ErrInvalidState   = errors.New("invalid state")
	ErrDataIntegrity  = errors.New("data integrity")
	ErrInfrastructure = errors.New("infrastructure")
)

// SignalingError carries the SFU's own rejection code and reason verbatim;
// it is the only error class with a user-facing explanation from the SFU.
type SignalingError struct {
	Code   int
	Reason string
}

func (e *SignalingError) Error() string {
	return fmt.Sprintf("signaling error %d: %s", e.Code, e.Reason)
}

// signalingResult classifies a signaling round trip: transport failures
// become infrastructure errors, in-protocol rejections become
// SignalingErrors, anything else passes through.
func signalingResult(resp *janus.Response, err error) (*janus.Response, error) {
	if err != nil {
		return nil, errors.Join(ErrInfrastructure, err)
	}
	if info := resp.ErrorInfo(); info != nil {
		return nil, &SignalingError{Code: info.Code, Reason: info.Reason}
	}
	return resp, nil
}
