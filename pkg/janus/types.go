package janus

const (
	protocolSuccess = "success"
	protocolAck     = "ack"
	protocolEvent   = "event"
	protocolError   = "error"

	pluginVideoRoom = "janus.plugin.videoroom"
)

// Jsep is the opaque SDP negotiation blob exchanged with the SFU.
type Jsep struct {
	Type string `json:"type"`
	Sdp  string `json:"sdp"`
}

type PluginData struct {
	Plugin string         `json:"plugin"`
	Data   map[string]any `json:"data"`
}

type ErrorData struct {
	Code   int    `json:"code"`
	Reason string `json:"reason"`
}

// Response is the normalized signaling reply. SessionId and Sender are the
// SFU-assigned session and handle the frame relates to; Data carries newly
// assigned ids on create/attach.
type Response struct {
	Janus       string      `json:"janus"`
	Transaction string      `json:"transaction"`
	SessionId   int64       `json:"session_id"`
	Sender      int64       `json:"sender"`
	Data        *idData     `json:"data,omitempty"`
	PluginData  *PluginData `json:"plugindata,omitempty"`
	Jsep        *Jsep       `json:"jsep,omitempty"`
	Error       *ErrorData  `json:"error,omitempty"`
}

type idData struct {
	Id int64 `json:"id"`
}

// ErrorInfo reports an in-protocol rejection, either at the gateway level or
// inside the plugin payload. A nil result means the SFU accepted the frame.
func (r *Response) ErrorInfo() *ErrorData {
	if r == nil {
		return nil
	}
	if r.Janus == protocolError && r.Error != nil {
		return r.Error
	}
	if r.Error != nil {
		return r.Error
	}
	if r.PluginData != nil {
		if reason, ok := r.PluginData.Data["error"].(string); ok {
			code := 0
			if c, ok := r.PluginData.Data["error_code"].(float64); ok {
				code = int(c)
			}
			return &ErrorData{Code: code, Reason: reason}
		}
	}
	return nil
}

// DataValue reads a key out of the plugin payload.
func (r *Response) DataValue(key string) any {
	if r == nil || r.PluginData == nil {
		return nil
	}
	return r.PluginData.Data[key]
}

type request struct {
	Janus       string         `json:"janus"`
	Transaction string         `json:"transaction"`
	Plugin      string         `json:"plugin,omitempty"`
	AdminKey    string         `json:"admin_key,omitempty"`
	Body        map[string]any `json:"body,omitempty"`
	Jsep        *Jsep          `json:"jsep,omitempty"`
}
