package baziapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FallbackDetail is shown when a failed response carries no usable detail.
const FallbackDetail = "计算失败"

// ErrorKind tags why a call failed.
type ErrorKind int

const (
	// KindTransport: the request never produced a response.
	KindTransport ErrorKind = iota + 1
	// KindServer: the service answered with a non-2xx status.
	KindServer
	// KindDecode: a 2xx response whose body could not be used.
	KindDecode
)

func (k ErrorKind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindServer:
		return "server"
	case KindDecode:
		return "decode"
	default:
		return "unknown"
	}
}

// CallError is returned by every Client method on failure.
// Error() yields only the human-readable reason so callers can embed it
// in their own message.
type CallError struct {
	Kind   ErrorKind
	Op     string // e.g. "POST /api/v1/bazi/calculate"
	Status int    // HTTP status, KindServer only
	Detail string // server-provided detail, KindServer only
	Err    error
}

func (e *CallError) Error() string {
	switch e.Kind {
	case KindServer:
		return e.Detail
	case KindDecode:
		return fmt.Sprintf("decoding response: %v", e.Err)
	default:
		if e.Err == nil {
			return "request failed"
		}
		return e.Err.Error()
	}
}

func (e *CallError) Unwrap() error { return e.Err }

// AsCallError finds a *CallError in err's chain.
func AsCallError(err error) (*CallError, bool) {
	var ce *CallError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// extractDetail pulls the `detail` message out of an error body.
// A string detail is used verbatim; a validation list (objects carrying
// "msg" and optionally "loc") is flattened into one line. Anything else
// falls back to FallbackDetail.
func extractDetail(body []byte) string {
	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return FallbackDetail
	}

	var s string
	if err := json.Unmarshal(envelope.Detail, &s); err == nil {
		if s == "" {
			return FallbackDetail
		}
		return s
	}

	var items []struct {
		Loc []interface{} `json:"loc"`
		Msg string        `json:"msg"`
	}
	if err := json.Unmarshal(envelope.Detail, &items); err == nil {
		var parts []string
		for _, it := range items {
			if it.Msg == "" {
				continue
			}
			if len(it.Loc) > 0 {
				parts = append(parts, fmt.Sprintf("%v: %s", it.Loc[len(it.Loc)-1], it.Msg))
			} else {
				parts = append(parts, it.Msg)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, "; ")
		}
	}
	return FallbackDetail
}
