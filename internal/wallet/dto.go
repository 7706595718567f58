package wallet

import (
	"fmt"

	"github.com/congo-pay/secure_wallet/internal/boundary"
)

// ParamRequest is one parameter slot as sent by the caller.
type ParamRequest struct {
	Type  string `json:"type"`
	Value int64  `json:"value,omitempty"`
	Data  string `json:"data,omitempty"`
	Size  int    `json:"size,omitempty"`
}

// InvokeRequest carries the parameter bundle of a boundary call.
type InvokeRequest struct {
	Params []ParamRequest `json:"params"`
}

// ParamResponse echoes an output slot back to the caller.
type ParamResponse struct {
	Index int    `json:"index"`
	Type  string `json:"type"`
	Value *int64 `json:"value,omitempty"`
	Data  string `json:"data,omitempty"`
	Size  *int   `json:"size,omitempty"`
}

// InvokeResponse is the result of a boundary call.
type InvokeResponse struct {
	Code   string          `json:"code"`
	Params []ParamResponse `json:"params,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// SessionResponse is returned when a session is opened.
type SessionResponse struct {
	SessionID string `json:"session_id"`
	OpenedAt  string `json:"opened_at"`
}

// DecodeBundle converts request slots into a boundary bundle. Output buffers
// are allocated here with the caller-specified capacity, bounded by maxBuffer.
func DecodeBundle(params []ParamRequest, maxBuffer int) (boundary.Bundle, error) {
	var b boundary.Bundle
	if len(params) > boundary.MaxParams {
		return b, boundary.Errorf(boundary.CodeBadParameters, "at most %d parameters allowed, got %d", boundary.MaxParams, len(params))
	}
	for i, p := range params {
		kind, err := boundary.ParseKind(p.Type)
		if err != nil {
			return b, boundary.Wrap(boundary.CodeBadParameters, fmt.Errorf("param %d: %w", i, err))
		}
		slot := boundary.Param{Kind: kind}
		switch {
		case kind.IsValue():
			slot.Value = p.Value
		case kind.IsMemref():
			size := p.Size
			if size < len(p.Data) {
				size = len(p.Data)
			}
			if size < 0 || size > maxBuffer {
				return b, boundary.Errorf(boundary.CodeBadParameters, "param %d: buffer size %d outside [0, %d]", i, size, maxBuffer)
			}
			slot.Buffer = make([]byte, size)
			if kind != boundary.KindMemrefOutput {
				slot.Size = copy(slot.Buffer, p.Data)
			}
		}
		b[i] = slot
	}
	return b, nil
}

// EncodeOutputs returns the output slots of b.
func EncodeOutputs(b boundary.Bundle) []ParamResponse {
	var out []ParamResponse
	for i, p := range b {
		if !p.Kind.IsOutput() {
			continue
		}
		resp := ParamResponse{Index: i, Type: p.Kind.String()}
		if p.Kind.IsValue() {
			v := p.Value
			resp.Value = &v
		} else {
			size := p.Size
			if size > len(p.Buffer) {
				size = len(p.Buffer)
			}
			resp.Data = string(p.Buffer[:size])
			resp.Size = &size
		}
		out = append(out, resp)
	}
	return out
}
