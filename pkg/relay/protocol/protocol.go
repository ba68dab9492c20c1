package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Frame kinds accepted on the relay connection. Anything else decodes to
// UnknownFrame so the dispatcher can drop it without tearing the call down.
const (
	KindSetup     = "setup"
	KindPrompt    = "prompt"
	KindInterrupt = "interrupt"
)

type DecodeError struct {
	Message string
	Param   string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Param) == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Param)
}

func badFrame(message, param string) *DecodeError {
	return &DecodeError{Message: message, Param: param}
}

// SetupFrame carries transport negotiation metadata. Informational only: the
// relay acknowledges it without emitting a reply.
type SetupFrame struct {
	Type        string `json:"type"`
	SessionID   string `json:"sessionId,omitempty"`
	CallSID     string `json:"callSid,omitempty"`
	From        string `json:"from,omitempty"`
	To          string `json:"to,omitempty"`
	Direction   string `json:"direction,omitempty"`
	CallerName  string `json:"callerName,omitempty"`
	AccountSID  string `json:"accountSid,omitempty"`
	ForwardedBy string `json:"forwardedBy,omitempty"`
}

// PromptFrame carries one transcribed caller utterance. VoicePrompt may be
// empty; emptiness is a turn-level concern, not a protocol error.
type PromptFrame struct {
	Type        string `json:"type"`
	VoicePrompt string `json:"voicePrompt"`
	Lang        string `json:"lang,omitempty"`
	Last        bool   `json:"last,omitempty"`
}

// InterruptFrame reports that playback of a reply was cut short by new
// caller speech.
type InterruptFrame struct {
	Type                     string `json:"type"`
	UtteranceUntilInterrupt  string `json:"utteranceUntilInterrupt,omitempty"`
	DurationUntilInterruptMS int64  `json:"durationUntilInterruptMs,omitempty"`
}

// UnknownFrame preserves the raw kind of a frame the relay does not handle.
type UnknownFrame struct {
	Type string
}

// DecodeInbound parses one inbound frame into its typed variant. A payload
// that is not a JSON object with a type discriminator is a DecodeError; an
// object with an unhandled discriminator is an UnknownFrame, not an error.
func DecodeInbound(data []byte) (any, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badFrame("invalid json frame", "")
	}
	typ := strings.TrimSpace(envelope.Type)
	if typ == "" {
		return nil, badFrame("missing type", "type")
	}

	switch typ {
	case KindSetup:
		var msg SetupFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid setup frame", "")
		}
		return msg, nil
	case KindPrompt:
		var msg PromptFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid prompt frame", "")
		}
		return msg, nil
	case KindInterrupt:
		var msg InterruptFrame
		if err := json.Unmarshal(data, &msg); err != nil {
			return nil, badFrame("invalid interrupt frame", "")
		}
		return msg, nil
	default:
		return UnknownFrame{Type: typ}, nil
	}
}

// TextFrame is the only outbound frame kind. Each reply is a complete turn,
// so Last is always true, and playback may always be cut short by new caller
// speech, so Interruptible is always true.
type TextFrame struct {
	Type          string `json:"type"`
	Token         string `json:"token"`
	Last          bool   `json:"last"`
	Interruptible bool   `json:"interruptible"`
}

// NewTextFrame builds the outbound reply frame for one completed turn.
func NewTextFrame(token string) TextFrame {
	return TextFrame{
		Type:          "text",
		Token:         token,
		Last:          true,
		Interruptible: true,
	}
}
