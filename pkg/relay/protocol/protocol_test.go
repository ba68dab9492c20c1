package protocol

import (
	"encoding/json"
	"testing"
)

func TestDecodeInbound_Setup(t *testing.T) {
	raw := []byte(`{
		"type":"setup",
		"sessionId":"VX1234",
		"callSid":"CA5678",
		"from":"+15550100",
		"to":"+15550199",
		"direction":"inbound"
	}`)

	msg, err := DecodeInbound(raw)
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	setup, ok := msg.(SetupFrame)
	if !ok {
		t.Fatalf("decoded type = %T, want SetupFrame", msg)
	}
	if setup.CallSID != "CA5678" {
		t.Fatalf("callSid=%q", setup.CallSID)
	}
	if setup.From != "+15550100" {
		t.Fatalf("from=%q", setup.From)
	}
}

func TestDecodeInbound_Prompt(t *testing.T) {
	raw := []byte(`{"type":"prompt","voicePrompt":"What time is the keynote?","lang":"en-US","last":true}`)

	msg, err := DecodeInbound(raw)
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	prompt, ok := msg.(PromptFrame)
	if !ok {
		t.Fatalf("decoded type = %T, want PromptFrame", msg)
	}
	if prompt.VoicePrompt != "What time is the keynote?" {
		t.Fatalf("voicePrompt=%q", prompt.VoicePrompt)
	}
}

func TestDecodeInbound_PromptEmptyUtteranceIsValid(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"prompt","voicePrompt":""}`))
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	if _, ok := msg.(PromptFrame); !ok {
		t.Fatalf("decoded type = %T, want PromptFrame", msg)
	}
}

func TestDecodeInbound_Interrupt(t *testing.T) {
	raw := []byte(`{"type":"interrupt","utteranceUntilInterrupt":"The keynote is","durationUntilInterruptMs":820}`)

	msg, err := DecodeInbound(raw)
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	intr, ok := msg.(InterruptFrame)
	if !ok {
		t.Fatalf("decoded type = %T, want InterruptFrame", msg)
	}
	if intr.DurationUntilInterruptMS != 820 {
		t.Fatalf("durationUntilInterruptMs=%d", intr.DurationUntilInterruptMS)
	}
}

func TestDecodeInbound_UnknownKindIsNotAnError(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"type":"dtmf","digit":"5"}`))
	if err != nil {
		t.Fatalf("DecodeInbound() error = %v", err)
	}
	unknown, ok := msg.(UnknownFrame)
	if !ok {
		t.Fatalf("decoded type = %T, want UnknownFrame", msg)
	}
	if unknown.Type != "dtmf" {
		t.Fatalf("type=%q", unknown.Type)
	}
}

func TestDecodeInbound_InvalidJSON(t *testing.T) {
	_, err := DecodeInbound([]byte(`not json`))
	if err == nil {
		t.Fatalf("expected error")
	}
	if _, ok := err.(*DecodeError); !ok {
		t.Fatalf("err type = %T", err)
	}
}

func TestDecodeInbound_MissingType(t *testing.T) {
	_, err := DecodeInbound([]byte(`{"voicePrompt":"hello"}`))
	if err == nil {
		t.Fatalf("expected error")
	}
	decErr, ok := err.(*DecodeError)
	if !ok {
		t.Fatalf("err type = %T", err)
	}
	if decErr.Param != "type" {
		t.Fatalf("param=%q", decErr.Param)
	}
}

func TestNewTextFrame(t *testing.T) {
	frame := NewTextFrame("10:30 AM")
	blob, err := json.Marshal(frame)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"text","token":"10:30 AM","last":true,"interruptible":true}`
	if string(blob) != want {
		t.Fatalf("frame=%s, want %s", blob, want)
	}
}
