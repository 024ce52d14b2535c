package engine

import "encoding/json"

// Kind enumerates the session-relevant signals found in the engine's event
// stream. Everything the session does not care about translates to Ignored.
type Kind int

const (
	Ignored Kind = iota
	Ready
	ResponseStarted
	TranscriptDelta
	TextDelta
	SpeechStopped
	ToolCallStarted
	ToolCallDone
	ResponseDone
	EngineError
)

// Signal is one decoded engine event.
type Signal struct {
	Kind    Kind
	Delta   string // TranscriptDelta, TextDelta
	CallID  string // ToolCallStarted, ToolCallDone
	Name    string // ToolCallStarted
	Args    string // ToolCallDone: accumulated arguments JSON
	Message string // EngineError
}

type rawEvent struct {
	Type      string `json:"type"`
	Delta     string `json:"delta"`
	CallID    string `json:"call_id"`
	Arguments string `json:"arguments"`
	Item      struct {
		Type   string `json:"type"`
		CallID string `json:"call_id"`
		Name   string `json:"name"`
	} `json:"item"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Translate decodes one raw engine frame into a Signal. Unknown event kinds
// and malformed JSON come back as Ignored; neither may break the stream.
// Audio deltas are deliberately ignored: with an external synthesis backend
// the engine's own voice is never played to the caller.
func Translate(data []byte) Signal {
	var ev rawEvent
	if err := json.Unmarshal(data, &ev); err != nil {
		return Signal{Kind: Ignored}
	}

	switch ev.Type {
	case "session.created":
		return Signal{Kind: Ready}
	case "response.created":
		return Signal{Kind: ResponseStarted}
	case "response.audio_transcript.delta", "response.output_audio_transcript.delta":
		return Signal{Kind: TranscriptDelta, Delta: ev.Delta}
	case "response.text.delta", "response.output_text.delta":
		return Signal{Kind: TextDelta, Delta: ev.Delta}
	case "input_audio_buffer.speech_stopped":
		return Signal{Kind: SpeechStopped}
	case "response.output_item.added":
		if ev.Item.Type == "function_call" {
			return Signal{Kind: ToolCallStarted, CallID: ev.Item.CallID, Name: ev.Item.Name}
		}
		return Signal{Kind: Ignored}
	case "response.function_call_arguments.done":
		return Signal{Kind: ToolCallDone, CallID: ev.CallID, Args: ev.Arguments}
	case "response.done":
		return Signal{Kind: ResponseDone}
	case "error":
		return Signal{Kind: EngineError, Message: ev.Error.Message}
	default:
		return Signal{Kind: Ignored}
	}
}
