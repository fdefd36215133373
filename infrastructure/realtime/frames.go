package realtime

import "chat-relay/domain"

type FrameType string

const (
	FrameJoin      FrameType = "join"
	FrameMessage   FrameType = "message"
	FrameLeave     FrameType = "leave"
	FrameConnected FrameType = "connected"
	FrameJoined    FrameType = "joined"
	FrameLeft      FrameType = "left"
	FrameError     FrameType = "error"
)

// InboundFrame is what clients send. Message fields sit at the top level of the frame,
// next to the type and the optional list of people to notify.
type InboundFrame struct {
	Type FrameType `json:"type"`
	domain.Message
	Notify []string `json:"notify,omitempty"`
}

func (f InboundFrame) Command() domain.SubmitMessageCommand {
	return domain.SubmitMessageCommand{Message: f.Message, Recipients: f.Notify}
}

type OutboundFrame struct {
	Type           FrameType             `json:"type"`
	ConnectionID   string                `json:"connection_id,omitempty"`
	ConversationID domain.ConversationID `json:"conversation_id,omitempty"`
	Message        *domain.Message       `json:"message,omitempty"`
	Code           string                `json:"code,omitempty"`
	Error          string                `json:"error,omitempty"`
}

func ErrorFrame(code, message string) OutboundFrame {
	return OutboundFrame{Type: FrameError, Code: code, Error: message}
}
