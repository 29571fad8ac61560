package rtmpproxy

import "fmt"

type MessageType uint8

const (
	SetChunkSize MessageType = 1 + iota
	AbortMessage
	Acknowledgement
	UserControlMessage
	WindowAcknowledgementSize
	SetPeerBandwidth

	AudioMessage MessageType = 8
	VideoMessage MessageType = 9

	DataMessageAMF3         MessageType = 15
	SharedObjectMessageAMF3 MessageType = 16
	CommandMessageAMF3      MessageType = 17

	DataMessageAMF0         MessageType = 18
	SharedObjectMessageAMF0 MessageType = 19
	CommandMessageAMF0      MessageType = 20

	AggregateMessage MessageType = 22
)

func (t MessageType) String() string {
	switch t {
	case SetChunkSize:
		return "SetChunkSize"
	case AbortMessage:
		return "Abort"
	case Acknowledgement:
		return "Acknowledgement"
	case UserControlMessage:
		return "UserControl"
	case WindowAcknowledgementSize:
		return "WindowAcknowledgementSize"
	case SetPeerBandwidth:
		return "SetPeerBandwidth"
	case AudioMessage:
		return "Audio"
	case VideoMessage:
		return "Video"
	case DataMessageAMF3:
		return "DataAMF3"
	case SharedObjectMessageAMF3:
		return "SharedObjectAMF3"
	case CommandMessageAMF3:
		return "CommandAMF3"
	case DataMessageAMF0:
		return "DataAMF0"
	case SharedObjectMessageAMF0:
		return "SharedObjectAMF0"
	case CommandMessageAMF0:
		return "CommandAMF0"
	case AggregateMessage:
		return "Aggregate"
	default:
		return fmt.Sprintf("MessageType(%d)", uint8(t))
	}
}

// Message is a fully reassembled RTMP message. Header carries the resolved fields of the
// last chunk that completed it.
type Message struct {
	Header  ChunkHeader
	Payload []byte
}
