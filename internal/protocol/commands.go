package protocol

type CommandType string

const (
	CommandJoinRoom    CommandType = "join_room"
	CommandSendMessage CommandType = "send_message"
	CommandTyping      CommandType = "typing"
)

// Command is an outbound frame for the chat socket. Implementations marshal to
// a JSON object carrying their type discriminator.
type Command interface {
	CommandType() CommandType
}

type JoinRoomCommand struct {
	Type   CommandType `json:"type"`
	RoomID int64       `json:"room_id"`
}

func (c JoinRoomCommand) CommandType() CommandType { return CommandJoinRoom }

func NewJoinRoomCommand(roomID int64) JoinRoomCommand {
	return JoinRoomCommand{Type: CommandJoinRoom, RoomID: roomID}
}

type SendMessageCommand struct {
	Type        CommandType `json:"type"`
	RoomID      int64       `json:"room_id"`
	Content     string      `json:"content"`
	MessageType string      `json:"message_type"`
}

func (c SendMessageCommand) CommandType() CommandType { return CommandSendMessage }

func NewSendMessageCommand(roomID int64, content, messageType string) SendMessageCommand {
	if messageType == "" {
		messageType = "text"
	}
	return SendMessageCommand{
		Type:        CommandSendMessage,
		RoomID:      roomID,
		Content:     content,
		MessageType: messageType,
	}
}

type TypingCommand struct {
	Type     CommandType `json:"type"`
	RoomID   int64       `json:"room_id"`
	IsTyping bool        `json:"is_typing"`
}

func (c TypingCommand) CommandType() CommandType { return CommandTyping }

func NewTypingCommand(roomID int64, isTyping bool) TypingCommand {
	return TypingCommand{Type: CommandTyping, RoomID: roomID, IsTyping: isTyping}
}
