package protocol

// Raw server payloads shared by the REST API and the chat socket. Field names
// follow the server's snake_case JSON; both transports must decode into the
// same shapes so history fetches and push events produce identical records.

type UserPayload struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Phone     string `json:"phone,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type RoomPayload struct {
	ID               int64  `json:"id"`
	Name             string `json:"name"`
	Type             string `json:"type"`
	AdminID          int64  `json:"admin_id,omitempty"`
	ParticipantCount int    `json:"participant_count,omitempty"`
	CreatedAt        string `json:"created_at,omitempty"`
}

type ParticipantPayload struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

type MessagePayload struct {
	ID             int64  `json:"id"`
	ChatRoomID     int64  `json:"chat_room_id"`
	SenderID       int64  `json:"sender_id"`
	SenderUsername string `json:"sender_username"`
	Content        string `json:"content"`
	MessageType    string `json:"message_type"`
	SentAt         string `json:"sent_at"`
}

type AliasPayload struct {
	Alias string `json:"alias"`
}

// LoginPayload is the body of a successful POST auth/login.
type LoginPayload struct {
	AccessToken string      `json:"access_token"`
	User        UserPayload `json:"user"`
}

// CreateRoomRequest is the body of POST chat/rooms.
type CreateRoomRequest struct {
	Name           string  `json:"name"`
	Type           string  `json:"type"`
	AdminID        int64   `json:"admin_id"`
	ParticipantIDs []int64 `json:"participant_ids"`
}

// SetAliasRequest is the body of POST chat/alias.
type SetAliasRequest struct {
	OwnerID   int64  `json:"user_set"`
	TargetID  int64  `json:"user_get"`
	AliasName string `json:"alias_name"`
}

// RegisterRequest is the body of POST auth/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Phone    string `json:"phone,omitempty"`
}

// LoginRequest is the body of POST auth/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}
