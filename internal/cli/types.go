package cli

import "time"

// Request represents a JSON request in headless mode
type Request struct {
	ID      string                 `json:"id,omitempty"`
	Command string                 `json:"command"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// Response represents a JSON response in headless mode
type Response struct {
	ID      string      `json:"id,omitempty"`
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Event represents a real-time event in headless mode
type Event struct {
	Type      string      `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// RoomInfo represents room information for responses
type RoomInfo struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
	Kind        string `json:"kind"`
	Active      bool   `json:"active,omitempty"`
}

// MessageInfo represents message information for responses
type MessageInfo struct {
	ID      int64     `json:"id"`
	RoomID  int64     `json:"room_id"`
	Sender  string    `json:"sender"`
	Content string    `json:"content"`
	SentAt  time.Time `json:"sent_at"`
	IsOwn   bool      `json:"is_own"`
}

// UserInfo represents user information for responses
type UserInfo struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Phone    string `json:"phone,omitempty"`
}

// StatusInfo represents session and connection status for responses
type StatusInfo struct {
	LoggedIn  bool   `json:"logged_in"`
	Username  string `json:"username,omitempty"`
	Connected bool   `json:"connected"`
	Room      string `json:"room,omitempty"`
}
