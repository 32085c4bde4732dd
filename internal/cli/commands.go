package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/lumachat/chatcore/internal/domain"
	"github.com/lumachat/chatcore/internal/rest"
	"github.com/lumachat/chatcore/internal/service"
	"github.com/lumachat/chatcore/internal/state"
)

// CommandHandler executes CLI commands against the orchestrator and services.
type CommandHandler struct {
	store  *state.Store
	auth   *rest.AuthService
	chat   *rest.ChatService
	orch   *service.Orchestrator
	socket service.Socket
}

func NewCommandHandler(store *state.Store, auth *rest.AuthService, chat *rest.ChatService, orch *service.Orchestrator, socket service.Socket) *CommandHandler {
	return &CommandHandler{
		store:  store,
		auth:   auth,
		chat:   chat,
		orch:   orch,
		socket: socket,
	}
}

// Command represents a parsed command
type Command struct {
	Name string
	Args []string
}

// ParseCommand parses a command string (e.g., "/send hello there")
func ParseCommand(input string) (*Command, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, fmt.Errorf("empty command")
	}

	if !strings.HasPrefix(input, "/") {
		// Bare text is shorthand for /send.
		return &Command{Name: "send", Args: strings.Fields(input)}, nil
	}

	parts := strings.Fields(input)
	name := strings.TrimPrefix(parts[0], "/")
	return &Command{Name: name, Args: parts[1:]}, nil
}

// Execute executes a command and returns the result
func (h *CommandHandler) Execute(ctx context.Context, cmd *Command) (interface{}, error) {
	switch cmd.Name {
	case "help", "h":
		return h.cmdHelp()
	case "status", "s":
		return h.cmdStatus()
	case "register":
		return h.cmdRegister(ctx, cmd.Args)
	case "login":
		return h.cmdLogin(ctx, cmd.Args)
	case "logout":
		return h.cmdLogout(ctx)
	case "whoami":
		return h.cmdWhoami()
	case "rooms", "ls":
		return h.cmdRooms(ctx)
	case "select", "join":
		return h.cmdSelect(ctx, cmd.Args)
	case "send":
		return h.cmdSend(cmd.Args)
	case "typing":
		return h.cmdTyping()
	case "messages", "msg":
		return h.cmdMessages()
	case "users":
		return h.cmdUsers(ctx)
	case "direct", "dm":
		return h.cmdDirect(ctx, cmd.Args)
	case "group":
		return h.cmdGroup(ctx, cmd.Args)
	case "alias":
		return h.cmdAlias(ctx, cmd.Args)
	case "quit", "exit", "q":
		return map[string]bool{"quit": true}, nil
	default:
		return nil, fmt.Errorf("unknown command: %s. Type /help for available commands", cmd.Name)
	}
}

func (h *CommandHandler) cmdHelp() (interface{}, error) {
	help := `Available commands:

Session:
  /register <username> <password> [phone]  Create an account
  /login <username> <password>             Log in and connect
  /logout                                  Log out and disconnect
  /whoami                                  Show the current user
  /status, /s                              Show session and socket status

Rooms:
  /rooms, /ls              Refresh and list rooms (alias-resolved)
  /select, /join <id>      Enter a room
  /direct, /dm <username>  Start a one-to-one chat
  /group <name> <user...>  Create a group chat
  /alias <name>            Set a nickname for the current counterpart

Messages:
  /send <text>             Send to the current room (bare text works too)
  /messages, /msg          Show the current message list
  /typing                  Signal input activity
  /users                   List users

Other:
  /help, /h                Show this help
  /quit, /exit, /q         Exit`

	return map[string]string{"help": help}, nil
}

func (h *CommandHandler) cmdStatus() (interface{}, error) {
	status := StatusInfo{
		LoggedIn:  h.store.Authenticated(),
		Connected: h.socket.IsConnected(),
	}
	if user := h.store.CurrentUser(); user.Valid() {
		status.Username = user.Username
	}
	if room := h.store.CurrentRoom(); room != nil {
		status.Room = room.Display()
	}
	return status, nil
}

func (h *CommandHandler) cmdRegister(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /register <username> <password> [phone]")
	}
	phone := ""
	if len(args) > 2 {
		phone = args[2]
	}
	if err := h.auth.Register(ctx, args[0], args[1], phone); err != nil {
		return nil, err
	}
	return map[string]string{"message": "registered, now /login"}, nil
}

func (h *CommandHandler) cmdLogin(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /login <username> <password>")
	}
	user, err := h.auth.Login(ctx, args[0], args[1])
	if err != nil {
		return nil, err
	}

	h.orch.Start(ctx)
	return map[string]string{"message": "logged in as " + user.Username}, nil
}

func (h *CommandHandler) cmdLogout(ctx context.Context) (interface{}, error) {
	h.orch.Shutdown()
	h.auth.Logout(ctx)
	return map[string]string{"message": "logged out"}, nil
}

func (h *CommandHandler) cmdWhoami() (interface{}, error) {
	user := h.store.CurrentUser()
	if !user.Valid() {
		return nil, fmt.Errorf("not logged in")
	}
	return UserInfo{ID: user.ID, Username: user.Username, Phone: user.Phone}, nil
}

func (h *CommandHandler) cmdRooms(ctx context.Context) (interface{}, error) {
	rooms, err := h.chat.LoadRoomsWithAliases(ctx)
	if err != nil {
		return nil, err
	}

	activeID := h.store.CurrentRoomID()
	infos := make([]RoomInfo, len(rooms))
	for i, r := range rooms {
		infos[i] = RoomInfo{
			ID:          r.ID,
			Name:        r.Name,
			DisplayName: r.Display(),
			Kind:        string(r.Kind),
			Active:      r.ID == activeID,
		}
	}
	return infos, nil
}

func (h *CommandHandler) cmdSelect(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /select <room_id>")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid room id: %s", args[0])
	}

	room := h.store.FindRoom(id)
	if room == nil {
		return nil, fmt.Errorf("unknown room: %d (try /rooms)", id)
	}

	h.orch.SelectRoom(ctx, room)
	return map[string]string{"message": "entered " + room.Display()}, nil
}

func (h *CommandHandler) cmdSend(args []string) (interface{}, error) {
	if len(args) == 0 {
		return nil, service.ErrEmptyMessage
	}
	if err := h.orch.SendMessage(strings.Join(args, " ")); err != nil {
		return nil, err
	}
	return map[string]string{"message": "sent"}, nil
}

func (h *CommandHandler) cmdTyping() (interface{}, error) {
	h.orch.NotifyTyping()
	return map[string]string{"message": "typing signalled"}, nil
}

func (h *CommandHandler) cmdMessages() (interface{}, error) {
	selfID := h.store.CurrentUserID()
	alias := h.orch.OtherUserName()

	msgs := h.store.Messages()
	infos := make([]MessageInfo, len(msgs))
	for i, m := range msgs {
		sender := m.SenderUsername
		if !m.IsOwn(selfID) {
			sender = m.SenderDisplayName(alias)
		}
		infos[i] = MessageInfo{
			ID:      m.ID,
			RoomID:  m.RoomID,
			Sender:  sender,
			Content: m.Content,
			SentAt:  m.SentAt,
			IsOwn:   m.IsOwn(selfID),
		}
	}
	return infos, nil
}

func (h *CommandHandler) cmdUsers(ctx context.Context) (interface{}, error) {
	users, err := h.chat.Users(ctx)
	if err != nil {
		return nil, err
	}

	infos := make([]UserInfo, 0, len(users))
	for _, u := range users {
		if u.ID == h.store.CurrentUserID() {
			continue
		}
		infos = append(infos, UserInfo{ID: u.ID, Username: u.Username, Phone: u.Phone})
	}
	return infos, nil
}

func (h *CommandHandler) cmdDirect(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /direct <username>")
	}

	target, err := h.findUser(ctx, args[0])
	if err != nil {
		return nil, err
	}
	if err := h.orch.CreateDirectRoom(ctx, target); err != nil {
		return nil, err
	}
	return map[string]string{"message": "chat requested with " + target.Username}, nil
}

func (h *CommandHandler) cmdGroup(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 2 {
		return nil, fmt.Errorf("usage: /group <name> <username...>")
	}

	ids := make([]int64, 0, len(args)-1)
	for _, username := range args[1:] {
		user, err := h.findUser(ctx, username)
		if err != nil {
			return nil, err
		}
		ids = append(ids, user.ID)
	}

	if err := h.orch.CreateGroupRoom(ctx, args[0], ids); err != nil {
		return nil, err
	}
	return map[string]string{"message": "group requested: " + args[0]}, nil
}

func (h *CommandHandler) cmdAlias(ctx context.Context, args []string) (interface{}, error) {
	if len(args) < 1 {
		return nil, fmt.Errorf("usage: /alias <name>")
	}
	name := strings.Join(args, " ")
	if err := h.orch.EditAlias(ctx, name); err != nil {
		return nil, err
	}
	return map[string]string{"message": "alias set to " + name}, nil
}

func (h *CommandHandler) findUser(ctx context.Context, username string) (*domain.User, error) {
	users, err := h.chat.Users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, fmt.Errorf("unknown user: %s", username)
}
