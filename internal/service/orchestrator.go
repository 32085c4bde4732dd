package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/lumachat/chatcore/internal/domain"
	"github.com/lumachat/chatcore/internal/protocol"
	"github.com/lumachat/chatcore/internal/state"
)

// DefaultTypingDelay is the quiet window after the last input event before a
// stopped-typing signal is sent.
const DefaultTypingDelay = 2 * time.Second

var (
	ErrNoActiveRoom  = errors.New("no active room")
	ErrJoinPending   = errors.New("room join not yet confirmed")
	ErrEmptyMessage  = errors.New("message content is required")
	ErrNoCounterpart = errors.New("no resolved counterpart for this room")
)

// Socket is the persistent-connection surface the orchestrator drives. The
// gateway satisfies it; tests inject fakes.
type Socket interface {
	Connect() error
	Disconnect()
	Send(cmd protocol.Command)
	On(eventType protocol.EventType, fn func(protocol.Event)) func()
	OnSessionExpired(fn func())
	IsConnected() bool
}

// ChatAPI is the REST surface the orchestrator consumes.
type ChatAPI interface {
	LoadRoomsWithAliases(ctx context.Context) ([]*domain.Room, error)
	Participants(ctx context.Context, roomID int64) ([]protocol.ParticipantPayload, error)
	Messages(ctx context.Context, roomID int64) ([]*domain.Message, error)
	Users(ctx context.Context) ([]*domain.User, error)
	Alias(ctx context.Context, targetID int64) (string, error)
	SetAlias(ctx context.Context, targetID int64, name string) error
	CreateRoom(ctx context.Context, name string, kind domain.RoomKind, participantIDs []int64) (*domain.Room, error)
}

// Orchestrator wires socket events and REST calls into state-store mutations.
// It owns the room-selection protocol, the send and typing flows, the alias
// edit flow, and duplicate suppression for pushed messages.
type Orchestrator struct {
	store  *state.Store
	socket Socket
	api    ChatAPI
	log    zerolog.Logger

	typingDelay time.Duration

	mu               sync.Mutex
	otherUserID      int64
	otherUserName    string
	pendingJoinID    int64
	inputEnabled     bool
	typingTimer      *time.Timer
	typingActiveRoom int64

	onInputChange    func(enabled bool)
	onTyping         func(displayName string, active bool)
	onNotice         func(text string)
	onSessionExpired func()
	teardownHook     func()

	unsubs []func()
}

type Option func(*Orchestrator)

// WithTypingDelay overrides the typing debounce window.
func WithTypingDelay(d time.Duration) Option {
	return func(o *Orchestrator) { o.typingDelay = d }
}

// WithTeardownHook runs extra cleanup, such as dropping the persisted session
// snapshot, during forced session teardown.
func WithTeardownHook(fn func()) Option {
	return func(o *Orchestrator) { o.teardownHook = fn }
}

func NewOrchestrator(store *state.Store, socket Socket, api ChatAPI, log zerolog.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		store:       store,
		socket:      socket,
		api:         api,
		log:         log,
		typingDelay: DefaultTypingDelay,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// OnInputChange registers the UI callback toggled by join gating.
func (o *Orchestrator) OnInputChange(fn func(enabled bool)) {
	o.mu.Lock()
	o.onInputChange = fn
	o.mu.Unlock()
}

// OnTyping registers the UI callback for the counterpart typing indicator.
func (o *Orchestrator) OnTyping(fn func(displayName string, active bool)) {
	o.mu.Lock()
	o.onTyping = fn
	o.mu.Unlock()
}

// OnNotice registers the UI callback for user-visible notices.
func (o *Orchestrator) OnNotice(fn func(text string)) {
	o.mu.Lock()
	o.onNotice = fn
	o.mu.Unlock()
}

// OnSessionExpired registers the UI callback fired after forced teardown.
func (o *Orchestrator) OnSessionExpired(fn func()) {
	o.mu.Lock()
	o.onSessionExpired = fn
	o.mu.Unlock()
}

// Start registers socket handlers, connects, and performs the initial
// alias-resolved room load. A failed load degrades to an empty room list.
func (o *Orchestrator) Start(ctx context.Context) {
	o.unsubs = append(o.unsubs,
		o.socket.On(protocol.EventConnected, o.handleConnected),
		o.socket.On(protocol.EventRoomCreated, o.handleRoomCreated),
		o.socket.On(protocol.EventRoomFound, o.handleRoomFound),
		o.socket.On(protocol.EventRoomJoined, o.handleRoomJoined),
		o.socket.On(protocol.EventNewMessage, o.handleNewMessage),
		o.socket.On(protocol.EventTyping, o.handleTyping),
		o.socket.On(protocol.EventUserJoined, o.handleUserJoined),
		o.socket.On(protocol.EventError, o.handleServerError),
	)
	o.socket.OnSessionExpired(o.handleSessionExpired)

	o.socket.Connect()

	if _, err := o.api.LoadRoomsWithAliases(ctx); err != nil {
		o.log.Warn().Err(err).Msg("initial room load failed")
	}
}

// Shutdown flushes a pending typing indicator, closes the socket, and drops
// room-scoped state. Session identity is left to the caller (logout clears it
// through the store).
func (o *Orchestrator) Shutdown() {
	o.flushTyping()
	for _, unsub := range o.unsubs {
		unsub()
	}
	o.unsubs = nil
	o.socket.Disconnect()
	o.store.ClearMessages()

	o.mu.Lock()
	o.otherUserID = 0
	o.otherUserName = ""
	o.pendingJoinID = 0
	o.mu.Unlock()
	o.setInput(false)
}

// SelectRoom runs the room-selection protocol: clear the typing indicator,
// reset the cached counterpart, publish the room provisionally, resolve the
// counterpart alias for direct rooms, issue join_room, and fetch history
// without gating it on the join confirmation.
func (o *Orchestrator) SelectRoom(ctx context.Context, room *domain.Room) {
	room = room.Clone()

	o.flushTyping()
	o.notifyTypingIndicator("", false)

	o.mu.Lock()
	o.otherUserID = 0
	o.otherUserName = ""
	o.pendingJoinID = room.ID
	o.mu.Unlock()

	o.store.SetCurrentRoom(room)
	o.setInput(false)

	if room.IsDirect() {
		o.resolveCounterpart(ctx, room)
	}

	o.socket.Send(protocol.NewJoinRoomCommand(room.ID))

	o.loadHistory(ctx, room.ID)
}

// resolveCounterpart fetches participants and the alias for the other user of
// a direct room, then republishes a resolved copy; the room already published
// by SelectRoom is left untouched. Failures are diagnostics; the room stays
// usable under its unresolved name.
func (o *Orchestrator) resolveCounterpart(ctx context.Context, room *domain.Room) {
	participants, err := o.api.Participants(ctx, room.ID)
	if err != nil {
		o.log.Warn().Err(err).Int64("room_id", room.ID).Msg("failed to load participants")
		return
	}
	resolved := room.Clone()
	resolved.SetParticipants(participants)

	other := resolved.OtherParticipant(o.store.CurrentUserID())
	if other == nil {
		return
	}

	name := other.Username
	alias, err := o.api.Alias(ctx, other.UserID)
	if err != nil {
		o.log.Warn().Err(err).Int64("user_id", other.UserID).Msg("failed to load alias")
	} else if alias != "" {
		name = alias
	}
	if name == "" {
		name = "Unknown"
	}

	o.mu.Lock()
	o.otherUserID = other.UserID
	o.otherUserName = name
	o.mu.Unlock()

	resolved.DisplayName = name
	o.store.UpdateRoom(resolved)
}

// loadHistory fetches and publishes a room's history. A response arriving
// after the active room has changed is discarded.
func (o *Orchestrator) loadHistory(ctx context.Context, roomID int64) {
	msgs, err := o.api.Messages(ctx, roomID)
	if err != nil {
		o.log.Warn().Err(err).Int64("room_id", roomID).Msg("failed to load messages")
		o.notice("failed to load messages")
		return
	}

	if o.store.CurrentRoomID() != roomID {
		o.log.Debug().Int64("room_id", roomID).Msg("discarding stale history")
		return
	}
	o.store.SetMessages(msgs)
}

// SendMessage transmits the content to the active room. Sending is rejected
// while the join confirmation is outstanding. Every send is followed by a
// stopped-typing signal, cancelling any pending debounce.
func (o *Orchestrator) SendMessage(content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return ErrEmptyMessage
	}

	room := o.store.CurrentRoom()
	if room == nil {
		return ErrNoActiveRoom
	}
	if !o.InputEnabled() {
		return ErrJoinPending
	}

	o.socket.Send(protocol.NewSendMessageCommand(room.ID, content, string(domain.MessageKindText)))
	o.cancelTyping()
	o.socket.Send(protocol.NewTypingCommand(room.ID, false))
	return nil
}

// NotifyTyping reports input activity: it sends typing:true and (re)arms the
// debounce timer that emits typing:false after the quiet window.
func (o *Orchestrator) NotifyTyping() {
	room := o.store.CurrentRoom()
	if room == nil {
		return
	}

	o.socket.Send(protocol.NewTypingCommand(room.ID, true))

	o.mu.Lock()
	if o.typingTimer != nil {
		o.typingTimer.Stop()
	}
	roomID := room.ID
	o.typingActiveRoom = roomID
	o.typingTimer = time.AfterFunc(o.typingDelay, func() {
		o.stopTyping(roomID)
	})
	o.mu.Unlock()
}

func (o *Orchestrator) stopTyping(roomID int64) {
	o.mu.Lock()
	if o.typingActiveRoom != roomID {
		o.mu.Unlock()
		return
	}
	o.typingTimer = nil
	o.typingActiveRoom = 0
	o.mu.Unlock()

	o.socket.Send(protocol.NewTypingCommand(roomID, false))
}

// cancelTyping stops a pending debounce without emitting anything.
func (o *Orchestrator) cancelTyping() {
	o.mu.Lock()
	if o.typingTimer != nil {
		o.typingTimer.Stop()
		o.typingTimer = nil
	}
	o.typingActiveRoom = 0
	o.mu.Unlock()
}

// flushTyping cancels a pending debounce and sends typing:false immediately.
func (o *Orchestrator) flushTyping() {
	o.mu.Lock()
	if o.typingTimer == nil {
		o.mu.Unlock()
		return
	}
	o.typingTimer.Stop()
	o.typingTimer = nil
	roomID := o.typingActiveRoom
	o.typingActiveRoom = 0
	o.mu.Unlock()

	o.socket.Send(protocol.NewTypingCommand(roomID, false))
}

// EditAlias persists a new alias for the resolved counterpart, updates the
// in-memory display name immediately, then refreshes the whole room list and
// re-publishes the message stream so no view disagrees, even transiently.
func (o *Orchestrator) EditAlias(ctx context.Context, newName string) error {
	o.mu.Lock()
	targetID := o.otherUserID
	o.mu.Unlock()
	if targetID == 0 {
		return ErrNoCounterpart
	}

	newName = strings.TrimSpace(newName)
	if err := o.api.SetAlias(ctx, targetID, newName); err != nil {
		return fmt.Errorf("set alias: %w", err)
	}

	o.mu.Lock()
	o.otherUserName = newName
	o.mu.Unlock()

	if room := o.store.CurrentRoom(); room != nil {
		renamed := room.Clone()
		renamed.DisplayName = newName
		o.store.UpdateRoom(renamed)
	}

	if _, err := o.api.LoadRoomsWithAliases(ctx); err != nil {
		o.log.Warn().Err(err).Msg("room list refresh after alias change failed")
	}

	o.store.SetMessages(o.store.Messages())
	return nil
}

// CreateDirectRoom requests a one-to-one room with the target user. Selection
// happens when the server pushes room_created or room_found back.
func (o *Orchestrator) CreateDirectRoom(ctx context.Context, target *domain.User) error {
	me := o.store.CurrentUser()
	if !me.Valid() || !target.Valid() {
		return ErrNoCounterpart
	}

	name := fmt.Sprintf("%s & %s", me.Username, target.Username)
	_, err := o.api.CreateRoom(ctx, name, domain.RoomKindDirect, []int64{me.ID, target.ID})
	if err != nil {
		return fmt.Errorf("create direct room: %w", err)
	}
	return nil
}

// CreateGroupRoom requests a group room with the current user as admin. The
// current user is always part of the participant set.
func (o *Orchestrator) CreateGroupRoom(ctx context.Context, name string, participantIDs []int64) error {
	meID := o.store.CurrentUserID()
	ids := []int64{meID}
	for _, id := range participantIDs {
		if id != meID {
			ids = append(ids, id)
		}
	}

	if _, err := o.api.CreateRoom(ctx, name, domain.RoomKindGroup, ids); err != nil {
		return fmt.Errorf("create group room: %w", err)
	}
	return nil
}

func (o *Orchestrator) InputEnabled() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.inputEnabled
}

// OtherUserName returns the resolved counterpart display name for the active
// direct room, or empty.
func (o *Orchestrator) OtherUserName() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.otherUserName
}

func (o *Orchestrator) setInput(enabled bool) {
	o.mu.Lock()
	changed := o.inputEnabled != enabled
	o.inputEnabled = enabled
	fn := o.onInputChange
	o.mu.Unlock()

	if changed && fn != nil {
		fn(enabled)
	}
}

func (o *Orchestrator) notice(text string) {
	o.mu.Lock()
	fn := o.onNotice
	o.mu.Unlock()
	if fn != nil {
		fn(text)
	}
}

func (o *Orchestrator) notifyTypingIndicator(name string, active bool) {
	o.mu.Lock()
	fn := o.onTyping
	o.mu.Unlock()
	if fn != nil {
		fn(name, active)
	}
}

func (o *Orchestrator) handleConnected(protocol.Event) {
	o.log.Info().Msg("chat server handshake complete")
}

func (o *Orchestrator) handleRoomCreated(evt protocol.Event) {
	e, ok := evt.(protocol.RoomCreatedEvent)
	if !ok {
		return
	}

	room := domain.NewRoom(e.Room)
	o.store.AddRoom(room)

	// Only the creator auto-enters the new room.
	if e.CreatorID == o.store.CurrentUserID() {
		o.SelectRoom(context.Background(), room)
	}
}

func (o *Orchestrator) handleRoomFound(evt protocol.Event) {
	e, ok := evt.(protocol.RoomFoundEvent)
	if !ok {
		return
	}

	room := domain.NewRoom(e.Room)
	o.store.AddRoom(room)
	if existing := o.store.FindRoom(room.ID); existing != nil {
		room = existing
	}
	o.SelectRoom(context.Background(), room)
}

// handleRoomJoined enables input only when the confirmation matches the room
// whose join is still pending; confirmations for stale room ids are dropped.
func (o *Orchestrator) handleRoomJoined(evt protocol.Event) {
	e, ok := evt.(protocol.RoomJoinedEvent)
	if !ok {
		return
	}

	o.mu.Lock()
	pending := o.pendingJoinID
	o.mu.Unlock()

	if e.RoomID != pending || e.RoomID != o.store.CurrentRoomID() {
		o.log.Debug().Int64("room_id", e.RoomID).Msg("dropping stale join confirmation")
		return
	}

	o.mu.Lock()
	o.pendingJoinID = 0
	o.mu.Unlock()
	o.setInput(true)
}

// handleNewMessage appends pushed messages for the active room only,
// suppressing duplicates by message id.
func (o *Orchestrator) handleNewMessage(evt protocol.Event) {
	e, ok := evt.(protocol.NewMessageEvent)
	if !ok {
		return
	}

	msg := domain.NewMessage(e.Message)
	if msg.RoomID != o.store.CurrentRoomID() {
		o.log.Debug().Int64("room_id", msg.RoomID).Msg("dropping message for inactive room")
		return
	}

	if msg.ID != 0 {
		for _, existing := range o.store.Messages() {
			if existing.ID == msg.ID {
				o.log.Debug().Int64("message_id", msg.ID).Msg("dropping duplicate message")
				return
			}
		}
	}

	o.store.AddMessage(msg)
}

func (o *Orchestrator) handleTyping(evt protocol.Event) {
	e, ok := evt.(protocol.TypingEvent)
	if !ok {
		return
	}
	if e.UserID == o.store.CurrentUserID() {
		return
	}

	name := e.Username
	if room := o.store.CurrentRoom(); room.IsDirect() {
		if resolved := o.OtherUserName(); resolved != "" {
			name = resolved
		}
	}
	o.notifyTypingIndicator(name, e.IsTyping)
}

func (o *Orchestrator) handleUserJoined(evt protocol.Event) {
	e, ok := evt.(protocol.UserJoinedEvent)
	if !ok {
		return
	}
	o.log.Info().Str("username", e.Username).Msg("user joined room")
}

func (o *Orchestrator) handleServerError(evt protocol.Event) {
	e, ok := evt.(protocol.ErrorEvent)
	if !ok {
		return
	}
	o.log.Error().Str("message", e.Message).Msg("server error event")
	o.notice("server error: " + e.Message)
}

// handleSessionExpired performs full local teardown after the server closed
// the socket with an auth-rejection code; reconnecting with the same token
// would fail identically.
func (o *Orchestrator) handleSessionExpired() {
	o.log.Warn().Msg("session rejected by server, clearing local state")
	o.flushTyping()
	o.store.Clear()
	o.setInput(false)

	o.mu.Lock()
	o.otherUserID = 0
	o.otherUserName = ""
	o.pendingJoinID = 0
	hook := o.teardownHook
	fn := o.onSessionExpired
	o.mu.Unlock()

	if hook != nil {
		hook()
	}
	if fn != nil {
		fn()
	}
}
