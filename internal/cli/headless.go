package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lumachat/chatcore/internal/domain"
	"github.com/lumachat/chatcore/internal/service"
	"github.com/lumachat/chatcore/internal/state"
)

// HeadlessCLI handles JSON-based headless operation: one request per input
// line, one response per output line, with push traffic streamed as event
// objects in between.
type HeadlessCLI struct {
	handler *CommandHandler
	store   *state.Store
	orch    *service.Orchestrator
	reader  *bufio.Reader
	writer  io.Writer
	mu      sync.Mutex
}

func NewHeadlessCLI(handler *CommandHandler, store *state.Store, orch *service.Orchestrator) *HeadlessCLI {
	return &HeadlessCLI{
		handler: handler,
		store:   store,
		orch:    orch,
		reader:  bufio.NewReader(os.Stdin),
		writer:  os.Stdout,
	}
}

// Run starts the headless JSON processing loop
func (cli *HeadlessCLI) Run(ctx context.Context) error {
	cli.sendResponse(Response{
		Success: true,
		Data:    map[string]string{"status": "ready", "mode": "headless"},
	})

	unsubs := []func(){
		cli.store.Subscribe(state.EventMessageAdded, func(payload any) {
			msg, ok := payload.(*domain.Message)
			if !ok {
				return
			}
			cli.sendEvent("message", MessageInfo{
				ID:      msg.ID,
				RoomID:  msg.RoomID,
				Sender:  msg.SenderUsername,
				Content: msg.Content,
				SentAt:  msg.SentAt,
				IsOwn:   msg.IsOwn(cli.store.CurrentUserID()),
			})
		}),
		cli.store.Subscribe(state.EventRoomAdded, func(payload any) {
			room, ok := payload.(*domain.Room)
			if !ok {
				return
			}
			cli.sendEvent("room_added", RoomInfo{
				ID:          room.ID,
				Name:        room.Name,
				DisplayName: room.Display(),
				Kind:        string(room.Kind),
			})
		}),
		cli.store.Subscribe(state.EventCleared, func(any) {
			cli.sendEvent("session_cleared", nil)
		}),
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	cli.orch.OnTyping(func(name string, active bool) {
		cli.sendEvent("typing", map[string]any{"name": name, "active": active})
	})
	cli.orch.OnNotice(func(text string) {
		cli.sendEvent("notice", map[string]string{"text": text})
	})
	cli.orch.OnInputChange(func(enabled bool) {
		cli.sendEvent("input", map[string]bool{"enabled": enabled})
	})
	cli.orch.OnSessionExpired(func() {
		cli.sendEvent("session_expired", nil)
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			line, err := cli.reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return nil
				}
				cli.sendError("", fmt.Sprintf("read error: %v", err))
				continue
			}

			if quit := cli.processRequest(ctx, line); quit {
				return nil
			}
		}
	}
}

func (cli *HeadlessCLI) processRequest(ctx context.Context, line string) bool {
	var req Request
	if err := json.Unmarshal([]byte(line), &req); err != nil {
		cli.sendError("", fmt.Sprintf("invalid JSON: %v", err))
		return false
	}

	if req.Command == "" {
		cli.sendError(req.ID, "missing command field")
		return false
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	cmd := &Command{
		Name: req.Command,
		Args: paramsToArgs(req.Command, req.Params),
	}

	result, err := cli.handler.Execute(ctx, cmd)
	if err != nil {
		cli.sendError(req.ID, err.Error())
		return false
	}

	if m, ok := result.(map[string]bool); ok && m["quit"] {
		cli.sendResponse(Response{
			ID:      req.ID,
			Success: true,
			Data:    map[string]string{"message": "goodbye"},
		})
		return true
	}

	cli.sendResponse(Response{
		ID:      req.ID,
		Success: true,
		Data:    result,
	})
	return false
}

func paramsToArgs(command string, params map[string]interface{}) []string {
	if params == nil {
		return nil
	}

	var args []string

	str := func(key string) {
		if v, ok := params[key].(string); ok && v != "" {
			args = append(args, v)
		}
	}

	switch command {
	case "register":
		str("username")
		str("password")
		str("phone")
	case "login":
		str("username")
		str("password")
	case "select", "join":
		if id, ok := params["room_id"].(float64); ok {
			args = append(args, fmt.Sprintf("%d", int64(id)))
		}
	case "send":
		str("content")
	case "direct", "dm":
		str("username")
	case "group":
		str("name")
		if members, ok := params["members"].([]interface{}); ok {
			for _, m := range members {
				if s, ok := m.(string); ok {
					args = append(args, s)
				}
			}
		}
	case "alias":
		str("name")
	}

	return args
}

func (cli *HeadlessCLI) sendResponse(resp Response) {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	data, _ := json.Marshal(resp)
	fmt.Fprintln(cli.writer, string(data))
}

func (cli *HeadlessCLI) sendError(id, message string) {
	cli.sendResponse(Response{
		ID:      id,
		Success: false,
		Error:   message,
	})
}

// sendEvent writes one Event line; consumers tell events from responses by
// the presence of the type field.
func (cli *HeadlessCLI) sendEvent(eventType string, data interface{}) {
	cli.mu.Lock()
	defer cli.mu.Unlock()

	payload, _ := json.Marshal(Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	})
	fmt.Fprintln(cli.writer, string(payload))
}
