package cli

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lumachat/chatcore/internal/domain"
	"github.com/lumachat/chatcore/internal/service"
	"github.com/lumachat/chatcore/internal/state"
)

// InteractiveCLI is a line-oriented REPL over the command handler. It is the
// render consumer of the state store: pushed messages, typing indicators and
// notices print as they arrive.
type InteractiveCLI struct {
	handler *CommandHandler
	store   *state.Store
	orch    *service.Orchestrator
	reader  *bufio.Reader
	writer  io.Writer
}

func NewInteractiveCLI(handler *CommandHandler, store *state.Store, orch *service.Orchestrator) *InteractiveCLI {
	return &InteractiveCLI{
		handler: handler,
		store:   store,
		orch:    orch,
		reader:  bufio.NewReader(os.Stdin),
		writer:  os.Stdout,
	}
}

// Run starts the interactive loop and blocks until quit or EOF.
func (cli *InteractiveCLI) Run(ctx context.Context) error {
	cli.printWelcome()

	unsub := cli.store.Subscribe(state.EventMessageAdded, func(payload any) {
		msg, ok := payload.(*domain.Message)
		if !ok {
			return
		}
		sender := "you"
		if !msg.IsOwn(cli.store.CurrentUserID()) {
			sender = msg.SenderDisplayName(cli.orch.OtherUserName())
		}
		cli.printf("\n[%s] %s: %s\n> ", msg.FormattedTime(), sender, msg.Content)
	})
	defer unsub()

	cli.orch.OnTyping(func(name string, active bool) {
		if active {
			cli.printf("\n%s is typing...\n> ", name)
		}
	})
	cli.orch.OnNotice(func(text string) {
		cli.printf("\n! %s\n> ", text)
	})
	cli.orch.OnInputChange(func(enabled bool) {
		if enabled {
			cli.printf("\n(room joined, you can send now)\n> ")
		}
	})
	cli.orch.OnSessionExpired(func() {
		cli.printf("\n! session expired, please /login again\n> ")
	})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			cli.print("\n> ")
			line, err := cli.reader.ReadString('\n')
			if err != nil {
				if err == io.EOF {
					return nil
				}
				return err
			}

			line = strings.TrimSpace(line)
			if line == "" {
				continue
			}

			if err := cli.processCommand(ctx, line); err != nil {
				if err.Error() == "quit" {
					cli.println("Goodbye!")
					return nil
				}
				cli.printf("Error: %s\n", err)
			}
		}
	}
}

func (cli *InteractiveCLI) printWelcome() {
	cli.println("===========================================")
	cli.println("  chatcore CLI")
	cli.println("===========================================")
	cli.println("Type /help for available commands")

	status, _ := cli.handler.cmdStatus()
	if s, ok := status.(StatusInfo); ok {
		if s.LoggedIn {
			cli.printf("Logged in as %s\n", s.Username)
		} else {
			cli.println("Not logged in (/login <username> <password>)")
		}
	}
}

func (cli *InteractiveCLI) processCommand(ctx context.Context, input string) error {
	cmd, err := ParseCommand(input)
	if err != nil {
		return err
	}

	result, err := cli.handler.Execute(ctx, cmd)
	if err != nil {
		return err
	}

	if m, ok := result.(map[string]bool); ok && m["quit"] {
		return fmt.Errorf("quit")
	}

	cli.displayResult(result)
	return nil
}

func (cli *InteractiveCLI) displayResult(result interface{}) {
	switch v := result.(type) {
	case map[string]string:
		if help, ok := v["help"]; ok {
			cli.println(help)
			return
		}
		if msg, ok := v["message"]; ok {
			cli.println(msg)
			return
		}
	case StatusInfo:
		cli.printf("logged_in=%v connected=%v", v.LoggedIn, v.Connected)
		if v.Username != "" {
			cli.printf(" user=%s", v.Username)
		}
		if v.Room != "" {
			cli.printf(" room=%q", v.Room)
		}
		cli.println("")
		return
	case UserInfo:
		cli.printf("#%d %s\n", v.ID, v.Username)
		return
	case []RoomInfo:
		if len(v) == 0 {
			cli.println("no rooms yet (/direct <username> to start one)")
			return
		}
		for _, r := range v {
			marker := " "
			if r.Active {
				marker = "*"
			}
			cli.printf("%s %4d  %-10s %s\n", marker, r.ID, r.Kind, r.DisplayName)
		}
		return
	case []UserInfo:
		for _, u := range v {
			cli.printf("%4d  %s\n", u.ID, u.Username)
		}
		return
	case []MessageInfo:
		for _, m := range v {
			sender := m.Sender
			if m.IsOwn {
				sender = "you"
			}
			cli.printf("[%s] %s: %s\n", m.SentAt.Format("15:04"), sender, m.Content)
		}
		return
	}

	// Fallback for anything unhandled.
	data, _ := json.MarshalIndent(result, "", "  ")
	cli.println(string(data))
}

func (cli *InteractiveCLI) print(s string)               { fmt.Fprint(cli.writer, s) }
func (cli *InteractiveCLI) println(s string)             { fmt.Fprintln(cli.writer, s) }
func (cli *InteractiveCLI) printf(f string, args ...any) { fmt.Fprintf(cli.writer, f, args...) }
