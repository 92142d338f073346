// Spectator connects to the bridge and prints every message it receives.
// With SPECTATOR_AUTO_CATCH it also catches every dot it sees, which makes it a
// handy load bot.
package main

import (
	"dot-catcher/domain/event"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := LoadConfig()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.ServerURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.ServerURL, err)
	}
	defer conn.Close()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-stop
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_ = conn.Close()
	}()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		env, err := event.Decode(frame)
		if err != nil {
			fmt.Printf("unreadable frame: %s\n", frame)
			continue
		}
		fmt.Println(render(cfg, env))

		if cfg.AutoCatch && env.Event == event.DotAppearedName {
			if err := catch(conn, env.Data); err != nil {
				return err
			}
		}
	}
}

func render(cfg Config, env event.Envelope) string {
	line := fmt.Sprintf("%s %-18s %s", time.Now().Format("15:04:05"), env.Event, env.Data)
	if !cfg.Colours {
		return line
	}
	switch env.Event {
	case event.GameStateUpdateName:
		return color.New(color.FgGreen).Render(line)
	case event.DotAppearedName:
		return color.New(color.FgCyan).Render(line)
	case event.ActionRejectedName:
		return color.New(color.FgRed).Render(line)
	default:
		return line
	}
}

// catch sends back the dot's position with the current time.
func catch(conn *websocket.Conn, dot json.RawMessage) error {
	var payload struct {
		Position json.RawMessage `json:"position"`
	}
	if err := json.Unmarshal(dot, &payload); err != nil || len(payload.Position) == 0 {
		return nil
	}
	timestamp, err := json.Marshal(time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return err
	}
	data, err := json.Marshal(map[string]json.RawMessage{
		"position":  payload.Position,
		"timestamp": timestamp,
	})
	if err != nil {
		return err
	}
	frame, err := json.Marshal(event.Envelope{Event: event.CatchDotName, Data: data})
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}
