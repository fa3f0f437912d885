package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"os/signal"
	"strings"

	"github.com/fatih/color"
	"github.com/gorilla/websocket"
)

// ws_client.go = handles WebSocket client functionality for the imis CLI.

type envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// Listen connects as principalID, joins the given project pages and prints
// every event until interrupted
func Listen(apiURL, principalID string, projects []string) error {
	u, err := url.Parse(apiURL)
	if err != nil {
		return fmt.Errorf("invalid api url: %w", err)
	}
	u.Scheme = strings.Replace(u.Scheme, "http", "ws", 1)
	u.Path = "/ws"
	u.RawQuery = url.Values{"id": {principalID}}.Encode()

	fmt.Printf("\n🔌 Connecting as %s...\n", principalID)
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("connection refused with status %s", resp.Status)
		}
		return fmt.Errorf("connection failed: %w", err)
	}
	defer conn.Close()

	fmt.Printf("✅ Connected! Press Ctrl+C to exit\n\n")

	for _, p := range projects {
		join := map[string]any{"event": "join-project-page", "data": map[string]string{"projectId": p}}
		if err := conn.WriteJSON(join); err != nil {
			return err
		}
	}

	// Channel for interrupt signal
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)

	// Goroutine to receive events
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var msg envelope
			if err := conn.ReadJSON(&msg); err != nil {
				color.Red("connection closed: %v", err)
				return
			}
			PrintEvent(msg.Event, msg.Data)
		}
	}()

	select {
	case <-interrupt:
		fmt.Println("Closing connection...")
		for _, p := range projects {
			conn.WriteJSON(map[string]any{"event": "leave-project-page", "data": map[string]string{"projectId": p}})
		}
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	case <-done:
	}
	return nil
}

// PrintEvent pretty prints one inbound event
func PrintEvent(event string, data json.RawMessage) {
	switch event {
	case "error":
		color.Red("⚠ %s", data)

	case "room-users":
		var p struct {
			Scope     string `json:"scope"`
			ProjectID string `json:"projectId"`
			Users     []struct {
				DisplayName string `json:"displayName"`
			} `json:"users"`
		}
		if json.Unmarshal(data, &p) == nil {
			names := make([]string, 0, len(p.Users))
			for _, u := range p.Users {
				names = append(names, u.DisplayName)
			}
			color.Yellow("👥 %s %s: %s", p.Scope, p.ProjectID, strings.Join(names, ", "))
			return
		}
		color.Yellow("👥 %s", data)

	case "Alert-User", "newTaskNotif", "newMsgNotif", "notification", "commentNotification":
		var p struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		}
		if json.Unmarshal(data, &p) == nil {
			color.Cyan("🔔 [%s] %s: %s", event, p.Title, p.Message)
			return
		}
		color.Cyan("🔔 [%s] %s", event, data)

	default:
		color.HiBlack("%s %s", event, data)
	}
}
