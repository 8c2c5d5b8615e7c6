package main

import (
	"bufio"
	"chat-relay/domain/event"
	ws "chat-relay/infrastructure/websocket"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gookit/color"
	"github.com/gorilla/websocket"
)

// Exit codes for the client application.
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	addr := flag.String("addr", "ws://localhost:4000/ws", "relay websocket url")
	author := flag.String("author", "", "author name, ignored when a token is set")
	token := flag.String("token", os.Getenv("CHAT_TOKEN"), "bearer token")
	flag.Parse()

	u, err := url.Parse(*addr)
	if err != nil {
		color.Error.Println("invalid -addr:", err)
		os.Exit(exitConfig)
	}
	if err := run(u, *author, *token); err != nil {
		color.Error.Println("Client error:", err)
		os.Exit(exitRuntime)
	}
	os.Exit(exitOK)
}

func run(u *url.URL, author, token string) error {
	addr := u.String()
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}

	conn, resp, err := websocket.DefaultDialer.Dial(addr, header)
	if err != nil {
		if resp != nil {
			return fmt.Errorf("dial %s: %w (status %d)", addr, err, resp.StatusCode)
		}
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			var env ws.Envelope
			if err := conn.ReadJSON(&env); err != nil {
				color.Warn.Println("connection closed:", err)
				return
			}
			render(env)
		}
	}()

	lines := make(chan string)
	go func() {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		close(lines)
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-done:
			return nil
		case <-sig:
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"))
			return nil
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			// Blank input never reaches the relay.
			if strings.TrimSpace(line) == "" {
				continue
			}
			data, err := json.Marshal(line)
			if err != nil {
				return err
			}
			if err := conn.WriteJSON(ws.Envelope{Event: event.SendMessageName, Data: data, Author: author}); err != nil {
				return err
			}
		}
	}
}

func render(env ws.Envelope) {
	switch env.Event {
	case event.LoadMessagesName:
		var messages []ws.MessageDTO
		if err := json.Unmarshal(env.Data, &messages); err != nil {
			color.Error.Println("bad history frame:", err)
			return
		}
		color.Gray.Printf("--- %d previous messages ---\n", len(messages))
		for _, m := range messages {
			printMessage(m)
		}
		color.Gray.Println("---")
	case event.ReceiveMessageName:
		var m ws.MessageDTO
		if err := json.Unmarshal(env.Data, &m); err != nil {
			color.Error.Println("bad message frame:", err)
			return
		}
		printMessage(m)
	case event.MessageRejectedName:
		var e ws.ErrorDTO
		_ = json.Unmarshal(env.Data, &e)
		color.Error.Printf("[%s] %s\n", e.Code, e.Message)
	default:
		color.Warn.Println("unknown event:", env.Event)
	}
}

func printMessage(m ws.MessageDTO) {
	fmt.Printf("%s %s: %s\n",
		color.Gray.Sprint(m.CreatedAt.Local().Format("15:04:05")),
		color.New(color.FgCyan, color.OpBold).Sprint(m.Author),
		m.Text)
}
