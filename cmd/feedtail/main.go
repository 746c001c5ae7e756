// Package main provides a terminal client that tails the live feed of a
// Yatube user: every post published by an author they follow is printed
// as it arrives.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
)

type feedEvent struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type postCreated struct {
	PostID  uint      `json:"post_id"`
	Author  string    `json:"author"`
	Text    string    `json:"text"`
	Group   string    `json:"group"`
	URL     string    `json:"url"`
	PubDate time.Time `json:"pub_date"`
}

func main() {
	host := flag.String("host", "localhost:8000", "Server host")
	username := flag.String("username", "", "Username to log in as")
	password := flag.String("password", "", "Password")
	secure := flag.Bool("tls", false, "Use https/wss")
	origin := flag.String("origin", "", "Origin header, required when the server restricts ALLOWED_ORIGINS")
	flag.Parse()

	if *username == "" || *password == "" {
		log.Fatal("usage: feedtail -username <name> -password <password> [-host host:port]")
	}

	httpScheme, wsScheme := "http", "ws"
	if *secure {
		httpScheme, wsScheme = "https", "wss"
	}

	token, err := login(httpScheme, *host, *username, *password)
	if err != nil {
		log.Fatalf("❌ Login failed: %v", err)
	}
	log.Printf("✅ Logged in as %s", *username)

	u := url.URL{Scheme: wsScheme, Host: *host, Path: "/ws/feed"}
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token)
	if *origin != "" {
		header.Set("Origin", *origin)
	}
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), header)
	if resp != nil && resp.Body != nil {
		_ = resp.Body.Close()
	}
	if err != nil {
		log.Fatalf("❌ Connect failed: %v", err)
	}
	defer func() { _ = conn.Close() }()
	log.Printf("📡 Listening on %s", u.String())

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					log.Printf("read error: %v", err)
				}
				return
			}
			printEvent(message)
		}
	}()

	select {
	case <-done:
		log.Println("Connection closed by server")
	case <-interrupt:
		log.Println("🛑 Interrupted by user")
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	}
}

func login(scheme, host, username, password string) (string, error) {
	loginURL := fmt.Sprintf("%s://%s/api/auth/login", scheme, host)
	body, _ := json.Marshal(map[string]string{
		"username": username,
		"password": password,
	})

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(loginURL, "application/json", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed with status %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	return result.Token, nil
}

func printEvent(message []byte) {
	var ev feedEvent
	if err := json.Unmarshal(message, &ev); err != nil {
		log.Printf("unreadable frame: %s", message)
		return
	}
	if ev.Type != "post_created" {
		log.Printf("%s: %s", ev.Type, ev.Payload)
		return
	}
	var p postCreated
	if err := json.Unmarshal(ev.Payload, &p); err != nil {
		log.Printf("unreadable post_created payload: %s", ev.Payload)
		return
	}
	group := ""
	if p.Group != "" {
		group = " [" + p.Group + "]"
	}
	fmt.Printf("%s  %s%s: %s  (%s)\n", p.PubDate.Local().Format("02.01.2006 15:04"), p.Author, group, p.Text, p.URL)
}
