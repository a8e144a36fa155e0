// Package slack implements the transport.Channel contract over the Slack
// Events API: an HTTP listener for inbound events, chat.postMessage for
// replies, and users.info for display-name resolution.
package slack

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"taskledger/internal/transport"
)

const (
	defaultAPIRoot   = "https://slack.com/api"
	defaultEventPath = "/events/slack"
	defaultPort      = 8091
)

// Config holds the Slack connection settings.
type Config struct {
	BotToken       string
	AppID          string
	ListenPort     int
	EventPath      string
	DefaultChannel string
	APIRoot        string // overridable for tests
}

// Channel is a Slack-backed transport.Channel.
type Channel struct {
	cfg    Config
	server *http.Server
	httpc  *http.Client

	mu      sync.RWMutex
	handler transport.Handler
	names   map[string]string // authorID → resolved display name
}

// NewChannel creates a Slack channel with defaults applied.
func NewChannel(cfg Config) *Channel {
	if strings.TrimSpace(cfg.EventPath) == "" {
		cfg.EventPath = defaultEventPath
	}
	if !strings.HasPrefix(cfg.EventPath, "/") {
		cfg.EventPath = "/" + cfg.EventPath
	}
	if cfg.ListenPort <= 0 {
		cfg.ListenPort = defaultPort
	}
	if strings.TrimSpace(cfg.APIRoot) == "" {
		cfg.APIRoot = defaultAPIRoot
	}
	return &Channel{
		cfg:   cfg,
		httpc: http.DefaultClient,
		names: make(map[string]string),
	}
}

// ID identifies this transport in logs.
func (c *Channel) ID() string {
	return "slack"
}

// Start serves the Events API endpoint until ctx is cancelled.
func (c *Channel) Start(ctx context.Context, handler transport.Handler) error {
	c.mu.Lock()
	c.handler = handler
	c.mu.Unlock()

	mux := http.NewServeMux()
	mux.HandleFunc(c.cfg.EventPath, c.handleEvent)
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	c.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", c.cfg.ListenPort),
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("[Slack] Shutdown error: %v", err)
		}
	}()

	log.Printf("[Slack] Listening on :%d%s", c.cfg.ListenPort, c.cfg.EventPath)
	err := c.server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Send posts text to a Slack conversation via chat.postMessage.
func (c *Channel) Send(ctx context.Context, conversationID, text string) error {
	if strings.TrimSpace(c.cfg.BotToken) == "" {
		return fmt.Errorf("slack bot token is required")
	}
	if conversationID == "" {
		conversationID = c.cfg.DefaultChannel
	}
	if conversationID == "" {
		return fmt.Errorf("slack conversation id is required")
	}

	payload, _ := sjson.Set("", "channel", conversationID)
	payload, _ = sjson.Set(payload, "text", text)

	body, err := c.callAPI(ctx, http.MethodPost, "chat.postMessage", payload)
	if err != nil {
		return err
	}
	if !gjson.GetBytes(body, "ok").Bool() {
		return fmt.Errorf("slack api error: %s", gjson.GetBytes(body, "error").String())
	}
	return nil
}

// ResolveDisplayName maps a Slack user id to its display name via users.info,
// caching results for the lifetime of the channel.
func (c *Channel) ResolveDisplayName(ctx context.Context, authorID string) (string, error) {
	c.mu.RLock()
	name, ok := c.names[authorID]
	c.mu.RUnlock()
	if ok {
		return name, nil
	}

	body, err := c.callAPI(ctx, http.MethodGet, "users.info?user="+url.QueryEscape(authorID), "")
	if err != nil {
		return "", err
	}
	if !gjson.GetBytes(body, "ok").Bool() {
		return "", fmt.Errorf("slack api error: %s", gjson.GetBytes(body, "error").String())
	}

	user := gjson.GetBytes(body, "user")
	name = strings.TrimSpace(user.Get("profile.display_name").String())
	if name == "" {
		name = strings.TrimSpace(user.Get("real_name").String())
	}
	if name == "" {
		name = strings.TrimSpace(user.Get("name").String())
	}
	if name == "" {
		return "", fmt.Errorf("slack user %s has no usable display name", authorID)
	}

	c.mu.Lock()
	c.names[authorID] = name
	c.mu.Unlock()
	return name, nil
}

func (c *Channel) callAPI(ctx context.Context, method, endpoint, payload string) ([]byte, error) {
	var reqBody io.Reader
	if payload != "" {
		reqBody = strings.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(c.cfg.APIRoot, "/")+"/"+endpoint, reqBody)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.cfg.BotToken))
	if payload != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("slack api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}

func (c *Channel) handleEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	envelope := gjson.ParseBytes(body)
	if envelope.Get("type").String() == "url_verification" {
		w.Header().Set("Content-Type", "application/json")
		ack, _ := sjson.Set("", "challenge", envelope.Get("challenge").String())
		_, _ = w.Write([]byte(ack))
		return
	}

	// Acknowledge immediately; Slack retries on slow responses.
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))

	if envelope.Get("type").String() != "event_callback" {
		return
	}
	event := envelope.Get("event")
	if event.Get("type").String() != "message" || event.Get("subtype").String() != "" {
		return
	}

	text := stripMentions(event.Get("text").String())
	if strings.TrimSpace(text) == "" {
		return
	}

	msg := transport.Message{
		ID:             uuid.New().String(),
		AuthorID:       strings.TrimSpace(event.Get("user").String()),
		Text:           text,
		ConversationID: strings.TrimSpace(event.Get("channel").String()),
		Timestamp:      eventTime(event.Get("ts").String()),
	}
	if msg.AuthorID == "" {
		return
	}

	c.mu.RLock()
	handler := c.handler
	c.mu.RUnlock()
	if handler != nil {
		go handler(msg)
	}
}

var mentionToken = regexp.MustCompile(`^\s*<@[^>]+>\s*`)

// stripMentions removes leading @bot mentions so they do not read as prose.
func stripMentions(text string) string {
	for {
		stripped := mentionToken.ReplaceAllString(text, "")
		if stripped == text {
			return text
		}
		text = stripped
	}
}

// eventTime converts a Slack "seconds.micros" ts into a time.Time, falling
// back to now when absent or malformed.
func eventTime(ts string) time.Time {
	f, err := strconv.ParseFloat(ts, 64)
	if err != nil || f <= 0 {
		return time.Now()
	}
	sec := int64(f)
	nsec := int64((f - float64(sec)) * 1e9)
	return time.Unix(sec, nsec)
}
