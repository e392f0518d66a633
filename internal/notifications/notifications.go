package notifications

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const DefaultBaseURL = "https://ntfy.sh"

// Notifier posts messages to an ntfy topic. Send on a nil Notifier returns an error instead of
// panicking, so an unconfigured topic degrades to a logged failure.
type Notifier struct {
	BaseURL string
	Topic   string
	Client  *http.Client
}

func New(topic string) *Notifier {
	if topic == "" {
		log.Warn().Msg("Ntfy topic not configured - notifications disabled")
		return nil
	}

	log.Info().
		Str("topic", topic).
		Msg("Ntfy notifications initialized")

	return &Notifier{
		BaseURL: DefaultBaseURL,
		Topic:   topic,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Send sends a notification to the configured topic
func (n *Notifier) Send(title, message string) error {
	if n == nil || n.Topic == "" {
		return fmt.Errorf("notifications not initialized")
	}

	payload := map[string]interface{}{
		"topic":   n.Topic,
		"title":   title,
		"message": message,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	// ntfy takes JSON publishes on the root URL, the topic travels in the body
	url := strings.TrimRight(n.BaseURL, "/") + "/"
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	client := n.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("ntfy returned non-success status: %d", resp.StatusCode)
	}

	log.Debug().
		Str("title", title).
		Int("status", resp.StatusCode).
		Msg("Notification sent successfully")

	return nil
}
