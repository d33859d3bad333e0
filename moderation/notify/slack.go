package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

var slackClient = &http.Client{Timeout: DefaultSendTimeout}

// Mirrors log notifications to a Slack channel via "incoming webhook".
//
// Rate warnings (which are addressed to the flooded channel itself) are not mirrored.
type SlackSink struct {
	SlackWebhookURL string
	// Defaults to a client with a DefaultSendTimeout timeout
	Client *http.Client
}

func NewSlackSink(webhookURL string, timeout time.Duration) *SlackSink {
	if timeout <= 0 {
		timeout = DefaultSendTimeout
	}
	return &SlackSink{
		SlackWebhookURL: webhookURL,
		Client:          &http.Client{Timeout: timeout},
	}
}

type SlackWebhookBody struct {
	Text string `json:"text"`
}

func (s *SlackSink) Send(ctx context.Context, n Notification) error {
	if !n.Kind.IsLog() {
		return nil
	}
	return s.sendSlackMsg(ctx, slackBody(n))
}

// The slack incoming webhook must be already configured in the slack workplace.
func (s *SlackSink) sendSlackMsg(ctx context.Context, msg string) error {
	body, err := json.Marshal(SlackWebhookBody{Text: msg})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.SlackWebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Add("Content-Type", "application/json")
	client := s.Client
	if client == nil {
		client = slackClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf := new(bytes.Buffer)
	buf.ReadFrom(resp.Body)
	if resp.StatusCode != 200 || buf.String() != "ok" {
		return fmt.Errorf("failed slack webhook POST request. status=%d", resp.StatusCode)
	}
	return nil
}

func slackBody(n Notification) string {
	var b strings.Builder
	switch n.Kind {
	case KindRateLog:
		b.WriteString("🚨 Rate Limit Triggered 🚨\n")
		fmt.Fprintf(&b, "exceeded `%d` messages/second, slowmode now `%ds`\n", n.Threshold, n.Level)
	case KindDecayLog:
		b.WriteString("🐢 Slowmode Decayed\n")
		fmt.Fprintf(&b, "slowmode now `%ds` after %s without infractions\n", n.Level, n.Interval)
	case KindScamBan:
		b.WriteString("🔨 Scam Buster Ban\n")
	case KindScamBanFailed:
		b.WriteString("⚠️ Scam Buster Ban failed ⚠️\n")
		fmt.Fprintf(&b, "Reason: %s\n", n.Reason)
	case KindScamGateEnabled:
		b.WriteString("🛡️ Scam Buster enabled\n")
	case KindScamGateDisabled:
		b.WriteString("🛡️ Scam Buster disabled\n")
	default:
		fmt.Fprintf(&b, "%s\n", n.Kind)
	}
	fmt.Fprintf(&b, "guild `%s` / channel `%s`\n", n.Key.GuildID, n.Key.ChannelID)
	if n.UserID != "" {
		fmt.Fprintf(&b, "user `%s` (`%s`)\n", n.UserTag, n.UserID)
	}
	if n.ActorID != "" {
		fmt.Fprintf(&b, "by `%s`\n", n.ActorID)
	}
	if n.IncidentID != "" {
		fmt.Fprintf(&b, "incident `%s`\n", n.IncidentID)
	}
	if n.Excerpt != "" {
		fmt.Fprintf(&b, "```\n%s\n```\n", n.Excerpt)
	}
	return b.String()
}
