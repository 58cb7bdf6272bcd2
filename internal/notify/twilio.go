package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const twilioAPI = "https://api.twilio.com/2010-04-01"

// Twilio sends WhatsApp messages through the Twilio Messages REST API.
type Twilio struct {
	sid     string
	token   string
	from    string
	to      string
	baseURL string
	client  *http.Client
}

// NewTwilio creates a WhatsApp sender. Numbers may be given with or without
// the "whatsapp:" channel prefix.
func NewTwilio(sid, token, from, to string) *Twilio {
	return &Twilio{
		sid:     sid,
		token:   token,
		from:    whatsapp(from),
		to:      whatsapp(to),
		baseURL: twilioAPI,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

func whatsapp(number string) string {
	number = strings.TrimSpace(number)
	if strings.HasPrefix(number, "whatsapp:") {
		return number
	}
	return "whatsapp:" + number
}

// Send posts one message.
func (t *Twilio) Send(ctx context.Context, body string) error {
	form := url.Values{}
	form.Set("From", t.from)
	form.Set("To", t.to)
	form.Set("Body", body)

	endpoint := fmt.Sprintf("%s/Accounts/%s/Messages.json", t.baseURL, url.PathEscape(t.sid))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(t.sid, t.token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio api status %d: %s", resp.StatusCode, data)
	}
	return nil
}
