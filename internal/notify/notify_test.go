package notify

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lazypower/nudge/internal/config"
	"github.com/lazypower/nudge/internal/observe"
)

func TestTwilioSend(t *testing.T) {
	var gotPath, gotUser, gotPass string
	var gotForm map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		r.ParseForm()
		gotForm = map[string]string{
			"From": r.PostForm.Get("From"),
			"To":   r.PostForm.Get("To"),
			"Body": r.PostForm.Get("Body"),
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"sid":"SM1"}`))
	}))
	defer srv.Close()

	tw := NewTwilio("AC123", "secret", "+14155238886", "whatsapp:+919999999999")
	tw.baseURL = srv.URL
	if err := tw.Send(context.Background(), "🧠 hello"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotPath != "/Accounts/AC123/Messages.json" {
		t.Errorf("path = %s", gotPath)
	}
	if gotUser != "AC123" || gotPass != "secret" {
		t.Errorf("basic auth = %s:%s", gotUser, gotPass)
	}
	if gotForm["From"] != "whatsapp:+14155238886" || gotForm["To"] != "whatsapp:+919999999999" {
		t.Errorf("form = %v", gotForm)
	}
	if gotForm["Body"] != "🧠 hello" {
		t.Errorf("Body = %q", gotForm["Body"])
	}
}

func TestTwilioSendError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"code":20003,"message":"Authenticate"}`))
	}))
	defer srv.Close()

	tw := NewTwilio("AC123", "bad", "+1", "+2")
	tw.baseURL = srv.URL
	err := tw.Send(context.Background(), "x")
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("Send = %v, want status 401 error", err)
	}
}

func TestNewSender(t *testing.T) {
	obs := observe.Discard()

	s, err := NewSender(config.NotifyConfig{Provider: "log"}, obs)
	if err != nil {
		t.Fatalf("log sender: %v", err)
	}
	if _, ok := s.(*LogSender); !ok {
		t.Errorf("expected *LogSender, got %T", s)
	}

	s, err = NewSender(config.NotifyConfig{
		Provider: "twilio", TwilioSID: "AC1", TwilioAuth: "t", From: "+1", Recipient: "+2",
	}, obs)
	if err != nil {
		t.Fatalf("twilio sender: %v", err)
	}
	if _, ok := s.(*Twilio); !ok {
		t.Errorf("expected *Twilio, got %T", s)
	}

	if _, err := NewSender(config.NotifyConfig{Provider: "twilio", TwilioSID: "AC1"}, obs); err == nil {
		t.Error("expected error for incomplete twilio config")
	}
	if _, err := NewSender(config.NotifyConfig{Provider: "pigeon"}, obs); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestLogSender(t *testing.T) {
	var buf bytes.Buffer
	s := &LogSender{obs: observe.New(&buf, true)}
	if err := s.Send(context.Background(), "Pay rent"); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !strings.Contains(buf.String(), "Pay rent") {
		t.Errorf("log output missing body: %q", buf.String())
	}
}

func TestMockSender(t *testing.T) {
	m := &MockSender{}
	m.Send(context.Background(), "a")
	m.Send(context.Background(), "b")
	if got := m.Sent(); len(got) != 2 || got[1] != "b" {
		t.Errorf("Sent = %v", got)
	}

	m.Err = errors.New("down")
	if err := m.Send(context.Background(), "c"); err == nil {
		t.Error("expected error")
	}
	if len(m.Sent()) != 2 {
		t.Error("failed send was recorded")
	}
}
