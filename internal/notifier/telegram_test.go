package notifier

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus/hooks/test"
)

func TestSend(t *testing.T) {
	var got map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/botTOKEN/sendMessage" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Error(err)
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	log, _ := test.NewNullLogger()
	tn := NewTelegramNotifier("TOKEN", "42", "", log)
	tn.APIBase = srv.URL
	if err := tn.Send(context.Background(), "olá"); err != nil {
		t.Fatal(err)
	}
	if got["chat_id"] != "42" || got["text"] != "olá" || got["parse_mode"] != "HTML" {
		t.Errorf("payload = %v", got)
	}
}

func TestSendWithRetryGivesUp(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	log, hook := test.NewNullLogger()
	tn := NewTelegramNotifier("TOKEN", "42", "", log)
	tn.APIBase = srv.URL
	if err := tn.SendWithRetry(context.Background(), "x", 0); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
	if len(hook.Entries) != 0 {
		t.Errorf("no retry warning expected without retries, got %d", len(hook.Entries))
	}
}

func TestEnabled(t *testing.T) {
	log, _ := test.NewNullLogger()
	if NewTelegramNotifier("", "42", "", log).Enabled() {
		t.Error("no token should disable")
	}
	var nilNotifier *TelegramNotifier
	if nilNotifier.Enabled() {
		t.Error("nil notifier should be disabled")
	}
	if !NewTelegramNotifier("t", "42", "", log).Enabled() {
		t.Error("token and chat should enable")
	}
}
