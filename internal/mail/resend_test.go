package mail

import (
	"context"
	"testing"

	"github.com/openonco/scout/internal/digest"
)

func TestNewResendMailerRequiresKey(t *testing.T) {
	if _, err := NewResendMailer("", nil); err == nil {
		t.Fatal("empty API key should be rejected")
	}
}

func TestSendRequiresRecipients(t *testing.T) {
	m, err := NewResendMailer("re_test_key", nil)
	if err != nil {
		t.Fatalf("NewResendMailer: %v", err)
	}
	if _, err := m.Send(context.Background(), digest.Message{Subject: "x"}); err == nil {
		t.Fatal("message without recipients should be rejected before any API call")
	}
}
