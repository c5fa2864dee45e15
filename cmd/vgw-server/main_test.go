package main

import (
	"bytes"
	"context"
	"strings"
	"testing"
	"time"
)

func TestRunServesAndShutsDown(t *testing.T) {
	t.Setenv("VGW_TTS_PROVIDER", "")
	t.Setenv("VGW_STT_WHISPER_API_KEY", "test")
	t.Setenv("VGW_CHAT_DIFY_API_KEY", "test")
	t.Setenv("VGW_TTS_FISHAUDIO_API_KEY", "test")

	ctx, cancel := context.WithCancel(context.Background())
	var stdout bytes.Buffer

	done := make(chan error, 1)
	go func() {
		done <- run(ctx, []string{"-addr", "127.0.0.1:0"}, &stdout)
	}()

	// The listener address is random; just give the server a beat to start,
	// then request shutdown and verify a clean exit.
	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not shut down")
	}

	if !strings.Contains(stdout.String(), "tts-fishaudio") {
		t.Fatalf("startup summary missing providers:\n%s", stdout.String())
	}
}

func TestRunUnknownSynthesizerFails(t *testing.T) {
	t.Setenv("VGW_TTS_PROVIDER", "espeak")

	err := run(context.Background(), []string{"-addr", "127.0.0.1:0"}, &bytes.Buffer{})
	if err == nil {
		t.Fatalf("expected bootstrap failure for unknown tts provider")
	}
}

func TestRunRejectsBadFlags(t *testing.T) {
	if err := run(context.Background(), []string{"-definitely-not-a-flag"}, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected flag parse error")
	}
}
