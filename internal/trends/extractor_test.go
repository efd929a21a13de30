package trends

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestPageURL(t *testing.T) {
	got := PageURL("KR", "44")
	want := "https://trends.google.com/trending?geo=KR&sort=search-volume&hours=168&category=44"
	if got != want {
		t.Errorf("PageURL = %q, want %q", got, want)
	}
}

func TestChannelDelimiters(t *testing.T) {
	if c := NewClipboardChannel(); c.Name() != "clipboard" || c.Delimiter() != '\t' {
		t.Errorf("clipboard channel = %q/%q", c.Name(), c.Delimiter())
	}
	if c := NewDownloadChannel(); c.Name() != "download" || c.Delimiter() != ',' {
		t.Errorf("download channel = %q/%q", c.Name(), c.Delimiter())
	}
}

func TestNewExtractor_Defaults(t *testing.T) {
	e := NewExtractor(Config{})
	if e.channel == nil || e.channel.Name() != "clipboard" {
		t.Error("default channel must be clipboard")
	}
	if e.loc == nil || len(e.loc.locales) != len(DefaultLocales) {
		t.Error("default locales must be installed")
	}
	if e.uas == nil {
		t.Error("default user-agent pool must be installed")
	}
	if e.headful {
		t.Error("zero-value config must run headless")
	}
}

func TestRunBounded_StalledRunCancels(t *testing.T) {
	var canceled atomic.Bool
	done := make(chan struct{})

	err := runBounded(20*time.Millisecond, func() { canceled.Store(true); close(done) }, func() error {
		// Stand-in for a launch that only fails once the session is torn down.
		<-done
		return errors.New("session closed")
	})
	if err == nil {
		t.Fatal("expected the stalled run to surface an error")
	}
	if !canceled.Load() {
		t.Error("a stalled launch must cancel the session")
	}
}

func TestRunBounded_PromptRunLeavesSessionAlive(t *testing.T) {
	var canceled atomic.Bool

	err := runBounded(50*time.Millisecond, func() { canceled.Store(true) }, func() error {
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// The browser outlives the launch step; the bound must not fire late.
	time.Sleep(80 * time.Millisecond)
	if canceled.Load() {
		t.Error("a prompt launch must leave the session running")
	}
}
