package engine

import (
	"os"
	"reflect"
	"syscall"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spaghettifunk/spincube/engine/assets"
)

func waitClosed(t *testing.T, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatal("signal goroutine did not exit")
	}
}

func TestForwardSignalExitsWhenDone(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	called := false
	exited := forwardSignal(sigCh, done, func(os.Signal) { called = true })

	close(done)
	waitClosed(t, exited)
	if called {
		t.Error("handler ran without a signal")
	}
}

func TestForwardSignalDeliversFirstSignal(t *testing.T) {
	sigCh := make(chan os.Signal, 1)
	done := make(chan struct{})
	defer close(done)

	var got os.Signal
	exited := forwardSignal(sigCh, done, func(sig os.Signal) { got = sig })
	sigCh <- syscall.SIGTERM
	waitClosed(t, exited)

	if got != syscall.SIGTERM {
		t.Fatalf("handler got %v", got)
	}
}

func TestDrainAssetEvents(t *testing.T) {
	events := make(chan assets.Event, 4)
	events <- assets.Event{Name: "cube.vert.spv", Op: fsnotify.Write}
	events <- assets.Event{Name: "unrelated.spv", Op: fsnotify.Create}
	events <- assets.Event{Name: "cube.frag.spv", Op: fsnotify.Remove}

	got := drainAssetEvents(events, "cube.vert.spv", "cube.frag.spv")
	if want := []string{"cube.vert.spv", "cube.frag.spv"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("changed = %v, want %v", got, want)
	}
	if len(events) != 0 {
		t.Fatalf("%d events left unread", len(events))
	}

	// An empty channel must not block the frame loop.
	if got := drainAssetEvents(events, "cube.vert.spv"); got != nil {
		t.Fatalf("changed = %v on an empty channel", got)
	}

	close(events)
	if got := drainAssetEvents(events, "cube.vert.spv"); got != nil {
		t.Fatalf("changed = %v on a closed channel", got)
	}
}
