package server

import (
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/strand-rt/strand/pkg/channel"
	"github.com/strand-rt/strand/pkg/dispatch"
	"github.com/strand-rt/strand/pkg/event"
	"github.com/strand-rt/strand/pkg/gfx"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestKindString(t *testing.T) {
	cases := []struct {
		kind Kind
		want string
	}{
		{KindAudio, "audio"},
		{KindDraw, "draw"},
		{KindUpdate, "update"},
		{Kind(99), "unknown"},
	}
	for _, c := range cases {
		if got := c.kind.String(); got != c.want {
			t.Errorf("Kind(%d).String() = %q, want %q", c.kind, got, c.want)
		}
	}
}

func TestEmptyTransferable(t *testing.T) {
	var tr Transferable
	if !tr.Empty() {
		t.Error("zero Transferable is not Empty")
	}
	if _, err := tr.IntoServer(); !errors.Is(err, ErrEmptyTransfer) {
		t.Errorf("IntoServer() error = %v, want ErrEmptyTransfer", err)
	}
}

func TestAudioRoundTrip(t *testing.T) {
	a := NewAudio(testLogger())
	if err := a.Run(false, 60); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	tr, err := a.ToTransferable()
	if err != nil {
		t.Fatalf("ToTransferable() error = %v", err)
	}
	if tr.Kind() != KindAudio {
		t.Errorf("Kind() = %v, want audio", tr.Kind())
	}

	s, err := tr.IntoServer()
	if err != nil {
		t.Fatalf("IntoServer() error = %v", err)
	}
	if s != Server(a) {
		t.Error("round trip did not preserve the audio server instance")
	}
	if a.Cycles() != 1 {
		t.Errorf("Cycles() = %d, want 1", a.Cycles())
	}
}

func TestDrawTransferUnbindsAndRebindsContext(t *testing.T) {
	ctx := gfx.NewContext("main window")
	d, _, err := NewDraw(testLogger(), ctx)
	if err != nil {
		t.Fatalf("NewDraw() error = %v", err)
	}
	if !ctx.Bound() {
		t.Fatal("NewDraw did not bind the context")
	}

	tr, err := d.ToTransferable()
	if err != nil {
		t.Fatalf("ToTransferable() error = %v", err)
	}
	if ctx.Bound() {
		t.Error("context still bound while in transit")
	}

	s, err := tr.IntoServer()
	if err != nil {
		t.Fatalf("IntoServer() error = %v", err)
	}
	if !ctx.Bound() {
		t.Error("IntoServer did not rebind the context")
	}
	if s.Kind() != KindDraw {
		t.Errorf("Kind() = %v, want draw", s.Kind())
	}
}

func TestDrawTakeFailsWhenContextDetached(t *testing.T) {
	ctx := gfx.NewContext("main window")
	d, _, err := NewDraw(testLogger(), ctx)
	if err != nil {
		t.Fatalf("NewDraw() error = %v", err)
	}

	// Detach behind the server's back; the checked take must now fail.
	ctx.Unbind()
	if _, err := d.ToTransferable(); !errors.Is(err, gfx.ErrNotBound) {
		t.Errorf("ToTransferable() error = %v, want ErrNotBound", err)
	}
}

func TestDrawExecutesQueuedRequests(t *testing.T) {
	ctx := gfx.NewContext("main window")
	d, ch, err := NewDraw(testLogger(), ctx)
	if err != nil {
		t.Fatalf("NewDraw() error = %v", err)
	}

	replyTx, replyRx := channel.New[any](1)
	fn := func(d *Draw) any {
		h, err := d.Context().CreateHandle("probe")
		if err != nil {
			return err
		}
		return h.ID()
	}
	if err := ch.Execute(fn, func(r any) { replyTx.Send(r) }); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}

	if err := d.Run(false, 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	v, err := replyRx.Recv(time.Second)
	if err != nil {
		t.Fatalf("reply Recv() error = %v", err)
	}
	if id, ok := v.(uint64); !ok || id == 0 {
		t.Errorf("reply = %v (%T), want non-zero handle id", v, v)
	}
	if d.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", d.Frames())
	}
}

func TestUpdateFiresElapsedTimeouts(t *testing.T) {
	proxy, events := event.NewQueue(8)
	u, ch := NewUpdate(testLogger(), proxy, nil)

	const id = dispatch.ID(7)
	if err := ch.SetTimeout(5*time.Millisecond, id); err != nil {
		t.Fatalf("SetTimeout() error = %v", err)
	}

	// First cycle arms the deadline.
	if err := u.Run(false, 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if u.Pending() != 1 {
		t.Fatalf("Pending() = %d, want 1", u.Pending())
	}

	time.Sleep(10 * time.Millisecond)
	if err := u.Run(false, 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if u.Pending() != 0 {
		t.Errorf("Pending() = %d after firing, want 0", u.Pending())
	}

	ev, err := events.Recv(time.Second)
	if err != nil {
		t.Fatalf("events Recv() error = %v", err)
	}
	d, ok := ev.(event.Dispatch)
	if !ok {
		t.Fatalf("event = %T, want event.Dispatch", ev)
	}
	if len(d.Msg.IDs) != 1 || d.Msg.IDs[0] != id {
		t.Errorf("fired ids = %v, want [%d]", d.Msg.IDs, id)
	}
}

func TestUpdateDoesNotFireEarly(t *testing.T) {
	proxy, events := event.NewQueue(8)
	u, ch := NewUpdate(testLogger(), proxy, nil)

	if err := ch.SetTimeout(time.Hour, dispatch.ID(1)); err != nil {
		t.Fatalf("SetTimeout() error = %v", err)
	}
	if err := u.Run(false, 0); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if _, err := events.Recv(0); !errors.Is(err, channel.ErrTimeout) {
		t.Errorf("events Recv() = %v, want ErrTimeout (nothing fired)", err)
	}
	if u.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", u.Pending())
	}
}

func TestUpdateTransfersWithDeadlines(t *testing.T) {
	proxy, _ := event.NewQueue(8)
	u, ch := NewUpdate(testLogger(), proxy, nil)

	ch.SetTimeout(time.Hour, dispatch.ID(1))
	u.Run(false, 0)

	tr, err := u.ToTransferable()
	if err != nil {
		t.Fatalf("ToTransferable() error = %v", err)
	}
	s, err := tr.IntoServer()
	if err != nil {
		t.Fatalf("IntoServer() error = %v", err)
	}
	if got := s.(*Update).Pending(); got != 1 {
		t.Errorf("Pending() after transfer = %d, want 1", got)
	}
}
