package runner

import (
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/strand-rt/strand/pkg/server"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubServer records the blocking permission it was granted each cycle.
type stubServer struct {
	kind server.Kind
	runs []bool
	err  error
}

func (s *stubServer) Kind() server.Kind {
	return s.kind
}

func (s *stubServer) Run(canBlock bool, _ float64) error {
	s.runs = append(s.runs, canBlock)
	return s.err
}

func (s *stubServer) ToTransferable() (server.Transferable, error) {
	return server.Transferable{}, server.ErrNotTransferable
}

func TestEmptyContainer(t *testing.T) {
	var c Container
	if c.DoesRun() {
		t.Error("empty container reports DoesRun")
	}
	if err := c.RunSingle(true, 0); err != nil {
		t.Errorf("RunSingle() on empty container error = %v", err)
	}
	if kinds := c.Kinds(); len(kinds) != 0 {
		t.Errorf("Kinds() = %v, want empty", kinds)
	}
}

func TestTakeAbsentKind(t *testing.T) {
	var c Container

	_, ok, err := c.Take(server.KindDraw)
	if err != nil {
		t.Fatalf("Take() error = %v", err)
	}
	if ok {
		t.Error("Take() of an absent kind reported presence")
	}

	if _, err := c.TakeChecked(server.KindDraw); !errors.Is(err, ErrServerAbsent) {
		t.Errorf("TakeChecked() error = %v, want ErrServerAbsent", err)
	}
}

func TestEmplaceCheckedDuplicatePanics(t *testing.T) {
	var c Container

	first, err := server.NewAudio(testLogger()).ToTransferable()
	if err != nil {
		t.Fatalf("ToTransferable() error = %v", err)
	}
	if err := c.EmplaceChecked(first); err != nil {
		t.Fatalf("EmplaceChecked() error = %v", err)
	}

	second, err := server.NewAudio(testLogger()).ToTransferable()
	if err != nil {
		t.Fatalf("ToTransferable() error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("EmplaceChecked() with a duplicate kind did not panic")
		}
	}()
	c.EmplaceChecked(second)
}

func TestRunSingleTwoServersNeverBlock(t *testing.T) {
	var c Container
	audio := &stubServer{kind: server.KindAudio}
	update := &stubServer{kind: server.KindUpdate}
	c.servers[server.KindAudio] = audio
	c.servers[server.KindUpdate] = update

	for i := 0; i < 5; i++ {
		if err := c.RunSingle(true, 60); err != nil {
			t.Fatalf("RunSingle() error = %v", err)
		}
	}

	for _, s := range []*stubServer{audio, update} {
		if len(s.runs) != 5 {
			t.Fatalf("%s ran %d times, want 5", s.kind, len(s.runs))
		}
		for i, canBlock := range s.runs {
			if canBlock {
				t.Errorf("%s cycle %d granted blocking with a co-resident server", s.kind, i)
			}
		}
	}
}

func TestRunSingleSoleServerMayBlock(t *testing.T) {
	var c Container
	audio := &stubServer{kind: server.KindAudio}
	c.servers[server.KindAudio] = audio

	if err := c.RunSingle(true, 60); err != nil {
		t.Fatalf("RunSingle() error = %v", err)
	}
	if len(audio.runs) != 1 || !audio.runs[0] {
		t.Errorf("sole server runs = %v, want [true]", audio.runs)
	}
}

func TestRunSingleCallerDeniesBlocking(t *testing.T) {
	var c Container
	audio := &stubServer{kind: server.KindAudio}
	c.servers[server.KindAudio] = audio

	if err := c.RunSingle(false, 60); err != nil {
		t.Fatalf("RunSingle() error = %v", err)
	}
	if audio.runs[0] {
		t.Error("server was granted blocking although the caller denied it")
	}
}

func TestRunSingleServerError(t *testing.T) {
	var c Container
	boom := errors.New("boom")
	c.servers[server.KindUpdate] = &stubServer{kind: server.KindUpdate, err: boom}

	if err := c.RunSingle(true, 0); !errors.Is(err, boom) {
		t.Errorf("RunSingle() error = %v, want wrapped boom", err)
	}
}

func TestTakeKeepsServerOnDetachFailure(t *testing.T) {
	var c Container
	c.servers[server.KindDraw] = &stubServer{kind: server.KindDraw}

	_, _, err := c.Take(server.KindDraw)
	if !errors.Is(err, server.ErrNotTransferable) {
		t.Fatalf("Take() error = %v, want ErrNotTransferable", err)
	}
	if !c.Has(server.KindDraw) {
		t.Error("server was removed although its detach failed")
	}
}

// TestRoundTrip takes a server from one container and emplaces it into
// another; the destination must be behaviorally indistinguishable from the
// source before the take.
func TestRoundTrip(t *testing.T) {
	audio := server.NewAudio(testLogger())
	tr, err := audio.ToTransferable()
	if err != nil {
		t.Fatalf("ToTransferable() error = %v", err)
	}

	var a Container
	if err := a.EmplaceChecked(tr); err != nil {
		t.Fatalf("EmplaceChecked() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := a.RunSingle(false, 0); err != nil {
			t.Fatalf("RunSingle() error = %v", err)
		}
	}

	taken, err := a.TakeChecked(server.KindAudio)
	if err != nil {
		t.Fatalf("TakeChecked() error = %v", err)
	}
	if a.DoesRun() {
		t.Error("source container still runs after the take")
	}

	var b Container
	if err := b.EmplaceChecked(taken); err != nil {
		t.Fatalf("EmplaceChecked() into destination error = %v", err)
	}
	if !b.DoesRun() {
		t.Fatal("destination container does not run after the emplace")
	}
	if err := b.RunSingle(false, 0); err != nil {
		t.Fatalf("RunSingle() on destination error = %v", err)
	}
	if got := audio.Cycles(); got != 4 {
		t.Errorf("Cycles() = %d after round trip, want 4", got)
	}
}
