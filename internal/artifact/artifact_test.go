package artifact

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/vladislavdragonenkov/checkout/internal/clock"
	"github.com/vladislavdragonenkov/checkout/internal/domain"
)

type stubClipboard struct {
	mu   sync.Mutex
	last string
	err  error
}

func (s *stubClipboard) Write(text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.last = text
	return nil
}

func (s *stubClipboard) Last() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

var _ domain.Clipboard = (*stubClipboard)(nil)

func newTestGenerator(t *testing.T) (*Generator, *clock.Manual, *stubClipboard) {
	t.Helper()
	clk := clock.NewManual(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC))
	board := &stubClipboard{}
	return NewGenerator(clk, board, nil), clk, board
}

func drain(b interface{ Tick() bool }, n int) {
	for i := 0; i < n; i++ {
		b.Tick()
	}
}

func TestBoleto_ExpiresExactlyAtTTL(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)

	expirations := 0
	b := gen.IssueBoleto(func() { expirations++ })

	if b.Remaining() != BoletoTTLSeconds {
		t.Fatalf("expected remaining %d, got %d", BoletoTTLSeconds, b.Remaining())
	}

	drain(b, BoletoTTLSeconds-1)
	if b.Expired() {
		t.Fatal("boleto must not expire one tick early")
	}
	if expirations != 0 {
		t.Fatalf("expire hook fired early: %d", expirations)
	}

	if !b.Tick() {
		t.Fatal("final tick must report expiry")
	}
	if !b.Expired() || b.Remaining() != 0 {
		t.Fatalf("expected expired at zero, remaining=%d", b.Remaining())
	}
	if expirations != 1 {
		t.Fatalf("expected exactly one expire hook call, got %d", expirations)
	}

	// Дальнейшие тики ничего не меняют.
	if b.Tick() {
		t.Fatal("tick after expiry must be a no-op")
	}
	if expirations != 1 {
		t.Fatalf("expire hook fired again: %d", expirations)
	}
}

func TestBoleto_MarkPaidAfterExpiry(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)
	b := gen.IssueBoleto(nil)
	drain(b, BoletoTTLSeconds)

	if err := b.MarkPaid(); !errors.Is(err, domain.ErrBoletoExpired) {
		t.Fatalf("expected ErrBoletoExpired, got %v", err)
	}
}

func TestBoleto_MarkPaidStopsCountdown(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)
	b := gen.IssueBoleto(nil)

	drain(b, 10)
	if err := b.MarkPaid(); err != nil {
		t.Fatalf("mark paid failed: %v", err)
	}
	remaining := b.Remaining()
	if b.Tick() {
		t.Fatal("tick after payment must be a no-op")
	}
	if b.Remaining() != remaining {
		t.Fatal("countdown must freeze after payment")
	}
}

func TestBoleto_DueDateIsThreeDaysOut(t *testing.T) {
	t.Parallel()

	gen, clk, _ := newTestGenerator(t)
	b := gen.IssueBoleto(nil)

	if want := clk.Now().Add(72 * time.Hour); !b.DueDate().Equal(want) {
		t.Fatalf("expected due date %s, got %s", want, b.DueDate())
	}
}

func TestPix_ExpiryAndRegenerate(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)

	expirations := 0
	p := gen.IssuePix(func() { expirations++ })
	firstCode := p.Code()

	drain(p, PixTTLSeconds)
	if !p.Expired() {
		t.Fatal("pix must expire after TTL ticks")
	}
	if expirations != 1 {
		t.Fatalf("expected one expire hook call, got %d", expirations)
	}
	if err := p.MarkPaid(); !errors.Is(err, domain.ErrPixExpired) {
		t.Fatalf("expected ErrPixExpired, got %v", err)
	}

	if err := p.Regenerate(); err != nil {
		t.Fatalf("regenerate failed: %v", err)
	}
	if p.Expired() {
		t.Fatal("regenerate must clear the expired flag")
	}
	if p.Remaining() != PixTTLSeconds {
		t.Fatalf("expected remaining %d after regenerate, got %d", PixTTLSeconds, p.Remaining())
	}
	if p.Code() == firstCode {
		t.Fatal("regenerate must issue a fresh code")
	}

	if err := p.MarkPaid(); err != nil {
		t.Fatalf("mark paid after regenerate failed: %v", err)
	}
}

func TestPix_RegenerateAfterClose(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)
	p := gen.IssuePix(nil)
	p.Close()

	if err := p.Regenerate(); !errors.Is(err, domain.ErrArtifactClosed) {
		t.Fatalf("expected ErrArtifactClosed, got %v", err)
	}
	if err := p.MarkPaid(); !errors.Is(err, domain.ErrArtifactClosed) {
		t.Fatalf("expected ErrArtifactClosed, got %v", err)
	}
}

func TestCopy_AckRevertsAfterThreeSeconds(t *testing.T) {
	t.Parallel()

	gen, clk, board := newTestGenerator(t)
	b := gen.IssueBoleto(nil)

	if err := b.Copy(); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	if board.Last() != b.Barcode() {
		t.Fatal("clipboard must hold the barcode")
	}
	if !b.Copied() {
		t.Fatal("copied flag must be raised")
	}

	clk.Advance(2 * time.Second)
	if !b.Copied() {
		t.Fatal("copied flag must survive two seconds")
	}

	// Повторное копирование перезапускает трёхсекундный отсчёт.
	if err := b.Copy(); err != nil {
		t.Fatalf("second copy failed: %v", err)
	}
	clk.Advance(2 * time.Second)
	if !b.Copied() {
		t.Fatal("re-copy must restart the ack window")
	}
	clk.Advance(time.Second)
	if b.Copied() {
		t.Fatal("copied flag must drop after three seconds")
	}
}

func TestCopy_ClipboardErrorKeepsFlagDown(t *testing.T) {
	t.Parallel()

	clk := clock.NewManual(time.Unix(0, 0))
	board := &stubClipboard{err: errors.New("denied")}
	gen := NewGenerator(clk, board, nil)
	p := gen.IssuePix(nil)

	if err := p.Copy(); err == nil {
		t.Fatal("expected clipboard error")
	}
	if p.Copied() {
		t.Fatal("copied flag must stay down on error")
	}
}

func TestClose_DropsCopyAck(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)
	b := gen.IssueBoleto(nil)

	if err := b.Copy(); err != nil {
		t.Fatalf("copy failed: %v", err)
	}
	b.Close()
	if b.Copied() {
		t.Fatal("close must drop the copied flag")
	}
	if b.Tick() {
		t.Fatal("tick after close must be a no-op")
	}
}

func TestRun_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)
	b := gen.IssueBoleto(nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		b.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run must return after context cancel")
	}
}

var barcodePattern = regexp.MustCompile(`^\d{5}\.\d{5} \d{5}\.\d{6} \d{5}\.\d{6} \d \d{14}$`)

func TestGenerator_BarcodeFormat(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)
	b := gen.IssueBoleto(nil)

	if !barcodePattern.MatchString(b.Barcode()) {
		t.Fatalf("unexpected barcode format: %q", b.Barcode())
	}
}

func TestGenerator_PixCodeFormat(t *testing.T) {
	t.Parallel()

	gen, _, _ := newTestGenerator(t)
	p := gen.IssuePix(nil)

	code := p.Code()
	if !strings.HasPrefix(code, "00020126580014BR.GOV.BCB.PIX0136") {
		t.Fatalf("unexpected pix code prefix: %q", code)
	}
	if !strings.Contains(code, "PAYMILLES PAGAMENTOS") {
		t.Fatalf("pix code must carry the merchant name: %q", code)
	}
	if p.ExpiresAt().Sub(p.IssuedAt()) != PixTTLSeconds*time.Second {
		t.Fatal("pix expiry must be thirty minutes from issue")
	}
}
