package netchan

import (
	"context"
	"errors"
	"testing"
	"time"
)

func roundTrip(t *testing.T, transport string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	l, err := NewListener(ctx, Config{Transport: transport, Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	accepted := make(chan Channel, 1)
	go func() {
		ch, err := l.Accept(ctx)
		if err != nil {
			t.Errorf("Accept: %v", err)
			accepted <- nil
			return
		}
		accepted <- ch
	}()

	guest, err := Dial(ctx, Config{Transport: transport, Addr: l.Addr(), DialTimeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("Dial: %v", err)
	}
	defer guest.Close()
	host := <-accepted
	if host == nil {
		t.FailNow()
	}
	defer host.Close()

	if err := guest.Send(ctx, []byte{0x12, 0x00}); err != nil {
		t.Fatalf("guest send: %v", err)
	}
	got, err := host.Receive(ctx)
	if err != nil || len(got) != 2 || got[0] != 0x12 {
		t.Fatalf("host receive: %x %v", got, err)
	}
	if err := host.Send(ctx, []byte("ack")); err != nil {
		t.Fatalf("host send: %v", err)
	}
	if got := waitMessage(t, guest); string(got) != "ack" {
		t.Fatalf("guest got %q", got)
	}
}

func TestTCPListenDial(t *testing.T) { roundTrip(t, TransportTCP) }

func TestWebSocketListenDial(t *testing.T) { roundTrip(t, TransportWS) }

func TestUnknownTransport(t *testing.T) {
	_, err := NewListener(context.Background(), Config{Transport: "carrier-pigeon", Addr: "127.0.0.1:0"})
	if !errors.Is(err, ErrUnknownTransport) {
		t.Fatalf("want ErrUnknownTransport, got %v", err)
	}
	_, err = Dial(context.Background(), Config{Transport: "carrier-pigeon", Addr: "127.0.0.1:1"})
	if !errors.Is(err, ErrUnknownTransport) {
		t.Fatalf("want ErrUnknownTransport, got %v", err)
	}
}

func TestAcceptCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l, err := NewListener(ctx, Config{Addr: "127.0.0.1:0"})
	if err != nil {
		t.Fatalf("NewListener: %v", err)
	}
	cancel()
	if _, err := l.Accept(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func TestWSURL(t *testing.T) {
	if got := wsURL("127.0.0.1:7777", "/play"); got != "ws://127.0.0.1:7777/play" {
		t.Fatalf("got %s", got)
	}
	if got := wsURL("wss://example.test/x", "/play"); got != "wss://example.test/x" {
		t.Fatalf("got %s", got)
	}
}
