//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/mbocsi/avi/client"
	"github.com/mbocsi/avi/features"
)

func TestWebSocketTransport(t *testing.T) {
	srv := startServer(t)
	d := connectWS(t, srv.wsAddr, 0x77)

	d.subscribe(t, srv, "echo")
	if err := d.Publish("echo", []byte("hello")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}
	if got := d.waitFor(t, "echo", 1); got[0] != "hello" {
		t.Errorf("Expected hello, got %s", got[0])
	}
}

func TestMixedTransports(t *testing.T) {
	srv := startServer(t)
	udpDevice := connectUDP(t, srv.udpAddr, 1)
	wsDevice := connectWS(t, srv.wsAddr, 2)

	wsDevice.subscribe(t, srv, "from/udp")
	udpDevice.subscribe(t, srv, "from/ws")

	udpDevice.Publish("from/udp", []byte("u"))
	wsDevice.Publish("from/ws", []byte("w"))

	if got := wsDevice.waitFor(t, "from/udp", 1); got[0] != "u" {
		t.Errorf("Expected u, got %s", got[0])
	}
	if got := udpDevice.waitFor(t, "from/ws", 1); got[0] != "w" {
		t.Errorf("Expected w, got %s", got[0])
	}
}

// recordingStrip captures pixel writes from the LED feature.
type recordingStrip struct {
	writes chan [4]uint8
}

func (s *recordingStrip) Len() int { return 8 }

func (s *recordingStrip) SetPixel(i int, r, g, b uint8) error {
	s.writes <- [4]uint8{uint8(i), r, g, b}
	return nil
}

func (s *recordingStrip) Clear() error                          { return nil }
func (s *recordingStrip) SetAnimation(int, time.Duration) error { return nil }
func (s *recordingStrip) Update(bool)                           {}

func TestFeatureRuntimeLedControl(t *testing.T) {
	srv := startServer(t)

	strip := &recordingStrip{writes: make(chan [4]uint8, 4)}
	manager := features.NewManager(nil)
	manager.Add(features.NewLedFeature(strip, nil))

	tr, err := client.DialUDP(srv.udpAddr)
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	c, err := client.New(0xBEEF, tr, manager.HandleMessage)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	rt := features.NewRuntime(c, manager)
	rt.Interval = 5 * time.Millisecond
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rt.Run(ctx)
		close(done)
	}()
	defer func() {
		cancel()
		<-done
	}()

	deadline := time.Now().Add(3 * time.Second)
	for len(srv.avi.GetBroker().Subs(features.LedControlTopic)) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("LED feature never subscribed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if _, err := srv.avi.Coordinator().PublishFromServer(features.LedControlTopic, []byte("2,255,0,10")); err != nil {
		t.Fatalf("PublishFromServer failed: %v", err)
	}

	select {
	case got := <-strip.writes:
		if got != [4]uint8{2, 255, 0, 10} {
			t.Errorf("Expected pixel 2 set to 255,0,10, got %v", got)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("LED command never reached the strip")
	}
}
