//go:build integration

package integration

import (
	"errors"
	"net"
	"testing"
	"time"

	"github.com/mbocsi/avi/client"
	"github.com/mbocsi/avi/proto"
	"github.com/mbocsi/avi/server"
)

func TestConnectAndPublish(t *testing.T) {
	srv := startServer(t)

	sensor := connectUDP(t, srv.udpAddr, 0x1234)
	display := connectUDP(t, srv.udpAddr, 0x5678)

	if sensor.State() != client.Connected {
		t.Fatalf("Expected connected, got %s", sensor.State())
	}
	if _, ok := srv.avi.GetRegistry().GetByDevice(0x1234); !ok {
		t.Fatal("Expected server to register device 0x1234")
	}

	display.subscribe(t, srv, "status")
	if err := sensor.Publish("status", []byte("ok")); err != nil {
		t.Fatalf("Publish failed: %v", err)
	}

	got := display.waitFor(t, "status", 1)
	if got[0] != "ok" {
		t.Errorf("Expected ok, got %s", got[0])
	}
}

func TestConnectTimeout(t *testing.T) {
	silent, err := net.ListenUDP("udp", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	if err != nil {
		t.Fatalf("Listen failed: %v", err)
	}
	defer silent.Close()

	tr, err := client.DialUDP(silent.LocalAddr().String())
	if err != nil {
		t.Fatalf("Dial failed: %v", err)
	}
	c, err := client.New(1, tr, func(string, []byte) {})
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}
	defer c.Close()

	err = c.Connect(100 * time.Millisecond)
	if !errors.Is(err, client.ErrConnectTimeout) {
		t.Errorf("Expected ErrConnectTimeout, got %v", err)
	}
	if c.State() != client.Disconnected {
		t.Errorf("Expected disconnected, got %s", c.State())
	}
}

func TestServerPublishToDevice(t *testing.T) {
	srv := startServer(t)
	d := connectUDP(t, srv.udpAddr, 1)
	d.subscribe(t, srv, "cmd")

	n, err := srv.avi.Coordinator().PublishFromServer("cmd", []byte{0x01})
	if err != nil || n != 1 {
		t.Fatalf("Expected 1 delivery, got %d (%v)", n, err)
	}
	if got := d.waitFor(t, "cmd", 1); got[0] != "\x01" {
		t.Errorf("Expected 0x01, got %q", got[0])
	}
}

func TestStreamBetweenDevices(t *testing.T) {
	srv := startServer(t)
	caller := connectUDP(t, srv.udpAddr, 0xA)
	callee := connectUDP(t, srv.udpAddr, 0xB)

	if err := caller.StartStream(3, server.PeerID(0xB), "intercom"); err != nil {
		t.Fatalf("StartStream failed: %v", err)
	}
	for _, chunk := range []string{"one", "two"} {
		if err := caller.SendStreamData(3, []byte(chunk)); err != nil {
			t.Fatalf("SendStreamData failed: %v", err)
		}
	}
	if err := caller.CloseStream(3); err != nil {
		t.Fatalf("CloseStream failed: %v", err)
	}

	source := server.PeerID(0xA)
	if got := callee.waitFor(t, server.StreamTopic(source, 3, "start"), 1); got[0] != "intercom" {
		t.Errorf("Expected intercom, got %s", got[0])
	}
	data := callee.waitFor(t, server.StreamTopic(source, 3, "data"), 2)
	if data[0] != "one" || data[1] != "two" {
		t.Errorf("Expected chunks in order, got %v", data)
	}
	callee.waitFor(t, server.StreamTopic(source, 3, "close"), 1)
}

func TestDeviceEvents(t *testing.T) {
	srv := startServer(t)
	d := connectUDP(t, srv.udpAddr, 0xC0FFEE)
	watcher := connectUDP(t, srv.udpAddr, 2)

	peer := server.PeerID(0xC0FFEE)
	watcher.subscribe(t, srv, "device/"+peer+"/button")
	watcher.subscribe(t, srv, "device/"+peer+"/sensor/temp")

	if err := d.ReportButton(1, proto.PressDouble); err != nil {
		t.Fatalf("ReportButton failed: %v", err)
	}
	if err := d.UpdateSensor("temp", proto.Temperature(22.25)); err != nil {
		t.Fatalf("UpdateSensor failed: %v", err)
	}

	if got := watcher.waitFor(t, "device/"+peer+"/button", 1); got[0] != "\x01\x01" {
		t.Errorf("Expected button 1 double, got %q", got[0])
	}
	if got := watcher.waitFor(t, "device/"+peer+"/sensor/temp", 1); got[0] != "22.25" {
		t.Errorf("Expected 22.25, got %s", got[0])
	}
}
