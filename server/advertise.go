package server

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service devices look up to find the server.
const ServiceType = "_avi._udp"

// Advertiser announces the UDP endpoint over mDNS.
type Advertiser struct {
	server *mdns.Server
}

// Advertise starts answering mDNS queries for ServiceType on port.
func Advertise(instance string, port int, txt []string) (*Advertiser, error) {
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			host = "avi"
		}
		instance = host
	}

	service, err := mdns.NewMDNSService(instance, ServiceType, "", "", port, nil, txt)
	if err != nil {
		return nil, fmt.Errorf("mdns service: %w", err)
	}
	server, err := mdns.NewServer(&mdns.Config{Zone: service})
	if err != nil {
		return nil, fmt.Errorf("mdns server: %w", err)
	}

	slog.Info("Advertising AVI server", "service", ServiceType, "instance", instance, "port", port)
	return &Advertiser{server: server}, nil
}

func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	return a.server.Shutdown()
}
