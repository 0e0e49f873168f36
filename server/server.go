package server

import (
	"context"
	"log/slog"
	"net"
)

type Server interface {
	Start() error
}

type AviServerOptions struct {
	MCPServer Server          // Optional MCP server to run alongside
	Broker    *Broker         // Optional (defaults to new Broker if nil)
	Registry  *DeviceRegistry // Optional (defaults to new Registry if nil)
	Metrics   *Metrics        // Optional (defaults to new Metrics if nil)
	Advertise bool            // Announce the first UDP transport over mDNS
	Instance  string          // mDNS instance name (defaults to hostname)
}

type AviServer struct {
	options     AviServerOptions
	coordinator *Coordinator
}

func NewAviServer(opts AviServerOptions) *AviServer {
	if opts.Broker == nil {
		opts.Broker = NewBroker()
	}
	if opts.Registry == nil {
		opts.Registry = NewDeviceRegistry()
	}
	if opts.Metrics == nil {
		opts.Metrics = NewMetrics()
	}

	coordinator := NewCoordinator(opts.Registry, opts.Broker, opts.Metrics)

	return &AviServer{
		options:     opts,
		coordinator: coordinator,
	}
}

func (s *AviServer) RegisterTransport(t Transport) {
	s.coordinator.RegisterTransport(t)
}

// SetMCPServer attaches a server that runs alongside the transports. It
// must be called before Start.
func (s *AviServer) SetMCPServer(srv Server) {
	s.options.MCPServer = srv
}

func (s *AviServer) Coordinator() *Coordinator { return s.coordinator }

func (s *AviServer) GetRegistry() *DeviceRegistry { return s.coordinator.Registery }

func (s *AviServer) GetBroker() *Broker { return s.coordinator.Broker }

func (s *AviServer) GetMetrics() *Metrics { return s.coordinator.Metrics }

func (s *AviServer) GetTransports() []Transport { return s.coordinator.Transports }

// Start runs the server until ctx is cancelled.
func (s *AviServer) Start(ctx context.Context) error {
	if s.options.MCPServer != nil {
		go func() {
			if err := s.options.MCPServer.Start(); err != nil {
				slog.Error("MCP server stopped with error", "error", err.Error())
			}
		}()
	}

	if s.options.Advertise {
		if port := s.udpPort(); port > 0 {
			adv, err := Advertise(s.options.Instance, port, []string{"proto=avi"})
			if err != nil {
				slog.Warn("mDNS advertisement failed", "error", err.Error())
			} else {
				defer adv.Shutdown()
			}
		}
	}

	return s.coordinator.Start(ctx)
}

func (s *AviServer) udpPort() int {
	for _, t := range s.coordinator.Transports {
		udp, ok := t.(*UDPTransport)
		if !ok {
			continue
		}
		if err := udp.Listen(); err != nil {
			slog.Error("Failed to bind UDP transport", "addr", udp.Addr, "error", err.Error())
			return 0
		}
		if addr, ok := udp.LocalAddr().(*net.UDPAddr); ok {
			return addr.Port
		}
	}
	return 0
}
