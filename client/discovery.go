package client

import (
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/hashicorp/mdns"
)

// ServiceType is the mDNS service the AVI server advertises.
const ServiceType = "_avi._udp"

// DiscoveredService is an AVI server found with mDNS.
type DiscoveredService struct {
	ServiceName string
	Host        string
	Port        int
	TXTRecords  []string
}

// Addr returns "host:port" suitable for DialUDP.
func (s *DiscoveredService) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// Discover returns the first AVI server answering within timeout.
func Discover(timeout time.Duration) (*DiscoveredService, error) {
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	entriesCh := make(chan *mdns.ServiceEntry, 4)
	params := mdns.DefaultParams(ServiceType)
	params.Entries = entriesCh
	params.Timeout = timeout
	params.DisableIPv6 = true

	errCh := make(chan error, 1)
	go func() {
		errCh <- mdns.Query(params)
		close(entriesCh)
	}()

	for entry := range entriesCh {
		var host string
		switch {
		case entry.AddrV4 != nil:
			host = entry.AddrV4.String()
		case entry.AddrV6 != nil:
			host = entry.AddrV6.String()
		default:
			continue
		}

		service := &DiscoveredService{
			ServiceName: entry.Name,
			Host:        host,
			Port:        entry.Port,
			TXTRecords:  entry.InfoFields,
		}
		slog.Info("Discovered AVI server",
			"service_name", service.ServiceName,
			"address", service.Host,
			"port", service.Port,
		)
		go drain(entriesCh)
		return service, nil
	}

	if err := <-errCh; err != nil {
		return nil, fmt.Errorf("mDNS query for %s: %w", ServiceType, err)
	}
	return nil, fmt.Errorf("no %s service found within %s", ServiceType, timeout)
}

// drain keeps the query goroutine from blocking on a full channel after
// the first result was taken.
func drain(ch <-chan *mdns.ServiceEntry) {
	for range ch {
	}
}
