package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbocsi/avi/client"
	"github.com/mbocsi/avi/config"
	"github.com/mbocsi/avi/features"
	"github.com/mbocsi/avi/proto"
	"github.com/spf13/cobra"
)

func deviceCmd(cfg *config.Config) *cobra.Command {
	var (
		id        string
		addr      string
		transport string
		feats     []string
	)

	cmd := &cobra.Command{
		Use:   "device",
		Short: "Run a device with simulated hardware",
		Long: `Run the device runtime against an AVI server. Without --server the
server is discovered over mDNS.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dc := cfg.Device
			if cmd.Flags().Changed("id") {
				dc.ID = id
			}
			if cmd.Flags().Changed("server") {
				dc.Server = addr
			}
			if cmd.Flags().Changed("transport") {
				dc.Transport = transport
			}
			if cmd.Flags().Changed("features") {
				dc.Features = feats
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runDevice(ctx, dc, slog.Default())
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "device id as 16 hex digits")
	cmd.Flags().StringVarP(&addr, "server", "s", "", "server address (empty discovers over mDNS)")
	cmd.Flags().StringVarP(&transport, "transport", "t", "", "udp or websocket")
	cmd.Flags().StringSliceVar(&feats, "features", nil, "features to enable: button, led, audio, heartbeat")
	return cmd
}

// dial opens the datagram transport described by dc.
func dial(dc config.DeviceConfig) (client.Transport, error) {
	addr := dc.Server
	if addr == "" {
		service, err := client.Discover(dc.DiscoveryTimeout)
		if err != nil {
			return nil, err
		}
		addr = service.Addr()
	}

	switch dc.Transport {
	case "udp":
		return client.DialUDP(addr)
	case "websocket":
		return client.DialWebSocket(addr)
	}
	return nil, fmt.Errorf("unknown transport %q", dc.Transport)
}

// buildFeatures creates the enabled features on simulated hardware.
func buildFeatures(dc config.DeviceConfig, logger *slog.Logger) *features.Manager {
	manager := features.NewManager(logger)
	if dc.Enabled("button") {
		manager.Add(features.NewButtonFeature(idleLadder{}, logger))
	}
	if dc.Enabled("led") {
		manager.Add(features.NewLedFeature(newLogStrip(12, logger), logger))
	}
	if dc.Enabled("audio") {
		manager.Add(features.NewAudioFeature(io.Discard, logger))
	}
	if dc.Enabled("heartbeat") {
		hb := features.NewHeartbeatFeature(fixedBattery(200), logger)
		if dc.Heartbeat > 0 {
			hb.Period = dc.Heartbeat
		}
		manager.Add(hb)
	}
	return manager
}

func runDevice(ctx context.Context, dc config.DeviceConfig, logger *slog.Logger) error {
	deviceID, err := dc.DeviceID()
	if err != nil {
		return err
	}

	tr, err := dial(dc)
	if err != nil {
		return err
	}

	manager := buildFeatures(dc, logger)
	c, err := client.New(deviceID, tr, manager.HandleMessage,
		client.WithLogger(logger),
		client.WithErrorHandler(func(reason proto.Reason) {
			logger.Warn("Server reported error", "reason", reason.String())
		}),
	)
	if err != nil {
		return err
	}
	defer c.Close()

	rt := features.NewRuntime(c, manager)
	rt.Logger = logger
	rt.Interval = dc.Interval
	rt.ConnectTimeout = dc.ConnectTimeout
	rt.RetryDelay = dc.RetryDelay

	logger.Info("Device starting", "peer", fmt.Sprintf("%016x", deviceID), "transport", dc.Transport)
	return rt.Run(ctx)
}
