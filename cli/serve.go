package cli

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbocsi/avi/config"
	"github.com/mbocsi/avi/mcp"
	"github.com/mbocsi/avi/server"
	"github.com/mbocsi/avi/services"
	"github.com/mbocsi/avi/web"
	"github.com/spf13/cobra"
)

func serveCmd(cfg *config.Config) *cobra.Command {
	var (
		udpAddr   string
		wsAddr    string
		webAddr   string
		withMCP   bool
		advertise bool
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the reference AVI server",
		RunE: func(cmd *cobra.Command, args []string) error {
			sc := cfg.Server
			if cmd.Flags().Changed("udp") {
				sc.UDPAddr = udpAddr
			}
			if cmd.Flags().Changed("ws") {
				sc.WSAddr = wsAddr
			}
			if cmd.Flags().Changed("web") {
				sc.WebAddr = webAddr
			}
			if cmd.Flags().Changed("mcp") {
				sc.MCP = withMCP
			}
			if cmd.Flags().Changed("advertise") {
				sc.Advertise = advertise
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServer(ctx, sc)
		},
	}

	cmd.Flags().StringVar(&udpAddr, "udp", "", "UDP listen address")
	cmd.Flags().StringVar(&wsAddr, "ws", "", "WebSocket listen address (empty disables)")
	cmd.Flags().StringVar(&webAddr, "web", "", "HTTP API listen address (empty disables)")
	cmd.Flags().BoolVar(&withMCP, "mcp", false, "serve MCP tools over stdio")
	cmd.Flags().BoolVar(&advertise, "advertise", false, "announce the UDP endpoint over mDNS")
	return cmd
}

func runServer(ctx context.Context, sc config.ServerConfig) error {
	aviServer := server.NewAviServer(server.AviServerOptions{
		Advertise: sc.Advertise,
		Instance:  sc.Instance,
	})

	udp := server.NewUDPTransport(sc.UDPAddr)
	udp.SetName("UDP")
	udp.SetDescription("Primary device transport")
	udp.SetMaxClients(sc.MaxClients)
	udp.SetIdleTimeout(sc.IdleTimeout)
	aviServer.RegisterTransport(udp)

	if sc.WSAddr != "" {
		ws := server.NewWSTransport(sc.WSAddr)
		ws.SetName("WebSocket")
		ws.SetDescription("Devices behind HTTP proxies")
		ws.SetMaxClients(sc.MaxClients)
		aviServer.RegisterTransport(ws)
	}

	container := services.NewServiceManager(aviServer.Coordinator()).GetServices()

	if sc.MCP {
		aviServer.SetMCPServer(mcp.NewMCPClient(container, mcp.NewMCPServer()))
	}

	if sc.WebAddr != "" {
		api := web.NewWebClient(container, aviServer.GetMetrics())
		httpServer := &http.Server{Addr: sc.WebAddr, Handler: api.Routes()}
		go func() {
			slog.Info("Starting HTTP API", "addr", sc.WebAddr)
			if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("HTTP API stopped with error", "error", err.Error())
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			httpServer.Shutdown(shutdownCtx)
		}()
	}

	return aviServer.Start(ctx)
}
