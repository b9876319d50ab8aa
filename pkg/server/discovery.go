package server

import (
	"fmt"
	"log"
	"log/slog"
	"net"
	"os"
	"strings"

	"github.com/hashicorp/mdns"
)

// Advertiser announces the host on the local network over mDNS.
type Advertiser struct {
	server *mdns.Server
	logger *slog.Logger
}

// Advertise starts answering mDNS queries for cfg.Service on port.
func Advertise(cfg *DiscoveryConfig, port int, logger *slog.Logger) (*Advertiser, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "discovery")

	service, err := newMDNSService(cfg, port, "", nil)
	if err != nil {
		return nil, err
	}

	server, err := mdns.NewServer(&mdns.Config{
		Zone:   service,
		Logger: log.New(slogWriter{logger}, "", 0),
	})
	if err != nil {
		return nil, fmt.Errorf("discovery: start mdns server: %w", err)
	}

	logger.Info("advertising on LAN",
		"service", service.Service,
		"instance", service.Instance,
		"port", port)
	return &Advertiser{server: server, logger: logger}, nil
}

// Shutdown stops answering queries.
func (a *Advertiser) Shutdown() error {
	if a == nil || a.server == nil {
		return nil
	}
	a.logger.Debug("advertisement stopped")
	return a.server.Shutdown()
}

// newMDNSService builds the zone for the host. An empty host name and nil ips
// let the mdns package resolve them from the OS.
func newMDNSService(cfg *DiscoveryConfig, port int, host string, ips []net.IP) (*mdns.MDNSService, error) {
	if cfg == nil || cfg.Service == "" {
		return nil, fmt.Errorf("discovery: no service type")
	}
	instance := cfg.Instance
	if instance == "" {
		h, err := os.Hostname()
		if err != nil {
			return nil, fmt.Errorf("discovery: hostname: %w", err)
		}
		instance = h
	}

	info := []string{"scribble", fmt.Sprintf("port=%d", port)}
	service, err := mdns.NewMDNSService(instance, cfg.Service, "", host, port, ips, info)
	if err != nil {
		return nil, fmt.Errorf("discovery: create mdns service: %w", err)
	}
	return service, nil
}

// slogWriter forwards the mdns package's stdlib logger output to slog.
type slogWriter struct {
	logger *slog.Logger
}

func (w slogWriter) Write(p []byte) (int, error) {
	w.logger.Debug(strings.TrimSpace(string(p)))
	return len(p), nil
}
