package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"prestige-scraper/pkg/api"
	"prestige-scraper/pkg/storage"

	log "github.com/sirupsen/logrus"
	"gopkg.in/urfave/cli.v1"
)

func serveAPI(c *cli.Context) error {
	cfg, appLog, err := setup(c)
	if err != nil {
		return err
	}

	store, err := storage.Open(cfg.DBPath)
	if err != nil {
		appLog.WithError(err).Error("Failed to open storage")
		return cli.NewExitError(err.Error(), 1)
	}
	defer store.Close()

	handler := api.NewHandler(store, log.NewEntry(appLog))
	handler.SpecDir = cfg.APISpecDir

	server := &http.Server{
		Addr:              cfg.ServeAddr,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	_, port, err := net.SplitHostPort(cfg.ServeAddr)
	if err == nil {
		entry := appLog.WithField("local", "http://localhost:"+port)
		if ip := outboundIP(); ip != nil {
			entry = entry.WithField("network", "http://"+net.JoinHostPort(ip.String(), port))
		}
		entry.Info("Serving API")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return cli.NewExitError(err.Error(), 1)
	case <-ctx.Done():
	}

	appLog.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// outboundIP picks the address this host uses to reach other machines: the
// source address of a routed UDP socket, else the first non-loopback IPv4
// interface address.
func outboundIP() net.IP {
	if conn, err := net.Dial("udp", "192.0.2.1:9"); err == nil {
		defer conn.Close()
		if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok && !addr.IP.IsLoopback() {
			return addr.IP
		}
	}

	addrs, err := net.InterfaceAddrs()
	if err != nil {
		return nil
	}
	for _, addr := range addrs {
		if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
			if ip4 := ipnet.IP.To4(); ip4 != nil {
				return ip4
			}
		}
	}
	return nil
}
