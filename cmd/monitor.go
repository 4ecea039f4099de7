package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"grimm.is/palisade/internal/metrics"
	"grimm.is/palisade/internal/monitor"
)

// RunMonitor tails the kernel log for rejected traffic until
// interrupted, then prints the session summary.
func RunMonitor(configFile string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if addr := cfg.Monitor.MetricsListen; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		srv := &http.Server{Addr: addr, Handler: mux}
		go func() {
			if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logger.Error("metrics listener failed", "addr", addr, "error", err)
			}
		}()
		defer srv.Close()
		logger.Info("metrics listening", "addr", addr)
	}

	m := monitor.New(cfg.Monitor.EventDir, cfg.Monitor.LogSources,
		cfg.Firewall.LogPrefix, cfg.Monitor.StatusEvery, nil, logger)

	fmt.Println(titleStyle.Render("Monitoring rejected traffic (Ctrl-C to stop)"))
	summary, err := m.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Session summary"))
	fmt.Printf("  events:         %d\n", summary.TotalEvents)
	fmt.Printf("  unique sources: %d\n", summary.UniqueSources)
	fmt.Printf("  duration:       %s\n", summary.Stopped.Sub(summary.Started).Round(time.Second))
	return nil
}
