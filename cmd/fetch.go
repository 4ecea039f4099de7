package cmd

import (
	"context"
	"fmt"

	"grimm.is/palisade/internal/fetch"
)

// RunFetch previews the remote allow-list without touching the firewall.
func RunFetch(configFile string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if !cfg.AllowList.Remote.Enabled || cfg.AllowList.Remote.URL == "" {
		return fmt.Errorf("no remote list configured, set allowlist.remote in %s", configFile)
	}

	fetcher := fetch.NewFetcher(cfg.AllowList.Remote.URL, cfg.RemoteTimeout(),
		remoteCacheDir(), cfg.RemoteCacheTTL(), logger)
	remote, err := fetcher.Fetch(context.Background(), cfg.Coarsen())
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render("Remote allow-list preview"))
	fmt.Printf("  source:  %s\n", cfg.AllowList.Remote.URL)
	fmt.Printf("  entries: %d parsed, %d skipped\n", remote.Total, remote.Skipped)
	fmt.Printf("  unique:  %d blocks after normalization\n", remote.Unique())
	for _, b := range remote.Blocks {
		fmt.Printf("    %s\n", b.String())
	}
	fmt.Println(dimStyle.Render("preview only, run apply to install"))
	return nil
}
