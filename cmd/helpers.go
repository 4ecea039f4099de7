package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"grimm.is/palisade/internal/allowlist"
	"grimm.is/palisade/internal/backup"
	"grimm.is/palisade/internal/clock"
	"grimm.is/palisade/internal/config"
	"grimm.is/palisade/internal/fetch"
	"grimm.is/palisade/internal/firewall"
	"grimm.is/palisade/internal/logging"
	"grimm.is/palisade/internal/metrics"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	dimStyle   = lipgloss.NewStyle().Faint(true)
)

// loadConfig reads the config file, falling back to defaults when the
// file does not exist. A broken file is always an error.
func loadConfig(path string) (*config.Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config.New(), nil
	}
	return config.LoadFile(path)
}

func newLogger(cfg *config.Config) *logging.Logger {
	lc := logging.DefaultConfig()
	switch cfg.LogLevel {
	case "debug":
		lc.Level = logging.LevelDebug
	case "warn":
		lc.Level = logging.LevelWarn
	case "error":
		lc.Level = logging.LevelError
	}
	l := logging.New(lc)
	logging.SetDefault(l)
	return l
}

func buildStore(cfg *config.Config, logger *logging.Logger) *backup.Store {
	runner := &firewall.RealCommandRunner{}
	return backup.NewStore(cfg.Firewall.BackupDir, firewall.RulesetDumper(runner), &clock.RealClock{}, logger)
}

func buildSynchronizer(cfg *config.Config, logger *logging.Logger) (*firewall.Synchronizer, *backup.Store, error) {
	store := buildStore(cfg, logger)
	sync, err := firewall.New(cfg.Firewall.Table, cfg.Firewall.LogPrefix, store, logger)
	if err != nil {
		return nil, nil, err
	}
	return sync, store, nil
}

// compileAllowList gathers all configured sources in priority order.
// Remote failures degrade to a warning, a missing operator address too.
func compileAllowList(ctx context.Context, cfg *config.Config, logger *logging.Logger) (*allowlist.Result, error) {
	var sources []allowlist.Source

	if addr, ok := allowlist.OperatorAddress(); ok {
		sources = append(sources, allowlist.Source{Tag: allowlist.TagOperator, Raw: []string{addr}})
	} else {
		fmt.Println(warnStyle.Render("warning: no SSH connection detected, operator address not included"))
	}

	if len(cfg.AllowList.Custom) > 0 {
		sources = append(sources, allowlist.Source{Tag: allowlist.TagCustom, Raw: cfg.AllowList.Custom})
	}

	if cfg.AllowList.IncludePrivate {
		sources = append(sources, allowlist.PrivateSource())
	}

	if cfg.AllowList.Remote.Enabled {
		fetcher := fetch.NewFetcher(cfg.AllowList.Remote.URL, cfg.RemoteTimeout(),
			remoteCacheDir(), cfg.RemoteCacheTTL(), logger)
		remote, err := fetcher.Fetch(ctx, cfg.Coarsen())
		if err != nil {
			fmt.Println(warnStyle.Render(fmt.Sprintf("warning: remote list unavailable: %v", err)))
		} else {
			sources = append(sources, allowlist.Source{Tag: allowlist.TagRemote, Blocks: remote.Blocks})
		}
	}

	result := allowlist.Compile(sources, cfg.Coarsen())
	if result.Skipped > 0 {
		metrics.Get().EntriesSkipped.Add(float64(result.Skipped))
	}
	if result.List.Len() == 0 {
		return nil, fmt.Errorf("no allow-list entries resolved, refusing to continue")
	}
	return result, nil
}

func remoteCacheDir() string {
	return os.TempDir() + "/palisade-cache"
}

// confirmDestructive gates a destructive operation behind an
// interactive prompt, or behind a visible countdown in auto mode.
func confirmDestructive(title string, auto bool, countdown int) (bool, error) {
	if auto {
		fmt.Println(warnStyle.Render(title))
		for i := countdown; i > 0; i-- {
			fmt.Printf("proceeding in %d...\r", i)
			time.Sleep(time.Second)
		}
		fmt.Println()
		return true, nil
	}

	var ok bool
	err := huh.NewConfirm().
		Title(title).
		Affirmative("Proceed").
		Negative("Cancel").
		Value(&ok).
		Run()
	if err != nil {
		return false, err
	}
	return ok, nil
}
