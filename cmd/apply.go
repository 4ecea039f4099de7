package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"grimm.is/palisade/internal/firewall"
)

// RunApply compiles the allow-list from all configured sources and
// synchronizes the firewall to it.
func RunApply(configFile string, auto bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	result, err := compileAllowList(context.Background(), cfg, logger)
	if err != nil {
		return err
	}
	list := result.List

	fmt.Println(titleStyle.Render("Allow-list preview"))
	for _, e := range list.Entries() {
		fmt.Printf("  %-20s %s\n", e.Block.String(), dimStyle.Render(e.Tag.String()))
	}
	if result.Skipped > 0 {
		fmt.Println(warnStyle.Render(fmt.Sprintf("%d malformed entries skipped", result.Skipped)))
	}
	fmt.Printf("%d unique entries; everything else will be dropped\n", list.Len())

	ok, err := confirmDestructive(
		fmt.Sprintf("Replace firewall rules with this %d-entry allow-list?", list.Len()),
		auto, cfg.Auto.Countdown)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(dimStyle.Render("cancelled, nothing changed"))
		return nil
	}

	sync, _, err := buildSynchronizer(cfg, logger)
	if err != nil {
		return err
	}

	summary, err := sync.ApplyAllowList(list)
	if err != nil {
		if errors.Is(err, firewall.ErrRollback) {
			fmt.Println(errStyle.Render("apply failed; the previous ruleset was restored"))
		}
		return err
	}

	if _, err := sync.EnsureLogRule(); err != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("warning: drop logging not enabled: %v", err)))
	}

	fmt.Println(okStyle.Render(fmt.Sprintf(
		"applied %d entries (%d rules) in %s", summary.Entries, summary.RulesApplied, summary.Duration.Round(time.Millisecond))))
	fmt.Println(dimStyle.Render("pre-apply snapshot: " + summary.Snapshot))
	return nil
}
