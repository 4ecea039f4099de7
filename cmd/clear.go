package cmd

import (
	"fmt"
)

// RunClear removes all filtering, the emergency escape hatch for a
// lockout. The previous ruleset is snapshotted first.
func RunClear(configFile string, auto bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	ok, err := confirmDestructive(
		"Remove ALL filtering and accept every connection?",
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
	snap, err := sync.ClearAll()
	if err != nil {
		return err
	}

	fmt.Println(warnStyle.Render("all filtering removed, input policy is accept"))
	fmt.Println(dimStyle.Render(fmt.Sprintf("previous rules saved as %s, restore with: restore %s", snap.Name, snap.Name)))
	return nil
}
