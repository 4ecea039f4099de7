package cmd

import (
	"fmt"
	"time"
)

// RunSave takes a manual snapshot of the live ruleset.
func RunSave(configFile, label string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	if label == "" {
		label = "manual"
	}
	store := buildStore(cfg, logger)
	snap, err := store.Save(label)
	if err != nil {
		return err
	}
	fmt.Println(okStyle.Render(fmt.Sprintf("saved %s (%d bytes)", snap.Name, snap.Size)))
	return nil
}

// RunBackups lists all snapshots, newest first.
func RunBackups(configFile string) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	snaps, err := buildStore(cfg, logger).List()
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		fmt.Println(dimStyle.Render("no snapshots in " + cfg.Firewall.BackupDir))
		return nil
	}

	fmt.Println(titleStyle.Render("Ruleset snapshots (newest first)"))
	for i, s := range snaps {
		label := s.Label
		if label == "" {
			label = "-"
		}
		fmt.Printf("  %-3d %-45s %-12s %s\n", i+1, s.Name, label, s.Timestamp.Format(time.DateTime))
	}
	fmt.Println(dimStyle.Render("restore by name or by index, e.g. restore 1"))
	return nil
}

// RunRestore replaces the whole ruleset with a snapshot.
func RunRestore(configFile, ref string, auto bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	sync, store, err := buildSynchronizer(cfg, logger)
	if err != nil {
		return err
	}

	target, err := store.Resolve(ref)
	if err != nil {
		return err
	}

	ok, err := confirmDestructive(
		fmt.Sprintf("Replace the entire ruleset with snapshot %s?", target.Name),
		auto, cfg.Auto.Countdown)
	if err != nil {
		return err
	}
	if !ok {
		fmt.Println(dimStyle.Render("cancelled, nothing changed"))
		return nil
	}

	restored, err := sync.Restore(target.Name)
	if err != nil {
		return err
	}
	fmt.Println(okStyle.Render("restored " + restored.Name))
	return nil
}
