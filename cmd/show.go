package cmd

import (
	"fmt"
)

// RunShow prints the managed chain as typed rule records with their
// packet counters. With raw set it dumps the full nft ruleset instead.
func RunShow(configFile string, raw bool) error {
	cfg, err := loadConfig(configFile)
	if err != nil {
		return err
	}
	logger := newLogger(cfg)

	sync, _, err := buildSynchronizer(cfg, logger)
	if err != nil {
		return err
	}

	if raw {
		text, err := sync.Dump()
		if err != nil {
			return err
		}
		fmt.Print(text)
		return nil
	}

	records, err := sync.Rules()
	if err != nil {
		return err
	}

	fmt.Println(titleStyle.Render(fmt.Sprintf("table %s, chain input", cfg.Firewall.Table)))
	fmt.Printf("  %-4s %-12s %-20s %12s %12s\n", "#", "kind", "match", "packets", "bytes")
	for i, r := range records {
		match := r.CIDR
		if match == "" {
			match = "-"
		}
		fmt.Printf("  %-4d %-12s %-20s %12d %12d\n", i+1, r.Kind, match, r.Packets, r.Bytes)
	}
	return nil
}
