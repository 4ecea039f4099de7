package main

import (
	"flag"
	"fmt"
	"os"

	"grimm.is/palisade/cmd"
	"grimm.is/palisade/internal/brand"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	defaultConfig := brand.GetConfigDir() + "/" + brand.ConfigFileName

	switch os.Args[1] {
	case "apply":
		applyFlags := flag.NewFlagSet("apply", flag.ExitOnError)
		configFile := applyFlags.String("config", defaultConfig, "Configuration file")
		applyFlags.StringVar(configFile, "c", defaultConfig, "Configuration file (short)")
		auto := applyFlags.Bool("auto", false, "Skip confirmation, proceed after a countdown")
		applyFlags.Parse(os.Args[2:])
		fail(cmd.RunApply(*configFile, *auto))

	case "fetch":
		fetchFlags := flag.NewFlagSet("fetch", flag.ExitOnError)
		configFile := fetchFlags.String("config", defaultConfig, "Configuration file")
		fetchFlags.StringVar(configFile, "c", defaultConfig, "Configuration file (short)")
		fetchFlags.Parse(os.Args[2:])
		fail(cmd.RunFetch(*configFile))

	case "show":
		showFlags := flag.NewFlagSet("show", flag.ExitOnError)
		configFile := showFlags.String("config", defaultConfig, "Configuration file")
		showFlags.StringVar(configFile, "c", defaultConfig, "Configuration file (short)")
		raw := showFlags.Bool("raw", false, "Dump the full nft ruleset text")
		showFlags.Parse(os.Args[2:])
		fail(cmd.RunShow(*configFile, *raw))

	case "save":
		saveFlags := flag.NewFlagSet("save", flag.ExitOnError)
		configFile := saveFlags.String("config", defaultConfig, "Configuration file")
		saveFlags.StringVar(configFile, "c", defaultConfig, "Configuration file (short)")
		saveFlags.Parse(os.Args[2:])
		fail(cmd.RunSave(*configFile, saveFlags.Arg(0)))

	case "backups":
		backupsFlags := flag.NewFlagSet("backups", flag.ExitOnError)
		configFile := backupsFlags.String("config", defaultConfig, "Configuration file")
		backupsFlags.StringVar(configFile, "c", defaultConfig, "Configuration file (short)")
		backupsFlags.Parse(os.Args[2:])
		fail(cmd.RunBackups(*configFile))

	case "restore":
		restoreFlags := flag.NewFlagSet("restore", flag.ExitOnError)
		configFile := restoreFlags.String("config", defaultConfig, "Configuration file")
		restoreFlags.StringVar(configFile, "c", defaultConfig, "Configuration file (short)")
		auto := restoreFlags.Bool("auto", false, "Skip confirmation, proceed after a countdown")
		restoreFlags.Parse(os.Args[2:])
		if restoreFlags.Arg(0) == "" {
			fmt.Fprintln(os.Stderr, "restore needs a snapshot name or index, see backups")
			os.Exit(1)
		}
		fail(cmd.RunRestore(*configFile, restoreFlags.Arg(0), *auto))

	case "clear":
		clearFlags := flag.NewFlagSet("clear", flag.ExitOnError)
		configFile := clearFlags.String("config", defaultConfig, "Configuration file")
		clearFlags.StringVar(configFile, "c", defaultConfig, "Configuration file (short)")
		auto := clearFlags.Bool("auto", false, "Skip confirmation, proceed after a countdown")
		clearFlags.Parse(os.Args[2:])
		fail(cmd.RunClear(*configFile, *auto))

	case "monitor":
		monitorFlags := flag.NewFlagSet("monitor", flag.ExitOnError)
		configFile := monitorFlags.String("config", defaultConfig, "Configuration file")
		monitorFlags.StringVar(configFile, "c", defaultConfig, "Configuration file (short)")
		monitorFlags.Parse(os.Args[2:])
		fail(cmd.RunMonitor(*configFile))

	case "version":
		cmd.RunVersion()

	case "help", "-h", "--help":
		printUsage()

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func fail(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", os.Args[1], err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Printf(`%s - %s

Usage:
  %s <command> [options]

Commands:
  apply     Compile the allow-list and synchronize the firewall
            Options: --auto, --config (-c) <file>
  fetch     Preview the remote allow-list without applying
  show      Display the managed rules with counters
            Options: --raw (full nft ruleset text)
  save      Snapshot the live ruleset ([label] argument)
  backups   List ruleset snapshots
  restore   Replace the ruleset with a snapshot (<name|index>)
            Options: --auto
  clear     Remove all filtering (emergency recovery)
            Options: --auto
  monitor   Tail the kernel log for rejected traffic
  version   Print version information

All commands accept --config (-c), default %s.
`, brand.Name, brand.Tagline, brand.BinaryName, brand.GetConfigDir()+"/"+brand.ConfigFileName)
}
