package firewall

import "grimm.is/palisade/internal/backup"

// CommandRunner abstracts external command execution for testing.
type CommandRunner interface {
	Run(name string, args ...string) error
	Output(name string, args ...string) ([]byte, error)
	RunInput(input string, name string, args ...string) error
}

// RealCommandRunner executes actual system commands.
type RealCommandRunner struct{}

// RulesetDumper returns a backup.DumpFunc that captures the full
// ruleset as nft text. Snapshots taken this way restore cleanly with
// `nft -f` regardless of what created the rules.
func RulesetDumper(runner CommandRunner) backup.DumpFunc {
	return func() (string, error) {
		out, err := runner.Output("nft", "list", "ruleset")
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
}
