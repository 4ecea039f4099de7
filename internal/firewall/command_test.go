package firewall

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRulesetDumper(t *testing.T) {
	runner := &MockCommandRunner{}
	runner.On("Output", "nft", "list", "ruleset").Return([]byte("table ip palisade {\n}\n"), nil).Once()

	dump := RulesetDumper(runner)
	text, err := dump()
	require.NoError(t, err)
	assert.Contains(t, text, "table ip palisade")
	runner.AssertExpectations(t)
}

func TestRulesetDumper_Error(t *testing.T) {
	runner := &MockCommandRunner{}
	runner.On("Output", "nft", "list", "ruleset").Return(nil, errors.New("exec: \"nft\": executable file not found"))

	dump := RulesetDumper(runner)
	_, err := dump()
	require.Error(t, err)
}
