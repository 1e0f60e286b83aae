package rating

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, input string) *Result {
	t.Helper()
	res, err := Parse(strings.NewReader(input), moscow)
	require.NoError(t, err)
	return res
}
