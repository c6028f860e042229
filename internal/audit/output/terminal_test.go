package output

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTerminalDetectionNonTTY(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.Equal(t, defaultWidth, TerminalWidth(&buf))

	f, err := os.Create(filepath.Join(t.TempDir(), "out.txt"))
	require.NoError(t, err)
	defer f.Close()
	assert.False(t, IsTerminal(f))
	assert.Equal(t, defaultWidth, TerminalWidth(f))
}
