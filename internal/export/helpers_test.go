package export

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// writeChannel lays out one channel folder with the given file
// contents. A nil value omits the file.
func writeChannel(t *testing.T, root, folder string, messages, meta []byte) string {
	t.Helper()
	dir := filepath.Join(root, folder)
	require.NoError(t, os.MkdirAll(dir, 0755))
	if messages != nil {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "messages.json"), messages, 0644))
	}
	if meta != nil {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "channel.json"), meta, 0644))
	}
	return dir
}

func writeAttachment(t *testing.T, channelDir, name string, size int) {
	t.Helper()
	dir := filepath.Join(channelDir, "attachments")
	require.NoError(t, os.MkdirAll(dir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), make([]byte, size), 0644))
}
