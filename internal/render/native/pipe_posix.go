//go:build !windows

package native

import (
	"context"
	"net"
	"os"
	"path/filepath"
)

// pipePath maps a pipe name onto a Unix domain socket in the system
// temp directory. The renderer process uses the same mapping.
func pipePath(name string) string {
	return filepath.Join(os.TempDir(), name+".sock")
}

func dialPipe(ctx context.Context, name string) (net.Conn, error) {
	var d net.Dialer
	return d.DialContext(ctx, "unix", pipePath(name))
}
