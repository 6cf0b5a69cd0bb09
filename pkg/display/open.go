package display

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
)

// OpenBrowser opens path with the platform's default handler. It returns
// once the opener has started.
func OpenBrowser(ctx context.Context, path string) error {
	name, args := browserCommand(runtime.GOOS, path)

	cmd := exec.CommandContext(ctx, name, args...) // nolint:gosec
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}

	go func() { _ = cmd.Wait() }()
	return nil
}

// browserCommand returns the opener command for goos.
func browserCommand(goos, path string) (string, []string) {
	switch goos {
	case "darwin":
		return "open", []string{path}
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", path}
	default:
		return "xdg-open", []string{path}
	}
}
