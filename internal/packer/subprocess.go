package packer

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
)

// runSubprocess shells out to a packaging helper (pip, rcedit, ...),
// surfacing combined output on failure for diagnostics.
func runSubprocess(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %v: %w: %s", name, args, err, out.String())
	}
	return nil
}
