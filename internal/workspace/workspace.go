// Package workspace owns where boxplan puts files: per-run planner
// directories under a workspace root, and atomic writes of final outputs.
package workspace

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultRoot is the workspace used when none is configured.
const DefaultRoot = "~/boxplan_workspace"

// ExpandHome resolves a "~"-rooted path from the config file, the
// BOXPLAN_* environment, "solve -o" or an INPUT argument against $HOME.
// The shell does not expand "~" inside quoted flags or YAML values, so
// every path boxplan opens or creates goes through here.
//
// Expectations:
//   - "~" and "~/x" resolve under the home directory
//   - "~user/x" and paths with "~" elsewhere are left alone
//   - When the home directory cannot be determined the path is returned as given
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path[1:], "/"))
}

// RunDir creates and returns <root>/runs/<runID>. root may start with "~".
//
// Expectations:
//   - Creates missing parents
//   - Fails if the run directory already exists, so two runs never share one
func RunDir(root, runID string) (string, error) {
	if runID == "" || strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return "", fmt.Errorf("workspace: invalid run id %q", runID)
	}
	parent := filepath.Join(ExpandHome(root), "runs")
	if err := os.MkdirAll(parent, 0o755); err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	dir := filepath.Join(parent, runID)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return "", fmt.Errorf("workspace: %w", err)
	}
	return dir, nil
}

// WriteFileAtomic writes data to a temp file next to path and renames it into
// place, so readers see either the old file or the complete new one.
//
// Expectations:
//   - Leaves no temp file behind on success or failure
//   - The final file has mode perm
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	ok := false
	defer func() {
		if !ok {
			_ = tmp.Close()
			_ = os.Remove(name)
		}
	}()
	if _, err := tmp.Write(data); err != nil {
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(name, path); err != nil {
		return err
	}
	ok = true
	return nil
}

// WriteOutput delivers a finished output: to stdout when path is "" or "-",
// otherwise atomically to path. data must be complete before the call.
func WriteOutput(path string, stdout io.Writer, data []byte) error {
	if path == "" || path == "-" {
		_, err := stdout.Write(data)
		return err
	}
	if err := WriteFileAtomic(ExpandHome(path), data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// OpenInput opens path for reading; "-" means stdin. The caller closes the result.
func OpenInput(path string, stdin io.Reader) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(stdin), nil
	}
	return os.Open(ExpandHome(path))
}
