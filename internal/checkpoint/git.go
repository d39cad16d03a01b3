package checkpoint

import (
	"bytes"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

type CommandError struct {
	Args   []string
	Stdout string
	Stderr string
	Err    error
}

func (e *CommandError) Error() string {
	msg := fmt.Sprintf("git %s: %v", strings.Join(e.Args, " "), e.Err)
	if e.Stderr != "" {
		msg += ": " + strings.TrimSpace(e.Stderr)
	}
	return msg
}

func runGit(dir string, args ...string) (string, string, error) {
	// Disable background auto-maintenance so frequent checkpoint commits stay
	// deterministic and do not spawn long-running helper processes.
	base := []string{
		"-C", dir,
		"-c", "maintenance.auto=0",
		"-c", "gc.auto=0",
	}
	cmd := exec.Command("git", append(base, args...)...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	outStr := stdout.String()
	errStr := stderr.String()
	if err != nil {
		return outStr, errStr, &CommandError{Args: args, Stdout: outStr, Stderr: errStr, Err: err}
	}
	return outStr, errStr, nil
}

// IsRepo reports whether dir is inside a git work tree. Absence of a
// repository is a normal, non-error condition for checkpointing.
func IsRepo(dir string) bool {
	out, _, err := runGit(dir, "rev-parse", "--is-inside-work-tree")
	if err != nil {
		return false
	}
	return strings.TrimSpace(out) == "true"
}

func HeadSHA(dir string) (string, error) {
	out, _, err := runGit(dir, "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func StatusPorcelain(dir string) (string, error) {
	out, _, err := runGit(dir, "status", "--porcelain")
	if err != nil {
		return "", err
	}
	return out, nil
}

func IsClean(dir string) (bool, error) {
	out, err := StatusPorcelain(dir)
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(out) == "", nil
}

func addPaths(dir string, paths []string) error {
	args := append([]string{"add", "--"}, paths...)
	_, _, err := runGit(dir, args...)
	return err
}

func commit(dir, message string) (string, error) {
	_, _, err := runGit(dir, "commit", "-m", message)
	if err != nil {
		// Retry once with an explicit fallback committer identity, without
		// mutating repo config.
		if strings.Contains(err.Error(), "Author identity unknown") ||
			strings.Contains(err.Error(), "Please tell me who you are") ||
			strings.Contains(err.Error(), "unable to auto-detect email address") {
			_, _, err = runGit(
				dir,
				"-c", "user.name=vertice-recover",
				"-c", "user.email=vertice-recover@local",
				"commit", "-m", message,
			)
		}
		if err != nil {
			return "", err
		}
	}
	return HeadSHA(dir)
}

// verifyCommit reports whether ref resolves to a commit in dir.
func verifyCommit(dir, ref string) error {
	_, _, err := runGit(dir, "rev-parse", "--verify", ref+"^{commit}")
	return err
}

func resetHard(dir, sha string) error {
	_, _, err := runGit(dir, "reset", "--hard", sha)
	return err
}

// dirtyPaths parses `status --porcelain` output into work-tree paths. Rename
// entries contribute the new path.
func dirtyPaths(porcelain string) []string {
	var paths []string
	for _, line := range strings.Split(porcelain, "\n") {
		if len(line) < 4 {
			continue
		}
		p := strings.TrimSpace(line[3:])
		if idx := strings.Index(p, " -> "); idx >= 0 {
			p = p[idx+4:]
		}
		p = unquotePath(p)
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

// unquotePath reverses git's C-style quoting of paths with special characters
// (quotes, tabs, non-ASCII bytes as octal escapes).
func unquotePath(p string) string {
	if len(p) < 2 || !strings.HasPrefix(p, `"`) || !strings.HasSuffix(p, `"`) {
		return p
	}
	if u, err := strconv.Unquote(p); err == nil {
		return u
	}
	return strings.Trim(p, `"`)
}
