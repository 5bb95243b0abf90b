package pathutil

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// gitRootCache memoizes resolveGitRoot results keyed by the starting cwd
// and the kind of root requested, so repeated lookups for the same
// directory (common while scanning many sessions under one checkout)
// don't repeat the parent walk.
var gitRootCache = struct {
	sync.Mutex
	repo     map[string]string
	checkout map[string]string
}{repo: map[string]string{}, checkout: map[string]string{}}

// FlushGitRootCache discards all cached git-root resolutions.
func FlushGitRootCache() {
	gitRootCache.Lock()
	defer gitRootCache.Unlock()
	gitRootCache.repo = map[string]string{}
	gitRootCache.checkout = map[string]string{}
}

// ResolveGitRepoRoot walks cwd's parents looking for a .git entry and
// returns the root of the repository that owns the commondir — i.e. for a
// worktree it returns the main checkout's repo root, not the worktree
// directory itself.
func ResolveGitRepoRoot(cwd string) (string, bool) {
	return resolveGitRoot(cwd, true)
}

// ResolveGitCheckoutRoot is like ResolveGitRepoRoot but for a worktree
// returns the worktree's own directory (checkout semantics) rather than
// the shared repo root.
func ResolveGitCheckoutRoot(cwd string) (string, bool) {
	return resolveGitRoot(cwd, false)
}

func resolveGitRoot(cwd string, repoSemantics bool) (string, bool) {
	key := Normalize(cwd)

	gitRootCache.Lock()
	cache := gitRootCache.checkout
	if repoSemantics {
		cache = gitRootCache.repo
	}
	if v, ok := cache[key]; ok {
		gitRootCache.Unlock()
		if v == "" {
			return "", false
		}
		return v, true
	}
	gitRootCache.Unlock()

	root, ok := walkForGitRoot(key, repoSemantics)

	gitRootCache.Lock()
	cache[key] = root
	gitRootCache.Unlock()

	return root, ok
}

func walkForGitRoot(start string, repoSemantics bool) (string, bool) {
	dir := start
	for {
		gitPath := filepath.Join(dir, ".git")
		info, err := os.Stat(gitPath)
		if err == nil {
			if info.IsDir() {
				return dir, true
			}
			return resolveGitFile(dir, gitPath, repoSemantics)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

// resolveGitFile handles the case where .git is a file, as produced for
// submodules and worktrees. The file's sole content is a "gitdir: <path>"
// line pointing at the real git directory.
func resolveGitFile(checkoutDir, gitFilePath string, repoSemantics bool) (string, bool) {
	f, err := os.Open(gitFilePath)
	if err != nil {
		return "", false
	}
	defer f.Close()

	var gitDir string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if strings.HasPrefix(line, "gitdir:") {
			gitDir = strings.TrimSpace(strings.TrimPrefix(line, "gitdir:"))
			break
		}
	}
	if gitDir == "" {
		return "", false
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Join(checkoutDir, gitDir)
	}
	gitDir = filepath.Clean(gitDir)

	slashGitDir := filepath.ToSlash(gitDir)
	switch {
	case strings.Contains(slashGitDir, "/.git/modules/"):
		// Submodule: its own .git/modules/<name> directory is the repo's
		// real git dir; the repo root is the checkout directory itself.
		return checkoutDir, true

	case strings.Contains(slashGitDir, "/.git/worktrees/"):
		if !repoSemantics {
			return checkoutDir, true
		}
		commonDirFile := filepath.Join(gitDir, "commondir")
		data, err := os.ReadFile(commonDirFile)
		if err != nil {
			return checkoutDir, true
		}
		commonDir := strings.TrimSpace(string(data))
		if !filepath.IsAbs(commonDir) {
			commonDir = filepath.Join(gitDir, commonDir)
		}
		commonDir = filepath.Clean(commonDir)
		// commonDir points at the shared .git directory; its parent is the
		// main checkout's repo root.
		return filepath.Dir(commonDir), true

	default:
		return checkoutDir, true
	}
}
