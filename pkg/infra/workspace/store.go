package workspace

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// CredentialFileName is the name the credential file is linked under in every workspace
const CredentialFileName = "key.pem"

// Store keeps one directory per pull request below root
type Store struct {
	root           string
	credentialFile string
}

var _ interfaces.WorkspaceStore = (*Store)(nil)

// New creates a Store rooted at root. The credential file must exist; a
// missing file is a startup configuration error.
func New(root, credentialFile string) (*Store, error) {
	trimmed := strings.TrimSpace(root)
	if trimmed == "" {
		return nil, goerr.New("workspace root directory is empty")
	}

	credentialFile, err := filepath.Abs(credentialFile)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve credential file", goerr.V("path", credentialFile))
	}

	info, err := os.Stat(credentialFile)
	if err != nil {
		return nil, goerr.Wrap(err, "credential file is not accessible", goerr.V("path", credentialFile))
	}
	if !info.Mode().IsRegular() {
		return nil, goerr.New("credential file is not a regular file", goerr.V("path", credentialFile))
	}

	// Workspaces are bind-mounted, and the daemon only accepts absolute sources
	absRoot, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to resolve workspace root", goerr.V("root", trimmed))
	}

	if err := os.MkdirAll(absRoot, 0o755); err != nil {
		return nil, goerr.Wrap(err, "failed to create workspace root", goerr.V("root", absRoot))
	}

	return &Store{
		root:           absRoot,
		credentialFile: credentialFile,
	}, nil
}

// Path returns the deterministic workspace directory of pr
func (s *Store) Path(pr types.PRNumber) string {
	return filepath.Join(s.root, pr.String())
}

// Prepare deletes whatever is left in pr's workspace, creates it fresh with
// open permissions and links the credential file into it.
func (s *Store) Prepare(ctx context.Context, pr types.PRNumber) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !pr.Valid() {
		return "", goerr.New("invalid pull request number", goerr.V("pr", pr))
	}

	dir := s.Path(pr)
	if err := os.RemoveAll(dir); err != nil {
		return "", goerr.Wrap(err, "failed to remove stale workspace", goerr.V("dir", dir))
	}

	if err := os.Mkdir(dir, 0o777); err != nil {
		return "", goerr.Wrap(err, "failed to create workspace", goerr.V("dir", dir))
	}
	// umask strips bits from Mkdir; the container user needs write access
	if err := os.Chmod(dir, 0o777); err != nil {
		return "", goerr.Wrap(err, "failed to set workspace permissions", goerr.V("dir", dir))
	}

	link := filepath.Join(dir, CredentialFileName)
	if err := os.Link(s.credentialFile, link); err != nil {
		return "", goerr.Wrap(err, "failed to link credential file",
			goerr.V("src", s.credentialFile),
			goerr.V("dst", link),
		)
	}

	ctxlog.From(ctx).Debug("Prepared workspace", "pr", pr, "dir", dir)
	return dir, nil
}

// Destroy removes pr's workspace. It reports whether anything was removed;
// a missing workspace is not an error.
func (s *Store) Destroy(ctx context.Context, pr types.PRNumber) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	dir := s.Path(pr)
	if _, err := os.Stat(dir); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, goerr.Wrap(err, "failed to stat workspace", goerr.V("dir", dir))
	}

	if err := os.RemoveAll(dir); err != nil {
		return false, goerr.Wrap(err, "failed to remove workspace", goerr.V("dir", dir))
	}

	ctxlog.From(ctx).Debug("Destroyed workspace", "pr", pr, "dir", dir)
	return true, nil
}

// List returns the pull requests that currently own a workspace, ascending
func (s *Store) List(ctx context.Context) ([]types.PRNumber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read workspace root", goerr.V("root", s.root))
	}

	var prs []types.PRNumber
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, err := strconv.Atoi(entry.Name())
		if err != nil || n <= 0 {
			continue
		}
		prs = append(prs, types.PRNumber(n))
	}
	sort.Slice(prs, func(i, j int) bool { return prs[i] < prs[j] })

	return prs, nil
}
