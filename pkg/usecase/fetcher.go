package usecase

import (
	"archive/zip"
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
)

// ArtifactFetcher downloads an artifact into a workspace and unpacks it
type ArtifactFetcher struct {
	githubClient interfaces.GitHubClient
	httpClient   *http.Client
}

// NewArtifactFetcher creates an ArtifactFetcher. A nil httpClient means http.DefaultClient.
func NewArtifactFetcher(githubClient interfaces.GitHubClient, httpClient *http.Client) *ArtifactFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ArtifactFetcher{
		githubClient: githubClient,
		httpClient:   httpClient,
	}
}

// Fetch resolves the download URL of ref, streams the archive into dir and
// extracts it there. Download failures are *model.TransferError.
func (f *ArtifactFetcher) Fetch(ctx context.Context, repo model.Repository, ref *model.ArtifactReference, dir string) (*model.FetchResult, error) {
	logger := ctxlog.From(ctx)

	downloadURL, err := f.githubClient.GetArtifactDownloadURL(ctx, repo, ref.ArtifactID)
	if err != nil {
		return nil, &model.TransferError{Err: err}
	}
	ref.DownloadURL = downloadURL

	archive := filepath.Join(dir, archiveName(ref.Name))
	size, err := f.download(ctx, downloadURL, archive)
	if err != nil {
		return nil, err
	}

	logger.Info("Downloaded artifact",
		"artifact_id", ref.ArtifactID,
		"size_bytes", size,
		"path", archive,
	)

	result, err := extractZip(archive, dir)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to extract artifact", goerr.V("archive", archive))
	}

	if err := os.Remove(archive); err != nil {
		logger.Warn("Failed to remove artifact archive", "path", archive, "error", err)
	}

	logger.Info("Extracted artifact",
		"dir", dir,
		"file_count", len(result.Files),
		"total_size_bytes", result.Size,
	)
	return result, nil
}

// download streams url into dst. The body goes to a ".partial" file that is
// renamed to dst only after it was completely written and closed.
func (f *ArtifactFetcher) download(ctx context.Context, url, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, &model.TransferError{Err: err}
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return 0, &model.TransferError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &model.TransferError{
			StatusCode: resp.StatusCode,
			Status:     http.StatusText(resp.StatusCode),
		}
	}

	partial := dst + ".partial"
	file, err := os.OpenFile(partial, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return 0, goerr.Wrap(err, "failed to create download file", goerr.V("path", partial))
	}

	size, err := io.Copy(file, resp.Body)
	if err == nil {
		err = file.Sync()
	}
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(partial)
		return 0, &model.TransferError{Err: err}
	}

	if err := os.Rename(partial, dst); err != nil {
		_ = os.Remove(partial)
		return 0, goerr.Wrap(err, "failed to finalize download", goerr.V("path", dst))
	}

	return size, nil
}

func archiveName(artifactName string) string {
	name := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, artifactName)
	if name == "" {
		name = "artifact"
	}
	return name + ".zip"
}

// extractZip extracts the archive at path into destDir
func extractZip(path, destDir string) (*model.FetchResult, error) {
	zipReader, err := zip.OpenReader(path)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to open zip")
	}
	defer zipReader.Close()

	result := &model.FetchResult{Dir: destDir}
	for _, file := range zipReader.File {
		if err := extractFile(file, destDir); err != nil {
			return nil, goerr.Wrap(err, "failed to extract file", goerr.V("file", file.Name))
		}

		result.Files = append(result.Files, file.Name)
		result.Size += int64(file.UncompressedSize64)
	}

	return result, nil
}

// extractFile extracts a single file from ZIP to the destination directory
func extractFile(file *zip.File, destDir string) error {
	// Security check: prevent path traversal attacks
	destPath := filepath.Join(destDir, file.Name)
	if !strings.HasPrefix(destPath, filepath.Clean(destDir)+string(os.PathSeparator)) {
		return goerr.New("invalid file path detected", goerr.V("file", file.Name), goerr.V("dest", destPath))
	}

	if file.FileInfo().IsDir() {
		return os.MkdirAll(destPath, 0o755)
	}

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return goerr.Wrap(err, "failed to create parent directories", goerr.V("dir", filepath.Dir(destPath)))
	}

	rc, err := file.Open()
	if err != nil {
		return goerr.Wrap(err, "failed to open file in zip")
	}
	defer rc.Close()

	// Existing entries such as the linked credential file are never written
	// through. The container runs as an arbitrary user, keep extracted files readable.
	destFile, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, file.Mode().Perm()|0o644)
	if err != nil {
		return goerr.Wrap(err, "failed to create destination file", goerr.V("path", destPath))
	}

	if _, err := io.Copy(destFile, rc); err != nil {
		_ = destFile.Close()
		return goerr.Wrap(err, "failed to copy file content", goerr.V("path", destPath))
	}

	return destFile.Close()
}
