package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
)

// commandUseCase dispatches chat commands to the start and stop sequences.
// There is no per-PR lock: two starts racing on one PR both tear down and
// recreate, and whichever creates last owns the surviving container.
type commandUseCase struct {
	cfg          Config
	githubClient interfaces.GitHubClient
	workspace    interfaces.WorkspaceStore
	resolver     *ArtifactResolver
	fetcher      *ArtifactFetcher
	containers   *ContainerManager
	reporter     *Reporter
	notifier     interfaces.Notifier
	now          func() time.Time
}

// CommandOption configures the command use case
type CommandOption func(*commandUseCase)

// WithNotifier sets an operator notifier
func WithNotifier(n interfaces.Notifier) CommandOption {
	return func(uc *commandUseCase) { uc.notifier = n }
}

// WithHTTPClient sets the client used to download artifacts
func WithHTTPClient(c *http.Client) CommandOption {
	return func(uc *commandUseCase) {
		uc.fetcher = NewArtifactFetcher(uc.githubClient, c)
	}
}

// WithClock replaces time.Now
func WithClock(now func() time.Time) CommandOption {
	return func(uc *commandUseCase) { uc.now = now }
}

// NewCommand creates the command use case
func NewCommand(
	cfg Config,
	githubClient interfaces.GitHubClient,
	workspace interfaces.WorkspaceStore,
	runtime interfaces.ContainerRuntime,
	opts ...CommandOption,
) interfaces.CommandUseCase {
	uc := &commandUseCase{
		cfg:          cfg,
		githubClient: githubClient,
		workspace:    workspace,
		resolver:     NewArtifactResolver(githubClient, cfg.ArtifactName),
		fetcher:      NewArtifactFetcher(githubClient, nil),
		containers:   NewContainerManager(runtime, cfg),
		reporter:     NewReporter(githubClient),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

// HandleComment authorizes the comment author and runs the requested command.
// Rejected comments are ignored without any reply. The returned error is
// only set when the tracking comment itself could not be written.
func (uc *commandUseCase) HandleComment(ctx context.Context, event *model.CommentEvent) error {
	logger := ctxlog.From(ctx).With(
		"delivery_id", event.DeliveryID,
		"repo", event.Repo.FullName(),
		"pr", event.PRNumber,
		"author", event.Author,
	)
	ctx = ctxlog.With(ctx, logger)

	cmd := event.Command()
	if cmd == model.CommandNone {
		return nil
	}
	if !event.IsPullRequest {
		logger.Debug("Ignoring command on issue")
		return nil
	}
	if !uc.cfg.IsAllowedOwner(event.Repo.Owner) {
		logger.Info("Ignoring command from repository outside allow-list")
		return nil
	}

	if perm := uc.checkPermission(ctx, event.Repo, event.Author); perm != model.PermissionGranted {
		logger.Info("Ignoring command from unauthorized user", "permission", perm.String())
		return nil
	}

	pr, err := uc.githubClient.GetPullRequest(ctx, event.Repo, event.PRNumber)
	if err != nil {
		return goerr.Wrap(err, "failed to fetch pull request", goerr.V("pr", event.PRNumber))
	}
	if !pr.IsOpen() {
		logger.Info("Ignoring command on closed pull request", "state", pr.State)
		return nil
	}

	logger.Info("Executing command", "command", string(cmd))
	switch cmd {
	case model.CommandStart:
		return uc.start(ctx, pr, event.Author)
	case model.CommandStop:
		return uc.stop(ctx, pr, event.Author)
	}
	return nil
}

// checkPermission never lets a failed lookup through
func (uc *commandUseCase) checkPermission(ctx context.Context, repo model.Repository, user string) model.PermissionResult {
	ok, err := uc.githubClient.IsCollaborator(ctx, repo, user)
	if err != nil {
		ctxlog.From(ctx).Warn("Collaborator check failed", "error", err)
		return model.PermissionFailed
	}
	if !ok {
		return model.PermissionDenied
	}
	return model.PermissionGranted
}

func (uc *commandUseCase) start(ctx context.Context, pr *model.PullRequest, author string) error {
	logger := ctxlog.From(ctx)
	repo := pr.Repo

	comment, err := uc.reporter.PostInitial(ctx, repo, pr.Number,
		fmt.Sprintf("Preparing and starting test server as requested by @%s at %s", author, uc.niceDate()))
	if err != nil {
		return err
	}

	ref, err := uc.resolver.Resolve(ctx, pr)
	if err != nil {
		logger.Info("Artifact resolution failed", "error", err)
		_, err = uc.reporter.Append(ctx, repo, comment, resolutionMessage(err, pr.Number))
		return err
	}

	if comment, err = uc.reporter.Append(ctx, repo, comment, fmt.Sprintf("\n\nDownloading %s...", ref.Name)); err != nil {
		return err
	}

	dir, err := uc.workspace.Prepare(ctx, pr.Number)
	if err != nil {
		logger.Error("Failed to prepare workspace", "error", err)
		_, err = uc.reporter.Append(ctx, repo, comment, fmt.Sprintf("\n\nUnable to prepare workspace: %s", err.Error()))
		return err
	}

	if _, err := uc.fetcher.Fetch(ctx, repo, ref, dir); err != nil {
		logger.Warn("Artifact download failed", "error", err)
		if _, destroyErr := uc.workspace.Destroy(ctx, pr.Number); destroyErr != nil {
			logger.Error("Failed to clean up workspace", "error", destroyErr)
		}
		_, err = uc.reporter.Append(ctx, repo, comment, transferMessage(err))
		return err
	}

	if comment, err = uc.reporter.Append(ctx, repo, comment, "\n\nFinished download, setting up docker container..."); err != nil {
		return err
	}

	if res := uc.containers.EnsureAbsent(ctx, pr.Number); res.Status == model.TeardownFailed {
		if comment, err = uc.reporter.Append(ctx, repo, comment,
			fmt.Sprintf("\n\nCould not remove the previous test server (%s), trying anyway...", res.Err.Error())); err != nil {
			return err
		}
	}

	server, err := uc.containers.CreateAndStart(ctx, pr.Number, dir)
	if err != nil {
		logger.Error("Failed to start test server", "error", err)
		_, err = uc.reporter.Append(ctx, repo, comment, fmt.Sprintf("\n\nUnable to start test server: %s", err.Error()))
		return err
	}

	if _, err := uc.reporter.Append(ctx, repo, comment, successMessage(server)); err != nil {
		return err
	}

	logger.Info("Test server started", "address", server.Address())
	if uc.notifier != nil {
		if err := uc.notifier.NotifyStarted(ctx, repo, server); err != nil {
			logger.Warn("Failed to notify operators", "error", err)
		}
	}
	return nil
}

func (uc *commandUseCase) stop(ctx context.Context, pr *model.PullRequest, author string) error {
	repo := pr.Repo

	comment, err := uc.reporter.PostInitial(ctx, repo, pr.Number,
		fmt.Sprintf("Stopping test server as requested by @%s at %s", author, uc.niceDate()))
	if err != nil {
		return err
	}

	res, err := uc.Teardown(ctx, repo, pr.Number)
	var msg string
	switch {
	case err != nil:
		msg = fmt.Sprintf("\n\nUnable to remove workspace: %s", err.Error())
	case res.Status == model.TeardownFailed:
		msg = fmt.Sprintf("\n\nUnable to stop test server: %s", res.Err.Error())
	case res.Status == model.TeardownAbsent:
		msg = "\n\nNo test server was running."
	default:
		msg = "\n\nTest server stopped."
	}

	_, err = uc.reporter.Append(ctx, repo, comment, msg)
	return err
}

// HandlePullRequestClosed removes the container and workspace of a closed or
// merged pull request. Nothing is posted to the pull request.
func (uc *commandUseCase) HandlePullRequestClosed(ctx context.Context, event *model.PullRequestEvent) error {
	logger := ctxlog.From(ctx).With(
		"delivery_id", event.DeliveryID,
		"repo", event.Repo.FullName(),
		"pr", event.PRNumber,
		"merged", event.Merged,
	)
	ctx = ctxlog.With(ctx, logger)

	if !uc.cfg.IsAllowedOwner(event.Repo.Owner) {
		logger.Debug("Ignoring pull request outside allow-list")
		return nil
	}

	res, err := uc.Teardown(ctx, event.Repo, event.PRNumber)
	if err != nil {
		return err
	}
	logger.Info("Cleaned up closed pull request", "container", res.Status)
	return nil
}

// Teardown stops pr's container and deletes its workspace. Container failures
// are reported in the result; only a workspace removal failure is an error.
func (uc *commandUseCase) Teardown(ctx context.Context, repo model.Repository, pr types.PRNumber) (*model.TeardownResult, error) {
	res := uc.containers.EnsureAbsent(ctx, pr)

	removed, err := uc.workspace.Destroy(ctx, pr)
	if err != nil {
		return res, goerr.Wrap(err, "failed to destroy workspace", goerr.V("pr", pr))
	}

	if uc.notifier != nil && (removed || res.Status == model.TeardownRemoved) {
		if err := uc.notifier.NotifyStopped(ctx, repo, pr, fmt.Sprintf("container %s", res.Status)); err != nil {
			ctxlog.From(ctx).Warn("Failed to notify operators", "error", err)
		}
	}
	return res, nil
}

func (uc *commandUseCase) niceDate() string {
	return uc.now().UTC().Format("2006-01-02 15:04:05") + " UTC"
}

func resolutionMessage(err error, pr types.PRNumber) string {
	switch {
	case errors.Is(err, model.ErrNoWorkflowRun):
		return fmt.Sprintf("\n\nNo artifacts found for PR #%d, its likely the build hasnt finished!", pr)
	case errors.Is(err, model.ErrNoArtifact):
		return "\n\nFound artifacts but no Standalone build was included!"
	default:
		return fmt.Sprintf("\n\nUnable to look up artifacts: %s", err.Error())
	}
}

func transferMessage(err error) string {
	var te *model.TransferError
	if errors.As(err, &te) {
		if te.StatusCode != 0 {
			return fmt.Sprintf("\n\nUnable to download artifact, got response: %d - %s", te.StatusCode, te.Status)
		}
		return fmt.Sprintf("\n\nUnable to download artifact: %s", te.Error())
	}
	return fmt.Sprintf("\n\nUnable to extract artifact: %s", err.Error())
}

func successMessage(server *model.TestServer) string {
	return fmt.Sprintf("\n\nTest server for PR #%d is running at `%s`\n\n[Add server to Minecraft](%s)",
		server.PRNumber, server.Address(), server.DeepLink())
}
