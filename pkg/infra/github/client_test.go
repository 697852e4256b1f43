package github_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/m-mizutani/testbed/pkg/domain/interfaces"
	"github.com/m-mizutani/testbed/pkg/domain/model"
	"github.com/m-mizutani/testbed/pkg/domain/types"
	githubinfra "github.com/m-mizutani/testbed/pkg/infra/github"
)

var testRepo = model.Repository{Owner: "GeyserMC", Name: "Geyser"}

func newTestClient(t *testing.T, mux *http.ServeMux) interfaces.GitHubClient {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	client, err := githubinfra.NewClientWithBaseURL(server.Client(), server.URL)
	gt.NoError(t, err)
	return client
}

func TestClient_IsCollaborator(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/GeyserMC/Geyser/collaborators/alice", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	mux.HandleFunc("/repos/GeyserMC/Geyser/collaborators/mallory", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	mux.HandleFunc("/repos/GeyserMC/Geyser/collaborators/broken", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	ok, err := client.IsCollaborator(ctx, testRepo, "alice")
	gt.NoError(t, err)
	gt.True(t, ok)

	ok, err = client.IsCollaborator(ctx, testRepo, "mallory")
	gt.NoError(t, err)
	gt.Value(t, ok).Equal(false)

	_, err = client.IsCollaborator(ctx, testRepo, "broken")
	gt.Error(t, err)
}

func TestClient_GetPullRequest(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/GeyserMC/Geyser/pulls/42", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"number": 42,
			"state":  "open",
			"merged": false,
			"head":   map[string]any{"sha": "deadbeef"},
		})
	})
	client := newTestClient(t, mux)

	pr, err := client.GetPullRequest(context.Background(), testRepo, 42)
	gt.NoError(t, err)
	gt.Value(t, pr.Number).Equal(types.PRNumber(42))
	gt.Value(t, pr.HeadSHA).Equal("deadbeef")
	gt.True(t, pr.IsOpen())
	gt.Value(t, pr.Repo).Equal(testRepo)
}

func TestClient_ListWorkflowRuns(t *testing.T) {
	var gotHeadSHA string
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/GeyserMC/Geyser/actions/runs", func(w http.ResponseWriter, r *http.Request) {
		gotHeadSHA = r.URL.Query().Get("head_sha")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_count": 2,
			"workflow_runs": []map[string]any{
				{"id": 100, "head_sha": "aaa", "pull_requests": []map[string]any{}},
				{"id": 101, "head_sha": "bbb", "pull_requests": []map[string]any{{"number": 42}}},
			},
		})
	})
	client := newTestClient(t, mux)

	runs, err := client.ListWorkflowRuns(context.Background(), testRepo, "bbb")
	gt.NoError(t, err)
	gt.Value(t, gotHeadSHA).Equal("bbb")
	gt.Number(t, len(runs)).Equal(2)

	gt.Value(t, runs[0].ID).Equal(int64(100))
	gt.Number(t, len(runs[0].PullRequests)).Equal(0)

	gt.Value(t, runs[1].HeadSHA).Equal("bbb")
	gt.Value(t, runs[1].PullRequests).Equal([]types.PRNumber{42})
}

func TestClient_ListWorkflowRunArtifacts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/GeyserMC/Geyser/actions/runs/101/artifacts", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"total_count": 2,
			"artifacts": []map[string]any{
				{"id": 1, "name": "Geyser Spigot"},
				{"id": 2, "name": "Geyser Standalone"},
			},
		})
	})
	client := newTestClient(t, mux)

	artifacts, err := client.ListWorkflowRunArtifacts(context.Background(), testRepo, 101)
	gt.NoError(t, err)
	gt.Number(t, len(artifacts)).Equal(2)
	gt.Value(t, artifacts[1]).Equal(&model.Artifact{ID: 2, Name: "Geyser Standalone"})
}

func TestClient_GetArtifactDownloadURL(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/GeyserMC/Geyser/actions/artifacts/2/zip", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Location", "https://blob.example.com/artifact.zip?sig=abc")
		w.WriteHeader(http.StatusFound)
	})
	client := newTestClient(t, mux)

	u, err := client.GetArtifactDownloadURL(context.Background(), testRepo, 2)
	gt.NoError(t, err)
	gt.Value(t, u).Equal("https://blob.example.com/artifact.zip?sig=abc")
}

func TestClient_Comments(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/GeyserMC/Geyser/issues/42/comments", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodPost)
		var req map[string]string
		body, _ := io.ReadAll(r.Body)
		gt.NoError(t, json.Unmarshal(body, &req))
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 555, "body": req["body"]})
	})
	mux.HandleFunc("/repos/GeyserMC/Geyser/issues/comments/555", func(w http.ResponseWriter, r *http.Request) {
		gt.Value(t, r.Method).Equal(http.MethodPatch)
		var req map[string]string
		body, _ := io.ReadAll(r.Body)
		gt.NoError(t, json.Unmarshal(body, &req))
		_ = json.NewEncoder(w).Encode(map[string]any{"id": 555, "body": req["body"]})
	})
	client := newTestClient(t, mux)
	ctx := context.Background()

	comment, err := client.CreateComment(ctx, testRepo, 42, "hello")
	gt.NoError(t, err)
	gt.Value(t, comment.ID).Equal(int64(555))
	gt.Value(t, comment.Body).Equal("hello")

	comment, err = client.EditComment(ctx, testRepo, comment.ID, "hello\n\nworld")
	gt.NoError(t, err)
	gt.Value(t, comment.Body).Equal("hello\n\nworld")
}

func TestNewClientWithToken(t *testing.T) {
	_, err := githubinfra.NewClientWithToken(context.Background(), "")
	gt.Error(t, err)

	client, err := githubinfra.NewClientWithToken(context.Background(), "ghp_dummy")
	gt.NoError(t, err)
	gt.Value(t, client).NotNil()
}

func TestNewClient_WithRealCredentials(t *testing.T) {
	// This test requires GitHub App credentials from environment variables
	appID := os.Getenv("TEST_GITHUB_APP_ID")
	installationID := os.Getenv("TEST_GITHUB_INSTALLATION_ID")
	privateKey := os.Getenv("TEST_GITHUB_PRIVATE_KEY")

	if appID == "" || installationID == "" || privateKey == "" {
		t.Skip("Test GitHub App credentials not provided via environment variables")
	}

	appIDInt, err := strconv.ParseInt(appID, 10, 64)
	gt.NoError(t, err)

	installationIDInt, err := strconv.ParseInt(installationID, 10, 64)
	gt.NoError(t, err)

	client, err := githubinfra.NewClient(appIDInt, installationIDInt, []byte(privateKey))
	gt.NoError(t, err)
	gt.Value(t, client).NotNil()
}
