package config

import (
	"github.com/m-mizutani/testbed/pkg/infra/workspace"
	"github.com/urfave/cli/v3"
)

// Workspace holds the per-PR directory configuration
type Workspace struct {
	Root           string
	CredentialFile string
}

// Flags returns CLI flags for workspace configuration
func (c *Workspace) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "workspace-root",
			Usage:       "Directory holding one workspace per pull request",
			Value:       "./prs",
			Destination: &c.Root,
			Sources:     cli.EnvVars("TESTBED_WORKSPACE_ROOT"),
		},
		&cli.StringFlag{
			Name:        "credential-file",
			Usage:       "File linked into every workspace as " + workspace.CredentialFileName,
			Value:       "./key.pem",
			Destination: &c.CredentialFile,
			Sources:     cli.EnvVars("TESTBED_CREDENTIAL_FILE"),
		},
	}
}

// NewStore opens the workspace store. It fails when the credential file is missing.
func (c *Workspace) NewStore() (*workspace.Store, error) {
	return workspace.New(c.Root, c.CredentialFile)
}
