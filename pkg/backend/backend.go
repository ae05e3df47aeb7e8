// Package backend implements the git hook entry points over the gate.
package backend

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/log"

	"github.com/refgate/refgate/git"
	"github.com/refgate/refgate/pkg/audit"
	"github.com/refgate/refgate/pkg/config"
	"github.com/refgate/refgate/pkg/gate"
	"github.com/refgate/refgate/pkg/mail"
	"github.com/refgate/refgate/pkg/policy"
	"github.com/refgate/refgate/pkg/stylecheck"
)

// Backend wires the gate, the policy loader and the notification
// machinery together behind the hooks.Hooks interface.
type Backend struct {
	cfg    *config.Config
	logger *log.Logger
	sender mail.Sender

	// store is nil when the audit database is disabled.
	store *audit.Store
}

// New returns a backend over the given collaborators.
func New(cfg *config.Config, logger *log.Logger, sender mail.Sender, store *audit.Store) *Backend {
	return &Backend{
		cfg:    cfg,
		logger: logger.WithPrefix("backend"),
		sender: sender,
		store:  store,
	}
}

// session is the per-invocation state of one hook run.
type session struct {
	repo  *git.Repository
	env   *gate.Env
	gate  *gate.Gate
	graph gate.Graph
}

// open loads the repository and its policy and builds a gate over
// them. The checkRev, when non-empty, anchors gitattributes lookups
// for the style checker.
func (b *Backend) open(ctx context.Context, repoPath, checkRev string) (*session, error) {
	repo, err := git.Open(repoPath)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", repoPath, err)
	}

	opts, err := policy.Load(repo)
	if err != nil {
		return nil, &gate.ConfigError{
			Msg: fmt.Sprintf("the repository's %s configuration is invalid", policy.ConfigRef),
			Err: err,
		}
	}

	graph, err := gate.NewGraph(repo)
	if err != nil {
		return nil, err
	}
	refs, err := gate.NewReferences(repo)
	if err != nil {
		return nil, err
	}

	repoName := b.cfg.Name
	if repoName == "" {
		repoName = repo.Name()
	}

	env := &gate.Env{
		Options:  opts,
		Graph:    graph,
		Refs:     refs,
		RepoName: repoName,
	}

	checker, err := stylecheck.FromOptions(opts, repoPath)
	if err != nil {
		return nil, err
	}
	if checkRev != "" {
		checker.Exempt = func(_ context.Context, path string) (bool, error) {
			attrs, err := repo.CheckAttributes(checkRev, path)
			if err != nil {
				return false, err
			}
			for _, a := range attrs {
				if a.Name == "no-style-check" && a.Value != "unspecified" && a.Value != "false" {
					return true, nil
				}
			}
			return false, nil
		}
	}

	g, err := gate.New(env, checker, b.logger)
	if err != nil {
		return nil, err
	}

	return &session{
		repo:  repo,
		env:   env,
		gate:  g,
		graph: graph,
	}, nil
}

// pusher names the user the hook runs as.
func pusher() string {
	if p := os.Getenv("REFGATE_PUSHER"); p != "" {
		return p
	}
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "unknown"
}
