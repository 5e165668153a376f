// SPDX-License-Identifier: MPL-2.0

// Package provenance derives OCI image labels from the git repository that
// contains a build file.
package provenance

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

const (
	// LabelRevision holds the commit the image was built from.
	LabelRevision = "org.opencontainers.image.revision"
	// LabelSource holds the URL of the repository the image was built from.
	LabelSource = "org.opencontainers.image.source"

	originRemote = "origin"
)

// ErrNotRepository is returned when dir is not inside a git work tree.
var ErrNotRepository = errors.New("not inside a git repository")

// Labels returns the provenance labels for the repository containing dir.
// A repository without commits yields no revision, and one without an origin
// remote yields no source; neither is an error.
func Labels(dir string) (map[string]string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, fmt.Errorf("%s: %w", dir, ErrNotRepository)
	}
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	labels := map[string]string{}

	head, err := repo.Head()
	switch {
	case err == nil:
		labels[LabelRevision] = head.Hash().String()
	case errors.Is(err, plumbing.ErrReferenceNotFound):
	default:
		return nil, fmt.Errorf("read head: %w", err)
	}

	remote, err := repo.Remote(originRemote)
	switch {
	case err == nil:
		if urls := remote.Config().URLs; len(urls) > 0 && urls[0] != "" {
			if source, ok := redact(urls[0]); ok {
				labels[LabelSource] = source
			}
		}
	case errors.Is(err, git.ErrRemoteNotFound):
	default:
		return nil, fmt.Errorf("read remote %s: %w", originRemote, err)
	}

	return labels, nil
}

// redact drops credentials from URL-shaped remotes. scp-style remotes
// (git@host:path) are returned unchanged unless the user part carries a
// password. ok is false when the remote cannot be made safe to publish.
func redact(remote string) (string, bool) {
	if !strings.Contains(remote, "://") {
		if userinfo, _, found := strings.Cut(remote, "@"); found && strings.Contains(userinfo, ":") {
			return "", false
		}
		return remote, true
	}
	u, err := url.Parse(remote)
	if err != nil {
		return "", false
	}
	u.User = nil
	return u.String(), true
}
