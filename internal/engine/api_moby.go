// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"context"
	"io"
	"path/filepath"

	"github.com/moby/moby/client"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
)

type mobyAPI struct {
	cli *client.Client
}

func newMobyAPI(host string, env map[string]string) (*mobyAPI, error) {
	opts := []client.Opt{client.FromEnv, client.WithAPIVersionNegotiation()}
	if certPath := env["DOCKER_CERT_PATH"]; certPath != "" {
		opts = append(opts, client.WithTLSClientConfig(
			filepath.Join(certPath, "ca.pem"),
			filepath.Join(certPath, "cert.pem"),
			filepath.Join(certPath, "key.pem"),
		))
	}
	if h := env["DOCKER_HOST"]; h != "" {
		opts = append(opts, client.WithHost(h))
	}
	if host != "" {
		opts = append(opts, client.WithHost(host))
	}

	cli, err := client.NewClientWithOpts(opts...)
	if err != nil {
		return nil, err
	}
	return &mobyAPI{cli: cli}, nil
}

func (m *mobyAPI) build(ctx context.Context, buildContext io.Reader, opts BuildOptions) (io.ReadCloser, error) {
	resp, err := m.cli.ImageBuild(ctx, buildContext, client.ImageBuildOptions{
		Dockerfile:  buildctx.DockerfileName,
		NoCache:     opts.NoCache,
		PullParent:  opts.Pull,
		Remove:      true,
		ForceRemove: true,
	})
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

func (m *mobyAPI) tag(ctx context.Context, source, target string) error {
	_, err := m.cli.ImageTag(ctx, client.ImageTagOptions{Source: source, Target: target})
	return err
}

func (m *mobyAPI) inspect(ctx context.Context, id string) (*ImageMetadata, error) {
	res, err := m.cli.ImageInspect(ctx, id)
	if err != nil {
		return nil, err
	}

	md := &ImageMetadata{
		ID:       ImageID(res.ID),
		RepoTags: append([]string{}, res.RepoTags...),
	}
	if cfg := res.Config; cfg != nil {
		md.Entrypoint = cfg.Entrypoint
		md.Cmd = cfg.Cmd
		md.WorkingDir = cfg.WorkingDir
		md.ExposedPorts = cfg.ExposedPorts
		md.Volumes = cfg.Volumes
		md.Env = cfg.Env
		md.Labels = cfg.Labels
		md.User = cfg.User
	}
	return md, nil
}

func (m *mobyAPI) remove(ctx context.Context, id string, force bool) error {
	_, err := m.cli.ImageRemove(ctx, id, client.ImageRemoveOptions{Force: force, PruneChildren: true})
	return err
}

func (m *mobyAPI) ping(ctx context.Context) error {
	_, err := m.cli.Ping(ctx, client.PingOptions{})
	return err
}

func (m *mobyAPI) close() error {
	return m.cli.Close()
}
