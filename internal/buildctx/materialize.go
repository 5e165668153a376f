// SPDX-License-Identifier: MPL-2.0

package buildctx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/moby/go-archive"
)

// Materialize writes the Dockerfile and every overlay source into dir.
// Overlay sources are copied to dir/overlay/<n>, matching the COPY directives.
func (bc *BuildContext) Materialize(dir string) error {
	if err := os.MkdirAll(filepath.Join(dir, "overlay"), 0o755); err != nil {
		return &AssemblyError{Kind: Materialize, Path: dir, Err: err}
	}

	if err := os.WriteFile(filepath.Join(dir, DockerfileName), bc.Dockerfile(), 0o644); err != nil {
		return &AssemblyError{Kind: Materialize, Path: dir, Err: err}
	}

	for _, o := range bc.Overlays {
		if err := copyOverlay(o, dir); err != nil {
			return err
		}
	}
	return nil
}

// copyOverlay streams one source through a tar archive so that files and
// directory trees are copied the same way, with modes preserved.
func copyOverlay(o OverlayOp, dir string) error {
	if _, err := os.Lstat(o.Source); err != nil {
		return sourceError(o.Source, err)
	}

	base := filepath.Base(o.Source)
	rc, err := archive.TarWithOptions(filepath.Dir(o.Source), &archive.TarOptions{
		IncludeFiles: []string{base},
		RebaseNames:  map[string]string{base: filepath.Base(o.Name)},
	})
	if err != nil {
		return &AssemblyError{Kind: Materialize, Path: o.Source, Err: err}
	}
	defer rc.Close()

	dest := filepath.Join(dir, filepath.Dir(o.Name))
	if err := archive.Untar(rc, dest, &archive.TarOptions{NoLchown: true}); err != nil {
		return &AssemblyError{Kind: Materialize, Path: o.Source, Err: fmt.Errorf("copy to %s: %w", o.Name, err)}
	}
	return nil
}

// Archive materializes the context into a temporary directory and returns it
// as a tar stream. Closing the stream removes the directory.
func (bc *BuildContext) Archive() (io.ReadCloser, error) {
	dir, err := os.MkdirTemp("", "ansible-docker-context-")
	if err != nil {
		return nil, &AssemblyError{Kind: Materialize, Err: err}
	}

	if err := bc.Materialize(dir); err != nil {
		_ = os.RemoveAll(dir)
		return nil, err
	}

	rc, err := archive.TarWithOptions(dir, &archive.TarOptions{})
	if err != nil {
		_ = os.RemoveAll(dir)
		return nil, &AssemblyError{Kind: Materialize, Path: dir, Err: err}
	}
	return &tempArchive{ReadCloser: rc, dir: dir}, nil
}

type tempArchive struct {
	io.ReadCloser
	dir string
}

func (a *tempArchive) Close() error {
	err := a.ReadCloser.Close()
	if rmErr := os.RemoveAll(a.dir); err == nil {
		err = rmErr
	}
	return err
}
