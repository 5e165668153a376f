// SPDX-License-Identifier: MPL-2.0

package buildctx

import (
	"archive/tar"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"testing"
)

func fixtureContext(t *testing.T) *BuildContext {
	t.Helper()

	src := t.TempDir()
	file := filepath.Join(src, "entrypoint.py")
	if err := os.WriteFile(file, []byte("#!/usr/bin/env python3\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	tree := filepath.Join(src, "lib")
	if err := os.MkdirAll(filepath.Join(tree, "pkg"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(tree, "pkg", "mod.py"), []byte("x = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	return &BuildContext{
		BaseImage: "python:3.12-slim",
		Overlays: []OverlayOp{
			{Source: file, Name: "overlay/0", Dest: "/entrypoint.py"},
			{Source: tree, Name: "overlay/1", Dest: "/app/lib"},
		},
	}
}

func TestMaterialize(t *testing.T) {
	t.Parallel()

	bc := fixtureContext(t)
	dir := t.TempDir()
	if err := bc.Materialize(dir); err != nil {
		t.Fatalf("Materialize() error: %v", err)
	}

	df, err := os.ReadFile(filepath.Join(dir, DockerfileName))
	if err != nil || string(df) != string(bc.Dockerfile()) {
		t.Errorf("Dockerfile content mismatch (err %v)", err)
	}

	info, err := os.Stat(filepath.Join(dir, "overlay", "0"))
	if err != nil {
		t.Fatalf("overlay/0 missing: %v", err)
	}
	if info.Mode().Perm()&0o100 == 0 {
		t.Errorf("overlay/0 lost its executable bit: %v", info.Mode())
	}
	if _, err := os.Stat(filepath.Join(dir, "overlay", "1", "pkg", "mod.py")); err != nil {
		t.Errorf("directory overlay not copied recursively: %v", err)
	}
}

func TestMaterialize_MissingSource(t *testing.T) {
	t.Parallel()

	bc := &BuildContext{
		BaseImage: "alpine",
		Overlays:  []OverlayOp{{Source: filepath.Join(t.TempDir(), "gone"), Name: "overlay/0", Dest: "/x"}},
	}
	if err := bc.Materialize(t.TempDir()); !errors.Is(err, ErrSourceNotFound) {
		t.Errorf("Materialize() error = %v, want ErrSourceNotFound", err)
	}
}

func TestArchive(t *testing.T) {
	t.Parallel()

	rc, err := fixtureContext(t).Archive()
	if err != nil {
		t.Fatalf("Archive() error: %v", err)
	}

	var names []string
	tr := tar.NewReader(rc)
	for {
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			t.Fatalf("read tar: %v", err)
		}
		names = append(names, filepath.ToSlash(filepath.Clean(hdr.Name)))
	}

	for _, want := range []string{DockerfileName, "overlay/0", "overlay/1/pkg/mod.py"} {
		if !slices.Contains(names, want) {
			t.Errorf("archive missing %s, got %v", want, names)
		}
	}

	dir := rc.(*tempArchive).dir
	if err := rc.Close(); err != nil {
		t.Errorf("Close() error: %v", err)
	}
	if _, err := os.Stat(dir); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("temporary directory %s not removed", dir)
	}
}
