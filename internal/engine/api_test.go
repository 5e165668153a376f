// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"testing"

	cerrdefs "github.com/containerd/errdefs"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
)

type fakeAPI struct {
	mu        sync.Mutex
	stream    string
	buildErr  error
	tagErr    error
	inspectMD *ImageMetadata
	inspectErr error
	tags      [][2]string
	entries   []string
}

func (f *fakeAPI) build(_ context.Context, r io.Reader, _ BuildOptions) (io.ReadCloser, error) {
	tr := tar.NewReader(r)
	for {
		hdr, err := tr.Next()
		if err != nil {
			break
		}
		f.mu.Lock()
		f.entries = append(f.entries, hdr.Name)
		f.mu.Unlock()
	}
	if f.buildErr != nil {
		return nil, f.buildErr
	}
	return io.NopCloser(strings.NewReader(f.stream)), nil
}

func (f *fakeAPI) tag(_ context.Context, source, target string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tags = append(f.tags, [2]string{source, target})
	return f.tagErr
}

func (f *fakeAPI) inspect(context.Context, string) (*ImageMetadata, error) {
	return f.inspectMD, f.inspectErr
}

func (f *fakeAPI) remove(context.Context, string, bool) error { return nil }
func (f *fakeAPI) ping(context.Context) error                 { return nil }
func (f *fakeAPI) close() error                               { return nil }

func TestDecodeBuildStream(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		stream   string
		wantID   ImageID
		wantErr  string
		wantText string
	}{
		{
			name: "aux id",
			stream: `{"stream":"Step 1/2 : FROM alpine\n"}
{"stream":" ---> 1234\n"}
{"aux":{"ID":"sha256:abc"}}
{"stream":"Successfully built abc\n"}`,
			wantID:   "sha256:abc",
			wantText: "Step 1/2 : FROM alpine",
		},
		{
			name:   "legacy success line",
			stream: `{"stream":"Successfully built 0123abcd\n"}`,
			wantID: "0123abcd",
		},
		{
			name: "error detail",
			stream: `{"stream":"Step 1/1 : FROM nope\n"}
{"errorDetail":{"message":"pull access denied for nope"},"error":"pull access denied for nope"}`,
			wantErr: "pull access denied for nope",
		},
		{
			name:    "no id",
			stream:  `{"stream":"hello\n"}`,
			wantErr: "did not report an image ID",
		},
		{
			name:    "garbage",
			stream:  `{"stream":`,
			wantErr: "decode build output",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var out bytes.Buffer
			id, err := decodeBuildStream(strings.NewReader(tt.stream), &out)
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("decodeBuildStream() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeBuildStream() error: %v", err)
			}
			if id != tt.wantID {
				t.Errorf("id = %q, want %q", id, tt.wantID)
			}
			if !strings.Contains(out.String(), tt.wantText) {
				t.Errorf("output %q missing %q", out.String(), tt.wantText)
			}
		})
	}
}

func TestAPIEngine_Build(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{stream: `{"aux":{"ID":"sha256:feed"}}`}
	e := &APIEngine{api: api}

	id, err := e.Build(context.Background(), &buildctx.BuildContext{BaseImage: "alpine"}, BuildOptions{})
	if err != nil {
		t.Fatalf("Build() error: %v", err)
	}
	if id != "sha256:feed" {
		t.Errorf("id = %q", id)
	}

	found := false
	for _, name := range api.entries {
		if name == buildctx.DockerfileName {
			found = true
		}
	}
	if !found {
		t.Errorf("build context entries %v lack the Dockerfile", api.entries)
	}
}

func TestAPIEngine_BuildStreamError(t *testing.T) {
	t.Parallel()

	e := &APIEngine{api: &fakeAPI{stream: `{"error":"failed to resolve"}`}}

	_, err := e.Build(context.Background(), &buildctx.BuildContext{BaseImage: "alpine"}, BuildOptions{})
	var engErr *EngineError
	if !errors.As(err, &engErr) || engErr.Kind != BuildFailed {
		t.Fatalf("Build() error = %v, want BuildFailed", err)
	}
	if engErr.Diagnostic != "failed to resolve" {
		t.Errorf("Diagnostic = %q", engErr.Diagnostic)
	}
}

func TestAPIEngine_Classify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		kind     EngineErrorKind
		err      error
		wantKind EngineErrorKind
	}{
		{name: "connection refused", kind: BuildFailed, err: &net.OpError{Op: "dial", Err: errors.New("connection refused")}, wantKind: Unavailable},
		{name: "daemon down message", kind: TagFailed, err: errors.New("Cannot connect to the Docker daemon at unix:///var/run/docker.sock"), wantKind: Unavailable},
		{name: "missing image on tag", kind: TagFailed, err: cerrdefs.ErrNotFound, wantKind: NotFound},
		{name: "plain tag failure", kind: TagFailed, err: errors.New("invalid reference"), wantKind: TagFailed},
		{name: "inspect server error", kind: NotFound, err: errors.New("500"), wantKind: Unavailable},
	}

	e := &APIEngine{api: &fakeAPI{}}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var engErr *EngineError
			if !errors.As(e.classify(tt.kind, "ref", tt.err), &engErr) {
				t.Fatal("classify() did not return *EngineError")
			}
			if engErr.Kind != tt.wantKind {
				t.Errorf("Kind = %v, want %v", engErr.Kind, tt.wantKind)
			}
			if !errors.Is(engErr, tt.err) {
				t.Error("EngineError should wrap the cause")
			}
		})
	}
}

func TestAPIEngine_TagPassesReferenceVerbatim(t *testing.T) {
	t.Parallel()

	api := &fakeAPI{}
	e := &APIEngine{api: api}
	if err := e.Tag(context.Background(), "sha256:feed", "testimage"); err != nil {
		t.Fatalf("Tag() error: %v", err)
	}
	if len(api.tags) != 1 || api.tags[0] != [2]string{"sha256:feed", "testimage"} {
		t.Errorf("tags = %v", api.tags)
	}
}
