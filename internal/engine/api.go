// SPDX-License-Identifier: MPL-2.0

package engine

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"regexp"
	"strings"

	cerrdefs "github.com/containerd/errdefs"

	"github.com/ansible-docker/ansible-docker/internal/buildctx"
)

// APIEngineName is the Name of engines talking to the Docker Engine API.
const APIEngineName = "docker-api"

var successfullyBuilt = regexp.MustCompile(`Successfully built ([0-9a-f]+)`)

type (
	// imageAPI is the slice of the Docker Engine API the engine needs.
	// mobyAPI implements it with the moby client; tests use a fake.
	imageAPI interface {
		build(ctx context.Context, buildContext io.Reader, opts BuildOptions) (io.ReadCloser, error)
		tag(ctx context.Context, source, target string) error
		inspect(ctx context.Context, id string) (*ImageMetadata, error)
		remove(ctx context.Context, id string, force bool) error
		ping(ctx context.Context) error
		close() error
	}

	// APIEngine builds images through the Docker Engine API.
	APIEngine struct {
		api imageAPI
	}

	// buildMessage is one JSON object of the build progress stream.
	buildMessage struct {
		Stream      string `json:"stream"`
		Error       string `json:"error"`
		ErrorDetail struct {
			Message string `json:"message"`
		} `json:"errorDetail"`
		Aux struct {
			ID string `json:"ID"`
		} `json:"aux"`
	}
)

// NewAPIEngine connects to the daemon configured by the DOCKER_* environment.
// Values in env take precedence over the process environment, and a non-empty
// host takes precedence over both.
func NewAPIEngine(host string, env map[string]string) (*APIEngine, error) {
	api, err := newMobyAPI(host, env)
	if err != nil {
		return nil, &EngineError{Kind: Unavailable, Engine: APIEngineName, Err: err}
	}
	return &APIEngine{api: api}, nil
}

// Name returns APIEngineName.
func (e *APIEngine) Name() string { return APIEngineName }

// Close releases the client connection.
func (e *APIEngine) Close() error { return e.api.close() }

// Ping checks that the daemon answers.
func (e *APIEngine) Ping(ctx context.Context) error {
	if err := e.api.ping(ctx); err != nil {
		return e.classify(Unavailable, "", err)
	}
	return nil
}

// Build sends the build context as a tar stream and decodes the progress
// stream until the daemon reports the image ID.
func (e *APIEngine) Build(ctx context.Context, bc *buildctx.BuildContext, opts BuildOptions) (ImageID, error) {
	tarball, err := bc.Archive()
	if err != nil {
		return "", err
	}
	defer tarball.Close()

	body, err := e.api.build(ctx, tarball, opts)
	if err != nil {
		return "", e.classify(BuildFailed, bc.BaseImage, err)
	}
	defer body.Close()

	id, err := decodeBuildStream(body, opts.output())
	if err != nil {
		return "", e.classify(BuildFailed, bc.BaseImage, err)
	}
	return id, nil
}

// Tag applies tag to the image. The tag is passed to the daemon verbatim.
func (e *APIEngine) Tag(ctx context.Context, id ImageID, tag string) error {
	if err := e.api.tag(ctx, string(id), tag); err != nil {
		return e.classify(TagFailed, tag, err)
	}
	return nil
}

// Inspect returns the image metadata.
func (e *APIEngine) Inspect(ctx context.Context, id ImageID) (*ImageMetadata, error) {
	md, err := e.api.inspect(ctx, string(id))
	if err != nil {
		return nil, e.classify(NotFound, string(id), err)
	}
	return md, nil
}

// Remove deletes the image and its untagged parents.
func (e *APIEngine) Remove(ctx context.Context, id ImageID, force bool) error {
	if err := e.api.remove(ctx, string(id), force); err != nil {
		return e.classify(NotFound, string(id), err)
	}
	return nil
}

// classify maps a client error onto an EngineError. Connection failures are
// Unavailable and missing objects are NotFound whatever the operation.
func (e *APIEngine) classify(kind EngineErrorKind, ref string, err error) error {
	var buildErr *streamError
	switch {
	case errors.As(err, &buildErr):
		return &EngineError{Kind: kind, Engine: APIEngineName, Ref: ref, Diagnostic: buildErr.msg, Err: err}
	case cerrdefs.IsNotFound(err):
		kind = NotFound
	case isConnectionError(err):
		kind = Unavailable
	case kind == NotFound:
		// Inspect and remove failures that are not "missing" are engine faults.
		kind = Unavailable
	}
	return &EngineError{Kind: kind, Engine: APIEngineName, Ref: ref, Err: err}
}

func isConnectionError(err error) bool {
	if cerrdefs.IsUnavailable(err) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	return strings.Contains(err.Error(), "Cannot connect to the Docker daemon")
}

type streamError struct{ msg string }

func (e *streamError) Error() string { return e.msg }

// decodeBuildStream reads the daemon's JSON progress messages. Stream text is
// copied to out. The image ID comes from the aux message; older daemons only
// print "Successfully built <id>".
func decodeBuildStream(r io.Reader, out io.Writer) (ImageID, error) {
	var (
		id       ImageID
		fallback ImageID
	)

	dec := json.NewDecoder(bufio.NewReader(r))
	for {
		var msg buildMessage
		if err := dec.Decode(&msg); errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return "", fmt.Errorf("decode build output: %w", err)
		}

		if msg.Stream != "" {
			fmt.Fprint(out, msg.Stream)
			if m := successfullyBuilt.FindStringSubmatch(msg.Stream); m != nil {
				fallback = ImageID(m[1])
			}
		}
		if msg.Error != "" || msg.ErrorDetail.Message != "" {
			text := msg.ErrorDetail.Message
			if text == "" {
				text = msg.Error
			}
			return "", &streamError{msg: strings.TrimSpace(text)}
		}
		if msg.Aux.ID != "" {
			id = ImageID(msg.Aux.ID)
		}
	}

	switch {
	case id != "":
		return id, nil
	case fallback != "":
		return fallback, nil
	default:
		return "", errors.New("build output did not report an image ID")
	}
}
