// SPDX-License-Identifier: MPL-2.0

package buildctx

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"slices"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/ansible-docker/ansible-docker/internal/buildspec"
)

// DockerfileName is the name of the generated Dockerfile inside the context.
const DockerfileName = "Dockerfile"

type (
	// OverlayOp copies Source from the host into the image at Dest.
	// Name is the entry's path inside the build context.
	OverlayOp struct {
		Source string
		Name   string
		Dest   string
	}

	// ImageConfig is the configuration the built image must carry.
	// A nil Entrypoint or Cmd inherits the base image value; a pointer to an
	// empty slice clears it.
	ImageConfig struct {
		Entrypoint   *[]string
		Cmd          *[]string
		WorkingDir   string
		ExposedPorts map[string]struct{}
		Volumes      map[string]struct{}
		Env          map[string]string
		Labels       map[string]string
		User         string
	}

	// BuildContext is everything an engine needs to build one image.
	BuildContext struct {
		BaseImage string
		Overlays  []OverlayOp
		Config    ImageConfig
	}
)

// Assemble derives the build context for spec.
//
// The only I/O is checking that overlay sources exist and reading env files.
// Values in spec.Env override values from env files; later env files override
// earlier ones.
func Assemble(spec *buildspec.BuildSpec) (*BuildContext, error) {
	overlays := make([]OverlayOp, 0, len(spec.Files))
	for i, f := range spec.Files {
		if _, err := os.Stat(f.Source); err != nil {
			return nil, sourceError(f.Source, err)
		}
		overlays = append(overlays, OverlayOp{
			Source: f.Source,
			Name:   "overlay/" + strconv.Itoa(i),
			Dest:   f.Dest,
		})
	}

	env, err := readEnv(spec.EnvFiles)
	if err != nil {
		return nil, err
	}
	maps.Copy(env, spec.Env)

	bc := &BuildContext{
		BaseImage: spec.BaseImage,
		Overlays:  overlays,
		Config: ImageConfig{
			Entrypoint:   commandPtr(spec.Entrypoint),
			Cmd:          commandPtr(spec.Cmd),
			WorkingDir:   spec.WorkingDir,
			ExposedPorts: make(map[string]struct{}, len(spec.ExposedPorts)),
			Volumes:      make(map[string]struct{}, len(spec.Volumes)),
			Env:          env,
			Labels:       maps.Clone(spec.Labels),
			User:         spec.User,
		},
	}
	if bc.Config.Labels == nil {
		bc.Config.Labels = map[string]string{}
	}
	for _, p := range spec.ExposedPorts {
		bc.Config.ExposedPorts[p.String()] = struct{}{}
	}
	for _, v := range spec.Volumes {
		bc.Config.Volumes[v] = struct{}{}
	}

	if err := bc.Validate(); err != nil {
		return nil, err
	}
	return bc, nil
}

func commandPtr(c buildspec.Command) *[]string {
	if !c.Set {
		return nil
	}
	args := slices.Clone(c.Args)
	if args == nil {
		args = []string{}
	}
	return &args
}

func readEnv(files []string) (map[string]string, error) {
	env := map[string]string{}
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			return nil, sourceError(f, err)
		}
		values, err := godotenv.Read(f)
		if err != nil {
			return nil, &AssemblyError{Kind: Materialize, Path: f, Err: fmt.Errorf("read env file: %w", err)}
		}
		maps.Copy(env, values)
	}
	return env, nil
}

func sourceError(path string, err error) *AssemblyError {
	if !errors.Is(err, fs.ErrNotExist) {
		return &AssemblyError{Kind: Materialize, Path: path, Err: err}
	}
	return &AssemblyError{Kind: SourceNotFound, Path: path, Err: err}
}
