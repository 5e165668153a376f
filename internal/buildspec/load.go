// SPDX-License-Identifier: MPL-2.0

package buildspec

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"sigs.k8s.io/yaml"

	"github.com/ansible-docker/ansible-docker/pkg/cueutil"
)

//go:embed buildspec_schema.cue
var schema []byte

// document mirrors the build file keys. Pointers distinguish absent lists
// from empty ones.
type document struct {
	BaseImage       string            `mapstructure:"base_image"`
	Entrypoint      *[]string         `mapstructure:"entrypoint"`
	Command         *[]string         `mapstructure:"command"`
	ClearEntrypoint bool              `mapstructure:"clear_entrypoint"`
	ClearCommand    bool              `mapstructure:"clear_command"`
	WorkingDir      string            `mapstructure:"working_dir"`
	ExposedPorts    []Port            `mapstructure:"exposed_ports"`
	Volumes         []string          `mapstructure:"volumes"`
	Files           []fileEntry       `mapstructure:"files"`
	Tags            []string          `mapstructure:"tags"`
	Env             map[string]string `mapstructure:"env"`
	EnvFiles        []string          `mapstructure:"env_files"`
	Labels          map[string]string `mapstructure:"labels"`
	User            string            `mapstructure:"user"`
}

type fileEntry struct {
	Src  string `mapstructure:"src"`
	Dest string `mapstructure:"dest"`
}

// Load reads, parses and validates the build file at path.
//
// The format is chosen by extension: .cue is CUE, .toml is TOML, and anything
// else (.yaml, .yml, .json, no extension) is read as YAML, which covers JSON.
// All errors are *ConfigError.
func Load(ctx context.Context, path string) (*BuildSpec, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Kind: NotFound, Path: path, Err: err}
		}
		return nil, &ConfigError{Kind: ParseError, Path: path, Err: err}
	}
	if info.IsDir() {
		return nil, &ConfigError{Kind: NotFound, Path: path, Err: fmt.Errorf("%s is a directory", path)}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigError{Kind: ParseError, Path: path, Err: err}
	}
	return Parse(data, path)
}

// Parse validates build file content. path selects the format and is the base
// for relative overlay and env file sources; the file itself is not read.
func Parse(data []byte, path string) (*BuildSpec, error) {
	cueData, err := toCUE(data, path)
	if err != nil {
		return nil, &ConfigError{Kind: ParseError, Path: path, Err: err}
	}

	v, err := cueutil.Unify(schema, cueData, "#BuildSpec",
		cueutil.WithFilename(path), cueutil.WithConcrete(true))
	if err != nil {
		if errors.Is(err, cueutil.ErrSchema) {
			return nil, &ConfigError{Kind: InvalidField, Path: path, Err: err}
		}
		return nil, &ConfigError{Kind: ParseError, Path: path, Err: err}
	}

	raw, err := cueutil.DecodeMap(v, path)
	if err != nil {
		return nil, &ConfigError{Kind: InvalidField, Path: path, Err: err}
	}

	return fromMap(raw, path)
}

// toCUE converts the input to something the CUE compiler accepts.
// CUE and JSON pass through; YAML and TOML are converted to JSON.
func toCUE(data []byte, path string) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cue":
		return data, nil
	case ".toml":
		var m map[string]any
		if err := toml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("%w: %w", cueutil.ErrSyntax, err)
		}
		if m == nil {
			m = map[string]any{}
		}
		return json.Marshal(m)
	default:
		out, err := yaml.YAMLToJSON(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", cueutil.ErrSyntax, err)
		}
		// An empty document decodes to null; treat it as an empty mapping so the
		// missing base_image is what gets reported.
		if t := bytes.TrimSpace(out); len(t) == 0 || bytes.Equal(t, []byte("null")) {
			return []byte("{}"), nil
		}
		return out, nil
	}
}

func fromMap(raw map[string]any, path string) (*BuildSpec, error) {
	var (
		doc  document
		meta mapstructure.Metadata
	)
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: portHook(),
		Metadata:   &meta,
		Result:     &doc,
		TagName:    "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf("internal error: %w", err)
	}
	if err := dec.Decode(raw); err != nil {
		return nil, invalidField(path, "", err)
	}

	if strings.TrimSpace(doc.BaseImage) == "" {
		return nil, &ConfigError{Kind: MissingField, Path: path, Field: "base_image"}
	}
	if err := validateBaseImage(doc.BaseImage); err != nil {
		return nil, invalidField(path, "base_image", err)
	}

	entrypoint, err := command(doc.Entrypoint, doc.ClearEntrypoint)
	if err != nil {
		return nil, invalidField(path, "entrypoint", err)
	}
	cmd, err := command(doc.Command, doc.ClearCommand)
	if err != nil {
		return nil, invalidField(path, "command", err)
	}

	for i, t := range doc.Tags {
		if err := ValidateTag(t); err != nil {
			return nil, invalidField(path, fmt.Sprintf("tags[%d]", i), err)
		}
	}

	baseDir := filepath.Dir(path)
	files := make([]Overlay, 0, len(doc.Files))
	for _, f := range doc.Files {
		files = append(files, Overlay{Source: resolve(baseDir, f.Src), Dest: f.Dest})
	}
	envFiles := make([]string, 0, len(doc.EnvFiles))
	for _, f := range doc.EnvFiles {
		envFiles = append(envFiles, resolve(baseDir, f))
	}

	spec := &BuildSpec{
		Path:         path,
		BaseImage:    doc.BaseImage,
		Entrypoint:   entrypoint,
		Cmd:          cmd,
		WorkingDir:   doc.WorkingDir,
		ExposedPorts: dedupPorts(doc.ExposedPorts),
		Volumes:      dedupStrings(doc.Volumes),
		Files:        files,
		Tags:         MergeTags(doc.Tags, nil),
		Env:          nonNilMap(doc.Env),
		EnvFiles:     envFiles,
		Labels:       nonNilMap(doc.Labels),
		User:         doc.User,
		Extra:        make(map[string]any, len(meta.Unused)),
	}
	for _, key := range meta.Unused {
		if v, ok := raw[key]; ok {
			spec.Extra[key] = v
		}
	}
	return spec, nil
}

func command(args *[]string, reset bool) (Command, error) {
	switch {
	case reset && args != nil && len(*args) > 0:
		return Command{}, errors.New("cannot set a value and clear it at the same time")
	case reset:
		return Command{Args: []string{}, Set: true}, nil
	case args == nil || len(*args) == 0:
		return Command{Args: []string{}}, nil
	default:
		return Command{Args: *args, Set: true}, nil
	}
}

func resolve(baseDir, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(baseDir, p)
}

func dedupPorts(ports []Port) []Port {
	seen := make(map[Port]struct{}, len(ports))
	out := make([]Port, 0, len(ports))
	for _, p := range ports {
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

func dedupStrings(in []string) []string {
	return MergeTags(in, nil)
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
