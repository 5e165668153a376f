// SPDX-License-Identifier: MPL-2.0

package buildspec

import (
	"fmt"
	"maps"
	"slices"
	"strconv"
)

const (
	// ProtocolTCP is the default port protocol.
	ProtocolTCP Protocol = "tcp"
	// ProtocolUDP is the only other supported protocol.
	ProtocolUDP Protocol = "udp"
)

type (
	// Protocol is a transport protocol for an exposed port.
	Protocol string

	// Port is a container port exposed by the image.
	Port struct {
		Number   uint16
		Protocol Protocol
	}

	// Command is an entrypoint or default command.
	//
	// Set=false inherits the value from the base image. Set=true with empty Args
	// clears the inherited value.
	Command struct {
		Args []string
		Set  bool
	}

	// Overlay copies a host file or directory into the image.
	Overlay struct {
		// Source is the host path, already resolved against the build file directory.
		Source string
		// Dest is the absolute path inside the image.
		Dest string
	}

	// BuildSpec is a validated build file. It is not modified after Load returns;
	// WithTags returns a copy.
	BuildSpec struct {
		// Path is the build file this BuildSpec was loaded from.
		Path string

		BaseImage    string
		Entrypoint   Command
		Cmd          Command
		WorkingDir   string
		ExposedPorts []Port
		Volumes      []string
		Files        []Overlay
		Tags         []string
		Env          map[string]string
		// EnvFiles are dotenv files resolved against the build file directory.
		// Values from Env take precedence over values read from these files.
		EnvFiles []string
		Labels   map[string]string
		User     string

		// Extra holds unknown top-level keys, untouched.
		Extra map[string]any
	}
)

// String renders the port in "number/protocol" form.
func (p Port) String() string {
	return strconv.Itoa(int(p.Number)) + "/" + string(p.Protocol)
}

// Clone returns a deep copy of s. Extra values are copied shallowly.
func (s *BuildSpec) Clone() *BuildSpec {
	c := *s
	c.Entrypoint = Command{Args: slices.Clone(s.Entrypoint.Args), Set: s.Entrypoint.Set}
	c.Cmd = Command{Args: slices.Clone(s.Cmd.Args), Set: s.Cmd.Set}
	c.ExposedPorts = slices.Clone(s.ExposedPorts)
	c.Volumes = slices.Clone(s.Volumes)
	c.Files = slices.Clone(s.Files)
	c.Tags = slices.Clone(s.Tags)
	c.Env = maps.Clone(s.Env)
	c.EnvFiles = slices.Clone(s.EnvFiles)
	c.Labels = maps.Clone(s.Labels)
	c.Extra = maps.Clone(s.Extra)
	return &c
}

// WithLabels returns a copy of s with extra labels merged in.
// Labels already present in the build file win.
func (s *BuildSpec) WithLabels(labels map[string]string) *BuildSpec {
	c := s.Clone()
	if c.Labels == nil {
		c.Labels = make(map[string]string, len(labels))
	}
	for k, v := range labels {
		if _, ok := c.Labels[k]; !ok {
			c.Labels[k] = v
		}
	}
	return c
}

// WithTags returns a copy of s with extra tags appended after the file's
// own tags. Every tag is validated; exact duplicates are dropped keeping the
// first occurrence.
func (s *BuildSpec) WithTags(tags ...string) (*BuildSpec, error) {
	for _, t := range tags {
		if err := ValidateTag(t); err != nil {
			return nil, fmt.Errorf("tag %q: %w", t, err)
		}
	}
	c := s.Clone()
	c.Tags = MergeTags(c.Tags, tags)
	return c, nil
}
