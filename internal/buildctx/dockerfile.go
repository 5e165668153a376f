// SPDX-License-Identifier: MPL-2.0

package buildctx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/moby/buildkit/frontend/dockerfile/parser"
)

// Dockerfile renders the context as a Dockerfile.
//
// Directives are emitted in a fixed order (FROM, COPY, ENV, LABEL, USER,
// WORKDIR, EXPOSE, VOLUME, ENTRYPOINT, CMD) and map keys are sorted, so the
// same context always renders to the same bytes.
func (bc *BuildContext) Dockerfile() []byte {
	var b bytes.Buffer

	fmt.Fprintf(&b, "FROM %s\n", bc.BaseImage)

	for _, o := range bc.Overlays {
		fmt.Fprintf(&b, "COPY %s\n", execForm([]string{o.Name, o.Dest}))
	}

	for _, k := range slices.Sorted(maps.Keys(bc.Config.Env)) {
		fmt.Fprintf(&b, "ENV %s=%s\n", k, quote(bc.Config.Env[k]))
	}
	for _, k := range slices.Sorted(maps.Keys(bc.Config.Labels)) {
		fmt.Fprintf(&b, "LABEL %s=%s\n", quote(k), quote(bc.Config.Labels[k]))
	}

	if bc.Config.User != "" {
		fmt.Fprintf(&b, "USER %s\n", escapeVars(bc.Config.User))
	}
	if bc.Config.WorkingDir != "" {
		fmt.Fprintf(&b, "WORKDIR %s\n", escapeVars(bc.Config.WorkingDir))
	}

	if len(bc.Config.ExposedPorts) > 0 {
		fmt.Fprintf(&b, "EXPOSE %s\n", strings.Join(slices.Sorted(maps.Keys(bc.Config.ExposedPorts)), " "))
	}
	if len(bc.Config.Volumes) > 0 {
		fmt.Fprintf(&b, "VOLUME %s\n", execForm(slices.Sorted(maps.Keys(bc.Config.Volumes))))
	}

	if bc.Config.Entrypoint != nil {
		fmt.Fprintf(&b, "ENTRYPOINT %s\n", execForm(*bc.Config.Entrypoint))
	}
	if bc.Config.Cmd != nil {
		fmt.Fprintf(&b, "CMD %s\n", execForm(*bc.Config.Cmd))
	}

	return b.Bytes()
}

// Validate checks that the context renders to a Dockerfile the builder accepts.
func (bc *BuildContext) Validate() error {
	for k, v := range bc.Config.Env {
		if err := checkEnvKey(k); err != nil {
			return &AssemblyError{Kind: InvalidDockerfile, Err: err}
		}
		if strings.ContainsAny(v, "\r\n") {
			return &AssemblyError{Kind: InvalidDockerfile, Err: fmt.Errorf("env %s: value spans multiple lines", k)}
		}
	}
	for k, v := range bc.Config.Labels {
		if strings.ContainsAny(k+v, "\r\n") {
			return &AssemblyError{Kind: InvalidDockerfile, Err: fmt.Errorf("label %s: value spans multiple lines", k)}
		}
	}
	if strings.ContainsAny(bc.Config.User+bc.Config.WorkingDir+bc.BaseImage, "\r\n") {
		return &AssemblyError{Kind: InvalidDockerfile, Err: errors.New("line break in base image, user or working directory")}
	}

	res, err := parser.Parse(bytes.NewReader(bc.Dockerfile()))
	if err != nil {
		return &AssemblyError{Kind: InvalidDockerfile, Err: err}
	}
	if len(res.AST.Children) == 0 || !strings.EqualFold(res.AST.Children[0].Value, "from") {
		return &AssemblyError{Kind: InvalidDockerfile, Err: errors.New("first instruction is not FROM")}
	}
	return nil
}

// execForm renders args as a JSON array, the Dockerfile exec form.
func execForm(args []string) string {
	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if args == nil {
		args = []string{}
	}
	// Encoding a []string cannot fail.
	_ = enc.Encode(args)
	return strings.TrimSuffix(b.String(), "\n")
}

// quote renders s as a double-quoted Dockerfile word with variable
// substitution disabled.
func quote(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`, `$`, `\$`)
	return `"` + r.Replace(s) + `"`
}

func escapeVars(s string) string {
	return strings.ReplaceAll(s, "$", `\$`)
}

func checkEnvKey(k string) error {
	if k == "" {
		return errors.New("empty env variable name")
	}
	if strings.ContainsAny(k, "= \t\"'$\\\r\n") {
		return fmt.Errorf("invalid env variable name %q", k)
	}
	return nil
}
