// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"cmp"

	"github.com/charmbracelet/glamour"
	"golang.org/x/exp/slices"
)

// Id identifies a catalog entry.
type Id int

const (
	BuildFileNotFoundId Id = iota + 1
	BuildFileSyntaxId
	BuildFileInvalidId
	BaseImageMissingId
	OverlaySourceNotFoundId
	InvalidTagId
	EngineUnavailableId
	BuildFailedId
	TagFailedId
	SettingsInvalidId
	CanceledId
)

type MarkdownMsg string

type HttpLink string

type Issue struct {
	id       Id          // ID used to lookup the issue
	mdMsg    MarkdownMsg // Markdown text that will be rendered
	docLinks []HttpLink
	extLinks []HttpLink // external links that might be useful for the user
}

func (i *Issue) Id() Id {
	return i.id
}

func (i *Issue) MarkdownMsg() MarkdownMsg {
	return i.mdMsg
}

func (i *Issue) DocLinks() []HttpLink {
	return slices.Clone(i.docLinks)
}

func (i *Issue) ExtLinks() []HttpLink {
	return slices.Clone(i.extLinks)
}

// Render renders the Markdown guidance with the given glamour style
// ("dark", "light", "notty", or a path to a JSON style).
func (i *Issue) Render(stylePath string) (string, error) {
	extraMd := ""
	if len(i.docLinks) > 0 || len(i.extLinks) > 0 {
		extraMd += "\n\n## See also\n"
		for _, link := range i.docLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
		for _, link := range i.extLinks {
			extraMd += "\n- <" + string(link) + ">"
		}
	}
	return render(string(i.mdMsg)+extraMd, stylePath)
}

var (
	render = glamour.Render

	buildFileNotFoundIssue = &Issue{
		id: BuildFileNotFoundId,
		mdMsg: `
# Build file not found!

The path given on the command line does not point to a readable file.

## Things you can try:
- Check the path for typos (it is resolved against the current directory)
- Pass the file explicitly:
~~~
$ ansible-docker ./build.yaml
~~~`,
	}

	buildFileSyntaxIssue = &Issue{
		id: BuildFileSyntaxId,
		mdMsg: `
# Failed to parse the build file!

The build file could not be read as CUE, YAML, JSON or TOML.

## Things you can try:
- Check the error message above for the line and column
- Make sure the file extension matches its content (.yaml, .yml, .json, .toml, .cue)`,
	}

	buildFileInvalidIssue = &Issue{
		id: BuildFileInvalidId,
		mdMsg: `
# The build file is not valid!

The file parsed, but one of its fields has the wrong type or an out-of-range value.

## Common issues:
- exposed_ports outside 1-65535, or a protocol other than tcp/udp
- Relative paths in volumes, working_dir or files[].dest
- A string where a list was expected (entrypoint and command are lists)

## Example of a valid build file:
~~~yaml
base_image: python:3.12-slim
entrypoint: ["/app/entrypoint.py"]
command: ["param1", "param2"]
working_dir: /app
exposed_ports: [10000]
volumes: [/data]
files:
  - src: entrypoint.py
    dest: /app/entrypoint.py
tags: ["pythonapp:1.0"]
~~~`,
	}

	baseImageMissingIssue = &Issue{
		id: BaseImageMissingId,
		mdMsg: `
# No base image!

Every build starts from a base image, and the build file does not name one.

## Things you can try:
- Add a base_image field:
~~~yaml
base_image: debian:bookworm-slim
~~~`,
	}

	overlaySourceNotFoundIssue = &Issue{
		id: OverlaySourceNotFoundId,
		mdMsg: `
# Overlay source not found!

A files[].src entry or an env_files entry points to a path that does not exist.
No image was built.

## Things you can try:
- Relative sources are resolved against the directory of the build file
- Check file permissions on the source path`,
	}

	invalidTagIssue = &Issue{
		id: InvalidTagId,
		mdMsg: `
# Invalid image tag!

Tags must be valid image references such as ` + "`name`, `name:1.0` or `registry.example.com/team/name:1.0`" + `.
Repository names must be lowercase.`,
		extLinks: []HttpLink{"https://docs.docker.com/reference/cli/docker/image/tag/"},
	}

	engineUnavailableIssue = &Issue{
		id: EngineUnavailableId,
		mdMsg: `
# Container engine not available!

ansible-docker could not reach a container engine.

## Things you can try:
- Check that the Docker daemon is running:
~~~
$ docker info
~~~

- Point to a remote daemon with DOCKER_HOST or --host
- Use the CLI engines instead of the API:
~~~
$ ansible-docker --engine podman build.yaml
~~~`,
	}

	buildFailedIssue = &Issue{
		id: BuildFailedId,
		mdMsg: `
# The image build failed!

The engine rejected the generated build. The engine diagnostic is shown above.

## Things you can try:
- Inspect the generated Dockerfile:
~~~
$ ansible-docker --dry-run build.yaml
~~~

- Check that the base image exists and can be pulled`,
	}

	tagFailedIssue = &Issue{
		id: TagFailedId,
		mdMsg: `
# Tagging failed!

The image was built, but not every tag could be applied. The tags listed above
were applied before the failure; the image is not removed automatically.`,
	}

	settingsInvalidIssue = &Issue{
		id: SettingsInvalidId,
		mdMsg: `
# Invalid settings!

The settings file or an ANSIBLE_DOCKER_* environment variable holds an invalid value.

## Valid settings:
~~~cue
engine:        "api" | "docker" | "podman" | "auto"
host:          string
log_level:     "debug" | "info" | "warn" | "error"
build_timeout: "30m"
provenance:    bool
~~~`,
	}

	canceledIssue = &Issue{
		id: CanceledId,
		mdMsg: `
# Interrupted!

The run was canceled before it finished. No further engine calls were made.`,
	}

	issues = map[Id]*Issue{
		buildFileNotFoundIssue.Id():     buildFileNotFoundIssue,
		buildFileSyntaxIssue.Id():       buildFileSyntaxIssue,
		buildFileInvalidIssue.Id():      buildFileInvalidIssue,
		baseImageMissingIssue.Id():      baseImageMissingIssue,
		overlaySourceNotFoundIssue.Id(): overlaySourceNotFoundIssue,
		invalidTagIssue.Id():            invalidTagIssue,
		engineUnavailableIssue.Id():     engineUnavailableIssue,
		buildFailedIssue.Id():           buildFailedIssue,
		tagFailedIssue.Id():             tagFailedIssue,
		settingsInvalidIssue.Id():       settingsInvalidIssue,
		canceledIssue.Id():              canceledIssue,
	}
)

// Values returns every catalog entry ordered by id.
func Values() []*Issue {
	out := make([]*Issue, 0, len(issues))
	for _, i := range issues {
		out = append(out, i)
	}
	slices.SortFunc(out, func(a, b *Issue) int { return cmp.Compare(a.id, b.id) })
	return out
}

func Get(id Id) *Issue {
	return issues[id]
}
