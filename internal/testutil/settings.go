// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"github.com/caarlos0/env/v11"
)

// Settings configure integration tests through the environment.
type Settings struct {
	// BaseImage is the image integration builds start from. It must be
	// pullable or already present.
	BaseImage string `env:"ANSIBLE_DOCKER_TEST_BASE_IMAGE" envDefault:"docker.io/library/alpine:3.20"`
	// Engine selects the engine under test (api, docker, podman or auto).
	Engine string `env:"ANSIBLE_DOCKER_TEST_ENGINE" envDefault:"auto"`
	// Parallel caps concurrent builds; zero picks a default.
	Parallel int `env:"ANSIBLE_DOCKER_TEST_CONTAINER_PARALLEL"`
}

// LoadSettings parses Settings from the environment. Malformed values fall
// back to the defaults.
func LoadSettings() Settings {
	s, err := env.ParseAs[Settings]()
	if err != nil {
		return Settings{BaseImage: "docker.io/library/alpine:3.20", Engine: "auto"}
	}
	return s
}
