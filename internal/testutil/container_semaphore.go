// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"runtime"
	"sync"
)

// ContainerSemaphore returns a process-wide buffered channel that limits
// concurrent daemon builds in tests. Acquire a slot by sending, release by
// receiving:
//
//	sem := testutil.ContainerSemaphore()
//	sem <- struct{}{}
//	defer func() { <-sem }()
//
// The capacity is ANSIBLE_DOCKER_TEST_CONTAINER_PARALLEL when set, otherwise
// min(GOMAXPROCS, 2). Podman on small CI runners hangs rather than failing
// when too many builds run at once.
var ContainerSemaphore = sync.OnceValue(func() chan struct{} {
	return make(chan struct{}, containerParallelism(LoadSettings().Parallel))
})

func containerParallelism(configured int) int {
	if configured > 0 {
		return configured
	}
	return min(runtime.GOMAXPROCS(0), 2)
}
