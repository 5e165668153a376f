// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/ansible-docker/ansible-docker/cmd/ansible-docker"

func main() {
	cmd.Execute()
}
