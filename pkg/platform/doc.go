// SPDX-License-Identifier: MPL-2.0

// Package platform detects application sandboxes (Flatpak, Snap) so that
// container engine binaries can be spawned on the host instead of inside the
// sandbox, where they are usually unreachable.
package platform
