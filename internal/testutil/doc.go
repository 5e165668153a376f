// SPDX-License-Identifier: MPL-2.0

// Package testutil holds helpers for tests that talk to a real container
// engine: environment-driven settings, engine gating and a process-wide limit
// on concurrent daemon builds.
package testutil
