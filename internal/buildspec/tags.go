// SPDX-License-Identifier: MPL-2.0

package buildspec

import (
	"errors"
	"fmt"

	"github.com/distribution/reference"
)

// ErrInvalidTag is wrapped by ValidateTag failures.
var ErrInvalidTag = errors.New("invalid image tag")

// ValidateTag checks that tag can name an image: a repository with an optional
// tag, and no digest. The tag itself is not normalized; "web" stays "web" and
// the engine decides that it means "web:latest".
func ValidateTag(tag string) error {
	ref, err := reference.ParseNormalizedNamed(tag)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTag, err)
	}
	if _, ok := ref.(reference.Digested); ok {
		return fmt.Errorf("%w: %q carries a digest", ErrInvalidTag, tag)
	}
	return nil
}

// validateBaseImage accepts any normalizable reference, digests included.
func validateBaseImage(image string) error {
	if _, err := reference.ParseNormalizedNamed(image); err != nil {
		return fmt.Errorf("invalid image reference %q: %w", image, err)
	}
	return nil
}

// MergeTags appends extra to base, dropping exact duplicates and keeping the
// first occurrence. The result is never nil.
func MergeTags(base, extra []string) []string {
	seen := make(map[string]struct{}, len(base)+len(extra))
	out := make([]string, 0, len(base)+len(extra))
	for _, list := range [][]string{base, extra} {
		for _, t := range list {
			if _, dup := seen[t]; dup {
				continue
			}
			seen[t] = struct{}{}
			out = append(out, t)
		}
	}
	return out
}
