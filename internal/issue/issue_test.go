// SPDX-License-Identifier: MPL-2.0

package issue

import (
	"strings"
	"testing"
)

func TestValues_CoversEveryId(t *testing.T) {
	t.Parallel()

	values := Values()
	if len(values) != int(CanceledId) {
		t.Fatalf("Values() returned %d issues, want %d", len(values), CanceledId)
	}
	for i, v := range values {
		if v.Id() != Id(i+1) {
			t.Errorf("Values()[%d].Id() = %d, want %d", i, v.Id(), i+1)
		}
		if strings.TrimSpace(string(v.MarkdownMsg())) == "" {
			t.Errorf("issue %d has empty markdown", v.Id())
		}
	}
}

func TestGet(t *testing.T) {
	t.Parallel()

	if got := Get(BaseImageMissingId); got == nil || !strings.Contains(string(got.MarkdownMsg()), "base_image") {
		t.Errorf("Get(BaseImageMissingId) = %v, want entry mentioning base_image", got)
	}
	if got := Get(Id(999)); got != nil {
		t.Errorf("Get(999) = %v, want nil", got)
	}
}

func TestIssue_LinksAreCloned(t *testing.T) {
	t.Parallel()

	i := Get(InvalidTagId)
	links := i.ExtLinks()
	if len(links) == 0 {
		t.Fatal("InvalidTagId should carry an external link")
	}
	links[0] = "mutated"
	if i.ExtLinks()[0] == "mutated" {
		t.Error("ExtLinks() must return a copy")
	}
	if len(i.DocLinks()) != 0 {
		t.Errorf("DocLinks() = %v, want empty", i.DocLinks())
	}
}

func TestIssue_Render(t *testing.T) {
	t.Parallel()

	for _, i := range Values() {
		out, err := i.Render("notty")
		if err != nil {
			t.Errorf("Render(%d) error: %v", i.Id(), err)
			continue
		}
		if strings.TrimSpace(out) == "" {
			t.Errorf("Render(%d) produced empty output", i.Id())
		}
	}
}

func TestIssue_Render_WithLinks(t *testing.T) {
	t.Parallel()

	out, err := Get(InvalidTagId).Render("notty")
	if err != nil {
		t.Fatalf("Render() error: %v", err)
	}
	if !strings.Contains(out, "See also") || !strings.Contains(out, "docs.docker.com") {
		t.Errorf("Render() should list links, got:\n%s", out)
	}
}
