// SPDX-License-Identifier: MPL-2.0

package cueutil_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/ansible-docker/ansible-docker/pkg/cueutil"
)

const testSchema = `
#Doc: {
	name:  string & !=""
	port?: int & >=1 & <=65535
	...
}
`

func TestUnify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		data    string
		wantErr error
	}{
		{name: "valid CUE", data: `name: "web", port: 8080`},
		{name: "valid JSON", data: `{"name": "web", "port": 8080}`},
		{name: "open definition keeps unknown fields", data: `{"name": "web", "extra": true}`},
		{name: "syntax error", data: `{"name": `, wantErr: cueutil.ErrSyntax},
		{name: "out of range", data: `{"name": "web", "port": 70000}`, wantErr: cueutil.ErrSchema},
		{name: "wrong type", data: `{"name": 3}`, wantErr: cueutil.ErrSchema},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := cueutil.Unify([]byte(testSchema), []byte(tt.data), "#Doc", cueutil.WithFilename("doc.json"))
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("Unify() unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Unify() error = %v, want wrapping %v", err, tt.wantErr)
			}
			if !strings.Contains(err.Error(), "doc.json") {
				t.Errorf("error should name the file, got: %v", err)
			}
		})
	}
}

func TestUnify_FileSizeLimit(t *testing.T) {
	t.Parallel()

	_, err := cueutil.Unify([]byte(testSchema), []byte(`{"name": "web"}`), "#Doc", cueutil.WithMaxFileSize(4))
	if !errors.Is(err, cueutil.ErrTooLarge) {
		t.Fatalf("Unify() error = %v, want ErrTooLarge", err)
	}
}

func TestDecodeMap(t *testing.T) {
	t.Parallel()

	v, err := cueutil.Unify([]byte(testSchema), []byte(`{"name": "web", "port": 10000, "extra": "x"}`), "#Doc")
	if err != nil {
		t.Fatalf("Unify() unexpected error: %v", err)
	}

	m, err := cueutil.DecodeMap(v, "doc.json")
	if err != nil {
		t.Fatalf("DecodeMap() unexpected error: %v", err)
	}
	if m["name"] != "web" {
		t.Errorf("name = %v, want web", m["name"])
	}
	if m["extra"] != "x" {
		t.Errorf("extra = %v, want x", m["extra"])
	}
	if _, ok := m["port"]; !ok {
		t.Error("port missing from decoded map")
	}
}
