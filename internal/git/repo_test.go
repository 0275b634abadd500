package git

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtraConfig_Args(t *testing.T) {
	tests := []struct {
		name string
		give extraConfig
		want []string
	}{
		{name: "empty"},
		{
			name: "editor",
			give: extraConfig{Editor: "vim"},
			want: []string{"-c", "core.editor=vim"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.give.Args()
			assert.Equal(t, tt.want, got)
		})
	}
}
