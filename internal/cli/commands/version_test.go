package commands

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewVersionCommand(t *testing.T) {
	tests := []struct {
		name    string
		version string
		wantOut []string
	}{
		{
			name:    "release version",
			version: "0.1.0",
			wantOut: []string{"LeapQuery v0.1.0", "verified SQL"},
		},
		{
			name:    "dev version",
			version: "dev",
			wantOut: []string{"LeapQuery vdev"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := NewVersionCommand(tt.version)
			buf := new(bytes.Buffer)
			cmd.SetOut(buf)
			cmd.SetErr(buf)
			cmd.SetArgs([]string{})

			require.NoError(t, cmd.Execute())
			for _, want := range tt.wantOut {
				assert.Contains(t, buf.String(), want)
			}
		})
	}
}
