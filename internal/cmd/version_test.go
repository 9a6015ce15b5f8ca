package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCmd(t *testing.T) {
	var out bytes.Buffer
	cmd := NewVersionCmd("1.2.3")
	cmd.SetOut(&out)

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "pkgprobe version 1.2.3\n", out.String())
}
