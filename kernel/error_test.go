package kernel

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKernelError(t *testing.T) {
	specs := []struct {
		err *Error
		exp string
	}{
		{&Error{Module: "pmm", Message: "out of memory"}, "pmm: out of memory"},
		{&Error{Message: "no module"}, "no module"},
	}

	for specIndex, spec := range specs {
		require.Equal(t, spec.exp, spec.err.Error(), "[spec %d]", specIndex)
	}
}
