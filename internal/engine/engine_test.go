package engine

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSpecValidate(t *testing.T) {
	t.Parallel()

	valid := ContainerSpec{
		Image:         "mongo:latest",
		ContainerPort: 27017,
		HostPort:      40123,
	}
	require.NoError(t, valid.validate())

	tests := []struct {
		name   string
		mutate func(*ContainerSpec)
	}{
		{name: "missing image", mutate: func(s *ContainerSpec) { s.Image = "" }},
		{name: "zero container port", mutate: func(s *ContainerSpec) { s.ContainerPort = 0 }},
		{name: "container port too large", mutate: func(s *ContainerSpec) { s.ContainerPort = 70000 }},
		{name: "zero host port", mutate: func(s *ContainerSpec) { s.HostPort = 0 }},
		{name: "negative host port", mutate: func(s *ContainerSpec) { s.HostPort = -1 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			spec := valid
			tc.mutate(&spec)
			require.Error(t, spec.validate())
		})
	}
}

func TestTrimNamePrefix(t *testing.T) {
	t.Parallel()

	require.Equal(t, "temp-mongo", TrimNamePrefix("/temp-mongo"))
	require.Equal(t, "temp-mongo", TrimNamePrefix("temp-mongo"))
	require.Equal(t, "", TrimNamePrefix("/"))
}
