package forge

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dangazineu/ghcollect/internal/forge/forgetest"
)

func TestParseFullName(t *testing.T) {
	tests := []struct {
		in        string
		owner     string
		name      string
		expectErr bool
	}{
		{in: "ASSERT-KTH/flacoco", owner: "ASSERT-KTH", name: "flacoco"},
		{in: "flacoco", expectErr: true},
		{in: "a/b/c", expectErr: true},
		{in: "/repo", expectErr: true},
		{in: "owner/", expectErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			owner, name, err := ParseFullName(tt.in)
			if tt.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.owner, owner)
			assert.Equal(t, tt.name, name)
		})
	}
}

func TestRepository(t *testing.T) {
	server := forgetest.NewServer()
	defer server.Close()
	server.AddRepository(forgetest.Repository{
		ID:       1,
		Name:     "flacoco",
		FullName: "ASSERT-KTH/flacoco",
		Owner:    forgetest.Owner{Login: "ASSERT-KTH"},
		Stars:    42,
		Language: " Java ",
		Size:     2048,
		CloneURL: "https://github.com/ASSERT-KTH/flacoco.git",
	})

	client, err := NewClient("ghp_exampletoken", server.URL)
	require.NoError(t, err)

	repo, err := client.Repository(context.Background(), "ASSERT-KTH/flacoco")
	require.NoError(t, err)
	assert.Equal(t, &Repository{
		FullName: "ASSERT-KTH/flacoco",
		Owner:    "ASSERT-KTH",
		Name:     "flacoco",
		Stars:    42,
		Language: "java",
		Size:     2048,
		CloneURL: "https://github.com/ASSERT-KTH/flacoco.git",
	}, repo)

	_, err = client.Repository(context.Background(), "ASSERT-KTH/missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNotFound), "expected ErrNotFound, got %v", err)

	_, err = client.Repository(context.Background(), "not-a-full-name")
	require.Error(t, err)
	assert.Equal(t, 2, server.Requests())
}

func TestNewClientInvalidBaseURL(t *testing.T) {
	_, err := NewClient("", "://bad")
	assert.Error(t, err)
}
