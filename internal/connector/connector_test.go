package connector

import (
	"context"
	"testing"

	"github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviders(t *testing.T) {
	providers := Providers()
	assert.Contains(t, providers, ProviderFile)
	assert.Contains(t, providers, ProviderS3)
	assert.Contains(t, providers, ProviderPostgres)
}

func TestOpen_UnknownProvider(t *testing.T) {
	_, err := Open(context.Background(), Params{
		Provider: config.Provider{Type: "ftp"},
		Engine:   testutil.NewEngine(t),
	})
	require.Error(t, err)

	var unknown *UnknownProviderError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "ftp", unknown.Type)
	assert.Contains(t, unknown.Available, ProviderFile)
	assert.Contains(t, err.Error(), "Available providers")
}

func TestOpen_RequiresEngine(t *testing.T) {
	_, err := Open(context.Background(), Params{Provider: config.Provider{Type: ProviderFile}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dataset engine")
}

func TestDecodeOptions(t *testing.T) {
	tests := []struct {
		name    string
		params  Params
		want    PostgresOptions
		wantErr string
	}{
		{
			name: "options only",
			params: Params{Provider: config.Provider{Type: ProviderPostgres, Options: map[string]any{
				"host": "db.internal", "port": "5433", "schema": "analytics",
			}}},
			want: PostgresOptions{Host: "db.internal", Port: 5433, Schema: "analytics"},
		},
		{
			name: "secrets override options",
			params: Params{
				Provider: config.Provider{Type: ProviderPostgres, Options: map[string]any{"username": "reader"}},
				Secrets:  map[string]string{"username": "writer", "password": "s3cret", "unused": "x"},
			},
			want: PostgresOptions{Username: "writer", Password: "s3cret"},
		},
		{
			name: "unknown option",
			params: Params{Provider: config.Provider{Type: ProviderPostgres, Options: map[string]any{
				"hostname": "db",
			}}},
			wantErr: "invalid postgres options",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got PostgresOptions
			err := decodeOptions(tt.params, &got)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsFilePath(t *testing.T) {
	tests := []struct {
		location string
		want     bool
	}{
		{"Google/GA4/RZ/GA4-Pages-RZ", false},
		{"Google/GA4/RZ/GA4-Pages-RZ/2025/01/31", false},
		{"Google/GA4/RZ/GA4-Pages-RZ.parquet", true},
		{"exports/pages.CSV", true},
		{"exports/pages.json", true},
		{"exports/v1.2", false},
	}
	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, isFilePath(tt.location))
		})
	}
}
