package commands

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapflow/internal/cli/config"
	catalog "github.com/leapstack-labs/leapflow/internal/config"
	"github.com/leapstack-labs/leapflow/internal/secrets"
)

func TestDatabaseConfig(t *testing.T) {
	t.Setenv("LEAPFLOW_LAKE_ACCESS_KEY", "lake")
	t.Setenv("LEAPFLOW_LAKE_SECRET_KEY", "lake-secret")
	provider := secrets.NewEnv("LEAPFLOW_")
	useSSL := false

	tests := []struct {
		name    string
		engine  config.EngineConfig
		want    map[string]any
		wantErr string
	}{
		{
			name:   "defaults to memory without params",
			engine: config.EngineConfig{},
			want:   map[string]any{},
		},
		{
			name: "minio bucket with provider credentials",
			engine: config.EngineConfig{
				Extensions: []string{"httpfs"},
				Secrets: []config.EngineSecret{{
					Type:     "s3",
					Provider: "config",
					Scope:    []string{"s3://edlz"},
					Endpoint: "localhost:9000",
					URLStyle: "path",
					UseSSL:   &useSSL,
					KeyID:    &catalog.SecretRef{Scope: "lake", Key: "access_key"},
					Secret:   &catalog.SecretRef{Scope: "lake", Key: "secret_key"},
				}},
			},
			want: map[string]any{
				"extensions": []string{"httpfs"},
				"secrets": []map[string]any{{
					"type":      "s3",
					"provider":  "config",
					"scope":     []string{"s3://edlz"},
					"endpoint":  "localhost:9000",
					"url_style": "path",
					"use_ssl":   false,
					"key_id":    "lake",
					"secret":    "lake-secret",
				}},
			},
		},
		{
			name: "credential chain needs no lookup",
			engine: config.EngineConfig{
				Secrets: []config.EngineSecret{{Type: "s3", Provider: "credential_chain", Region: "eu-west-1"}},
			},
			want: map[string]any{
				"secrets": []map[string]any{{"type": "s3", "provider": "credential_chain", "region": "eu-west-1"}},
			},
		},
		{
			name: "missing credential",
			engine: config.EngineConfig{
				Secrets: []config.EngineSecret{{
					Type:  "s3",
					KeyID: &catalog.SecretRef{Scope: "lake", Key: "token"},
				}},
			},
			wantErr: "LEAPFLOW_LAKE_TOKEN",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := databaseConfig(context.Background(), tt.engine, provider)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "engine.secrets[0]")
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.ErrorIs(t, err, secrets.ErrNotFound)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "duckdb", got.Type)
			assert.Equal(t, config.DefaultDatabase, got.Path)
			assert.Equal(t, tt.want, got.Params)
		})
	}
}
