package duckdb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParams(t *testing.T) {
	tests := []struct {
		name    string
		input   map[string]any
		want    *Params
		wantErr bool
	}{
		{
			name:  "nil params returns empty struct",
			input: nil,
			want:  &Params{},
		},
		{
			name: "extensions and settings",
			input: map[string]any{
				"extensions": []any{"httpfs", "json"},
				"settings":   map[string]any{"threads": 4, "memory_limit": "2GB"},
			},
			want: &Params{
				Extensions: []string{"httpfs", "json"},
				Settings:   map[string]string{"threads": "4", "memory_limit": "2GB"},
			},
		},
		{
			name: "minio secret with path style",
			input: map[string]any{
				"secrets": []any{
					map[string]any{
						"type":      "s3",
						"provider":  "config",
						"key_id":    "lake",
						"secret":    "lake-secret",
						"endpoint":  "localhost:9000",
						"url_style": "path",
						"use_ssl":   false,
						"scope":     []any{"s3://edlz", "s3://raw"},
					},
				},
			},
			want: &Params{
				Secrets: []SecretConfig{{
					Type:     "s3",
					Provider: "config",
					KeyID:    "lake",
					Secret:   "lake-secret",
					Endpoint: "localhost:9000",
					URLStyle: "path",
					UseSSL:   boolPtr(false),
					Scope:    []any{"s3://edlz", "s3://raw"},
				}},
			},
		},
		{
			name:    "unknown key is rejected",
			input:   map[string]any{"extension": []any{"json"}},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseParams(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func boolPtr(b bool) *bool {
	return &b
}
