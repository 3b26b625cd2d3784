package core

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationError_Error(t *testing.T) {
	tests := []struct {
		name string
		err  *MigrationError
		want string
	}{
		{
			name: "message only",
			err:  &MigrationError{Kind: KindSourceReadFailed, Message: "failed to read source"},
			want: "failed to read source",
		},
		{
			name: "value and accepted",
			err: &MigrationError{
				Kind:     KindInvalidMediaSubclass,
				Message:  "invalid media class",
				Value:    "Foo",
				Accepted: []string{"Demo_GA4", "Sessions"},
			},
			want: `invalid media class: "Foo" (accepted: Demo_GA4, Sessions)`,
		},
		{
			name: "wrapped cause",
			err: &MigrationError{
				Kind:    KindSinkWriteFailed,
				Message: "failed to write target",
				Err:     errors.New("connection refused"),
			},
			want: "failed to write target: connection refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.err.Error())
		})
	}
}

func TestErrorf_RecordsLocation(t *testing.T) {
	err := Errorf(KindInvalidLayer, "layer %s has no successor", "DZ")

	require.NotNil(t, err.Location)
	assert.Equal(t, "errors_test.go", err.Location.File)
	assert.Contains(t, err.Location.Function, "TestErrorf_RecordsLocation")
	assert.Equal(t, "layer DZ has no successor", err.Message)
}

func TestKindOf(t *testing.T) {
	base := InvalidValue(KindInvalidMediaCategory, "invalid media type", "XYZ", []string{"GA4"})
	wrapped := fmt.Errorf("failed to validate: %w", base)

	assert.Equal(t, KindInvalidMediaCategory, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindInvalidMediaCategory))
	assert.False(t, IsKind(errors.New("plain"), KindInvalidMediaCategory))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}

func TestWrapError_Unwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := WrapError(KindSinkWriteFailed, cause, "failed to write %s", "GL")

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "failed to write GL: disk full", err.Error())
}
