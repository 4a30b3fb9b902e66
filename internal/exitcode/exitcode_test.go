package exitcode

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/implindex/internal/config"
	"github.com/zjrosen/implindex/internal/domain/implementors"
	"github.com/zjrosen/implindex/internal/fragment"
)

func TestFromError(t *testing.T) {
	_, statErr := os.Stat(filepath.Join(t.TempDir(), "missing"))

	tests := []struct {
		name string
		err  error
		want Code
	}{
		{"nil", nil, Success},
		{"plain", errors.New("boom"), UnknownError},
		{"explicit", New(InvalidArguments, errors.New("bad flag")), InvalidArguments},
		{"explicit wrapped", fmt.Errorf("ctx: %w", New(FileSystemError, errors.New("x"))), FileSystemError},
		{"config", fmt.Errorf("load: %w", config.ErrInvalidConfig), ConfigurationError},
		{"policy", implementors.ErrUnknownPolicy, ConfigurationError},
		{"duplicate", fmt.Errorf("register: %w", implementors.ErrDuplicateModule), IndexError},
		{"double attach", implementors.ErrDoubleAttachment, IndexError},
		{"empty fragment", fragment.ErrEmptyFragment, IndexError},
		{"joined", errors.Join(errors.New("a"), implementors.ErrInvalidModuleName), IndexError},
		{"path error", statErr, FileSystemError},
		{"not exist", fmt.Errorf("open: %w", os.ErrNotExist), FileSystemError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FromError(tt.err))
		})
	}
}

func TestNew(t *testing.T) {
	require.NoError(t, New(IndexError, nil))

	inner := errors.New("inner")
	err := New(IndexError, inner)
	require.ErrorIs(t, err, inner)
	require.Equal(t, "inner", err.Error())

	require.Equal(t, "exit status 3", (&Error{Code: InvalidArguments}).Error())
}
