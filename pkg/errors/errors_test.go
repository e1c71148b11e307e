package errors

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWrapKeepsCauseAndContext(t *testing.T) {
	inner := WrapStorageError(stderrors.New("disk full"), "put failed").WithContext("object_key", "abc/temp.mp4")
	outer := WrapUpstreamUnavailableError(inner, "outer")

	require.Equal(t, ErrorTypeUpstreamUnavailable, outer.Type)
	require.Equal(t, "abc/temp.mp4", outer.Context["object_key"])

	outer.WithContext("extra", 1)
	_, leaked := inner.Context["extra"]
	require.False(t, leaked, "wrapping must not share the inner context map")
}

func TestWrapNilReturnsNil(t *testing.T) {
	require.Nil(t, Wrap(nil, ErrorTypeStorage, "nothing"))
}

func TestIsMatchesOutermostType(t *testing.T) {
	err := WrapStorageError(context.DeadlineExceeded, "presign")

	require.True(t, Is(err, ErrorTypeStorage))
	require.False(t, Is(err, ErrorTypeTimeout))
	require.True(t, stderrors.Is(err, context.DeadlineExceeded))
	require.False(t, Is(stderrors.New("plain"), ErrorTypeStorage))
}

func TestTypeOfDefaultsToInternal(t *testing.T) {
	require.Equal(t, ErrorTypeNotFound, TypeOf(NewNotFoundError("content")))
	require.Equal(t, ErrorTypeInternal, TypeOf(stderrors.New("boom")))
}

func TestErrorString(t *testing.T) {
	require.Equal(t, "[not_found] content not found", NewNotFoundError("content").Error())
	require.Equal(t,
		"[storage_error] put: disk full",
		WrapStorageError(stderrors.New("disk full"), "put").Error())
}
