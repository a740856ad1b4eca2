package filestore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	obj, err := store.Put(ctx, "artifacts/a-policy.pdf", strings.NewReader("hello"), "application/pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(5), obj.Size)

	rc, info, err := store.Open(ctx, "artifacts/a-policy.pdf")
	require.NoError(t, err)
	body, err := io.ReadAll(rc)
	require.NoError(t, rc.Close())
	require.NoError(t, err)
	assert.Equal(t, "hello", string(body))
	assert.Equal(t, "application/pdf", info.ContentType)

	_, err = store.Put(ctx, "evidence/risk-1/b.txt", strings.NewReader("x"), "text/plain")
	require.NoError(t, err)

	listed, err := store.List(ctx, "artifacts/")
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "artifacts/a-policy.pdf", listed[0].Key)

	require.NoError(t, store.Delete(ctx, "artifacts/a-policy.pdf"))
	require.NoError(t, store.Delete(ctx, "artifacts/a-policy.pdf"))

	_, _, err = store.Open(ctx, "artifacts/a-policy.pdf")
	assert.ErrorIs(t, err, ErrNotExist)
}

func TestLocalStoreRejectsTraversal(t *testing.T) {
	store, err := NewLocal(t.TempDir())
	require.NoError(t, err)

	for _, key := range []string{"../etc/passwd", "/abs", "a//b", "", `a\b`} {
		_, err := store.Put(context.Background(), key, strings.NewReader("x"), "text/plain")
		assert.Error(t, err, key)
	}
}

func TestNewKeyKeepsSanitizedName(t *testing.T) {
	key := NewKey("artifacts", "../My Policy (v2).pdf")
	assert.True(t, strings.HasPrefix(key, "artifacts/"))
	assert.True(t, strings.HasSuffix(key, "-My_Policy_v2.pdf"), key)
	assert.NoError(t, validKey(key))

	assert.Equal(t, "file", SanitizeName("..."))
	assert.Equal(t, "report.txt", SanitizeName(`C:\docs\report.txt`))
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), Config{Backend: "s3"})
	assert.Error(t, err)
}

func TestDisplayName(t *testing.T) {
	key := NewKey("evidence/risk-3", "scan report.pdf")
	assert.Equal(t, "scan_report.pdf", DisplayName(key))
	assert.Equal(t, "plain.txt", DisplayName("artifacts/plain.txt"))
}
