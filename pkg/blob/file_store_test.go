package blob_test

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Mindburn-Labs/retouch/pkg/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) *blob.FileStore {
	t.Helper()
	signer := blob.NewLinkSigner([]byte("test-secret"), "http://localhost:8080")
	s, err := blob.NewFileStore(t.TempDir(), signer)
	require.NoError(t, err)
	return s
}

func TestFileStore_RoundTrip(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	payload := []byte("not really a png")
	require.NoError(t, s.Upload(ctx, "accounts/u1/generated/abc.png", payload, "image/png"))

	exists, err := s.Exists(ctx, "accounts/u1/generated/abc.png")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.Download(ctx, "accounts/u1/generated/abc.png")
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFileStore_MissingObject(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	exists, err := s.Exists(ctx, "accounts/u1/missing.png")
	require.NoError(t, err)
	assert.False(t, exists)

	_, err = s.Download(ctx, "accounts/u1/missing.png")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestFileStore_RejectsTraversal(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	_, err := s.Download(ctx, "../etc/passwd")
	assert.Error(t, err)

	err = s.Upload(ctx, "/abs/path.png", []byte("x"), "image/png")
	assert.Error(t, err)
}

func TestFileStore_SignedURLVerifies(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "accounts/u1/generated/abc.png", []byte("x"), "image/png"))

	link, err := s.SignedURL(ctx, "accounts/u1/generated/abc.png", time.Hour)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(link, "http://localhost:8080/media/accounts/u1/generated/abc.png?"))

	u, err := url.Parse(link)
	require.NoError(t, err)
	signer := blob.NewLinkSigner([]byte("test-secret"), "http://localhost:8080")
	path := strings.TrimPrefix(u.Path, "/media/")
	assert.NoError(t, signer.Verify(path, u.Query().Get("exp"), u.Query().Get("sig")))
}

func TestLinkSigner_RejectsTamperedPath(t *testing.T) {
	signer := blob.NewLinkSigner([]byte("test-secret"), "http://localhost:8080")

	link := signer.Sign("accounts/u1/generated/abc.png", time.Hour)
	u, err := url.Parse(link)
	require.NoError(t, err)

	err = signer.Verify("accounts/u2/generated/abc.png", u.Query().Get("exp"), u.Query().Get("sig"))
	assert.ErrorIs(t, err, blob.ErrBadSignature)
}

func TestLinkSigner_RejectsExpired(t *testing.T) {
	signer := blob.NewLinkSigner([]byte("test-secret"), "http://localhost:8080")

	link := signer.Sign("accounts/u1/generated/abc.png", -time.Minute)
	u, err := url.Parse(link)
	require.NoError(t, err)

	path := strings.TrimPrefix(u.Path, "/media/")
	err = signer.Verify(path, u.Query().Get("exp"), u.Query().Get("sig"))
	assert.ErrorIs(t, err, blob.ErrLinkExpired)
}

func TestFileStore_SignedURLWithoutSigner(t *testing.T) {
	s, err := blob.NewFileStore(t.TempDir(), nil)
	require.NoError(t, err)

	_, err = s.SignedURL(context.Background(), "a/b.png", time.Hour)
	assert.Error(t, err)
}

func TestFileStore_UploadOverwrites(t *testing.T) {
	s := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Upload(ctx, "accounts/u1/src.png", []byte("v1"), "image/png"))
	require.NoError(t, s.Upload(ctx, "accounts/u1/src.png", []byte("v2"), "image/png"))

	got, err := s.Download(ctx, "accounts/u1/src.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("v2"), got)
}
