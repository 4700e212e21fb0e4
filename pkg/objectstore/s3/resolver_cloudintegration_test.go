//go:build cloudintegration

package s3

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/3leaps/ugcreel/pkg/objectstore"
	"github.com/3leaps/ugcreel/test/cloudtest"
)

func motoResolver(t *testing.T, cfg Config) *Resolver {
	t.Helper()
	cfg.Endpoint = cloudtest.Endpoint
	cfg.Region = cloudtest.Region
	cfg.AccessKeyID = cloudtest.AccessKeyID
	cfg.SecretAccessKey = cloudtest.SecretAccessKey
	cfg.ForcePathStyle = true
	r, err := New(context.Background(), cfg, objectstore.PathPolicy{})
	require.NoError(t, err)
	return r
}

func TestResolver_PresignedURLFetchesObject(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	cloudtest.PutObject(t, ctx, bucket, "u1/avatar.mp4", []byte("avatar-bytes"))

	r := motoResolver(t, Config{CheckExists: true})
	u, err := r.ResolvePublicURL(ctx, bucket, "u1/avatar.mp4")
	require.NoError(t, err)

	assert.Equal(t, []byte("avatar-bytes"), cloudtest.Fetch(t, ctx, u))
}

func TestResolver_CheckExistsMissingObject(t *testing.T) {
	cloudtest.SkipIfUnavailable(t)
	ctx := context.Background()

	bucket := cloudtest.CreateBucket(t, ctx)
	r := motoResolver(t, Config{CheckExists: true})

	_, err := r.ResolvePublicURL(ctx, bucket, "u1/missing.mp4")
	require.Error(t, err)
	assert.True(t, objectstore.IsSourceUnresolvable(err))
	assert.ErrorIs(t, err, objectstore.ErrObjectNotFound)
}
