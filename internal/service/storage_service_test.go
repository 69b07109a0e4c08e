package service

import (
	"context"
	"course_studio_backend/internal/config"
	"course_studio_backend/internal/util"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	signedKey   string
	contentType string
	expiry      time.Duration
	deleted     []string
	err         error
}

func (p *fakeProvider) PresignPut(_ context.Context, key, contentType string, expiry time.Duration) (string, error) {
	p.signedKey, p.contentType, p.expiry = key, contentType, expiry
	if p.err != nil {
		return "", p.err
	}
	return "https://storage.example.com/" + key + "?sig=1", nil
}

func (p *fakeProvider) Delete(_ context.Context, key string) error {
	p.deleted = append(p.deleted, key)
	return p.err
}

func newFakeStorage(provider StorageProvider) (*StorageService, *recordingReporter) {
	reporter := &recordingReporter{}
	return &StorageService{gate: newGate(reporter, nil), Provider: provider, Expiry: 360 * time.Second}, reporter
}

func TestPresignUploadBuildsUniqueKey(t *testing.T) {
	provider := &fakeProvider{}
	svc, _ := newFakeStorage(provider)

	result, err := svc.PresignUpload(context.Background(), adminActor, PresignUploadRequest{
		FileName:    "intro video.mp4",
		ContentType: "video/mp4",
		Size:        1024,
	})
	require.NoError(t, err)
	require.True(t, result.OK(), result.Message)

	resp := result.Data.(PresignUploadResponse)
	assert.True(t, strings.HasSuffix(resp.Key, "-intro_video.mp4"), resp.Key)
	assert.Len(t, resp.Key, 36+len("-intro_video.mp4"))
	assert.Equal(t, provider.signedKey, resp.Key)
	assert.Equal(t, "video/mp4", provider.contentType)
	assert.Equal(t, 360*time.Second, provider.expiry)
	assert.Contains(t, resp.PresignedURL, resp.Key)
}

func TestPresignUploadValidation(t *testing.T) {
	svc, _ := newFakeStorage(&fakeProvider{})
	ctx := context.Background()

	result, err := svc.PresignUpload(ctx, adminActor, PresignUploadRequest{FileName: "a.png", ContentType: "image/png"})
	require.NoError(t, err)
	assert.Equal(t, KindInvalid, result.Kind)
	assert.Equal(t, "size", result.Fields[0].Field)

	result, err = svc.PresignUpload(ctx, adminActor, PresignUploadRequest{FileName: "a.pdf", ContentType: "application/pdf", Size: 10, IsImage: true})
	require.NoError(t, err)
	assert.Equal(t, KindInvalid, result.Kind)
	assert.Equal(t, "contentType", result.Fields[0].Field)

	_, err = svc.PresignUpload(ctx, studentActor, PresignUploadRequest{FileName: "a.png", ContentType: "image/png", Size: 10})
	assert.ErrorIs(t, err, util.ErrForbidden)
}

func TestPresignUploadProviderFailure(t *testing.T) {
	svc, reporter := newFakeStorage(&fakeProvider{err: errors.New("boom")})

	result, err := svc.PresignUpload(context.Background(), adminActor, PresignUploadRequest{FileName: "a.png", ContentType: "image/png", Size: 10, IsImage: true})
	require.NoError(t, err)
	assert.Equal(t, KindUnexpected, result.Kind)
	assert.Equal(t, "Failed to generate presigned url", result.Message)
	assert.Equal(t, 1, reporter.Count())
}

func TestDeleteUpload(t *testing.T) {
	provider := &fakeProvider{}
	svc, _ := newFakeStorage(provider)

	result, err := svc.DeleteUpload(context.Background(), adminActor, DeleteUploadRequest{Key: "abc-file.png"})
	require.NoError(t, err)
	require.True(t, result.OK())
	assert.Equal(t, []string{"abc-file.png"}, provider.deleted)

	result, err = svc.DeleteUpload(context.Background(), adminActor, DeleteUploadRequest{})
	require.NoError(t, err)
	assert.Equal(t, KindInvalid, result.Kind)
}

func TestStorageWithoutProvider(t *testing.T) {
	svc, reporter := newFakeStorage(nil)

	result, err := svc.DeleteUpload(context.Background(), adminActor, DeleteUploadRequest{Key: "abc"})
	require.NoError(t, err)
	assert.Equal(t, KindUnexpected, result.Kind)
	assert.Equal(t, 1, reporter.Count())
}

func TestMinioPresignIsOffline(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Type:                 util.StorageMinio,
		MinioEndpoint:        "localhost:9000",
		MinioAccessID:        "minioadmin",
		MinioSecret:          "minioadmin",
		MinioBucket:          "course-media",
		MinioRegion:          "us-east-1",
		PresignExpirySeconds: 360,
	}}
	svc, err := NewStorageService(cfg, nil)
	require.NoError(t, err)

	result, err := svc.PresignUpload(context.Background(), adminActor, PresignUploadRequest{
		FileName:    "cover.png",
		ContentType: "image/png",
		Size:        2048,
		IsImage:     true,
	})
	require.NoError(t, err)
	require.True(t, result.OK(), result.Message)

	resp := result.Data.(PresignUploadResponse)
	assert.Contains(t, resp.PresignedURL, "http://localhost:9000/course-media/"+resp.Key)
	assert.Contains(t, resp.PresignedURL, "X-Amz-Expires=360")
}

func TestOSSPresignIsOffline(t *testing.T) {
	cfg := &config.Config{Storage: config.StorageConfig{
		Type:         util.StorageOSS,
		OSSEndpoint:  "oss-cn-hangzhou.aliyuncs.com",
		OSSAccessKey: "key",
		OSSSecretKey: "secret",
		OSSBucket:    "course-media",
	}}
	svc, err := NewStorageService(cfg, nil)
	require.NoError(t, err)

	result, err := svc.PresignUpload(context.Background(), adminActor, PresignUploadRequest{
		FileName:    "lesson.mp4",
		ContentType: "video/mp4",
		Size:        2048,
	})
	require.NoError(t, err)
	require.True(t, result.OK(), result.Message)

	resp := result.Data.(PresignUploadResponse)
	assert.Contains(t, resp.PresignedURL, "course-media.oss-cn-hangzhou.aliyuncs.com/"+resp.Key)
}

func TestNewStorageServiceUnknownType(t *testing.T) {
	svc, err := NewStorageService(&config.Config{Storage: config.StorageConfig{Type: "ftp"}}, nil)
	assert.ErrorIs(t, err, util.ErrStorageNotConfig)
	require.NotNil(t, svc)
	assert.Nil(t, svc.Provider)
}
