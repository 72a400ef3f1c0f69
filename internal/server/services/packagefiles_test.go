package services

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/pkgforge/gallery/internal/server/config"
)

func stubAWSClients(t *testing.T) {
	t.Helper()

	origLoad := loadDefaultAWSConfig
	origNew := newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNew
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, nil
	}
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return &s3.Client{}
	}
}

func testFileConfig() *sc.Config {
	cfg := &sc.Config{}
	cfg.LoadDefaults()
	cfg.S3Bucket = "test-bucket"
	return cfg
}

func TestPackageFileService_SavePackageFile(t *testing.T) {
	stubAWSClients(t)

	var gotBucket, gotKey, gotBody string
	origPut := putObject
	t.Cleanup(func() { putObject = origPut })
	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		gotBucket = aws.ToString(in.Bucket)
		gotKey = aws.ToString(in.Key)
		b, err := io.ReadAll(in.Body)
		require.NoError(t, err)
		gotBody = string(b)
		return &s3.PutObjectOutput{}, nil
	}

	svc := NewPackageFileService(testFileConfig())
	err := svc.SavePackageFile(context.Background(), "Sample.Pkg", "1.0.0-Beta", strings.NewReader("zipbytes"))
	require.NoError(t, err)

	assert.Equal(t, "test-bucket", gotBucket)
	assert.Equal(t, "packages/sample.pkg.1.0.0-beta.nupkg", gotKey, "storage keys are lowercased")
	assert.Equal(t, "zipbytes", gotBody)
}

func TestPackageFileService_DownloadURL(t *testing.T) {
	stubAWSClients(t)

	origPresignClient := newS3PresignClient
	origPresign := presignGetObject
	t.Cleanup(func() {
		newS3PresignClient = origPresignClient
		presignGetObject = origPresign
	})

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient { return &s3.PresignClient{} }

	var gotKey string
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		gotKey = aws.ToString(in.Key)
		return &v4.PresignedHTTPRequest{URL: "https://files.example/signed"}, nil
	}

	svc := NewPackageFileService(testFileConfig())
	url, err := svc.DownloadURL(context.Background(), "Sample.Pkg", "1.0.0")
	require.NoError(t, err)

	assert.Equal(t, "https://files.example/signed", url)
	assert.Equal(t, "packages/sample.pkg.1.0.0.nupkg", gotKey)
}
