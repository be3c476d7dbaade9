package publish

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/testdino/insights/internal/config"
)

type fakePutter struct {
	mu      sync.Mutex
	objects map[string]string
	types   map[string]string
	err     error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	key := aws.ToString(in.Key)
	f.objects[key] = string(body)
	f.types[key] = aws.ToString(in.ContentType)
	return &s3.PutObjectOutput{}, nil
}

func newTestPublisher(prefix string, putter objectPutter) *s3Publisher {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return &s3Publisher{
		log:    log,
		cfg:    &config.S3Config{Bucket: "bucket", Prefix: prefix},
		client: putter,
	}
}

func TestResolvePrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{name: "default prefix", prefix: "", want: "insights/reports/2025-01-07-All"},
		{name: "custom prefix", prefix: "team/qa", want: "team/qa/2025-01-07-All"},
		{name: "trailing slash stripped", prefix: "team/qa/", want: "team/qa/2025-01-07-All"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newTestPublisher(tt.prefix, nil)
			assert.Equal(t, tt.want, p.resolvePrefix("2025-01-07-All"))
		})
	}
}

func TestContentType(t *testing.T) {
	assert.Contains(t, contentType("report.json"), "application/json")
	assert.Contains(t, contentType("index.html"), "text/html")
	assert.Equal(t, "application/octet-stream", contentType("Makefile"))
}

func TestPublish(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "2025-01-07-devA")
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "charts"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.json"), []byte(`{"runs":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "charts", "heatmap.html"), []byte("<html></html>"), 0o644))

	putter := &fakePutter{objects: map[string]string{}, types: map[string]string{}}
	p := newTestPublisher("out", putter)

	n, err := p.Publish(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	keys := make([]string, 0, len(putter.objects))
	for k := range putter.objects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	assert.Equal(t, []string{
		"out/2025-01-07-devA/charts/heatmap.html",
		"out/2025-01-07-devA/report.json",
	}, keys)
	assert.Equal(t, `{"runs":1}`, putter.objects["out/2025-01-07-devA/report.json"])
	assert.Contains(t, putter.types["out/2025-01-07-devA/charts/heatmap.html"], "text/html")
}

func TestPublish_PutError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "report.json"), []byte("{}"), 0o644))

	p := newTestPublisher("", &fakePutter{err: errors.New("denied")})
	_, err := p.Publish(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "denied")
}

func TestNewS3Publisher(t *testing.T) {
	p := NewS3Publisher(logrus.New(), &config.S3Config{
		Bucket:          "bucket",
		EndpointURL:     "http://localhost:9000",
		ForcePathStyle:  true,
		AccessKeyID:     "key",
		SecretAccessKey: "secret",
	})
	require.NotNil(t, p)
}
