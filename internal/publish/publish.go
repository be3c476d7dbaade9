// Package publish copies rendered report directories to remote storage.
package publish

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/sirupsen/logrus"

	"github.com/testdino/insights/internal/config"
)

const defaultPrefix = "insights/reports"

// Publisher uploads a local report directory and reports how many files it
// wrote.
type Publisher interface {
	Publish(ctx context.Context, localDir string) (int, error)
}

// objectPutter is the subset of the S3 client used for uploads.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

type s3Publisher struct {
	log    logrus.FieldLogger
	cfg    *config.S3Config
	client objectPutter
}

var _ Publisher = (*s3Publisher)(nil)

// NewS3Publisher creates a Publisher for S3-compatible storage.
func NewS3Publisher(log logrus.FieldLogger, cfg *config.S3Config) Publisher {
	client := s3.New(s3.Options{}, func(o *s3.Options) {
		o.Region = cfg.Region
		if o.Region == "" {
			o.Region = "us-east-1"
		}
		if cfg.EndpointURL != "" {
			o.BaseEndpoint = aws.String(cfg.EndpointURL)
		}
		o.UsePathStyle = cfg.ForcePathStyle
		if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
			o.Credentials = credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, "",
			)
		}
	})

	return &s3Publisher{
		log:    log.WithField("component", "s3-publisher"),
		cfg:    cfg,
		client: client,
	}
}

// Publish walks localDir and uploads every file under
// <prefix>/<basename of localDir>/.
func (p *s3Publisher) Publish(ctx context.Context, localDir string) (int, error) {
	prefix := p.resolvePrefix(filepath.Base(localDir))

	var count int
	err := filepath.Walk(localDir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return fmt.Errorf("computing relative path: %w", err)
		}

		if err := p.putFile(ctx, path, prefix+"/"+filepath.ToSlash(rel)); err != nil {
			return fmt.Errorf("uploading %s: %w", rel, err)
		}
		count++
		return nil
	})
	if err != nil {
		return count, fmt.Errorf("walking directory %s: %w", localDir, err)
	}

	p.log.WithFields(logrus.Fields{
		"files":  count,
		"bucket": p.cfg.Bucket,
		"prefix": prefix,
	}).Info("Report published")

	return count, nil
}

func (p *s3Publisher) putFile(ctx context.Context, localPath, key string) error {
	f, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("opening file: %w", err)
	}
	defer func() { _ = f.Close() }()

	p.log.WithField("key", key).Debug("Uploading file")

	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.Bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String(contentType(localPath)),
	})
	if err != nil {
		return fmt.Errorf("PutObject: %w", err)
	}
	return nil
}

func (p *s3Publisher) resolvePrefix(baseName string) string {
	prefix := p.cfg.Prefix
	if prefix == "" {
		prefix = defaultPrefix
	}
	return strings.TrimRight(prefix, "/") + "/" + baseName
}

func contentType(path string) string {
	if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
