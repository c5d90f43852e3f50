// Package publish uploads the data files to an S3 bucket so a static site
// can serve them.
package publish

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

const (
	contentType = "application/json; charset=utf-8"

	// Active files change every run; archives only on rotation.
	activeCacheControl  = "public, max-age=300"
	archiveCacheControl = "public, max-age=3600"
	maxConcurrentPuts   = 4
)

// ErrNoBucket is returned by Publish when no bucket is configured.
var ErrNoBucket = errors.New("no S3 bucket configured")

// PutObjectAPI is the part of *s3.Client the publisher needs.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// DataFiles lists and locates the files to upload.
type DataFiles interface {
	Files() ([]string, error)
	Path(rel string) string
}

type Config struct {
	Bucket string
	Prefix string
	Region string
	// Endpoint points the client at an S3 compatible service and switches
	// to path style addressing.
	Endpoint string
}

// NewS3Client builds a client from the default AWS credential chain.
func NewS3Client(ctx context.Context, cfg Config) (*s3.Client, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

type Publisher struct {
	client PutObjectAPI
	files  DataFiles
	bucket string
	prefix string
}

func NewPublisher(client PutObjectAPI, files DataFiles, cfg Config) *Publisher {
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &Publisher{client: client, files: files, bucket: cfg.Bucket, prefix: prefix}
}

// Key returns the object key for a data file.
func (p *Publisher) Key(rel string) string {
	return p.prefix + rel
}

// Publish uploads every existing data file and returns how many were sent.
// The first failed upload cancels the rest.
func (p *Publisher) Publish(ctx context.Context) (int, error) {
	if p.bucket == "" {
		return 0, ErrNoBucket
	}

	files, err := p.files.Files()
	if err != nil {
		return 0, fmt.Errorf("failed to list data files: %w", err)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxConcurrentPuts)
	for _, rel := range files {
		g.Go(func() error {
			return p.upload(gctx, rel)
		})
	}
	if err := g.Wait(); err != nil {
		return 0, err
	}

	log.Info().
		Str("bucket", p.bucket).
		Str("prefix", p.prefix).
		Int("files", len(files)).
		Dur("duration", time.Since(start)).
		Msg("Published data files")
	return len(files), nil
}

func (p *Publisher) upload(ctx context.Context, rel string) error {
	body, err := os.ReadFile(p.files.Path(rel))
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", rel, err)
	}

	cacheControl := activeCacheControl
	if path.Dir(rel) != "." {
		cacheControl = archiveCacheControl
	}

	key := p.Key(rel)
	_, err = p.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:       aws.String(p.bucket),
		Key:          aws.String(key),
		Body:         bytes.NewReader(body),
		ContentType:  aws.String(contentType),
		CacheControl: aws.String(cacheControl),
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	log.Debug().Str("key", key).Int("bytes", len(body)).Msg("Uploaded object")
	return nil
}
