package publish

import (
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"ainews/aggregator/internal/models"
	"ainews/aggregator/internal/store"
)

type put struct {
	key, contentType, cacheControl string
	body                           []byte
}

type fakeS3 struct {
	mu   sync.Mutex
	puts []put
	fail string
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	key := aws.ToString(in.Key)
	if key == f.fail {
		return nil, errors.New("access denied")
	}
	body, err := io.ReadAll(in.Body)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.puts = append(f.puts, put{
		key:          key,
		contentType:  aws.ToString(in.ContentType),
		cacheControl: aws.ToString(in.CacheControl),
		body:         body,
	})
	return &s3.PutObjectOutput{}, nil
}

func seedStore(t *testing.T) *store.FileStore {
	t.Helper()
	st := store.NewFileStore(t.TempDir())
	now := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	if err := st.SaveNews(&models.NewsData{GeneratedAt: now, Articles: []models.NewsSummary{}}); err != nil {
		t.Fatalf("SaveNews: %v", err)
	}
	if err := st.SaveArchive(&models.ArchiveData{Month: "2025-01", ArchivedAt: now, Articles: []models.NewsSummary{}}); err != nil {
		t.Fatalf("SaveArchive: %v", err)
	}
	return st
}

func TestPublish(t *testing.T) {
	t.Parallel()

	client := &fakeS3{}
	p := NewPublisher(client, seedStore(t), Config{Bucket: "news", Prefix: "/data/"})

	n, err := p.Publish(context.Background())
	if err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if n != 2 || len(client.puts) != 2 {
		t.Fatalf("expected 2 uploads, got n=%d puts=%d", n, len(client.puts))
	}

	sort.Slice(client.puts, func(i, j int) bool { return client.puts[i].key < client.puts[j].key })
	archive, news := client.puts[0], client.puts[1]
	if archive.key != "data/archive/2025-01.json" || news.key != "data/news.json" {
		t.Fatalf("unexpected keys %q %q", archive.key, news.key)
	}
	if news.contentType != contentType || news.cacheControl != activeCacheControl {
		t.Fatalf("unexpected headers for news: %+v", news)
	}
	if archive.cacheControl != archiveCacheControl {
		t.Fatalf("unexpected cache control for archive: %q", archive.cacheControl)
	}
	if len(news.body) == 0 {
		t.Fatal("empty body uploaded")
	}
}

func TestPublishWithoutBucket(t *testing.T) {
	t.Parallel()

	p := NewPublisher(&fakeS3{}, seedStore(t), Config{})
	if _, err := p.Publish(context.Background()); !errors.Is(err, ErrNoBucket) {
		t.Fatalf("expected ErrNoBucket, got %v", err)
	}
}

func TestPublishFailure(t *testing.T) {
	t.Parallel()

	p := NewPublisher(&fakeS3{fail: "news.json"}, seedStore(t), Config{Bucket: "news"})
	if _, err := p.Publish(context.Background()); err == nil {
		t.Fatal("expected upload error")
	}
}
