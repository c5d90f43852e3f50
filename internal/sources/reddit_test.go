package sources

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"ainews/aggregator/internal/models"
)

const mlListing = `{"data":{"children":[
  {"data":{"id":"a1","title":"Pinned rules","url":"https://reddit.com/r/MachineLearning/rules","permalink":"/r/MachineLearning/comments/a1/","subreddit":"MachineLearning","score":999,"stickied":true}},
  {"data":{"id":"a2","title":"New paper on scaling","url":"https://arxiv.org/abs/1","permalink":"/r/MachineLearning/comments/a2/","author":"u1","subreddit":"MachineLearning","score":50,"num_comments":7,"created_utc":1700000000}},
  {"data":{"id":"a3","title":"Discussion thread","url":"https://www.reddit.com/r/MachineLearning/comments/a3/","permalink":"/r/MachineLearning/comments/a3/","subreddit":"MachineLearning","score":80,"is_self":true,"created_utc":1700000500}},
  {"data":{"id":"a4","title":"Low effort","url":"https://example.com/low","permalink":"/r/MachineLearning/comments/a4/","subreddit":"MachineLearning","score":2}},
  {"data":{"id":"a5","title":"NSFW","url":"https://example.com/nsfw","permalink":"/r/MachineLearning/comments/a5/","subreddit":"MachineLearning","score":300,"over_18":true}}
]}}`

func TestRedditFetchNews(t *testing.T) {
	t.Parallel()

	var (
		mu         sync.Mutex
		userAgents []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		userAgents = append(userAgents, r.Header.Get("User-Agent"))
		mu.Unlock()
		switch {
		case strings.HasPrefix(r.URL.Path, "/r/MachineLearning/top.json"):
			if r.URL.Query().Get("t") != "week" {
				t.Errorf("expected t=week, got %q", r.URL.RawQuery)
			}
			w.Write([]byte(mlListing))
		case strings.HasPrefix(r.URL.Path, "/r/broken/"):
			w.WriteHeader(http.StatusTooManyRequests)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	r := NewReddit(srv.Client(), RedditOptions{
		BaseURL:    srv.URL,
		Enabled:    true,
		Subreddits: []string{"broken", "MachineLearning"},
		Sort:       "top",
		Timeframe:  "week",
		MinScore:   10,
		Interval:   time.Millisecond,
	})

	items, err := r.FetchNews(context.Background(), 10)
	if err != nil {
		t.Fatalf("FetchNews: %v", err)
	}
	if !reflect.DeepEqual(itemIDs(items), []string{"reddit-a3", "reddit-a2"}) {
		t.Fatalf("got %v", itemIDs(items))
	}

	self := items[0]
	if self.URL != srv.URL+"/r/MachineLearning/comments/a3/" {
		t.Fatalf("self post should link to permalink, got %q", self.URL)
	}
	if self.Title != "[r/MachineLearning] Discussion thread" {
		t.Fatalf("unexpected title %q", self.Title)
	}
	meta, ok := items[1].Metadata.(models.RedditMetadata)
	if !ok || meta.Score != 50 || meta.Comments != 7 || meta.Subreddit != "MachineLearning" {
		t.Fatalf("unexpected metadata %#v", items[1].Metadata)
	}
	mu.Lock()
	defer mu.Unlock()
	for _, ua := range userAgents {
		if ua != RedditUserAgent {
			t.Fatalf("unexpected user agent %q", ua)
		}
	}
}

func TestRedditAllSubredditsFail(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	r := NewReddit(srv.Client(), RedditOptions{
		BaseURL:    srv.URL,
		Subreddits: []string{"a", "b"},
		Interval:   time.Millisecond,
	})
	_, err := r.FetchNews(context.Background(), 5)
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestRedditListingURL(t *testing.T) {
	t.Parallel()

	r := NewReddit(nil, RedditOptions{BaseURL: "https://reddit.test/", PerSubreddit: 25})
	if got := r.listingURL("LocalLLaMA"); got != "https://reddit.test/r/LocalLLaMA/hot.json?limit=25" {
		t.Fatalf("got %q", got)
	}
}
