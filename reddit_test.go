package opinionmap

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedditTransport serves canned JSON keyed by URL path so acquisition
// can be exercised without touching the network.
type fakeRedditTransport struct {
	responses map[string]string
}

func (f fakeRedditTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	body, ok := f.responses[req.URL.Path]
	if !ok {
		body = `{}`
	}
	return &http.Response{
		StatusCode: http.StatusOK,
		Body:       io.NopCloser(strings.NewReader(body)),
		Header:     make(http.Header),
		Request:    req,
	}, nil
}

func TestCleanText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{
			name: "strips urls and collapses whitespace",
			in:   "Remote work is great,   see https://example.com/proof for\nthe numbers.",
			want: "Remote work is great, see for the numbers.",
			ok:   true,
		},
		{
			name: "too short",
			in:   "I agree.",
			ok:   false,
		},
		{
			name: "too long",
			in:   strings.Repeat("opinions all the way down ", 30),
			ok:   false,
		},
		{
			name: "trims surrounding whitespace",
			in:   "   this take is perfectly reasonable   ",
			want: "this take is perfectly reasonable",
			ok:   true,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := cleanText(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestRedditSourceAcquire(t *testing.T) {
	searchJSON := `{"data":{"children":[
		{"data":{"id":"abc","title":"short","selftext":"Working from home has made my whole team more productive.","score":42,"subreddit":"testsub"}},
		{"data":{"id":"def","title":"Offices are a relic of a different era of management.","selftext":"","score":7,"subreddit":"testsub"}}
	]}}`
	commentsJSON := `[
		{"data":{"children":[]}},
		{"data":{"children":[
			{"data":{"body":"Completely agree, commuting wastes two hours a day.","score":11}},
			{"data":{"body":"ok","score":3}},
			{"data":{"body":"Depends heavily on the kind of work you actually do.","score":5}}
		]}}
	]`

	source := &RedditSource{
		Client: &http.Client{Transport: fakeRedditTransport{responses: map[string]string{
			"/r/testsub/search.json": searchJSON,
			"/comments/abc.json":     commentsJSON,
			"/comments/def.json":     commentsJSON,
		}}},
		UserAgent:  "opinionmap/1.0",
		Subreddits: []string{"testsub"},
	}

	opinions, err := source.Acquire(context.Background(), "remote work", 20)
	require.NoError(t, err)

	texts := make([]string, len(opinions))
	for i, opinion := range opinions {
		texts[i] = opinion.Text
	}

	// Both posts survive cleaning (selftext preferred, title fallback),
	// plus two comments per post capped at commentsPerPost; the too-short
	// "ok" comment is dropped and duplicate comments across posts dedupe.
	assert.Contains(t, texts, "Working from home has made my whole team more productive.")
	assert.Contains(t, texts, "Offices are a relic of a different era of management.")
	assert.Contains(t, texts, "Completely agree, commuting wastes two hours a day.")
	assert.Contains(t, texts, "Depends heavily on the kind of work you actually do.")
	assert.NotContains(t, texts, "ok")
	require.Len(t, opinions, 4)

	for _, opinion := range opinions {
		assert.Equal(t, "testsub", opinion.Origin)
		require.NotNil(t, opinion.Score)
	}
	assert.Equal(t, OpinionPost, opinions[0].Kind)
}

func TestRedditSourceAcquireEmptySubredditList(t *testing.T) {
	// A zero-value source (no subreddit list) searches the defaults
	// instead of dividing by zero.
	source := &RedditSource{
		Client:    &http.Client{Transport: fakeRedditTransport{}},
		UserAgent: "opinionmap/1.0",
	}

	opinions, err := source.Acquire(context.Background(), "anything", 10)
	require.NoError(t, err)
	assert.Empty(t, opinions)
}

func TestRedditSourceAcquireTruncatesToMaxCount(t *testing.T) {
	searchJSON := `{"data":{"children":[
		{"data":{"id":"a1","title":"","selftext":"First distinct opinion about the topic at hand.","score":1,"subreddit":"testsub"}},
		{"data":{"id":"a2","title":"","selftext":"Second distinct opinion about the topic at hand.","score":2,"subreddit":"testsub"}},
		{"data":{"id":"a3","title":"","selftext":"Third distinct opinion about the topic at hand.","score":3,"subreddit":"testsub"}}
	]}}`

	source := &RedditSource{
		Client: &http.Client{Transport: fakeRedditTransport{responses: map[string]string{
			"/r/testsub/search.json": searchJSON,
		}}},
		UserAgent:  "opinionmap/1.0",
		Subreddits: []string{"testsub"},
	}

	opinions, err := source.Acquire(context.Background(), "anything", 2)
	require.NoError(t, err)
	assert.Len(t, opinions, 2)
}
