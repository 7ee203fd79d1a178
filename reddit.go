package opinionmap

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// defaultSubreddits are searched for every topic, ordered by relevance
// and activity for opinion-style discussion.
var defaultSubreddits = []string{
	"NeutralPolitics",
	"unpopularopinion",
	"changemyview",
	"Ask_Politics",
	"AskReddit",
}

const commentsPerPost = 2

var urlPattern = regexp.MustCompile(`http[s]?://\S+`)
var whitespacePattern = regexp.MustCompile(`\s+`)

// RedditSource acquires opinions from Reddit's public JSON API. No
// credentials are needed; Reddit only requires a descriptive User-Agent.
type RedditSource struct {
	Client     *http.Client
	UserAgent  string
	Subreddits []string
}

// NewRedditSource creates a source over the default subreddit list.
func NewRedditSource() *RedditSource {
	return &RedditSource{
		Client:     &http.Client{Timeout: 30 * time.Second},
		UserAgent:  "opinionmap/1.0",
		Subreddits: defaultSubreddits,
	}
}

// Acquire implements the OpinionSource interface. Subreddits are searched
// in parallel; results are cleaned, deduplicated on their first 100
// characters and truncated to maxCount.
func (r *RedditSource) Acquire(ctx context.Context, topic string, maxCount int) ([]Opinion, error) {
	if maxCount <= 0 {
		maxCount = DefaultMaxPosts
	}

	subreddits := r.Subreddits
	if len(subreddits) == 0 {
		subreddits = defaultSubreddits
	}

	postsPerSubreddit := maxCount / len(subreddits)
	if postsPerSubreddit < 3 {
		postsPerSubreddit = 3
	}

	start := time.Now()
	var wg sync.WaitGroup
	var mu sync.Mutex
	allOpinions := []Opinion{}

	for _, subreddit := range subreddits {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			opinions, err := r.searchSubreddit(ctx, name, topic, postsPerSubreddit)
			if err != nil {
				log.Printf("Failed to search r/%s: %v", name, err)
				return
			}
			log.Printf("Collected %d opinions from r/%s", len(opinions), name)
			mu.Lock()
			allOpinions = append(allOpinions, opinions...)
			mu.Unlock()
		}(subreddit)
	}
	wg.Wait()

	// Dedupe on the first 100 characters; near-identical crossposts are
	// common across subreddits.
	seen := make(map[string]bool)
	unique := make([]Opinion, 0, len(allOpinions))
	for _, opinion := range allOpinions {
		key := opinion.Text
		if len(key) > 100 {
			key = key[:100]
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		unique = append(unique, opinion)
	}

	if len(unique) > maxCount {
		unique = unique[:maxCount]
	}

	log.Printf("Acquisition complete in %.2fs: %d unique opinions from %d total",
		time.Since(start).Seconds(), len(unique), len(allOpinions))

	return unique, nil
}

// searchSubreddit fetches matching posts plus a couple of top comments
// per post from a single subreddit.
func (r *RedditSource) searchSubreddit(ctx context.Context, subreddit, topic string, limit int) ([]Opinion, error) {
	searchURL := fmt.Sprintf(
		"https://www.reddit.com/r/%s/search.json?q=%s&restrict_sr=1&sort=relevance&limit=%d",
		subreddit, url.QueryEscape(topic), limit,
	)

	var searchResult struct {
		Data struct {
			Children []struct {
				Data struct {
					ID        string `json:"id"`
					Title     string `json:"title"`
					Selftext  string `json:"selftext"`
					Score     int    `json:"score"`
					Subreddit string `json:"subreddit"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := r.getJSON(ctx, searchURL, &searchResult); err != nil {
		return nil, err
	}

	var opinions []Opinion
	for _, child := range searchResult.Data.Children {
		post := child.Data

		text := post.Selftext
		if text == "" {
			text = post.Title
		}
		if cleaned, ok := cleanText(text); ok {
			score := post.Score
			opinions = append(opinions, Opinion{
				Text:   cleaned,
				Score:  &score,
				Origin: post.Subreddit,
				Kind:   OpinionPost,
			})
		}

		comments, err := r.fetchComments(ctx, post.ID, post.Subreddit)
		if err != nil {
			// Posts without readable comments are still useful.
			continue
		}
		opinions = append(opinions, comments...)
	}

	return opinions, nil
}

// fetchComments returns the top comments of a post as opinions.
func (r *RedditSource) fetchComments(ctx context.Context, postID, subreddit string) ([]Opinion, error) {
	commentsURL := fmt.Sprintf("https://www.reddit.com/comments/%s.json?limit=%d&sort=top", postID, commentsPerPost+1)

	// The comments endpoint returns a two-element array: the post listing
	// and the comment listing.
	var listings []struct {
		Data struct {
			Children []struct {
				Data struct {
					Body  string `json:"body"`
					Score int    `json:"score"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := r.getJSON(ctx, commentsURL, &listings); err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}

	var opinions []Opinion
	for _, child := range listings[1].Data.Children {
		if len(opinions) >= commentsPerPost {
			break
		}
		cleaned, ok := cleanText(child.Data.Body)
		if !ok {
			continue
		}
		score := child.Data.Score
		opinions = append(opinions, Opinion{
			Text:   cleaned,
			Score:  &score,
			Origin: subreddit,
			Kind:   OpinionComment,
		})
	}

	return opinions, nil
}

// getJSON performs a GET request and decodes the JSON response.
func (r *RedditSource) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.UserAgent)

	resp, err := r.Client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("reddit API error: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode reddit response: %w", err)
	}

	return nil
}

// cleanText strips URLs and markdown noise, collapses whitespace and
// rejects texts too short or too long to be a usable opinion.
func cleanText(text string) (string, bool) {
	text = urlPattern.ReplaceAllString(text, "")
	text = whitespacePattern.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)

	if len(text) < 20 || len(text) > 500 {
		return "", false
	}
	return text, true
}
