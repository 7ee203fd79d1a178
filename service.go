package opinionmap

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"
)

// Labelling modes for ProcessTopic.
const (
	ModeGroups   = "groups"
	ModeClusters = "clusters"
)

// DefaultMaxPosts bounds how many opinions are collected per topic when
// the caller does not say otherwise.
const DefaultMaxPosts = 50

// Embedder converts text into fixed-dimension embedding vectors.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float64, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float64, error)
}

// OpinionSource acquires opinion texts about a topic. It may return fewer
// than maxCount opinions, already deduplicated, possibly none.
type OpinionSource interface {
	Acquire(ctx context.Context, topic string, maxCount int) ([]Opinion, error)
}

// ProcessOptions configures a single ProcessTopic run.
type ProcessOptions struct {
	Reduction           string  // pca, umap or tsne
	Mode                string  // groups or clusters
	SimilarityThreshold float64 // groups mode, defaults to 0.7
	ClusterMethod       string  // kmeans or hdbscan
	ClusterCount        int     // <= 0 derives a count from the corpus size
	MaxPosts            int
	Seed                int64
}

// Service wires the opinion map engine to its collaborators. Acquisition,
// embedding and reduction are injected so the grouping, clustering and
// placement logic stays pure and testable. A Service is stateless across
// requests; concurrent calls are safe as long as the collaborators are.
type Service struct {
	Source   OpinionSource
	Embedder Embedder
	Reducer  Reducer
	Rand     *rand.Rand
}

// NewService creates a Service with a time-seeded jitter source.
func NewService(source OpinionSource, embedder Embedder, reducer Reducer) *Service {
	return &Service{
		Source:   source,
		Embedder: embedder,
		Reducer:  reducer,
		Rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// ProcessTopic runs the full pipeline for one topic: acquire opinions,
// embed them, assign similarity groups or clusters, reduce to 2D and
// build the labelled point set.
func (s *Service) ProcessTopic(ctx context.Context, topic string, opts ProcessOptions) (*ProcessResult, error) {
	if opts.MaxPosts <= 0 {
		opts.MaxPosts = DefaultMaxPosts
	}
	if opts.Reduction == "" {
		opts.Reduction = ReductionPCA
	}
	if opts.Mode == "" {
		opts.Mode = ModeGroups
	}
	if opts.SimilarityThreshold <= 0 {
		opts.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if opts.ClusterMethod == "" {
		opts.ClusterMethod = MethodKMeans
	}

	log.Printf("Processing topic %q (mode=%s, reduction=%s, max=%d)", topic, opts.Mode, opts.Reduction, opts.MaxPosts)

	opinions, err := s.Source.Acquire(ctx, topic, opts.MaxPosts)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire opinions: %w", err)
	}
	if len(opinions) == 0 {
		return nil, fmt.Errorf("%w: no opinions found for topic %q", ErrEmptyInput, topic)
	}

	texts := make([]string, len(opinions))
	for i, opinion := range opinions {
		texts[i] = opinion.Text
	}

	start := time.Now()
	embeddings, err := s.Embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed opinions: %w", err)
	}
	log.Printf("Embedded %d opinions in %.2fs", len(embeddings), time.Since(start).Seconds())

	var labels []int
	switch opts.Mode {
	case ModeClusters:
		count := opts.ClusterCount
		if count <= 0 {
			count = clampInt(len(embeddings)/20, 3, 8)
		}
		labels, err = AssignClusters(embeddings, opts.ClusterMethod, count, opts.Seed)
	case ModeGroups:
		labels, err = CreateSimilarityGroups(embeddings, opts.SimilarityThreshold)
	default:
		log.Printf("⚠️  Unknown mode %q, falling back to groups", opts.Mode)
		labels, err = CreateSimilarityGroups(embeddings, opts.SimilarityThreshold)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to label opinions: %w", err)
	}

	coords, err := s.Reducer.Reduce(embeddings, opts.Reduction)
	if err != nil {
		return nil, fmt.Errorf("failed to reduce embeddings: %w", err)
	}

	points := make([]LabelledPoint, len(opinions))
	for i, opinion := range opinions {
		points[i] = LabelledPoint{
			ID:        i,
			X:         coords[i][0],
			Y:         coords[i][1],
			Text:      opinion.Text,
			Label:     labels[i],
			Score:     opinion.Score,
			Origin:    opinion.Origin,
			Embedding: embeddings[i],
		}
	}

	totalLabels := countDistinctLabels(labels)
	log.Printf("Processed %d points into %d %s", len(points), totalLabels, opts.Mode)

	return &ProcessResult{
		Points:        points,
		Topic:         topic,
		Reduction:     opts.Reduction,
		TotalOpinions: len(opinions),
		TotalLabels:   totalLabels,
	}, nil
}

// AddStance places a user statement among an existing labelled point set.
func (s *Service) AddStance(ctx context.Context, topic, statement string, existing []LabelledPoint) (StanceResult, error) {
	return PlaceStance(ctx, topic, existing, statement, s.Embedder, s.Rand)
}
