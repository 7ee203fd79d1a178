package opinionmap

// OpinionKind distinguishes top-level posts from comments.
type OpinionKind string

const (
	OpinionPost    OpinionKind = "post"
	OpinionComment OpinionKind = "comment"
)

// Opinion represents a single collected opinion text about a topic.
// Opinions are immutable after acquisition; their order is the insertion
// order returned by the source.
type Opinion struct {
	Text   string      `json:"text"`
	Score  *int        `json:"score"`
	Origin string      `json:"origin"`
	Kind   OpinionKind `json:"kind"`
}

// LabelledPoint is one opinion placed on the 2D map with its group or
// cluster label. IDs are a dense 0..N-1 range matching the order of the
// opinion list the point set was built from.
type LabelledPoint struct {
	ID               int       `json:"id"`
	X                float64   `json:"x"`
	Y                float64   `json:"y"`
	Text             string    `json:"text"`
	Label            int       `json:"label"`
	Score            *int      `json:"score"`
	Origin           string    `json:"origin"`
	Embedding        []float64 `json:"embedding,omitempty"`
	IsUserStance     bool      `json:"is_user_stance"`
	SimilarityToUser *float64  `json:"similarity_to_user,omitempty"`
}

// ProcessResult is the payload returned for a processed topic.
type ProcessResult struct {
	Points        []LabelledPoint `json:"points"`
	Topic         string          `json:"topic"`
	Reduction     string          `json:"reduction"`
	TotalOpinions int             `json:"total_opinions"`
	TotalLabels   int             `json:"total_labels"`
}

// StanceResult is the augmented point set returned after placing a user
// statement among existing opinions.
type StanceResult struct {
	Points           []LabelledPoint `json:"points"`
	MaxSimilarity    float64         `json:"max_similarity"`
	NeighborhoodSize int             `json:"neighborhood_size"`
	Topic            string          `json:"topic"`
}
