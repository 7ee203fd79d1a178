package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"opinionmap"
)

func getenv(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func main() {
	// Load .env file if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	opinionmap.Config.OpenAIAPIKey = os.Getenv("OPENAI_API_KEY")
	opinionmap.Config.ListenAddr = getenv("LISTEN_ADDR", ":8000")
	opinionmap.Config.CORSOrigin = getenv("CORS_ORIGIN", "http://localhost:5173")
	opinionmap.Config.CachePath = getenv("EMBEDDING_CACHE", "embeddings.db")

	rootCmd := &cobra.Command{
		Use:   "opinionmap",
		Short: "Opinion mapping service: collect, embed, cluster and visualize opinions on a topic",
	}

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(processCmd)
	rootCmd.AddCommand(stanceCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(cleanCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

// newService wires the engine to its live collaborators.
func newService() *opinionmap.Service {
	if opinionmap.Config.OpenAIAPIKey == "" {
		log.Fatal("Missing required environment variable: OPENAI_API_KEY")
	}

	cache, err := opinionmap.OpenEmbeddingCache(opinionmap.Config.CachePath)
	if err != nil {
		log.Printf("Failed to open embedding cache, continuing without: %v", err)
		cache = nil
	}

	embedder := opinionmap.NewOpenAIEmbedder(opinionmap.Config.OpenAIAPIKey, cache)
	return opinionmap.NewService(opinionmap.NewRedditSource(), embedder, opinionmap.PCAReducer{})
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Run: func(cmd *cobra.Command, args []string) {
		service := newService()
		topics := opinionmap.NewTopicExtractor(opinionmap.Config.OpenAIAPIKey)
		server := opinionmap.NewServer(service, topics, opinionmap.Config.CORSOrigin)

		log.Printf("Listening on %s", opinionmap.Config.ListenAddr)
		if err := http.ListenAndServe(opinionmap.Config.ListenAddr, server.Handler()); err != nil {
			log.Fatal(err)
		}
	},
}

var processCmd = &cobra.Command{
	Use:   "process [topic]",
	Short: "Collect and map opinions for a topic, saving the result under maps/",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mode, _ := cmd.Flags().GetString("mode")
		reduction, _ := cmd.Flags().GetString("reduction")
		method, _ := cmd.Flags().GetString("method")
		clusters, _ := cmd.Flags().GetInt("clusters")
		threshold, _ := cmd.Flags().GetFloat64("threshold")
		maxPosts, _ := cmd.Flags().GetInt("max-posts")
		seed, _ := cmd.Flags().GetInt64("seed")

		service := newService()
		result, err := service.ProcessTopic(cmd.Context(), args[0], opinionmap.ProcessOptions{
			Mode:                mode,
			Reduction:           reduction,
			ClusterMethod:       method,
			ClusterCount:        clusters,
			SimilarityThreshold: threshold,
			MaxPosts:            maxPosts,
			Seed:                seed,
		})
		if err != nil {
			log.Fatalf("Failed to process topic: %v", err)
		}

		path, err := opinionmap.SaveResult(result)
		if err != nil {
			log.Fatalf("Failed to save result: %v", err)
		}
		log.Printf("Saved %d points to %s", len(result.Points), path)
	},
}

var stanceCmd = &cobra.Command{
	Use:   "stance [statement]",
	Short: "Place a personal statement on a previously saved opinion map",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		mapPath, _ := cmd.Flags().GetString("map")
		if mapPath == "" {
			log.Fatal("--map is required")
		}

		existing, err := opinionmap.LoadResult(mapPath)
		if err != nil {
			log.Fatalf("Failed to load map: %v", err)
		}

		service := newService()
		result, err := service.AddStance(cmd.Context(), existing.Topic, args[0], existing.Points)
		if err != nil {
			log.Fatalf("Failed to place stance: %v", err)
		}

		log.Printf("Placed stance among %d points (max similarity %.3f, neighborhood %d)",
			len(result.Points)-1, result.MaxSimilarity, result.NeighborhoodSize)

		updated := &opinionmap.ProcessResult{
			Points:        result.Points,
			Topic:         existing.Topic,
			Reduction:     existing.Reduction,
			TotalOpinions: existing.TotalOpinions,
			TotalLabels:   existing.TotalLabels,
		}
		path, err := opinionmap.SaveResult(updated)
		if err != nil {
			log.Fatalf("Failed to save updated map: %v", err)
		}
		log.Printf("Updated map saved to %s", path)
	},
}

var reportCmd = &cobra.Command{
	Use:   "report [map.json]",
	Short: "Render a saved opinion map as markdown and HTML reports",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		result, err := opinionmap.LoadResult(args[0])
		if err != nil {
			log.Fatalf("Failed to load map: %v", err)
		}

		report := opinionmap.GenerateReport(result)
		if err := os.WriteFile("report.md", []byte(report), 0644); err != nil {
			log.Fatalf("Failed to write report file: %v", err)
		}
		log.Println("Report generated: report.md")

		htmlContent := opinionmap.GenerateHTMLReport(report, result.Topic)
		if err := os.WriteFile("report.html", []byte(htmlContent), 0644); err != nil {
			log.Fatalf("Failed to write HTML file: %v", err)
		}
		log.Println("HTML report generated: report.html")
	},
}

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Clean saved maps and generated reports",
	Run: func(cmd *cobra.Command, args []string) {
		files, err := os.ReadDir("maps")
		if err == nil {
			for _, file := range files {
				if file.IsDir() {
					continue
				}
				if err := os.Remove(filepath.Join("maps", file.Name())); err != nil {
					log.Printf("Failed to remove %s: %v", file.Name(), err)
				}
			}
		}
		for _, name := range []string{"report.md", "report.html"} {
			if err := os.Remove(name); err != nil && !os.IsNotExist(err) {
				log.Printf("Failed to remove %s: %v", name, err)
			}
		}
		log.Println("Cleaned maps and reports.")
	},
}

func init() {
	processCmd.Flags().String("mode", opinionmap.ModeGroups, "labelling mode: groups or clusters")
	processCmd.Flags().String("reduction", opinionmap.ReductionPCA, "2D reduction: pca, umap or tsne")
	processCmd.Flags().String("method", opinionmap.MethodKMeans, "clustering method: kmeans or hdbscan")
	processCmd.Flags().Int("clusters", 0, "desired cluster count (0 derives from corpus size)")
	processCmd.Flags().Float64("threshold", opinionmap.DefaultSimilarityThreshold, "similarity grouping threshold")
	processCmd.Flags().Int("max-posts", opinionmap.DefaultMaxPosts, "maximum opinions to collect")
	processCmd.Flags().Int64("seed", 0, "random seed for clustering")

	stanceCmd.Flags().String("map", "", "path to a saved map JSON file")
}
