package opinionmap

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"html/template"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
)

//go:embed templates/report.html
var htmlTemplate string

//go:embed templates/styles.css
var cssStyles string

const mapsDir = "maps"

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// slugify turns a topic into a filesystem-friendly name.
func slugify(topic string) string {
	slug := slugPattern.ReplaceAllString(strings.ToLower(topic), "-")
	return strings.Trim(slug, "-")
}

// SaveResult writes a processed topic to maps/<slug>.json.
func SaveResult(result *ProcessResult) (string, error) {
	if err := os.MkdirAll(mapsDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create maps directory: %w", err)
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal result: %w", err)
	}

	path := filepath.Join(mapsDir, slugify(result.Topic)+".json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}

	return path, nil
}

// LoadResult reads a processed topic back from disk.
func LoadResult(path string) (*ProcessResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}

	var result ProcessResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse result file: %w", err)
	}

	return &result, nil
}

// GenerateReport renders a processed topic as a markdown report: one
// section per label, largest first, with the highest-scored opinions
// quoted under each.
func GenerateReport(result *ProcessResult) string {
	byLabel := make(map[int][]LabelledPoint)
	for _, point := range result.Points {
		byLabel[point.Label] = append(byLabel[point.Label], point)
	}

	labels := make([]int, 0, len(byLabel))
	for label := range byLabel {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if len(byLabel[labels[i]]) != len(byLabel[labels[j]]) {
			return len(byLabel[labels[i]]) > len(byLabel[labels[j]])
		}
		return labels[i] < labels[j]
	})

	var b strings.Builder
	fmt.Fprintf(&b, "# Opinion Map: %s\n\n", result.Topic)
	fmt.Fprintf(&b, "%d opinions in %d groups (%s reduction).\n\n",
		result.TotalOpinions, result.TotalLabels, result.Reduction)

	for _, label := range labels {
		points := byLabel[label]
		sort.Slice(points, func(i, j int) bool {
			return scoreOf(points[i]) > scoreOf(points[j])
		})

		fmt.Fprintf(&b, "## Group %d (%d opinions)\n\n", label, len(points))

		maxShow := 5
		if len(points) < maxShow {
			maxShow = len(points)
		}
		for _, point := range points[:maxShow] {
			fmt.Fprintf(&b, "- %s *(r/%s, score %d)*\n", point.Text, point.Origin, scoreOf(point))
		}
		if len(points) > maxShow {
			fmt.Fprintf(&b, "- ... and %d more\n", len(points)-maxShow)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func scoreOf(point LabelledPoint) int {
	if point.Score == nil {
		return 0
	}
	return *point.Score
}

// GenerateHTMLReport converts the markdown report into a complete HTML
// document with embedded CSS.
func GenerateHTMLReport(markdownContent, topic string) string {
	md := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)

	var buf bytes.Buffer
	if err := md.Convert([]byte(markdownContent), &buf); err != nil {
		log.Printf("Failed to convert markdown to HTML: %v", err)
		return ""
	}

	tmpl, err := template.New("report").Parse(htmlTemplate)
	if err != nil {
		log.Printf("Failed to parse HTML template: %v", err)
		return ""
	}

	data := struct {
		Title string
		Date  string
		Body  template.HTML
		CSS   template.CSS
	}{
		Title: "Opinion Map: " + topic,
		Date:  time.Now().Format("2 January 2006"),
		Body:  template.HTML(buf.String()),
		CSS:   template.CSS(cssStyles),
	}

	var result bytes.Buffer
	if err := tmpl.Execute(&result, data); err != nil {
		log.Printf("Failed to execute template: %v", err)
		return ""
	}

	return result.String()
}
