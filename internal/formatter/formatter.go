// package formatter renders podcast data for the terminal and exports episode lists to CSV, Markdown, plain text, JSON and YAML
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/desertthunder/ytpod/internal/models"
	"github.com/desertthunder/ytpod/internal/shared"
	"gopkg.in/yaml.v3"
)

// Episode is the flattened, export-friendly view of a podcast item.
type Episode struct {
	ID       string            `json:"id" yaml:"id"`
	Title    string            `json:"title" yaml:"title"`
	Type     models.ItemType   `json:"type" yaml:"type"`
	Status   models.ItemStatus `json:"status" yaml:"status"`
	Source   string            `json:"source,omitempty" yaml:"source,omitempty"`
	Duration float64           `json:"duration" yaml:"duration"`
	Size     int64             `json:"size" yaml:"size"`
	AudioURL string            `json:"audio_url,omitempty" yaml:"audio_url,omitempty"`
	Error    string            `json:"error,omitempty" yaml:"error,omitempty"`
	Created  time.Time         `json:"created" yaml:"created"`
}

// EpisodeExport is a podcast and its episodes, newest first.
type EpisodeExport struct {
	Podcast    models.Podcast `json:"podcast" yaml:"podcast"`
	FeedURL    string         `json:"feed_url,omitempty" yaml:"feed_url,omitempty"`
	Episodes   []Episode      `json:"episodes" yaml:"episodes"`
	ExportedAt time.Time      `json:"exported_at" yaml:"exported_at"`
}

// NewEpisode flattens an item. audioURL builds the file URL and may be nil.
func NewEpisode(item models.Item, audioURL func(models.FileRef) string) Episode {
	base := item.Base()
	ep := Episode{
		ID:       base.ID,
		Title:    item.DisplayTitle(),
		Type:     item.Type(),
		Status:   base.Status,
		Duration: item.Duration(),
		Error:    base.Error,
		Created:  base.Created.Time,
	}
	if u, ok := item.(*models.UrlItem); ok {
		ep.Source = u.URL
	}
	if ref, size, ok := item.Audio(); ok {
		ep.Size = size
		if audioURL != nil {
			ep.AudioURL = audioURL(ref)
		}
	}
	return ep
}

// NewEpisodeExport builds an export of p and its items.
func NewEpisodeExport(p models.Podcast, feedURL string, items []models.Item, audioURL func(models.FileRef) string) *EpisodeExport {
	export := &EpisodeExport{
		Podcast:    p,
		FeedURL:    feedURL,
		Episodes:   make([]Episode, 0, len(items)),
		ExportedAt: time.Now().UTC(),
	}
	for _, item := range items {
		export.Episodes = append(export.Episodes, NewEpisode(item, audioURL))
	}
	return export
}

// ExportToCSV converts an EpisodeExport to CSV format with columns: ID, Title, Type, Status, Duration, Size, Source, Audio URL
func ExportToCSV(export *EpisodeExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Type", "Status", "Duration", "Size", "Source", "Audio URL"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, ep := range export.Episodes {
		record := []string{
			ep.ID,
			ep.Title,
			string(ep.Type),
			string(ep.Status),
			strconv.FormatFloat(ep.Duration, 'f', 0, 64),
			strconv.FormatInt(ep.Size, 10),
			ep.Source,
			ep.AudioURL,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts an EpisodeExport to Markdown format with optional cover image
func ExportToMarkdown(export *EpisodeExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", export.Podcast.Title)

	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}

	if export.Podcast.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", export.Podcast.Description)
	}
	if export.FeedURL != "" {
		fmt.Fprintf(&buf, "**Feed**: <%s>\n", export.FeedURL)
	}
	fmt.Fprintf(&buf, "**Episodes**: %d\n\n", len(export.Episodes))

	buf.WriteString("## Episodes\n\n")
	for i, ep := range export.Episodes {
		title := ep.Title
		if ep.AudioURL != "" {
			title = fmt.Sprintf("[%s](%s)", ep.Title, ep.AudioURL)
		}
		status := ""
		if ep.Status != models.ItemSuccess {
			status = fmt.Sprintf(" _%s_", ep.Status)
		}
		fmt.Fprintf(&buf, "%d. %s [%s]%s\n", i+1, title, FormatDuration(ep.Duration), status)
	}

	return buf.Bytes(), nil
}

// ExportToText converts an EpisodeExport to plain text format
func ExportToText(export *EpisodeExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Podcast: %s\n", export.Podcast.Title)
	if export.Podcast.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Podcast.Description)
	}
	if export.FeedURL != "" {
		fmt.Fprintf(&buf, "Feed: %s\n", export.FeedURL)
	}
	fmt.Fprintf(&buf, "Episodes: %d\n\n", len(export.Episodes))

	for i, ep := range export.Episodes {
		fmt.Fprintf(&buf, "%d. %s (%s)\n", i+1, ep.Title, FormatDuration(ep.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToYAML converts an EpisodeExport to YAML
func ExportToYAML(export *EpisodeExport) ([]byte, error) {
	data, err := yaml.Marshal(export)
	if err != nil {
		return nil, fmt.Errorf("failed to encode YAML: %w", err)
	}
	return data, nil
}

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("empty URL provided")
	}

	client := &http.Client{
		Timeout: 30 * time.Second,
	}

	resp, err := client.Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	imageData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}

	return imageData, nil
}

// ToMetadataJSON generates a JSON representation of podcast metadata (without episodes)
func ToMetadataJSON(p models.Podcast) ([]byte, error) {
	return shared.MarshalJSON(p, true)
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	EpisodesFile string
	MetadataFile string
}

// WriteCSVExport exports episodes to CSV format with accompanying metadata JSON file.
//
// Defaults to podcast ID as the base filename & creates {base}_episodes.csv and {base}_metadata.json
func WriteCSVExport(export *EpisodeExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Podcast.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	episodesFile := baseFilepath + "_episodes.csv"
	if err := os.WriteFile(episodesFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Podcast)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{
		EpisodesFile: episodesFile,
		MetadataFile: metadataFile,
	}, nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory  string
	Files      []string
	CoverImage string
}

// WriteMarkdownExport exports episodes to Markdown format in a dedicated directory.
//
// The imageURL parameter is optional - if provided, attempts to download the cover image.
// Creates {dir}/README.md and optionally {dir}/cover.jpg
func WriteMarkdownExport(export *EpisodeExport, outputDir string, imageURL string) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = export.Podcast.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{
		Directory: outputDir,
		Files:     []string{},
	}

	var coverImageFilename string
	if imageURL != "" {
		imageData, err := DownloadImage(imageURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to download cover image: %v\n", err)
		} else {
			coverImageFilename = "cover.jpg"
			coverImagePath := filepath.Join(outputDir, coverImageFilename)
			if err := os.WriteFile(coverImagePath, imageData, 0644); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to save cover image: %v\n", err)
				coverImageFilename = ""
			} else {
				result.CoverImage = coverImagePath
				result.Files = append(result.Files, coverImagePath)
			}
		}
	}

	mdData, err := ExportToMarkdown(export, coverImageFilename)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)

	return result, nil
}

// WriteTextExport exports episodes to plain text format.
//
// Defaults to {podcast.ID}_episodes.txt as the filename.
func WriteTextExport(export *EpisodeExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_episodes.txt", export.Podcast.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}

// WriteExport writes export into dir in the given format (csv, markdown, txt, yaml or json) and returns the created files.
func WriteExport(export *EpisodeExport, format, dir, imageURL string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	base := filepath.Join(dir, export.Podcast.ID)

	switch format {
	case "csv":
		res, err := WriteCSVExport(export, base)
		if err != nil {
			return nil, err
		}
		return []string{res.EpisodesFile, res.MetadataFile}, nil
	case "markdown", "md":
		res, err := WriteMarkdownExport(export, base, imageURL)
		if err != nil {
			return nil, err
		}
		return res.Files, nil
	case "txt", "text":
		path, err := WriteTextExport(export, base+"_episodes.txt")
		if err != nil {
			return nil, err
		}
		return []string{path}, nil
	case "yaml", "yml":
		data, err := ExportToYAML(export)
		if err != nil {
			return nil, err
		}
		path := base + ".yaml"
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("failed to write YAML file: %w", err)
		}
		return []string{path}, nil
	case "json", "":
		data, err := shared.MarshalJSON(export, true)
		if err != nil {
			return nil, fmt.Errorf("JSON marshal failed: %w", err)
		}
		path := base + ".json"
		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("JSON write failed: %w", err)
		}
		return []string{path}, nil
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, format)
	}
}

// WriteManifest writes v as indented JSON to path.
func WriteManifest(v any, path string) error {
	data, err := shared.MarshalJSON(v, true)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
