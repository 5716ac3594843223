package metadata

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// Placeholder values used when the user leaves a field empty. The EPUB
// writer requires non-empty metadata fields.
const (
	DefaultSeries    = "Default Series"
	DefaultAuthor    = "Default Author"
	DefaultPublisher = "Default Publisher"
	DefaultGenre     = "Other"
)

// CacheFile is the metadata cache location, relative to the working directory.
const CacheFile = "metadata.json"

// Genres is the fixed genre list offered by the multi-select prompt.
var Genres = []string{
	"Action",
	"Adventure",
	"Comedy",
	"Drama",
	"Fantasy",
	"Historical",
	"Horror",
	"Mecha",
	"Mystery",
	"One shot",
	"Overpowered MC",
	"Sci-fi",
	"Shonen",
	"Slice of life",
	"Supernatural",
	"Time travel",
	"Other",
}

// Book holds the series-level metadata applied to every volume in a run.
// It is collected once, from prompts or the cache file, and read-only
// afterwards; only the per-volume sequence number varies.
type Book struct {
	Series    string   `json:"series"`
	Author    string   `json:"author"`
	Genres    []string `json:"genre"`
	Publisher string   `json:"publisher"`
	Device    string   `json:"kindle"`
	Language  string   `json:"language"`
}

// Normalize fills empty fields with placeholder defaults.
func (b *Book) Normalize() {
	if strings.TrimSpace(b.Series) == "" {
		b.Series = DefaultSeries
	}
	if strings.TrimSpace(b.Author) == "" {
		b.Author = DefaultAuthor
	}
	if len(b.Genres) == 0 {
		b.Genres = []string{DefaultGenre}
	}
	if strings.TrimSpace(b.Publisher) == "" {
		b.Publisher = DefaultPublisher
	}
	if b.Language == "" {
		b.Language = "en"
	}
}

// AuthorFileAs derives the filing form of the author name: space-separated
// tokens reversed and comma-joined, "Jane Doe" -> "Doe, Jane".
func (b *Book) AuthorFileAs() string {
	fields := strings.Fields(b.Author)
	for i, j := 0, len(fields)-1; i < j; i, j = i+1, j-1 {
		fields[i], fields[j] = fields[j], fields[i]
	}
	return strings.Join(fields, ", ")
}

// Load reads cached metadata from path.
func Load(path string) (*Book, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read metadata cache: %w", err)
	}
	var b Book
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("parse metadata cache: %w", err)
	}
	b.Normalize()
	return &b, nil
}

// Save writes the metadata cache to path.
func Save(path string, b *Book) error {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return fmt.Errorf("encode metadata cache: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write metadata cache: %w", err)
	}
	return nil
}
