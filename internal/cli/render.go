package cli

import (
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/schollz/progressbar/v3"

	"github.com/sotaro/manga2epub/internal/metadata"
)

// RenderMetadata prints the cached metadata as a table so the user can
// decide whether to reuse it.
func RenderMetadata(w io.Writer, b *metadata.Book) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Field", "Value"})
	t.AppendRows([]table.Row{
		{"Series", b.Series},
		{"Author", b.Author},
		{"Genre", strings.Join(b.Genres, ", ")},
		{"Publisher", b.Publisher},
		{"Device", b.Device},
	})
	t.SetStyle(table.StyleLight)
	t.Render()
}

// NewSpinner returns an indeterminate spinner for one pipeline stage.
func NewSpinner(w io.Writer, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(w),
		progressbar.OptionSetDescription(description),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}
