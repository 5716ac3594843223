package epub

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// writePagePNG writes a small solid PNG page fixture.
func writePagePNG(t *testing.T, path string) {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 4, 6))
	for y := 0; y < 6; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: 128, G: 128, B: 128, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
}

func testBook(t *testing.T, pages int) Book {
	t.Helper()
	dir := t.TempDir()
	book := Book{
		Title:         "Vol1",
		Series:        "Test Series",
		Sequence:      5,
		Author:        "Jane Doe",
		AuthorFileAs:  "Doe, Jane",
		Genres:        []string{"Action", "Drama"},
		Publisher:     "Test Publisher",
		Language:      "en",
		PageDirection: "rtl",
		Width:         600,
		Height:        800,
	}
	for i := 0; i < pages; i++ {
		path := filepath.Join(dir, fmt.Sprintf("%d.png", i+1))
		writePagePNG(t, path)
		book.Pages = append(book.Pages, Page{ImagePath: path, Caption: fmt.Sprintf("Page %d", i)})
	}
	return book
}

func TestWriteProducesValidContainer(t *testing.T) {
	outDir := t.TempDir()
	path, err := Write(testBook(t, 3), outDir)
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if filepath.Base(path) != "Vol1.epub" {
		t.Errorf("output name = %s, want Vol1.epub", filepath.Base(path))
	}
	if err := Verify(path); err != nil {
		t.Fatalf("Verify() error = %v", err)
	}
}

func TestWriteOPFMetadata(t *testing.T) {
	path, err := Write(testBook(t, 3), t.TempDir())
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	opf, err := r.ReadFile(r.OPFPath())
	if err != nil {
		t.Fatal(err)
	}
	s := string(opf)
	for _, want := range []string{
		`page-progression-direction="rtl"`,
		`<dc:title>Vol1</dc:title>`,
		`property="belongs-to-collection">Test Series</meta>`,
		`property="group-position">5</meta>`,
		`property="file-as">Doe, Jane</meta>`,
		`<dc:subject>Action</dc:subject>`,
		`<dc:subject>Drama</dc:subject>`,
		`<dc:publisher>Test Publisher</dc:publisher>`,
		`property="rendition:layout">pre-paginated</meta>`,
		`name="original-resolution" content="600x800"`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("OPF missing %q", want)
		}
	}
}

func TestWriteCoverIsFirstPageAndInSpine(t *testing.T) {
	path, err := Write(testBook(t, 3), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	opf, err := r.ReadFile(r.OPFPath())
	if err != nil {
		t.Fatal(err)
	}
	s := string(opf)
	if !strings.Contains(s, `id="img-1" href="images/page-1.png" media-type="image/png" properties="cover-image"`) {
		t.Error("first image should carry the cover-image property")
	}
	// The cover page stays in the reading sequence.
	if got := strings.Count(s, "<itemref "); got != 3 {
		t.Errorf("spine has %d itemrefs, want 3 (cover included)", got)
	}
}

func TestWritePageDocument(t *testing.T) {
	path, err := Write(testBook(t, 3), t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	data, err := r.ReadFile("OEBPS/page-2.xhtml")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	img := doc.Find("img")
	if img.Length() != 1 {
		t.Fatalf("page document has %d img tags, want 1", img.Length())
	}
	if w, _ := img.Attr("width"); w != "600" {
		t.Errorf("img width = %s, want 600", w)
	}
	if src, _ := img.Attr("src"); src != "images/page-2.png" {
		t.Errorf("img src = %s, want images/page-2.png", src)
	}
	if alt, _ := img.Attr("alt"); alt != "Page 1" {
		t.Errorf("img alt = %s, want Page 1", alt)
	}
}

func TestWriteNavWithContentsDisabled(t *testing.T) {
	book := testBook(t, 3)
	book.ShowContents = false
	path, err := Write(book, t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	r, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()

	data, err := r.ReadFile("OEBPS/nav.xhtml")
	if err != nil {
		t.Fatal(err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if n := doc.Find("nav ol li").Length(); n != 1 {
		t.Errorf("disabled TOC should list a single entry, got %d", n)
	}
}

func TestWriteEmptyBookFails(t *testing.T) {
	if _, err := Write(Book{Title: "x"}, t.TempDir()); err == nil {
		t.Fatal("Write() expected error for empty page list")
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct{ in, want string }{
		{"Vol1", "Vol1"},
		{"A/B:C", "A_B_C"},
		{"  ", "untitled"},
		{`bad<>"name`, "bad___name"},
	}
	for _, tt := range tests {
		if got := sanitizeFilename(tt.in); got != tt.want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
