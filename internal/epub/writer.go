package epub

import (
	"archive/zip"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Page is one reading-order entry: an image file on disk and its caption.
type Page struct {
	ImagePath string
	Caption   string
}

// Book describes one fixed-layout volume to be written.
type Book struct {
	Title         string
	Series        string
	Sequence      int
	Author        string
	AuthorFileAs  string
	Genres        []string
	Publisher     string
	Language      string
	PageDirection string // "rtl" or "ltr"
	Width         int    // declared viewport, matches the device screen
	Height        int
	CoverIndex    int // index into Pages; the cover stays in the sequence
	ShowContents  bool
	Pages         []Page
}

// Write serializes book as an EPUB 3 fixed-layout container in outDir and
// returns the written file path. The file is named after the sanitized
// title.
func Write(book Book, outDir string) (string, error) {
	if len(book.Pages) == 0 {
		return "", fmt.Errorf("no pages to write")
	}
	if book.CoverIndex < 0 || book.CoverIndex >= len(book.Pages) {
		book.CoverIndex = 0
	}
	if book.Language == "" {
		book.Language = "en"
	}
	ppd := "ltr"
	if strings.EqualFold(book.PageDirection, "rtl") {
		ppd = "rtl"
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return "", fmt.Errorf("ensure output directory: %w", err)
	}
	outPath := filepath.Join(outDir, sanitizeFilename(book.Title)+".epub")
	f, err := os.Create(outPath)
	if err != nil {
		return "", fmt.Errorf("create epub: %w", err)
	}
	defer f.Close()

	zw := zip.NewWriter(f)
	if err := writeBook(zw, book, ppd); err != nil {
		zw.Close()
		return "", err
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("close epub container: %w", err)
	}
	return outPath, nil
}

func writeBook(zw *zip.Writer, book Book, ppd string) error {
	// The mimetype entry must come first and must be stored uncompressed.
	if err := addStoredZipFile(zw, "mimetype", []byte("application/epub+zip")); err != nil {
		return fmt.Errorf("write mimetype: %w", err)
	}

	containerXML := "" +
		"<?xml version=\"1.0\" encoding=\"utf-8\"?>\n" +
		"<container version=\"1.0\" xmlns=\"urn:oasis:names:tc:opendocument:xmlns:container\">\n" +
		"  <rootfiles>\n" +
		"    <rootfile full-path=\"OEBPS/content.opf\" media-type=\"application/oebps-package+xml\"/>\n" +
		"  </rootfiles>\n" +
		"</container>\n"
	if err := addZipFile(zw, "META-INF/container.xml", []byte(containerXML)); err != nil {
		return fmt.Errorf("write container.xml: %w", err)
	}

	// Zero margins, full-bleed page box.
	css := "@page { margin: 0; }\n" +
		"html, body, .page { margin:0; padding:0; width:100%; height:100%; }\n" +
		"img { display:block; margin:0 auto; }\n"
	if err := addZipFile(zw, "OEBPS/styles/epub.css", []byte(css)); err != nil {
		return fmt.Errorf("write css: %w", err)
	}

	pad := 1
	if n := len(book.Pages); n >= 1000 {
		pad = 4
	} else if n >= 100 {
		pad = 3
	} else if n >= 10 {
		pad = 2
	}

	imgHrefs := make([]string, len(book.Pages))
	for i, page := range book.Pages {
		data, err := os.ReadFile(page.ImagePath)
		if err != nil {
			return fmt.Errorf("read page image %s: %w", page.ImagePath, err)
		}
		ext := strings.ToLower(filepath.Ext(page.ImagePath))
		if imageMediaType(ext) == "" {
			ext = ".png"
		}
		href := fmt.Sprintf("images/page-%0*d%s", pad, i+1, ext)
		if err := addZipFile(zw, "OEBPS/"+href, data); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
		imgHrefs[i] = href

		pageXHTML := fmt.Sprintf("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n"+
			"<html xmlns=\"http://www.w3.org/1999/xhtml\">\n<head>\n"+
			"<meta charset=\"utf-8\"/>\n"+
			"<meta name=\"viewport\" content=\"width=%d, height=%d\"/>\n"+
			"<title>%s</title>\n"+
			"<link rel=\"stylesheet\" type=\"text/css\" href=\"styles/epub.css\"/>\n"+
			"</head>\n<body>\n"+
			"<div class=\"page\"><img width=\"%d\" height=\"%d\" src=\"%s\" alt=\"%s\"/></div>\n"+
			"</body>\n</html>\n",
			book.Width, book.Height, xmlEsc(page.Caption), book.Width, book.Height, href, xmlEsc(page.Caption))
		if err := addZipFile(zw, fmt.Sprintf("OEBPS/page-%0*d.xhtml", pad, i+1), []byte(pageXHTML)); err != nil {
			return fmt.Errorf("write page xhtml: %w", err)
		}
	}

	if err := addZipFile(zw, "OEBPS/nav.xhtml", buildNav(book, pad)); err != nil {
		return fmt.Errorf("write nav.xhtml: %w", err)
	}
	if err := addZipFile(zw, "OEBPS/content.opf", buildOPF(book, ppd, pad, imgHrefs)); err != nil {
		return fmt.Errorf("write content.opf: %w", err)
	}
	return nil
}

// buildNav emits the nav document required by EPUB 3. When the table of
// contents is disabled only the first page is listed; reading systems still
// need a non-empty toc nav for the container to validate.
func buildNav(book Book, pad int) []byte {
	buf := &bytes.Buffer{}
	buf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	buf.WriteString("<html xmlns=\"http://www.w3.org/1999/xhtml\" xmlns:epub=\"http://www.idpf.org/2007/ops\">\n")
	buf.WriteString("<head><title>Table of Contents</title></head>\n<body>\n")
	buf.WriteString("<nav epub:type=\"toc\" id=\"toc\"><ol>\n")
	if book.ShowContents {
		for i, page := range book.Pages {
			fmt.Fprintf(buf, "<li><a href=\"page-%0*d.xhtml\">%s</a></li>\n", pad, i+1, xmlEsc(page.Caption))
		}
	} else {
		fmt.Fprintf(buf, "<li><a href=\"page-%0*d.xhtml\">%s</a></li>\n", pad, 1, xmlEsc(book.Title))
	}
	buf.WriteString("</ol></nav>\n</body>\n</html>\n")
	return buf.Bytes()
}

func buildOPF(book Book, ppd string, pad int, imgHrefs []string) []byte {
	mod := time.Now().UTC().Format("2006-01-02T15:04:05Z")
	uid := fmt.Sprintf("urn:uuid:%d", time.Now().UnixNano())

	buf := &bytes.Buffer{}
	buf.WriteString("<?xml version=\"1.0\" encoding=\"utf-8\"?>\n")
	buf.WriteString("<package version=\"3.0\" unique-identifier=\"pub-id\" xmlns=\"http://www.idpf.org/2007/opf\">\n")
	buf.WriteString("  <metadata xmlns:dc=\"http://purl.org/dc/elements/1.1/\" xmlns:opf=\"http://www.idpf.org/2007/opf\">\n")
	fmt.Fprintf(buf, "    <dc:identifier id=\"pub-id\">%s</dc:identifier>\n", uid)
	fmt.Fprintf(buf, "    <dc:title>%s</dc:title>\n", xmlEsc(book.Title))
	fmt.Fprintf(buf, "    <dc:language>%s</dc:language>\n", xmlEsc(book.Language))
	if strings.TrimSpace(book.Author) != "" {
		fmt.Fprintf(buf, "    <dc:creator id=\"creator\">%s</dc:creator>\n", xmlEsc(book.Author))
		if book.AuthorFileAs != "" {
			fmt.Fprintf(buf, "    <meta refines=\"#creator\" property=\"file-as\">%s</meta>\n", xmlEsc(book.AuthorFileAs))
		}
	}
	for _, genre := range book.Genres {
		fmt.Fprintf(buf, "    <dc:subject>%s</dc:subject>\n", xmlEsc(genre))
	}
	if strings.TrimSpace(book.Publisher) != "" {
		fmt.Fprintf(buf, "    <dc:publisher>%s</dc:publisher>\n", xmlEsc(book.Publisher))
	}
	if strings.TrimSpace(book.Series) != "" {
		buf.WriteString("    <meta id=\"series\" property=\"belongs-to-collection\">" + xmlEsc(book.Series) + "</meta>\n")
		buf.WriteString("    <meta refines=\"#series\" property=\"collection-type\">series</meta>\n")
		fmt.Fprintf(buf, "    <meta refines=\"#series\" property=\"group-position\">%d</meta>\n", book.Sequence)
	}
	fmt.Fprintf(buf, "    <meta property=\"dcterms:modified\">%s</meta>\n", mod)
	buf.WriteString("    <meta property=\"rendition:layout\">pre-paginated</meta>\n")
	buf.WriteString("    <meta property=\"rendition:orientation\">portrait</meta>\n")
	buf.WriteString("    <meta property=\"rendition:spread\">none</meta>\n")
	fmt.Fprintf(buf, "    <meta name=\"original-resolution\" content=\"%dx%d\"/>\n", book.Width, book.Height)
	buf.WriteString("    <meta name=\"fixed-layout\" content=\"true\"/>\n")
	buf.WriteString("    <meta name=\"book-type\" content=\"comic\"/>\n")
	buf.WriteString("  </metadata>\n")

	buf.WriteString("  <manifest>\n")
	buf.WriteString("    <item id=\"nav\" href=\"nav.xhtml\" media-type=\"application/xhtml+xml\" properties=\"nav\"/>\n")
	buf.WriteString("    <item id=\"css\" href=\"styles/epub.css\" media-type=\"text/css\"/>\n")
	for i, href := range imgHrefs {
		props := ""
		if i == book.CoverIndex {
			props = " properties=\"cover-image\""
		}
		fmt.Fprintf(buf, "    <item id=\"img-%0*d\" href=\"%s\" media-type=\"%s\"%s/>\n",
			pad, i+1, href, imageMediaType(strings.ToLower(filepath.Ext(href))), props)
		fmt.Fprintf(buf, "    <item id=\"page-%0*d\" href=\"page-%0*d.xhtml\" media-type=\"application/xhtml+xml\"/>\n",
			pad, i+1, pad, i+1)
	}
	buf.WriteString("  </manifest>\n")

	fmt.Fprintf(buf, "  <spine page-progression-direction=\"%s\">\n", ppd)
	for i := range imgHrefs {
		fmt.Fprintf(buf, "    <itemref idref=\"page-%0*d\"/>\n", pad, i+1)
	}
	buf.WriteString("  </spine>\n")
	buf.WriteString("</package>\n")
	return buf.Bytes()
}

func imageMediaType(ext string) string {
	switch ext {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}

var unsafeFilename = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)

// sanitizeFilename strips characters that are invalid in output filenames.
func sanitizeFilename(name string) string {
	s := unsafeFilename.ReplaceAllString(name, "_")
	s = strings.TrimSpace(s)
	if s == "" {
		return "untitled"
	}
	return s
}

func xmlEsc(s string) string {
	r := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&apos;",
	)
	return r.Replace(s)
}

// addStoredZipFile writes an entry with the STORE method, required for the
// EPUB mimetype entry.
func addStoredZipFile(zw *zip.Writer, name string, data []byte) error {
	hdr := &zip.FileHeader{Name: name, Method: zip.Store}
	hdr.Modified = time.Now()
	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}

func addZipFile(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
