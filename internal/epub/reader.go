package epub

import (
	"archive/zip"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

var (
	ErrInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	ErrMimetypeCompressed = errors.New("mimetype must not be compressed")
	ErrMimetypeNotFound   = errors.New("mimetype file not found")
	ErrContainerNotFound  = errors.New("META-INF/container.xml not found")
	ErrOPFPathNotFound    = errors.New("OPF path not found in container.xml")
)

// Reader provides read access to a written EPUB container. It backs the
// post-write verification step and the writer tests.
type Reader struct {
	zipReader *zip.ReadCloser
	files     map[string]*zip.File
	opfPath   string
}

type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

// Open opens an EPUB file and validates its container structure.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open epub: %w", err)
	}

	r := &Reader{
		zipReader: zr,
		files:     make(map[string]*zip.File),
	}
	for _, f := range zr.File {
		r.files[strings.TrimPrefix(f.Name, "/")] = f
	}

	if err := r.validateMimetype(); err != nil {
		zr.Close()
		return nil, err
	}
	if err := r.resolveOPFPath(); err != nil {
		zr.Close()
		return nil, err
	}
	return r, nil
}

// Verify opens path, checks the container invariants and the OPF entry, and
// closes it again.
func Verify(path string) error {
	r, err := Open(path)
	if err != nil {
		return err
	}
	defer r.Close()
	if _, err := r.ReadFile(r.OPFPath()); err != nil {
		return fmt.Errorf("read package document: %w", err)
	}
	return nil
}

// OPFPath returns the package document path from container.xml.
func (r *Reader) OPFPath() string { return r.opfPath }

// ReadFile returns the contents of the named container entry.
func (r *Reader) ReadFile(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found in epub: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Close releases the underlying zip reader.
func (r *Reader) Close() error { return r.zipReader.Close() }

// validateMimetype checks that the mimetype entry is first, stored
// uncompressed, and carries the EPUB media type.
func (r *Reader) validateMimetype() error {
	if len(r.zipReader.File) == 0 || r.zipReader.File[0].Name != "mimetype" {
		return ErrMimetypeNotFound
	}
	f := r.zipReader.File[0]
	if f.Method != zip.Store {
		return ErrMimetypeCompressed
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open mimetype: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return fmt.Errorf("read mimetype: %w", err)
	}
	if strings.TrimSpace(string(data)) != "application/epub+zip" {
		return ErrInvalidMimetype
	}
	return nil
}

func (r *Reader) resolveOPFPath() error {
	data, err := r.ReadFile("META-INF/container.xml")
	if err != nil {
		return ErrContainerNotFound
	}
	var c container
	if err := xml.Unmarshal(data, &c); err != nil {
		return fmt.Errorf("parse container.xml: %w", err)
	}
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.MediaType == "application/oebps-package+xml" && rf.FullPath != "" {
			r.opfPath = rf.FullPath
			return nil
		}
	}
	return ErrOPFPathNotFound
}
