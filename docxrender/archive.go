package docxrender

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
)

// Part names inside a WordprocessingML package.
const (
	partDocument     = "word/document.xml"
	partRels         = "word/_rels/document.xml.rels"
	partContentTypes = "[Content_Types].xml"
	mediaDir         = "word/media/"
)

// Limits against zip bombs. A single part over maxPartSize is rejected.
const (
	maxPartSize = 50 << 20
	maxEntries  = 10000
)

// archive is an opened DOCX package. Parts that are never touched are copied
// to the output without recompression.
type archive struct {
	zr      *zip.Reader
	index   map[string]*zip.File
	changed map[string][]byte
	// added keeps new part names in insertion order.
	added []string
}

func openArchive(data []byte) (*archive, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty source", ErrInvalidDocument)
	}
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: open zip: %v", ErrInvalidDocument, err)
	}
	if len(zr.File) > maxEntries {
		return nil, fmt.Errorf("%w: %d zip entries", ErrInvalidDocument, len(zr.File))
	}
	a := &archive{zr: zr, index: make(map[string]*zip.File, len(zr.File)), changed: map[string][]byte{}}
	for _, f := range zr.File {
		a.index[f.Name] = f
	}
	if _, ok := a.index[partDocument]; !ok {
		return nil, fmt.Errorf("%w: %s missing", ErrInvalidDocument, partDocument)
	}
	return a, nil
}

// read returns the current content of a part.
func (a *archive) read(name string) ([]byte, bool, error) {
	if data, ok := a.changed[name]; ok {
		return data, true, nil
	}
	f, ok := a.index[name]
	if !ok {
		return nil, false, nil
	}
	if f.UncompressedSize64 > maxPartSize {
		return nil, true, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidDocument, name, maxPartSize)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, true, fmt.Errorf("%w: open %s: %v", ErrInvalidDocument, name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(io.LimitReader(rc, maxPartSize+1))
	if err != nil {
		return nil, true, fmt.Errorf("%w: read %s: %v", ErrInvalidDocument, name, err)
	}
	if len(data) > maxPartSize {
		return nil, true, fmt.Errorf("%w: %s exceeds %d bytes", ErrInvalidDocument, name, maxPartSize)
	}
	return data, true, nil
}

// has reports whether a part exists in the source or was written since.
func (a *archive) has(name string) bool {
	if _, ok := a.changed[name]; ok {
		return true
	}
	_, ok := a.index[name]
	return ok
}

func (a *archive) write(name string, data []byte) {
	if _, ok := a.changed[name]; !ok {
		if _, exists := a.index[name]; !exists {
			a.added = append(a.added, name)
		}
	}
	a.changed[name] = data
}

// bytes serialises the package. Original part order is kept and new parts
// follow it.
func (a *archive) bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, f := range a.zr.File {
		data, ok := a.changed[f.Name]
		if !ok {
			if err := zw.Copy(f); err != nil {
				return nil, fmt.Errorf("copy %s: %w", f.Name, err)
			}
			continue
		}
		if err := writePart(zw, f.Name, data); err != nil {
			return nil, err
		}
	}
	for _, name := range a.added {
		if err := writePart(zw, name, a.changed[name]); err != nil {
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(zw *zip.Writer, name string, data []byte) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create %s: %w", name, err)
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
