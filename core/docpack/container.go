package docpack

import (
	"archive/zip"
	"bytes"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"

	"github.com/zeebo/blake3"

	"github.com/FocuswithJustin/redline/core/document"
	rederrors "github.com/FocuswithJustin/redline/core/errors"
	"github.com/FocuswithJustin/redline/internal/logging"
	"github.com/FocuswithJustin/redline/internal/validation"
)

// Package is one opened document container. Parts other than the main
// document part are carried through byte-for-byte in their original order.
type Package struct {
	parts       []part
	index       map[string]int
	fingerprint [32]byte
	sourcePath  string
}

type part struct {
	name string
	data []byte
}

const contentTypesXML = xmlHeader +
	`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
	`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
	`<Default Extension="xml" ContentType="application/xml"/>` +
	`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
	`</Types>`

const rootRelsXML = xmlHeader +
	`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
	`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
	`</Relationships>`

// New creates a minimal container holding an empty document.
func New() *Package {
	p := &Package{index: map[string]int{}}
	p.SetPart("[Content_Types].xml", []byte(contentTypesXML))
	p.SetPart("_rels/.rels", []byte(rootRelsXML))
	p.SetPart(DocumentPart, SerializeDocument(document.New()))
	return p
}

// Open reads a container from bytes. The main document part must exist; the
// blake3 fingerprint of the input is retained so a later persist can detect
// that the backing file changed underneath the session.
func Open(data []byte) (*Package, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, &rederrors.StorageError{Part: "container", Op: "open", Message: err.Error()}
	}
	p := &Package{index: map[string]int{}, fingerprint: blake3.Sum256(data)}
	for _, f := range zr.File {
		if err := validation.ValidatePartName(f.Name); err != nil {
			return nil, &rederrors.StorageError{Part: f.Name, Op: "open", Message: err.Error()}
		}
		rc, err := f.Open()
		if err != nil {
			return nil, &rederrors.StorageError{Part: f.Name, Op: "open", Message: err.Error()}
		}
		content, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, &rederrors.StorageError{Part: f.Name, Op: "read", Message: err.Error()}
		}
		p.SetPart(f.Name, content)
	}
	if _, ok := p.Part(DocumentPart); !ok {
		return nil, &rederrors.StorageError{Part: DocumentPart, Op: "open", Message: "part missing"}
	}
	return p, nil
}

// OpenFile opens a container from disk, remembering the path for PersistFile.
func OpenFile(path string) (*Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &rederrors.StorageError{Part: path, Op: "read", Message: err.Error()}
	}
	p, err := Open(data)
	if err != nil {
		return nil, err
	}
	p.sourcePath = path
	return p, nil
}

// Part returns a named part's bytes.
func (p *Package) Part(name string) ([]byte, bool) {
	i, ok := p.index[name]
	if !ok {
		return nil, false
	}
	return p.parts[i].data, true
}

// SetPart replaces or appends a part, preserving existing part order.
func (p *Package) SetPart(name string, data []byte) {
	if i, ok := p.index[name]; ok {
		p.parts[i].data = data
		return
	}
	p.index[name] = len(p.parts)
	p.parts = append(p.parts, part{name: name, data: data})
}

// Fingerprint is the hex blake3 digest of the bytes this package was opened
// from; empty for packages built with New.
func (p *Package) Fingerprint() string {
	if p.fingerprint == ([32]byte{}) {
		return ""
	}
	return hex.EncodeToString(p.fingerprint[:])
}

// Document parses the main document part.
func (p *Package) Document() (*document.Document, error) {
	data, _ := p.Part(DocumentPart)
	d, err := ParseDocument(data)
	if err != nil {
		return nil, err
	}
	paras, _ := d.Paragraphs()
	logging.SessionOpened(DocumentPart, len(paras), d.MaxRevisionID())
	return d, nil
}

// SetDocument serializes d into the main document part.
func (p *Package) SetDocument(d *document.Document) {
	p.SetPart(DocumentPart, SerializeDocument(d))
}

// Bytes renders the container as a zip archive, parts in original order.
func (p *Package) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, pt := range p.parts {
		w, err := zw.Create(pt.name)
		if err != nil {
			return nil, &rederrors.StorageError{Part: pt.name, Op: "write", Message: err.Error()}
		}
		if _, err := w.Write(pt.data); err != nil {
			return nil, &rederrors.StorageError{Part: pt.name, Op: "write", Message: err.Error()}
		}
	}
	if err := zw.Close(); err != nil {
		return nil, &rederrors.StorageError{Part: "container", Op: "write", Message: err.Error()}
	}
	return buf.Bytes(), nil
}

// PersistFile writes the container to path atomically: the bytes land in a
// temp file in the same directory and replace the target with a rename. When
// path is the file this package was opened from, a changed on-disk
// fingerprint aborts the write rather than clobbering someone else's edit.
func (p *Package) PersistFile(path string) error {
	if path == p.sourcePath {
		current, err := os.ReadFile(path)
		if err == nil && blake3.Sum256(current) != p.fingerprint {
			return &rederrors.StorageError{
				Part: path, Op: "persist",
				Message: "file changed since it was opened",
			}
		}
	}

	out, err := p.Bytes()
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".redline-*")
	if err != nil {
		return &rederrors.StorageError{Part: path, Op: "persist", Message: err.Error()}
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(out); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return &rederrors.StorageError{Part: path, Op: "persist", Message: err.Error()}
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return &rederrors.StorageError{Part: path, Op: "persist", Message: err.Error()}
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return &rederrors.StorageError{Part: path, Op: "persist", Message: err.Error()}
	}
	p.fingerprint = blake3.Sum256(out)
	p.sourcePath = path
	return nil
}
