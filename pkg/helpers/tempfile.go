package helpers

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"
)

// TempFile is an uploaded file spooled to local disk. The caller owns it and
// must call Cleanup, which closes and unlinks the file and is safe to repeat.
type TempFile struct {
	Path        string
	Filename    string
	ContentType string
	Size        int64
	f           *os.File
}

// SpoolUpload copies a multipart file into dir (os.TempDir when empty) and
// rewinds it for reading. On error nothing is left on disk.
func SpoolUpload(fh *multipart.FileHeader, dir string) (*TempFile, error) {
	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = src.Close() }()

	ext := strings.ToLower(filepath.Ext(fh.Filename))
	f, err := os.CreateTemp(dir, "upload-*"+ext)
	if err != nil {
		return nil, err
	}
	tmp := &TempFile{
		Path:        f.Name(),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		f:           f,
	}
	n, err := io.Copy(f, src)
	if err != nil {
		tmp.Cleanup()
		return nil, err
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		tmp.Cleanup()
		return nil, err
	}
	tmp.Size = n
	return tmp, nil
}

// Reader returns the spooled content positioned at the start.
func (t *TempFile) Reader() io.Reader {
	return t.f
}

func (t *TempFile) Cleanup() {
	if t == nil {
		return
	}
	if t.f != nil {
		_ = t.f.Close()
		t.f = nil
	}
	if t.Path != "" {
		_ = os.Remove(t.Path)
	}
}
