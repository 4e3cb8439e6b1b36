// Package celesio implements the file-read boundary from spec.md §6: a
// UTF-8 file is read in full, with a leading byte-order mark stripped.
package celesio

import (
	"io"
	"os"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// ReadUTF8File reads path in full and strips a leading UTF-8 BOM
// (EF BB BF), using the x/text BOM-aware decoder rather than a hand
// checked three-byte prefix. I/O errors (including a missing file) are
// returned unchanged so callers can distinguish os.ErrNotExist via
// os.IsNotExist, per spec.md §6's FileNotFound code.
func ReadUTF8File(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	// unicode.BOMOverride defaults to UTF-8 passthrough when no BOM is
	// present, and strips a UTF-8 BOM when one is found; it also honors
	// UTF-16 BOMs, which we don't expect here but don't need to reject.
	decoder := unicode.BOMOverride(unicode.UTF8.NewDecoder())
	r := transform.NewReader(f, decoder)

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return data, nil
}
