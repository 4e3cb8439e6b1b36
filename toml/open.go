package toml

import (
	"os"

	"github.com/opal-lang/celes/celesio"
	"github.com/opal-lang/celes/diag"
)

// Open reads path, parses it as TOML, and returns the resulting root
// table. On a read failure it returns a *diag.Error with Kind
// diag.ErrFileNotFound or diag.ErrFileRead; on a parse failure it returns
// a *diag.Error with Kind diag.ErrParse whose Message is the accumulator's
// rendered diagnostics (spec.md §4.3/§6).
func Open(path string) (*Table, error) {
	src, err := celesio.ReadUTF8File(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, diag.Wrap(diag.ErrFileNotFound, "file not found: "+path, err)
		}
		return nil, diag.Wrap(diag.ErrFileRead, "could not read "+path, err)
	}
	return ParseBytes(path, src)
}

// ParseBytes parses src as TOML, associating diagnostics with file.
func ParseBytes(file string, src []byte) (*Table, error) {
	root, kind, acc := Parse(file, src)
	if kind != "" {
		return root, diag.New(diag.ErrParse, acc.Build())
	}
	return root, nil
}
