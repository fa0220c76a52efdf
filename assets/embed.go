package assets

import (
	"embed"
	"io"
)

//go:embed pairs.csv
var FS embed.FS

// DefaultPairs opens the embedded starter catalog.
// The caller closes the returned reader.
func DefaultPairs() (io.ReadCloser, error) {
	return FS.Open("pairs.csv")
}
