package tracefmt

import (
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Open wraps r so that a .zst-suffixed path is transparently
// decompressed. name is only consulted for its suffix; r itself must
// already be positioned at the start of the stream.
func Open(name string, r io.Reader) (io.Reader, func() error, error) {
	if !strings.HasSuffix(name, ".zst") {
		return r, func() error { return nil }, nil
	}
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, nil, err
	}
	rc := dec.IOReadCloser()
	return rc, rc.Close, nil
}
