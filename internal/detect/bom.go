package detect

import "io"

// bomSkippingReader wraps an io.Reader and skips a leading UTF-8 BOM
// (0xEF 0xBB 0xBF) if present. Windows tools commonly prepend one, and
// leaving it in place corrupts the first header column name.
type bomSkippingReader struct {
	reader  io.Reader
	checked bool
	buf     [3]byte
	pending []byte
}

func newBOMSkippingReader(r io.Reader) *bomSkippingReader {
	return &bomSkippingReader{reader: r}
}

// Read implements io.Reader. The first call inspects the initial three bytes
// and drops them when they form a BOM.
func (r *bomSkippingReader) Read(p []byte) (int, error) {
	if !r.checked {
		r.checked = true

		n, err := io.ReadFull(r.reader, r.buf[:])
		if err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		if n > 0 {
			head := r.buf[:n]
			if !(n == 3 && head[0] == 0xEF && head[1] == 0xBB && head[2] == 0xBF) {
				r.pending = head
			}
		}
		if err != nil && err != io.EOF && n == 0 {
			return 0, err
		}
	}

	if len(r.pending) > 0 {
		copied := copy(p, r.pending)
		r.pending = r.pending[copied:]
		return copied, nil
	}

	return r.reader.Read(p)
}
