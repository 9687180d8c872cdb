package valuecodec

import (
	"bytes"
	"io"

	"github.com/klauspost/compress/flate"
)

// DeflatePacker compresses record values with DEFLATE, the Go analogue of
// the reference implementation's zlib-backed packer.
type DeflatePacker struct {
	Level int
}

func (DeflatePacker) Name() string { return "deflate" }

func (p DeflatePacker) Pack(data []byte) ([]byte, error) {
	level := p.Level
	if level == 0 {
		level = flate.DefaultCompression
	}
	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, level)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (DeflatePacker) Unpack(data []byte) ([]byte, error) {
	r := flate.NewReader(bytes.NewReader(data))
	defer r.Close()
	return io.ReadAll(r)
}
