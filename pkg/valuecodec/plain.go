package valuecodec

// PlainPacker is the identity packer: no compression, no transform.
// Collections default to this when no packer is configured.
type PlainPacker struct{}

func (PlainPacker) Name() string { return "plain" }

func (PlainPacker) Pack(data []byte) ([]byte, error) { return data, nil }

func (PlainPacker) Unpack(data []byte) ([]byte, error) { return data, nil }
