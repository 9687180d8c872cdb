package valuecodec

import (
	"testing"

	"github.com/dw/acid/pkg/keycodec"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name string
	Age  int
}

func TestCBOREncoderRoundTrip(t *testing.T) {
	enc := CBOREncoder{}
	data, err := enc.Encode(sample{Name: "rin", Age: 7})
	require.NoError(t, err)

	var got sample
	require.NoError(t, enc.Decode(data, &got))
	require.Equal(t, sample{Name: "rin", Age: 7}, got)
}

func TestKeyEncoderRoundTrip(t *testing.T) {
	enc := KeyEncoder{}
	data, err := enc.Encode(keycodec.Key{keycodec.Text("x"), keycodec.Int(3)})
	require.NoError(t, err)

	var got keycodec.Key
	require.NoError(t, enc.Decode(data, &got))
	require.Equal(t, 0, keycodec.Key{keycodec.Text("x"), keycodec.Int(3)}.Compare(got))
}

func TestPlainPackerIdentity(t *testing.T) {
	p := PlainPacker{}
	in := []byte("hello")
	out, err := p.Pack(in)
	require.NoError(t, err)
	require.Equal(t, in, out)
	back, err := p.Unpack(out)
	require.NoError(t, err)
	require.Equal(t, in, back)
}

func TestDeflatePackerRoundTrip(t *testing.T) {
	p := DeflatePacker{}
	in := []byte("hello, hello, hello, compress me please")
	packed, err := p.Pack(in)
	require.NoError(t, err)
	require.NotEqual(t, in, packed)

	back, err := p.Unpack(packed)
	require.NoError(t, err)
	require.Equal(t, in, back)
}
