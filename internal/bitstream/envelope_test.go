package bitstream

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errors "golang.org/x/xerrors"
)

func envelope(ts uint64, payload []byte, slack int) []byte {
	b := make([]byte, EnvelopeHeaderSize+len(payload)+slack)
	binary.LittleEndian.PutUint64(b[0:], ts)
	binary.LittleEndian.PutUint32(b[8:], uint32(len(payload)))
	copy(b[EnvelopeHeaderSize:], payload)
	return b
}

func TestReadEnvelope(t *testing.T) {
	payload := JoinAnnexB(testIDR)
	env, p, err := ReadEnvelope(envelope(123456, payload, 100))
	require.NoError(t, err)
	assert.Equal(t, uint64(123456), env.Timestamp)
	assert.Equal(t, uint32(len(payload)), env.Length)
	assert.Equal(t, payload, p)

	_, _, err = ReadEnvelope(make([]byte, 11))
	assert.True(t, errors.Is(err, ErrShortEnvelope))

	bad := envelope(1, payload, 0)
	binary.LittleEndian.PutUint32(bad[8:], uint32(len(payload)+1))
	_, _, err = ReadEnvelope(bad)
	assert.True(t, errors.Is(err, ErrShortEnvelope))
}

func TestUnwrapAuto(t *testing.T) {
	annexb := JoinAnnexB(testSPS, testPPS)

	p, env, err := Unwrap(envelope(0, annexb, 64), EnvelopeAuto)
	require.NoError(t, err)
	require.NotNil(t, env)
	assert.Equal(t, annexb, p)

	p, env, err = Unwrap(annexb, EnvelopeAuto)
	require.NoError(t, err)
	assert.Nil(t, env)
	assert.Equal(t, annexb, p)

	rec := configRecord([][]byte{testSPS}, [][]byte{testPPS})
	p, env, err = Unwrap(rec, EnvelopeAuto)
	require.NoError(t, err)
	assert.Nil(t, env, "config record header does not describe a fitting payload")
	assert.Equal(t, rec, p)
}

func TestUnwrapModes(t *testing.T) {
	annexb := JoinAnnexB(testIDR)

	_, _, err := Unwrap(annexb, EnvelopeRequired)
	assert.True(t, errors.Is(err, ErrMalformed))

	wrapped := envelope(9, annexb, 0)
	p, _, err := Unwrap(wrapped, EnvelopeNone)
	require.NoError(t, err)
	assert.Equal(t, wrapped, p)

	for s, want := range map[string]EnvelopeMode{"": EnvelopeAuto, "raw": EnvelopeNone, "Envelope": EnvelopeRequired} {
		m, err := ParseEnvelopeMode(s)
		require.NoError(t, err)
		assert.Equal(t, want, m)
	}
	_, err = ParseEnvelopeMode("mpegts")
	assert.Error(t, err)
}
