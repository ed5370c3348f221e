package stages

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/evseq/internal/canonical"
	"github.com/roach88/evseq/internal/event"
)

func TestDigestService_FingerprintOrderIndependent(t *testing.T) {
	a := NewDigestService()
	require.NoError(t, a.Record(0, "x"))
	require.NoError(t, a.Record(1, "y"))
	require.NoError(t, a.Record(2, "z"))

	b := NewDigestService()
	require.NoError(t, b.Record(2, "z"))
	require.NoError(t, b.Record(0, "x"))
	require.NoError(t, b.Record(1, "y"))

	assert.Equal(t, a.Fingerprint(), b.Fingerprint())
	assert.Equal(t, 3, a.Len())

	c := NewDigestService()
	require.NoError(t, c.Record(0, "x"))
	require.NoError(t, c.Record(1, "z"))
	require.NoError(t, c.Record(2, "y"))
	assert.NotEqual(t, a.Fingerprint(), c.Fingerprint())
}

func TestDigestService_RecordOnce(t *testing.T) {
	s := NewDigestService()
	assert.Empty(t, s.Fingerprint())

	require.NoError(t, s.Record(4, "abc"))
	assert.Error(t, s.Record(4, "def"))

	d, ok := s.Digest(4)
	assert.True(t, ok)
	assert.Equal(t, "abc", d)

	_, ok = s.Digest(5)
	assert.False(t, ok)
}

func TestDigest_Write(t *testing.T) {
	svc := NewDigestService()
	d, err := NewDigest(DigestConfig{Inputs: []string{"particles"}, Service: svc})
	require.NoError(t, err)

	ec := newEventContext(3)
	require.NoError(t, ec.Store.Add("particles", testParticles()))
	code, err := d.Write(context.Background(), ec)
	require.NoError(t, err)
	require.Equal(t, event.Success, code)

	got, ok := svc.Digest(3)
	require.True(t, ok)
	assert.Len(t, got, 64)

	// The digest covers the event number as well as the content.
	other, err := EventDigest(4, map[string]any{"particles": canonical.Values(testParticles())})
	require.NoError(t, err)
	assert.NotEqual(t, got, other)

	same, err := EventDigest(3, map[string]any{"particles": canonical.Values(testParticles())})
	require.NoError(t, err)
	assert.Equal(t, got, same)

	// Recording the same event twice aborts.
	code, err = d.Write(context.Background(), nextStage(ec))
	assert.Equal(t, event.Abort, code)
	assert.Error(t, err)
}

func TestDigest_MissingCollection(t *testing.T) {
	d, err := NewDigest(DigestConfig{Inputs: []string{"particles"}, Service: NewDigestService()})
	require.NoError(t, err)
	code, err := d.Write(context.Background(), newEventContext(0))
	assert.Equal(t, event.Abort, code)
	assert.Error(t, err)
}
