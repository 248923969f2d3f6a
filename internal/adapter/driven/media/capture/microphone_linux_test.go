//go:build linux

package capture

import (
	"context"
	"testing"

	"github.com/Wyydra/yaphone/internal/adapter/driven/media/pion"
	"github.com/Wyydra/yaphone/internal/core/port"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMicrophoneCodecsDriveTheMediaEngine(t *testing.T) {
	mic, err := NewMicrophone()
	require.NoError(t, err)
	require.NotNil(t, mic.Codecs())

	// silence stands in for the device; only the negotiated codecs matter here
	tr, err := pion.NewTransport(pion.Config{Codecs: mic.Codecs()})
	require.NoError(t, err)

	sess, err := tr.Open(context.Background(), port.MediaHandlers{})
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.AddLocalAudio(context.Background()))
	offer, err := sess.CreateOffer(context.Background())
	require.NoError(t, err)
	assert.Contains(t, offer.SDP, "opus/48000/2")
}
