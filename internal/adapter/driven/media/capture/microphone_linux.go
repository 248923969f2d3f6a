//go:build linux

package capture

import (
	"fmt"

	"github.com/Wyydra/yaphone/internal/adapter/driven/media/pion"
	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/pion/mediadevices"
	"github.com/pion/mediadevices/pkg/codec/opus"
	_ "github.com/pion/mediadevices/pkg/driver/microphone"
	"github.com/pion/mediadevices/pkg/prop"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog/log"
)

// Microphone captures the default input device and encodes it as Opus.
type Microphone struct {
	selector *mediadevices.CodecSelector
}

func NewMicrophone() (*Microphone, error) {
	params, err := opus.NewParams()
	if err != nil {
		return nil, fmt.Errorf("opus params: %w", err)
	}
	return &Microphone{
		selector: mediadevices.NewCodecSelector(mediadevices.WithAudioEncoders(&params)),
	}, nil
}

// Codecs is the encoder set the media engine must offer for this source.
func (m *Microphone) Codecs() pion.CodecPopulator {
	return m.selector
}

func (m *Microphone) Track() (webrtc.TrackLocal, func(), error) {
	var found bool
	for _, d := range mediadevices.EnumerateDevices() {
		if d.Kind == mediadevices.AudioInput {
			log.Debug().Str("label", d.Label).Msg("audio input")
			found = true
		}
	}
	if !found {
		return nil, nil, fmt.Errorf("%w: no audio input device", domain.ErrMediaUnavailable)
	}

	stream, err := mediadevices.GetUserMedia(mediadevices.MediaStreamConstraints{
		Audio: func(c *mediadevices.MediaTrackConstraints) {
			c.ChannelCount = prop.Int(1)
		},
		Codec: m.selector,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", domain.ErrMediaUnavailable, err)
	}

	tracks := stream.GetAudioTracks()
	if len(tracks) == 0 {
		return nil, nil, fmt.Errorf("%w: no audio track", domain.ErrMediaUnavailable)
	}
	track := tracks[0]
	track.OnEnded(func(err error) {
		if err != nil {
			log.Warn().Err(err).Msg("microphone track ended")
		}
	})

	release := func() {
		for _, t := range stream.GetTracks() {
			t.Close()
		}
	}
	return track, release, nil
}
