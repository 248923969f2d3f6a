//go:build !linux

package capture

import (
	"fmt"

	"github.com/Wyydra/yaphone/internal/adapter/driven/media/pion"
	"github.com/Wyydra/yaphone/internal/core/domain"
	"github.com/pion/webrtc/v4"
)

// Microphone capture is only wired on Linux.
type Microphone struct{}

func NewMicrophone() (*Microphone, error) {
	return nil, fmt.Errorf("%w: microphone capture unsupported on this platform", domain.ErrMediaUnavailable)
}

func (m *Microphone) Codecs() pion.CodecPopulator {
	return nil
}

func (m *Microphone) Track() (webrtc.TrackLocal, func(), error) {
	return nil, nil, domain.ErrMediaUnavailable
}
