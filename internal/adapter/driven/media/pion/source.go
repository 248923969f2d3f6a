package pion

import (
	"sync"
	"time"

	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
	"github.com/rs/zerolog/log"
)

// AudioSource produces the local audio for one call.
type AudioSource interface {
	// Track returns a fresh track and a release func.
	Track() (webrtc.TrackLocal, func(), error)
}

// AudioSink consumes the remote audio of a call.
type AudioSink interface {
	WriteRTP(trackID string, pkt *rtp.Packet) error
}

const opusFrame = 20 * time.Millisecond

// opus DTX silence frame
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// SilenceSource sends Opus silence. It keeps the media path alive on hosts
// without a capture device.
type SilenceSource struct{}

func (SilenceSource) Track() (webrtc.TrackLocal, func(), error) {
	track, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 2},
		"audio", "yaphone",
	)
	if err != nil {
		return nil, nil, err
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(opusFrame)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := track.WriteSample(media.Sample{Data: opusSilence, Duration: opusFrame}); err != nil {
					log.Debug().Err(err).Msg("silence write")
				}
			}
		}
	}()

	var once sync.Once
	return track, func() { once.Do(func() { close(done) }) }, nil
}

// CountingSink drops remote audio after counting it.
type CountingSink struct {
	mu      sync.Mutex
	packets map[string]int
	bytes   map[string]int
}

func NewCountingSink() *CountingSink {
	return &CountingSink{
		packets: make(map[string]int),
		bytes:   make(map[string]int),
	}
}

func (s *CountingSink) WriteRTP(trackID string, pkt *rtp.Packet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.packets[trackID]++
	s.bytes[trackID] += len(pkt.Payload)
	return nil
}

func (s *CountingSink) Stats(trackID string) (packets, bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.packets[trackID], s.bytes[trackID]
}

// Take returns the counts for trackID and forgets them.
func (s *CountingSink) Take(trackID string) (packets, bytes int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	packets, bytes = s.packets[trackID], s.bytes[trackID]
	delete(s.packets, trackID)
	delete(s.bytes, trackID)
	return packets, bytes
}
