// Package capture provides microphone audio for calls.
package capture

import "github.com/Wyydra/yaphone/internal/adapter/driven/media/pion"

var _ pion.AudioSource = (*Microphone)(nil)
