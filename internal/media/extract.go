// Package media shells out to ffmpeg for audio extraction. When ffmpeg is
// not installed the caller degrades into a placeholder artifact, mirroring
// how unconfigured providers behave.
package media

import (
	"context"
	"fmt"
	"os/exec"
)

// Extractor pulls the audio track out of a video file.
type Extractor struct {
	binary string
}

// NewExtractor probes PATH for ffmpeg. A nil error does not guarantee the
// binary works, only that it exists.
func NewExtractor() (*Extractor, error) {
	path, err := exec.LookPath("ffmpeg")
	if err != nil {
		return nil, fmt.Errorf("media: ffmpeg not found: %w", err)
	}
	return &Extractor{binary: path}, nil
}

// Available reports whether ffmpeg was found at construction time.
func (e *Extractor) Available() bool {
	return e != nil && e.binary != ""
}

// ExtractAudio writes the audio track of videoPath to audioPath as mp3.
func (e *Extractor) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	if !e.Available() {
		return fmt.Errorf("media: ffmpeg unavailable")
	}
	cmd := exec.CommandContext(ctx, e.binary,
		"-i", videoPath,
		"-q:a", "0",
		"-map", "a",
		audioPath,
		"-y",
	)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("media: ffmpeg failed: %w: %s", err, truncate(out, 512))
	}
	return nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
