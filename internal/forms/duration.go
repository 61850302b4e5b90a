package forms

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-audio/wav"
	"github.com/tcolgate/mp3"
)

// ErrUnknownDuration is returned for formats whose length can't be read from the file.
var ErrUnknownDuration = errors.New("duration unavailable")

// AudioDuration reads the playing time of the file at path.
// MP3 frames are summed and WAV uses its RIFF header. AAC returns [ErrUnknownDuration].
func AudioDuration(path string) (time.Duration, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".mp3":
		return mp3Duration(bufio.NewReader(f))
	case ".wav":
		return wavDuration(f)
	default:
		return 0, ErrUnknownDuration
	}
}

func mp3Duration(r io.Reader) (time.Duration, error) {
	var (
		total   time.Duration
		frame   mp3.Frame
		skipped int
	)
	dec := mp3.NewDecoder(r)
	for {
		err := dec.Decode(&frame, &skipped)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("failed to read mp3 frame: %w", err)
		}
		total += frame.Duration()
	}
	if total == 0 {
		return 0, fmt.Errorf("%w: no mp3 frames", ErrUnknownDuration)
	}
	return total, nil
}

func wavDuration(r io.ReadSeeker) (time.Duration, error) {
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		return 0, fmt.Errorf("%w: invalid wav header", ErrUnknownDuration)
	}
	return dec.Duration()
}
