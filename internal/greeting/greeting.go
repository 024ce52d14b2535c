package greeting

import (
	"fmt"
	"os"
)

// FrameSize is one 20ms frame of 8kHz 8-bit mu-law audio.
const FrameSize = 160

// ulaw silence byte
const silence = 0xFF

// Load reads a precomputed mu-law greeting asset and splits it into
// telephony frames, padding the tail with silence so every frame is full
// size.
func Load(path string) ([][]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, fmt.Errorf("greeting asset %s is empty", path)
	}
	return Frames(b), nil
}

// Frames slices raw mu-law audio into FrameSize chunks.
func Frames(b []byte) [][]byte {
	var out [][]byte
	for pos := 0; pos < len(b); pos += FrameSize {
		end := pos + FrameSize
		if end > len(b) {
			frame := make([]byte, FrameSize)
			copy(frame, b[pos:])
			for i := len(b) - pos; i < FrameSize; i++ {
				frame[i] = silence
			}
			out = append(out, frame)
			break
		}
		out = append(out, b[pos:end])
	}
	return out
}
