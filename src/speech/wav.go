package speech

import (
	"bytes"
	"encoding/binary"
	"mime"
	"strconv"
	"strings"
)

const wavHeaderSize = 44

// PCMFormat describes raw little-endian PCM samples.
type PCMFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultTTSFormat is what Gemini speech models emit.
var DefaultTTSFormat = PCMFormat{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

// MIME returns the audio/L16 type for f.
func (f PCMFormat) MIME() string {
	return "audio/L16;codec=pcm;rate=" + strconv.Itoa(f.SampleRate)
}

// ParsePCMMIME recognizes raw PCM types such as "audio/L16;codec=pcm;rate=24000".
func ParsePCMMIME(m string) (PCMFormat, bool) {
	mt, params, err := mime.ParseMediaType(m)
	if err != nil {
		return PCMFormat{}, false
	}
	switch mt {
	case "audio/l16", "audio/pcm", "audio/x-pcm":
	default:
		return PCMFormat{}, false
	}
	f := DefaultTTSFormat
	if r, err := strconv.Atoi(params["rate"]); err == nil && r > 0 {
		f.SampleRate = r
	}
	if c, err := strconv.Atoi(params["channels"]); err == nil && c > 0 {
		f.Channels = c
	}
	return f, true
}

// WAV prefixes pcm with a canonical RIFF/WAVE header.
func WAV(pcm []byte, f PCMFormat) []byte {
	if f.BitsPerSample == 0 {
		f.BitsPerSample = 16
	}
	if f.Channels == 0 {
		f.Channels = 1
	}
	blockAlign := f.Channels * f.BitsPerSample / 8

	var b bytes.Buffer
	b.Grow(wavHeaderSize + len(pcm))
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+len(pcm)))
	b.WriteString("WAVE")

	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1))
	_ = binary.Write(&b, binary.LittleEndian, uint16(f.Channels))
	_ = binary.Write(&b, binary.LittleEndian, uint32(f.SampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(f.SampleRate*blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(&b, binary.LittleEndian, uint16(f.BitsPerSample))

	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(len(pcm)))
	b.Write(pcm)
	return b.Bytes()
}

// Playable converts raw PCM audio into WAV; other encodings are returned as is.
func Playable(a Audio) Audio {
	if strings.HasPrefix(string(a.Data), "RIFF") {
		return a
	}
	f, ok := ParsePCMMIME(a.MIME)
	if !ok {
		return a
	}
	return Audio{MIME: "audio/wav", Data: WAV(a.Data, f)}
}
