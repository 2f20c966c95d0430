//go:build !ffmpeg

package decoder

// FFmpegAvailable reports whether the libavcodec backend was compiled in.
// Build with -tags ffmpeg to enable it.
func FFmpegAvailable() bool {
	return false
}

func NewFFmpegCodec() (Codec, error) {
	return nil, ErrCodecUnavailable
}
