//go:build ffmpeg

//////////////////////////////////////////////////////////////////////////////
//
// libavcodec / libswscale backend
//
// Copyright 2019 Lanikai Labs LLC. All rights reserved.
//
//////////////////////////////////////////////////////////////////////////////

package decoder

// #cgo pkg-config: libavcodec libavutil libswscale
// #include <errno.h>
// #include <libavcodec/avcodec.h>
// #include <libavutil/frame.h>
// #include <libswscale/swscale.h>
//
// static int averror_eagain(void) { return AVERROR(EAGAIN); }
// static int averror_eof(void) { return AVERROR_EOF; }
//
// static int scale_to_i420(struct SwsContext *sws, const AVFrame *f, uint8_t *dst, int w, int h) {
//     int cw = (w + 1) / 2;
//     int ch = (h + 1) / 2;
//     uint8_t *planes[4] = { dst, dst + w*h, dst + w*h + cw*ch, NULL };
//     int strides[4] = { w, cw, cw, 0 };
//     return sws_scale(sws, (const uint8_t * const *)f->data, f->linesize, 0, h, planes, strides);
// }
import "C"

import (
	"io"
	"unsafe"

	errors "golang.org/x/xerrors"
)

// FFmpegAvailable reports whether the libavcodec backend was compiled in.
func FFmpegAvailable() bool {
	return true
}

type ffmpegCodec struct {
	ctx   *C.AVCodecContext
	frame *C.AVFrame
	pkt   *C.AVPacket
}

// NewFFmpegCodec opens a libavcodec H.264 decoder.
func NewFFmpegCodec() (Codec, error) {
	codec := C.avcodec_find_decoder(C.AV_CODEC_ID_H264)
	if codec == nil {
		return nil, errors.Errorf("no H.264 decoder in libavcodec: %w", ErrCodecUnavailable)
	}

	c := &ffmpegCodec{}
	c.ctx = C.avcodec_alloc_context3(codec)
	if c.ctx == nil {
		return nil, errors.Errorf("avcodec_alloc_context3 failed: %w", ErrCodecUnavailable)
	}
	c.ctx.flags |= C.AV_CODEC_FLAG_LOW_DELAY
	if ret := C.avcodec_open2(c.ctx, codec, nil); ret < 0 {
		c.Close()
		return nil, errors.Errorf("avcodec_open2: %v: %w", avError(ret), ErrCodecUnavailable)
	}
	c.frame = C.av_frame_alloc()
	c.pkt = C.av_packet_alloc()
	if c.frame == nil || c.pkt == nil {
		c.Close()
		return nil, errors.Errorf("frame allocation failed: %w", ErrCodecUnavailable)
	}
	return c, nil
}

func (c *ffmpegCodec) Send(unit []byte) error {
	if len(unit) == 0 {
		return errors.New("empty access unit")
	}
	C.av_packet_unref(c.pkt)
	if ret := C.av_new_packet(c.pkt, C.int(len(unit))); ret < 0 {
		return avError(ret)
	}
	copy(unsafe.Slice((*byte)(unsafe.Pointer(c.pkt.data)), len(unit)), unit)

	ret := C.avcodec_send_packet(c.ctx, c.pkt)
	C.av_packet_unref(c.pkt)
	if ret < 0 {
		return avError(ret)
	}
	return nil
}

func (c *ffmpegCodec) Receive() (*Frame, error) {
	C.av_frame_unref(c.frame)
	ret := C.avcodec_receive_frame(c.ctx, c.frame)
	switch {
	case ret == C.averror_eagain():
		return nil, ErrAgain
	case ret == C.averror_eof():
		return nil, io.EOF
	case ret < 0:
		return nil, avError(ret)
	}

	f := c.frame
	out := &Frame{
		Width:  int(f.width),
		Height: int(f.height),
		Format: PixelFormat(f.format),
		native: unsafe.Pointer(f),
	}
	_, ch := chromaSize(out.Width, out.Height)
	for i := 0; i < 3; i++ {
		stride := int(f.linesize[i])
		out.Strides[i] = stride
		if f.data[i] == nil || stride <= 0 {
			continue
		}
		rows := out.Height
		if i > 0 {
			rows = ch
		}
		out.Planes[i] = unsafe.Slice((*byte)(unsafe.Pointer(f.data[i])), stride*rows)
	}
	return out, nil
}

func (c *ffmpegCodec) Flush() {
	if c.ctx != nil {
		C.avcodec_flush_buffers(c.ctx)
	}
}

func (c *ffmpegCodec) Close() error {
	if c.pkt != nil {
		C.av_packet_free(&c.pkt)
	}
	if c.frame != nil {
		C.av_frame_free(&c.frame)
	}
	if c.ctx != nil {
		C.avcodec_free_context(&c.ctx)
	}
	return nil
}

// NewConverter implements ConverterProvider with a libswscale context.
func (c *ffmpegCodec) NewConverter(width, height int, format PixelFormat) (Converter, error) {
	sws := C.sws_getContext(
		C.int(width), C.int(height), C.enum_AVPixelFormat(format),
		C.int(width), C.int(height), C.enum_AVPixelFormat(C.AV_PIX_FMT_YUV420P),
		C.SWS_BILINEAR, nil, nil, nil)
	if sws == nil {
		return nil, errors.Errorf("sws_getContext %dx%d format %d: %w", width, height, format, ErrConvert)
	}
	return &swsConverter{sws: sws, width: width, height: height}, nil
}

type swsConverter struct {
	sws    *C.struct_SwsContext
	width  int
	height int
}

func (c *swsConverter) Convert(dst *Picture, src *Frame) error {
	if src.native == nil {
		return errors.Errorf("frame has no libavcodec handle: %w", ErrConvert)
	}
	if src.Width != c.width || src.Height != c.height || len(dst.Data) != PictureSize(c.width, c.height) {
		return errors.Errorf("size mismatch: %w", ErrConvert)
	}
	ret := C.scale_to_i420(c.sws, (*C.AVFrame)(src.native),
		(*C.uint8_t)(unsafe.Pointer(&dst.Data[0])), C.int(c.width), C.int(c.height))
	if ret <= 0 {
		return errors.Errorf("sws_scale returned %d: %w", int(ret), ErrConvert)
	}
	return nil
}

func (c *swsConverter) Close() error {
	if c.sws != nil {
		C.sws_freeContext(c.sws)
		c.sws = nil
	}
	return nil
}

func avError(code C.int) error {
	buf := make([]byte, C.AV_ERROR_MAX_STRING_SIZE)
	C.av_strerror(code, (*C.char)(unsafe.Pointer(&buf[0])), C.size_t(len(buf)))
	return errors.New(C.GoString((*C.char)(unsafe.Pointer(&buf[0]))))
}
