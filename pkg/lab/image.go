package lab

import (
	"bytes"
	"context"
	"errors"
	"strconv"

	"k8s.io/klog/v2"
)

// ErrTruncatedImage is returned when the transfer stops before the JPEG end
// marker.
var ErrTruncatedImage = errors.New("image transfer stopped before the end marker")

var jpegEnd = []byte{0xFF, 0xD9}

type ImageOptions struct {
	MaxLength int    // packet size requested from the server
	Flow      bool   // server waits for NEXT after every packet
	Camera    string // FIX or PTZ
}

func imageCommand(code string, opts ImageOptions) string {
	cmd := code
	if opts.Flow {
		cmd += "FLOW=ON"
	}
	return cmd + "UDP=" + strconv.Itoa(opts.MaxLength) + "CAM=" + opts.Camera
}

// Image downloads one camera frame. The transfer ends with a packet shorter
// than MaxLength or, failing that, with a timeout after the JPEG end marker.
func (s *Session) Image(ctx context.Context, code string, opts ImageOptions) ([]byte, error) {
	if opts.MaxLength <= 0 {
		opts.MaxLength = 128
	}
	if opts.Camera == "" {
		opts.Camera = "FIX"
	}
	if err := s.request(imageCommand(code, opts)); err != nil {
		return nil, err
	}
	var image bytes.Buffer
	buf := make([]byte, opts.MaxLength)
	for {
		n, err := s.receive(ctx, buf)
		if errors.Is(err, errTimeout) {
			data := image.Bytes()
			if bytes.HasSuffix(data, jpegEnd) {
				klog.Info("Image download stopped by timeout")
				break
			}
			tail := data
			if len(tail) > 2 {
				tail = tail[len(tail)-2:]
			}
			klog.Warningf("Image download stopped by timeout, expected %X got %X", jpegEnd, tail)
			return nil, ErrTruncatedImage
		}
		if err != nil {
			return nil, err
		}
		klog.V(4).Infof("Received image packet of length %d", n)
		image.Write(buf[:n])
		if n < opts.MaxLength {
			break
		}
		if opts.Flow {
			if err := s.request("NEXT"); err != nil {
				return nil, err
			}
		}
	}
	klog.Infof("Image download finished, %d bytes", image.Len())
	return image.Bytes(), nil
}
