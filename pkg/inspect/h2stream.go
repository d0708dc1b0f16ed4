package inspect

import (
	"fmt"
	"io"

	"golang.org/x/net/http2"
)

// H2StreamReader and H2StreamWriter present one HTTP/2 stream's DATA
// frames as a plain io.Reader/io.Writer, the wrapping spec §4.4 step 2
// names for the h2/WebSocket-over-h2 intercept path ("wraps both halves
// as protocol-specific reader/writer (e.g., H2StreamReader/Writer for
// h2...)"). Grounded on the teacher's pkg/http2/frames.go FrameHandler,
// which wraps an http2.Framer the same way; here only the DATA-frame
// read/write half of that idiom is needed, since the bridge relays
// payload bytes rather than full request/response semantics.
//
// Bridge.Dispatch does not reach for these on the Intercept/Bypass path:
// that path is a byte-exact pass-through of the whole connection
// (SETTINGS/WINDOW_UPDATE/PING/GOAWAY included, not just one stream's
// DATA), and DATA-only framing would silently drop every other h2 frame
// type crossing the wire. A type that speaks one stream's DATA frames is
// for a caller that already owns h2 stream-multiplexing (e.g. a custom
// AuditHandle detouring one stream's body to an external inspector,
// reconstructing the rest of the connection itself) — no such caller
// exists yet in this tree, which is why these are currently exercised
// only by their own round-trip test.
type H2StreamReader struct {
	framer   *http2.Framer
	streamID uint32
	buf      []byte
	eof      bool
}

// NewH2StreamReader wraps framer to read DATA frames belonging to streamID.
func NewH2StreamReader(framer *http2.Framer, streamID uint32) *H2StreamReader {
	return &H2StreamReader{framer: framer, streamID: streamID}
}

func (r *H2StreamReader) Read(p []byte) (int, error) {
	for len(r.buf) == 0 {
		if r.eof {
			return 0, io.EOF
		}
		frame, err := r.framer.ReadFrame()
		if err != nil {
			return 0, err
		}
		data, ok := frame.(*http2.DataFrame)
		if !ok || data.Header().StreamID != r.streamID {
			continue
		}
		r.buf = append(r.buf[:0], data.Data()...)
		if data.StreamEnded() {
			r.eof = true
		}
	}
	n := copy(p, r.buf)
	r.buf = r.buf[n:]
	return n, nil
}

// H2StreamWriter writes DATA frames for one HTTP/2 stream.
type H2StreamWriter struct {
	framer   *http2.Framer
	streamID uint32
}

// NewH2StreamWriter wraps framer to write DATA frames for streamID.
func NewH2StreamWriter(framer *http2.Framer, streamID uint32) *H2StreamWriter {
	return &H2StreamWriter{framer: framer, streamID: streamID}
}

func (w *H2StreamWriter) Write(p []byte) (int, error) {
	if err := w.framer.WriteData(w.streamID, false, p); err != nil {
		return 0, fmt.Errorf("write h2 data frame: %w", err)
	}
	return len(p), nil
}

// Close signals the end of this stream's DATA by writing a zero-length
// END_STREAM frame.
func (w *H2StreamWriter) Close() error {
	return w.framer.WriteData(w.streamID, true, nil)
}
