package tlsrecord

import (
	"io"

	"github.com/outpost-proxy/dpicore/pkg/taskerr"
)

// ExtractSNI reads TLS records from r, coalescing a fragmented ClientHello
// across records and reads, until the server_name extension can be decoded
// or a definitive protocol error occurs. This is the accept-time SNI sniff
// that runs ahead of policy evaluation (spec §4.1 step 1, §4.4 step 1).
//
// A nil error with an empty ServerName means the ClientHello parsed
// correctly but carried no server_name extension at all.
func ExtractSNI(r io.Reader, maxClientHelloSize uint32) (ServerName, error) {
	buf := make([]byte, 0, 4096)
	readBuf := make([]byte, 4096)
	coalescer := NewHandshakeCoalescer(maxClientHelloSize)
	offset := 0

	for {
		rec, err := Parse(buf[offset:])
		if err != nil {
			if !IsNeedMoreData(err) {
				return "", taskerr.NewInvalidClientProtocol(err.Error())
			}
			n, rerr := r.Read(readBuf)
			if n > 0 {
				buf = append(buf, readBuf[:n]...)
			}
			if rerr != nil {
				if rerr == io.EOF {
					return "", taskerr.NewClosedByClient()
				}
				return "", taskerr.NewClientTCPReadFailed(rerr)
			}
			continue
		}

		msg, cerr := rec.ConsumeHandshake(coalescer)
		if cerr != nil {
			return "", taskerr.NewInvalidClientProtocol(cerr.Error())
		}
		offset += rec.EncodedLen()

		var ch *ClientHello
		switch {
		case msg != nil:
			ch, err = msg.ParseClientHello()
		case !rec.ConsumeDone():
			return "", taskerr.NewInvalidClientProtocol("partial fragmented tls client hello request")
		default:
			ch, err = coalescer.ParseClientHello()
		}
		if err != nil {
			return "", taskerr.NewInvalidClientProtocol(err.Error())
		}
		if ch == nil {
			continue // handshake still incomplete, read more records
		}

		name, present, serr := ch.SNI()
		if serr != nil {
			return "", taskerr.NewInvalidClientProtocol(serr.Error())
		}
		if !present {
			return "", nil
		}
		return name, nil
	}
}
