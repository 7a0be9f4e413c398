// Package codec implements the framed-packet encoder/decoder and HMAC-SHA1
// signing of the CLD wire protocol. A packet is header‖body_fragment‖footer;
// everything but the RPC body (which pkg/rpc encodes separately via XDR) is
// a fixed binary layout handled here with encoding/binary.
package codec

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/binary"
	"fmt"

	"github.com/cldc-go/cldc/pkg/errcode"
	"github.com/cldc-go/cldc/pkg/wire"
)

// Packet is a fully decoded wire packet: header fields plus the body
// fragment slice (which aliases the input buffer — callers that retain it
// past the decode call must copy).
type Packet struct {
	Header wire.Header
	Body   []byte
	Footer wire.Footer
}

// Encode serialises hdr and body into out, appends the footer (seqid +
// HMAC-SHA1 over everything preceding the digest), and returns the total
// length written.
func Encode(hdr wire.Header, body []byte, seqID uint64, key []byte, out *bytes.Buffer) (int, error) {
	start := out.Len()

	if err := writeHeader(out, hdr); err != nil {
		return 0, fmt.Errorf("encode header: %w", err)
	}
	if _, err := out.Write(body); err != nil {
		return 0, fmt.Errorf("encode body: %w", err)
	}
	if err := binary.Write(out, binary.LittleEndian, seqID); err != nil {
		return 0, fmt.Errorf("encode seqid: %w", err)
	}

	signed := out.Bytes()[start:]
	digest := Sign(key, signed)
	if _, err := out.Write(digest[:]); err != nil {
		return 0, fmt.Errorf("encode digest: %w", err)
	}

	return out.Len() - start, nil
}

// Decode parses buf into a Packet, verifying the HMAC with key. The
// returned Packet.Body aliases buf.
func Decode(buf []byte, key []byte) (*Packet, error) {
	if len(buf) < wire.MagicSize+8+wire.FooterSize {
		return nil, errcode.Protocol("packet too short", nil)
	}

	r := bytes.NewReader(buf)
	hdr, err := readHeader(r)
	if err != nil {
		return nil, errcode.Protocol("malformed header", err)
	}

	if string(hdr.Magic[:]) != wire.MagicClient && string(hdr.Magic[:]) != wire.MagicServer {
		return nil, errcode.Protocol("bad magic", nil)
	}

	footerOff := len(buf) - wire.FooterSize
	if footerOff < 0 {
		return nil, errcode.Protocol("packet too short for footer", nil)
	}
	headerLen := len(buf) - int(r.Len()) // bytes consumed by readHeader
	if headerLen > footerOff {
		return nil, errcode.Protocol("header overruns footer", nil)
	}

	body := buf[headerLen:footerOff]
	seqID := binary.LittleEndian.Uint64(buf[footerOff : footerOff+8])
	var digest [20]byte
	copy(digest[:], buf[footerOff+8:])

	if !Verify(key, buf[:footerOff+8], digest) {
		return nil, errcode.Protocol("HMAC verification failed", nil)
	}

	return &Packet{
		Header: *hdr,
		Body:   body,
		Footer: wire.Footer{SeqID: seqID, Digest: digest},
	}, nil
}

// Sign computes the HMAC-SHA1 of data keyed by key.
func Sign(key, data []byte) [20]byte {
	mac := hmac.New(sha1.New, key)
	mac.Write(data)
	var out [20]byte
	copy(out[:], mac.Sum(nil))
	return out
}

// Verify reports whether digest is the correct HMAC-SHA1 of data under key,
// using a constant-time comparison.
func Verify(key, data []byte, digest [20]byte) bool {
	want := Sign(key, data)
	return hmac.Equal(want[:], digest[:])
}

func writeHeader(out *bytes.Buffer, hdr wire.Header) error {
	if _, err := out.Write(hdr.Magic[:]); err != nil {
		return err
	}
	if err := binary.Write(out, binary.LittleEndian, hdr.SID); err != nil {
		return err
	}
	if len(hdr.User) > wire.MaxUserNameLen {
		return fmt.Errorf("user name %q exceeds %d bytes", hdr.User, wire.MaxUserNameLen)
	}
	if err := out.WriteByte(byte(len(hdr.User))); err != nil {
		return err
	}
	if _, err := out.WriteString(hdr.User); err != nil {
		return err
	}
	if err := out.WriteByte(byte(hdr.Info.Order)); err != nil {
		return err
	}
	if hdr.Info.Order.Bearing() {
		if err := binary.Write(out, binary.LittleEndian, hdr.Info.XID); err != nil {
			return err
		}
		if err := out.WriteByte(byte(hdr.Info.Op)); err != nil {
			return err
		}
	}
	return nil
}

func readHeader(r *bytes.Reader) (*wire.Header, error) {
	var hdr wire.Header
	if _, err := r.Read(hdr.Magic[:]); err != nil {
		return nil, err
	}
	if err := binary.Read(r, binary.LittleEndian, &hdr.SID); err != nil {
		return nil, err
	}
	nameLen, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	if int(nameLen) > wire.MaxUserNameLen {
		return nil, fmt.Errorf("user name length %d exceeds %d", nameLen, wire.MaxUserNameLen)
	}
	name := make([]byte, nameLen)
	if _, err := r.Read(name); err != nil {
		return nil, err
	}
	hdr.User = string(name)

	order, err := r.ReadByte()
	if err != nil {
		return nil, err
	}
	hdr.Info.Order = wire.Order(order)
	if hdr.Info.Order.Bearing() {
		if err := binary.Read(r, binary.LittleEndian, &hdr.Info.XID); err != nil {
			return nil, err
		}
		op, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		hdr.Info.Op = wire.Op(op)
	}
	return &hdr, nil
}
