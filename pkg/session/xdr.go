package session

import (
	"bytes"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// EventResp is the body of a server-pushed EVENT message. Duplicated from
// pkg/rpc's identical type (rather than imported) because pkg/rpc sits
// above pkg/session in the component ordering and importing it here would
// invert that dependency.
type EventResp struct {
	FH   uint64
	Mask uint32
}

func decodeXDR(body []byte, v any) error {
	_, err := xdr.Unmarshal(bytes.NewReader(body), v)
	return err
}
