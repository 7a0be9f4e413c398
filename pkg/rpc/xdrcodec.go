package rpc

import (
	"bytes"
	"fmt"

	xdr "github.com/rasky/go-xdr/xdr2"
)

// EncodeBody XDR-marshals v, the argument or response struct for one op.
func EncodeBody(v any) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, v); err != nil {
		return nil, fmt.Errorf("xdr marshal %T: %w", v, err)
	}
	return buf.Bytes(), nil
}

// DecodeBody XDR-unmarshals body into v, which must be a pointer.
func DecodeBody(body []byte, v any) error {
	if _, err := xdr.Unmarshal(bytes.NewReader(body), v); err != nil {
		return fmt.Errorf("xdr unmarshal %T: %w", v, err)
	}
	return nil
}
