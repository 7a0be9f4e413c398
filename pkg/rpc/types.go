// Package rpc implements the RPC pipeline: issuing OPEN, CLOSE, DEL, PUT,
// GET/GET-META, LOCK, UNLOCK, TRYLOCK, NOP and decoding their responses in
// the completions it hands to pkg/session, which matches each response
// (and handles server-pushed EVENT and ACK-FRAG) by echoed transaction ID.
// Message bodies are XDR (RFC 4506); the packet header/footer is handled
// by pkg/codec.
package rpc

// OpenArgs is the body of an OPEN request.
type OpenArgs struct {
	Path   string
	Mode   uint32
	Events uint32
}

// CloseArgs is the body of a CLOSE request.
type CloseArgs struct {
	FH uint64
}

// DelArgs is the body of a DEL request.
type DelArgs struct {
	Path string
}

// PutArgs is the body of a PUT request.
type PutArgs struct {
	FH   uint64
	Data []byte
}

// GetArgs is the body of a GET or GET-META request.
type GetArgs struct {
	FH uint64
}

// LockArgs is the body of a LOCK, UNLOCK, or TRYLOCK request.
type LockArgs struct {
	FH    uint64
	Flags uint32
}

// GenericResponse is the body of every response that carries nothing but a
// result code: NEW-SESS, END-SESS, CLOSE, DEL, PUT, LOCK, UNLOCK, TRYLOCK,
// NOP.
type GenericResponse struct {
	Code uint32
}

// OpenResponse is the body of an OPEN response.
type OpenResponse struct {
	Code uint32
	FH   uint64
}

// GetResponse is the body of a GET or GET-META response. Data is absent
// (nil, and Size reflects only metadata) for GET-META.
type GetResponse struct {
	Code       uint32
	Inum       uint64
	InoLen     uint32
	Size       uint32
	Version    uint64
	TimeCreate uint64
	TimeModify uint64
	Flags      uint32
	Name       string
	Data       []byte
}

// EventResp is the body of a server-pushed EVENT message.
type EventResp struct {
	FH   uint64
	Mask uint32
}

// AckFragResp is the body of a server-pushed ACK-FRAG message, naming the
// outbound sequence ID of the fragment being acknowledged.
type AckFragResp struct {
	SeqID uint64
}
