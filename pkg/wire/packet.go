package wire

// MsgInfo is the variable-shape tail of a packet header: the order marker,
// plus, for FIRST/FIRST_LAST packets only, the transaction ID and op code
// that identify the message as a whole.
type MsgInfo struct {
	Order Order
	XID   uint64 // valid only when Order.Bearing()
	Op    Op     // valid only when Order.Bearing()
}

// Header is the fixed-prefix portion of a packet, preceding the body
// fragment. Magic and SID are always present; User is only meaningful on
// the first packet of a NEW-SESS exchange but is carried on every packet
// (the header always contains a user-name string).
type Header struct {
	Magic [MagicSize]byte
	SID   uint64
	User  string
	Info  MsgInfo
}

// Footer is the fixed-size trailer of a packet: the per-packet sequence ID
// and the HMAC-SHA1 digest covering every preceding byte.
type Footer struct {
	SeqID  uint64
	Digest [20]byte
}

// ClientMagic returns the magic constant used on client-to-server packets.
func ClientMagic() [MagicSize]byte {
	var m [MagicSize]byte
	copy(m[:], MagicClient)
	return m
}

// ServerMagic returns the magic constant used on server-to-client packets.
func ServerMagic() [MagicSize]byte {
	var m [MagicSize]byte
	copy(m[:], MagicServer)
	return m
}
