// Package wire defines the on-the-wire constants and fixed-layout structures
// of the CLD packet protocol: magic strings, op codes, result codes, and the
// packet header/footer shape. None of this is XDR — the header and footer
// are a hand-rolled binary layout, signed with HMAC-SHA1, matching the
// cld_msg_hdr/cld_pkt_ftr layout of the original C client.
package wire

import "fmt"

// Magic constants identify the direction a packet travels.
const (
	MagicClient = "CLDv1cli"
	MagicServer = "CLDv1svr"
)

// MagicSize is the fixed length in bytes of a magic constant.
const MagicSize = 8

// SIDSize is the fixed length in bytes of a session identifier.
const SIDSize = 8

// MaxUserNameLen is the maximum length of a user name, not counting the
// terminating NUL the wire format reserves for it.
const MaxUserNameLen = 31

// MaxNameLen is the maximum length of a path name argument to OPEN/DEL.
const MaxNameLen = 256

// FooterSize is the fixed size of the packet footer: an 8-byte little-endian
// sequence ID followed by a 20-byte HMAC-SHA1 digest.
const FooterSize = 8 + 20

// Order marks a packet's position within a fragmented message.
type Order uint8

const (
	OrderFirst Order = iota
	OrderMid
	OrderLast
	OrderFirstLast
)

func (o Order) String() string {
	switch o {
	case OrderFirst:
		return "FIRST"
	case OrderMid:
		return "MID"
	case OrderLast:
		return "LAST"
	case OrderFirstLast:
		return "FIRST_LAST"
	default:
		return fmt.Sprintf("Order(%d)", uint8(o))
	}
}

// Bearing reports whether this position carries a FIRST-bearing message
// header field (XID + op), which is true for FIRST and FIRST_LAST.
func (o Order) Bearing() bool {
	return o == OrderFirst || o == OrderFirstLast
}

// Terminal reports whether this position completes the message, which is
// true for LAST and FIRST_LAST.
func (o Order) Terminal() bool {
	return o == OrderLast || o == OrderFirstLast
}

// Op identifies an RPC operation or control message carried by a packet.
// Values and ordering follow the historical cld_msg_ops enumeration, with
// GET and GET-META kept as distinct op codes per the original header.
type Op uint8

const (
	OpNop Op = iota
	OpNewSess
	OpOpen
	OpGetMeta
	OpGet
	OpData
	OpPut
	OpClose
	OpDel
	OpLock
	OpUnlock
	OpTryLock
	OpAck
	OpPing
	OpEndSess
	OpNotMaster
	OpEvent
	OpAckFrag
)

var opNames = map[Op]string{
	OpNop:       "NOP",
	OpNewSess:   "NEW-SESS",
	OpOpen:      "OPEN",
	OpGetMeta:   "GET-META",
	OpGet:       "GET",
	OpData:      "DATA",
	OpPut:       "PUT",
	OpClose:     "CLOSE",
	OpDel:       "DEL",
	OpLock:      "LOCK",
	OpUnlock:    "UNLOCK",
	OpTryLock:   "TRYLOCK",
	OpAck:       "ACK",
	OpPing:      "PING",
	OpEndSess:   "END-SESS",
	OpNotMaster: "NOT-MASTER",
	OpEvent:     "EVENT",
	OpAckFrag:   "ACK-FRAG",
}

func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(op))
}

// IsControl reports whether op is a control message that the RPC pipeline
// dispatches specially instead of matching against an outbound message's
// result payload.
func (op Op) IsControl() bool {
	switch op {
	case OpAck, OpPing, OpNotMaster, OpEvent, OpAckFrag:
		return true
	default:
		return false
	}
}

// ResultCode is a result/error code returned by the server, or synthesised
// locally (Timeout never appears on the wire).
type ResultCode uint32

const (
	ResultOK ResultCode = iota
	ResultClientExists
	ResultClientInvalid
	ResultDBError
	ResultBadPacket
	ResultInodeInval
	ResultNameInval
	ResultOOM
	ResultFHInval
	ResultDataInval
	ResultLockInval
	ResultLockConflict
	ResultLockPending
	ResultModeInval
	ResultInodeExists
	ResultTimeout
)

var resultNames = map[ResultCode]string{
	ResultOK:            "OK",
	ResultClientExists:  "CLIENT_EXISTS",
	ResultClientInvalid: "CLIENT_INVALID",
	ResultDBError:       "DB_ERROR",
	ResultBadPacket:     "BAD_PACKET",
	ResultInodeInval:    "INODE_INVAL",
	ResultNameInval:     "NAME_INVAL",
	ResultOOM:           "OOM",
	ResultFHInval:       "FH_INVAL",
	ResultDataInval:     "DATA_INVAL",
	ResultLockInval:     "LOCK_INVAL",
	ResultLockConflict:  "LOCK_CONFLICT",
	ResultLockPending:   "LOCK_PENDING",
	ResultModeInval:     "MODE_INVAL",
	ResultInodeExists:   "INODE_EXISTS",
	ResultTimeout:       "TIMEOUT",
}

func (r ResultCode) String() string {
	if name, ok := resultNames[r]; ok {
		return name
	}
	return fmt.Sprintf("ResultCode(%d)", uint32(r))
}

// OpenMode is a bitmask of file-open flags supplied to OPEN.
type OpenMode uint32

const (
	OpenRead OpenMode = 1 << iota
	OpenWrite
	OpenLock
	OpenACL
	OpenCreate
	OpenExcl
	OpenDirectory
)

// DefaultMaxPayloadSize bounds a single PUT's data argument. The original
// engine validates cldc_put's data_len against CLD_MAX_PAYLOAD_SZ; this
// module ties that bound to the configured max_msg_size, since payload
// plus a small XDR envelope must still fit the reassembly buffer.
const DefaultMaxPayloadSize = DefaultMaxMsgSize - 256

// EventMask is a bitmask of conditions delivered by an EVENT message.
type EventMask uint32

const (
	EventUpdated EventMask = 1 << iota
	EventMasterFailover
	EventLocked
	// EventSessFailed is a local, synthetic event: it is never carried on
	// the wire, only delivered to the application's event callback when a
	// session transitions to EXPIRED.
	EventSessFailed
)

// LockFlags qualifies a LOCK/TRYLOCK request.
type LockFlags uint32

const (
	LockShared LockFlags = 1 << iota
)

// Defaults for the client's size/timing knobs. These are the fallback
// values pkg/config.ApplyDefaults installs; callers may override all of
// them.
const (
	DefaultMaxFragmentBody   = 1024
	DefaultMaxMsgSize        = 128 * 1024
	DefaultRetrySeconds      = 5
	DefaultMsgExpireSeconds  = 300
	DefaultSessExpireSeconds = 120
	DefaultMsgScanSeconds    = 60
	DefaultRememberedWindow  = 25
	DefaultHostRingCapacity  = 10
)

