//go:build linux

package firewall

import (
	"github.com/google/nftables/binaryutil"
	"github.com/google/nftables/expr"
	"golang.org/x/sys/unix"

	"grimm.is/palisade/internal/allowlist"
)

// pad null-pads an interface name to the 16 bytes the kernel expects.
func pad(s string) []byte {
	b := make([]byte, 16)
	copy(b, s)
	return b
}

// loopbackExprs accepts all traffic arriving on the loopback interface.
func loopbackExprs() []expr.Any {
	return []expr.Any{
		&expr.Meta{Key: expr.MetaKeyIIFNAME, Register: 1},
		&expr.Cmp{
			Op:       expr.CmpOpEq,
			Register: 1,
			Data:     pad("lo"),
		},
		&expr.Counter{},
		&expr.Verdict{Kind: expr.VerdictAccept},
	}
}

// establishedExprs accepts packets belonging to established or related
// connections so outbound sessions keep their return path.
func establishedExprs() []expr.Any {
	return []expr.Any{
		&expr.Ct{Key: expr.CtKeySTATE, Register: 1},
		&expr.Bitwise{
			SourceRegister: 1,
			DestRegister:   1,
			Len:            4,
			Mask:           binaryutil.NativeEndian.PutUint32(expr.CtStateBitESTABLISHED | expr.CtStateBitRELATED),
			Xor:            binaryutil.NativeEndian.PutUint32(0),
		},
		&expr.Cmp{
			Op:       expr.CmpOpNeq,
			Register: 1,
			Data:     binaryutil.NativeEndian.PutUint32(0),
		},
		&expr.Counter{},
		&expr.Verdict{Kind: expr.VerdictAccept},
	}
}

// allowExprs accepts IPv4 traffic whose source address falls inside
// the given block.
func allowExprs(b allowlist.Block) []expr.Any {
	return []expr.Any{
		// Load source IP
		&expr.Payload{
			DestRegister: 1,
			Base:         expr.PayloadBaseNetworkHeader,
			Offset:       12, // Source IP offset
			Len:          4,
		},
		// Apply network mask
		&expr.Bitwise{
			SourceRegister: 1,
			DestRegister:   1,
			Len:            4,
			Mask:           b.Mask(),
			Xor:            []byte{0, 0, 0, 0},
		},
		// Compare to network address
		&expr.Cmp{
			Op:       expr.CmpOpEq,
			Register: 1,
			Data:     b.IP.To4(),
		},
		&expr.Counter{},
		&expr.Verdict{Kind: expr.VerdictAccept},
	}
}

// denyExprs counts and drops everything the preceding rules did not accept.
func denyExprs() []expr.Any {
	return []expr.Any{
		&expr.Counter{},
		&expr.Verdict{Kind: expr.VerdictDrop},
	}
}

// logExprs emits a rate-limited kernel log line for packets about to be
// dropped. There is no verdict so evaluation continues to the deny rule.
func logExprs(prefix string) []expr.Any {
	return []expr.Any{
		&expr.Limit{
			Type:  expr.LimitTypePkts,
			Rate:  LogRatePerMinute,
			Unit:  expr.LimitTimeMinute,
			Burst: LogBurst,
		},
		&expr.Counter{},
		&expr.Log{
			Key:  1 << unix.NFTA_LOG_PREFIX,
			Data: []byte(prefix),
		},
	}
}
