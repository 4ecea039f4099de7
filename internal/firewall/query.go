//go:build linux

package firewall

import (
	"fmt"
	"net"

	"github.com/google/nftables"
	"github.com/google/nftables/expr"
)

// Rules returns a decoded view of the managed input chain, built from
// the kernel's typed representation.
func (s *Synchronizer) Rules() ([]RuleRecord, error) {
	table, chain, err := s.findInputChain()
	if err != nil {
		return nil, err
	}
	rules, err := s.conn.GetRules(table, chain)
	if err != nil {
		return nil, fmt.Errorf("reading input chain: %w", err)
	}

	records := make([]RuleRecord, 0, len(rules))
	for _, r := range rules {
		records = append(records, decodeRule(r))
	}
	return records, nil
}

// decodeRule classifies a rule by walking its expressions.
func decodeRule(r *nftables.Rule) RuleRecord {
	rec := RuleRecord{Handle: r.Handle, Kind: KindOther}

	var (
		srcIP, srcMask []byte
		sawSrcPayload  bool
		sawIfname      bool
		sawCt          bool
		verdict        *expr.Verdict
	)

	for _, e := range r.Exprs {
		switch v := e.(type) {
		case *expr.Log:
			rec.Kind = KindLog
			return rec
		case *expr.Meta:
			if v.Key == expr.MetaKeyIIFNAME {
				sawIfname = true
			}
		case *expr.Ct:
			if v.Key == expr.CtKeySTATE {
				sawCt = true
			}
		case *expr.Payload:
			// Source address load: IPv4 header offset 12
			if v.Base == expr.PayloadBaseNetworkHeader && v.Offset == 12 && v.Len == 4 {
				sawSrcPayload = true
			}
		case *expr.Bitwise:
			if sawSrcPayload && len(v.Mask) == 4 {
				srcMask = v.Mask
			}
		case *expr.Cmp:
			if sawSrcPayload && srcMask != nil && srcIP == nil && len(v.Data) == 4 {
				srcIP = v.Data
			}
		case *expr.Counter:
			rec.Packets = v.Packets
			rec.Bytes = v.Bytes
		case *expr.Verdict:
			verdict = v
		}
	}

	switch {
	case sawIfname && verdict != nil && verdict.Kind == expr.VerdictAccept:
		rec.Kind = KindLoopback
	case sawCt && verdict != nil && verdict.Kind == expr.VerdictAccept:
		rec.Kind = KindEstablished
	case sawSrcPayload && srcIP != nil && verdict != nil && verdict.Kind == expr.VerdictAccept:
		rec.Kind = KindAllow
		ones, _ := net.IPMask(srcMask).Size()
		rec.CIDR = fmt.Sprintf("%s/%d", net.IP(srcIP).String(), ones)
	case verdict != nil && verdict.Kind == expr.VerdictDrop:
		rec.Kind = KindDeny
	}
	return rec
}
