package monitor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePrefix = "PALISADE-DROP: "

func TestParseLine_FullKernelLine(t *testing.T) {
	line := "Aug 30 10:15:42 host kernel: [12345.678] PALISADE-DROP: IN=eth0 OUT= " +
		"MAC=aa:bb:cc:dd:ee:ff SRC=203.0.113.50 DST=192.0.2.1 LEN=60 TOS=0x00 " +
		"PREC=0x00 TTL=48 ID=54321 DF PROTO=TCP SPT=44211 DPT=443 WINDOW=64240 SYN"

	now := time.Date(2026, 8, 30, 10, 15, 42, 0, time.UTC)
	ev, matched, ok := parseLine(line, samplePrefix, now)
	require.True(t, matched)
	require.True(t, ok)

	assert.Equal(t, "203.0.113.50", ev.SrcIP)
	assert.Equal(t, "TCP", ev.Protocol)
	assert.Equal(t, "44211", ev.SrcPort)
	assert.Equal(t, "443", ev.DstPort)
	assert.Equal(t, "HTTPS", ev.Service)
	assert.Equal(t, now, ev.Timestamp)
}

func TestParseLine_NoPrefix(t *testing.T) {
	line := "Aug 30 10:15:42 host kernel: martian source 255.255.255.255"
	_, matched, _ := parseLine(line, samplePrefix, time.Now())
	assert.False(t, matched)
}

func TestParseLine_MissingSrcDiscarded(t *testing.T) {
	line := "kernel: PALISADE-DROP: IN=eth0 OUT= PROTO=UDP DPT=53"
	_, matched, ok := parseLine(line, samplePrefix, time.Now())
	assert.True(t, matched)
	assert.False(t, ok)
}

func TestParseLine_UDPWithoutPorts(t *testing.T) {
	line := "kernel: PALISADE-DROP: IN=eth0 SRC=198.51.100.9 DST=192.0.2.1 PROTO=ICMP"
	ev, matched, ok := parseLine(line, samplePrefix, time.Now())
	require.True(t, matched)
	require.True(t, ok)
	assert.Equal(t, "198.51.100.9", ev.SrcIP)
	assert.Equal(t, "ICMP", ev.Protocol)
	assert.Empty(t, ev.DstPort)
	assert.Equal(t, UnknownService, ev.Service)
}

func TestEventLine_Format(t *testing.T) {
	ev := BlockedEvent{
		Timestamp: time.Date(2026, 8, 30, 10, 0, 0, 0, time.UTC),
		SrcIP:     "203.0.113.50",
		Protocol:  "TCP",
		SrcPort:   "44211",
		DstPort:   "443",
		Service:   "HTTPS",
	}
	assert.Equal(t, "2026-08-30T10:00:00Z|203.0.113.50|TCP|44211|443|HTTPS\n", ev.Line())
}

func TestServiceName(t *testing.T) {
	assert.Equal(t, "HTTPS", ServiceName("443"))
	assert.Equal(t, "SSH", ServiceName("22"))
	assert.Equal(t, UnknownService, ServiceName("9999"))
	assert.Equal(t, UnknownService, ServiceName(""))
	assert.Equal(t, UnknownService, ServiceName("not-a-port"))
}
