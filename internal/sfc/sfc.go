// Package sfc holds the IEC 61883-6 Sample Frequency Code table: the seven
// rates an AMDTP stream may run at, their wire code, and the fixed
// syt_interval each one carries.
package sfc

import "fmt"

// Code is a 3-bit Sample Frequency Code as carried in the FDF field of
// CIP header word 1.
type Code uint8

const (
	Code32000 Code = iota
	Code44100
	Code48000
	Code88200
	Code96000
	Code176400
	Code192000
)

// entry describes one row of the fixed rate table.
type entry struct {
	rate        uint32
	sytInterval uint32
	base44100   bool
}

var table = map[Code]entry{
	Code32000:  {32000, 8, false},
	Code44100:  {44100, 8, true},
	Code48000:  {48000, 8, false},
	Code88200:  {88200, 16, true},
	Code96000:  {96000, 16, false},
	Code176400: {176400, 32, true},
	Code192000: {192000, 32, false},
}

// FromRate maps a rate in Hz to its Code. Returns false if the rate is not
// one of the seven supported rates.
func FromRate(rate uint32) (Code, bool) {
	for c, e := range table {
		if e.rate == rate {
			return c, true
		}
	}
	return 0, false
}

// Rate returns the sample rate in Hz for c.
func (c Code) Rate() uint32 { return table[c].rate }

// SytInterval returns the number of audio frames between SYT-carrying
// data-block boundaries for c: 8 for the 32k/44.1k/48k family, 16 for
// 88.2k/96k, 32 for 176.4k/192k.
func (c Code) SytInterval() uint32 { return table[c].sytInterval }

// IsBase44100 reports whether c belongs to the 44.1kHz-derived family
// (44.1/88.2/176.4 kHz), which uses the non-integer blocks-per-packet and
// SYT phase-sequence generators instead of a fixed per-cycle increment.
func (c Code) IsBase44100() bool { return table[c].base44100 }

// Valid reports whether c is one of the seven defined codes.
func (c Code) Valid() bool {
	_, ok := table[c]
	return ok
}

func (c Code) String() string {
	if e, ok := table[c]; ok {
		return fmt.Sprintf("%dHz", e.rate)
	}
	return fmt.Sprintf("sfc(%d)", uint8(c))
}

// SupportedRates is the fixed rates table from spec §6: {32000, 44100,
// 48000, 88200, 96000, 176400, 192000}.
func SupportedRates() []uint32 {
	return []uint32{32000, 44100, 48000, 88200, 96000, 176400, 192000}
}
