package cip

// SampleFormat is the host-side PCM sample width carried over AM824.
type SampleFormat int

const (
	FormatS16 SampleFormat = iota
	FormatS32
)

// SilencePCMQuadlet is the AM824 quadlet emitted for a PCM channel with no
// attached substream: label 0x40, zero sample.
const SilencePCMQuadlet uint32 = uint32(PCMLabel) << 24

// PackPCMSample packs one signed PCM sample into an AM824 quadlet: 24-bit
// PCM in the low 24 bits with label 0x40 in the top byte. A signed 16-bit
// sample is shifted left 8 (placing it in the upper 16 bits of the 24-bit
// field); a signed 32-bit sample is shifted right 8 (taking its top 24
// bits) — spec §4.2.
func PackPCMSample(sample int32, format SampleFormat) uint32 {
	var v int32
	switch format {
	case FormatS16:
		v = sample << 8
	case FormatS32:
		v = sample >> 8
	}
	return (uint32(v) & 0x00ffffff) | (uint32(PCMLabel) << 24)
}

// UnpackPCMSample strips the AM824 label and sign-extends the remaining
// 24-bit sample to a 32-bit signed value, per spec §4.2 "Unpack AM824 to
// 32-bit signed PCM by be32(quadlet) << 8".
func UnpackPCMSample(quadlet uint32) int32 {
	return int32(quadlet << 8)
}
