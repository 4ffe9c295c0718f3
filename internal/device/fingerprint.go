package device

import (
	"strconv"
	"strings"
)

const fingerprintDelim = "|"

// Fingerprint derives a semi-stable device token from a profile. It is a pure
// function: identical profiles always hash to the same hex string. The hash
// space is 32 bits, so collisions are possible and acceptable; the token
// discourages duplicate submissions rather than proving identity.
func Fingerprint(p Profile) string {
	parts := []string{
		p.UserAgent,
		p.Language,
		strconv.Itoa(p.ScreenWidth) + "x" + strconv.Itoa(p.ScreenHeight),
		strconv.Itoa(p.TimezoneOffsetMin),
		p.CanvasData,
		orUnknown(p.HardwareConcurrency),
		orUnknown(p.DeviceMemoryGB),
	}
	return hash32(strings.Join(parts, fingerprintDelim))
}

// hash32 is a multiply-by-31 rolling hash with 32-bit wraparound, rendered as
// the absolute value in hex.
func hash32(s string) string {
	var h int32
	for i := 0; i < len(s); i++ {
		h = h*31 + int32(s[i])
	}
	v := int64(h)
	if v < 0 {
		v = -v
	}
	return strconv.FormatInt(v, 16)
}

func orUnknown(n int) string {
	if n <= 0 {
		return "unknown"
	}
	return strconv.Itoa(n)
}
