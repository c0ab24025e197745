// Package bytesize provides a byte-count type that unmarshals from
// human-readable strings, for use in configuration limits.
package bytesize

import (
	"fmt"
	"strconv"
	"strings"
)

// ByteSize is a number of bytes. It accepts plain integers ("4096"),
// decimal units ("64KB", "1M") and binary units ("64KiB", "1Mi") when
// parsed from text, which makes it usable directly in config structs.
type ByteSize uint64

const (
	B  ByteSize = 1
	KB ByteSize = 1000 * B
	MB ByteSize = 1000 * KB
	GB ByteSize = 1000 * MB
	TB ByteSize = 1000 * GB

	KiB ByteSize = 1 << (10 * (iota - 4))
	MiB
	GiB
	TiB
)

// Parse converts a human-readable size string into a ByteSize.
func Parse(s string) (ByteSize, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return 0, fmt.Errorf("empty byte size")
	}

	// Split the numeric prefix from the unit suffix.
	split := len(trimmed)
	for i, r := range trimmed {
		if (r < '0' || r > '9') && r != '.' {
			split = i
			break
		}
	}
	numStr := trimmed[:split]
	unit := strings.ToLower(strings.TrimSpace(trimmed[split:]))

	if numStr == "" {
		return 0, fmt.Errorf("invalid byte size %q: missing number", s)
	}

	mult, err := unitMultiplier(unit)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}

	if strings.Contains(numStr, ".") {
		f, err := strconv.ParseFloat(numStr, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
		}
		return ByteSize(f * float64(mult)), nil
	}

	n, err := strconv.ParseUint(numStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid byte size %q: %w", s, err)
	}
	return ByteSize(n) * mult, nil
}

func unitMultiplier(unit string) (ByteSize, error) {
	switch unit {
	case "", "b":
		return B, nil
	case "k", "kb":
		return KB, nil
	case "m", "mb":
		return MB, nil
	case "g", "gb":
		return GB, nil
	case "t", "tb":
		return TB, nil
	case "ki", "kib":
		return KiB, nil
	case "mi", "mib":
		return MiB, nil
	case "gi", "gib":
		return GiB, nil
	case "ti", "tib":
		return TiB, nil
	}
	return 0, fmt.Errorf("unknown unit %q", unit)
}

// UnmarshalText implements encoding.TextUnmarshaler so ByteSize fields
// decode from config files and environment variables.
func (b *ByteSize) UnmarshalText(text []byte) error {
	size, err := Parse(string(text))
	if err != nil {
		return err
	}
	*b = size
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (b ByteSize) MarshalText() ([]byte, error) {
	return []byte(b.String()), nil
}

// String renders the size with the largest binary unit that keeps two
// decimals readable; exact byte counts below 1KiB print as plain bytes.
func (b ByteSize) String() string {
	switch {
	case b >= TiB:
		return fmt.Sprintf("%.2fTiB", float64(b)/float64(TiB))
	case b >= GiB:
		return fmt.Sprintf("%.2fGiB", float64(b)/float64(GiB))
	case b >= MiB:
		return fmt.Sprintf("%.2fMiB", float64(b)/float64(MiB))
	case b >= KiB:
		return fmt.Sprintf("%.2fKiB", float64(b)/float64(KiB))
	default:
		return fmt.Sprintf("%dB", uint64(b))
	}
}

// Int64 returns the size as an int64 for APIs that take signed lengths.
func (b ByteSize) Int64() int64 {
	return int64(b)
}

// Uint64 returns the size as a uint64.
func (b ByteSize) Uint64() uint64 {
	return uint64(b)
}
