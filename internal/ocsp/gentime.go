package ocsp

import (
	"fmt"
	"strings"
	"time"
)

// GeneralizedTime is the textual form of an ASN.1 GeneralizedTime.
//
// The string is kept verbatim so that a decoded value re-encodes to the
// same bytes. Accepted forms:
//
//	YYYYMMDDHHMM[SS[.f+]][Z|(+|-)HHMM]
type GeneralizedTime string

// ParseGeneralizedTime validates s and returns it as a GeneralizedTime.
func ParseGeneralizedTime(s string) (GeneralizedTime, error) {
	if err := checkGeneralizedTime(s); err != nil {
		return "", err
	}
	return GeneralizedTime(s), nil
}

// NewGeneralizedTime formats t in the DER canonical form (UTC, "Z", no fraction).
func NewGeneralizedTime(t time.Time) GeneralizedTime {
	return GeneralizedTime(t.UTC().Format("20060102150405Z"))
}

// Time converts the value to a time.Time. Values without a zone are read as UTC.
func (g GeneralizedTime) Time() (time.Time, error) {
	s := string(g)
	if err := checkGeneralizedTime(s); err != nil {
		return time.Time{}, err
	}

	layout := "200601021504"
	rest := s[12:]
	if len(rest) >= 2 && isDigit(rest[0]) {
		layout += "05"
		rest = rest[2:]
	}
	if strings.HasPrefix(rest, ".") {
		n := 1
		for n < len(rest) && isDigit(rest[n]) {
			n++
		}
		layout += "." + strings.Repeat("0", n-1)
		rest = rest[n:]
	}
	switch {
	case rest == "Z":
		layout += "Z"
	case rest != "":
		layout += "-0700"
	}
	return time.ParseInLocation(layout, s, time.UTC)
}

func (g GeneralizedTime) String() string { return string(g) }

type field struct {
	name     string
	width    int
	min, max int
}

var genTimeFields = []field{
	{"year", 4, 0, 9999},
	{"month", 2, 1, 12},
	{"day", 2, 1, 31},
	{"hour", 2, 0, 23},
	{"minute", 2, 0, 59},
}

func checkGeneralizedTime(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty generalized time", ErrEncoding)
	}
	o := 0
	for _, f := range genTimeFields {
		v, ok := readDigits(s, o, f.width)
		if !ok || v < f.min || v > f.max {
			return fmt.Errorf("%w: invalid %s in generalized time %q", ErrEncoding, f.name, s)
		}
		o += f.width
	}

	// seconds and fraction are optional
	if o < len(s) && isDigit(s[o]) {
		v, ok := readDigits(s, o, 2)
		if !ok || v > 59 {
			return fmt.Errorf("%w: invalid second in generalized time %q", ErrEncoding, s)
		}
		o += 2
		if o < len(s) && s[o] == '.' {
			o++
			start := o
			for o < len(s) && isDigit(s[o]) {
				o++
			}
			if o == start {
				return fmt.Errorf("%w: empty fraction in generalized time %q", ErrEncoding, s)
			}
		}
	}

	if o == len(s) {
		return nil
	}
	switch s[o] {
	case 'Z':
		o++
	case '+', '-':
		o++
		hh, ok := readDigits(s, o, 2)
		if !ok || hh > 12 {
			return fmt.Errorf("%w: invalid zone offset in generalized time %q", ErrEncoding, s)
		}
		mm, ok := readDigits(s, o+2, 2)
		if !ok || mm > 59 {
			return fmt.Errorf("%w: invalid zone offset in generalized time %q", ErrEncoding, s)
		}
		o += 4
	}
	if o != len(s) {
		return fmt.Errorf("%w: trailing data in generalized time %q", ErrEncoding, s)
	}
	return nil
}

func readDigits(s string, off, width int) (int, bool) {
	if off+width > len(s) {
		return 0, false
	}
	v := 0
	for i := off; i < off+width; i++ {
		if !isDigit(s[i]) {
			return 0, false
		}
		v = v*10 + int(s[i]-'0')
	}
	return v, true
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
