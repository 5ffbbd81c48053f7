// Package certview renders signature entries for operator review: an
// X.509 certificate's serial/issuer/subject/validity fields, or a raw
// SHA-256 fingerprint in hex. crypto/x509 from the standard library is
// the only parser used here; no example in the retrieved pack carries a
// third-party human-readable X.509 printer (the pack's X.509 consumers --
// virtengine's edugain/enclave_runtime attestation code -- all parse with
// crypto/x509 directly and hand-roll their own field extraction), so this
// stays on the standard library by necessity rather than by default.
package certview

import (
	"crypto/x509"
	"crypto/x509/pkix"
	"fmt"
	"strconv"
	"strings"
	"time"

	"mokctl/internal/mokerr"
	"mokctl/internal/siglist"
)

// Render returns the alert-box lines for one signature entry: certificate
// fields for an X509 entry, or "SHA256 hash:" plus the hex digest,
// 10 bytes per line, space-separated, for a hash entry.
func Render(e siglist.Entry) (title string, lines []string, err error) {
	switch e.Kind {
	case siglist.KindX509:
		return renderCert(e.Bytes)
	case siglist.KindSHA256:
		return "SHA256 hash", renderHash(e.Bytes), nil
	default:
		return "", nil, mokerr.New(mokerr.Parse, "unrecognized signature kind")
	}
}

func renderCert(der []byte) (string, []string, error) {
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		return "", nil, mokerr.Wrap(mokerr.Crypto, "parse X.509 certificate", err)
	}

	var lines []string
	addLine := func(label, value string) {
		if value != "" {
			lines = append(lines, label+": "+value)
		}
	}

	addLine("Serial", cert.SerialNumber.String())
	addLine("Issuer", oneLineName(cert.Issuer))
	addLine("Subject", oneLineName(cert.Subject))
	addLine("Not Before", formatCertTime(cert.NotBefore))
	addLine("Not After", formatCertTime(cert.NotAfter))

	return "X.509 Certificate", lines, nil
}

// formatCertTime renders a validity timestamp. Years 1950 through 2049 are
// the range a UTCTime can encode and go through formatValidity's 2-digit
// mapping; any other year comes from a GeneralizedTime and is printed with
// its own 4 digits.
func formatCertTime(t time.Time) string {
	t = t.UTC()
	if t.Year() < 1950 || t.Year() > 2049 {
		return t.Format("2006-01-02 15:04:05") + " GMT"
	}
	return formatValidity(t.Format("060102150405Z"))
}

// oneLineName renders a pkix.Name the way a certificate's one-line DN
// rendering is conventionally shown: CN, then O, then C, comma separated,
// skipping empty components.
func oneLineName(n pkix.Name) string {
	var parts []string
	if n.CommonName != "" {
		parts = append(parts, "CN="+n.CommonName)
	}
	for _, o := range n.Organization {
		parts = append(parts, "O="+o)
	}
	for _, c := range n.Country {
		parts = append(parts, "C="+c)
	}
	return strings.Join(parts, ", ")
}

// formatValidity mirrors spec.md §4.6's year-mapping rule: a UTCTime-style
// 2-digit year y maps to 2000+y when y<50, else 1900+y; a GeneralizedTime
// carries its own 4-digit year already. Go's time.Time already normalizes
// both encodings during ASN.1 parsing, so by the time we format here the
// year is already correct; this function exists to express that rule
// explicitly against the raw timestamp string for callers that need the
// pre-parse form (e.g. golden fixtures built from original_source).
func formatValidity(rawUTCTime string) string {
	if len(rawUTCTime) < 13 {
		return rawUTCTime
	}
	yy, err := strconv.Atoi(rawUTCTime[0:2])
	if err != nil {
		return rawUTCTime
	}
	year := 1900 + yy
	if yy < 50 {
		year = 2000 + yy
	}
	return fmt.Sprintf("%04d-%s-%s %s:%s:%s GMT",
		year, rawUTCTime[2:4], rawUTCTime[4:6],
		rawUTCTime[6:8], rawUTCTime[8:10], rawUTCTime[10:12])
}

// renderHash renders 32 bytes as hex, 10 bytes per line, space-separated.
func renderHash(hash []byte) []string {
	var lines []string
	for i := 0; i < len(hash); i += 10 {
		end := i + 10
		if end > len(hash) {
			end = len(hash)
		}
		var parts []string
		for _, b := range hash[i:end] {
			parts = append(parts, fmt.Sprintf("%02x", b))
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return lines
}

// Summary returns a single-line description of an entry, shorter than the
// full alert-box rendering: "X509 <one-line subject>" or "SHA256 <first 4
// bytes in hex>…".
func Summary(e siglist.Entry) string {
	switch e.Kind {
	case siglist.KindX509:
		cert, err := x509.ParseCertificate(e.Bytes)
		if err != nil {
			return "X509 (unparseable)"
		}
		return fmt.Sprintf("X509 %s", oneLineName(cert.Subject))
	case siglist.KindSHA256:
		if len(e.Bytes) < 4 {
			return "SHA256 hash"
		}
		return fmt.Sprintf("SHA256 %02x%02x%02x%02x…", e.Bytes[0], e.Bytes[1], e.Bytes[2], e.Bytes[3])
	default:
		return "unknown"
	}
}
