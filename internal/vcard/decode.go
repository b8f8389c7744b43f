// Package vcard decodes and encodes vCard (VCF) text, covering the 2.1, 3.0
// and 4.0 dialects found in real exports: folded lines, quoted-printable
// values, legacy bare TYPE parameters and X- properties.
package vcard

import (
	"io"
	"log/slog"
	"mime/quotedprintable"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"

	"github.com/mpetrov/cardtidy/internal/models"
	"github.com/mpetrov/cardtidy/internal/normalize"
)

var (
	cardPattern = regexp.MustCompile(`(?is)BEGIN:VCARD.*?END:VCARD`)
	qpPattern   = regexp.MustCompile(`=[0-9A-Fa-f]{2}`)
)

// Decoder turns raw VCF text into contacts. The zero value is ready to use;
// NewID may be set to control identity assignment.
type Decoder struct {
	// NewID generates contact ids. Defaults to uuid.NewString.
	NewID func() string
}

// Decode parses all vCards in text using a default Decoder. Malformed cards
// are skipped, never fatal; marker-less input yields an empty slice.
func Decode(text string) []*models.Contact {
	return (&Decoder{}).Decode(text)
}

// Decode parses all vCards in text. Each card bounded by BEGIN:VCARD and
// END:VCARD becomes one contact; cards with neither a name nor a phone are
// dropped. Unparseable lines within a card are skipped.
func (d *Decoder) Decode(text string) []*models.Contact {
	newID := d.NewID
	if newID == nil {
		newID = uuid.NewString
	}

	// Line endings first, then quoted-printable soft breaks (a trailing =
	// joins lines), then standard unfolding. Soft breaks must be resolved
	// before unfolding.
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "=\n", "")
	text = unfold(text)

	var contacts []*models.Contact
	for _, block := range cardPattern.FindAllString(text, -1) {
		c := parseCard(block)
		if c == nil {
			continue
		}
		c.ID = newID()
		contacts = append(contacts, c)
	}
	return contacts
}

// unfold joins continuation lines (leading space or tab) onto the previous
// line, dropping the single leading whitespace byte.
func unfold(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' && i+1 < len(text) && (text[i+1] == ' ' || text[i+1] == '\t') {
			i++ // skip the newline and the fold marker
			continue
		}
		b.WriteByte(text[i])
	}
	return b.String()
}

func parseCard(block string) *models.Contact {
	c := &models.Contact{Raw: block}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.EqualFold(line, "BEGIN:VCARD") || strings.EqualFold(line, "END:VCARD") {
			continue
		}
		parseLine(line, c)
	}

	if !c.HasIdentity() {
		return nil
	}
	if c.Name == "" && len(c.Phones) > 0 {
		c.Name = c.Phones[0].Value
	}
	return c
}

func parseLine(line string, c *models.Contact) {
	colon := strings.Index(line, ":")
	if colon < 0 {
		return
	}

	propertyPart := line[:colon]
	value := decodeValue(line[colon+1:])

	property := propertyPart
	params := map[string]string{}
	if semi := strings.Index(propertyPart, ";"); semi >= 0 {
		property = propertyPart[:semi]
		params = parseParameters(propertyPart[semi+1:])
	}
	property = strings.ToUpper(property)

	switch property {
	case "FN":
		c.Name = value

	case "N":
		// Last;First;Middle;Prefix;Suffix
		parts := strings.Split(value, ";")
		c.LastName = part(parts, 0)
		c.FirstName = part(parts, 1)
		c.MiddleName = part(parts, 2)
		c.Prefix = part(parts, 3)
		c.Suffix = part(parts, 4)
		if c.Name == "" && (c.FirstName != "" || c.LastName != "") {
			c.Name = strings.TrimSpace(c.FirstName + " " + c.LastName)
		}

	case "NICKNAME":
		c.Nickname = value

	case "TEL":
		c.Phones = append(c.Phones, models.Phone{
			Value:      normalize.SanitizePhone(value),
			Type:       extractType(params),
			Normalized: normalize.Phone(value),
		})

	case "EMAIL":
		c.Emails = append(c.Emails, models.Email{
			Value: strings.ToLower(strings.TrimSpace(value)),
			Type:  extractType(params),
		})

	case "ADR":
		// PO Box;Extended;Street;City;Region;PostalCode;Country
		parts := strings.Split(value, ";")
		c.Addresses = append(c.Addresses, models.Address{
			Type:       extractType(params),
			POBox:      part(parts, 0),
			Extended:   part(parts, 1),
			Street:     part(parts, 2),
			City:       part(parts, 3),
			Region:     part(parts, 4),
			PostalCode: part(parts, 5),
			Country:    part(parts, 6),
		})

	case "ORG":
		parts := strings.Split(value, ";")
		c.Organization = part(parts, 0)
		c.Department = part(parts, 1)

	case "TITLE":
		c.Title = value

	case "NOTE":
		c.Notes = value

	case "CATEGORIES":
		parts := strings.Split(value, ",")
		tags := make([]string, len(parts))
		for i, t := range parts {
			tags[i] = strings.TrimSpace(t)
		}
		c.Tags = tags

	case "URL":
		t := extractType(params)
		if params["TYPE"] == "" {
			t = "website"
		}
		c.URLs = append(c.URLs, models.URL{Value: value, Type: t})

	case "BDAY":
		c.Birthday = value

	case "ANNIVERSARY", "X-ANNIVERSARY":
		c.Anniversary = value

	case "PHOTO":
		c.Photo = value
		c.PhotoType = params["TYPE"]
		if c.PhotoType == "" {
			c.PhotoType = params["MEDIATYPE"]
		}
		if c.PhotoType == "" {
			c.PhotoType = "JPEG"
		}

	case "GENDER":
		c.Gender = value

	case "GEO":
		c.Geo = value

	case "TZ":
		c.Timezone = value

	case "IMPP", "X-SKYPE", "X-AIM", "X-YAHOO", "X-MSN", "X-ICQ", "X-JABBER", "X-QQ":
		c.IMHandles = append(c.IMHandles, models.IMHandle{
			Type:  strings.ToLower(strings.TrimPrefix(property, "X-")),
			Value: value,
		})

	case "X-SOCIALPROFILE", "X-TWITTER", "X-FACEBOOK", "X-LINKEDIN", "X-INSTAGRAM", "X-TIKTOK", "X-YOUTUBE":
		t := params["TYPE"]
		if t == "" {
			t = strings.TrimPrefix(property, "X-")
		}
		c.SocialProfiles = append(c.SocialProfiles, models.SocialProfile{
			Type:  strings.ToLower(t),
			Value: value,
		})

	case "RELATED":
		t := params["TYPE"]
		if t == "" {
			t = "contact"
		}
		c.Related = append(c.Related, models.Related{
			Type:  strings.ToLower(t),
			Value: value,
		})
	}
	// Unrecognized properties (VERSION, PRODID, X-anything else) are ignored.
}

func part(parts []string, i int) string {
	if i < len(parts) {
		return parts[i]
	}
	return ""
}

// parseParameters splits the ;-separated parameter list of a property.
// KEY=VALUE pairs are stored under the upper-cased key; a bare token is the
// vCard 2.1 shorthand for TYPE.
func parseParameters(s string) map[string]string {
	params := map[string]string{}
	for _, p := range strings.Split(s, ";") {
		if eq := strings.Index(p, "="); eq >= 0 {
			params[strings.ToUpper(p[:eq])] = p[eq+1:]
		} else {
			params["TYPE"] = p
		}
	}
	return params
}

// extractType maps a TYPE parameter onto the canonical entry types used by
// the contact model.
func extractType(params map[string]string) string {
	t := strings.ToLower(params["TYPE"])
	t = strings.ReplaceAll(t, "pref,", "")
	t = strings.ReplaceAll(t, ",pref", "")
	switch {
	case strings.Contains(t, "cell") || strings.Contains(t, "mobile"):
		return "mobile"
	case strings.Contains(t, "home"):
		return "home"
	case strings.Contains(t, "work"):
		return "work"
	case strings.Contains(t, "fax"):
		return "fax"
	default:
		return "other"
	}
}

// decodeValue decodes a property value: quoted-printable if =XX sequences
// are present, then vCard escape sequences, then trims.
func decodeValue(value string) string {
	if qpPattern.MatchString(value) {
		if decoded := decodeQuotedPrintable(value); decoded != "" && decoded != value {
			value = decoded
		}
	}

	// Sequential unescaping, matching how these escapes accumulate in the
	// wild: \n and \N become newlines before \\ collapses.
	value = strings.ReplaceAll(value, `\n`, "\n")
	value = strings.ReplaceAll(value, `\N`, "\n")
	value = strings.ReplaceAll(value, `\,`, ",")
	value = strings.ReplaceAll(value, `\;`, ";")
	value = strings.ReplaceAll(value, `\\`, `\`)

	return strings.TrimSpace(value)
}

// decodeQuotedPrintable tries the standard decoder first and accepts its
// output only when it is well-formed UTF-8. Otherwise it falls back to a
// byte-by-byte decode that re-interprets invalid byte runs as Latin-1.
func decodeQuotedPrintable(value string) string {
	decoded, err := io.ReadAll(quotedprintable.NewReader(strings.NewReader(value)))
	if err == nil && utf8.Valid(decoded) {
		return string(decoded)
	}
	slog.Debug("quoted-printable fallback decode", "len", len(value))
	return decodeQuotedPrintableManual(value)
}

// decodeQuotedPrintableManual scans for =XX escapes, accumulating the escaped
// bytes and flushing each run as text; literal characters pass through.
// Tolerates stray = signs that the strict decoder rejects.
func decodeQuotedPrintableManual(value string) string {
	var b strings.Builder
	var pending []byte

	flush := func() {
		if len(pending) == 0 {
			return
		}
		b.WriteString(bytesToUTF8(pending))
		pending = pending[:0]
	}

	for i := 0; i < len(value); {
		if value[i] == '=' && i+2 < len(value) && isHex(value[i+1]) && isHex(value[i+2]) {
			pending = append(pending, hexByte(value[i+1], value[i+2]))
			i += 3
			continue
		}
		flush()
		b.WriteByte(value[i])
		i++
	}
	flush()
	return b.String()
}

// bytesToUTF8 interprets an escaped byte run as UTF-8, falling back to
// ISO-8859-1 when the run is not well-formed. Latin-1 decoding cannot fail,
// so fidelity degrades rather than dropping data.
func bytesToUTF8(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil || len(decoded) == 0 {
		return string(raw)
	}
	return string(decoded)
}

func isHex(b byte) bool {
	return b >= '0' && b <= '9' || b >= 'a' && b <= 'f' || b >= 'A' && b <= 'F'
}

func hexByte(hi, lo byte) byte {
	return hexVal(hi)<<4 | hexVal(lo)
}

func hexVal(b byte) byte {
	switch {
	case b >= '0' && b <= '9':
		return b - '0'
	case b >= 'a' && b <= 'f':
		return b - 'a' + 10
	default:
		return b - 'A' + 10
	}
}
