package vcard

import (
	"strings"

	"github.com/mpetrov/cardtidy/internal/models"
)

// maxPhotoSize is the ceiling on the encoded photo value; larger photos are
// not emitted so a single huge avatar cannot bloat an export.
const maxPhotoSize = 100000

var valueEscaper = strings.NewReplacer(
	`\`, `\\`,
	",", `\,`,
	";", `\;`,
	"\n", `\n`,
)

// Encode renders one contact as a vCard 3.0 block with CRLF line
// separators. It is the inverse of Decode for the core fields, not a strict
// byte round-trip.
func Encode(c *models.Contact) string {
	lines := []string{"BEGIN:VCARD", "VERSION:3.0"}

	lines = append(lines, "FN:"+escape(c.Name))
	lines = append(lines, "N:"+escape(c.LastName)+";"+escape(c.FirstName)+";"+
		escape(c.MiddleName)+";"+escape(c.Prefix)+";"+escape(c.Suffix))

	if c.Nickname != "" {
		lines = append(lines, "NICKNAME:"+escape(c.Nickname))
	}

	for _, p := range c.Phones {
		lines = append(lines, "TEL;TYPE="+typeOr(p.Type, "CELL")+":"+p.Value)
	}
	for _, e := range c.Emails {
		lines = append(lines, "EMAIL;TYPE="+typeOr(e.Type, "HOME")+":"+e.Value)
	}
	for _, a := range c.Addresses {
		value := strings.Join([]string{
			a.POBox, a.Extended, a.Street, a.City, a.Region, a.PostalCode, a.Country,
		}, ";")
		lines = append(lines, "ADR;TYPE="+typeOr(a.Type, "HOME")+":"+value)
	}

	if c.Organization != "" {
		org := escape(c.Organization)
		if c.Department != "" {
			org += ";" + escape(c.Department)
		}
		lines = append(lines, "ORG:"+org)
	}
	if c.Title != "" {
		lines = append(lines, "TITLE:"+escape(c.Title))
	}

	for _, u := range c.URLs {
		lines = append(lines, "URL;TYPE="+typeOr(u.Type, "WORK")+":"+u.Value)
	}

	if c.Birthday != "" {
		lines = append(lines, "BDAY:"+c.Birthday)
	}
	if c.Anniversary != "" {
		lines = append(lines, "ANNIVERSARY:"+c.Anniversary)
	}
	if c.Photo != "" && len(c.Photo) < maxPhotoSize {
		lines = append(lines, "PHOTO;ENCODING=b;TYPE="+typeOr(c.PhotoType, "JPEG")+":"+c.Photo)
	}
	if c.Gender != "" {
		lines = append(lines, "GENDER:"+c.Gender)
	}
	if c.Geo != "" {
		lines = append(lines, "GEO:"+c.Geo)
	}
	if c.Timezone != "" {
		lines = append(lines, "TZ:"+c.Timezone)
	}

	for _, s := range c.SocialProfiles {
		lines = append(lines, "X-SOCIALPROFILE;TYPE="+typeOr(s.Type, "OTHER")+":"+s.Value)
	}
	for _, im := range c.IMHandles {
		lines = append(lines, "IMPP;TYPE="+typeOr(im.Type, "OTHER")+":"+im.Value)
	}
	for _, r := range c.Related {
		lines = append(lines, "RELATED;TYPE="+typeOr(r.Type, "CONTACT")+":"+escape(r.Value))
	}

	if c.Notes != "" {
		lines = append(lines, "NOTE:"+escape(c.Notes))
	}
	if len(c.Tags) > 0 {
		escaped := make([]string, len(c.Tags))
		for i, t := range c.Tags {
			escaped[i] = escape(t)
		}
		lines = append(lines, "CATEGORIES:"+strings.Join(escaped, ","))
	}

	lines = append(lines, "END:VCARD")
	return strings.Join(lines, "\r\n")
}

// EncodeAll renders a batch of contacts as concatenated vCard blocks.
func EncodeAll(contacts []*models.Contact) string {
	blocks := make([]string, len(contacts))
	for i, c := range contacts {
		blocks[i] = Encode(c)
	}
	return strings.Join(blocks, "\r\n")
}

func escape(value string) string {
	return valueEscaper.Replace(value)
}

func typeOr(t, fallback string) string {
	if t == "" {
		return fallback
	}
	return strings.ToUpper(t)
}
