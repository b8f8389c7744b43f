package vcard

import (
	"strings"
	"testing"

	"github.com/mpetrov/cardtidy/internal/models"
)

func TestEncodeFieldOrder(t *testing.T) {
	c := &models.Contact{
		Name:         "Jane Doe",
		FirstName:    "Jane",
		LastName:     "Doe",
		Nickname:     "JD",
		Phones:       []models.Phone{{Value: "555-123-4567", Type: "mobile", Normalized: "5551234567"}},
		Emails:       []models.Email{{Value: "jane@example.com", Type: "work"}},
		Organization: "Acme",
		Department:   "R&D",
		Title:        "Engineer",
		Notes:        "likes commas, and semicolons; really",
		Tags:         []string{"friends", "work"},
	}

	out := Encode(c)
	lines := strings.Split(out, "\r\n")

	want := []string{
		"BEGIN:VCARD",
		"VERSION:3.0",
		"FN:Jane Doe",
		"N:Doe;Jane;;;",
		"NICKNAME:JD",
		"TEL;TYPE=MOBILE:555-123-4567",
		"EMAIL;TYPE=WORK:jane@example.com",
		"ORG:Acme;R&D",
		"TITLE:Engineer",
		`NOTE:likes commas\, and semicolons\; really`,
		"CATEGORIES:friends,work",
		"END:VCARD",
	}
	if len(lines) != len(want) {
		t.Fatalf("encoded %d lines, want %d:\n%s", len(lines), len(want), out)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d = %q, want %q", i, lines[i], want[i])
		}
	}
}

func TestEncodeEscaping(t *testing.T) {
	c := &models.Contact{Name: `back\slash, semi; new` + "\n" + `line`}
	out := Encode(c)
	if !strings.Contains(out, `FN:back\\slash\, semi\; new\nline`) {
		t.Errorf("escaping wrong:\n%s", out)
	}
}

func TestEncodePhotoCeiling(t *testing.T) {
	small := &models.Contact{Name: "X", Photo: "AAAA", PhotoType: "png"}
	if !strings.Contains(Encode(small), "PHOTO;ENCODING=b;TYPE=PNG:AAAA") {
		t.Error("small photo should be emitted")
	}

	big := &models.Contact{Name: "X", Photo: strings.Repeat("A", maxPhotoSize)}
	if strings.Contains(Encode(big), "PHOTO") {
		t.Error("oversized photo must not be emitted")
	}
}

func TestEncodeAll(t *testing.T) {
	out := EncodeAll([]*models.Contact{{Name: "One"}, {Name: "Two"}})
	if strings.Count(out, "BEGIN:VCARD") != 2 || strings.Count(out, "END:VCARD") != 2 {
		t.Errorf("expected two blocks:\n%s", out)
	}
	if !strings.Contains(out, "END:VCARD\r\nBEGIN:VCARD") {
		t.Errorf("blocks should be CRLF separated:\n%s", out)
	}
}

func TestRoundTripCoreFields(t *testing.T) {
	original := &models.Contact{
		Name:   "Jane Doe",
		Phones: []models.Phone{{Value: "+1 555 123 4567", Type: "mobile", Normalized: "+15551234567"}},
		Emails: []models.Email{{Value: "jane@example.com", Type: "home"}},
	}

	decoded := Decode(Encode(original))
	if len(decoded) != 1 {
		t.Fatalf("round trip produced %d contacts", len(decoded))
	}

	got := decoded[0]
	if got.Name != original.Name {
		t.Errorf("Name = %q, want %q", got.Name, original.Name)
	}
	if len(got.Phones) != 1 || got.Phones[0].Value != original.Phones[0].Value {
		t.Errorf("phones = %+v", got.Phones)
	}
	if got.Phones[0].Type != "mobile" {
		t.Errorf("phone type = %q", got.Phones[0].Type)
	}
	if got.Phones[0].Normalized != "+15551234567" {
		t.Errorf("phone normalized = %q", got.Phones[0].Normalized)
	}
	if len(got.Emails) != 1 || got.Emails[0].Value != "jane@example.com" || got.Emails[0].Type != "home" {
		t.Errorf("emails = %+v", got.Emails)
	}
}
