package domain

import (
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"

	dErrors "github.com/DFE-Digital/teaching-record-system-sub005/pkg/domain-errors"
)

// Trn is a Teacher Reference Number: exactly seven ASCII digits.
// The zero value means "not supplied".
type Trn string

const trnLength = 7

// ParseTrn validates a TRN from external input. Surrounding whitespace is
// ignored; an empty input yields the zero Trn without error.
func ParseTrn(s string) (Trn, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", nil
	}
	if len(s) != trnLength {
		return "", dErrors.New(dErrors.CodeInvalidInput, "trn must be 7 digits")
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return "", dErrors.New(dErrors.CodeInvalidInput, "trn must be 7 digits")
		}
	}
	return Trn(s), nil
}

func (t Trn) String() string { return string(t) }
func (t Trn) IsZero() bool   { return t == "" }

// NormalizeNINO upper-cases a national insurance number and drops spaces so
// "ab 12 34 56 c" and "AB123456C" compare equal.
func NormalizeNINO(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(unicode.ToUpper(r))
	}
	return b.String()
}

// ValidNINO reports whether s (already normalised) has the two-letter,
// six-digit, optional suffix-letter shape.
func ValidNINO(s string) bool {
	if len(s) != 8 && len(s) != 9 {
		return false
	}
	for i := 0; i < 2; i++ {
		if s[i] < 'A' || s[i] > 'Z' {
			return false
		}
	}
	for i := 2; i < 8; i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	if len(s) == 9 && (s[8] < 'A' || s[8] > 'D') {
		return false
	}
	return true
}

// NameKey is the comparison form of a personal name: NFKC-normalised,
// case-folded, with runs of whitespace collapsed. Two names are equal for
// matching purposes when their keys are equal.
func NameKey(name string) string {
	folded := cases.Fold().String(norm.NFKC.String(name))
	return strings.Join(strings.Fields(folded), " ")
}

// Gender is the feed gender code. The zero value means "not supplied".
type Gender string

const (
	GenderMale        Gender = "male"
	GenderFemale      Gender = "female"
	GenderOther       Gender = "other"
	GenderNotProvided Gender = "not_provided"
)

var genderCodes = map[string]Gender{
	"1": GenderMale, "m": GenderMale, "male": GenderMale,
	"2": GenderFemale, "f": GenderFemale, "female": GenderFemale,
	"3": GenderOther, "o": GenderOther, "other": GenderOther,
	"9": GenderNotProvided, "u": GenderNotProvided, "not_provided": GenderNotProvided,
}

// ParseGender maps feed gender codes onto Gender. Empty input is the zero
// value; unknown codes are rejected.
func ParseGender(s string) (Gender, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", nil
	}
	g, ok := genderCodes[s]
	if !ok {
		return "", dErrors.New(dErrors.CodeInvalidInput, "unknown gender code: "+s)
	}
	return g, nil
}
