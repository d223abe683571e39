// Package talktable reads TLK V3.0 talk tables, the localized string
// tables BioWare Aurora games index by string reference (StrRef).
package talktable

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
	"golang.org/x/text/transform"
)

const (
	headerSize = 20
	entrySize  = 40
)

// Entry flags.
const (
	FlagText        = 0x0001
	FlagSound       = 0x0002
	FlagSoundLength = 0x0004
)

// Language IDs stored in the header.
const (
	LanguageEnglish            uint32 = 0
	LanguageFrench             uint32 = 1
	LanguageGerman             uint32 = 2
	LanguageItalian            uint32 = 3
	LanguageSpanish            uint32 = 4
	LanguagePolish             uint32 = 5
	LanguageKorean             uint32 = 128
	LanguageChineseTraditional uint32 = 129
	LanguageChineseSimplified  uint32 = 130
	LanguageJapanese           uint32 = 131
)

// StrRefInvalid is the string reference meaning "no string".
const StrRefInvalid uint32 = 0xFFFFFFFF

var (
	ErrBadHeader = errors.New("talktable: not a TLK V3.0 file")
	ErrTruncated = errors.New("talktable: truncated")
)

// Entry is one string table entry.
type Entry struct {
	Flags       uint32
	Text        string
	SoundResRef string
	SoundLength float32
}

// Table is a decoded talk table.
type Table struct {
	Language uint32
	entries  []Entry
}

// Encoding returns the text encoding the games use for a language.
func Encoding(language uint32) encoding.Encoding {
	switch language {
	case LanguagePolish:
		return charmap.Windows1250
	case LanguageKorean:
		return korean.EUCKR
	case LanguageChineseTraditional:
		return traditionalchinese.Big5
	case LanguageChineseSimplified:
		return simplifiedchinese.GBK
	case LanguageJapanese:
		return japanese.ShiftJIS
	}
	return charmap.Windows1252
}

// Load reads a talk table file.
func Load(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read talk table: %w", err)
	}
	t, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// Parse decodes a TLK V3.0 image. All strings are converted to UTF-8.
func Parse(data []byte) (*Table, error) {
	if len(data) < headerSize || string(data[0:4]) != "TLK " || string(data[4:8]) != "V3.0" {
		return nil, ErrBadHeader
	}
	le := binary.LittleEndian
	language := le.Uint32(data[8:12])
	count := le.Uint32(data[12:16])
	stringsOffset := uint64(le.Uint32(data[16:20]))

	if uint64(headerSize)+uint64(count)*entrySize > uint64(len(data)) {
		return nil, fmt.Errorf("%d entries: %w", count, ErrTruncated)
	}

	dec := Encoding(language).NewDecoder()
	t := &Table{Language: language, entries: make([]Entry, count)}
	for i := range t.entries {
		raw := data[headerSize+i*entrySize : headerSize+(i+1)*entrySize]
		e := Entry{
			Flags:       le.Uint32(raw[0:4]),
			SoundResRef: string(bytes.TrimRight(raw[4:20], "\x00")),
		}
		offset := stringsOffset + uint64(le.Uint32(raw[28:32]))
		size := uint64(le.Uint32(raw[32:36]))
		if e.Flags&FlagSoundLength != 0 {
			e.SoundLength = math.Float32frombits(le.Uint32(raw[36:40]))
		}

		if e.Flags&FlagText != 0 && size > 0 {
			if offset+size > uint64(len(data)) {
				return nil, fmt.Errorf("entry %d: %w", i, ErrTruncated)
			}
			text, err := decode(dec, data[offset:offset+size])
			if err != nil {
				return nil, fmt.Errorf("entry %d: %w", i, err)
			}
			e.Text = text
		}
		t.entries[i] = e
	}
	return t, nil
}

func decode(dec *encoding.Decoder, b []byte) (string, error) {
	dec.Reset()
	out, err := io.ReadAll(transform.NewReader(bytes.NewReader(b), dec))
	if err != nil {
		return "", fmt.Errorf("failed to decode string: %w", err)
	}
	return string(out), nil
}

// Len returns the number of entries.
func (t *Table) Len() int { return len(t.entries) }

// Entry returns the entry for strRef.
func (t *Table) Entry(strRef uint32) (Entry, bool) {
	if uint64(strRef) >= uint64(len(t.entries)) {
		return Entry{}, false
	}
	return t.entries[strRef], true
}

// String returns the text for strRef.
func (t *Table) String(strRef uint32) (string, bool) {
	e, ok := t.Entry(strRef)
	if !ok || e.Flags&FlagText == 0 {
		return "", false
	}
	return e.Text, true
}
