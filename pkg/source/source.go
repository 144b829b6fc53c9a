// Package source loads the program text shown in the code panel and builds
// the table mapping source lines to displayed lines.
package source

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// Supported encodings.
const (
	EncodingAuto     = "auto"
	EncodingUTF8     = "utf-8"
	EncodingUTF16    = "utf-16"
	EncodingShiftJIS = "shift_jis"
	EncodingEUCJP    = "euc-jp"
)

// File はUTF-8に変換されたソースファイル
type File struct {
	FileName string   // ファイル名
	Encoding string   // 実際に使ったエンコーディング
	Lines    []string // 改行を除いた各行
}

// Load reads path and decodes it with the given encoding.
func Load(path, enc string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read source: %w", err)
	}
	text, used, err := Decode(data, enc)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return &File{
		FileName: filepath.Base(path),
		Encoding: used,
		Lines:    SplitLines(text),
	}, nil
}

// Decode converts data to UTF-8. With EncodingAuto a UTF-16 byte order
// mark selects UTF-16, valid UTF-8 is kept and anything else is read as
// Shift-JIS. The encoding actually used is returned.
func Decode(data []byte, enc string) (string, string, error) {
	if enc == "" || enc == EncodingAuto {
		enc = detect(data)
	}

	var e encoding.Encoding
	switch strings.ToLower(enc) {
	case EncodingUTF8, "utf8":
		e = unicode.UTF8BOM
	case EncodingUTF16, "utf16":
		e = unicode.UTF16(unicode.LittleEndian, unicode.UseBOM)
	case EncodingShiftJIS, "sjis", "shift-jis":
		e = japanese.ShiftJIS
	case EncodingEUCJP, "eucjp", "euc_jp":
		e = japanese.EUCJP
	default:
		return "", "", fmt.Errorf("unsupported encoding: %s", enc)
	}

	reader := transform.NewReader(bytes.NewReader(data), e.NewDecoder())
	out, err := io.ReadAll(reader)
	if err != nil {
		return "", "", fmt.Errorf("failed to decode %s: %w", enc, err)
	}
	return string(out), enc, nil
}

func detect(data []byte) string {
	if bytes.HasPrefix(data, []byte{0xFF, 0xFE}) || bytes.HasPrefix(data, []byte{0xFE, 0xFF}) {
		return EncodingUTF16
	}
	if utf8.Valid(data) {
		return EncodingUTF8
	}
	return EncodingShiftJIS
}

// SplitLines splits text on LF or CRLF. A trailing newline does not start
// an extra line.
func SplitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.TrimSuffix(text, "\n")
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
