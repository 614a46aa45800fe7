package extract

import (
	"strconv"
	"strings"
	"unicode"
)

// pythonLiterals 模型偶爾輸出的 Python 常值
var pythonLiterals = map[string]string{
	"True":  "true",
	"False": "false",
	"None":  "null",
}

// Repair 修正常見的近似 JSON 語法，只處理字串常值以外的部分：
// 智慧引號、單引號字串、未加引號的鍵、Python 常值與結尾逗號
func Repair(raw string) string {
	rs := []rune(raw)
	var b strings.Builder
	b.Grow(len(raw) + 16)

	for i := 0; i < len(rs); i++ {
		c := rs[i]
		switch {
		case c == '"':
			i = copyString(rs, i, &b)
		case c == '\'' || c == '‘' || c == '’' || c == '“' || c == '”':
			i = requoteString(rs, i, &b)
		case c == ',':
			j := skipSpace(rs, i+1)
			if j < len(rs) && (rs[j] == '}' || rs[j] == ']') {
				continue
			}
			b.WriteRune(c)
		case c == '-' || unicode.IsDigit(c):
			j := i + 1
			for j < len(rs) && isNumberRune(rs[j]) {
				j++
			}
			b.WriteString(string(rs[i:j]))
			i = j - 1
		case isIdentStart(c):
			j := i + 1
			for j < len(rs) && isIdentRune(rs[j]) {
				j++
			}
			word := string(rs[i:j])
			if k := skipSpace(rs, j); k < len(rs) && rs[k] == ':' {
				b.WriteString(strconv.Quote(word))
			} else if lit, ok := pythonLiterals[word]; ok {
				b.WriteString(lit)
			} else {
				b.WriteString(word)
			}
			i = j - 1
		default:
			b.WriteRune(c)
		}
	}
	return b.String()
}

// copyString 原樣複製雙引號字串，回傳結尾引號的位置
func copyString(rs []rune, i int, b *strings.Builder) int {
	b.WriteRune(rs[i])
	for j := i + 1; j < len(rs); j++ {
		c := rs[j]
		b.WriteRune(c)
		if c == '\\' && j+1 < len(rs) {
			j++
			b.WriteRune(rs[j])
			continue
		}
		if c == '"' {
			return j
		}
	}
	return len(rs) - 1
}

// requoteString 將單引號或智慧引號字串改寫為雙引號字串
func requoteString(rs []rune, i int, b *strings.Builder) int {
	closers := closingQuotes(rs[i])
	b.WriteByte('"')
	for j := i + 1; j < len(rs); j++ {
		c := rs[j]
		switch {
		case c == '\\' && j+1 < len(rs):
			j++
			if rs[j] == '\'' {
				b.WriteRune('\'')
			} else {
				b.WriteRune(c)
				b.WriteRune(rs[j])
			}
		case strings.ContainsRune(closers, c):
			b.WriteByte('"')
			return j
		case c == '"':
			b.WriteString(`\"`)
		default:
			b.WriteRune(c)
		}
	}
	return len(rs) - 1
}

func closingQuotes(open rune) string {
	switch open {
	case '\'':
		return "'"
	case '‘', '’':
		return "‘’'"
	default:
		return "“”\""
	}
}

func skipSpace(rs []rune, i int) int {
	for i < len(rs) && unicode.IsSpace(rs[i]) {
		i++
	}
	return i
}

func isNumberRune(c rune) bool {
	return unicode.IsDigit(c) || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-'
}

func isIdentStart(c rune) bool {
	return c == '_' || (c < unicode.MaxASCII && unicode.IsLetter(c))
}

func isIdentRune(c rune) bool {
	return isIdentStart(c) || (c < unicode.MaxASCII && unicode.IsDigit(c))
}
