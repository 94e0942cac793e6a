// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"strings"
	"unicode/utf16"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

func registerTextFuncs(r *Registry) {
	r.mustRegister(&FunctionDefinition{
		Name:        "UPPER",
		Category:    "text",
		Description: map[string]string{"en": "Uppercases text.", "ja": "文字列を大文字にします。"},
		Evaluate:    calcUPPER,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "LOWER",
		Category:    "text",
		Description: map[string]string{"en": "Lowercases text.", "ja": "文字列を小文字にします。"},
		Evaluate:    calcLOWER,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "LEN",
		Category:    "text",
		Description: map[string]string{"en": "Length of text in UTF-16 code units.", "ja": "文字列の長さを返します。"},
		Evaluate:    calcLEN,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "TRIM",
		Category:    "text",
		Description: map[string]string{"en": "Removes extra spaces from text.", "ja": "余分なスペースを削除します。"},
		Evaluate:    calcTRIM,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "CONCAT",
		Category:    "text",
		Description: map[string]string{"en": "Joins its arguments as text.", "ja": "引数を連結します。"},
		Evaluate:    calcCONCAT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "CONCATENATE",
		Category:    "text",
		Description: map[string]string{"en": "Joins its arguments as text.", "ja": "引数を連結します。"},
		Evaluate:    calcCONCAT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "LEFT",
		Category:    "text",
		Description: map[string]string{"en": "Leading characters of text.", "ja": "先頭から文字を取り出します。"},
		Evaluate:    calcLEFT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "RIGHT",
		Category:    "text",
		Description: map[string]string{"en": "Trailing characters of text.", "ja": "末尾から文字を取り出します。"},
		Evaluate:    calcRIGHT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "MID",
		Category:    "text",
		Description: map[string]string{"en": "Characters from the middle of text.", "ja": "指定位置から文字を取り出します。"},
		Evaluate:    calcMID,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "FIND",
		Category:    "text",
		Description: map[string]string{"en": "Case-sensitive position of one text inside another.", "ja": "文字列の位置を返します（大文字小文字を区別）。"},
		Evaluate:    calcFIND,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "SEARCH",
		Category:    "text",
		Description: map[string]string{"en": "Case-insensitive position of one text inside another.", "ja": "文字列の位置を返します（大文字小文字を区別しない）。"},
		Evaluate:    calcSEARCH,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "SUBSTITUTE",
		Category:    "text",
		Description: map[string]string{"en": "Replaces occurrences of text.", "ja": "文字列を置換します。"},
		Evaluate:    calcSUBSTITUTE,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "REPT",
		Category:    "text",
		Description: map[string]string{"en": "Repeats text a number of times.", "ja": "文字列を繰り返します。"},
		Evaluate:    calcREPT,
	})
	r.mustRegister(&FunctionDefinition{
		Name:        "TEXT",
		Category:    "text",
		Description: map[string]string{"en": "Formats a value with a number format.", "ja": "表示形式を適用して文字列にします。"},
		Examples:    []string{`TEXT(0.285,"0.0%")`, `TEXT(1234.5,"#,##0.00")`},
		Evaluate:    calcTEXT,
	})
}

// utf16Units is the code-unit view that LEN and the slicing functions
// share: positions and lengths count UTF-16 units, so astral characters
// count as two and positions compose across functions.
func utf16Units(s string) []uint16 {
	return utf16.Encode([]rune(s))
}

func calcUPPER(ctx *CallContext, args []Value) Value {
	return mapText(args, "UPPER", func(s string) string {
		return cases.Upper(language.Und).String(s)
	})
}

func calcLOWER(ctx *CallContext, args []Value) Value {
	return mapText(args, "LOWER", func(s string) string {
		return cases.Lower(language.Und).String(s)
	})
}

func mapText(args []Value, label string, fn func(string) string) Value {
	if len(args) != 1 {
		return newErrorValue(errValue(label + " takes one argument"))
	}
	s, err := coerceText(args[0], label)
	if err != nil {
		return newErrorValue(err)
	}
	return newStringValue(fn(s))
}

func calcLEN(ctx *CallContext, args []Value) Value {
	if len(args) != 1 {
		return newErrorValue(errValue("LEN takes one argument"))
	}
	s, err := coerceText(args[0], "LEN")
	if err != nil {
		return newErrorValue(err)
	}
	return newNumberValue(float64(len(utf16Units(s))))
}

func calcTRIM(ctx *CallContext, args []Value) Value {
	return mapText(args, "TRIM", func(s string) string {
		fields := strings.FieldsFunc(s, func(r rune) bool { return r == ' ' })
		return strings.Join(fields, " ")
	})
}

func calcCONCAT(ctx *CallContext, args []Value) Value {
	var sb strings.Builder
	for _, v := range flattenArguments(args) {
		s, err := coerceText(v, "CONCAT")
		if err != nil {
			return newErrorValue(err)
		}
		sb.WriteString(s)
	}
	return newStringValue(sb.String())
}

func calcLEFT(ctx *CallContext, args []Value) Value {
	return sliceText(args, "LEFT", func(units []uint16, n int) []uint16 {
		if n > len(units) {
			n = len(units)
		}
		return units[:n]
	})
}

func calcRIGHT(ctx *CallContext, args []Value) Value {
	return sliceText(args, "RIGHT", func(units []uint16, n int) []uint16 {
		if n > len(units) {
			n = len(units)
		}
		return units[len(units)-n:]
	})
}

func sliceText(args []Value, label string, slice func([]uint16, int) []uint16) Value {
	if len(args) < 1 || len(args) > 2 {
		return newErrorValue(errValue(label + " takes one or two arguments"))
	}
	s, err := coerceText(args[0], label)
	if err != nil {
		return newErrorValue(err)
	}
	n := 1
	if len(args) == 2 && !args[1].IsEmpty() {
		num, err := requireNumber(args[1], label+" count")
		if err != nil {
			return newErrorValue(err)
		}
		if n, err = requireInteger(num, label+" count"); err != nil {
			return newErrorValue(err)
		}
	}
	if n < 0 {
		return newErrorValue(errValue(label + ": negative count"))
	}
	return newStringValue(string(utf16.Decode(slice(utf16Units(s), n))))
}

func calcMID(ctx *CallContext, args []Value) Value {
	if len(args) != 3 {
		return newErrorValue(errValue("MID takes three arguments"))
	}
	s, err := coerceText(args[0], "MID")
	if err != nil {
		return newErrorValue(err)
	}
	startNum, err := requireNumber(args[1], "MID start")
	if err != nil {
		return newErrorValue(err)
	}
	start, err := requireInteger(startNum, "MID start")
	if err != nil {
		return newErrorValue(err)
	}
	countNum, err := requireNumber(args[2], "MID count")
	if err != nil {
		return newErrorValue(err)
	}
	count, err := requireInteger(countNum, "MID count")
	if err != nil {
		return newErrorValue(err)
	}
	if start < 1 || count < 0 {
		return newErrorValue(errValue("MID: start must be >= 1 and count >= 0"))
	}
	units := utf16Units(s)
	if start > len(units) {
		return newStringValue("")
	}
	end := start - 1 + count
	if end > len(units) {
		end = len(units)
	}
	return newStringValue(string(utf16.Decode(units[start-1 : end])))
}

func calcFIND(ctx *CallContext, args []Value) Value {
	return findInText(args, "FIND", false)
}

func calcSEARCH(ctx *CallContext, args []Value) Value {
	return findInText(args, "SEARCH", true)
}

func findInText(args []Value, label string, foldCase bool) Value {
	if len(args) < 2 || len(args) > 3 {
		return newErrorValue(errValue(label + " takes two or three arguments"))
	}
	needle, err := coerceText(args[0], label+" find text")
	if err != nil {
		return newErrorValue(err)
	}
	haystack, err := coerceText(args[1], label+" within text")
	if err != nil {
		return newErrorValue(err)
	}
	start := 1
	if len(args) == 3 && !args[2].IsEmpty() {
		num, err := requireNumber(args[2], label+" start")
		if err != nil {
			return newErrorValue(err)
		}
		if start, err = requireInteger(num, label+" start"); err != nil {
			return newErrorValue(err)
		}
	}
	units := utf16Units(haystack)
	if start < 1 || start > len(units)+1 {
		return newErrorValue(errValue(label + ": start out of range"))
	}
	tail := string(utf16.Decode(units[start-1:]))
	if foldCase {
		needle = strings.ToLower(needle)
		tail = strings.ToLower(tail)
	}
	idx := strings.Index(tail, needle)
	if idx < 0 {
		return newErrorValue(errValue(label + ": text not found"))
	}
	offset := len(utf16Units(tail[:idx]))
	return newNumberValue(float64(start + offset))
}

func calcSUBSTITUTE(ctx *CallContext, args []Value) Value {
	if len(args) < 3 || len(args) > 4 {
		return newErrorValue(errValue("SUBSTITUTE takes three or four arguments"))
	}
	text, err := coerceText(args[0], "SUBSTITUTE text")
	if err != nil {
		return newErrorValue(err)
	}
	oldText, err := coerceText(args[1], "SUBSTITUTE old text")
	if err != nil {
		return newErrorValue(err)
	}
	newText, err := coerceText(args[2], "SUBSTITUTE new text")
	if err != nil {
		return newErrorValue(err)
	}
	if oldText == "" {
		return newStringValue(text)
	}
	if len(args) == 4 && !args[3].IsEmpty() {
		num, err := requireNumber(args[3], "SUBSTITUTE instance")
		if err != nil {
			return newErrorValue(err)
		}
		instance, err := requireInteger(num, "SUBSTITUTE instance")
		if err != nil {
			return newErrorValue(err)
		}
		if instance < 1 {
			return newErrorValue(errValue("SUBSTITUTE: instance must be >= 1"))
		}
		pos, seen := 0, 0
		for {
			idx := strings.Index(text[pos:], oldText)
			if idx < 0 {
				return newStringValue(text)
			}
			seen++
			if seen == instance {
				at := pos + idx
				return newStringValue(text[:at] + newText + text[at+len(oldText):])
			}
			pos += idx + len(oldText)
		}
	}
	return newStringValue(strings.ReplaceAll(text, oldText, newText))
}

func calcREPT(ctx *CallContext, args []Value) Value {
	if len(args) != 2 {
		return newErrorValue(errValue("REPT takes two arguments"))
	}
	text, err := coerceText(args[0], "REPT text")
	if err != nil {
		return newErrorValue(err)
	}
	num, err := requireNumber(args[1], "REPT count")
	if err != nil {
		return newErrorValue(err)
	}
	count, err := requireInteger(num, "REPT count")
	if err != nil {
		return newErrorValue(err)
	}
	if count < 0 {
		return newErrorValue(errValue("REPT: negative count"))
	}
	return newStringValue(strings.Repeat(text, count))
}
