// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"math"
	"strconv"
	"strings"

	"github.com/xuri/nfp"
)

// calcTEXT applies a number-format code to a value. The format is parsed
// with the nfp token stream; the supported subset covers General,
// literals, 0/# digit placeholders, the decimal point, the thousands
// separator, % scaling and the @ text placeholder. Date/time and
// fraction codes are outside the engine core and fail with #VALUE!.
func calcTEXT(ctx *CallContext, args []Value) Value {
	if len(args) != 2 {
		return newErrorValue(errValue("TEXT takes two arguments"))
	}
	value, err := coerceScalar(args[0], "TEXT value")
	if err != nil {
		return newErrorValue(err)
	}
	format, err := coerceText(args[1], "TEXT format")
	if err != nil {
		return newErrorValue(err)
	}

	parser := nfp.NumberFormatParser()
	sections := parser.Parse(format)
	if len(sections) == 0 {
		return newErrorValue(errValue("TEXT: empty format"))
	}

	if value.Type == ValueTypeString {
		if section, ok := pickSection(sections, nfp.TokenSectionText); ok {
			return formatTextSection(section, value.Text)
		}
		return newStringValue(value.Text)
	}

	n, err := requireNumber(value, "TEXT value")
	if err != nil {
		return newErrorValue(err)
	}
	section := sections[0]
	negative := n < 0
	switch {
	case n > 0:
		// positive uses the first section
	case n < 0:
		if s, ok := pickSection(sections, nfp.TokenSectionNegative); ok {
			// A dedicated negative section supplies its own sign.
			section, negative = s, false
		}
		n = math.Abs(n)
	default:
		if s, ok := pickSection(sections, nfp.TokenSectionZero); ok {
			section = s
		}
	}
	return formatNumberSection(section, n, negative)
}

func pickSection(sections []nfp.Section, sectionType string) (nfp.Section, bool) {
	for _, section := range sections {
		if section.Type == sectionType {
			return section, true
		}
	}
	return nfp.Section{}, false
}

// numberPattern is the digit-shape information accumulated from one
// format section.
type numberPattern struct {
	intZeros  int
	decimals  int
	thousands bool
	percent   bool
}

// formatNumberSection renders a number through one format section.
func formatNumberSection(section nfp.Section, n float64, negative bool) Value {
	pattern, supported := scanPattern(section)
	if !supported {
		return newErrorValue(errValue("TEXT: unsupported format code"))
	}

	if pattern.percent {
		n *= 100
	}
	digits := formatDigits(n, pattern)

	var sb strings.Builder
	if negative {
		sb.WriteString("-")
	}
	emitted := false
	afterDecimal := false
	for _, token := range section.Items {
		switch token.TType {
		case nfp.TokenTypeLiteral:
			sb.WriteString(token.TValue)
		case nfp.TokenTypeGeneral:
			sb.WriteString(strconv.FormatFloat(n, 'f', -1, 64))
			emitted = true
		case nfp.TokenTypePercent:
			sb.WriteString("%")
		case nfp.TokenTypeDecimalPoint:
			afterDecimal = true
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeHashPlaceHolder,
			nfp.TokenTypeDigitalPlaceHolder, nfp.TokenTypeThousandsSeparator:
			// The whole numeric image is emitted at the first digit
			// placeholder; later placeholders are already covered.
			if !emitted && !afterDecimal {
				sb.WriteString(digits)
				emitted = true
			}
		default:
			return newErrorValue(errValue("TEXT: unsupported format code"))
		}
	}
	if !emitted && digits != "" && !sectionIsTextOnly(section) {
		sb.WriteString(digits)
	}
	return newStringValue(sb.String())
}

// sectionIsTextOnly reports whether a section has no numeric tokens at
// all (a pure literal format like `"n/a"`).
func sectionIsTextOnly(section nfp.Section) bool {
	for _, token := range section.Items {
		switch token.TType {
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeHashPlaceHolder,
			nfp.TokenTypeDigitalPlaceHolder, nfp.TokenTypeGeneral,
			nfp.TokenTypeDecimalPoint:
			return false
		}
	}
	return true
}

// scanPattern derives the digit shape of a section and rejects tokens the
// engine core does not format.
func scanPattern(section nfp.Section) (numberPattern, bool) {
	var pattern numberPattern
	afterDecimal := false
	for _, token := range section.Items {
		switch token.TType {
		case nfp.TokenTypeZeroPlaceHolder, nfp.TokenTypeDigitalPlaceHolder:
			if afterDecimal {
				pattern.decimals += len(token.TValue)
			} else {
				pattern.intZeros += len(token.TValue)
			}
		case nfp.TokenTypeHashPlaceHolder:
			if afterDecimal {
				pattern.decimals += len(token.TValue)
			}
		case nfp.TokenTypeDecimalPoint:
			afterDecimal = true
		case nfp.TokenTypeThousandsSeparator:
			pattern.thousands = true
		case nfp.TokenTypePercent:
			pattern.percent = true
		case nfp.TokenTypeLiteral, nfp.TokenTypeGeneral, nfp.TokenTypeTextPlaceHolder:
			// passthrough tokens
		default:
			return numberPattern{}, false
		}
	}
	return pattern, true
}

// formatDigits renders the numeric image: rounded to the pattern's
// decimals, integer part zero-padded, thousands groups inserted on
// demand.
func formatDigits(n float64, pattern numberPattern) string {
	s := strconv.FormatFloat(n, 'f', pattern.decimals, 64)
	intPart, fracPart := s, ""
	if idx := strings.IndexByte(s, '.'); idx >= 0 {
		intPart, fracPart = s[:idx], s[idx+1:]
	}
	for len(intPart) < pattern.intZeros {
		intPart = "0" + intPart
	}
	if pattern.thousands {
		intPart = groupThousands(intPart)
	}
	if pattern.decimals > 0 {
		return intPart + "." + fracPart
	}
	return intPart
}

func groupThousands(digits string) string {
	var sb strings.Builder
	for i, ch := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			sb.WriteByte(',')
		}
		sb.WriteRune(ch)
	}
	return sb.String()
}

// formatTextSection renders a text value through the @ placeholder
// section.
func formatTextSection(section nfp.Section, text string) Value {
	var sb strings.Builder
	for _, token := range section.Items {
		switch token.TType {
		case nfp.TokenTypeTextPlaceHolder:
			sb.WriteString(text)
		case nfp.TokenTypeLiteral:
			sb.WriteString(token.TValue)
		default:
			return newErrorValue(errValue("TEXT: unsupported format code"))
		}
	}
	return newStringValue(sb.String())
}
