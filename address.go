// Copyright 2025 The quicksheet Authors. All rights reserved. Use of
// this source code is governed by a BSD-style license that can be found in
// the LICENSE file.

package calc

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// CellAddress identifies one cell within one sheet. Row and Col are
// 0-indexed. SheetName is carried redundantly so error messages and
// reference formatting need no further index lookup; equality is by
// (SheetID, Row, Col).
type CellAddress struct {
	SheetID   int
	SheetName string
	Row       int
	Col       int
}

// CellAddressKey is the deterministic map key "sheetID|row|col" for a cell
// address. The encoding is injective.
type CellAddressKey string

// Key returns the CellAddressKey for the address.
func (a CellAddress) Key() CellAddressKey {
	return createCellAddressKey(a)
}

// createCellAddressKey encodes an address as "sheetID|row|col".
func createCellAddressKey(a CellAddress) CellAddressKey {
	return CellAddressKey(strconv.Itoa(a.SheetID) + "|" + strconv.Itoa(a.Row) + "|" + strconv.Itoa(a.Col))
}

// SameCell reports whether two addresses identify the same cell.
func (a CellAddress) SameCell(b CellAddress) bool {
	return a.SheetID == b.SheetID && a.Row == b.Row && a.Col == b.Col
}

// CellRange is a half-open rectangle: EndCol > StartCol and
// EndRow > StartRow. Reference AST nodes carry inclusive start/end
// addresses instead; convert at the boundary.
type CellRange struct {
	StartCol int
	StartRow int
	EndCol   int
	EndRow   int
}

// Width returns the number of columns covered by the range.
func (r CellRange) Width() int { return r.EndCol - r.StartCol }

// Height returns the number of rows covered by the range.
func (r CellRange) Height() int { return r.EndRow - r.StartRow }

// RangeReference is the result of parsing a textual reference without
// resolving the sheet name: the half-open range plus the sheet prefix, if
// one was present.
type RangeReference struct {
	Range     CellRange
	SheetName string
	HasSheet  bool
}

// ParseContext carries what reference resolution needs: the sheet the
// formula lives on and the workbook index for cross-sheet prefixes.
type ParseContext struct {
	DefaultSheetID   int
	DefaultSheetName string
	Index            *WorkbookIndex
}

var bareSheetNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// columnNameToIndex converts base-26 bijective column letters to a
// 0-indexed column: A=0 ... Z=25, AA=26.
func columnNameToIndex(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	col := 0
	for _, ch := range name {
		switch {
		case ch >= 'A' && ch <= 'Z':
			col = col*26 + int(ch-'A') + 1
		case ch >= 'a' && ch <= 'z':
			col = col*26 + int(ch-'a') + 1
		default:
			return 0, false
		}
	}
	return col - 1, true
}

// columnIndexToName converts a 0-indexed column to its letters.
func columnIndexToName(col int) string {
	if col < 0 {
		return ""
	}
	name := ""
	n := col + 1
	for n > 0 {
		n--
		name = string(rune('A'+n%26)) + name
		n /= 26
	}
	return name
}

// formatCellName renders a 0-indexed (col, row) pair as an A1 cell name.
func formatCellName(col, row int) string {
	return columnIndexToName(col) + strconv.Itoa(row+1)
}

// splitSheetPrefix splits "Sheet!rest" or "'Quoted Sheet'!rest" from a
// reference. A doubled apostrophe inside a quoted name is an escaped
// apostrophe. Returns the rest unchanged when no prefix is present.
func splitSheetPrefix(text string) (sheet, rest string, hasSheet bool, err *EvalError) {
	if strings.HasPrefix(text, "'") {
		var name strings.Builder
		i := 1
		for i < len(text) {
			if text[i] == '\'' {
				if i+1 < len(text) && text[i+1] == '\'' {
					name.WriteByte('\'')
					i += 2
					continue
				}
				break
			}
			name.WriteByte(text[i])
			i++
		}
		if i >= len(text) || text[i] != '\'' {
			return "", "", false, errRef(fmt.Sprintf("unterminated sheet name in %q", text))
		}
		i++
		if i >= len(text) || text[i] != '!' {
			return "", "", false, errRef(fmt.Sprintf("missing '!' after sheet name in %q", text))
		}
		return name.String(), text[i+1:], true, nil
	}
	if idx := strings.IndexByte(text, '!'); idx >= 0 {
		return text[:idx], text[idx+1:], true, nil
	}
	return "", text, false, nil
}

// parseColumnRow parses the "Col Row" tail of a reference, e.g. "B12".
// Absolute markers ($) are accepted and ignored. The result is 0-indexed.
func parseColumnRow(text string) (col, row int, err *EvalError) {
	text = strings.ReplaceAll(text, "$", "")
	i := 0
	for i < len(text) && ((text[i] >= 'A' && text[i] <= 'Z') || (text[i] >= 'a' && text[i] <= 'z')) {
		i++
	}
	colName, rowText := text[:i], text[i:]
	if colName == "" {
		return 0, 0, errRef(fmt.Sprintf("missing column in reference %q", text))
	}
	if rowText == "" {
		return 0, 0, errRef(fmt.Sprintf("missing row in reference %q", text))
	}
	c, ok := columnNameToIndex(colName)
	if !ok {
		return 0, 0, errRef(fmt.Sprintf("invalid column %q", colName))
	}
	r, convErr := strconv.Atoi(rowText)
	if convErr != nil || r <= 0 {
		return 0, 0, errRef(fmt.Sprintf("invalid row %q", rowText))
	}
	return c, r - 1, nil
}

// ParseCellReference resolves a single-cell reference "[Sheet!]ColRow"
// against the workbook index. Unknown sheet names, empty column or row and
// rows below 1 fail with #REF!.
func ParseCellReference(text string, ctx ParseContext) (CellAddress, *EvalError) {
	sheet, rest, hasSheet, err := splitSheetPrefix(strings.TrimSpace(text))
	if err != nil {
		return CellAddress{}, err
	}
	sheetID, sheetName := ctx.DefaultSheetID, ctx.DefaultSheetName
	if hasSheet {
		desc, ok := ctx.Index.LookupName(sheet)
		if !ok {
			return CellAddress{}, errRef(fmt.Sprintf("unknown sheet %q", sheet))
		}
		sheetID, sheetName = desc.ID, desc.Name
	}
	col, row, err := parseColumnRow(rest)
	if err != nil {
		return CellAddress{}, err
	}
	return CellAddress{SheetID: sheetID, SheetName: sheetName, Row: row, Col: col}, nil
}

// ParseReferenceToCellRange parses "A1", "A1:B3" or "Sheet!A1:B3" into a
// half-open range without resolving the sheet name. The single-cell form
// yields a 1x1 range; an unnormalised range (start below end) is
// normalised here.
func ParseReferenceToCellRange(text string) (RangeReference, *EvalError) {
	sheet, rest, hasSheet, err := splitSheetPrefix(strings.TrimSpace(text))
	if err != nil {
		return RangeReference{}, err
	}
	startText, endText := rest, ""
	if idx := strings.IndexByte(rest, ':'); idx >= 0 {
		startText, endText = rest[:idx], rest[idx+1:]
	}
	startCol, startRow, err := parseColumnRow(startText)
	if err != nil {
		return RangeReference{}, err
	}
	endCol, endRow := startCol, startRow
	if endText != "" {
		if endCol, endRow, err = parseColumnRow(endText); err != nil {
			return RangeReference{}, err
		}
	}
	if endCol < startCol {
		startCol, endCol = endCol, startCol
	}
	if endRow < startRow {
		startRow, endRow = endRow, startRow
	}
	return RangeReference{
		Range:     CellRange{StartCol: startCol, StartRow: startRow, EndCol: endCol + 1, EndRow: endRow + 1},
		SheetName: sheet,
		HasSheet:  hasSheet,
	}, nil
}

// quoteSheetName wraps a sheet name in single quotes when it does not
// match the bare-identifier form, doubling embedded apostrophes.
func quoteSheetName(name string) string {
	if bareSheetNamePattern.MatchString(name) {
		return name
	}
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}

// FormatReferenceFromRange renders a half-open range as "A1" for single
// cells or "A1:B3" otherwise, with an optional sheet prefix.
func FormatReferenceFromRange(r CellRange, sheetName string) string {
	ref := formatCellName(r.StartCol, r.StartRow)
	if r.Width() > 1 || r.Height() > 1 {
		ref += ":" + formatCellName(r.EndCol-1, r.EndRow-1)
	}
	if sheetName != "" {
		return quoteSheetName(sheetName) + "!" + ref
	}
	return ref
}
