package scaffold

import (
	"math"
	"strconv"
	"strings"

	"abmconf/internal/model"
)

// formatNumber renders a float with a trailing .0 on integral values,
// so generated Python reads 100.0 rather than 100.
func formatNumber(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

func parseFloatOrZero(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0.0
	}
	return v
}

func parseIntOrZero(raw string) int {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return v
}

// stripBrackets removes one optional pair of surrounding [ ].
func stripBrackets(raw string) string {
	v := strings.TrimSpace(raw)
	if strings.HasPrefix(v, "[") && strings.HasSuffix(v, "]") {
		v = v[1 : len(v)-1]
	}
	return v
}

// parseFloatArray splits a comma separated list, with optional
// brackets, into floats. Unparseable entries are dropped.
func parseFloatArray(raw string) []float64 {
	var items []float64
	for _, part := range strings.Split(stripBrackets(raw), ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		v, err := strconv.ParseFloat(piece, 64)
		if err != nil {
			continue
		}
		items = append(items, v)
	}
	return items
}

// parseIntArray is parseFloatArray for integer element types. Entries
// that are not plain integers are dropped, including float literals.
func parseIntArray(raw string) []int {
	var items []int
	for _, part := range strings.Split(stripBrackets(raw), ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		v, err := strconv.Atoi(piece)
		if err != nil {
			continue
		}
		items = append(items, v)
	}
	return items
}

// shapeToken is one dimension of a macro property shape. A token is
// either a number or a symbol kept verbatim, such as "?" or the name
// of a constant defined elsewhere in the generated file.
type shapeToken struct {
	sym   string
	num   float64
	isNum bool
}

func parseShapeTokens(raw string) []shapeToken {
	var tokens []shapeToken
	for _, part := range strings.Split(stripBrackets(raw), ",") {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		if piece == "?" {
			tokens = append(tokens, shapeToken{sym: "?"})
			continue
		}
		if v, err := strconv.ParseFloat(piece, 64); err == nil {
			tokens = append(tokens, shapeToken{num: v, isNum: true})
		} else {
			tokens = append(tokens, shapeToken{sym: piece})
		}
	}
	return tokens
}

// formatShapeDimension collapses near integral dimensions to plain
// ints, since buffer shapes are whole numbers.
func formatShapeDimension(v float64) string {
	rounded := math.Round(v)
	if math.Abs(v-rounded) < 1e-9 {
		return strconv.Itoa(int(rounded))
	}
	return formatNumber(v)
}

// safeNumericLiteral formats user input as a number, or returns the ?
// marker when the field is empty or not numeric.
func safeNumericLiteral(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "?"
	}
	v, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return "?"
	}
	return formatNumber(v)
}

// formatLiteral renders a stored value as a Python literal appropriate
// for its declared type. Unparseable scalars degrade to zero values,
// matching what the form editor would have accepted.
func formatLiteral(varType, rawValue string) string {
	if varType == "" {
		varType = model.DefaultVarType
	}
	raw := strings.TrimSpace(rawValue)
	switch varType {
	case model.TypeShape:
		tokens := parseShapeTokens(raw)
		if len(tokens) == 0 {
			return "?"
		}
		formatted := make([]string, 0, len(tokens))
		for _, tok := range tokens {
			if tok.isNum {
				formatted = append(formatted, formatShapeDimension(tok.num))
			} else {
				formatted = append(formatted, tok.sym)
			}
		}
		return strings.Join(formatted, ", ")
	case model.TypeArrayFloat:
		items := parseFloatArray(raw)
		formatted := make([]string, 0, len(items))
		for _, item := range items {
			formatted = append(formatted, formatNumber(item))
		}
		return "[" + strings.Join(formatted, ", ") + "]"
	case model.TypeArrayInt, model.TypeArrayUInt:
		items := parseIntArray(raw)
		formatted := make([]string, 0, len(items))
		for _, item := range items {
			formatted = append(formatted, strconv.Itoa(item))
		}
		return "[" + strings.Join(formatted, ", ") + "]"
	case model.TypeInt:
		return strconv.Itoa(parseIntOrZero(raw))
	case model.TypeUInt8:
		v := parseIntOrZero(raw)
		if v < 0 {
			v = 0
		}
		if v > 255 {
			v = 255
		}
		return strconv.Itoa(v)
	}
	return formatNumber(parseFloatOrZero(raw))
}

// cppTypeFor maps a variable type onto the C++ type used in generated
// agent functions.
func cppTypeFor(varType string) string {
	switch varType {
	case model.TypeInt:
		return "int"
	case model.TypeUInt8:
		return "uint8_t"
	case model.TypeArrayUInt:
		return "int"
	}
	return "float"
}

// arrayElementType is the C++ element type of an array variable.
func arrayElementType(varType string) string {
	switch varType {
	case model.TypeArrayUInt, model.TypeArrayInt:
		return "int"
	}
	return "float"
}

func defaultCppValue(cppType string) string {
	if cppType == "float" || cppType == "double" {
		return "0.0"
	}
	return "0"
}

// indentLines prefixes every non empty line with the function body
// indent. Empty lines stay empty so blocks keep their spacing.
func indentLines(lines []string) string {
	if len(lines) == 0 {
		return ""
	}
	indented := make([]string, 0, len(lines))
	for _, line := range lines {
		if line != "" {
			line = "  " + line
		}
		indented = append(indented, line)
	}
	return strings.Join(indented, "\n")
}
