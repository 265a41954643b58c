package importer

import "strings"

// Tokenize splits raw text into logical CSV rows. A double quote toggles the
// "inside quoted field" state so commas inside quotes do not split a field;
// one layer of surrounding quotes is stripped from each field. Blank lines
// produce no row. Malformed quoting never fails: an unterminated quote simply
// runs to the end of its line.
func Tokenize(text string) [][]string {
	var rows [][]string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, tokenizeLine(line))
	}
	return rows
}

func tokenizeLine(line string) []string {
	var fields []string
	var b strings.Builder
	inQuotes := false

	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
			b.WriteRune(r)
		case r == ',' && !inQuotes:
			fields = append(fields, cleanField(b.String()))
			b.Reset()
		default:
			b.WriteRune(r)
		}
	}
	fields = append(fields, cleanField(b.String()))
	return fields
}

// cleanField trims whitespace and strips one leading and one trailing quote.
// The two sides are independent, so an unterminated quoted field still loses
// its opening quote.
func cleanField(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, `"`)
	s = strings.TrimSuffix(s, `"`)
	return strings.TrimSpace(s)
}
