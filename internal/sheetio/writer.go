package sheetio

// Write persists rows in the format implied by path's extension.
func Write(path string, header []string, rows [][]string, kinds []Kind) error {
	switch DetectFormat(path) {
	case FormatXLSX:
		return WriteXLSX(path, header, rows, kinds)
	case FormatSQLite:
		return WriteSQLite(path, header, rows)
	default:
		return WriteCSV(path, header, rows)
	}
}
