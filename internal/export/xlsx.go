// Package export renders processing results as xlsx workbooks for
// download or CLI output.
package export

import (
	"bytes"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/taperedplus/design-intake/internal/model"
)

// DefaultFilename is the download name served over HTTP.
const DefaultFilename = "Technical_Parameters.xlsx"

// Workbook writes an xlsx workbook with a "Parameters" sheet (header row
// in canonical parameter order plus one value row) and, when rawText is
// non-empty, a "Full Response" sheet carrying the combined extracted
// text.
func Workbook(params model.ParameterSet, rawText string, w io.Writer) error {
	f := xlsx.NewFile()

	sheet, err := f.AddSheet("Parameters")
	if err != nil {
		return eris.Wrap(err, "export: add parameters sheet")
	}

	header := sheet.AddRow()
	values := sheet.AddRow()
	for _, key := range model.ParameterKeys {
		header.AddCell().SetString(key)
		v, ok := params[key]
		if !ok {
			v = model.NotFound
		}
		values.AddCell().SetString(v)
	}

	if rawText != "" {
		full, err := f.AddSheet("Full Response")
		if err != nil {
			return eris.Wrap(err, "export: add full response sheet")
		}
		full.AddRow().AddCell().SetString("Extracted Text")
		full.AddRow().AddCell().SetString(rawText)
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}

// Bytes renders the workbook into memory, for HTTP responses.
func Bytes(params model.ParameterSet, rawText string) ([]byte, error) {
	var buf bytes.Buffer
	if err := Workbook(params, rawText, &buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteFile renders the workbook to path, for the CLI.
func WriteFile(params model.ParameterSet, rawText, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()
	return Workbook(params, rawText, f)
}
