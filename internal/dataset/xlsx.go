package dataset

import (
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
)

// LoadCrimeXLSX reads crime incidents from the first sheet of an XLSX file
// with a header row.
func LoadCrimeXLSX(path string) ([]CrimeRecord, error) {
	header, rows, err := readXLSXRows(path)
	if err != nil {
		return nil, err
	}
	return parseCrimeRows(path, header, rows)
}

// LoadLightingXLSX reads lighting samples from the first sheet of an XLSX
// file with a header row.
func LoadLightingXLSX(path string) ([]LightingRecord, error) {
	header, rows, err := readXLSXRows(path)
	if err != nil {
		return nil, err
	}
	return parseLightingRows(path, header, rows)
}

// LoadPopulationXLSX reads population/traffic cells from the first sheet of
// an XLSX file with a header row.
func LoadPopulationXLSX(path string) ([]PopulationRecord, error) {
	header, rows, err := readXLSXRows(path)
	if err != nil {
		return nil, err
	}
	return parsePopulationRows(path, header, rows)
}

func readXLSXRows(path string) ([]string, [][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, nil, eris.Wrapf(err, "dataset: open xlsx %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, nil, eris.Errorf("dataset: xlsx %s has no sheets", path)
	}

	sheet := f.Sheets[0]
	if len(sheet.Rows) == 0 {
		return nil, nil, eris.Errorf("dataset: xlsx %s is empty", path)
	}

	all := make([][]string, 0, len(sheet.Rows))
	for _, row := range sheet.Rows {
		cells := make([]string, len(row.Cells))
		for j, c := range row.Cells {
			cells[j] = c.String()
		}
		all = append(all, cells)
	}
	return all[0], all[1:], nil
}
