package analysis

import (
	"fmt"

	"surveyhub/survey-backend/internal/survey"

	"github.com/xuri/excelize/v2"
)

// writeWorkbook lays the report out as one sheet per grouping plus an
// overview sheet.
func writeWorkbook(parent survey.Survey, report Report) ([]byte, error) {
	f := excelize.NewFile()
	defer func() {
		_ = f.Close()
	}()

	overview := "Overview"
	if err := f.SetSheetName("Sheet1", overview); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(overview, "A1", "Survey"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(overview, "B1", parent.Name); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(overview, "A2", "Responses"); err != nil {
		return nil, err
	}
	if err := f.SetCellValue(overview, "B2", report.ResponseCount); err != nil {
		return nil, err
	}

	if err := writeBucketSheet(f, "Dimensions", report.Summary.Dimensions); err != nil {
		return nil, err
	}
	if err := writeBucketSheet(f, "Areas", report.Summary.Areas); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeBucketSheet(f *excelize.File, name string, buckets []Bucket) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}

	headers := map[string]string{"A1": "Tag", "B1": "Average", "C1": "Count"}
	for cell, value := range headers {
		if err := f.SetCellValue(name, cell, value); err != nil {
			return err
		}
	}

	for i, b := range buckets {
		row := i + 2
		if err := f.SetCellValue(name, fmt.Sprintf("A%d", row), b.Tag); err != nil {
			return err
		}
		if err := f.SetCellValue(name, fmt.Sprintf("B%d", row), b.Average); err != nil {
			return err
		}
		if err := f.SetCellValue(name, fmt.Sprintf("C%d", row), b.Count); err != nil {
			return err
		}
	}

	return nil
}
