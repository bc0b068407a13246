package output

import (
	"fmt"

	"github.com/chrisdamba/prepcast/internal/models"
	"github.com/xitongsys/parquet-go-source/local"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// UsageRow is the long-format Parquet row of a usage table.
type UsageRow struct {
	Timestamp  int64   `parquet:"name=timestamp, type=INT64, convertedtype=TIMESTAMP_MILLIS"`
	Date       string  `parquet:"name=date, type=BYTE_ARRAY, convertedtype=UTF8"`
	Ingredient string  `parquet:"name=ingredient, type=BYTE_ARRAY, convertedtype=UTF8"`
	Quantity   float64 `parquet:"name=quantity, type=DOUBLE"`
	Method     string  `parquet:"name=method, type=BYTE_ARRAY, convertedtype=UTF8"`
}

// UsageRows flattens a table into one row per (index entry, ingredient).
func UsageRows(table *models.UsageTable, methods map[string]models.Method) []UsageRow {
	rows := make([]UsageRow, 0, table.Len()*len(table.Ingredients))
	for i, ts := range table.Index {
		for _, id := range table.Ingredients {
			rows = append(rows, UsageRow{
				Timestamp:  ts.UnixMilli(),
				Date:       models.DateKey(ts),
				Ingredient: id,
				Quantity:   table.Value(i, id),
				Method:     string(methods[id]),
			})
		}
	}
	return rows
}

// WriteTableParquet writes table to a local Parquet file.
func WriteTableParquet(filePath string, table *models.UsageTable, methods map[string]models.Method) error {
	fw, err := local.NewLocalFileWriter(filePath)
	if err != nil {
		return fmt.Errorf("failed to create local file writer: %w", err)
	}
	defer fw.Close()

	pw, err := writer.NewParquetWriter(fw, new(UsageRow), 4)
	if err != nil {
		return fmt.Errorf("failed to create ParquetWriter: %w", err)
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range UsageRows(table, methods) {
		if err := pw.Write(row); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("failed to finish %s: %w", filePath, err)
	}
	return nil
}
