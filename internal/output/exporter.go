// Package output writes forecasts to files, object storage and Kafka.
package output

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/chrisdamba/prepcast/internal/cloudwriter"
	"github.com/chrisdamba/prepcast/internal/models"
)

// Exporter writes the files of one forecast run into basePath/folder.
type Exporter struct {
	basePath string
	folder   string
	format   string
	stamp    string

	cloudWriterFactory cloudwriter.CloudWriterFactory
	cloudBucketName    string
	cloudPrefix        string
}

// NewExporter names every file after the run: <kind>_<timestamp>_<runID>.<ext>.
func NewExporter(config *models.Config, runID string, now time.Time) *Exporter {
	return &Exporter{
		basePath: config.OutputPath,
		folder:   config.OutputFolder,
		format:   config.OutputFormat,
		stamp:    now.Format("20060102_150405") + "_" + runID,
	}
}

// WithCloud uploads every exported file to bucket under prefix.
func (e *Exporter) WithCloud(factory cloudwriter.CloudWriterFactory, bucket, prefix string) *Exporter {
	e.cloudWriterFactory = factory
	e.cloudBucketName = bucket
	e.cloudPrefix = prefix
	return e
}

// Export writes the hourly and daily forecasts, the daily prep needs and the
// traffic report. It returns the paths written so far, also on error.
func (e *Exporter) Export(result *models.ForecastResult, prep models.PrepRecommendation, traffic []models.TrafficRecommendation) ([]string, error) {
	dir := filepath.Join(e.basePath, e.folder)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return nil, err
	}

	var files []string
	add := func(name string, write func(path string) error) error {
		path := filepath.Join(dir, name)
		if err := write(path); err != nil {
			return fmt.Errorf("failed to write %s: %w", path, err)
		}
		files = append(files, path)
		return nil
	}

	if e.format == "csv" || e.format == "both" {
		tables := []struct {
			name  string
			table *models.UsageTable
		}{
			{"ingredient_forecast", result.Hourly},
			{"daily_ingredient_forecast", result.Daily},
			{"daily_ingredient_needs", prep.DailyNeeds},
		}
		for _, t := range tables {
			if t.table.Empty() {
				continue
			}
			table := t.table
			err := add(fmt.Sprintf("%s_%s.csv", t.name, e.stamp), func(path string) error {
				return writeFile(path, func(w io.Writer) error { return WriteTableCSV(w, table) })
			})
			if err != nil {
				return files, err
			}
		}
	}

	if e.format == "parquet" || e.format == "both" {
		err := add(fmt.Sprintf("ingredient_forecast_%s.parquet", e.stamp), func(path string) error {
			return WriteTableParquet(path, result.Hourly, result.Methods)
		})
		if err != nil {
			return files, err
		}
		err = add(fmt.Sprintf("daily_ingredient_forecast_%s.parquet", e.stamp), func(path string) error {
			return WriteTableParquet(path, result.Daily, result.Methods)
		})
		if err != nil {
			return files, err
		}
	}

	if len(traffic) > 0 {
		err := add(fmt.Sprintf("traffic_recommendations_%s.txt", e.stamp), func(path string) error {
			return writeFile(path, func(w io.Writer) error { return WriteTrafficReport(w, traffic) })
		})
		if err != nil {
			return files, err
		}
	}

	if e.cloudWriterFactory != nil {
		for _, path := range files {
			key, err := cloudwriter.UploadFile(e.cloudWriterFactory, e.cloudBucketName, e.cloudPrefix, path)
			if err != nil {
				return files, err
			}
			log.Printf("Uploaded %s to %s/%s", path, e.cloudBucketName, key)
		}
	}
	return files, nil
}

func writeFile(path string, write func(w io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(file); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}
