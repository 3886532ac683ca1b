package export

import (
	"encoding/csv"
	"fmt"
	"os"

	"polymarket-scraper/internal/model"
)

// WriteCSV writes one row per event. The header is written even when the
// snapshot holds no events.
func (e *Exporter) WriteCSV(snap model.Snapshot) (string, error) {
	path, err := e.filePath("polymarket_events", snap, FormatCSV)
	if err != nil {
		return "", err
	}

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create csv: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(rowHeader); err != nil {
		return "", err
	}
	for _, ev := range snap.Events {
		if err := writer.Write(newEventRow(ev, snap.Timestamp).strings()); err != nil {
			return "", err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return "", fmt.Errorf("write csv: %w", err)
	}
	return path, nil
}
