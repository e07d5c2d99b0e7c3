package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"meddispense/m/domain"
)

// LoadCatalog reads a CSV with the columns id,name,category,price,stock,image.
// Malformed rows are skipped and logged; the first row wins for repeated ids.
func LoadCatalog(csvPath string, logger *zap.Logger) ([]domain.Medicine, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return nil, fmt.Errorf("open seed catalog: %w", err)
	}
	defer file.Close()
	return readCatalog(file, logger)
}

func readCatalog(r io.Reader, logger *zap.Logger) ([]domain.Medicine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	// Skip header
	if _, err := reader.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []domain.Medicine{}, nil
		}
		return nil, fmt.Errorf("read seed header: %w", err)
	}

	catalog := []domain.Medicine{}
	seen := make(map[string]struct{})
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			logger.Warn("unable to read seed row", zap.Int("line", line), zap.Error(err))
			continue
		}
		if len(record) < 6 {
			logger.Warn("seed row has too few columns", zap.Int("line", line))
			continue
		}

		id := strings.TrimSpace(record[0])
		name := strings.TrimSpace(record[1])
		if id == "" || name == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			logger.Warn("duplicate seed id ignored", zap.String("id", id), zap.Int("line", line))
			continue
		}
		price, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			logger.Warn("invalid seed price", zap.String("id", id), zap.Error(err))
			continue
		}
		stock, err := strconv.ParseInt(strings.TrimSpace(record[4]), 10, 64)
		if err != nil || stock < 0 {
			logger.Warn("invalid seed stock", zap.String("id", id), zap.String("value", record[4]))
			continue
		}

		seen[id] = struct{}{}
		catalog = append(catalog, domain.Medicine{
			ID:       id,
			Name:     name,
			Category: strings.TrimSpace(record[2]),
			Price:    price,
			Stock:    stock,
			Image:    strings.TrimSpace(record[5]),
		})
	}
	return catalog, nil
}
