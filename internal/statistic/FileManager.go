package statistic

import (
	json "github.com/goccy/go-json"
	"os"
	"rewind/internal/models"
	"rewind/internal/providers"
	"rewind/internal/statistic/interfaces"
)

// FileManager persists run snapshots as zstd compressed JSON. The
// snapshot is a portable copy of a finished run, readable without the
// database file.
type FileManager struct {
	compressor interfaces.CompressorInterface
	logger     providers.Logger
}

func NewFileManager(compressor interfaces.CompressorInterface, logger providers.Logger) *FileManager {
	return &FileManager{
		compressor: compressor,
		logger:     logger,
	}
}

func (f *FileManager) SaveToFile(run *models.AnalysisRun, fileName string) error {
	jsonData, err := json.Marshal(run)
	if err != nil {
		return err
	}
	data, err := f.compressor.Compress(jsonData)
	if err != nil {
		return err
	}

	tmpFile := fileName + ".tmp"
	file, err := os.Create(tmpFile)
	if err != nil {
		return err
	}

	_, err = file.Write(data)
	if err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Sync(); err != nil {
		file.Close()
		os.Remove(tmpFile)
		return err
	}

	if err = file.Close(); err != nil {
		os.Remove(tmpFile)
		return err
	}

	return os.Rename(tmpFile, fileName)
}

// LoadFromFile reads a snapshot back. A missing file is not an error,
// it returns a nil run.
func (f *FileManager) LoadFromFile(fileName string) (*models.AnalysisRun, error) {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return nil, err
	}

	var run models.AnalysisRun
	if err := json.Unmarshal(decompressedData, &run); err != nil {
		f.logger.Warnf(providers.TypeApp, "Snapshot %s is not readable: %s", fileName, err)
		return nil, err
	}
	for name, bucket := range run.Buckets {
		if bucket.Data == nil {
			bucket.Data = make(map[string]models.BucketEntry)
		}
		if bucket.Name == "" {
			bucket.Name = name
		}
	}
	return &run, nil
}

func (f *FileManager) Close() {
	f.compressor.Close()
}
