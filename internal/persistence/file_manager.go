package persistence

import (
	"os"
	"time"

	json "github.com/goccy/go-json"

	"gsd/internal/persistence/interfaces"
	"gsd/internal/providers"
	"gsd/internal/store"
)

// FileManager writes compressed snapshots of an in-memory store and reads
// them back. Writes go through a temp file and a rename, so a crash mid-save
// never corrupts the previous snapshot.
type FileManager struct {
	compressor interfaces.CompressorInterface
	logger     providers.Logger
	metrics    providers.MetricsProviderInterface
}

func NewFileManager(compressor interfaces.CompressorInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) *FileManager {
	return &FileManager{
		compressor: compressor,
		logger:     logger,
		metrics:    metrics,
	}
}

func (f *FileManager) SaveToFile(fileName string, st *store.MemStore) error {
	start := time.Now()
	snapshot := st.Snapshot()

	jsonData, err := json.Marshal(snapshot)
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

	if err = os.Rename(tmpFile, fileName); err != nil {
		return err
	}
	f.metrics.ObservePersistenceDuration(time.Since(start))
	return nil
}

// LoadFromFile restores a snapshot into st. A missing file is not an error:
// the store simply starts empty.
func (f *FileManager) LoadFromFile(fileName string, st *store.MemStore) error {
	data, err := os.ReadFile(fileName)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	decompressedData, err := f.compressor.Decompress(data)
	if err != nil {
		return err
	}

	var snapshot store.Snapshot
	if err := json.Unmarshal(decompressedData, &snapshot); err != nil {
		return err
	}
	st.Restore(&snapshot)
	return nil
}
