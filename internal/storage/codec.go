package storage

import (
	"encoding/json"
	"errors"

	"smod/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// Stamp sets the current versions on a record about to be persisted.
func Stamp(record model.ModelRecord) model.ModelRecord {
	record.SchemaVersion = CurrentSchemaVersion
	record.CodecVersion = CurrentCodecVersion
	return record
}

func EncodeModel(record model.ModelRecord) ([]byte, error) {
	return json.Marshal(record)
}

func DecodeModel(data []byte) (model.ModelRecord, error) {
	var record model.ModelRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return model.ModelRecord{}, err
	}
	if err := checkVersion(record.VersionedRecord); err != nil {
		return model.ModelRecord{}, err
	}
	return record, nil
}

// encodeHeader drops the parts the sqlite store keeps in their own tables.
func encodeHeader(record model.ModelRecord) ([]byte, error) {
	record.Clusters = nil
	record.Estimator.Weights = nil
	return json.Marshal(record)
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
