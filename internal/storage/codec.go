package storage

import (
	"encoding/json"
	"errors"

	"enervolve/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

func EncodeRun(run model.RunRecord) ([]byte, error) {
	return json.Marshal(run)
}

func DecodeRun(data []byte) (model.RunRecord, error) {
	var run model.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return model.RunRecord{}, err
	}
	if err := checkVersion(run.VersionedRecord); err != nil {
		return model.RunRecord{}, err
	}
	return run, nil
}

func EncodeGenotype(g model.Genotype) ([]byte, error) {
	return json.Marshal(g)
}

func DecodeGenotype(data []byte) (model.Genotype, error) {
	var genotype model.Genotype
	if err := json.Unmarshal(data, &genotype); err != nil {
		return model.Genotype{}, err
	}
	if err := checkVersion(genotype.VersionedRecord); err != nil {
		return model.Genotype{}, err
	}
	return genotype, nil
}

func EncodeFrontier(frontier []model.FrontierRecord) ([]byte, error) {
	return json.Marshal(frontier)
}

func DecodeFrontier(data []byte) ([]model.FrontierRecord, error) {
	var frontier []model.FrontierRecord
	if err := json.Unmarshal(data, &frontier); err != nil {
		return nil, err
	}
	return frontier, nil
}

func EncodeDiagnostics(diagnostics []model.GenerationDiagnostics) ([]byte, error) {
	return json.Marshal(diagnostics)
}

func DecodeDiagnostics(data []byte) ([]model.GenerationDiagnostics, error) {
	var diagnostics []model.GenerationDiagnostics
	if err := json.Unmarshal(data, &diagnostics); err != nil {
		return nil, err
	}
	return diagnostics, nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
