package mmapmovie

import (
	"encoding/binary"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"mmapmovie/internal/pathutil"
	"mmapmovie/pkg/movie"
)

// Metadata is the companion record describing a materialized movie file.
// It is stored next to the data file, never inside it.
type Metadata struct {
	// NumRows, NumCols, NumFrames are the movie dimensions
	NumRows   int `yaml:"numRows"`
	NumCols   int `yaml:"numCols"`
	NumFrames int `yaml:"numFrames"`

	// DataType is the on-disk element type
	DataType movie.DataType `yaml:"dataType"`

	// ByteOrder is "little" or "big", the endianness of the writing host
	ByteOrder string `yaml:"byteOrder"`
}

// MetadataFor describes src as it would be materialized on this host
func MetadataFor(src movie.Source) Metadata {
	return Metadata{
		NumRows:   src.NumRows(),
		NumCols:   src.NumCols(),
		NumFrames: src.NumFrames(),
		DataType:  src.DataType(),
		ByteOrder: HostByteOrder(),
	}
}

// NumBytes is the exact length of the data file the record describes
func (md Metadata) NumBytes() int64 {
	return movie.NumBytes(md.NumRows, md.NumCols, md.NumFrames, md.DataType)
}

// HostByteOrder returns "little" or "big"
func HostByteOrder() string {
	var b [2]byte
	binary.NativeEndian.PutUint16(b[:], 1)
	if b[0] == 1 {
		return "little"
	}
	return "big"
}

// MetadataPath returns where the record for the data file at path lives
func MetadataPath(path string) string {
	return path + ".yaml"
}

// WriteMetadata stores md as the record for the data file at path
func WriteMetadata(path string, md Metadata) error {
	data, err := yaml.Marshal(md)
	if err != nil {
		return fmt.Errorf("error marshaling movie metadata: %w", err)
	}
	if err := os.WriteFile(MetadataPath(path), data, 0644); err != nil {
		return fmt.Errorf("error writing movie metadata: %w", err)
	}
	return nil
}

// ReadMetadata loads the record for the data file at path
func ReadMetadata(path string) (Metadata, error) {
	var md Metadata
	data, err := os.ReadFile(MetadataPath(path))
	if err != nil {
		return md, fmt.Errorf("error reading movie metadata: %w", err)
	}
	if err := yaml.Unmarshal(data, &md); err != nil {
		return md, fmt.Errorf("error parsing movie metadata: %w", err)
	}
	return md, nil
}

// MaterializeWithMetadata materializes src to path and records its shape
// alongside it. The record is only written once the data file is complete.
func MaterializeWithMetadata(src movie.Source, path string) (Metadata, error) {
	md := MetadataFor(src)
	if err := pathutil.RemoveIfExists(MetadataPath(path)); err != nil {
		return md, err
	}
	if err := Materialize(src, path); err != nil {
		return md, err
	}
	if err := WriteMetadata(path, md); err != nil {
		return md, err
	}
	return md, nil
}

// ExtractPatchFromMetadata extracts roi from the data file at path using the
// shape stored in its companion record.
func ExtractPatchFromMetadata(path string, roi movie.ROI) (*movie.Patch, error) {
	md, err := ReadMetadata(path)
	if err != nil {
		return nil, err
	}
	return ExtractPatchWith(path, md, roi)
}

// ExtractPatchWith extracts roi from the data file at path described by md
func ExtractPatchWith(path string, md Metadata, roi movie.ROI) (*movie.Patch, error) {
	if md.ByteOrder != "" && md.ByteOrder != HostByteOrder() {
		return nil, fail(opExtract, path, ErrByteOrder,
			fmt.Sprintf("file is %s-endian, host is %s-endian", md.ByteOrder, HostByteOrder()), nil)
	}
	return ExtractPatch(path, md.NumRows, md.NumCols, md.NumFrames, md.DataType, roi)
}

// Remove deletes the data file at path and its companion record.
// Missing files are ignored.
func Remove(path string) error {
	return pathutil.RemoveFiles(path, MetadataPath(path))
}
