package raster

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"math"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
)

// Staged raster file layout: 4-byte magic, uint32 header length, JSON
// Grid header, then float32 little-endian samples in row-major order.
// Intermediate layers are staged per run for inspection and export;
// rendering to imagery formats is out of scope here.
var fileMagic = [4]byte{'R', 'A', 'S', '1'}

// WriteFile stages a raster to path atomically (temp file + rename).
func WriteFile(r Raster, path string) error {
	header, err := json.Marshal(r.Grid)
	if err != nil {
		return eris.Wrap(err, "raster: marshal grid header")
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".raster-*")
	if err != nil {
		return eris.Wrap(err, "raster: create temp file")
	}
	defer os.Remove(tmp.Name())

	w := bufio.NewWriter(tmp)
	if _, err := w.Write(fileMagic[:]); err != nil {
		tmp.Close()
		return eris.Wrap(err, "raster: write magic")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(header))); err != nil {
		tmp.Close()
		return eris.Wrap(err, "raster: write header length")
	}
	if _, err := w.Write(header); err != nil {
		tmp.Close()
		return eris.Wrap(err, "raster: write header")
	}
	buf := make([]byte, 4)
	for _, v := range r.Data {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(float32(v)))
		if _, err := w.Write(buf); err != nil {
			tmp.Close()
			return eris.Wrap(err, "raster: write samples")
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		return eris.Wrap(err, "raster: flush")
	}
	if err := tmp.Close(); err != nil {
		return eris.Wrap(err, "raster: close temp file")
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "raster: publish %s", path)
	}
	return nil
}

// ReadFile loads a raster staged by WriteFile.
func ReadFile(path string) (Raster, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Raster{}, eris.Wrapf(err, "raster: read %s", path)
	}
	if len(data) < 8 || [4]byte(data[:4]) != fileMagic {
		return Raster{}, eris.Errorf("raster: %s is not a staged raster", path)
	}
	hlen := binary.LittleEndian.Uint32(data[4:8])
	if len(data) < int(8+hlen) {
		return Raster{}, eris.Errorf("raster: %s truncated header", path)
	}
	var grid Grid
	if err := json.Unmarshal(data[8:8+hlen], &grid); err != nil {
		return Raster{}, eris.Wrapf(err, "raster: parse grid header in %s", path)
	}
	body := data[8+hlen:]
	n := grid.Width * grid.Height
	if len(body) != n*4 {
		return Raster{}, eris.Errorf("raster: %s has %d sample bytes, want %d", path, len(body), n*4)
	}
	samples := make([]float64, n)
	for i := 0; i < n; i++ {
		samples[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(body[i*4:])))
	}
	return Raster{Grid: grid, Data: samples}, nil
}
