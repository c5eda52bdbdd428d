package index

import (
	"bufio"
	"context"
	"encoding/binary"
	"io"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/gerri/pkg/domain/types"
	"github.com/secmon-lab/gerri/pkg/utils/safe"
)

// Binary index file layout: magic, version, dimension (uint32), vector
// count (uint64), then count*dimension float32 values in little-endian
// order. Vectors round-trip bit for bit; records are persisted separately
// as the dataset JSON.
var indexMagic = [8]byte{'G', 'E', 'R', 'R', 'I', 'V', 'E', 'C'}

const indexFormatVersion uint32 = 1

// Save writes the current generation's vectors to path. The associated
// dataset is not persisted here.
func (x *Index) Save(path string) error {
	gen := x.gen.Load()
	if gen == nil {
		return goerr.Wrap(types.ErrIndexNotBuilt, "nothing to save")
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return goerr.Wrap(err, "failed to create index file", goerr.V("path", path))
	}
	defer safe.Close(context.Background(), f)

	w := bufio.NewWriter(f)
	if _, err := w.Write(indexMagic[:]); err != nil {
		return goerr.Wrap(err, "failed to write index header", goerr.V("path", path))
	}
	for _, v := range []any{indexFormatVersion, uint32(gen.dimension), uint64(len(gen.vectors))} {
		if err := binary.Write(w, binary.LittleEndian, v); err != nil {
			return goerr.Wrap(err, "failed to write index header", goerr.V("path", path))
		}
	}
	for _, vec := range gen.vectors {
		if err := binary.Write(w, binary.LittleEndian, vec); err != nil {
			return goerr.Wrap(err, "failed to write index vectors", goerr.V("path", path))
		}
	}
	if err := w.Flush(); err != nil {
		return goerr.Wrap(err, "failed to flush index file", goerr.V("path", path))
	}
	return nil
}

// Load reads a vector set written by Save and installs it as a new
// generation with no dataset attached. Callers must AttachDataset before
// searches can return records; Load itself only validates structure.
func (x *Index) Load(path string) error {
	// #nosec G304 - path is expected to be provided by CLI argument
	f, err := os.Open(path)
	if err != nil {
		return goerr.Wrap(err, "failed to open index file", goerr.V("path", path))
	}
	defer safe.Close(context.Background(), f)

	r := bufio.NewReader(f)

	var magic [8]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil || magic != indexMagic {
		return goerr.New("not an index file", goerr.V("path", path))
	}

	var version, dimension uint32
	var count uint64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return goerr.Wrap(err, "failed to read index header", goerr.V("path", path))
	}
	if version != indexFormatVersion {
		return goerr.New("unsupported index format version",
			goerr.V("path", path),
			goerr.V("version", version),
		)
	}
	if err := binary.Read(r, binary.LittleEndian, &dimension); err != nil {
		return goerr.Wrap(err, "failed to read index header", goerr.V("path", path))
	}
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return goerr.Wrap(err, "failed to read index header", goerr.V("path", path))
	}
	if dimension == 0 || count == 0 {
		return goerr.New("index file holds no vectors", goerr.V("path", path))
	}

	// The header's count is untrusted until the payload size backs it up;
	// allocating from it directly would let a corrupt file exhaust memory.
	fi, err := f.Stat()
	if err != nil {
		return goerr.Wrap(err, "failed to stat index file", goerr.V("path", path))
	}
	const headerSize = 8 + 4 + 4 + 8
	payload := uint64(fi.Size()) - headerSize
	if count > payload/(uint64(dimension)*4) {
		return goerr.New("index file is truncated",
			goerr.V("path", path),
			goerr.V("count", count),
			goerr.V("dimension", dimension),
			goerr.V("size", fi.Size()),
		)
	}

	vectors := make([][]float32, count)
	for i := range vectors {
		vec := make([]float32, dimension)
		if err := binary.Read(r, binary.LittleEndian, vec); err != nil {
			return goerr.Wrap(err, "index file is truncated",
				goerr.V("path", path),
				goerr.V("vector", i),
			)
		}
		vectors[i] = vec
	}

	x.gen.Store(&generation{
		dimension: int(dimension),
		vectors:   vectors,
	})
	return nil
}
