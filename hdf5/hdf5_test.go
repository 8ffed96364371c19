package hdf5

import (
	"encoding/binary"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
)

func tempFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.h5")
}

// u16bytes encodes values as little-endian uint16.
func u16bytes(values []uint16) []byte {
	out := make([]byte, 2*len(values))
	for i, v := range values {
		binary.LittleEndian.PutUint16(out[2*i:], v)
	}
	return out
}

func u16values(data []byte) []uint16 {
	out := make([]uint16, len(data)/2)
	for i := range out {
		out[i] = binary.LittleEndian.Uint16(data[2*i:])
	}
	return out
}

// rampChunk fills a full chunk buffer for the chunk at the given grid
// coordinate, clipping values outside dims to zero padding.
func rampChunk(dims, chunkDims, offset []uint64) []byte {
	values := make([]uint16, chunkDims[0]*chunkDims[1]*chunkDims[2])
	i := 0
	for z := uint64(0); z < chunkDims[0]; z++ {
		for y := uint64(0); y < chunkDims[1]; y++ {
			for x := uint64(0); x < chunkDims[2]; x++ {
				gz, gy, gx := offset[0]+z, offset[1]+y, offset[2]+x
				if gz < dims[0] && gy < dims[1] && gx < dims[2] {
					values[i] = uint16((gz*dims[1]+gy)*dims[2] + gx)
				}
				i++
			}
		}
	}
	return u16bytes(values)
}

func writeAllChunks(t *testing.T, ds *Dataset, dims, chunkDims []uint64) {
	t.Helper()
	for z := uint64(0); z < dims[0]; z += chunkDims[0] {
		for y := uint64(0); y < dims[1]; y += chunkDims[1] {
			for x := uint64(0); x < dims[2]; x += chunkDims[2] {
				offset := []uint64{z, y, x}
				if err := ds.WriteChunk(offset, rampChunk(dims, chunkDims, offset)); err != nil {
					t.Fatalf("WriteChunk(%v): %v", offset, err)
				}
			}
		}
	}
}

func TestChunkedGzipRoundTrip(t *testing.T) {
	path := tempFile(t)
	dims := []uint64{5, 6, 7}
	chunkDims := []uint64{4, 4, 4}

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	g, err := f.Root().CreateGroup("t00000")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	ds, err := g.CreateDataset("cells", dims, Uint16, WithChunks(chunkDims...), WithGzip(6))
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	writeAllChunks(t, ds, dims, chunkDims)
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	rds, err := rf.OpenDataset("/t00000/cells")
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	if got := rds.Shape(); got[0] != 5 || got[1] != 6 || got[2] != 7 {
		t.Fatalf("Shape = %v, want [5 6 7]", got)
	}
	if got := rds.ChunkShape(); got[0] != 4 || got[1] != 4 || got[2] != 4 {
		t.Fatalf("ChunkShape = %v, want [4 4 4]", got)
	}
	if rds.Numeric() != Uint16 {
		t.Fatalf("Numeric = %v, want uint16", rds.Numeric())
	}

	data, err := rds.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	values := u16values(data)
	for i, v := range values {
		if v != uint16(i) {
			t.Fatalf("element %d = %d, want %d", i, v, i)
		}
	}

	slice, err := rds.ReadSlice([]uint64{1, 2, 3}, []uint64{2, 3, 2})
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	sv := u16values(slice)
	i := 0
	for z := uint64(1); z < 3; z++ {
		for y := uint64(2); y < 5; y++ {
			for x := uint64(3); x < 5; x++ {
				want := uint16((z*6+y)*7 + x)
				if sv[i] != want {
					t.Fatalf("slice element %d = %d, want %d", i, sv[i], want)
				}
				i++
			}
		}
	}
}

func TestChunkedUncompressed(t *testing.T) {
	path := tempFile(t)
	dims := []uint64{4, 4, 4}
	chunkDims := []uint64{2, 4, 4}

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ds, err := f.Root().CreateDataset("raw", dims, Uint16, WithChunks(chunkDims...))
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	writeAllChunks(t, ds, dims, chunkDims)
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	rds, err := rf.OpenDataset("raw")
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	data, err := rds.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i, v := range u16values(data) {
		if v != uint16(i) {
			t.Fatalf("element %d = %d, want %d", i, v, i)
		}
	}
}

func TestUnwrittenChunksReadAsZeros(t *testing.T) {
	path := tempFile(t)
	dims := []uint64{4, 4, 4}
	chunkDims := []uint64{2, 2, 2}

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ds, err := f.Root().CreateDataset("sparse", dims, Uint16, WithChunks(chunkDims...), WithGzip(1))
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	// Only the first chunk is written.
	if err := ds.WriteChunk([]uint64{0, 0, 0}, rampChunk(dims, chunkDims, []uint64{0, 0, 0})); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	rds, err := rf.OpenDataset("sparse")
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	data, err := rds.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	values := u16values(data)
	for z := uint64(0); z < 4; z++ {
		for y := uint64(0); y < 4; y++ {
			for x := uint64(0); x < 4; x++ {
				got := values[(z*4+y)*4+x]
				var want uint16
				if z < 2 && y < 2 && x < 2 {
					want = uint16((z*4+y)*4 + x)
				}
				if got != want {
					t.Fatalf("element (%d,%d,%d) = %d, want %d", z, y, x, got, want)
				}
			}
		}
	}
}

func TestContiguousRoundTrip(t *testing.T) {
	path := tempFile(t)

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ds, err := f.Root().CreateDataset("resolutions", []uint64{3, 3}, Float32)
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	data := make([]byte, 9*4)
	for i := 0; i < 9; i++ {
		binary.LittleEndian.PutUint32(data[4*i:], uint32(i+1))
	}
	if err := ds.Write(data); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	rds, err := rf.OpenDataset("resolutions")
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	if rds.Numeric() != Float32 {
		t.Fatalf("Numeric = %v, want float32", rds.Numeric())
	}
	got, err := rds.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	for i := 0; i < 9; i++ {
		if binary.LittleEndian.Uint32(got[4*i:]) != uint32(i+1) {
			t.Fatalf("element %d mismatch", i)
		}
	}
}

func TestGroupHeaderRelocation(t *testing.T) {
	path := tempFile(t)

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	parent, err := f.Root().CreateGroup("setups")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	// Enough members to outgrow the initial header chunk several times.
	const n = 40
	for i := 0; i < n; i++ {
		if _, err := parent.CreateGroup(fmt.Sprintf("s%02d", i)); err != nil {
			t.Fatalf("CreateGroup s%02d: %v", i, err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	g, err := rf.OpenGroup("setups")
	if err != nil {
		t.Fatalf("OpenGroup: %v", err)
	}
	members := g.Members()
	if len(members) != n {
		t.Fatalf("got %d members, want %d", len(members), n)
	}
	for i := 0; i < n; i++ {
		if _, err := g.OpenGroup(fmt.Sprintf("s%02d", i)); err != nil {
			t.Fatalf("OpenGroup s%02d: %v", i, err)
		}
	}
}

func TestRootHeaderRelocation(t *testing.T) {
	path := tempFile(t)

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	const n = 20
	for i := 0; i < n; i++ {
		if _, err := f.Root().CreateGroup(fmt.Sprintf("group-%02d", i)); err != nil {
			t.Fatalf("CreateGroup: %v", err)
		}
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()
	if got := len(rf.Root().Members()); got != n {
		t.Fatalf("got %d root members, want %d", got, n)
	}
}

func TestOpenReadWrite(t *testing.T) {
	path := tempFile(t)
	dims := []uint64{4, 4, 4}
	chunkDims := []uint64{2, 2, 2}

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	ds, err := f.Root().CreateDataset("cells", dims, Uint16, WithChunks(chunkDims...), WithGzip(6))
	if err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	if err := ds.WriteChunk([]uint64{0, 0, 0}, rampChunk(dims, chunkDims, []uint64{0, 0, 0})); err != nil {
		t.Fatalf("WriteChunk: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	wf, err := OpenReadWrite(path)
	if err != nil {
		t.Fatalf("OpenReadWrite: %v", err)
	}
	wds, err := wf.OpenDataset("cells")
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	if err := wds.WriteChunk([]uint64{2, 2, 2}, rampChunk(dims, chunkDims, []uint64{2, 2, 2})); err != nil {
		t.Fatalf("WriteChunk after reopen: %v", err)
	}
	if _, err := wf.Root().CreateGroup("extra"); err != nil {
		t.Fatalf("CreateGroup after reopen: %v", err)
	}
	if err := wf.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()
	if !rf.Root().Exists("extra") {
		t.Fatal("group added after reopen not found")
	}
	rds, err := rf.OpenDataset("cells")
	if err != nil {
		t.Fatalf("OpenDataset: %v", err)
	}
	data, err := rds.ReadSlice([]uint64{2, 2, 2}, []uint64{2, 2, 2})
	if err != nil {
		t.Fatalf("ReadSlice: %v", err)
	}
	values := u16values(data)
	for i, v := range values {
		z, y, x := uint64(i/4)+2, uint64(i/2%2)+2, uint64(i%2)+2
		want := uint16((z*4+y)*4 + x)
		if v != want {
			t.Fatalf("element %d = %d, want %d", i, v, want)
		}
	}
}

func TestRemoveLink(t *testing.T) {
	path := tempFile(t)

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := f.Root().CreateGroup("keep"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := f.Root().CreateGroup("drop"); err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if err := f.Root().RemoveLink("drop"); err != nil {
		t.Fatalf("RemoveLink: %v", err)
	}
	if err := f.Root().RemoveLink("missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("RemoveLink(missing) = %v, want ErrNotFound", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()
	if !rf.Root().Exists("keep") {
		t.Fatal("kept group not found")
	}
	if rf.Root().Exists("drop") {
		t.Fatal("removed group still listed")
	}
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	path := tempFile(t)

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	if _, err := rf.Root().CreateGroup("g"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("CreateGroup = %v, want ErrReadOnly", err)
	}
	if _, err := rf.Root().CreateDataset("d", []uint64{2}, Uint8); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("CreateDataset = %v, want ErrReadOnly", err)
	}
	if err := rf.Root().RemoveLink("g"); !errors.Is(err, ErrReadOnly) {
		t.Fatalf("RemoveLink = %v, want ErrReadOnly", err)
	}
}

func TestCreateDatasetValidation(t *testing.T) {
	path := tempFile(t)

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer f.Close()

	if _, err := f.Root().CreateDataset("bad", []uint64{4, 4}, Uint8, WithGzip(6)); err == nil {
		t.Fatal("compression without chunks accepted")
	}
	if _, err := f.Root().CreateDataset("bad", []uint64{4, 4}, Uint8, WithChunks(4)); err == nil {
		t.Fatal("chunk rank mismatch accepted")
	}
	if _, err := f.Root().CreateDataset("ok", []uint64{4}, Uint8); err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	if _, err := f.Root().CreateDataset("ok", []uint64{4}, Uint8); err == nil {
		t.Fatal("duplicate dataset name accepted")
	}
}

func TestOpenMissingObjects(t *testing.T) {
	path := tempFile(t)

	f, err := Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	g, err := f.Root().CreateGroup("g")
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if _, err := g.CreateDataset("d", []uint64{2}, Uint8); err != nil {
		t.Fatalf("CreateDataset: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	rf, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer rf.Close()

	if _, err := rf.OpenGroup("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("OpenGroup(nope) = %v, want ErrNotFound", err)
	}
	if _, err := rf.OpenDataset("g/nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("OpenDataset(g/nope) = %v, want ErrNotFound", err)
	}
	if _, err := rf.OpenGroup("g/d"); !errors.Is(err, ErrNotGroup) {
		t.Fatalf("OpenGroup(g/d) = %v, want ErrNotGroup", err)
	}
}

func TestOpenNotHDF5(t *testing.T) {
	if _, err := Open("hdf5_test.go"); err == nil {
		t.Fatal("opening a non-HDF5 file succeeded")
	}
}
