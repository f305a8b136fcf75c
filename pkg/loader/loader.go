// Package loader reads a DOS MZ .EXE (or .COM) image into a flat,
// PSP-prefixed byte buffer with segment constants relocated, and
// produces the relocation table's absolute image offsets for the
// scanner/flow-follower to mark SegImmed operands.
//
// Grounded on original_source/src/frontend.c's LoadImage, translated
// from its fixed C struct into a Go-native little-endian header read.
package loader

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/pkg/errors"
)

// exeRelocation is the fixed segment bias applied to every loaded
// segment constant, placing the image above the synthetic 256-byte PSP.
const exeRelocation = 0x10

// pspSize is the length of the synthetic PSP prefixed to every image.
const pspSize = 256

// newEXETabOffset is the relocation-table-offset value DOS used for the
// newer segmented-EXE format, which this loader refuses.
const newEXETabOffset = 0x40

type header struct {
	SigLo, SigHi   uint8
	LastPageSize   uint16
	NumPages       uint16
	NumReloc       uint16
	NumParaHeader  uint16
	MinAlloc       uint16
	MaxAlloc       uint16
	InitSS         uint16
	InitSP         uint16
	CheckSum       uint16
	InitIP         uint16
	InitCS         uint16
	RelocTabOffset uint16
	OverlayNum     uint16
}

// Image is the loaded, flattened program: a PSP-prefixed byte buffer
// with every relocation entry already patched to its biased segment
// value, plus the absolute image offsets of those entries for the
// scanner's SegImmed marking.
type Image struct {
	Bytes     []byte
	IsCOM     bool
	InitCS    uint16
	InitIP    uint16
	InitSS    uint16
	InitSP    uint16
	RelocOffs []uint32 // absolute offsets into Bytes of each relocated word
}

// EntryAddr returns the flat byte offset of the initial CS:IP.
func (img *Image) EntryAddr() uint32 {
	return uint32(img.InitCS)<<4 + uint32(img.InitIP)
}

// Load reads filename and builds a flattened Image, grounded on
// original_source/src/frontend.c's LoadImage.
func Load(filename string) (*Image, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open input file")
	}
	defer f.Close()

	var sig [2]byte
	if _, err := io.ReadFull(f, sig[:]); err != nil {
		return nil, errors.Wrap(err, "cannot read input file")
	}

	isCOM := sig[0] != 'M' || sig[1] != 'Z'
	if isCOM {
		return loadCOM(f)
	}
	return loadEXE(f)
}

func loadEXE(f *os.File) (*Image, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "cannot read input file")
	}
	var h header
	if err := binary.Read(f, binary.LittleEndian, &h); err != nil {
		return nil, errors.Wrap(err, "cannot read input file")
	}
	if h.RelocTabOffset == newEXETabOffset {
		return nil, errors.New("unsupported new-EXE format")
	}

	cb := int64(h.NumPages)*512 - int64(h.NumParaHeader)*16
	if h.LastPageSize != 0 {
		cb -= 512 - int64(h.LastPageSize)
	}

	relocOffs := make([]uint32, 0, h.NumReloc)
	if h.NumReloc > 0 {
		if _, err := f.Seek(int64(h.RelocTabOffset), io.SeekStart); err != nil {
			return nil, errors.Wrap(err, "cannot read input file")
		}
		for i := uint16(0); i < h.NumReloc; i++ {
			var pair [4]byte
			if _, err := io.ReadFull(f, pair[:]); err != nil {
				return nil, errors.Wrap(err, "cannot read relocation table")
			}
			off := binary.LittleEndian.Uint16(pair[0:2])
			seg := binary.LittleEndian.Uint16(pair[2:4])
			abs := uint32(off) + (uint32(seg)+exeRelocation)<<4
			relocOffs = append(relocOffs, abs)
		}
	}

	if _, err := f.Seek(int64(h.NumParaHeader)*16, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "cannot read input file")
	}

	buf := make([]byte, pspSize+cb)
	buf[0], buf[1] = 0xCD, 0x20 // emulate INT 20h at PSP start
	if _, err := io.ReadFull(f, buf[pspSize:]); err != nil {
		return nil, errors.Wrap(err, "cannot read load image")
	}

	for _, abs := range relocOffs {
		w := binary.LittleEndian.Uint16(buf[abs:]) + exeRelocation
		binary.LittleEndian.PutUint16(buf[abs:], w)
	}

	img := &Image{
		Bytes:     buf,
		InitCS:    h.InitCS + exeRelocation,
		InitIP:    h.InitIP,
		InitSS:    h.InitSS + exeRelocation,
		InitSP:    h.InitSP,
		RelocOffs: relocOffs,
	}
	return img, nil
}

func loadCOM(f *os.File) (*Image, error) {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return nil, errors.Wrap(err, "cannot read input file")
	}
	info, err := f.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "cannot read input file")
	}
	cb := info.Size()

	buf := make([]byte, pspSize+cb)
	buf[0], buf[1] = 0xCD, 0x20
	if _, err := io.ReadFull(f, buf[pspSize:]); err != nil {
		return nil, errors.Wrap(err, "cannot read load image")
	}

	return &Image{
		Bytes:  buf,
		IsCOM:  true,
		InitCS: 0,
		InitIP: 0x100,
		InitSS: 0,
		InitSP: 0xFFFE,
	}, nil
}
