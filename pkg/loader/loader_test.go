package loader

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"testing"
)

// buildMZ assembles a minimal but well-formed MZ image: a 28-byte header,
// padded to paraHeader*16 bytes, followed by the payload. NumPages/
// LastPageSize/NumParaHeader are chosen so the loader's cb computation
// comes out to exactly len(payload).
func buildMZ(t *testing.T, initCS, initIP uint16, reloc [][2]uint16, payload []byte) []byte {
	t.Helper()

	const paraHeader = 2 // 32-byte header region
	const numPages = 1
	cbWanted := len(payload)
	lastPageSize := 512 - (numPages*512 - paraHeader*16 - cbWanted)

	h := header{
		SigLo:          'M',
		SigHi:          'Z',
		LastPageSize:   uint16(lastPageSize),
		NumPages:       numPages,
		NumReloc:       uint16(len(reloc)),
		NumParaHeader:  paraHeader,
		InitSS:         0x20,
		InitSP:         0x100,
		InitIP:         initIP,
		InitCS:         initCS,
		RelocTabOffset: 28,
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, &h); err != nil {
		t.Fatalf("binary.Write(header): %v", err)
	}
	for _, r := range reloc {
		binary.Write(&buf, binary.LittleEndian, r[0])
		binary.Write(&buf, binary.LittleEndian, r[1])
	}
	for buf.Len() < paraHeader*16 {
		buf.WriteByte(0)
	}
	buf.Write(payload)
	return buf.Bytes()
}

func writeTemp(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "image.bin")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadEXE(t *testing.T) {
	payload := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}
	path := writeTemp(t, buildMZ(t, 0x10, 0x0, nil, payload))

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if img.IsCOM {
		t.Error("IsCOM = true for an MZ-signed file, want false")
	}
	if got := len(img.Bytes); got != pspSize+len(payload) {
		t.Errorf("len(Bytes) = %d, want %d", got, pspSize+len(payload))
	}
	if img.Bytes[0] != 0xCD || img.Bytes[1] != 0x20 {
		t.Errorf("PSP prefix = %#x %#x, want INT 20h (0xCD 0x20)", img.Bytes[0], img.Bytes[1])
	}
	if !bytes.Equal(img.Bytes[pspSize:], payload) {
		t.Errorf("payload region = %v, want %v", img.Bytes[pspSize:], payload)
	}
	if want := uint16(0x10 + exeRelocation); img.InitCS != want {
		t.Errorf("InitCS = %#x, want %#x", img.InitCS, want)
	}
	if want := uint32(img.InitCS)<<4 + uint32(img.InitIP); img.EntryAddr() != want {
		t.Errorf("EntryAddr() = %#x, want %#x", img.EntryAddr(), want)
	}
}

func TestLoadEXERelocationPatchesSegmentWords(t *testing.T) {
	payload := make([]byte, 16)
	// a segment word living at payload offset 4, referenced by one reloc entry
	binary.LittleEndian.PutUint16(payload[4:], 0x0050)

	reloc := [][2]uint16{{4, 0}} // (offset, segment) pair pointing at payload offset 4
	path := writeTemp(t, buildMZ(t, 0x10, 0x0, reloc, payload))

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(img.RelocOffs) != 1 {
		t.Fatalf("RelocOffs = %v, want 1 entry", img.RelocOffs)
	}
	abs := img.RelocOffs[0]
	got := binary.LittleEndian.Uint16(img.Bytes[abs:])
	if want := uint16(0x0050 + exeRelocation); got != want {
		t.Errorf("relocated segment word = %#x, want %#x", got, want)
	}
}

func TestLoadEXERejectsNewFormat(t *testing.T) {
	payload := []byte{0}
	data := buildMZ(t, 0, 0, nil, payload)
	// overwrite RelocTabOffset (header offset 24) with the new-EXE sentinel
	binary.LittleEndian.PutUint16(data[24:], newEXETabOffset)
	path := writeTemp(t, data)

	if _, err := Load(path); err == nil {
		t.Error("Load of a new-format header succeeded, want an error")
	}
}

func TestLoadCOM(t *testing.T) {
	payload := []byte{0xB8, 0x00, 0x00, 0x90, 0x90} // arbitrary, does not start with "MZ"
	path := writeTemp(t, payload)

	img, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !img.IsCOM {
		t.Error("IsCOM = false for a non-MZ file, want true")
	}
	if img.InitIP != 0x100 {
		t.Errorf("InitIP = %#x, want 0x100", img.InitIP)
	}
	if got := len(img.Bytes); got != pspSize+len(payload) {
		t.Errorf("len(Bytes) = %d, want %d", got, pspSize+len(payload))
	}
	if !bytes.Equal(img.Bytes[pspSize:], payload) {
		t.Errorf("payload region = %v, want %v", img.Bytes[pspSize:], payload)
	}
	if want := uint32(0x100); img.EntryAddr() != want {
		t.Errorf("EntryAddr() = %#x, want %#x", img.EntryAddr(), want)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "does-not-exist.exe")); err == nil {
		t.Error("Load of a missing file succeeded, want an error")
	}
}
