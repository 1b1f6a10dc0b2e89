package mp4_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/go-alac/alac/mp4"
)

// box builds a big-endian atom: 4-byte size, 4-byte fourCC, payload.
func box(fourCC string, payload []byte) []byte {
	buf := make([]byte, 8+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], uint32(8+len(payload)))
	copy(buf[4:8], fourCC)
	copy(buf[8:], payload)
	return buf
}

func TestLocateMdat(t *testing.T) {
	ftyp := box("ftyp", []byte("M4A isomM4A "))
	free := box("free", nil)
	mdatPayload := []byte{1, 2, 3, 4, 5}
	mdat := box("mdat", mdatPayload)

	var data []byte
	data = append(data, ftyp...)
	data = append(data, free...)
	data = append(data, mdat...)

	r := bytes.NewReader(data)
	offset, size, err := mp4.LocateMdat(r)
	if err != nil {
		t.Fatalf("LocateMdat: %v", err)
	}

	wantOffset := int64(len(ftyp) + len(free) + 8)
	if offset != wantOffset {
		t.Errorf("offset = %d, want %d", offset, wantOffset)
	}
	if size != int64(len(mdatPayload)) {
		t.Errorf("size = %d, want %d", size, len(mdatPayload))
	}

	got := make([]byte, size)
	if _, err := r.ReadAt(got, offset); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, mdatPayload) {
		t.Errorf("payload = %v, want %v", got, mdatPayload)
	}
}

func TestLocateMdatNotFound(t *testing.T) {
	data := box("free", []byte("nothing to see here"))
	r := bytes.NewReader(data)

	if _, _, err := mp4.LocateMdat(r); err == nil {
		t.Fatal("expected ErrMdatNotFound, got nil")
	}
}
