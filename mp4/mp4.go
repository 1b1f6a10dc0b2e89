// Package mp4 implements the minimal slice of ISO 14496-12 box parsing the
// ALAC decoder core needs as an external collaborator: locating the mdat
// atom that holds the compressed frame stream, and, for callers that only
// have a bare .m4a file rather than already-known stream parameters,
// walking down to the 'alac' sample description to recover its magic
// cookie and the file's flat sample (packet) table.
package mp4

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// ErrMdatNotFound is returned when the input is exhausted before an mdat
// atom is seen.
var ErrMdatNotFound = errors.New("mp4: mdat atom not found")

// ErrNoALACTrack is returned when no track in the file carries an ALAC
// sample description.
var ErrNoALACTrack = errors.New("mp4: no ALAC track found")

// mdatFourCC is the big-endian atom type value for "mdat".
const mdatFourCC = 0x6D646174

// LocateMdat performs the minimal atom walk the decoder core relies on:
// repeatedly read a big-endian 32-bit atom_size and atom_type, stopping as
// soon as atom_type is "mdat". It returns the payload's offset and size
// and leaves r positioned at the start of the payload.
func LocateMdat(r io.ReadSeeker) (payloadOffset, payloadSize int64, err error) {
	for {
		var hdr [8]byte
		if _, err := io.ReadFull(r, hdr[:]); err != nil {
			return 0, 0, errors.Wrap(ErrMdatNotFound, err.Error())
		}

		atomSize := binary.BigEndian.Uint32(hdr[:4])
		atomType := binary.BigEndian.Uint32(hdr[4:8])

		if atomSize < 8 {
			return 0, 0, errors.Wrapf(ErrMdatNotFound, "invalid atom size %d", atomSize)
		}

		if atomType == mdatFourCC {
			offset, err := r.Seek(0, io.SeekCurrent)
			if err != nil {
				return 0, 0, errors.Wrap(err, "mp4: seeking to mdat payload")
			}
			return offset, int64(atomSize) - 8, nil
		}

		if _, err := r.Seek(int64(atomSize)-8, io.SeekCurrent); err != nil {
			return 0, 0, errors.Wrap(ErrMdatNotFound, err.Error())
		}
	}
}

// SampleInfo holds the byte offset and size of a single encoded ALAC
// packet within mdat.
type SampleInfo struct {
	Offset uint64
	Size   uint32
}

// boxInfo holds the position and size of a parsed box.
type boxInfo struct {
	offset     int64
	size       int64
	headerSize int64
	fourCC     [4]byte
}

const (
	smallHeaderSize = 8
	largeHeaderSize = 16
)

func readBoxInfo(r io.ReadSeeker) (boxInfo, error) {
	offset, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return boxInfo{}, errors.Wrap(err, "mp4: seeking current position")
	}

	var header [largeHeaderSize]byte
	if _, err := io.ReadFull(r, header[:smallHeaderSize]); err != nil {
		return boxInfo{}, err
	}

	info := boxInfo{
		offset:     offset,
		headerSize: smallHeaderSize,
		fourCC:     [4]byte{header[4], header[5], header[6], header[7]},
	}

	rawSize := binary.BigEndian.Uint32(header[:4])
	switch rawSize {
	case 0:
		end, err := r.Seek(0, io.SeekEnd)
		if err != nil {
			return boxInfo{}, err
		}
		info.size = end - offset
		if _, err := r.Seek(offset+info.headerSize, io.SeekStart); err != nil {
			return boxInfo{}, err
		}
	case 1:
		if _, err := io.ReadFull(r, header[smallHeaderSize:largeHeaderSize]); err != nil {
			return boxInfo{}, err
		}
		info.headerSize = largeHeaderSize
		info.size = int64(binary.BigEndian.Uint64(header[smallHeaderSize:largeHeaderSize]))
	default:
		info.size = int64(rawSize)
	}

	if info.size < info.headerSize {
		return boxInfo{}, errors.Errorf("mp4: invalid box size %d at offset %d", info.size, offset)
	}

	return info, nil
}

func (b *boxInfo) payloadOffset() int64 { return b.offset + b.headerSize }

func (b *boxInfo) seekToPayload(r io.ReadSeeker) error {
	_, err := r.Seek(b.payloadOffset(), io.SeekStart)
	return err
}

func (b *boxInfo) seekToEnd(r io.ReadSeeker) error {
	_, err := r.Seek(b.offset+b.size, io.SeekStart)
	return err
}

func (b *boxInfo) payloadSize() int64 { return b.size - b.headerSize }

// iterChildren calls fn for each direct child box within parent's
// payload, stopping early when fn returns stop == true.
func iterChildren(r io.ReadSeeker, parent *boxInfo, fn func(child boxInfo) (stop bool, err error)) error {
	if err := parent.seekToPayload(r); err != nil {
		return err
	}

	end := parent.offset + parent.size
	for {
		pos, err := r.Seek(0, io.SeekCurrent)
		if err != nil {
			return err
		}
		if pos >= end {
			return nil
		}

		child, err := readBoxInfo(r)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				return nil
			}
			return err
		}

		stop, err := fn(child)
		if err != nil {
			return err
		}
		if stop {
			return nil
		}
		if err := child.seekToEnd(r); err != nil {
			return err
		}
	}
}

func findChild(r io.ReadSeeker, parent *boxInfo, target [4]byte) (boxInfo, bool, error) {
	var found boxInfo
	var matched bool

	err := iterChildren(r, parent, func(child boxInfo) (bool, error) {
		if child.fourCC == target {
			found = child
			matched = true
			return true, nil
		}
		return false, nil
	})

	return found, matched, err
}

func findDescendant(r io.ReadSeeker, parent *boxInfo, path [][4]byte) (boxInfo, bool, error) {
	current := *parent
	for _, target := range path {
		child, found, err := findChild(r, &current, target)
		if err != nil || !found {
			return boxInfo{}, false, err
		}
		current = child
	}
	return current, true, nil
}

var (
	fccMoov = [4]byte{'m', 'o', 'o', 'v'}
	fccTrak = [4]byte{'t', 'r', 'a', 'k'}
	fccMdia = [4]byte{'m', 'd', 'i', 'a'}
	fccMinf = [4]byte{'m', 'i', 'n', 'f'}
	fccStbl = [4]byte{'s', 't', 'b', 'l'}
	fccStsd = [4]byte{'s', 't', 's', 'd'}
	fccStsc = [4]byte{'s', 't', 's', 'c'}
	fccStsz = [4]byte{'s', 't', 's', 'z'}
	fccStco = [4]byte{'s', 't', 'c', 'o'}
	fccCo64 = [4]byte{'c', 'o', '6', '4'}
)

// FindALACTrack walks the MP4 box tree to locate the first track
// containing an ALAC sample entry. It returns the magic cookie
// (ALACSpecificConfig payload, see ParseALACSpecificConfig) and a flat sample table giving
// each packet's offset and size within mdat.
func FindALACTrack(r io.ReadSeeker) ([]byte, []SampleInfo, error) {
	if _, err := r.Seek(0, io.SeekStart); err != nil {
		return nil, nil, errors.Wrap(err, "mp4: seeking to start")
	}

	fileEnd, err := r.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, nil, errors.Wrap(err, "mp4: seeking to end")
	}

	root := boxInfo{offset: 0, size: fileEnd, headerSize: 0}

	moov, found, err := findChild(r, &root, fccMoov)
	if err != nil {
		return nil, nil, errors.Wrap(err, "mp4: reading container structure")
	}
	if !found {
		return nil, nil, ErrNoALACTrack
	}

	var cookie []byte
	var samples []SampleInfo

	err = iterChildren(r, &moov, func(trak boxInfo) (bool, error) {
		if trak.fourCC != fccTrak {
			return false, nil
		}

		stbl, stblFound, findErr := findDescendant(r, &trak, [][4]byte{fccMdia, fccMinf, fccStbl})
		if findErr != nil || !stblFound {
			return false, findErr
		}

		trackCookie, cookieErr := extractCookie(r, &stbl)
		if cookieErr != nil {
			return false, nil
		}

		trackSamples, tableErr := buildSampleTable(r, &stbl)
		if tableErr != nil {
			return false, errors.Wrap(tableErr, "mp4: building sample table")
		}

		cookie = trackCookie
		samples = trackSamples
		return true, nil
	})
	if err != nil {
		return nil, nil, err
	}
	if cookie == nil {
		return nil, nil, ErrNoALACTrack
	}

	return cookie, samples, nil
}

const (
	alacFourCC            = "alac"
	sampleEntryHeaderSize = 8
	sampleEntryBaseSize   = 28
	sampleEntryV1Extra    = 16
	stsdPayloadHeader     = 8
)

// extractCookie reads the stsd box from stbl, finds an 'alac' sample
// entry, and returns the raw magic cookie bytes that follow it.
func extractCookie(r io.ReadSeeker, stbl *boxInfo) ([]byte, error) {
	stsd, found, err := findChild(r, stbl, fccStsd)
	if err != nil || !found {
		return nil, ErrNoALACTrack
	}

	data := make([]byte, stsd.payloadSize())
	if err := stsd.seekToPayload(r); err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, err
	}
	if len(data) < stsdPayloadHeader {
		return nil, ErrNoALACTrack
	}

	entryCount := binary.BigEndian.Uint32(data[4:8])
	pos := stsdPayloadHeader

	for i := uint32(0); i < entryCount; i++ {
		if pos+sampleEntryHeaderSize > len(data) {
			break
		}

		entrySize := int(binary.BigEndian.Uint32(data[pos : pos+4]))
		if entrySize < sampleEntryHeaderSize+sampleEntryBaseSize || pos+entrySize > len(data) {
			pos += entrySize
			continue
		}

		if string(data[pos+4:pos+8]) != alacFourCC {
			pos += entrySize
			continue
		}

		version := binary.BigEndian.Uint16(data[pos+sampleEntryHeaderSize+8 : pos+sampleEntryHeaderSize+10])

		skip := sampleEntryHeaderSize + sampleEntryBaseSize
		if version == 1 {
			skip += sampleEntryV1Extra
		}

		cookieStart := pos + skip
		cookieEnd := pos + entrySize
		if cookieStart >= cookieEnd {
			return nil, errors.New("mp4: malformed alac sample entry")
		}

		return data[cookieStart:cookieEnd], nil
	}

	return nil, ErrNoALACTrack
}

// buildSampleTable constructs a flat list of sample offsets and sizes
// from the stco/co64, stsc, and stsz boxes within stbl.
func buildSampleTable(r io.ReadSeeker, stbl *boxInfo) ([]SampleInfo, error) {
	chunkOffsets, err := readChunkOffsets(r, stbl)
	if err != nil {
		return nil, err
	}

	stscEntries, err := readStsc(r, stbl)
	if err != nil {
		return nil, err
	}

	entrySizes, constantSize, sampleCount, err := readStsz(r, stbl)
	if err != nil {
		return nil, err
	}

	samples := make([]SampleInfo, 0, sampleCount)
	sampleIdx := uint32(0)

	for chunkIdx := range chunkOffsets {
		samplesInChunk := lookupSamplesPerChunk(stscEntries, uint32(chunkIdx+1))
		chunkOffset := chunkOffsets[chunkIdx]

		for iter := uint32(0); iter < samplesInChunk && sampleIdx < sampleCount; iter++ {
			size := constantSize
			if constantSize == 0 {
				size = entrySizes[sampleIdx]
			}
			samples = append(samples, SampleInfo{Offset: chunkOffset, Size: size})
			chunkOffset += uint64(size)
			sampleIdx++
		}
	}

	return samples, nil
}

type stscEntry struct {
	FirstChunk      uint32
	SamplesPerChunk uint32
}

func readChunkOffsets(r io.ReadSeeker, stbl *boxInfo) ([]uint64, error) {
	if stco, found, err := findChild(r, stbl, fccStco); err == nil && found {
		return readStco(r, &stco)
	}
	co64, found, err := findChild(r, stbl, fccCo64)
	if err != nil || !found {
		return nil, errors.New("mp4: no chunk offset box")
	}
	return readCo64(r, &co64)
}

func readStco(r io.ReadSeeker, box *boxInfo) ([]uint64, error) {
	if err := box.seekToPayload(r); err != nil {
		return nil, err
	}
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(header[4:])
	buf := make([]byte, int(count)*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	offsets := make([]uint64, count)
	for i := range offsets {
		offsets[i] = uint64(binary.BigEndian.Uint32(buf[i*4:]))
	}
	return offsets, nil
}

func readCo64(r io.ReadSeeker, box *boxInfo) ([]uint64, error) {
	if err := box.seekToPayload(r); err != nil {
		return nil, err
	}
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(header[4:])
	buf := make([]byte, int(count)*8)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}
	offsets := make([]uint64, count)
	for i := range offsets {
		offsets[i] = binary.BigEndian.Uint64(buf[i*8:])
	}
	return offsets, nil
}

func readStsc(r io.ReadSeeker, stbl *boxInfo) ([]stscEntry, error) {
	box, found, err := findChild(r, stbl, fccStsc)
	if err != nil || !found {
		return nil, errors.New("mp4: no stsc box")
	}
	if err := box.seekToPayload(r); err != nil {
		return nil, err
	}
	var header [8]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}
	count := binary.BigEndian.Uint32(header[4:])

	const entryBytes = 12
	buf := make([]byte, int(count)*entryBytes)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, err
	}

	entries := make([]stscEntry, count)
	for i := range entries {
		off := int(i) * entryBytes
		entries[i] = stscEntry{
			FirstChunk:      binary.BigEndian.Uint32(buf[off:]),
			SamplesPerChunk: binary.BigEndian.Uint32(buf[off+4:]),
		}
	}
	return entries, nil
}

func readStsz(r io.ReadSeeker, stbl *boxInfo) ([]uint32, uint32, uint32, error) {
	box, found, err := findChild(r, stbl, fccStsz)
	if err != nil || !found {
		return nil, 0, 0, errors.New("mp4: no stsz box")
	}
	if err := box.seekToPayload(r); err != nil {
		return nil, 0, 0, err
	}
	var header [12]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, 0, 0, err
	}
	sampleSize := binary.BigEndian.Uint32(header[4:])
	sampleCount := binary.BigEndian.Uint32(header[8:])

	if sampleSize != 0 {
		return nil, sampleSize, sampleCount, nil
	}

	buf := make([]byte, int(sampleCount)*4)
	if _, err := io.ReadFull(r, buf); err != nil {
		return nil, 0, 0, err
	}
	sizes := make([]uint32, sampleCount)
	for i := range sizes {
		sizes[i] = binary.BigEndian.Uint32(buf[i*4:])
	}
	return sizes, 0, sampleCount, nil
}

func lookupSamplesPerChunk(entries []stscEntry, chunkNumber uint32) uint32 {
	var samplesPerChunk uint32
	for _, entry := range entries {
		if entry.FirstChunk > chunkNumber {
			break
		}
		samplesPerChunk = entry.SamplesPerChunk
	}
	return samplesPerChunk
}
