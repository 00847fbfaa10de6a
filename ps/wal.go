package ps

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"sync"

	"github.com/go-git/go-billy/v6"
	"github.com/google/uuid"

	"github.com/decentdb/decentdb/core"
)

// WAL file layout:
//
//	[magic "DDBWAL01"][database uuid, 16 bytes]
//	then per committed transaction:
//	[payload length u32 LE][crc32 IEEE of payload u32 LE][json payload]
const (
	walMagic        = "DDBWAL01"
	walHeaderSize   = len(walMagic) + 16
	walRecordHeader = 8
)

// Record is one committed transaction. Generation is the checkpoint
// generation of the store when it was logged; records older than the store
// were already folded into it.
type Record struct {
	Generation uint64   `json:"gen"`
	Changes    []Change `json:"changes"`
}

// WAL is the write-ahead log kept next to the store. Every committed
// transaction is appended as one record; a checkpoint truncates it back
// to the header.
type WAL struct {
	file billy.File
	id   uuid.UUID
	size int64
	sync bool
	mu   sync.Mutex
}

// OpenWAL opens or creates the log and returns the records it holds.
// A torn tail left by a crash is cut off.
func OpenWAL(fs billy.Filesystem, id uuid.UUID, syncWrites bool) (*WAL, []Record, error) {
	f, err := fs.OpenFile(walFile, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, nil, core.Errorf(core.CodeIO, "open write-ahead log: %v", err)
	}

	w := &WAL{file: f, id: id, sync: syncWrites}
	records, err := w.load()
	if err != nil {
		f.Close()
		return nil, nil, err
	}
	return w, records, nil
}

func (w *WAL) load() ([]Record, error) {
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return nil, core.Errorf(core.CodeIO, "read write-ahead log: %v", err)
	}
	data, err := io.ReadAll(w.file)
	if err != nil {
		return nil, core.Errorf(core.CodeIO, "read write-ahead log: %v", err)
	}

	if len(data) < walHeaderSize {
		if len(data) > 0 && !bytes.HasPrefix([]byte(walMagic), data[:min(len(data), len(walMagic))]) {
			return nil, core.Errorf(core.CodeCorruption, "write-ahead log has an invalid header")
		}
		return nil, w.writeHeader()
	}

	if string(data[:len(walMagic)]) != walMagic {
		return nil, core.Errorf(core.CodeCorruption, "write-ahead log has an invalid header")
	}
	var fileID uuid.UUID
	copy(fileID[:], data[len(walMagic):walHeaderSize])
	if fileID != w.id {
		return nil, core.Errorf(core.CodeCorruption, "write-ahead log belongs to database %s, store is %s", fileID, w.id)
	}

	var records []Record
	offset := walHeaderSize
	for offset < len(data) {
		rest := data[offset:]
		if len(rest) < walRecordHeader {
			break
		}
		n := int(binary.LittleEndian.Uint32(rest[0:4]))
		sum := binary.LittleEndian.Uint32(rest[4:8])
		if len(rest)-walRecordHeader < n {
			break
		}
		payload := rest[walRecordHeader : walRecordHeader+n]
		if crc32.ChecksumIEEE(payload) != sum {
			break
		}
		var rec Record
		if err := json.Unmarshal(payload, &rec); err != nil {
			return nil, core.Errorf(core.CodeCorruption, "write-ahead log record at offset %d: %v", offset, err)
		}
		records = append(records, rec)
		offset += walRecordHeader + n
	}

	if offset < len(data) {
		core.Logf("[WARN] truncating torn write-ahead log tail: %d byte(s) at offset %d", len(data)-offset, offset)
		if err := w.file.Truncate(int64(offset)); err != nil {
			return nil, core.Errorf(core.CodeIO, "truncate write-ahead log: %v", err)
		}
	}
	w.size = int64(offset)
	if _, err := w.file.Seek(w.size, io.SeekStart); err != nil {
		return nil, core.Errorf(core.CodeIO, "seek write-ahead log: %v", err)
	}
	return records, nil
}

func (w *WAL) writeHeader() error {
	if err := w.file.Truncate(0); err != nil {
		return core.Errorf(core.CodeIO, "truncate write-ahead log: %v", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return core.Errorf(core.CodeIO, "seek write-ahead log: %v", err)
	}
	header := make([]byte, 0, walHeaderSize)
	header = append(header, walMagic...)
	header = append(header, w.id[:]...)
	if _, err := w.file.Write(header); err != nil {
		return core.Errorf(core.CodeIO, "write write-ahead log header: %v", err)
	}
	w.size = int64(walHeaderSize)
	return w.flush()
}

func (w *WAL) flush() error {
	if !w.sync {
		return nil
	}
	if s, ok := w.file.(interface{ Sync() error }); ok {
		if err := s.Sync(); err != nil {
			return core.Errorf(core.CodeIO, "sync write-ahead log: %v", err)
		}
	}
	return nil
}

// Append logs one committed transaction.
func (w *WAL) Append(generation uint64, changes []Change) error {
	if len(changes) == 0 {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()

	payload, err := json.Marshal(Record{Generation: generation, Changes: changes})
	if err != nil {
		return fmt.Errorf("failed to encode write-ahead log record: %w", err)
	}

	buf := make([]byte, walRecordHeader, walRecordHeader+len(payload))
	binary.LittleEndian.PutUint32(buf[0:4], uint32(len(payload)))
	binary.LittleEndian.PutUint32(buf[4:8], crc32.ChecksumIEEE(payload))
	buf = append(buf, payload...)

	if _, err := w.file.Seek(w.size, io.SeekStart); err != nil {
		return core.Errorf(core.CodeIO, "seek write-ahead log: %v", err)
	}
	if _, err := w.file.Write(buf); err != nil {
		return core.Errorf(core.CodeIO, "append write-ahead log: %v", err)
	}
	w.size += int64(len(buf))
	return w.flush()
}

// Reset drops every record, keeping the header.
func (w *WAL) Reset() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.writeHeader()
}

// Size is the current length of the log in bytes, header included.
func (w *WAL) Size() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.size
}

// Pending is the number of bytes logged since the last reset.
func (w *WAL) Pending() int64 {
	return w.Size() - int64(walHeaderSize)
}

func (w *WAL) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.file == nil {
		return nil
	}
	err := w.file.Close()
	w.file = nil
	return err
}
