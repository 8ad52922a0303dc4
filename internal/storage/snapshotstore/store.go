// Package snapshotstore persists assembled global snapshots as
// checksummed files, one per session.
//
// File layout: magic bytes, a length-prefixed JSON header, a
// length-prefixed JSON body holding the snapshot, and a SHA-256
// trailer over everything before it.
package snapshotstore

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/yndnr/snapmesh-go/internal/core/domain"
)

// Magic bytes identify snapshot files.
var magicBytes = []byte("SMSHSNAP")

const (
	filePrefix    = "snapshot-"
	fileExtension = ".snap"
	checksumSize  = 32
	headerVersion = 1

	DefaultRetentionCount = 10
	DefaultRetentionDays  = 7
)

var (
	ErrInvalidMagic     = errors.New("snapshotstore: invalid magic bytes")
	ErrChecksumMismatch = errors.New("snapshotstore: checksum mismatch")
	ErrNotFound         = errors.New("snapshotstore: not found")
)

type fileHeader struct {
	Version      int    `json:"version"`
	CreatedAt    int64  `json:"created_at"`
	SessionID    string `json:"session_id"`
	Initiator    string `json:"initiator"`
	ProcessCount int    `json:"process_count"`
	MessageCount int    `json:"message_count"`
}

// Config configures the store.
type Config struct {
	Dir string

	RetentionCount int
	RetentionDays  int
}

// DefaultConfig returns the default retention policy for a directory.
func DefaultConfig(dir string) Config {
	return Config{
		Dir:            dir,
		RetentionCount: DefaultRetentionCount,
		RetentionDays:  DefaultRetentionDays,
	}
}

// Store writes and reads snapshot files in a single directory.
type Store struct {
	cfg Config
}

// New creates the directory if needed and returns a store.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("snapshotstore: dir is required")
	}
	if err := os.MkdirAll(cfg.Dir, 0750); err != nil {
		return nil, fmt.Errorf("snapshotstore: create dir: %w", err)
	}
	if cfg.RetentionCount == 0 {
		cfg.RetentionCount = DefaultRetentionCount
	}
	if cfg.RetentionDays == 0 {
		cfg.RetentionDays = DefaultRetentionDays
	}
	return &Store{cfg: cfg}, nil
}

// Info is file-level metadata about a stored snapshot.
type Info struct {
	SessionID    domain.SessionID `json:"session_id"`
	Initiator    domain.ProcessID `json:"initiator"`
	ProcessCount int              `json:"process_count"`
	MessageCount int              `json:"message_count"`
	CreatedAt    int64            `json:"created_at"`
	Size         int64            `json:"size"`
	Path         string           `json:"path"`
	Checksum     string           `json:"checksum"`
}

// SnapshotCompleted persists a finished snapshot and prunes old files.
// It makes Store usable directly as a coordinator sink.
func (s *Store) SnapshotCompleted(_ context.Context, snap *domain.GlobalSnapshot) error {
	if _, err := s.Save(snap); err != nil {
		return err
	}
	return s.Prune()
}

// Save writes one snapshot file. The write goes to a temp file first
// and is renamed into place, so a crash never leaves a half-written
// snapshot under the final name.
func (s *Store) Save(snap *domain.GlobalSnapshot) (*Info, error) {
	now := time.Now()

	tempPath := filepath.Join(s.cfg.Dir, string(snap.SessionID)+".tmp")
	file, err := os.Create(tempPath)
	if err != nil {
		return nil, fmt.Errorf("snapshotstore: create temp file: %w", err)
	}
	defer os.Remove(tempPath)

	hash := sha256.New()
	writer := io.MultiWriter(file, hash)

	if _, err := writer.Write(magicBytes); err != nil {
		file.Close()
		return nil, err
	}

	hdr := fileHeader{
		Version:      headerVersion,
		CreatedAt:    now.UnixMilli(),
		SessionID:    string(snap.SessionID),
		Initiator:    string(snap.Initiator),
		ProcessCount: snap.ProcessCount(),
		MessageCount: snap.MessageCount(),
	}
	hdrJSON, err := json.Marshal(hdr)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshotstore: marshal header: %w", err)
	}

	var hdrLen [4]byte
	binary.BigEndian.PutUint32(hdrLen[:], uint32(len(hdrJSON)))
	if _, err := writer.Write(hdrLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshotstore: write header length: %w", err)
	}
	if _, err := writer.Write(hdrJSON); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshotstore: write header: %w", err)
	}

	body, err := json.Marshal(snap)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshotstore: marshal snapshot: %w", err)
	}

	var bodyLen [4]byte
	binary.BigEndian.PutUint32(bodyLen[:], uint32(len(body)))
	if _, err := writer.Write(bodyLen[:]); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshotstore: write body length: %w", err)
	}
	if _, err := writer.Write(body); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshotstore: write body: %w", err)
	}

	// Checksum trailer, not included in the hash itself.
	sum := hash.Sum(nil)
	if _, err := file.Write(sum); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshotstore: write checksum: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		return nil, fmt.Errorf("snapshotstore: sync: %w", err)
	}
	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("snapshotstore: close: %w", err)
	}

	stat, err := os.Stat(tempPath)
	if err != nil {
		return nil, err
	}

	finalPath := s.path(snap.SessionID)
	if err := os.Rename(tempPath, finalPath); err != nil {
		return nil, fmt.Errorf("snapshotstore: rename: %w", err)
	}

	return &Info{
		SessionID:    snap.SessionID,
		Initiator:    snap.Initiator,
		ProcessCount: hdr.ProcessCount,
		MessageCount: hdr.MessageCount,
		CreatedAt:    hdr.CreatedAt,
		Size:         stat.Size(),
		Path:         finalPath,
		Checksum:     hex.EncodeToString(sum),
	}, nil
}

// Load reads and verifies the snapshot stored for a session.
func (s *Store) Load(session domain.SessionID) (*domain.GlobalSnapshot, *Info, error) {
	snap, info, err := s.loadFile(s.path(session))
	if os.IsNotExist(err) {
		return nil, nil, ErrNotFound
	}
	return snap, info, err
}

func (s *Store) loadFile(path string) (*domain.GlobalSnapshot, *Info, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, nil, err
	}
	if stat.Size() < int64(len(magicBytes))+checksumSize {
		return nil, nil, ErrChecksumMismatch
	}

	dataLen := stat.Size() - checksumSize
	expected := make([]byte, checksumSize)
	if _, err := io.ReadFull(io.NewSectionReader(f, dataLen, checksumSize), expected); err != nil {
		return nil, nil, err
	}
	h := sha256.New()
	if _, err := io.CopyN(h, io.NewSectionReader(f, 0, dataLen), dataLen); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(h.Sum(nil), expected) {
		return nil, nil, ErrChecksumMismatch
	}

	br := bufio.NewReader(io.NewSectionReader(f, 0, dataLen))

	magic := make([]byte, len(magicBytes))
	if _, err := io.ReadFull(br, magic); err != nil {
		return nil, nil, err
	}
	if !bytes.Equal(magic, magicBytes) {
		return nil, nil, ErrInvalidMagic
	}

	var hdrLenBuf [4]byte
	if _, err := io.ReadFull(br, hdrLenBuf[:]); err != nil {
		return nil, nil, err
	}
	hdrLen := binary.BigEndian.Uint32(hdrLenBuf[:])
	if hdrLen == 0 {
		return nil, nil, fmt.Errorf("snapshotstore: empty header")
	}
	hdrJSON := make([]byte, hdrLen)
	if _, err := io.ReadFull(br, hdrJSON); err != nil {
		return nil, nil, err
	}

	var hdr fileHeader
	if err := json.Unmarshal(hdrJSON, &hdr); err != nil {
		return nil, nil, fmt.Errorf("snapshotstore: unmarshal header: %w", err)
	}

	var bodyLenBuf [4]byte
	if _, err := io.ReadFull(br, bodyLenBuf[:]); err != nil {
		return nil, nil, err
	}
	body := make([]byte, binary.BigEndian.Uint32(bodyLenBuf[:]))
	if _, err := io.ReadFull(br, body); err != nil {
		return nil, nil, err
	}

	var snap domain.GlobalSnapshot
	if err := json.Unmarshal(body, &snap); err != nil {
		return nil, nil, fmt.Errorf("snapshotstore: unmarshal snapshot: %w", err)
	}

	info := &Info{
		SessionID:    domain.SessionID(hdr.SessionID),
		Initiator:    domain.ProcessID(hdr.Initiator),
		ProcessCount: hdr.ProcessCount,
		MessageCount: hdr.MessageCount,
		CreatedAt:    hdr.CreatedAt,
		Size:         stat.Size(),
		Path:         path,
		Checksum:     hex.EncodeToString(expected),
	}
	return &snap, info, nil
}

// List returns file metadata for every stored snapshot, oldest first.
// Session IDs embed a timestamp, so the lexical sort is creation order.
func (s *Store) List() ([]*Info, error) {
	entries, err := os.ReadDir(s.cfg.Dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileExtension) {
			paths = append(paths, filepath.Join(s.cfg.Dir, name))
		}
	}
	sort.Strings(paths)

	var infos []*Info
	for _, p := range paths {
		_, info, err := s.loadFile(p)
		if err != nil {
			continue
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Prune applies the retention policy.
func (s *Store) Prune() error {
	infos, err := s.List()
	if err != nil {
		return err
	}
	if len(infos) <= 1 {
		return nil
	}

	keep := make(map[string]struct{}, len(infos))

	if s.cfg.RetentionCount > 0 {
		start := len(infos) - s.cfg.RetentionCount
		if start < 0 {
			start = 0
		}
		for _, info := range infos[start:] {
			keep[info.Path] = struct{}{}
		}
	}

	if s.cfg.RetentionDays > 0 {
		cutoff := time.Now().Add(-time.Duration(s.cfg.RetentionDays) * 24 * time.Hour)
		for _, info := range infos {
			st, err := os.Stat(info.Path)
			if err != nil {
				continue
			}
			if st.ModTime().After(cutoff) {
				keep[info.Path] = struct{}{}
			}
		}
	}

	// Always keep at least the newest.
	keep[infos[len(infos)-1].Path] = struct{}{}

	for _, info := range infos {
		if _, ok := keep[info.Path]; ok {
			continue
		}
		_ = os.Remove(info.Path)
	}
	return nil
}

func (s *Store) path(session domain.SessionID) string {
	return filepath.Join(s.cfg.Dir, filePrefix+string(session)+fileExtension)
}
