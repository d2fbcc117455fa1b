// Package storage persists managed crash records before the process can die.
package storage

import (
	"os"
	"path/filepath"

	"yacl/common/record"

	log "github.com/sirupsen/logrus"
)

// Storage writes one file per record kind, truncating any previous record
// of that kind (single-slot retention, last writer wins). Write failures
// are swallowed: a secondary failure while persisting a crash must never
// reach the original fault's handling.
type Storage struct {
	dir string
}

func New(dir string) *Storage {
	err := os.MkdirAll(dir, 0700)
	if err != nil {
		log.WithError(err).WithField("dir", dir).
			Warning("Can't create crash directory")
	}
	return &Storage{dir: dir}
}

func (s *Storage) Dir() string {
	return s.dir
}

// WriteFault persists an uncaught-fault record. Never fails, never blocks
// beyond the write and flush syscalls.
func (s *Storage) WriteFault(rec *record.CrashRecord) {
	rec.Kind = record.ManagedFault
	s.write(record.ManagedFault, rec)
}

// WriteTask persists a supervised-task failure record.
func (s *Storage) WriteTask(rec *record.CrashRecord) {
	rec.Kind = record.AsyncTaskFault
	s.write(record.AsyncTaskFault, rec)
}

func (s *Storage) write(kind record.Kind, rec *record.CrashRecord) {
	path := filepath.Join(s.dir, kind.FileName())

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		log.WithError(err).WithField("path", path).
			Debug("Can't open crash file")
		return
	}

	_, err = file.Write(rec.Encode())
	if err != nil {
		log.WithError(err).Debug("Partial crash record write")
	}

	// Flush to durable storage; the process may be gone a moment later.
	err = file.Sync()
	if err != nil {
		log.WithError(err).Debug("Can't sync crash file")
	}

	file.Close()
}
