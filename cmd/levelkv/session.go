package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/kezhuw/levelkv"
)

const helpText = `
levelkv - bounded cursors, snapshots and write batches over LevelDB-style engines.

Usage:
  levelkv [options] [database_path]

Commands:
  .help                   - Show this help message
  .exit                   - Exit the program

  PUT key value           - Store a key-value pair
  GET key                 - Retrieve a value by key
  DELETE key              - Delete a key, printing its previous value
  EXISTS key              - Report whether a key exists
  SIZE                    - Count all keys (full scan)

  SCAN [from [to]]        - Scan keys in [from, to] in ascending order
  RSCAN [from [to]]       - Scan keys in [to, from] in descending order

  SNAPSHOT                - Capture a snapshot, replacing the current one
  RELEASE                 - Release the current snapshot
  SGET key                - Retrieve a value from the current snapshot
  SSCAN [from [to]]       - Scan the current snapshot

  BEGIN                   - Start collecting PUT and DELETE into a batch
  COMMIT                  - Write the collected batch atomically
  ROLLBACK                - Discard the collected batch
`

// session executes REPL commands against one db.
type session struct {
	db  *levelkv.DB
	out io.Writer

	snapshot *levelkv.Snapshot
	batch    *levelkv.WriteBatch
}

func newSession(db *levelkv.DB, out io.Writer) *session {
	return &session{db: db, out: out}
}

func (s *session) prompt() string {
	switch {
	case s.batch != nil:
		return "levelkv[batch]> "
	case s.snapshot != nil:
		return "levelkv[snapshot]> "
	}
	return "levelkv> "
}

func (s *session) printf(format string, args ...interface{}) {
	fmt.Fprintf(s.out, format, args...)
}

func (s *session) close() {
	if s.snapshot != nil {
		s.snapshot.Release()
		s.snapshot = nil
	}
	s.batch = nil
}

// execute runs one command line. It returns false once the session should
// end.
func (s *session) execute(line string) bool {
	parts := strings.Fields(line)
	if len(parts) == 0 {
		return true
	}
	cmd := strings.ToUpper(parts[0])
	args := parts[1:]
	if strings.HasPrefix(cmd, ".") {
		switch strings.ToLower(cmd) {
		case ".help":
			s.printf("%s", helpText)
		case ".exit":
			return false
		default:
			s.printf("Error: unknown command %s\n", parts[0])
		}
		return true
	}
	if err := s.run(cmd, args); err != nil {
		s.printf("Error: %s\n", err)
	}
	return true
}

type usageError string

func (e usageError) Error() string {
	return "usage: " + string(e)
}

func (s *session) run(cmd string, args []string) error {
	switch cmd {
	case "PUT":
		if len(args) < 2 {
			return usageError("PUT key value")
		}
		key, value := []byte(args[0]), []byte(strings.Join(args[1:], " "))
		if s.batch != nil {
			s.batch.Put(key, value)
			s.printf("QUEUED\n")
			return nil
		}
		if err := s.db.Put(key, value, nil); err != nil {
			return err
		}
		s.printf("OK\n")
	case "GET", "SGET":
		if len(args) != 1 {
			return usageError(cmd + " key")
		}
		var r levelkv.Reader = s.db
		if cmd == "SGET" {
			if s.snapshot == nil {
				return errors.New("no snapshot")
			}
			r = s.snapshot
		}
		value, found, err := r.Get([]byte(args[0]), nil)
		switch {
		case err != nil:
			return err
		case !found:
			s.printf("<not found>\n")
		default:
			s.printf("%s\n", value)
		}
	case "DELETE":
		if len(args) != 1 {
			return usageError("DELETE key")
		}
		if s.batch != nil {
			s.batch.Delete([]byte(args[0]))
			s.printf("QUEUED\n")
			return nil
		}
		prev, found, err := s.db.Delete([]byte(args[0]), nil)
		switch {
		case err != nil:
			return err
		case !found:
			s.printf("<not found>\n")
		default:
			s.printf("OK (was %s)\n", prev)
		}
	case "EXISTS":
		if len(args) != 1 {
			return usageError("EXISTS key")
		}
		found, err := s.db.Exists([]byte(args[0]))
		if err != nil {
			return err
		}
		s.printf("%t\n", found)
	case "SIZE":
		n, err := s.db.Size()
		if err != nil {
			return err
		}
		s.printf("%d\n", n)
	case "SCAN", "RSCAN", "SSCAN":
		return s.scan(cmd, args)
	case "SNAPSHOT":
		ss, err := s.db.Snapshot()
		if err != nil {
			return err
		}
		if s.snapshot != nil {
			s.snapshot.Release()
		}
		s.snapshot = ss
		s.printf("OK\n")
	case "RELEASE":
		if s.snapshot == nil {
			return errors.New("no snapshot")
		}
		err := s.snapshot.Release()
		s.snapshot = nil
		if err != nil {
			return err
		}
		s.printf("OK\n")
	case "BEGIN":
		if s.batch != nil {
			return errors.New("batch already started")
		}
		s.batch = levelkv.NewWriteBatch()
		s.printf("OK\n")
	case "COMMIT":
		if s.batch == nil {
			return errors.New("no batch")
		}
		batch := s.batch
		s.batch = nil
		if err := batch.Commit(s.db, nil); err != nil {
			return err
		}
		s.printf("OK (%d writes)\n", batch.Len())
	case "ROLLBACK":
		if s.batch == nil {
			return errors.New("no batch")
		}
		s.batch = nil
		s.printf("OK\n")
	default:
		return errors.Newf("unknown command %s", cmd)
	}
	return nil
}

func (s *session) scan(cmd string, args []string) error {
	if len(args) > 2 {
		return usageError(cmd + " [from [to]]")
	}
	var opts levelkv.CursorOptions
	if len(args) > 0 {
		opts.From = []byte(args[0])
	}
	if len(args) > 1 {
		opts.To = []byte(args[1])
	}
	opts.Reverse = cmd == "RSCAN"
	var r levelkv.Reader = s.db
	if cmd == "SSCAN" {
		if s.snapshot == nil {
			return errors.New("no snapshot")
		}
		r = s.snapshot
	}
	c, err := levelkv.NewCursor(r, &opts)
	if err != nil {
		return err
	}
	n := 0
	err = c.Each(func(key, value []byte) error {
		n++
		s.printf("%s: %s\n", key, value)
		return nil
	})
	if err != nil {
		return err
	}
	s.printf("(%d entries)\n", n)
	return nil
}
