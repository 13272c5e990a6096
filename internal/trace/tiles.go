package trace

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/sirupsen/logrus"

	"cragsman/internal/world"
)

// TileEvent is one status change of a tile slot.
type TileEvent struct {
	Time    time.Time `json:"time"`
	Session string    `json:"session,omitempty"`
	Slot    int       `json:"slot"`
	X       int       `json:"x"`
	Y       int       `json:"y"`
	From    string    `json:"from"`
	To      string    `json:"to"`
}

// TileLogger implements world.TransitionObserver on top of a Writer.
type TileLogger struct {
	w       *Writer
	session string
	log     *logrus.Entry
}

var _ world.TransitionObserver = (*TileLogger)(nil)

func NewTileLogger(dir, session string, log *logrus.Entry) *TileLogger {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &TileLogger{w: NewWriter(dir, "tiles"), session: session, log: log}
}

func (l *TileLogger) TileTransition(index int, pos world.TilePos, from, to world.Status) {
	ev := TileEvent{
		Time:    l.w.now().UTC(),
		Session: l.session,
		Slot:    index,
		X:       pos.X,
		Y:       pos.Y,
		From:    from.String(),
		To:      to.String(),
	}
	if err := l.w.Write(ev); err != nil {
		l.log.WithError(err).Warn("tile trace write failed")
	}
}

func (l *TileLogger) Flush() error { return l.w.Flush() }
func (l *TileLogger) Close() error { return l.w.Close() }

// ReadTileEvents decodes every trace file in dir, oldest first.
func ReadTileEvents(dir string) ([]TileEvent, error) {
	paths, err := filepath.Glob(filepath.Join(dir, "tiles-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	var out []TileEvent
	for _, p := range paths {
		events, err := readFile(p)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(p), err)
		}
		out = append(out, events...)
	}
	return out, nil
}

func readFile(path string) ([]TileEvent, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return decodeLines(dec)
}

func decodeLines(r io.Reader) ([]TileEvent, error) {
	var out []TileEvent
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if len(sc.Bytes()) == 0 {
			continue
		}
		var ev TileEvent
		if err := json.Unmarshal(sc.Bytes(), &ev); err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	return out, sc.Err()
}
