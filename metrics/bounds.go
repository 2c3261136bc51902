package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
)

// Snapshot is one progress record of a planning session.
type Snapshot struct {
	Session        string
	Elapsed        time.Duration // planning time only, summed over calls
	StatesTouched  int
	StatesExpanded int
	Trials         int
	Backups        int
	Lower          float64
	Upper          float64
}

// BoundsWriter receives periodic snapshots. It is purely observational.
type BoundsWriter interface {
	WriteSnapshot(s Snapshot) error
	Close() error
}

const (
	FormatText    = "text"
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// OpenBoundsFile creates path and returns a writer in the given format that
// closes the file when it is closed.
func OpenBoundsFile(path, format string) (BoundsWriter, error) {
	var open func(io.Writer) BoundsWriter
	switch format {
	case FormatText, "":
		open = NewTextBoundsWriter
	case FormatCSV:
		open = NewCSVBoundsWriter
	case FormatParquet:
		open = NewParquetBoundsWriter
	default:
		return nil, fmt.Errorf("unknown bounds format %q", format)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create bounds file: %w", err)
	}
	return &fileBoundsWriter{BoundsWriter: open(f), file: f}, nil
}

type fileBoundsWriter struct {
	BoundsWriter
	file *os.File
}

func (w *fileBoundsWriter) Close() error {
	err := w.BoundsWriter.Close()
	if cerr := w.file.Close(); err == nil {
		err = cerr
	}
	return err
}

type textBoundsWriter struct {
	w io.Writer
}

// NewTextBoundsWriter writes one whitespace-separated line per snapshot:
// elapsed seconds, states touched, states expanded, trials, backups, lower, upper.
func NewTextBoundsWriter(w io.Writer) BoundsWriter {
	return &textBoundsWriter{w: w}
}

func (t *textBoundsWriter) WriteSnapshot(s Snapshot) error {
	_, err := fmt.Fprintf(t.w, "%.6f %d %d %d %d %g %g\n",
		s.Elapsed.Seconds(), s.StatesTouched, s.StatesExpanded, s.Trials, s.Backups, s.Lower, s.Upper)
	return err
}

func (t *textBoundsWriter) Close() error {
	return nil
}

type csvBoundsWriter struct {
	writer      *csv.Writer
	wroteHeader bool
}

func NewCSVBoundsWriter(w io.Writer) BoundsWriter {
	return &csvBoundsWriter{writer: csv.NewWriter(w)}
}

func (c *csvBoundsWriter) WriteSnapshot(s Snapshot) error {
	if !c.wroteHeader {
		header := []string{"session", "elapsed_seconds", "states_touched", "states_expanded", "trials", "backups", "lower", "upper"}
		if err := c.writer.Write(header); err != nil {
			return fmt.Errorf("failed to write bounds header: %w", err)
		}
		c.wroteHeader = true
	}

	row := []string{
		s.Session,
		strconv.FormatFloat(s.Elapsed.Seconds(), 'f', 6, 64),
		strconv.Itoa(s.StatesTouched),
		strconv.Itoa(s.StatesExpanded),
		strconv.Itoa(s.Trials),
		strconv.Itoa(s.Backups),
		strconv.FormatFloat(s.Lower, 'g', -1, 64),
		strconv.FormatFloat(s.Upper, 'g', -1, 64),
	}
	if err := c.writer.Write(row); err != nil {
		return fmt.Errorf("failed to write bounds row: %w", err)
	}
	c.writer.Flush()
	return c.writer.Error()
}

func (c *csvBoundsWriter) Close() error {
	c.writer.Flush()
	return c.writer.Error()
}

type snapshotRow struct {
	Session        string  `parquet:"session,dict"`
	ElapsedSeconds float64 `parquet:"elapsed_seconds"`
	StatesTouched  int64   `parquet:"states_touched"`
	StatesExpanded int64   `parquet:"states_expanded"`
	Trials         int64   `parquet:"trials"`
	Backups        int64   `parquet:"backups"`
	Lower          float64 `parquet:"lower"`
	Upper          float64 `parquet:"upper"`
}

type parquetBoundsWriter struct {
	writer *parquet.GenericWriter[snapshotRow]
}

// NewParquetBoundsWriter buffers snapshots into zstd-compressed row groups.
// Nothing readable reaches w until Close.
func NewParquetBoundsWriter(w io.Writer) BoundsWriter {
	return &parquetBoundsWriter{
		writer: parquet.NewGenericWriter[snapshotRow](w,
			parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
			parquet.KeyValueMetadata("schema", "bounds_snapshot_v1"),
		),
	}
}

func (p *parquetBoundsWriter) WriteSnapshot(s Snapshot) error {
	row := snapshotRow{
		Session:        s.Session,
		ElapsedSeconds: s.Elapsed.Seconds(),
		StatesTouched:  int64(s.StatesTouched),
		StatesExpanded: int64(s.StatesExpanded),
		Trials:         int64(s.Trials),
		Backups:        int64(s.Backups),
		Lower:          s.Lower,
		Upper:          s.Upper,
	}
	if _, err := p.writer.Write([]snapshotRow{row}); err != nil {
		return fmt.Errorf("write parquet snapshot: %w", err)
	}
	return nil
}

func (p *parquetBoundsWriter) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("close parquet snapshots: %w", err)
	}
	return nil
}
