package tradelog

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/gocarina/gocsv"

	"trading-risk-engine/internal/types"
)

const (
	journalFile = "trades.csv"
	dateLayout  = "2006-01-02"
	timeLayout  = "2006-01-02 15:04:05"
)

// IST is the default journal time zone.
var IST = time.FixedZone("IST", 19800)

// Row is one journal line. Column names are read by the dashboard and by
// the trade ledger loader.
type Row struct {
	Date               string  `csv:"date"`
	Time               string  `csv:"time"`
	DecisionID         string  `csv:"decision_id"`
	Symbol             string  `csv:"symbol"`
	Action             string  `csv:"action"`
	Allowed            bool    `csv:"allowed"`
	Size               float64 `csv:"size"`
	Price              float64 `csv:"price"`
	Strategy           string  `csv:"strategy"`
	Confidence         float64 `csv:"confidence"`
	PnL                float64 `csv:"pnl"`
	KellyFraction      float64 `csv:"kelly_fraction"`
	MaxCorrelation     float64 `csv:"max_correlation"`
	CorrelationBlocked bool    `csv:"correlation_blocked"`
	Sentiment          float64 `csv:"sentiment"`
	BlockReason        string  `csv:"block_reason"`
}

// RowFor flattens a decision into a journal row. New decisions carry no
// realised pnl.
func RowFor(d types.Decision, loc *time.Location) Row {
	at := d.EvaluatedAt.In(loc)
	return Row{
		Date:               at.Format(dateLayout),
		Time:               at.Format(timeLayout),
		DecisionID:         d.ID,
		Symbol:             d.Symbol,
		Action:             string(d.Action),
		Allowed:            d.Allowed,
		Size:               d.SizeFraction,
		Price:              d.Price,
		Strategy:           d.Strategy,
		Confidence:         d.Confidence,
		KellyFraction:      d.Kelly.KellyFraction,
		MaxCorrelation:     d.Correlation.MaxCorrelation,
		CorrelationBlocked: d.Correlation.Blocked,
		Sentiment:          d.Sentiment.Combined,
		BlockReason:        string(d.BlockReason),
	}
}

// Journal appends decisions to a CSV journal and a daily JSON-lines log.
// Safe for concurrent use.
type Journal struct {
	mu  sync.Mutex
	dir string
	loc *time.Location
}

// NewJournal writes under dir; an empty dir falls back to TRADER_LOG_DIR
// and then to "logs".
func NewJournal(dir string) *Journal {
	if dir == "" {
		dir = os.Getenv("TRADER_LOG_DIR")
	}
	if dir == "" {
		dir = "logs"
	}
	return &Journal{dir: dir, loc: IST}
}

func (j *Journal) Dir() string { return j.dir }

// CSVPath is the journal file path.
func (j *Journal) CSVPath() string { return filepath.Join(j.dir, journalFile) }

func (j *Journal) decisionsPath(t time.Time) string {
	return filepath.Join(j.dir, "decisions", t.In(j.loc).Format(dateLayout)+".txt")
}

// Record journals one decision.
func (j *Journal) Record(d types.Decision) error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if err := os.MkdirAll(filepath.Join(j.dir, "decisions"), 0o755); err != nil {
		return err
	}
	if err := j.appendRow(RowFor(d, j.loc)); err != nil {
		return fmt.Errorf("journal csv: %w", err)
	}
	if err := j.appendJSON(d); err != nil {
		return fmt.Errorf("journal decisions: %w", err)
	}
	return nil
}

func (j *Journal) appendRow(r Row) error {
	p := j.CSVPath()
	_, statErr := os.Stat(p)
	fresh := os.IsNotExist(statErr)

	f, err := os.OpenFile(p, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	rows := []Row{r}
	if fresh {
		return gocsv.Marshal(&rows, f)
	}
	return gocsv.MarshalWithoutHeaders(&rows, f)
}

func (j *Journal) appendJSON(d types.Decision) error {
	f, err := os.OpenFile(j.decisionsPath(d.EvaluatedAt), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	b, err := json.Marshal(d)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(f, string(b))
	return err
}

// ReadJournal loads every row written so far.
func (j *Journal) ReadJournal() ([]Row, error) {
	j.mu.Lock()
	defer j.mu.Unlock()

	f, err := os.Open(j.CSVPath())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []Row
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, fmt.Errorf("parse journal: %w", err)
	}
	return rows, nil
}

// LoadLedger reads closed trades from a CSV with at least the columns
// date, symbol, action, quantity, price and pnl. A missing file is an empty
// ledger.
func LoadLedger(path string) ([]types.TradeRecord, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var recs []types.TradeRecord
	if err := gocsv.Unmarshal(f, &recs); err != nil {
		return nil, fmt.Errorf("parse ledger %s: %w", path, err)
	}
	return recs, nil
}

// CompressOlder gzips .txt and .csv logs whose last write is older than
// retentionDays and removes the originals.
func (j *Journal) CompressOlder(retentionDays int) error {
	if retentionDays <= 0 {
		return nil
	}
	j.mu.Lock()
	defer j.mu.Unlock()

	cutoff := time.Now().AddDate(0, 0, -retentionDays)
	return filepath.WalkDir(j.dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if ext := filepath.Ext(p); ext != ".txt" && ext != ".csv" {
			return nil
		}
		info, err := d.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			return nil
		}
		gz := p + ".gz"
		if _, err := os.Stat(gz); err == nil {
			_ = os.Remove(p)
			return nil
		}
		if err := gzipFile(p, gz); err != nil {
			return nil
		}
		_ = os.Remove(p)
		return nil
	})
}

func gzipFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	gw := gzip.NewWriter(out)
	_, copyErr := io.Copy(gw, in)
	closeErr := gw.Close()
	if err := out.Close(); err != nil && copyErr == nil && closeErr == nil {
		closeErr = err
	}
	if copyErr != nil || closeErr != nil {
		_ = os.Remove(dst)
		if copyErr != nil {
			return copyErr
		}
		return closeErr
	}
	return nil
}
