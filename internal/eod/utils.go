package eod

import (
	"os"
	"path/filepath"
	"time"
)

const dateLayout = "2006-01-02"

var ist = time.FixedZone("IST", 19800)

func logDir(dir string) string {
	if dir != "" {
		return dir
	}
	if v := os.Getenv("TRADER_LOG_DIR"); v != "" {
		return v
	}
	return "logs"
}

func decisionFile(dir string, t time.Time) string {
	return filepath.Join(dir, "decisions", t.In(ist).Format(dateLayout)+".txt")
}

func eodCSVPath(dir string, t time.Time) string {
	return filepath.Join(dir, "eod", t.In(ist).Format(dateLayout)+".csv")
}

// marketCloseTime is 15:40 IST on t's date, after the closing session.
func marketCloseTime(t time.Time) time.Time {
	t = t.In(ist)
	return time.Date(t.Year(), t.Month(), t.Day(), 15, 40, 0, 0, ist)
}
