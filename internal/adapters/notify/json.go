package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/donkeithross3-commits/ma-tracker-app-sub001/internal/domain"
)

// JSON implements ports.Notifier by writing each result as an indented JSON
// document, for piping into other tools.
type JSON struct {
	out io.Writer
}

// NewJSON creates a JSON notifier writing to w.
func NewJSON(w io.Writer) *JSON {
	return &JSON{out: w}
}

// Notify writes r followed by a newline.
func (j *JSON) Notify(_ context.Context, r domain.ScanResult) error {
	if r.Candidates == nil {
		r.Candidates = []domain.SpreadCandidate{}
	}
	enc := json.NewEncoder(j.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("notify.JSON: %w", err)
	}
	return nil
}
