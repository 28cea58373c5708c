package scrape

import (
	"github.com/IshaanNene/ReviewGoat/internal/dates"
	"github.com/IshaanNene/ReviewGoat/internal/normalize"
	"github.com/IshaanNene/ReviewGoat/internal/types"
)

// WindowFilter keeps records dated inside an inclusive window. Records
// without a parsable date are kept when KeepUndated is set.
type WindowFilter struct {
	Window      types.Window
	KeepUndated bool
	Dates       *dates.Parser
}

// Verdict is the outcome of filtering one page.
type Verdict struct {
	Kept     []types.RawRecord
	Dated    int
	InWindow int
	Older    int
}

// PastWindow reports whether the page had parsable dates, none of them in the
// window and all of them older than its start.
func (v Verdict) PastWindow() bool {
	return v.Dated > 0 && v.InWindow == 0 && v.Older == v.Dated
}

// Apply filters one page of raw records, keeping arrival order.
func (f WindowFilter) Apply(records []types.RawRecord) Verdict {
	var v Verdict
	for _, rec := range records {
		d, ok := f.date(rec)
		if !ok {
			if f.KeepUndated {
				v.Kept = append(v.Kept, rec)
			}
			continue
		}
		v.Dated++
		switch {
		case f.Window.Contains(d):
			v.InWindow++
			v.Kept = append(v.Kept, rec)
		case d.Before(f.Window.Start):
			v.Older++
		}
	}
	return v
}

// Reviews filters normalized reviews the same way.
func (f WindowFilter) Reviews(reviews []*types.Review) []*types.Review {
	out := make([]*types.Review, 0, len(reviews))
	for _, r := range reviews {
		if r.Date == nil {
			if f.KeepUndated {
				out = append(out, r)
			}
			continue
		}
		if f.Window.Contains(*r.Date) {
			out = append(out, r)
		}
	}
	return out
}

func (f WindowFilter) date(rec types.RawRecord) (types.Date, bool) {
	v, ok := normalize.Value(rec, normalize.FieldDate)
	if !ok {
		return types.Date{}, false
	}
	p := f.Dates
	if p == nil {
		p = &dates.Parser{}
	}
	return p.Coerce(v)
}
