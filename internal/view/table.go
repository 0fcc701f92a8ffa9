package view

import (
	"fmt"
	"sort"
	"strings"

	"github.com/contactlearncert-blip/prospection/internal/model"
)

// SortKey is a sortable table column.
type SortKey string

const (
	SortName          SortKey = "name"
	SortCompany       SortKey = "company"
	SortIndustry      SortKey = "industry"
	SortStatus        SortKey = "status"
	SortLocation      SortKey = "location"
	SortLastContacted SortKey = "lastContacted"
)

// Direction is the sort order.
type Direction string

const (
	Ascending  Direction = "ascending"
	Descending Direction = "descending"
)

// All disables a status or industry filter.
const All = "all"

// SortConfig is the active sort.
type SortConfig struct {
	Key       SortKey   `json:"key"`
	Direction Direction `json:"direction"`
}

// ParseSortKey validates a sort key received from a client.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortName, SortCompany, SortIndustry, SortStatus, SortLocation, SortLastContacted:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// ParseDirection validates a direction; "" means ascending.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(s); d {
	case Ascending, Descending:
		return d, nil
	case "":
		return Ascending, nil
	}
	return "", fmt.Errorf("unknown sort direction %q", s)
}

// Table is the filter and sort state of the prospect table. The zero value
// shows everything unsorted.
type Table struct {
	Search         string      `json:"search"`
	StatusFilter   string      `json:"statusFilter"`
	IndustryFilter string      `json:"industryFilter"`
	Sort           *SortConfig `json:"sort,omitempty"`
}

// NewTable returns a table with both filters set to All.
func NewTable() *Table {
	return &Table{StatusFilter: All, IndustryFilter: All}
}

// RequestSort sorts by key: ascending, unless key is already the ascending
// sort, in which case it flips to descending.
func (t *Table) RequestSort(key SortKey) {
	dir := Ascending
	if t.Sort != nil && t.Sort.Key == key && t.Sort.Direction == Ascending {
		dir = Descending
	}
	t.Sort = &SortConfig{Key: key, Direction: dir}
}

func (t *Table) matches(p *model.Prospect) bool {
	if t.Search != "" {
		q := strings.ToLower(t.Search)
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Company), q) {
			return false
		}
	}
	if t.StatusFilter != "" && t.StatusFilter != All && string(p.Status) != t.StatusFilter {
		return false
	}
	if t.IndustryFilter != "" && t.IndustryFilter != All && string(p.Industry) != t.IndustryFilter {
		return false
	}
	return true
}

// Apply returns the visible rows. The input slice is not modified; equal
// elements keep their input order.
func (t *Table) Apply(prospects []*model.Prospect) []*model.Prospect {
	rows := make([]*model.Prospect, 0, len(prospects))
	for _, p := range prospects {
		if t.matches(p) {
			rows = append(rows, p)
		}
	}
	if t.Sort == nil {
		return rows
	}

	cmp := compareBy(t.Sort.Key)
	desc := t.Sort.Direction == Descending
	sort.SliceStable(rows, func(i, j int) bool {
		if desc {
			return cmp(rows[j], rows[i]) < 0
		}
		return cmp(rows[i], rows[j]) < 0
	})
	return rows
}

func compareBy(key SortKey) func(a, b *model.Prospect) int {
	switch key {
	case SortLastContacted:
		return func(a, b *model.Prospect) int {
			switch {
			case a.LastContacted == nil && b.LastContacted == nil:
				return 0
			case a.LastContacted == nil:
				return -1
			case b.LastContacted == nil:
				return 1
			}
			return a.LastContacted.Compare(*b.LastContacted)
		}
	case SortCompany:
		return func(a, b *model.Prospect) int { return strings.Compare(a.Company, b.Company) }
	case SortIndustry:
		return func(a, b *model.Prospect) int { return strings.Compare(string(a.Industry), string(b.Industry)) }
	case SortStatus:
		return func(a, b *model.Prospect) int { return strings.Compare(string(a.Status), string(b.Status)) }
	case SortLocation:
		return func(a, b *model.Prospect) int { return strings.Compare(a.Location, b.Location) }
	default:
		return func(a, b *model.Prospect) int { return strings.Compare(a.Name, b.Name) }
	}
}
