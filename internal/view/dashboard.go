// Package view holds presentation state computed from a prospect list: the
// dashboard aggregates, the filtered and sorted table, and the optimistic
// store the table reads from.
package view

import (
	"math"
	"strconv"

	"github.com/contactlearncert-blip/prospection/internal/model"
)

var statusLabels = map[model.Status]string{
	model.StatusNew:           "Nouveau",
	model.StatusContacted:     "Contacté",
	model.StatusReplied:       "A répondu",
	model.StatusInterested:    "Intéressé",
	model.StatusNotInterested: "Pas intéressé",
}

var statusFills = map[model.Status]string{
	model.StatusNew:           "hsl(var(--chart-1))",
	model.StatusContacted:     "hsl(var(--chart-2))",
	model.StatusReplied:       "hsl(var(--chart-3))",
	model.StatusInterested:    "hsl(var(--chart-4))",
	model.StatusNotInterested: "hsl(var(--chart-5))",
}

const fallbackFill = "#ccc"

// StatusLabel returns the French label of s, or s itself when unknown.
func StatusLabel(s model.Status) string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// BuildOverview computes the headline counters. Contacted counts every
// prospect past "new" except "not_interested"; the conversion rate is
// interested / contacted as a percentage rounded to one decimal, 0 when
// nobody was contacted.
func BuildOverview(prospects []*model.Prospect) model.Overview {
	o := model.Overview{Total: len(prospects)}
	for _, p := range prospects {
		switch p.Status {
		case model.StatusNew:
			o.New++
		case model.StatusInterested:
			o.Interested++
		}
		if p.Status.Contacted() {
			o.Contacted++
		}
	}
	if o.Contacted > 0 {
		o.ConversionRate = math.Round(float64(o.Interested)/float64(o.Contacted)*1000) / 10
	}
	o.ConversionLabel = strconv.FormatFloat(o.ConversionRate, 'f', 1, 64)
	return o
}

// ByIndustry counts prospects per industry in order of first appearance.
func ByIndustry(prospects []*model.Prospect) []model.IndustryCount {
	out := []model.IndustryCount{}
	index := make(map[model.Industry]int)
	for _, p := range prospects {
		i, ok := index[p.Industry]
		if !ok {
			i = len(out)
			index[p.Industry] = i
			out = append(out, model.IndustryCount{Industry: p.Industry})
		}
		out[i].Count++
	}
	return out
}

// ByStatus counts prospects per status in order of first appearance.
func ByStatus(prospects []*model.Prospect) []model.StatusCount {
	out := []model.StatusCount{}
	index := make(map[model.Status]int)
	for _, p := range prospects {
		i, ok := index[p.Status]
		if !ok {
			i = len(out)
			index[p.Status] = i
			fill, known := statusFills[p.Status]
			if !known {
				fill = fallbackFill
			}
			out = append(out, model.StatusCount{Status: p.Status, Label: StatusLabel(p.Status), Fill: fill})
		}
		out[i].Count++
	}
	return out
}

// BuildDashboard assembles the whole dashboard.
func BuildDashboard(prospects []*model.Prospect) model.Dashboard {
	return model.Dashboard{
		Overview:   BuildOverview(prospects),
		ByIndustry: ByIndustry(prospects),
		ByStatus:   ByStatus(prospects),
	}
}
