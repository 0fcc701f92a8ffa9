package model

import "time"

// Status is the outreach lifecycle state of a prospect.
type Status string

const (
	StatusNew           Status = "new"
	StatusContacted     Status = "contacted"
	StatusReplied       Status = "replied"
	StatusInterested    Status = "interested"
	StatusNotInterested Status = "not_interested"
)

// Statuses lists every status in menu order.
var Statuses = []Status{StatusNew, StatusContacted, StatusReplied, StatusInterested, StatusNotInterested}

// Valid reports whether s is one of the five known statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Contacted reports whether a prospect in this status counts as contacted
// for dashboard purposes: anything except new and not_interested.
func (s Status) Contacted() bool {
	return s != StatusNew && s != StatusNotInterested
}

// Industry is the fixed set of sectors a prospect can belong to.
type Industry string

const (
	IndustryTech       Industry = "Tech"
	IndustryHealthcare Industry = "Healthcare"
	IndustryFinance    Industry = "Finance"
	IndustryEcommerce  Industry = "E-commerce"
	IndustryEducation  Industry = "Education"
	IndustryMarketing  Industry = "Marketing"
	IndustryRealEstate Industry = "Real Estate"
)

// Industries lists every industry in display order.
var Industries = []Industry{
	IndustryTech,
	IndustryHealthcare,
	IndustryFinance,
	IndustryEcommerce,
	IndustryEducation,
	IndustryMarketing,
	IndustryRealEstate,
}

// Valid reports whether i is one of the known industries.
func (i Industry) Valid() bool {
	for _, v := range Industries {
		if i == v {
			return true
		}
	}
	return false
}

// Contact holds the ways to reach a prospect. Phone is optional.
type Contact struct {
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Website string `json:"website"`
}

// Prospect is a sales lead owned by a single user.
type Prospect struct {
	ID             string     `json:"id"`
	UserID         string     `json:"userId"`
	Name           string     `json:"name"`
	Company        string     `json:"company"`
	Industry       Industry   `json:"industry"`
	Location       string     `json:"location"`
	Contact        Contact    `json:"contact"`
	OnlinePresence string     `json:"onlinePresence"`
	Avatar         string     `json:"avatar"`
	Status         Status     `json:"status"`
	LastContacted  *time.Time `json:"lastContacted"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

// Clone returns a deep copy of p.
func (p *Prospect) Clone() *Prospect {
	c := *p
	if p.LastContacted != nil {
		t := *p.LastContacted
		c.LastContacted = &t
	}
	return &c
}
