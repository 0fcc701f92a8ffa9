package model

// EvaluateProspectInput is the input of the lead evaluation flow.
type EvaluateProspectInput struct {
	Industry       string `json:"industry"`
	OnlinePresence string `json:"onlinePresence"`
}

// EvaluationResult is the fit decision produced by the evaluation flow.
// It is never persisted.
type EvaluationResult struct {
	IsGoodFit bool   `json:"isGoodFit"`
	Reason    string `json:"reason"`
}

// GenerateMessageInput is the input of the outreach message flow.
type GenerateMessageInput struct {
	ProspectName           string `json:"prospectName"`
	ProspectOnlinePresence string `json:"prospectOnlinePresence"`
	ServiceOffering        string `json:"serviceOffering"`
}

// PersonalizedMessage is the generated outreach text. It is never persisted.
type PersonalizedMessage struct {
	PersonalizedMessage string `json:"personalizedMessage"`
}
