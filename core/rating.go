package core

import "time"

// RatingValue is a confidence or impact level
type RatingValue string

const (
	RatingUnknown RatingValue = "unknown"
	RatingBenign  RatingValue = "benign"
	RatingLow     RatingValue = "low"
	RatingMedium  RatingValue = "medium"
	RatingHigh    RatingValue = "high"
)

// AllRatings lists the valid rating values in display order
var AllRatings = []RatingValue{RatingUnknown, RatingBenign, RatingLow, RatingMedium, RatingHigh}

// IsValid checks if the rating value is valid
func (r RatingValue) IsValid() bool {
	for _, valid := range AllRatings {
		if r == valid {
			return true
		}
	}
	return false
}

// Rating is a confidence or impact assessment with attribution
type Rating struct {
	Rating  RatingValue `json:"rating" bson:"rating"`
	Analyst string      `json:"analyst" bson:"analyst"`
	Date    time.Time   `json:"date" bson:"date"`
}

// NewRating creates a rating stamped with the current time
func NewRating(value RatingValue, analyst string) Rating {
	return Rating{Rating: value, Analyst: analyst, Date: Now()}
}

// RatingKind selects which rating update_ci changes
type RatingKind string

const (
	RatingKindConfidence RatingKind = "confidence"
	RatingKindImpact     RatingKind = "impact"
)

// IsValid checks if the rating kind is valid
func (k RatingKind) IsValid() bool {
	return k == RatingKindConfidence || k == RatingKindImpact
}

// CampaignConfidence is the analyst's confidence in a campaign attribution
type CampaignConfidence string

const (
	CampaignConfidenceLow    CampaignConfidence = "low"
	CampaignConfidenceMedium CampaignConfidence = "medium"
	CampaignConfidenceHigh   CampaignConfidence = "high"
)

// IsValid checks if the campaign confidence is valid
func (c CampaignConfidence) IsValid() bool {
	switch c {
	case CampaignConfidenceLow, CampaignConfidenceMedium, CampaignConfidenceHigh:
		return true
	}
	return false
}
