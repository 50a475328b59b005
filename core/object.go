package core

import (
	"time"

	"github.com/google/uuid"
)

// TLOType names a top-level object collection
type TLOType string

const (
	TLOIndicator   TLOType = "Indicator"
	TLOIP          TLOType = "IP"
	TLODomain      TLOType = "Domain"
	TLOSample      TLOType = "Sample"
	TLOEmail       TLOType = "Email"
	TLOEvent       TLOType = "Event"
	TLOPCAP        TLOType = "PCAP"
	TLOCertificate TLOType = "Certificate"
	TLORawData     TLOType = "RawData"
	TLOCampaign    TLOType = "Campaign"
	TLOActor       TLOType = "Actor"
)

// AllTLOTypes lists every top-level object type
var AllTLOTypes = []TLOType{
	TLOIndicator, TLOIP, TLODomain, TLOSample, TLOEmail, TLOEvent,
	TLOPCAP, TLOCertificate, TLORawData, TLOCampaign, TLOActor,
}

// IsValid checks if the TLO type is known
func (t TLOType) IsValid() bool {
	for _, valid := range AllTLOTypes {
		if t == valid {
			return true
		}
	}
	return false
}

// RelationshipType labels the edge between two objects
type RelationshipType string

// RelatedTo is the relationship created by indicator derivation
const RelatedTo RelationshipType = "Related_To"

// Object is a non-indicator top-level record that indicators relate to
type Object struct {
	ID      string    `json:"id" bson:"_id"`
	Type    TLOType   `json:"type" bson:"type"`
	Value   string    `json:"value" bson:"value"`
	Sources []Source  `json:"sources" bson:"sources"`
	Analyst string    `json:"analyst" bson:"analyst"`
	Created time.Time `json:"created" bson:"created"`
}

// NewObject creates a top-level object with a fresh id
func NewObject(t TLOType, value, analyst string) *Object {
	return &Object{
		ID:      uuid.New().String(),
		Type:    t,
		Value:   value,
		Sources: []Source{},
		Analyst: analyst,
		Created: Now(),
	}
}

// ObjectRef identifies any top-level record
type ObjectRef struct {
	Type TLOType `json:"type" bson:"type"`
	ID   string  `json:"id" bson:"id"`
}

// Relationship is one direction of a link between two objects. Links are
// stored as a forward and a reverse pair.
type Relationship struct {
	LeftType   TLOType          `json:"left_type" bson:"left_type"`
	LeftID     string           `json:"left_id" bson:"left_id"`
	RightType  TLOType          `json:"right_type" bson:"right_type"`
	RightID    string           `json:"right_id" bson:"right_id"`
	RightValue string           `json:"right_value" bson:"right_value"`
	RelType    RelationshipType `json:"rel_type" bson:"rel_type"`
	Analyst    string           `json:"analyst" bson:"analyst"`
	Date       time.Time        `json:"date" bson:"date"`
}

// Reverse returns the opposite direction of the link, labelled with the
// left side's value
func (r Relationship) Reverse(leftValue string) Relationship {
	return Relationship{
		LeftType:   r.RightType,
		LeftID:     r.RightID,
		RightType:  r.LeftType,
		RightID:    r.LeftID,
		RightValue: leftValue,
		RelType:    r.RelType,
		Analyst:    r.Analyst,
		Date:       r.Date,
	}
}
