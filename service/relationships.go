package service

import (
	"context"
	"strings"

	"github.com/0x3a/crits/core"
)

// RelationshipResult is the outcome of deriving an indicator from another
// object. Relationships lists the edges of that object afterwards.
type RelationshipResult struct {
	Success       bool                `json:"success"`
	Message       string              `json:"message,omitempty"`
	ObjectType    core.TLOType        `json:"type,omitempty"`
	ObjectID      string              `json:"value,omitempty"`
	IndicatorID   string              `json:"indicator_id,omitempty"`
	Relationships []core.Relationship `json:"relationships,omitempty"`
}

// FromTLORequest describes an indicator derived from an existing object
type FromTLORequest struct {
	IndicatorType core.IndicatorType
	ObjectType    core.TLOType
	ObjectID      string
	Value         string
	Source        string
}

// tlo is the part of a top-level object needed to relate to it
type tlo struct {
	Type    core.TLOType
	ID      string
	Value   string
	Sources []core.Source
}

func (s *IndicatorService) lookupTLO(ctx context.Context, objType core.TLOType, id string) (*tlo, error) {
	if !objType.IsValid() {
		return nil, invalidf("Invalid object type: %s", objType)
	}
	if objType == core.TLOIndicator {
		ind, err := s.store.GetIndicator(ctx, id)
		if err != nil {
			return nil, err
		}
		return &tlo{Type: objType, ID: ind.ID, Value: ind.Value, Sources: ind.Sources}, nil
	}
	obj, err := s.store.GetObject(ctx, objType, id)
	if err != nil {
		return nil, err
	}
	return &tlo{Type: obj.Type, ID: obj.ID, Value: obj.Value, Sources: obj.Sources}, nil
}

// inheritedSource picks the source credited for a derived indicator: the
// explicit one, else the object's first source, else the analyst
func inheritedSource(explicit string, obj *tlo, analyst string) string {
	if s := strings.TrimSpace(explicit); s != "" {
		return s
	}
	for _, src := range obj.Sources {
		if src.Name != "" {
			return src.Name
		}
	}
	return analyst
}

func (s *IndicatorService) relationshipsOf(ctx context.Context, obj *tlo, indicatorID string) RelationshipResult {
	rels, err := s.store.GetRelationships(ctx, obj.Type, obj.ID)
	if err != nil {
		return RelationshipResult{Message: s.failureMessage("load relationships", err)}
	}
	return RelationshipResult{
		Success:       true,
		ObjectType:    obj.Type,
		ObjectID:      obj.ID,
		IndicatorID:   indicatorID,
		Relationships: rels,
	}
}

// CreateIndicatorAndIP records an IP seen on an object: an IP indicator, an
// IP object, and links among the three
func (s *IndicatorService) CreateIndicatorAndIP(ctx context.Context, objType core.TLOType, objID, ip, analyst string) RelationshipResult {
	ip = strings.TrimSpace(ip)
	ipType := core.DetectIPType(ip)
	if ipType == "" {
		return RelationshipResult{Message: "Invalid IP address: " + ip}
	}
	obj, err := s.lookupTLO(ctx, objType, objID)
	if err != nil {
		return RelationshipResult{Message: s.failureMessage("find object", err)}
	}
	source := inheritedSource("", obj, analyst)

	single := s.handleSingle(ctx, &SingleRequest{
		Value:     ip,
		Type:      ipType,
		Source:    source,
		Method:    "indicator_and_ip",
		AddDomain: true,
	}, analyst)
	if !single.Success {
		return RelationshipResult{Message: single.Message}
	}

	ipObj, err := s.findOrCreateObject(ctx, core.TLOIP, core.NormalizeIndicatorValue(ipType, ip), source, analyst)
	if err != nil {
		return RelationshipResult{Message: s.failureMessage("create IP", err)}
	}
	if !(obj.Type == core.TLOIP && obj.ID == ipObj.ID) {
		if err := s.relate(ctx, obj.Type, obj.ID, obj.Value, core.TLOIP, ipObj.ID, ipObj.Value, analyst); err != nil {
			return RelationshipResult{Message: s.failureMessage("relate IP", err)}
		}
	}
	if !(obj.Type == core.TLOIndicator && obj.ID == single.ObjectID) {
		if err := s.relate(ctx, obj.Type, obj.ID, obj.Value, core.TLOIndicator, single.ObjectID, ipObj.Value, analyst); err != nil {
			return RelationshipResult{Message: s.failureMessage("relate indicator", err)}
		}
	}

	s.logger.Infow("Indicator and IP created from object",
		"object_type", obj.Type, "object_id", obj.ID, "ip", ipObj.Value, "analyst", analyst)
	return s.relationshipsOf(ctx, obj, single.ObjectID)
}

// CreateIndicatorFromTLO creates an indicator from a value found on another
// object and links the two
func (s *IndicatorService) CreateIndicatorFromTLO(ctx context.Context, req FromTLORequest, analyst string) RelationshipResult {
	obj, err := s.lookupTLO(ctx, req.ObjectType, req.ObjectID)
	if err != nil {
		return RelationshipResult{Message: s.failureMessage("find object", err)}
	}

	single := s.handleSingle(ctx, &SingleRequest{
		Value:     req.Value,
		Type:      req.IndicatorType,
		Source:    inheritedSource(req.Source, obj, analyst),
		Method:    "indicator_from_tlo",
		AddDomain: true,
	}, analyst)
	if !single.Success {
		return RelationshipResult{Message: single.Message}
	}

	if !(obj.Type == core.TLOIndicator && obj.ID == single.ObjectID) {
		value := core.NormalizeIndicatorValue(req.IndicatorType, req.Value)
		if err := s.relate(ctx, obj.Type, obj.ID, obj.Value, core.TLOIndicator, single.ObjectID, value, analyst); err != nil {
			return RelationshipResult{Message: s.failureMessage("relate indicator", err)}
		}
	}

	s.logger.Infow("Indicator created from object",
		"object_type", obj.Type, "object_id", obj.ID, "indicator_id", single.ObjectID, "analyst", analyst)
	return s.relationshipsOf(ctx, obj, single.ObjectID)
}
