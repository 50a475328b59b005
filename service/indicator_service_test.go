package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"path/filepath"
	"strings"
	"testing"

	"github.com/0x3a/crits/core"
	"github.com/0x3a/crits/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testMD5 = "d41d8cd98f00b204e9800998ecf8427e"

var (
	admin   = core.Analyst{Username: "root", Roles: []string{core.RoleAdmin}}
	analyst = core.Analyst{Username: "jdoe"}
)

func setupService(t *testing.T) (*IndicatorService, storage.Store) {
	t.Helper()
	logger := zap.NewNop().Sugar()

	db, err := storage.NewSQLite(filepath.Join(t.TempDir(), "service.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	store := storage.NewSQLiteStore(db, logger)
	return NewIndicatorService(store, logger), store
}

func upload(t *testing.T, svc *IndicatorService, indType core.IndicatorType, value string) UploadResult {
	t.Helper()
	res := svc.HandleSingle(context.Background(), SingleRequest{
		Value:  value,
		Type:   indType,
		Source: "OSINT",
	}, analyst.Username)
	require.True(t, res.Success, res.Message)
	return res
}

// ============================================================================
// Single uploads
// ============================================================================

func TestHandleSingle_CreatesThenMerges(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	first := svc.HandleSingle(ctx, SingleRequest{
		Value:      "evil.example.com",
		Type:       core.IndicatorTypeDomain,
		Source:     "OSINT",
		Method:     "manual",
		BucketList: "phish",
		AddDomain:  true,
	}, "jdoe")
	require.True(t, first.Success, first.Message)
	assert.True(t, first.IsNew)
	assert.Equal(t, "Indicator added successfully!", first.Message)

	second := svc.HandleSingle(ctx, SingleRequest{
		Value:              "EVIL.example.com",
		Type:               core.IndicatorTypeDomain,
		Source:             "OSINT",
		Campaign:           "APT1",
		CampaignConfidence: core.CampaignConfidenceHigh,
		Confidence:         core.RatingHigh,
		BucketList:         "phish, c2",
		Ticket:             "T-1",
		AddDomain:          true,
	}, "asmith")
	require.True(t, second.Success, second.Message)
	assert.False(t, second.IsNew)
	assert.Equal(t, first.ObjectID, second.ObjectID)

	ind, err := store.GetIndicator(ctx, first.ObjectID)
	require.NoError(t, err)
	require.Len(t, ind.Sources, 1)
	assert.Len(t, ind.Sources[0].Instances, 2)
	assert.Equal(t, []string{"phish", "c2"}, ind.BucketList)
	assert.Equal(t, []string{"APT1"}, ind.CampaignNames())
	assert.Equal(t, core.RatingHigh, ind.Confidence.Rating)
	assert.Equal(t, "asmith", ind.Confidence.Analyst)
	assert.Equal(t, core.RatingUnknown, ind.Impact.Rating)
	require.Len(t, ind.Tickets, 1)

	// add_domain linked one Domain object, once
	rels, err := store.GetRelationships(ctx, core.TLOIndicator, ind.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, core.TLODomain, rels[0].RightType)
	assert.Equal(t, "evil.example.com", rels[0].RightValue)

	back, err := store.GetRelationships(ctx, core.TLODomain, rels[0].RightID)
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, ind.ID, back[0].RightID)
}

func TestHandleSingle_URIRelatesHost(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	res := svc.HandleSingle(ctx, SingleRequest{
		Value:     "http://10.1.2.3/gate.php",
		Type:      core.IndicatorTypeURI,
		Source:    "OSINT",
		AddDomain: true,
	}, "jdoe")
	require.True(t, res.Success, res.Message)

	obj, err := store.FindObject(ctx, core.TLOIP, "10.1.2.3")
	require.NoError(t, err)
	rels, err := store.GetRelationships(ctx, core.TLOIP, obj.ID)
	require.NoError(t, err)
	require.Len(t, rels, 1)
	assert.Equal(t, res.ObjectID, rels[0].RightID)
}

func TestHandleSingle_Validation(t *testing.T) {
	svc, _ := setupService(t)

	tests := []struct {
		name    string
		req     SingleRequest
		message string
	}{
		{
			name:    "missing source",
			req:     SingleRequest{Value: "1.2.3.4", Type: core.IndicatorTypeIPv4},
			message: "Source is required",
		},
		{
			name:    "unknown type",
			req:     SingleRequest{Value: "x", Type: "Bogus", Source: "s"},
			message: "Invalid indicator type",
		},
		{
			name:    "value invalid for type",
			req:     SingleRequest{Value: "999.1.1.1", Type: core.IndicatorTypeIPv4, Source: "s"},
			message: "Invalid IPv4 Address value",
		},
		{
			name: "bad campaign confidence",
			req: SingleRequest{Value: "1.2.3.4", Type: core.IndicatorTypeIPv4, Source: "s",
				Campaign: "APT1", CampaignConfidence: "certain"},
			message: "Invalid campaign confidence",
		},
		{
			name:    "bad rating",
			req:     SingleRequest{Value: "1.2.3.4", Type: core.IndicatorTypeIPv4, Source: "s", Impact: "severe"},
			message: "Invalid impact",
		},
		{
			name:    "unknown action",
			req:     SingleRequest{Value: "1.2.3.4", Type: core.IndicatorTypeIPv4, Source: "s", Action: "Nuke"},
			message: "Invalid action type",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.HandleSingle(context.Background(), tt.req, "jdoe")
			assert.False(t, res.Success)
			assert.Contains(t, res.Message, tt.message)
			assert.Empty(t, res.ObjectID)
		})
	}
}

// ============================================================================
// Bulk uploads
// ============================================================================

func TestHandleCSV_File(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	require.True(t, svc.AddActionType(ctx, "Blocked", "root").Success)

	data := strings.Join([]string{
		"Indicator,Type,Campaign,Campaign Confidence,Confidence,Impact,Bucket List,Ticket,Action",
		`1.2.3.4,IPv4 Address,APT1,High,medium,low,"a,b",T-1,Blocked`,
		"not-an-ip,IPv4 Address,,,,,,,",
		"",
		"evil.example.com,Domain,,,,,,,",
	}, "\n")

	res := svc.HandleCSV(ctx, strings.NewReader(data), BulkRequest{
		Source:    "OSINT",
		Method:    "csv",
		Mode:      ModeFile,
		AddDomain: true,
	}, "jdoe")

	assert.True(t, res.Success)
	assert.Equal(t, 3, res.Processed)
	assert.Equal(t, 2, res.New)
	assert.Equal(t, 1, res.Failed)
	require.Len(t, res.Failures, 1)
	assert.True(t, strings.HasPrefix(res.Failures[0], "Line 3:"), res.Failures[0])
	assert.Contains(t, res.Message, "2 new")

	ind, err := store.FindIndicator(ctx, core.IndicatorTypeIPv4, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ind.BucketList)
	assert.Equal(t, core.RatingMedium, ind.Confidence.Rating)
	assert.Equal(t, core.RatingLow, ind.Impact.Rating)
	require.Len(t, ind.Campaigns, 1)
	assert.Equal(t, core.CampaignConfidenceHigh, ind.Campaigns[0].Confidence)
	require.Len(t, ind.Actions, 1)
	assert.Equal(t, "Blocked", ind.Actions[0].ActionType)
	assert.Equal(t, core.ActiveOn, ind.Actions[0].Active)

	// Re-uploading merges instead of duplicating
	again := svc.HandleCSV(ctx, strings.NewReader(data), BulkRequest{Source: "OSINT", Mode: ModeFile}, "jdoe")
	assert.Equal(t, 2, again.Updated)
	assert.Equal(t, 0, again.New)
}

func TestHandleCSV_ByteOrderMark(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	data := "\ufeffIndicator,Type\nbom.example.com,Domain\n"
	res := svc.HandleCSV(ctx, strings.NewReader(data), BulkRequest{Source: "OSINT", Mode: ModeFile}, "jdoe")

	require.True(t, res.Success, res.Message)
	assert.Equal(t, 1, res.New)
	_, err := store.FindIndicator(ctx, core.IndicatorTypeDomain, "bom.example.com")
	assert.NoError(t, err)
}

func TestHandleCSV_TextDetectsTabs(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	data := "Indicator\tType\n" + testMD5 + "\tMD5\nevil.example.com\tDomain\n"
	res := svc.HandleCSV(ctx, strings.NewReader(data), BulkRequest{Source: "OSINT", Mode: ModeText}, "jdoe")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, 2, res.New)

	_, err := store.FindIndicator(ctx, core.IndicatorTypeMD5, testMD5)
	assert.NoError(t, err)
}

func TestHandleCSV_Rejects(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		data    string
		source  string
		message string
	}{
		{name: "missing type column", data: "Indicator\n1.2.3.4\n", source: "s", message: `"type"`},
		{name: "empty upload", data: "", source: "s", message: "no header row"},
		{name: "header only", data: "Indicator,Type\n", source: "s", message: "No indicators"},
		{name: "missing source", data: "Indicator,Type\n1.2.3.4,IPv4 Address\n", message: "Source is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := svc.HandleCSV(ctx, strings.NewReader(tt.data), BulkRequest{Source: tt.source, Mode: ModeFile}, "jdoe")
			assert.False(t, res.Success)
			assert.Contains(t, res.Message, tt.message)
		})
	}
}

// ============================================================================
// Sub-records
// ============================================================================

func TestActions_AddUpdateRemove(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	id := upload(t, svc, core.IndicatorTypeIPv4, "1.2.3.4").ObjectID

	require.True(t, svc.AddActionType(ctx, "Blocked", "root").Success)

	added := svc.AddAction(ctx, id, core.Action{ActionType: "Blocked", Reason: "firewall"}, "jdoe")
	require.True(t, added.Success, added.Message)
	require.NotNil(t, added.Object)
	assert.Equal(t, "jdoe", added.Object.Analyst)
	assert.Equal(t, core.ActiveOn, added.Object.Active)

	second := svc.AddAction(ctx, id, core.Action{ActionType: "Blocked"}, "jdoe")
	require.True(t, second.Success)
	assert.False(t, second.Object.Date.Equal(added.Object.Date), "entry dates are unique keys")

	// The key round-trips through its wire format
	key, err := core.ParseEntryDate(core.FormatDate(added.Object.Date))
	require.NoError(t, err)

	updated := svc.UpdateAction(ctx, id, core.Action{
		ActionType: "Blocked",
		Active:     core.ActiveOff,
		Reason:     "<script>alert(1)</script>lifted",
		Date:       key,
	}, "asmith")
	require.True(t, updated.Success, updated.Message)
	assert.Equal(t, "lifted", updated.Object.Reason)

	ind, err := store.GetIndicator(ctx, id)
	require.NoError(t, err)
	require.Len(t, ind.Actions, 2)
	assert.Equal(t, core.ActiveOff, ind.Actions[0].Active)
	assert.Equal(t, "asmith", ind.Actions[0].Analyst)

	missing := svc.UpdateAction(ctx, id, core.Action{ActionType: "Blocked", Date: key.Add(-1e9)}, "asmith")
	assert.False(t, missing.Success)
	assert.Contains(t, missing.Message, "Could not find action")

	denied := svc.RemoveAction(ctx, id, key, analyst)
	assert.False(t, denied.Success)
	assert.Contains(t, denied.Message, "permission")

	removed := svc.RemoveAction(ctx, id, key, admin)
	require.True(t, removed.Success, removed.Message)
	ind, err = store.GetIndicator(ctx, id)
	require.NoError(t, err)
	assert.Len(t, ind.Actions, 1)

	assert.False(t, svc.RemoveAction(ctx, id, key, admin).Success)
}

func TestAction_RejectsUnknownType(t *testing.T) {
	svc, _ := setupService(t)
	id := upload(t, svc, core.IndicatorTypeIPv4, "1.2.3.4").ObjectID

	res := svc.AddAction(context.Background(), id, core.Action{ActionType: "Nuke"}, "jdoe")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "Invalid action type")
	assert.Nil(t, res.Object)
}

func TestActivity_AddUpdateRemove(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	id := upload(t, svc, core.IndicatorTypeDomain, "evil.example.com").ObjectID

	empty := svc.AddActivity(ctx, id, core.Activity{Description: "<b></b>"}, "jdoe")
	assert.False(t, empty.Success)

	added := svc.AddActivity(ctx, id, core.Activity{Description: "seen in <i>phish</i>"}, "jdoe")
	require.True(t, added.Success, added.Message)
	assert.Equal(t, "seen in phish", added.Object.Description)

	updated := svc.UpdateActivity(ctx, id, core.Activity{Description: "sinkholed", Date: added.Object.Date}, "jdoe")
	require.True(t, updated.Success, updated.Message)

	ind, err := store.GetIndicator(ctx, id)
	require.NoError(t, err)
	require.Len(t, ind.Activity, 1)
	assert.Equal(t, "sinkholed", ind.Activity[0].Description)

	assert.False(t, svc.RemoveActivity(ctx, id, added.Object.Date, analyst).Success)
	assert.True(t, svc.RemoveActivity(ctx, id, added.Object.Date, admin).Success)
}

func TestAddActionType(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	res := svc.AddActionType(ctx, "Blocked", "root")
	assert.True(t, res.Success)
	assert.Equal(t, "Indicator Action added successfully!", res.Message)

	dup := svc.AddActionType(ctx, "Blocked", "root")
	assert.False(t, dup.Success)
	assert.Contains(t, dup.Message, "already exists")

	assert.False(t, svc.AddActionType(ctx, "  ", "root").Success)

	types, err := svc.ListActionTypes(ctx, true)
	require.NoError(t, err)
	require.Len(t, types, 1)
	assert.Equal(t, "Blocked", types[0].Name)
}

// ============================================================================
// Indicator-level updates
// ============================================================================

func TestUpdateCI(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	id := upload(t, svc, core.IndicatorTypeIPv4, "1.2.3.4").ObjectID

	require.True(t, svc.UpdateCI(ctx, id, core.RatingKindImpact, core.RatingHigh, "jdoe").Success)
	assert.False(t, svc.UpdateCI(ctx, id, core.RatingKindImpact, "severe", "jdoe").Success)
	assert.False(t, svc.UpdateCI(ctx, id, "severity", core.RatingHigh, "jdoe").Success)

	missing := svc.UpdateCI(ctx, "nope", core.RatingKindConfidence, core.RatingLow, "jdoe")
	assert.False(t, missing.Success)
	assert.Equal(t, "Could not find Indicator", missing.Message)

	ind, err := store.GetIndicator(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.RatingHigh, ind.Impact.Rating)
}

func TestSetIndicatorType(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()
	id := upload(t, svc, core.IndicatorTypeString, "evil.example.com").ObjectID

	assert.False(t, svc.SetIndicatorType(ctx, id, core.IndicatorTypeIPv4, "jdoe").Success)
	assert.False(t, svc.SetIndicatorType(ctx, id, "Bogus", "jdoe").Success)

	require.True(t, svc.SetIndicatorType(ctx, id, core.IndicatorTypeDomain, "jdoe").Success)
	ind, err := store.GetIndicator(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.IndicatorTypeDomain, ind.Type)

	// Setting the same type again is not a collision with itself
	assert.True(t, svc.SetIndicatorType(ctx, id, core.IndicatorTypeDomain, "jdoe").Success)

	other := upload(t, svc, core.IndicatorTypeString, "EVIL.example.com").ObjectID
	res := svc.SetIndicatorType(ctx, other, core.IndicatorTypeDomain, "jdoe")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "already exists")
}

func TestRemoveIndicator(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	res := svc.HandleSingle(ctx, SingleRequest{
		Value: "1.2.3.4", Type: core.IndicatorTypeIPv4, Source: "OSINT", AddDomain: true,
	}, "jdoe")
	require.True(t, res.Success)

	assert.ErrorIs(t, svc.RemoveIndicator(ctx, res.ObjectID, analyst), ErrPermissionDenied)
	require.NoError(t, svc.RemoveIndicator(ctx, res.ObjectID, admin))

	_, err := store.GetIndicator(ctx, res.ObjectID)
	assert.ErrorIs(t, err, storage.ErrIndicatorNotFound)

	ip, err := store.FindObject(ctx, core.TLOIP, "1.2.3.4")
	require.NoError(t, err)
	rels, err := store.GetRelationships(ctx, core.TLOIP, ip.ID)
	require.NoError(t, err)
	assert.Empty(t, rels, "reverse edges are removed with the indicator")

	assert.ErrorIs(t, svc.RemoveIndicator(ctx, res.ObjectID, admin), storage.ErrIndicatorNotFound)
}

func TestGetIndicatorDetails(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()
	id := upload(t, svc, core.IndicatorTypeIPv4, "1.2.3.4").ObjectID

	details, err := svc.GetIndicatorDetails(ctx, id, admin)
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", details.Indicator.Value)
	assert.True(t, details.Admin)
	assert.NotEmpty(t, details.TypeChoices)
	assert.Equal(t, core.AllRatings, details.Ratings)

	_, err = svc.GetIndicatorDetails(ctx, "missing", admin)
	assert.ErrorIs(t, err, storage.ErrIndicatorNotFound)
}

// ============================================================================
// Derived indicators
// ============================================================================

func TestCreateIndicatorAndIP(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	domain := core.NewObject(core.TLODomain, "evil.example.com", "jdoe")
	domain.Sources = []core.Source{{Name: "Partner"}}
	require.NoError(t, store.CreateObject(ctx, domain))

	res := svc.CreateIndicatorAndIP(ctx, core.TLODomain, domain.ID, "10.9.8.7", "jdoe")
	require.True(t, res.Success, res.Message)
	assert.Equal(t, domain.ID, res.ObjectID)

	types := map[core.TLOType]bool{}
	for _, rel := range res.Relationships {
		types[rel.RightType] = true
	}
	assert.True(t, types[core.TLOIP])
	assert.True(t, types[core.TLOIndicator])

	ind, err := store.GetIndicator(ctx, res.IndicatorID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Partner"}, ind.SourceNames())

	bad := svc.CreateIndicatorAndIP(ctx, core.TLODomain, domain.ID, "not-an-ip", "jdoe")
	assert.False(t, bad.Success)

	missing := svc.CreateIndicatorAndIP(ctx, core.TLODomain, "nope", "10.9.8.7", "jdoe")
	assert.False(t, missing.Success)
	assert.Equal(t, "Could not find object", missing.Message)
}

func TestCreateIndicatorFromTLO(t *testing.T) {
	svc, store := setupService(t)
	ctx := context.Background()

	sample := core.NewObject(core.TLOSample, testMD5, "jdoe")
	require.NoError(t, store.CreateObject(ctx, sample))

	res := svc.CreateIndicatorFromTLO(ctx, FromTLORequest{
		IndicatorType: core.IndicatorTypeMD5,
		ObjectType:    core.TLOSample,
		ObjectID:      sample.ID,
		Value:         strings.ToUpper(testMD5),
		Source:        "Sandbox",
	}, "jdoe")
	require.True(t, res.Success, res.Message)
	require.Len(t, res.Relationships, 1)
	assert.Equal(t, res.IndicatorID, res.Relationships[0].RightID)
	assert.Equal(t, testMD5, res.Relationships[0].RightValue)

	ind, err := store.GetIndicator(ctx, res.IndicatorID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sandbox"}, ind.SourceNames())

	// Without an explicit source the object has none, so the analyst is credited
	res = svc.CreateIndicatorFromTLO(ctx, FromTLORequest{
		IndicatorType: core.IndicatorTypeFilename,
		ObjectType:    core.TLOSample,
		ObjectID:      sample.ID,
		Value:         "dropper.exe",
	}, "jdoe")
	require.True(t, res.Success, res.Message)
	ind, err = store.GetIndicator(ctx, res.IndicatorID)
	require.NoError(t, err)
	assert.Equal(t, []string{"jdoe"}, ind.SourceNames())

	invalid := svc.CreateIndicatorFromTLO(ctx, FromTLORequest{
		IndicatorType: core.IndicatorTypeMD5, ObjectType: "Spaceship", ObjectID: sample.ID, Value: testMD5,
	}, "jdoe")
	assert.False(t, invalid.Success)
}

// ============================================================================
// Listing and export
// ============================================================================

func TestListAndExportCSV(t *testing.T) {
	svc, _ := setupService(t)
	ctx := context.Background()

	upload(t, svc, core.IndicatorTypeIPv4, "1.2.3.4")
	upload(t, svc, core.IndicatorTypeDomain, "evil.example.com")
	svc.HandleSingle(ctx, SingleRequest{
		Value: "5.6.7.8", Type: core.IndicatorTypeIPv4, Source: "OSINT",
		Campaign: "APT1", BucketList: "x,y", Ticket: "T-1,T-2",
	}, "jdoe")

	page, err := svc.ListIndicators(ctx, &core.IndicatorFilters{Type: core.IndicatorTypeIPv4, Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
	assert.Len(t, page.Records, 1)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(ctx, &buf, &core.IndicatorFilters{Type: core.IndicatorTypeIPv4, Limit: 1}))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3, "export ignores paging")
	assert.Equal(t, CSVHeader, rows[0])

	var tagged []string
	for _, row := range rows[1:] {
		if row[0] == "5.6.7.8" {
			tagged = row
		}
	}
	require.NotNil(t, tagged)
	assert.Equal(t, []string{"5.6.7.8", "IPv4 Address", "APT1", "low", "unknown", "unknown", "x,y", "T-1,T-2", ""}, tagged)
}

// ============================================================================
// Version conflicts
// ============================================================================

// MockStore stubs the two calls a read-modify-write makes
type MockStore struct {
	storage.Store
	mock.Mock
}

func (m *MockStore) GetIndicator(ctx context.Context, id string) (*core.Indicator, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*core.Indicator), args.Error(1)
}

func (m *MockStore) UpdateIndicator(ctx context.Context, ind *core.Indicator) error {
	args := m.Called(ctx, ind)
	return args.Error(0)
}

func TestMutate_ConflictFailsRequest(t *testing.T) {
	store := new(MockStore)
	svc := NewIndicatorService(store, zap.NewNop().Sugar())
	ind := core.NewIndicator(core.IndicatorTypeIPv4, "1.2.3.4", "jdoe")

	store.On("GetIndicator", mock.Anything, ind.ID).Return(ind, nil)
	store.On("UpdateIndicator", mock.Anything, ind).Return(storage.ErrConflict)

	res := svc.UpdateCI(context.Background(), ind.ID, core.RatingKindConfidence, core.RatingHigh, "jdoe")
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "modified by another request")
	store.AssertExpectations(t)
}

func TestNewIndicatorService_PanicsWithoutDependencies(t *testing.T) {
	assert.Panics(t, func() { NewIndicatorService(nil, zap.NewNop().Sugar()) })
	assert.Panics(t, func() { NewIndicatorService(new(MockStore), nil) })
}
