package importer_test

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/vulncatalog/vulncatalog/pkg/db"
	"github.com/vulncatalog/vulncatalog/pkg/feed"
	"github.com/vulncatalog/vulncatalog/pkg/fetch"
	"github.com/vulncatalog/vulncatalog/pkg/importer"
	"github.com/vulncatalog/vulncatalog/pkg/types"
)

const feed2023 = `{
	"CVE_data_type": "CVE",
	"CVE_Items": [
		{
			"cve": {
				"CVE_data_meta": {"ID": "CVE-2023-0001"},
				"problemtype": {"problemtype_data": [{"description": [{"lang": "en", "value": "CWE-79"}]}]},
				"description": {"description_data": [{"lang": "en", "value": "A widget overflow."}]}
			},
			"configurations": {"nodes": [{"operator": "OR", "cpe_match": [
				{"vulnerable": true, "cpe23Uri": "cpe:2.3:a:acme:widget:*:*:*:*:*:*:*:*"}
			]}]},
			"impact": {"baseMetricV3": {"cvssV3": {"baseScore": 7.5}}},
			"publishedDate": "2023-01-01T10:00Z",
			"lastModifiedDate": "2023-01-02T11:30Z"
		},
		{
			"cve": {
				"CVE_data_meta": {"ID": "CVE-2023-0002"},
				"description": {"description_data": [{"lang": "en", "value": "A gadget underflow."}]}
			},
			"configurations": {"nodes": [{"operator": "AND", "cpe_match": [
				{"vulnerable": true, "cpe23Uri": "cpe:2.3:a:acme:gadget:*:*:*:*:*:*:*:*"}
			]}]},
			"impact": {"baseMetricV2": {"cvssV2": {"baseScore": 5.0}}},
			"publishedDate": "2023-02-01T00:00Z",
			"lastModifiedDate": "2023-02-02T00:00Z"
		}
	]
}`

const badFeed = `{
	"CVE_data_type": "CVE",
	"CVE_Items": [
		{
			"cve": {
				"description": {"description_data": [{"lang": "en", "value": "No identifier here."}]}
			},
			"publishedDate": "2023-01-01T10:00Z",
			"lastModifiedDate": "2023-01-02T11:30Z"
		}
	]
}`

func gzipServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gw := gzip.NewWriter(w)
		_, err := gw.Write([]byte(payload))
		require.NoError(t, err)
		require.NoError(t, gw.Close())
	}))
}

func newImporter(store db.Operation, ts *httptest.Server) *importer.Importer {
	// 2023 is both the first and the current year, so the run has one unit
	fakeClock := clocktesting.NewFakeClock(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	return importer.New(store,
		importer.WithClock(fakeClock),
		importer.WithFetchClient(fetch.NewClient(fetch.WithHTTPClient(ts.Client()))),
		importer.WithFirstYear(2023),
		importer.WithCVEFeedURL(ts.URL+"/nvdcve-1.1-%d.json.gz"),
	)
}

func methodArgs(m *db.MockOperation, method string) []mock.Arguments {
	var all []mock.Arguments
	for _, call := range m.Calls {
		if call.Method == method {
			all = append(all, call.Arguments)
		}
	}
	return all
}

func TestImportCVE(t *testing.T) {
	ts := gzipServer(t, feed2023)
	defer ts.Close()

	mockOp := new(db.MockOperation)
	mockOp.ApplyWarmupExpectation(db.WarmupExpectation{})
	mockOp.ApplyInsertExpectations([]db.InsertExpectation{
		{Method: "InsertTask"},
		{Method: "BulkInsertVendors"},
		{Method: "BulkInsertProducts"},
		{Method: "BulkInsertCves"},
		{Method: "BulkInsertChanges"},
		{Method: "BulkInsertEvents"},
	})

	err := newImporter(mockOp, ts).ImportCVE(context.Background())
	require.NoError(t, err)

	taskCalls := methodArgs(mockOp, "InsertTask")
	require.Len(t, taskCalls, 1)
	task := taskCalls[0].Get(1).(types.Task)
	assert.NotEmpty(t, task.ID)

	vendorCalls := methodArgs(mockOp, "BulkInsertVendors")
	require.Len(t, vendorCalls, 1)
	vendors := vendorCalls[0].Get(1).([]types.Vendor)
	require.Len(t, vendors, 1)
	assert.Equal(t, "acme", vendors[0].Name)

	products := methodArgs(mockOp, "BulkInsertProducts")[0].Get(1).([]types.Product)
	require.Len(t, products, 2)
	assert.Equal(t, "widget", products[0].Name)
	assert.Equal(t, "gadget", products[1].Name)
	assert.Equal(t, vendors[0].ID, products[0].VendorID)
	assert.Equal(t, vendors[0].ID, products[1].VendorID)

	cves := methodArgs(mockOp, "BulkInsertCves")[0].Get(1).([]types.Cve)
	require.Len(t, cves, 2)
	first := cves[0]
	assert.Equal(t, "CVE-2023-0001", first.CveID)
	assert.Nil(t, first.Cvss2)
	require.NotNil(t, first.Cvss3)
	assert.Equal(t, 7.5, *first.Cvss3)
	assert.Equal(t, types.JSONStrings{"acme", "acme$PRODUCT$widget"}, first.Vendors)
	assert.Equal(t, types.JSONStrings{"CWE-79"}, first.Cwes)

	changes := methodArgs(mockOp, "BulkInsertChanges")[0].Get(1).([]types.Change)
	require.Len(t, changes, 2)
	assert.Equal(t, task.ID, changes[0].TaskID)
	assert.Equal(t, first.ID, changes[0].CveID)

	events := methodArgs(mockOp, "BulkInsertEvents")[0].Get(1).([]types.Event)
	require.Len(t, events, 2)
	assert.Equal(t, types.EventNewCve, events[0].Type)
	assert.True(t, events[0].IsReviewed)
	assert.Equal(t, changes[0].ID, events[0].ChangeID)

	// dependency order: vendors, products, cves, changes, events
	var order []string
	for _, call := range mockOp.Calls {
		switch call.Method {
		case "BulkInsertVendors", "BulkInsertProducts", "BulkInsertCves", "BulkInsertChanges", "BulkInsertEvents":
			order = append(order, call.Method)
		}
	}
	assert.Equal(t, []string{
		"BulkInsertVendors", "BulkInsertProducts", "BulkInsertCves", "BulkInsertChanges", "BulkInsertEvents",
	}, order)
}

func TestImportCVEWarmedRegistry(t *testing.T) {
	ts := gzipServer(t, feed2023)
	defer ts.Close()

	mockOp := new(db.MockOperation)
	mockOp.ApplyWarmupExpectation(db.WarmupExpectation{
		Vendors: map[string]string{"acme": "existing-vendor-id"},
	})
	mockOp.ApplyInsertExpectations([]db.InsertExpectation{
		{Method: "InsertTask"},
		{Method: "BulkInsertVendors"},
		{Method: "BulkInsertProducts"},
		{Method: "BulkInsertCves"},
		{Method: "BulkInsertChanges"},
		{Method: "BulkInsertEvents"},
	})

	err := newImporter(mockOp, ts).ImportCVE(context.Background())
	require.NoError(t, err)

	// the known vendor is not re-inserted, and its products reuse its id
	vendors := methodArgs(mockOp, "BulkInsertVendors")[0].Get(1).([]types.Vendor)
	assert.Empty(t, vendors)

	products := methodArgs(mockOp, "BulkInsertProducts")[0].Get(1).([]types.Product)
	require.Len(t, products, 2)
	assert.Equal(t, "existing-vendor-id", products[0].VendorID)
}

func TestImportCVEMalformedRecord(t *testing.T) {
	ts := gzipServer(t, badFeed)
	defer ts.Close()

	mockOp := new(db.MockOperation)
	mockOp.ApplyWarmupExpectation(db.WarmupExpectation{})
	mockOp.ApplyInsertExpectation(db.InsertExpectation{Method: "InsertTask"})

	err := newImporter(mockOp, ts).ImportCVE(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, feed.ErrRecord))

	// the unit aborted before anything was persisted
	mockOp.AssertNotCalled(t, "BulkInsertVendors", mock.Anything, mock.Anything)
	mockOp.AssertNotCalled(t, "BulkInsertCves", mock.Anything, mock.Anything)
}

func TestImportCVEFetchFailure(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer ts.Close()

	mockOp := new(db.MockOperation)
	mockOp.ApplyWarmupExpectation(db.WarmupExpectation{})
	mockOp.ApplyInsertExpectation(db.InsertExpectation{Method: "InsertTask"})

	err := newImporter(mockOp, ts).ImportCVE(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrFetch))
	mockOp.AssertNotCalled(t, "BulkInsertCves", mock.Anything, mock.Anything)
}

func TestImportCVEPersistenceFailure(t *testing.T) {
	ts := gzipServer(t, feed2023)
	defer ts.Close()

	mockOp := new(db.MockOperation)
	mockOp.ApplyWarmupExpectation(db.WarmupExpectation{})
	mockOp.ApplyInsertExpectations([]db.InsertExpectation{
		{Method: "InsertTask"},
		{Method: "BulkInsertVendors"},
		{Method: "BulkInsertProducts"},
		{Method: "BulkInsertCves", Returns: db.ErrPersistence},
	})

	err := newImporter(mockOp, ts).ImportCVE(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, db.ErrPersistence))

	// later steps of the unit are never reached
	mockOp.AssertNotCalled(t, "BulkInsertChanges", mock.Anything, mock.Anything)
	mockOp.AssertNotCalled(t, "BulkInsertEvents", mock.Anything, mock.Anything)
}

func TestImportCWE(t *testing.T) {
	catalog := `<?xml version="1.0"?>
<Weakness_Catalog>
  <Weaknesses>
    <Weakness ID="79" Name="XSS"><Description>Bad neutralization.</Description></Weakness>
  </Weaknesses>
  <Categories>
    <Category ID="310" Name="Cryptographic Issues"><Summary>Crypto weaknesses.</Summary></Category>
  </Categories>
</Weakness_Catalog>`

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var buf bytes.Buffer
		zw := zip.NewWriter(&buf)
		f, err := zw.Create("cwec_v4.12.xml")
		require.NoError(t, err)
		_, err = f.Write([]byte(catalog))
		require.NoError(t, err)
		require.NoError(t, zw.Close())
		w.Write(buf.Bytes())
	}))
	defer ts.Close()

	fakeClock := clocktesting.NewFakeClock(time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC))
	mockOp := new(db.MockOperation)
	mockOp.ApplyInsertExpectation(db.InsertExpectation{Method: "BulkInsertCwes"})

	imp := importer.New(mockOp,
		importer.WithClock(fakeClock),
		importer.WithFetchClient(fetch.NewClient(fetch.WithHTTPClient(ts.Client()))),
		importer.WithCWEFeedURL(ts.URL+"/cwec_latest.xml.zip"),
	)
	require.NoError(t, imp.ImportCWE(context.Background()))

	cwes := methodArgs(mockOp, "BulkInsertCwes")[0].Get(1).([]types.Cwe)
	require.Len(t, cwes, 2)
	assert.Equal(t, "CWE-79", cwes[0].CweID)
	assert.Equal(t, "Bad neutralization.", cwes[0].Description)
	assert.Equal(t, "CWE-310", cwes[1].CweID)
	assert.Equal(t, "Crypto weaknesses.", cwes[1].Description)
	assert.Equal(t, fakeClock.Now().UTC(), cwes[0].CreatedAt)
}
