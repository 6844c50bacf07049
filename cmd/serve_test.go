package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"testing/iotest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/sells-group/landgeo/internal/land"
	"github.com/sells-group/landgeo/internal/store"
)

const submissionJSON = `{
	"farmer_id": 5,
	"area_in_acre": 2.3,
	"ownership_type": "Owned",
	"land_name": "North Field",
	"suitability_details": [{"suitability_id": 1, "remarks": "ok"}],
	"coordinate_points": [
		{"type": "plot", "point": {"latitude": 23.82, "longitude": 90.42}},
		{"type": "plot", "point": {"latitude": 23.81, "longitude": 90.41}},
		{"type": "plot", "point": {"latitude": 23.82, "longitude": 90.41}},
		{"type": "plot", "point": {"latitude": 23.81, "longitude": 90.42}}
	],
	"reference_points": [{"type": "sw_mark", "point": {"latitude": 23.80, "longitude": 90.40}}]
}`

const viewRecordJSON = `{
	"land_id": 77,
	"land_name": "River Plot",
	"farmer_id": 5,
	"land_coordinate_point": [
		{"latitude": "23.82", "longitude": "90.42", "coordinate_type": "plot"},
		{"latitude": 23.81, "longitude": 90.41, "coordinate_type": "plot"},
		{"latitude": 23.82, "longitude": 90.41, "coordinate_type": "plot"}
	],
	"land_reference_point": [
		{"latitude": 23.80, "longitude": 90.40, "point_type": "sw_mark"}
	]
}`

func newTestAPI(t *testing.T) *api {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))

	// Land codes carry the clock's milliseconds, so tick once per submission.
	var tick int64
	clock := func() time.Time {
		tick++
		return time.UnixMilli(1_700_000_000_000 + tick)
	}

	return &api{
		store:       st,
		builder:     land.NewBuilder(land.WithClock(clock)),
		limiter:     rate.NewLimiter(rate.Inf, 1),
		concurrency: 2,
	}
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func createLand(t *testing.T, h http.Handler) int64 {
	t.Helper()
	rr := do(t, h, http.MethodPost, "/v1/lands", submissionJSON)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	var resp map[string]int64
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Positive(t, resp["land_id"])
	return resp["land_id"]
}

func TestHealthEndpoint(t *testing.T) {
	h := newRouter(newTestAPI(t), []string{"*"})

	rr := do(t, h, http.MethodGet, "/health", "")

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRequestID(t *testing.T) {
	h := newRouter(newTestAPI(t), []string{"*"})

	rr := do(t, h, http.MethodGet, "/health", "")
	assert.Len(t, rr.Header().Get("X-Request-ID"), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "req-42", rr.Header().Get("X-Request-ID"))
}

func TestCORS(t *testing.T) {
	h := newRouter(newTestAPI(t), []string{"https://portal.example.com"})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://portal.example.com")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, "https://portal.example.com", rr.Header().Get("Access-Control-Allow-Origin"))

	req = httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "https://elsewhere.example.com")
	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Empty(t, rr.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit(t *testing.T) {
	a := newTestAPI(t)
	a.limiter = rate.NewLimiter(0, 1)
	h := newRouter(a, nil)

	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/v1/lands", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, h, http.MethodGet, "/v1/lands", "").Code)
	// health is not limited
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/health", "").Code)
}

func TestViewEndpoint(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	rr := do(t, h, http.MethodPost, "/v1/lands/view", viewRecordJSON)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var v land.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Equal(t, int64(77), v.LandID)
	assert.Len(t, v.PlotCoordinates, 3)
	require.NotNil(t, v.SWMark)
	assert.InDelta(t, 23.80, v.SWMark.Latitude, 1e-9)
}

func TestViewEndpoint_Many(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	rr := do(t, h, http.MethodPost, "/v1/lands/view", "["+viewRecordJSON+","+viewRecordJSON+"]")
	require.Equal(t, http.StatusOK, rr.Code)

	var views []land.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	assert.Len(t, views, 2)
}

func TestViewEndpoint_SingleElementList(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	rr := do(t, h, http.MethodPost, "/v1/lands/view", "["+viewRecordJSON+"]")
	require.Equal(t, http.StatusOK, rr.Code)

	var views []land.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &views))
	require.Len(t, views, 1)
	assert.Equal(t, int64(77), views[0].LandID)
}

func TestViewEndpoint_BadJSON(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	rr := do(t, h, http.MethodPost, "/v1/lands/view", `{"land_id": "seventy"}`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestNormalizeEndpoint(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	rr := do(t, h, http.MethodPost, "/v1/lands/normalize", `{"farmer_id": 9}`)
	require.Equal(t, http.StatusOK, rr.Code)

	var resp normalizeResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "Owned", resp.Submission.OwnershipType)
	assert.True(t, strings.HasPrefix(resp.Submission.LandCode, "LAND-9-"))
	assert.Contains(t, resp.Errors, land.MsgSuitabilityDetails)
	assert.NotContains(t, resp.Errors, land.MsgFarmerID)
}

func TestNormalizeEndpoint_Valid(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	rr := do(t, h, http.MethodPost, "/v1/lands/normalize", submissionJSON)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"errors":[]`)
}

func TestCreateEndpoint_Invalid(t *testing.T) {
	a := newTestAPI(t)
	h := newRouter(a, nil)

	rr := do(t, h, http.MethodPost, "/v1/lands", `{}`)
	require.Equal(t, http.StatusUnprocessableEntity, rr.Code)

	var resp map[string][]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Contains(t, resp["errors"], land.MsgFarmerID)
	assert.Contains(t, resp["errors"], land.MsgCoordinatePoints)

	lands, err := a.store.ListLands(context.Background(), store.LandFilter{})
	require.NoError(t, err)
	assert.Empty(t, lands)
}

func TestCreateEndpoint_Malformed(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	rr := do(t, h, http.MethodPost, "/v1/lands", `{"farmer_id":`)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCreateAndGet(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)
	id := createLand(t, h)

	rr := do(t, h, http.MethodGet, fmt.Sprintf("/v1/lands/%d", id), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var rec land.LandRecord
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &rec))
	assert.Equal(t, id, rec.LandID)
	assert.Equal(t, "North Field", rec.LandName)
	assert.Len(t, rec.CoordinatePoints, 4)

	rr = do(t, h, http.MethodGet, fmt.Sprintf("/v1/lands/%d/view", id), "")
	require.Equal(t, http.StatusOK, rr.Code)
	var v land.View
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.Len(t, v.PlotCoordinates, 4)
	require.NotNil(t, v.SWMark)

	rr = do(t, h, http.MethodGet, fmt.Sprintf("/v1/lands/%d/geojson", id), "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/geo+json", rr.Header().Get("Content-Type"))
	assert.Contains(t, rr.Body.String(), `"FeatureCollection"`)
	assert.Contains(t, rr.Body.String(), `"Polygon"`)
}

func TestGetLand_Errors(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/lands/999", "").Code)
	assert.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/v1/lands/999/view", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, h, http.MethodGet, "/v1/lands/abc", "").Code)
}

func TestListEndpoint(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)
	first := createLand(t, h)
	second := createLand(t, h)

	rr := do(t, h, http.MethodGet, "/v1/lands?farmer_id=5", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var lands []store.LandSummary
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lands))
	require.Len(t, lands, 2)
	assert.Equal(t, second, lands[0].LandID)
	assert.Equal(t, first, lands[1].LandID)

	rr = do(t, h, http.MethodGet, "/v1/lands?limit=1&offset=1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lands))
	require.Len(t, lands, 1)
	assert.Equal(t, first, lands[0].LandID)

	rr = do(t, h, http.MethodGet, "/v1/lands?farmer_id=6", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())

	rr = do(t, h, http.MethodGet, "/v1/lands?bbox=90.0,23.0,91.0,24.0", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &lands))
	assert.Len(t, lands, 2)

	rr = do(t, h, http.MethodGet, "/v1/lands?bbox=0,0,1,1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[]`, rr.Body.String())
}

func TestListEndpoint_BadQuery(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	for _, q := range []string{"farmer_id=x", "limit=-1", "offset=abc", "bbox=1,2,3"} {
		rr := do(t, h, http.MethodGet, "/v1/lands?"+q, "")
		assert.Equal(t, http.StatusBadRequest, rr.Code, q)
	}
}

func TestReadBody_TooLarge(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	big := bytes.Repeat([]byte(" "), maxBodyBytes+1)
	req := httptest.NewRequest(http.MethodPost, "/v1/lands/view", bytes.NewReader(big))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
}

func TestReadBody_ReadError(t *testing.T) {
	h := newRouter(newTestAPI(t), nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/lands/view", iotest.ErrReader(errors.New("connection dropped")))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, rr.Body.String(), "read request body")
}
