package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/agrovista/fieldmap/models"
)

// HTTPClient speaks the collaborator API over JSON. Status mapping:
// 403 -> PermissionError, 422 -> ValidationError, transport errors and
// 5xx -> NetworkError.
type HTTPClient struct {
	base string
	hc   *http.Client
	log  *zap.Logger
}

func NewHTTPClient(base string, log *zap.Logger) *HTTPClient {
	return &HTTPClient{
		base: base,
		hc:   &http.Client{Timeout: 30 * time.Second},
		log:  log,
	}
}

type simulateRequest struct {
	GeometryWire string  `json:"geometry_wire"`
	Mode         string  `json:"mode"`
	TargetCount  int     `json:"target_count"`
	MaxAreaHa    float64 `json:"max_area_ha"`
}

type applyRequest struct {
	ParentAOIID uint           `json:"parent_aoi_id"`
	Polygons    []ApplyPolygon `json:"polygons"`
	EnqueueJobs bool           `json:"enqueue_jobs"`
	MaxAreaHa   float64        `json:"max_area_ha"`
}

type createRequest struct {
	FarmID       uint   `json:"farm_id"`
	Name         string `json:"name"`
	UseType      string `json:"use_type"`
	GeometryWire string `json:"geometry_wire"`
}

type updateRequest struct {
	AOIID        uint   `json:"aoi_id"`
	GeometryWire string `json:"geometry_wire"`
}

type listStatusRequest struct {
	AOIIDs []uint `json:"aoi_ids"`
}

func (c *HTTPClient) SimulateSplit(ctx context.Context, geometryWire, mode string, targetCount int, maxAreaHa float64) (*SimulateReply, error) {
	var out SimulateReply
	err := c.post(ctx, "SimulateSplit", simulateRequest{geometryWire, mode, targetCount, maxAreaHa}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ApplySplit(ctx context.Context, parentAOIID uint, polygons []ApplyPolygon, enqueueJobs bool, maxAreaHa float64) error {
	return c.post(ctx, "ApplySplit", applyRequest{parentAOIID, polygons, enqueueJobs, maxAreaHa}, nil)
}

func (c *HTTPClient) CreateAOI(ctx context.Context, farmID uint, name, useType, geometryWire string) (*models.AreaOfInterest, error) {
	var out models.AreaOfInterest
	err := c.post(ctx, "CreateAOI", createRequest{farmID, name, useType, geometryWire}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) DeleteAOI(ctx context.Context, aoiID uint) error {
	return c.get(ctx, "DeleteAOI", url.Values{"id": {fmt.Sprint(aoiID)}}, nil)
}

func (c *HTTPClient) UpdateAOI(ctx context.Context, aoiID uint, geometryWire string) error {
	return c.post(ctx, "UpdateAOI", updateRequest{aoiID, geometryWire}, nil)
}

func (c *HTTPClient) GetAOI(ctx context.Context, aoiID uint) (*models.AreaOfInterest, error) {
	var out models.AreaOfInterest
	err := c.get(ctx, "GetAOI", url.Values{"id": {fmt.Sprint(aoiID)}}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *HTTPClient) ListAOIs(ctx context.Context, farmID uint) ([]models.AreaOfInterest, error) {
	var out []models.AreaOfInterest
	err := c.get(ctx, "ListAOIs", url.Values{"farm_id": {fmt.Sprint(farmID)}}, &out)
	return out, err
}

func (c *HTTPClient) ListStatus(ctx context.Context, aoiIDs []uint) ([]AOIStatus, error) {
	var out []AOIStatus
	err := c.post(ctx, "ListStatus", listStatusRequest{AOIIDs: aoiIDs}, &out)
	return out, err
}

func (c *HTTPClient) ListSignals(ctx context.Context, farmID uint) ([]models.SignalRecord, error) {
	var out []models.SignalRecord
	err := c.get(ctx, "ListSignals", url.Values{"farm_id": {fmt.Sprint(farmID)}}, &out)
	return out, err
}

func (c *HTTPClient) post(ctx context.Context, op string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("%s: marshal request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/"+op, bytes.NewReader(body))
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(op, req, out)
}

func (c *HTTPClient) get(ctx context.Context, op string, q url.Values, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+"/api/"+op+"?"+q.Encode(), nil)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	return c.do(op, req, out)
}

func (c *HTTPClient) do(op string, req *http.Request, out interface{}) error {
	resp, err := c.hc.Do(req)
	if err != nil {
		c.log.Warn("backend call failed", zap.String("op", op), zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusForbidden:
		return &PermissionError{Op: op}
	case resp.StatusCode == http.StatusUnprocessableEntity:
		var payload struct {
			Error string   `json:"error"`
			Items []string `json:"items"`
		}
		raw, _ := io.ReadAll(resp.Body)
		_ = json.Unmarshal(raw, &payload)
		return &ValidationError{Op: op, Msg: payload.Error, Items: payload.Items}
	case resp.StatusCode >= 500:
		return &NetworkError{Op: op, Err: fmt.Errorf("status %d", resp.StatusCode)}
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("backend: %s returned status %d", op, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
