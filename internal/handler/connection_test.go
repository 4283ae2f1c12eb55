package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otelciro/channel-sync/internal/model"
	"github.com/otelciro/channel-sync/internal/repository"
)

type fakeDirectory struct {
	conns map[uint64]*model.ChannelConnection
}

func (f *fakeDirectory) List(context.Context) ([]model.ChannelConnection, error) {
	out := make([]model.ChannelConnection, 0, len(f.conns))
	for _, c := range f.conns {
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeDirectory) GetByID(_ context.Context, id uint64) (*model.ChannelConnection, error) {
	c, ok := f.conns[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return c, nil
}

type resetCall struct {
	connectionID uint64
	entity       model.SyncEntity
	watermark    time.Time
}

type fakeCheckpointAdmin struct {
	listed []model.SyncCheckpoint
	reset  *resetCall
}

func (f *fakeCheckpointAdmin) ListByConnection(_ context.Context, _ uint64) ([]model.SyncCheckpoint, error) {
	return f.listed, nil
}

func (f *fakeCheckpointAdmin) Reset(_ context.Context, connectionID uint64, entity model.SyncEntity, watermark time.Time) error {
	f.reset = &resetCall{connectionID: connectionID, entity: entity, watermark: watermark}
	return nil
}

type fakeCycleHistory struct {
	rows []model.SyncCycleLog
}

func (f *fakeCycleHistory) ListRecent(_ context.Context, _ uint64, _ int) ([]model.SyncCycleLog, error) {
	return f.rows, nil
}

type fakeSyncRunner struct {
	ran []uint64
	err error
}

func (f *fakeSyncRunner) ForceSync(_ context.Context, conn *model.ChannelConnection) error {
	if f.err != nil {
		return f.err
	}
	f.ran = append(f.ran, conn.ID)
	return nil
}

type connFixture struct {
	handler     *ConnectionHandler
	directory   *fakeDirectory
	checkpoints *fakeCheckpointAdmin
	cycles      *fakeCycleHistory
	runner      *fakeSyncRunner
}

func newConnFixture() *connFixture {
	f := &connFixture{
		directory: &fakeDirectory{conns: map[uint64]*model.ChannelConnection{
			5: {ID: 5, HotelID: 1, Name: "Booking.com main", Type: model.ChannelTypeOTA,
				Active: true, Credential: "top-secret", Status: model.ConnectionHealthy},
		}},
		checkpoints: &fakeCheckpointAdmin{},
		cycles:      &fakeCycleHistory{},
		runner:      &fakeSyncRunner{},
	}
	f.handler = NewConnectionHandler(f.directory, f.checkpoints, f.cycles, f.runner)
	return f
}

func invoke(t *testing.T, method, path, body string, params map[string]string, handle echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	names := make([]string, 0, len(params))
	values := make([]string, 0, len(params))
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	require.NoError(t, handle(c))
	return rec
}

func TestConnectionListHidesCredentials(t *testing.T) {
	f := newConnFixture()
	rec := invoke(t, http.MethodGet, "/v1/connections", "", nil, f.handler.List)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"name":"Booking.com main"`)
	assert.NotContains(t, rec.Body.String(), "top-secret")
}

func TestConnectionCheckpointsListing(t *testing.T) {
	f := newConnFixture()
	f.checkpoints.listed = []model.SyncCheckpoint{{
		ConnectionID: 5, EntityType: model.EntityBookings,
		Watermark: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}}

	rec := invoke(t, http.MethodGet, "/v1/connections/5/checkpoints", "",
		map[string]string{"id": "5"}, f.handler.Checkpoints)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "BOOKINGS")
}

func TestConnectionCheckpointsUnknownConnectionIs404(t *testing.T) {
	f := newConnFixture()
	rec := invoke(t, http.MethodGet, "/v1/connections/99/checkpoints", "",
		map[string]string{"id": "99"}, f.handler.Checkpoints)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestConnectionResetCheckpoint(t *testing.T) {
	f := newConnFixture()
	rec := invoke(t, http.MethodPost, "/v1/connections/5/checkpoints/BOOKINGS/reset",
		`{"watermark":"2026-02-01T00:00:00Z"}`,
		map[string]string{"id": "5", "entity": "BOOKINGS"}, f.handler.ResetCheckpoint)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	require.NotNil(t, f.checkpoints.reset)
	assert.Equal(t, uint64(5), f.checkpoints.reset.connectionID)
	assert.Equal(t, model.EntityBookings, f.checkpoints.reset.entity)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), f.checkpoints.reset.watermark.UTC())
}

func TestConnectionResetCheckpointValidation(t *testing.T) {
	f := newConnFixture()

	rec := invoke(t, http.MethodPost, "/v1/connections/5/checkpoints/SEATS/reset",
		`{"watermark":"2026-02-01T00:00:00Z"}`,
		map[string]string{"id": "5", "entity": "SEATS"}, f.handler.ResetCheckpoint)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unknown entity")

	rec = invoke(t, http.MethodPost, "/v1/connections/5/checkpoints/BOOKINGS/reset",
		`{"watermark":"yesterday"}`,
		map[string]string{"id": "5", "entity": "BOOKINGS"}, f.handler.ResetCheckpoint)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, f.checkpoints.reset)
}

func TestConnectionCyclesListing(t *testing.T) {
	f := newConnFixture()
	f.cycles.rows = []model.SyncCycleLog{{
		ID: 1, ConnectionID: 5, EntityType: model.EntityBookings,
		Status: model.CycleSuccess, Processed: 3,
	}}

	rec := invoke(t, http.MethodGet, "/v1/connections/5/cycles?limit=10", "",
		map[string]string{"id": "5"}, f.handler.Cycles)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "SUCCESS")
}

func TestConnectionForceSync(t *testing.T) {
	f := newConnFixture()
	rec := invoke(t, http.MethodPost, "/v1/connections/5/sync", "",
		map[string]string{"id": "5"}, f.handler.ForceSync)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, []uint64{5}, f.runner.ran)
}

func TestConnectionForceSyncInactiveIs409(t *testing.T) {
	f := newConnFixture()
	f.directory.conns[5].Active = false

	rec := invoke(t, http.MethodPost, "/v1/connections/5/sync", "",
		map[string]string{"id": "5"}, f.handler.ForceSync)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, f.runner.ran)
}
