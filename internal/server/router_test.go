package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"bac-tracker/internal/database"
	"bac-tracker/internal/handlers"
	"bac-tracker/internal/models"
	"bac-tracker/internal/service"
	"bac-tracker/internal/workflow"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var clock = time.Date(2024, 7, 1, 9, 0, 0, 0, time.UTC)

type testApp struct {
	t      *testing.T
	router *gin.Engine
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	return newTestAppWithLogger(t, hclog.NewNullLogger())
}

func newTestAppWithLogger(t *testing.T, log hclog.Logger) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.OpenOptions{
		Driver:      database.DriverSQLite,
		DSN:         filepath.Join(t.TempDir(), "app.db"),
		MaxAttempts: 1,
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	ctx := context.Background()
	require.NoError(t, database.SeedOffices(ctx, db, []string{"BAC Secretariat", "Supply Office"}, log))
	require.NoError(t, database.EnsureAdmin(ctx, db, database.AdminSeed{Username: "admin", Password: "Admin123!", Office: "BAC Secretariat"}, log))

	accounts := database.NewAccounts(db)
	directory := database.NewDirectory(db)

	var supply models.Office
	require.NoError(t, db.Where("name = ?", "Supply Office").First(&supply).Error)
	clerk := models.User{Username: "clerk", OfficeID: &supply.ID}
	require.NoError(t, accounts.CreateUser(ctx, &clerk, "Clerk123!"))

	engine := workflow.NewEngine(
		workflow.WithClock(func() time.Time { return clock }),
		workflow.WithLocation(time.UTC),
	)
	svc := service.New(database.NewStore(db), engine, log)

	r := NewRouter(Deps{
		SessionSecret: "test-secret",
		Handlers:      handlers.New(svc, accounts, directory),
		Users:         accounts,
		Offices:       directory,
		Logger:        log,
	})
	return &testApp{t: t, router: r}
}

func (a *testApp) do(method, path string, body interface{}, cookies []*http.Cookie) *httptest.ResponseRecorder {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	return w
}

func (a *testApp) login(username, password string) []*http.Cookie {
	a.t.Helper()
	w := a.do(http.MethodPost, "/login", gin.H{"username": username, "password": password}, nil)
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	cookies := w.Result().Cookies()
	require.NotEmpty(a.t, cookies)
	return cookies
}

type viewBody struct {
	Project models.Project `json:"project"`
	Stages  []struct {
		StageName   models.StageName `json:"stageName"`
		CreatedAt   *time.Time       `json:"createdAt"`
		ApprovedAt  *time.Time       `json:"approvedAt"`
		OfficeID    *uint            `json:"officeId"`
		OfficeName  string           `json:"officeName"`
		Remarks     string           `json:"remarks"`
		IsSubmitted bool             `json:"isSubmitted"`
		CanSubmit   bool             `json:"canSubmit"`
		CanUnsubmit bool             `json:"canUnsubmit"`
	} `json:"stages"`
	State       workflow.State `json:"state"`
	ActorOffice string         `json:"actorOffice"`
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func TestRouter_Health(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRouter_RequiresSession(t *testing.T) {
	app := newTestApp(t)
	w := app.do(http.MethodGet, "/projects", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = app.do(http.MethodPost, "/login", gin.H{"username": "admin", "password": "nope"}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRouter_StageWorkflow(t *testing.T) {
	app := newTestApp(t)
	clerk := app.login("clerk", "Clerk123!")
	admin := app.login("admin", "Admin123!")

	w := app.do(http.MethodPost, "/projects", gin.H{"prNumber": "PR-2024-07", "projectDetails": "ICT equipment"}, clerk)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created viewBody
	decode(t, w, &created)
	id := created.Project.ID
	require.NotZero(t, id)
	assert.Equal(t, "Supply Office", created.ActorOffice)
	require.Len(t, created.Stages, models.StageCount)
	assert.Equal(t, models.StagePurchaseRequest, created.State.FirstUnsubmitted)

	path := "/projects/" + itoa(id)

	// пропуск этапа
	w = app.do(http.MethodPost, path+"/stages", gin.H{"stageName": "RFQ 2", "approvedAt": "2024-01-01T10:00", "remark": "x"}, clerk)
	assert.Equal(t, http.StatusConflict, w.Code)
	var eb errorBody
	decode(t, w, &eb)
	assert.Equal(t, "StageNotEligible", eb.Error)

	w = app.do(http.MethodPost, path+"/stages", gin.H{"stageName": "Purchase Request", "approvedAt": "2024-01-01T10:00", "remark": "ok"}, clerk)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view viewBody
	decode(t, w, &view)
	assert.True(t, view.Stages[0].IsSubmitted)
	assert.Equal(t, "Supply Office", view.Stages[0].OfficeName)
	require.NotNil(t, view.Stages[1].CreatedAt)
	assert.True(t, view.Stages[1].CreatedAt.Equal(clock))
	assert.Equal(t, models.StageRFQ1, view.State.FirstUnsubmitted)

	// админ без даты создания
	w = app.do(http.MethodPost, path+"/stages", gin.H{"stageName": "RFQ 1", "approvedAt": "2024-01-02T10:00", "remark": "ok"}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	decode(t, w, &eb)
	assert.Equal(t, "MissingCreated", eb.Error)

	w = app.do(http.MethodPost, path+"/stages", gin.H{"stageName": "RFQ 1", "approvedAt": "2024-01-02T10:00", "createdAt": "2024-01-02T08:00", "remark": "canvass"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	// откатить можно только последний отправленный этап
	w = app.do(http.MethodPost, path+"/stages", gin.H{"stageName": "Purchase Request"}, admin)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = app.do(http.MethodPost, path+"/stages", gin.H{"stageName": "RFQ 1"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	assert.False(t, view.Stages[1].IsSubmitted)
	assert.Nil(t, view.Stages[1].ApprovedAt)
	assert.NotNil(t, view.Stages[1].CreatedAt)
	assert.True(t, view.Stages[0].CanUnsubmit)
	assert.True(t, view.Stages[1].CanSubmit)

	w = app.do(http.MethodGet, path, nil, clerk)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &view)
	assert.False(t, view.Stages[0].CanUnsubmit, "clerk cannot roll back")

	w = app.do(http.MethodGet, path+"/history", nil, clerk)
	require.Equal(t, http.StatusOK, w.Code)
	var history struct {
		Logs []models.AuditLog `json:"logs"`
	}
	decode(t, w, &history)
	var actions []string
	for _, l := range history.Logs {
		actions = append(actions, l.Action)
	}
	assert.Equal(t, []string{"create", "submit", "submit", "unsubmit"}, actions)
}

func TestRouter_Header(t *testing.T) {
	app := newTestApp(t)
	clerk := app.login("clerk", "Clerk123!")
	admin := app.login("admin", "Admin123!")

	w := app.do(http.MethodPost, "/projects", gin.H{"prNumber": "PR-1", "projectDetails": "paper"}, clerk)
	require.Equal(t, http.StatusCreated, w.Code)
	var created viewBody
	decode(t, w, &created)
	path := "/projects/" + itoa(created.Project.ID) + "/header"

	w = app.do(http.MethodPut, path, gin.H{"prNumber": "PR-2", "projectDetails": "ink"}, clerk)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(http.MethodPut, path, gin.H{"prNumber": "PR-2"}, admin)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = app.do(http.MethodPut, "/projects/999/header", gin.H{"prNumber": "PR-2", "projectDetails": "ink"}, admin)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = app.do(http.MethodPut, path, gin.H{"prNumber": "PR-2", "projectDetails": "ink"}, admin)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var view viewBody
	decode(t, w, &view)
	assert.Equal(t, "PR-2", view.Project.PRNumber)
	require.NotNil(t, view.Project.EditedBy)

	w = app.do(http.MethodGet, "/projects", nil, clerk)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Projects []service.ProjectSummary `json:"projects"`
	}
	decode(t, w, &list)
	require.Len(t, list.Projects, 1)
	assert.Equal(t, "ink", list.Projects[0].Project.ProjectDetails)

	w = app.do(http.MethodGet, "/offices", nil, clerk)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "BAC Secretariat")

	w = app.do(http.MethodGet, "/projects/abc", nil, clerk)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(http.MethodPost, "/logout", nil, clerk)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestRouter_LogoutLogsSessionUser(t *testing.T) {
	var buf bytes.Buffer
	app := newTestAppWithLogger(t, hclog.New(&hclog.LoggerOptions{
		Output: &buf,
		Level:  hclog.Info,
	}))
	clerk := app.login("clerk", "Clerk123!")

	w := app.do(http.MethodPost, "/logout", nil, clerk)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, buf.String(), "user logged out")
	assert.Contains(t, buf.String(), "username=clerk")

	// без сессии выход проходит молча
	buf.Reset()
	w = app.do(http.MethodPost, "/logout", nil, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.NotContains(t, buf.String(), "user logged out")
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
