package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"

	. "github.com/neussi/comsas-uy1.com/apps/api/echo"
	"github.com/neussi/comsas-uy1.com/core"
	"github.com/neussi/comsas-uy1.com/core/contact"
	"github.com/neussi/comsas-uy1.com/core/contest"
	"github.com/neussi/comsas-uy1.com/core/event"
	"github.com/neussi/comsas-uy1.com/core/member"
	"github.com/neussi/comsas-uy1.com/core/sponsorship"
	"github.com/neussi/comsas-uy1.com/core/user"
	emailsvc "github.com/neussi/comsas-uy1.com/services/email"
	notifysvc "github.com/neussi/comsas-uy1.com/services/notify"
	sqlxrepos "github.com/neussi/comsas-uy1.com/storage/database/sqlx"
	"github.com/neussi/comsas-uy1.com/tests"
)

var (
	testCtx = context.Background()

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
)

type testApp struct {
	Server
	conf            *core.Config
	usrRepo         user.Repository
	sponsorshipRepo sponsorship.Repository
	contestRepo     contest.Repository
	memberRepo      member.Repository
	eventRepo       event.Repository
	contactRepo     contact.Repository
	mailSvc         *emailsvc.ConsoleServiceMock
	notifier        *notifysvc.NotifierMock
}

func setup(t *testing.T) *testApp {
	conf := testutil.Config(t.TempDir())
	logger := testutil.Logger(conf)

	// set up DB & repos
	db := testutil.PrepareDB(t)
	app := &testApp{
		conf:            conf,
		usrRepo:         sqlxrepos.NewUserRepository(db),
		sponsorshipRepo: sqlxrepos.NewSponsorshipRepository(db),
		contestRepo:     sqlxrepos.NewContestRepository(db),
		memberRepo:      sqlxrepos.NewMemberRepository(db),
		eventRepo:       sqlxrepos.NewEventRepository(db),
		contactRepo:     sqlxrepos.NewContactRepository(db),
		mailSvc:         emailsvc.NewConsoleServiceMock(conf, logger),
		notifier:        notifysvc.NewNotifierMock(),
	}

	// set up server
	validate, translator := testutil.NewValidator()
	app.Server = NewServer(ServerDeps{
		Conf:           conf,
		Logger:         logger,
		UserSvc:        user.NewService(app.usrRepo),
		SponsorshipSvc: sponsorship.NewService(app.sponsorshipRepo, app.mailSvc, app.notifier, logger),
		ContestSvc:     contest.NewService(app.contestRepo, app.notifier),
		MemberSvc:      member.NewService(app.memberRepo, app.mailSvc, conf.AssociationEmail),
		EventSvc:       event.NewService(app.eventRepo, app.mailSvc, conf.AssociationEmail),
		ContactSvc:     contact.NewService(app.contactRepo, app.mailSvc, conf.AssociationEmail),
		Validate:       validate,
		Translator:     translator,
	})
	t.Cleanup(func() { _ = app.Close() })
	return app
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	token, err := GenerateToken(app.conf, GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("token() failed: %v", err)
	}
	return token
}

// do serves the request and returns the recorded response.
func (app *testApp) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) *http.Request {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func newRequest(method, path string, data ...[]byte) *http.Request {
	return newAuthRequest(method, path, "", data...)
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

func marshallList(t *testing.T, objs ...interface{}) []byte {
	if objs == nil {
		objs = []interface{}{}
	}
	data, err := json.Marshal(objs)
	if err != nil {
		t.Fatalf("marshallList() failed: %v", err)
	}
	return data
}

func unmarshall(t *testing.T, rec *httptest.ResponseRecorder, dest interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), dest); err != nil {
		t.Fatalf("unmarshall() failed: %v; body %s", err, rec.Body.String())
	}
}

func jsonBytesEqual(t *testing.T, b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	if reflect.DeepEqual(j1, j2) {
		return true, nil
	}
	if j1 == nil || j2 == nil {
		return false, nil
	}
	return assert.ElementsMatch(t, j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(t, rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}

func runHTTPTests(t *testing.T, app *testApp, tests []httpTest) {
	t.Helper()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.do(newAuthRequest(tt.method, tt.path, tt.token, tt.body))
			checkCodeAndData(t, tt, rec)
		})
	}
}
