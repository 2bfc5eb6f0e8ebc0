package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/starford/folio/internal/activity"
	"github.com/starford/folio/internal/contentapi"
	"github.com/starford/folio/internal/models"
	"github.com/starford/folio/internal/notify"
	"github.com/starford/folio/internal/panel"
	"github.com/starford/folio/internal/session"
	"github.com/starford/folio/internal/shell"
	"github.com/starford/folio/internal/testutil"
)

const testToken = "secret"

type testEnv struct {
	api      *testutil.ContentAPI
	router   http.Handler
	pages    http.Handler
	notices  *notify.Center
	activity *activity.Log
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithGate(t, session.Config{Mode: session.ModeToken, Token: testToken})
}

func newTestEnvWithGate(t *testing.T, cfg session.Config) *testEnv {
	t.Helper()

	api := testutil.NewContentAPI(t)
	client, err := contentapi.New(api.URL(), contentapi.WithAuth(contentapi.HeaderAuth{Key: testutil.TestKey}))
	if err != nil {
		t.Fatal(err)
	}

	dbFile, err := os.CreateTemp("", "folio-api-test-*.db")
	if err != nil {
		t.Fatal(err)
	}
	dbFile.Close()
	t.Cleanup(func() { os.Remove(dbFile.Name()) })
	log, err := activity.Open(dbFile.Name())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { log.Close() })

	notices := notify.NewCenter(time.Minute, nil)
	sh := shell.New(context.Background(), func(op string) *shell.Panels {
		return shell.NewPanels(client, time.Hour,
			panel.WithNotifier(notices.For(op)),
			panel.WithObserver(log.Observer(op, nil)),
		)
	})
	t.Cleanup(sh.Close)

	gate, err := session.NewGate(cfg)
	if err != nil {
		t.Fatalf("NewGate: %v", err)
	}

	return &testEnv{
		api:      api,
		router:   NewRouter(Deps{Shell: sh, Gate: gate, Notices: notices, Activity: log}),
		pages:    NewPages(sh, gate, notices),
		notices:  notices,
		activity: log,
	}
}

// do sends an authenticated request. A string body is sent as is, anything
// else is encoded as JSON.
func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		rd = strings.NewReader(b)
	default:
		buf, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		rd = bytes.NewReader(buf)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Authorization", "Bearer "+testToken)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) switchTo(t *testing.T, id string) {
	t.Helper()
	if w := e.do(t, http.MethodPut, "/shell", SwitchRequest{Active: id}); w.Code != http.StatusOK {
		t.Fatalf("switch to %s: status = %d, body = %s", id, w.Code, w.Body.String())
	}
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
}

type skillsState struct {
	Items []models.Skill   `json:"items"`
	Draft *models.BlogPost `json:"draft"`
}

func TestRequireSession_MissingToken(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/shell", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestRequireSession_WrongToken(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/shell", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestSessionEndpointIsOpen(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/session", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var st session.State
	decodeBody(t, w, &st)
	if st.Status != session.SignedOut {
		t.Errorf("status = %q", st.Status)
	}
}

func TestPendingSessionIsAccepted(t *testing.T) {
	e := newTestEnvWithGate(t, session.Config{Mode: session.ModeJWT, JWTSecret: "jwt-secret"})
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, session.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "ann",
			NotBefore: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte("jwt-secret"))
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodGet, "/shell", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"pending"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestShellStartsOnMessages(t *testing.T) {
	e := newTestEnv(t)
	e.api.Seed(t, "messages",
		models.Message{Subject: "new"},
		models.Message{Subject: "seen", IsRead: true},
	)

	w := e.do(t, http.MethodGet, "/shell", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ShellResponse
	decodeBody(t, w, &resp)
	if resp.Active != shell.PanelMessages || resp.Operator != session.TokenOperator {
		t.Errorf("shell = %+v", resp)
	}
	if len(resp.Panels) != 8 {
		t.Fatalf("panels = %d, want 8", len(resp.Panels))
	}
	if !resp.Panels[0].Active || resp.Panels[0].Badge != 1 {
		t.Errorf("messages entry = %+v", resp.Panels[0])
	}
}

func TestSwitchValidation(t *testing.T) {
	e := newTestEnv(t)

	if w := e.do(t, http.MethodPut, "/shell", SwitchRequest{}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty switch status = %d, want 422", w.Code)
	}
	if w := e.do(t, http.MethodPut, "/shell", SwitchRequest{Active: "nope"}); w.Code != http.StatusNotFound {
		t.Errorf("unknown switch status = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodPut, "/shell", "{"); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("malformed switch status = %d, want 422", w.Code)
	}
}

func TestSwitchSurvivesFailedLoad(t *testing.T) {
	e := newTestEnv(t)
	_ = e.do(t, http.MethodGet, "/shell", nil)

	e.api.FailNext(http.MethodGet, http.StatusBadGateway, "upstream timeout")
	w := e.do(t, http.MethodPut, "/shell", SwitchRequest{Active: shell.PanelSkills})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp ShellResponse
	decodeBody(t, w, &resp)
	if resp.Active != shell.PanelSkills {
		t.Errorf("active = %q", resp.Active)
	}
	if n := e.notices.List(session.TokenOperator); len(n) != 1 || n[0].Level != notify.LevelError {
		t.Errorf("notifications = %+v", n)
	}
}

func TestInactivePanelConflict(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodPost, "/panels/skills/items", models.Skill{Name: "Go"})
	if w.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", w.Code)
	}
	if e.api.Count("skills") != 0 {
		t.Error("nothing should reach the content API")
	}
}

func TestUnknownPanel(t *testing.T) {
	e := newTestEnv(t)
	if w := e.do(t, http.MethodGet, "/panels/nope", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestCreateAndLoadSkill(t *testing.T) {
	e := newTestEnv(t)
	e.switchTo(t, shell.PanelSkills)

	w := e.do(t, http.MethodPost, "/panels/skills/items", models.Skill{Name: "Go", Proficiency: 90})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}
	var created models.Skill
	decodeBody(t, w, &created)
	if created.ID == "" {
		t.Fatal("created skill has no id")
	}

	w = e.do(t, http.MethodPost, "/panels/skills/load", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("load status = %d", w.Code)
	}
	var st skillsState
	decodeBody(t, w, &st)
	if len(st.Items) != 1 || st.Items[0].ID != created.ID {
		t.Errorf("items = %+v", st.Items)
	}
}

func TestLoadForwardsQuery(t *testing.T) {
	e := newTestEnv(t)
	_ = e.do(t, http.MethodGet, "/shell", nil)

	w := e.do(t, http.MethodPost, "/panels/messages/load", panel.Query{Filter: "unread", Search: " react "})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	q := e.api.LastQuery()
	if q.Get("filter") != "unread" || q.Get("search") != "react" {
		t.Errorf("query = %v", q)
	}
}

func TestCreateValidationError(t *testing.T) {
	e := newTestEnv(t)
	e.switchTo(t, shell.PanelReviews)

	review := models.Review{Name: "Ann", Position: "CTO", Rating: 6, Text: "Great", ProjectType: "web"}
	w := e.do(t, http.MethodPost, "/panels/reviews/items", review)
	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}
	var body errResponse
	decodeBody(t, w, &body)
	if body.Fields["rating"] == "" {
		t.Errorf("fields = %v", body.Fields)
	}
	if e.api.Requests(http.MethodPost, "/reviews") != 0 {
		t.Error("invalid review must not be sent")
	}

	review.Rating = 5
	if w := e.do(t, http.MethodPost, "/panels/reviews/items", review); w.Code != http.StatusCreated {
		t.Fatalf("rating 5 status = %d, body = %s", w.Code, w.Body.String())
	}
	w = e.do(t, http.MethodGet, "/panels/reviews", nil)
	var st struct {
		Items []map[string]any `json:"items"`
	}
	decodeBody(t, w, &st)
	if len(st.Items) != 1 || st.Items[0]["stars"] != "★★★★★" {
		t.Errorf("items = %v", st.Items)
	}
}

func TestCreateDisabled(t *testing.T) {
	e := newTestEnv(t)
	_ = e.do(t, http.MethodGet, "/shell", nil)
	if w := e.do(t, http.MethodPost, "/panels/messages/items", models.Message{Subject: "x"}); w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestRemoteFailure(t *testing.T) {
	e := newTestEnv(t)
	e.switchTo(t, shell.PanelSkills)

	e.api.FailNext(http.MethodPost, http.StatusBadGateway, "upstream timeout")
	w := e.do(t, http.MethodPost, "/panels/skills/items", models.Skill{Name: "Go"})
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}
	var body errResponse
	decodeBody(t, w, &body)
	if body.Error != "upstream timeout" {
		t.Errorf("error = %q", body.Error)
	}
	n := e.notices.List(session.TokenOperator)
	if len(n) != 1 || !strings.Contains(n[0].Message, "upstream timeout") {
		t.Errorf("notifications = %+v", n)
	}
}

func TestDeleteRequiresConfirmation(t *testing.T) {
	e := newTestEnv(t)
	ids := e.api.Seed(t, "skills", models.Skill{Name: "Go"})
	e.switchTo(t, shell.PanelSkills)

	if w := e.do(t, http.MethodDelete, "/panels/skills/items/"+ids[0], nil); w.Code != http.StatusBadRequest {
		t.Errorf("unconfirmed status = %d, want 400", w.Code)
	}
	if e.api.Count("skills") != 1 {
		t.Fatal("unconfirmed delete must not reach the content API")
	}
	if w := e.do(t, http.MethodDelete, "/panels/skills/items/"+ids[0]+"?confirm=true", nil); w.Code != http.StatusNoContent {
		t.Fatalf("confirmed status = %d, body = %s", w.Code, w.Body.String())
	}
	if e.api.Count("skills") != 0 {
		t.Error("skill should be deleted")
	}
}

func TestDeleteUnknownIsNotFound(t *testing.T) {
	e := newTestEnv(t)
	e.switchTo(t, shell.PanelSkills)
	if w := e.do(t, http.MethodDelete, "/panels/skills/items/404?confirm=true", nil); w.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", w.Code)
	}
}

func TestToggleFlag(t *testing.T) {
	e := newTestEnv(t)
	ids := e.api.Seed(t, "messages", models.Message{Subject: "hello"})
	_ = e.do(t, http.MethodGet, "/shell", nil)

	w := e.do(t, http.MethodPost, "/panels/messages/items/"+ids[0]+"/flags/read", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	if got := e.api.Doc("messages", ids[0])["isRead"]; got != true {
		t.Errorf("isRead = %v", got)
	}
	if w := e.do(t, http.MethodPost, "/panels/messages/items/"+ids[0]+"/flags/pinned", nil); w.Code != http.StatusNotFound {
		t.Errorf("unknown flag status = %d, want 404", w.Code)
	}
}

func TestReorder(t *testing.T) {
	e := newTestEnv(t)
	ids := e.api.Seed(t, "skills", models.Skill{Name: "a"}, models.Skill{Name: "b"}, models.Skill{Name: "c"})
	e.switchTo(t, shell.PanelSkills)

	order := []string{ids[2], ids[0], ids[1]}
	w := e.do(t, http.MethodPut, "/panels/skills/order", ReorderRequest{IDs: order})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var st skillsState
	decodeBody(t, w, &st)
	for i, s := range st.Items {
		if s.ID != order[i] || s.Order != i {
			t.Errorf("item %d = %+v", i, s)
		}
	}

	if w := e.do(t, http.MethodPut, "/panels/skills/order", ReorderRequest{}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty order status = %d, want 422", w.Code)
	}
}

func TestReorderFilteredListConflicts(t *testing.T) {
	e := newTestEnv(t)
	ids := e.api.Seed(t, "skills",
		models.Skill{Name: "a", Order: 0},
		models.Skill{Name: "b", Order: 1, IsFeatured: true},
		models.Skill{Name: "c", Order: 2, IsFeatured: true},
	)
	e.switchTo(t, shell.PanelSkills)

	if w := e.do(t, http.MethodPost, "/panels/skills/load", panel.Query{Filter: models.SkillFilterFeatured}); w.Code != http.StatusOK {
		t.Fatalf("load status = %d", w.Code)
	}
	w := e.do(t, http.MethodPut, "/panels/skills/order", ReorderRequest{IDs: []string{ids[2], ids[1]}})
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409, body = %s", w.Code, w.Body.String())
	}
	if e.api.Requests(http.MethodPut, "/skills/reorder") != 0 {
		t.Error("reorder should not reach the content API")
	}
	if got := e.api.Doc("skills", ids[0])["order"]; got != float64(0) && got != 0 {
		t.Errorf("unfiltered skill order = %v", got)
	}
}

func TestFormLifecycle(t *testing.T) {
	e := newTestEnv(t)
	ids := e.api.Seed(t, "skills", models.Skill{Name: "Go"})
	e.switchTo(t, shell.PanelSkills)

	if w := e.do(t, http.MethodPost, "/panels/skills/form/edit/"+ids[0], nil); w.Code != http.StatusOK {
		t.Fatalf("edit status = %d", w.Code)
	}
	w := e.do(t, http.MethodPost, "/panels/skills/form", models.Skill{Name: "Golang", Proficiency: 80})
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}
	if e.api.Requests(http.MethodPatch, "/skills/"+ids[0]) != 1 {
		t.Error("saving an edit should patch the record")
	}
	if got := e.api.Doc("skills", ids[0])["name"]; got != "Golang" {
		t.Errorf("name = %v", got)
	}

	if w := e.do(t, http.MethodPost, "/panels/skills/form/edit/missing", nil); w.Code != http.StatusNotFound {
		t.Errorf("edit unknown status = %d, want 404", w.Code)
	}
	if w := e.do(t, http.MethodPost, "/panels/skills/form/new", nil); w.Code != http.StatusOK {
		t.Errorf("new status = %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/panels/skills/form", nil); w.Code != http.StatusNoContent {
		t.Errorf("reset status = %d", w.Code)
	}
}

func TestSelect(t *testing.T) {
	e := newTestEnv(t)
	ids := e.api.Seed(t, "messages", models.Message{Subject: "hello"})
	_ = e.do(t, http.MethodGet, "/shell", nil)

	w := e.do(t, http.MethodPut, "/panels/messages/selection", SelectRequest{ID: ids[0]})
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"selected":"`+ids[0]+`"`) {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestImportBlogPost(t *testing.T) {
	e := newTestEnv(t)
	e.switchTo(t, shell.PanelBlog)

	md := "---\ntitle: Hello\ntags: [go]\n---\nSome *text*.\n"
	w := e.do(t, http.MethodPost, "/panels/blog/import", md)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}
	var st skillsState
	decodeBody(t, w, &st)
	if st.Draft == nil || st.Draft.Title != "Hello" || !strings.Contains(st.Draft.Content, "<em>text</em>") {
		t.Errorf("draft = %+v", st.Draft)
	}
	if e.api.Count("blogs") != 0 {
		t.Error("import must only prefill the form")
	}

	if w := e.do(t, http.MethodPost, "/panels/skills/import", md); w.Code != http.StatusNotFound {
		t.Errorf("skills import status = %d, want 404", w.Code)
	}
}

func TestSiteContent(t *testing.T) {
	e := newTestEnv(t)
	_ = e.do(t, http.MethodGet, "/shell", nil)
	if w := e.do(t, http.MethodGet, "/content", nil); w.Code != http.StatusConflict {
		t.Errorf("inactive content status = %d, want 409", w.Code)
	}

	e.switchTo(t, shell.PanelContent)
	if w := e.do(t, http.MethodPut, "/content", models.SiteContent{Intro: "Hi"}); w.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid content status = %d, want 422", w.Code)
	}
	w := e.do(t, http.MethodPut, "/content", models.SiteContent{HeroTexts: []string{"Engineer"}, Intro: "Hi"})
	if w.Code != http.StatusOK {
		t.Fatalf("save status = %d, body = %s", w.Code, w.Body.String())
	}

	w = e.do(t, http.MethodGet, "/content", nil)
	var st panel.DocumentState[models.SiteContent]
	decodeBody(t, w, &st)
	if !st.Loaded || st.Doc.Intro != "Hi" {
		t.Errorf("content = %+v", st)
	}
}

func TestDismissNotification(t *testing.T) {
	e := newTestEnv(t)
	n := e.notices.For(session.TokenOperator)
	n.Info("skills", "hello")
	list := e.notices.List(session.TokenOperator)
	if len(list) != 1 {
		t.Fatalf("notifications = %+v", list)
	}

	w := e.do(t, http.MethodGet, "/notifications", nil)
	var resp NotificationListResponse
	decodeBody(t, w, &resp)
	if len(resp.Notifications) != 1 {
		t.Errorf("listed = %+v", resp)
	}

	if w := e.do(t, http.MethodDelete, "/notifications/"+list[0].ID, nil); w.Code != http.StatusNoContent {
		t.Errorf("dismiss status = %d", w.Code)
	}
	if w := e.do(t, http.MethodDelete, "/notifications/"+list[0].ID, nil); w.Code != http.StatusNotFound {
		t.Errorf("second dismiss status = %d, want 404", w.Code)
	}
}

func TestActivityRecordsMutations(t *testing.T) {
	e := newTestEnv(t)
	e.switchTo(t, shell.PanelSkills)
	_ = e.do(t, http.MethodPost, "/panels/skills/items", models.Skill{Name: "Go"})

	w := e.do(t, http.MethodGet, "/activity?panel=skills", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	var resp struct {
		Entries []activity.Entry `json:"entries"`
	}
	decodeBody(t, w, &resp)
	if len(resp.Entries) != 1 || resp.Entries[0].Op != panel.OpCreate || resp.Entries[0].Operator != session.TokenOperator {
		t.Errorf("entries = %+v", resp.Entries)
	}
}

func TestPages(t *testing.T) {
	e := newTestEnv(t)

	w := httptest.NewRecorder()
	e.pages.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), session.DefaultCookieName) {
		t.Errorf("sign-in page: status = %d, body = %s", w.Code, w.Body.String())
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: session.DefaultCookieName, Value: testToken})
	w = httptest.NewRecorder()
	e.pages.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("dashboard status = %d", w.Code)
	}
	if body := w.Body.String(); !strings.Contains(body, "Messages") || !strings.Contains(body, `data-active="messages"`) {
		t.Errorf("dashboard = %s", body)
	}
}

func TestPagesRedirectToSignIn(t *testing.T) {
	e := newTestEnvWithGate(t, session.Config{Mode: session.ModeToken, Token: testToken, SignInURL: "https://id.example.com/login"})
	w := httptest.NewRecorder()
	e.pages.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "https://id.example.com/login" {
		t.Errorf("status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
}
