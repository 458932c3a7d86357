package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kanjilog/internal/db"
	"github.com/kanjilog/internal/handler"
	"github.com/kanjilog/internal/router"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type e2eSuite struct {
	handler  http.Handler
	client   httpClient
	baseURL  string
	aiServer *httptest.Server
	cardIDs  map[string]uint
}

type httpClient interface {
	Do(req *http.Request) (*http.Response, error)
}

type localClient struct {
	handler http.Handler
	jar     http.CookieJar
}

func newLocalClient(h http.Handler) *localClient {
	jar, _ := cookiejar.New(nil)
	return &localClient{handler: h, jar: jar}
}

func (c *localClient) Do(req *http.Request) (*http.Response, error) {
	if c.jar != nil {
		for _, cookie := range c.jar.Cookies(req.URL) {
			req.AddCookie(cookie)
		}
	}
	w := httptest.NewRecorder()
	c.handler.ServeHTTP(w, req)
	resp := w.Result()
	if c.jar != nil {
		c.jar.SetCookies(req.URL, resp.Cookies())
	}
	return resp, nil
}

func TestE2E_AllInterfaces(t *testing.T) {
	suite := newE2ESuite(t)
	defer suite.aiServer.Close()

	t.Run("auth", suite.testAuth)
	t.Run("cards and today queue", suite.testCardsAndQueue)
	t.Run("progress", suite.testProgress)
	t.Run("settings", suite.testSettings)
	t.Run("preferences", suite.testPreferences)
	t.Run("stories", suite.testStories)
	t.Run("quick test", suite.testQuickTest)
}

func newE2ESuite(t *testing.T) *e2eSuite {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:e2e-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate schema: %v", err)
	}
	db.DB = gdb

	api := handler.NewAPI(gdb)
	if err := api.Preferences().SeedQuestions(); err != nil {
		t.Fatalf("failed to seed preference questions: %v", err)
	}

	// 故事生成走本地假 AI 服务
	aiServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"choices":[{"message":{"role":"assistant","content":"Picture **water** flowing down the mountain."}}],"usage":{"total_tokens":42}}`)
	}))
	api.Stories().SetOpenAIBaseURL(aiServer.URL)

	if err := gdb.Create(&db.SystemSetting{Key: db.SettingKeyOpenAIAPIKey, Value: "sk-e2e"}).Error; err != nil {
		t.Fatalf("failed to seed api key: %v", err)
	}

	engine := router.SetupRouter(api, router.Options{SessionSecret: "e2e-session-secret"})

	return &e2eSuite{
		handler:  engine,
		client:   newLocalClient(engine),
		baseURL:  "http://example.test",
		aiServer: aiServer,
		cardIDs:  make(map[string]uint),
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

func (s *e2eSuite) request(t *testing.T, method, path string, payload interface{}) (*http.Response, envelope) {
	t.Helper()
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, s.baseURL+path, body)
	if err != nil {
		t.Fatalf("failed to build request %s %s: %v", method, path, err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.client.Do(req)
	if err != nil {
		t.Fatalf("request %s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body of %s %s: %v", method, path, err)
	}
	var env envelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("failed to decode %s %s: %v\nbody=%s", method, path, err, raw)
		}
	}
	return resp, env
}

func (s *e2eSuite) mustOK(t *testing.T, method, path string, payload interface{}) envelope {
	t.Helper()
	resp, env := s.request(t, method, path, payload)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("%s %s: expected 200, got %d (%s)", method, path, resp.StatusCode, env.Message)
	}
	return env
}

func decodeResult(t *testing.T, env envelope, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(env.Result, dst); err != nil {
		t.Fatalf("failed to decode result: %v\nresult=%s", err, env.Result)
	}
}

func (s *e2eSuite) testAuth(t *testing.T) {
	resp, _ := s.request(t, http.MethodGet, "/auth/me", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 before login, got %d", resp.StatusCode)
	}

	env := s.mustOK(t, http.MethodPost, "/auth/register", map[string]interface{}{
		"username": "sakura",
		"password": "e2e-secret",
		"timezone": "Asia/Tokyo",
	})
	var registered struct {
		Username string `json:"username"`
		Timezone string `json:"timezone"`
	}
	decodeResult(t, env, &registered)
	if registered.Username != "sakura" || registered.Timezone != "Asia/Tokyo" {
		t.Fatalf("unexpected register result: %s", env.Result)
	}

	env = s.mustOK(t, http.MethodGet, "/auth/me", nil)
	var me struct {
		Username string `json:"username"`
	}
	decodeResult(t, env, &me)
	if me.Username != "sakura" {
		t.Fatalf("unexpected me result: %s", env.Result)
	}
}

func (s *e2eSuite) testCardsAndQueue(t *testing.T) {
	for _, kanji := range []string{"水", "火", "日", "月"} {
		env := s.mustOK(t, http.MethodPost, "/fsrs/create-card", map[string]string{"kanji": kanji})
		var created struct {
			Card struct {
				ID    uint   `json:"id"`
				Kanji string `json:"kanji"`
			} `json:"card"`
		}
		decodeResult(t, env, &created)
		if created.Card.ID == 0 || created.Card.Kanji != kanji {
			t.Fatalf("unexpected create-card result: %s", env.Result)
		}
		s.cardIDs[kanji] = created.Card.ID
	}

	env := s.mustOK(t, http.MethodGet, "/fsrs/get-today-cards", nil)
	var today struct {
		KanjiCount    int  `json:"kanji_count"`
		ReviewedCount int  `json:"reviewed_count"`
		Completed     bool `json:"completed"`
	}
	decodeResult(t, env, &today)
	if today.KanjiCount != 4 || today.ReviewedCount != 0 || today.Completed {
		t.Fatalf("unexpected today queue: %s", env.Result)
	}

	env = s.mustOK(t, http.MethodPost, "/fsrs/get-intervals", map[string]uint{"card_id": s.cardIDs["水"]})
	var previews struct {
		Intervals []struct {
			Rating   int    `json:"rating"`
			Humanize string `json:"humanize"`
		} `json:"intervals"`
	}
	decodeResult(t, env, &previews)
	if len(previews.Intervals) != 4 {
		t.Fatalf("expected 4 interval previews, got %s", env.Result)
	}
	if previews.Intervals[0].Humanize != "10 minutes" {
		t.Fatalf("expected Again preview of 10 minutes, got %q", previews.Intervals[0].Humanize)
	}

	// Good 评分推进状态并同步今日队列
	env = s.mustOK(t, http.MethodPost, "/fsrs/review-card", map[string]interface{}{
		"card_id": s.cardIDs["水"],
		"rating":  3,
	})
	var reviewed struct {
		Card struct {
			State int `json:"state"`
		} `json:"card"`
		Log struct {
			PrevState int `json:"prev_state"`
			NewState  int `json:"new_state"`
		} `json:"log"`
	}
	decodeResult(t, env, &reviewed)
	if reviewed.Card.State != 2 || reviewed.Log.PrevState != 1 || reviewed.Log.NewState != 2 {
		t.Fatalf("unexpected review result: %s", env.Result)
	}

	env = s.mustOK(t, http.MethodGet, "/fsrs/get-today-cards", nil)
	decodeResult(t, env, &today)
	if today.ReviewedCount != 1 || today.Completed {
		t.Fatalf("unexpected queue after review: %s", env.Result)
	}
}

func (s *e2eSuite) testProgress(t *testing.T) {
	// 带写字指标的 Good 评分计入学会
	s.mustOK(t, http.MethodPost, "/fsrs/review-card", map[string]interface{}{
		"card_id":        s.cardIDs["火"],
		"rating":         3,
		"write_time_sec": 12.5,
		"stroke_errors":  0,
	})

	env := s.mustOK(t, http.MethodGet, "/progress/learned-count", nil)
	var learned struct {
		Learned int `json:"learned"`
	}
	decodeResult(t, env, &learned)
	if learned.Learned < 2 {
		t.Fatalf("expected at least 2 learned kanji, got %d", learned.Learned)
	}

	env = s.mustOK(t, http.MethodGet, "/progress/pie", nil)
	var pie struct {
		Learned   int `json:"learned"`
		Remaining int `json:"remaining"`
	}
	decodeResult(t, env, &pie)
	if pie.Learned+pie.Remaining != 4 {
		t.Fatalf("pie should cover all 4 cards: %s", env.Result)
	}

	env = s.mustOK(t, http.MethodGet, "/progress/line", nil)
	var line struct {
		Points []struct {
			Date    string `json:"date"`
			Learned int    `json:"learned"`
		} `json:"points"`
	}
	decodeResult(t, env, &line)
	if len(line.Points) == 0 || line.Points[0].Learned == 0 {
		t.Fatalf("expected a learning curve point: %s", env.Result)
	}

	env = s.mustOK(t, http.MethodGet, "/progress/jlpt", nil)
	var buckets struct {
		Levels map[string][]string `json:"levels"`
	}
	decodeResult(t, env, &buckets)
	if len(buckets.Levels["n5"]) == 0 {
		t.Fatalf("expected learned n5 kanji: %s", env.Result)
	}

	// 普通用户无权访问管理端总览
	resp, _ := s.request(t, http.MethodGet, "/admin/progress/jlpt/all", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testSettings(t *testing.T) {
	env := s.mustOK(t, http.MethodGet, "/settings", nil)
	var settings struct {
		Theme         string `json:"theme"`
		DailySRSLimit int    `json:"daily_srs_limit"`
	}
	decodeResult(t, env, &settings)
	if settings.Theme != "system" || settings.DailySRSLimit != 10 {
		t.Fatalf("unexpected default settings: %s", env.Result)
	}

	theme := "dark"
	limit := 12
	env = s.mustOK(t, http.MethodPut, "/settings", map[string]interface{}{
		"theme":           theme,
		"daily_srs_limit": limit,
	})
	decodeResult(t, env, &settings)
	if settings.Theme != "dark" || settings.DailySRSLimit != 12 {
		t.Fatalf("settings update not applied: %s", env.Result)
	}

	resp, _ := s.request(t, http.MethodPut, "/settings", map[string]interface{}{"daily_srs_limit": 0})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero daily limit, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testPreferences(t *testing.T) {
	env := s.mustOK(t, http.MethodGet, "/preferences", nil)
	var prefs struct {
		Questions []struct {
			ID      uint     `json:"id"`
			Options []string `json:"options"`
		} `json:"questions"`
	}
	decodeResult(t, env, &prefs)
	if len(prefs.Questions) == 0 {
		t.Fatalf("expected seeded questions: %s", env.Result)
	}

	first := prefs.Questions[0]
	s.mustOK(t, http.MethodPost, "/preferences", map[string]interface{}{
		"answers": []map[string]interface{}{
			{"question_id": first.ID, "selected_options": first.Options[:1]},
		},
	})

	env = s.mustOK(t, http.MethodGet, "/preferences", nil)
	var answered struct {
		Questions []struct {
			ID       uint     `json:"id"`
			Selected []string `json:"selected"`
		} `json:"questions"`
	}
	decodeResult(t, env, &answered)
	if len(answered.Questions[0].Selected) != 1 || answered.Questions[0].Selected[0] != first.Options[0] {
		t.Fatalf("answers not persisted: %s", env.Result)
	}
}

func (s *e2eSuite) testStories(t *testing.T) {
	env := s.mustOK(t, http.MethodPost, "/stories", map[string]interface{}{"kanji": "水"})
	var generated struct {
		Story struct {
			Kanji string `json:"kanji"`
			Story string `json:"story"`
		} `json:"story"`
		HTML      string `json:"html"`
		Generated bool   `json:"generated"`
	}
	decodeResult(t, env, &generated)
	if !generated.Generated || generated.Story.Kanji != "水" {
		t.Fatalf("unexpected story result: %s", env.Result)
	}
	if !strings.Contains(generated.HTML, "<strong>water</strong>") {
		t.Fatalf("expected rendered markdown, got %q", generated.HTML)
	}

	// 再次请求复用缓存
	env = s.mustOK(t, http.MethodPost, "/stories", map[string]interface{}{"kanji": "水"})
	decodeResult(t, env, &generated)
	if generated.Generated {
		t.Fatalf("expected cached story on second request")
	}

	env = s.mustOK(t, http.MethodGet, "/stories/水", nil)
	var latest struct {
		Story struct {
			Story string `json:"story"`
		} `json:"story"`
	}
	decodeResult(t, env, &latest)
	if !strings.Contains(latest.Story.Story, "water") {
		t.Fatalf("unexpected stored story: %s", env.Result)
	}

	resp, _ := s.request(t, http.MethodGet, "/stories/龍", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for kanji without story, got %d", resp.StatusCode)
	}
}

func (s *e2eSuite) testQuickTest(t *testing.T) {
	env := s.mustOK(t, http.MethodPost, "/quick-test/start", map[string]interface{}{})
	var test struct {
		ID            uint   `json:"id"`
		State         string `json:"state"`
		QuestionLimit int    `json:"question_limit"`
		Questions     []struct {
			Kanji   string   `json:"kanji"`
			Options []string `json:"options"`
		} `json:"questions"`
	}
	decodeResult(t, env, &test)
	if test.State != "in_progress" || len(test.Questions) == 0 {
		t.Fatalf("unexpected quick test: %s", env.Result)
	}
	if len(test.Questions[0].Options) != 4 {
		t.Fatalf("expected 4 options per question, got %d", len(test.Questions[0].Options))
	}

	// 逐题作答直至完成
	for i := 0; i < test.QuestionLimit; i++ {
		active := s.mustOK(t, http.MethodGet, "/quick-test", nil)
		var current struct {
			Current   int `json:"current"`
			Questions []struct {
				Options []string `json:"options"`
			} `json:"questions"`
		}
		decodeResult(t, active, &current)
		choice := current.Questions[current.Current].Options[0]
		s.mustOK(t, http.MethodPost, "/quick-test/answer", map[string]string{"chosen_meaning": choice})
	}

	resp, _ := s.request(t, http.MethodGet, "/quick-test", nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected no active test after completion, got %d", resp.StatusCode)
	}

	env = s.mustOK(t, http.MethodGet, "/quick-test/history", nil)
	var history struct {
		Tests []struct {
			State        string `json:"state"`
			CorrectCount int    `json:"correct_count"`
			WrongCount   int    `json:"wrong_count"`
		} `json:"tests"`
	}
	decodeResult(t, env, &history)
	if len(history.Tests) != 1 || history.Tests[0].State != "complete" {
		t.Fatalf("unexpected history: %s", env.Result)
	}
	if got := history.Tests[0].CorrectCount + history.Tests[0].WrongCount; got != test.QuestionLimit {
		t.Fatalf("expected %d answered questions, got %d", test.QuestionLimit, got)
	}
}
