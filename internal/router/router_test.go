package router_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"focusvillage/backend/internal/coach"
	"focusvillage/backend/internal/handler"
	"focusvillage/backend/internal/logging"
	"focusvillage/backend/internal/router"
	"focusvillage/backend/internal/service"
	"focusvillage/backend/internal/store"
)

type authResponse struct {
	Token string `json:"token"`
	User  struct {
		ID    string `json:"id"`
		Email string `json:"email"`
	} `json:"user"`
}

type taskEnvelope struct {
	Task struct {
		ID                    string `json:"id"`
		Title                 string `json:"title"`
		Status                string `json:"status"`
		CompletedSessionCount int    `json:"completedSessionCount"`
	} `json:"task"`
}

type taskListEnvelope struct {
	Tasks []struct {
		ID                    string `json:"id"`
		Title                 string `json:"title"`
		Status                string `json:"status"`
		CompletedSessionCount int    `json:"completedSessionCount"`
	} `json:"tasks"`
	FocusedTaskID string `json:"focusedTaskId"`
}

type timerEnvelope struct {
	State struct {
		Mode             string `json:"mode"`
		RemainingSeconds int    `json:"remainingSeconds"`
		TotalSeconds     int    `json:"totalSeconds"`
		Running          bool   `json:"running"`
	} `json:"state"`
}

type profileEnvelope struct {
	Profile struct {
		Level              int `json:"level"`
		TotalFocusMinutes  int `json:"totalFocusMinutes"`
		ResourcePoints     int `json:"resourcePoints"`
		CompletedTaskCount int `json:"completedTaskCount"`
	} `json:"profile"`
}

type apiErrorEnvelope struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestFocusSessionFlow(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "player@example.com", "123456")

	// Add a task and focus it.
	status, body := requestJSON(t, engine, http.MethodPost, "/api/tasks", user.Token, "", map[string]interface{}{
		"title":              "Write report",
		"priority":           "high",
		"category":           "Work",
		"targetSessionCount": 2,
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on task create, got %d: %s", status, string(body))
	}
	var created taskEnvelope
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("unmarshal created task: %v", err)
	}
	if created.Task.Status != "todo" || created.Task.CompletedSessionCount != 0 {
		t.Fatalf("unexpected new task defaults: %+v", created.Task)
	}

	status, body = requestJSON(t, engine, http.MethodPost, "/api/tasks/"+created.Task.ID+"/focus", user.Token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on focus, got %d: %s", status, string(body))
	}
	var focused taskEnvelope
	if err := json.Unmarshal(body, &focused); err != nil {
		t.Fatalf("unmarshal focused task: %v", err)
	}
	if focused.Task.Status != "in_progress" {
		t.Fatalf("expected focused todo task to become in_progress, got %s", focused.Task.Status)
	}

	// Shrink the countdown to one minute and run it to completion; the
	// test engine ticks every millisecond.
	status, _ = requestJSON(t, engine, http.MethodPut, "/api/timer/duration", user.Token, "", map[string]int{"seconds": 60})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on set duration, got %d", status)
	}
	status, body = requestJSON(t, engine, http.MethodPost, "/api/timer/start", user.Token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on start, got %d", status)
	}
	var timerState timerEnvelope
	if err := json.Unmarshal(body, &timerState); err != nil {
		t.Fatalf("unmarshal timer state: %v", err)
	}
	if !timerState.State.Running || timerState.State.TotalSeconds != 60 {
		t.Fatalf("unexpected running state: %+v", timerState.State)
	}

	profile := waitForFocusMinutes(t, engine, user.Token, 1)
	if profile.Profile.ResourcePoints != 1 {
		t.Fatalf("expected 1 resource point, got %d", profile.Profile.ResourcePoints)
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/tasks", user.Token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on task list, got %d", status)
	}
	var list taskListEnvelope
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("unmarshal task list: %v", err)
	}
	if len(list.Tasks) != 1 || list.Tasks[0].CompletedSessionCount != 1 {
		t.Fatalf("expected focused task credited one session, got %+v", list.Tasks)
	}

	// Completing the task feeds the progression counter.
	status, _ = requestJSON(t, engine, http.MethodPatch, "/api/tasks/"+created.Task.ID, user.Token, "", map[string]string{
		"status": "done",
	})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on task completion, got %d", status)
	}
	profile = getProfile(t, engine, user.Token, "")
	if profile.Profile.CompletedTaskCount != 1 {
		t.Fatalf("expected completedTaskCount 1, got %d", profile.Profile.CompletedTaskCount)
	}
}

func TestHarvestFreeItemConflict(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "farmer@example.com", "123456")

	status, _ := requestJSON(t, engine, http.MethodPost, "/api/progression/harvest", user.Token, "", map[string]int{"tier": 1})
	if status != http.StatusOK {
		t.Fatalf("expected 200 on first free harvest, got %d", status)
	}

	status, body := requestJSON(t, engine, http.MethodPost, "/api/progression/harvest", user.Token, "", map[string]int{"tier": 1})
	if status != http.StatusConflict {
		t.Fatalf("expected 409 on repeat free harvest, got %d", status)
	}
	var errResp apiErrorEnvelope
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("unmarshal harvest error: %v", err)
	}
	if errResp.Error.Code != "already_harvested" {
		t.Fatalf("expected already_harvested, got %s", errResp.Error.Code)
	}

	status, body = requestJSON(t, engine, http.MethodPost, "/api/progression/harvest", user.Token, "", map[string]int{"tier": 2})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 on unaffordable harvest, got %d: %s", status, string(body))
	}
}

func TestGuestModeIsolation(t *testing.T) {
	engine := setupTestEngine(t)
	user := registerUser(t, engine, "owner@example.com", "123456")

	status, _ := requestJSON(t, engine, http.MethodPost, "/api/tasks", "", "device-42", map[string]string{
		"title": "guest task",
	})
	if status != http.StatusCreated {
		t.Fatalf("expected 201 on guest task create, got %d", status)
	}

	status, body := requestJSON(t, engine, http.MethodGet, "/api/tasks", "", "device-42", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on guest task list, got %d", status)
	}
	var guestList taskListEnvelope
	if err := json.Unmarshal(body, &guestList); err != nil {
		t.Fatalf("unmarshal guest list: %v", err)
	}
	if len(guestList.Tasks) != 1 {
		t.Fatalf("expected one guest task, got %d", len(guestList.Tasks))
	}

	status, body = requestJSON(t, engine, http.MethodGet, "/api/tasks", user.Token, "", nil)
	if status != http.StatusOK {
		t.Fatalf("expected 200 on user task list, got %d", status)
	}
	var userList taskListEnvelope
	if err := json.Unmarshal(body, &userList); err != nil {
		t.Fatalf("unmarshal user list: %v", err)
	}
	if len(userList.Tasks) != 0 {
		t.Fatalf("expected no tasks for authenticated user, got %d", len(userList.Tasks))
	}
}

func TestInvalidModeRejected(t *testing.T) {
	engine := setupTestEngine(t)

	status, body := requestJSON(t, engine, http.MethodPost, "/api/timer/mode", "", "device-1", map[string]string{
		"mode": "nap",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid mode, got %d", status)
	}
	var errResp apiErrorEnvelope
	if err := json.Unmarshal(body, &errResp); err != nil {
		t.Fatalf("unmarshal error: %v", err)
	}
	if errResp.Error.Code != "invalid_mode" {
		t.Fatalf("expected invalid_mode, got %s", errResp.Error.Code)
	}
}

func TestCoachUnavailableWithoutKey(t *testing.T) {
	engine := setupTestEngine(t)

	status, body := requestJSON(t, engine, http.MethodPost, "/api/coach/chat", "", "device-1", map[string]interface{}{
		"messages": []map[string]string{{"role": "user", "text": "how do I focus?"}},
	})
	if status != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without coach key, got %d: %s", status, string(body))
	}
}

func TestCORSPreflight(t *testing.T) {
	engine := setupTestEngine(t)
	req := httptest.NewRequest(http.MethodOptions, "/api/auth/login", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	recorder := httptest.NewRecorder()

	engine.ServeHTTP(recorder, req)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204 for preflight, got %d", recorder.Code)
	}
	if recorder.Header().Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow-origin header: %s", recorder.Header().Get("Access-Control-Allow-Origin"))
	}
}

func setupTestEngine(t *testing.T) http.Handler {
	t.Helper()

	database, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	_, currentFile, _, _ := runtime.Caller(0)
	migrationsDir := filepath.Join(filepath.Dir(currentFile), "..", "..", "migrations")
	if err := store.RunMigrations(database, migrationsDir); err != nil {
		t.Fatalf("run migrations: %v", err)
	}

	remoteDocs := store.NewSQLiteStore(database)
	guestDocs, err := store.NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("open guest store: %v", err)
	}

	log := logging.NewNop()
	users := store.NewUserStore(database)
	authService := service.NewAuthService(users, remoteDocs, "test-secret", 24*time.Hour)
	sessions := service.NewSessions(remoteDocs, guestDocs, service.SessionsConfig{
		SuppressWindow: 3 * time.Second,
		FlushDebounce:  10 * time.Millisecond,
		TickInterval:   time.Millisecond,
	}, log)
	t.Cleanup(sessions.Close)

	return router.New(
		authService,
		handler.NewAuthHandler(authService),
		handler.NewTimerHandler(sessions),
		handler.NewTaskHandler(sessions),
		handler.NewProgressionHandler(sessions),
		handler.NewCoachHandler(sessions, coach.New("", "gemini-2.0-flash")),
		[]string{"http://localhost:5173"},
	)
}

func registerUser(t *testing.T, server http.Handler, email, password string) authResponse {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodPost, "/api/auth/register", "", "", map[string]string{
		"email":    email,
		"password": password,
	})
	if status != http.StatusCreated {
		t.Fatalf("register %s failed with status %d: %s", email, status, string(body))
	}
	var resp authResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal register response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("empty token for user %s", email)
	}
	return resp
}

func getProfile(t *testing.T, server http.Handler, token, device string) profileEnvelope {
	t.Helper()
	status, body := requestJSON(t, server, http.MethodGet, "/api/progression", token, device, nil)
	if status != http.StatusOK {
		t.Fatalf("get profile failed with status %d: %s", status, string(body))
	}
	var resp profileEnvelope
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal profile response: %v", err)
	}
	return resp
}

// waitForFocusMinutes polls the profile until the countdown completion has
// been credited.
func waitForFocusMinutes(t *testing.T, server http.Handler, token string, want int) profileEnvelope {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		profile := getProfile(t, server, token, "")
		if profile.Profile.TotalFocusMinutes >= want {
			return profile
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("focus minutes never reached %d", want)
	return profileEnvelope{}
}

func requestJSON(
	t *testing.T,
	server http.Handler,
	method, path, token, device string,
	body interface{},
) (int, []byte) {
	t.Helper()

	var payload []byte
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
		payload = raw
	}

	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if device != "" {
		req.Header.Set("X-Device-ID", device)
	}

	recorder := httptest.NewRecorder()
	server.ServeHTTP(recorder, req)
	return recorder.Code, recorder.Body.Bytes()
}
