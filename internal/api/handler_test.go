package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/insightdelivered/sheetsift/internal/cleanup"
	"github.com/insightdelivered/sheetsift/internal/converter"
	"github.com/insightdelivered/sheetsift/internal/models"
	"github.com/insightdelivered/sheetsift/internal/storage"
	"github.com/insightdelivered/sheetsift/internal/xlsxtest"
)

type testServer struct {
	app     *fiber.App
	store   *storage.LocalStore
	cleanup *cleanup.Scheduler
}

func setupTestApp(t *testing.T) *testServer {
	t.Helper()
	store, err := storage.NewLocalStore(t.TempDir())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	sched := cleanup.New(store, zerolog.Nop())
	t.Cleanup(sched.Stop)

	h := &Handler{
		Converter:   converter.NewService(store, "", zerolog.Nop()),
		Store:       store,
		Cleanup:     sched,
		Log:         zerolog.Nop(),
		DeleteAfter: time.Hour,
		Version:     "test",
	}
	return &testServer{app: NewApp(h, 4<<20), store: store, cleanup: sched}
}

func sebWorkbook(t *testing.T) []byte {
	return xlsxtest.Workbook(t,
		[]string{"Nurašymo / įskaitymo data", "Operacijos aprašymas", "Suma sąskaitos valiuta"},
		[]interface{}{"2024-01-10", "Alga LT120000000000000001", 100},
		[]interface{}{"2024-02-10", "Nuoma LT340000000000000002", -40},
	)
}

func uploadRequest(t *testing.T, bank, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if bank != "" {
		if err := mw.WriteField("bank", bank); err != nil {
			t.Fatalf("write bank field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("create file field: %v", err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatalf("write file field: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/analyze", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func do(t *testing.T, app *fiber.App, req *http.Request) (*http.Response, []byte) {
	t.Helper()
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	resp.Body.Close()
	return resp, body
}

func decode(t *testing.T, body []byte) AnalyzeResponse {
	t.Helper()
	var out AnalyzeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("failed to decode response %q: %v", body, err)
	}
	return out
}

func TestHealthEndpoint(t *testing.T) {
	srv := setupTestApp(t)

	resp, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if result["status"] != "ok" {
		t.Errorf("expected status=ok, got %v", result["status"])
	}
	if result["engine"] != "fiber" {
		t.Errorf("expected engine=fiber, got %v", result["engine"])
	}
	if result["version"] != "test" {
		t.Errorf("expected version=test, got %v", result["version"])
	}
	if result["pending"] != float64(0) {
		t.Errorf("expected pending=0, got %v", result["pending"])
	}
}

func TestBanksEndpoint(t *testing.T) {
	srv := setupTestApp(t)

	resp, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/banks", nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var banks []BankInfo
	if err := json.Unmarshal(body, &banks); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(banks) != 7 {
		t.Fatalf("banks: got %d, want 7", len(banks))
	}
	for _, b := range banks {
		if b.Name == "" || len(b.Variants) == 0 {
			t.Errorf("bank %q: missing name or variants", b.ID)
		}
	}
}

func TestAnalyzeRequiresFile(t *testing.T) {
	srv := setupTestApp(t)

	resp, body := do(t, srv.app, uploadRequest(t, "seb", "", nil))
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
	if got := decode(t, body); got.Success {
		t.Error("expected success=false")
	}
}

func TestAnalyzeErrorStatus(t *testing.T) {
	tests := []struct {
		name       string
		bank       string
		filename   string
		data       func(t *testing.T) []byte
		wantStatus int
		wantKind   models.ErrorKind
	}{
		{"wrong file type", "seb", "israsas.txt", sebWorkbook, fiber.StatusUnsupportedMediaType, models.KindWrongFileType},
		{"unknown bank", "monzo", "israsas.xlsx", sebWorkbook, fiber.StatusBadRequest, models.KindUnsupportedBank},
		{"format mismatch", "swedbank", "israsas.xlsx", sebWorkbook, fiber.StatusUnprocessableEntity, models.KindFormatMismatch},
		{
			"corrupt workbook", "seb", "israsas.xlsx",
			func(t *testing.T) []byte { return []byte("garbage") },
			fiber.StatusUnprocessableEntity, models.KindMalformedInput,
		},
		{
			"header only", "seb", "israsas.xlsx",
			func(t *testing.T) []byte {
				return xlsxtest.Workbook(t, []string{"Nurašymo / įskaitymo data", "Operacijos aprašymas", "Suma sąskaitos valiuta"})
			},
			fiber.StatusUnprocessableEntity, models.KindEmptyInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := setupTestApp(t)

			resp, body := do(t, srv.app, uploadRequest(t, tt.bank, tt.filename, tt.data(t)))
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("status: got %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			got := decode(t, body)
			if got.Kind != tt.wantKind {
				t.Errorf("kind: got %q, want %q", got.Kind, tt.wantKind)
			}
			if got.Error != converter.GenericMessage {
				t.Errorf("error: got %q, want %q", got.Error, converter.GenericMessage)
			}
			if got.Detail == "" {
				t.Error("expected error detail")
			}
			if len(srv.cleanup.Pending()) != 0 {
				t.Error("failed run must not schedule a deletion")
			}
		})
	}
}

func TestAnalyzeAndDownload(t *testing.T) {
	srv := setupTestApp(t)

	resp, body := do(t, srv.app, uploadRequest(t, "seb", "israsas.xlsx", sebWorkbook(t)))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	got := decode(t, body)
	if !got.Success || got.Artifact == nil {
		t.Fatalf("expected success with artifact, got %+v", got)
	}
	if got.Variant != "seb_legacy" || got.Count != 2 {
		t.Errorf("variant/count: got %q/%d", got.Variant, got.Count)
	}
	if got.TotalCredit.String() != "100" {
		t.Errorf("total credit: got %s, want 100", got.TotalCredit)
	}
	if got.TotalDebit.String() != "40" {
		t.Errorf("total debit: got %s, want 40", got.TotalDebit)
	}

	pending := srv.cleanup.Pending()
	if len(pending) != 1 || pending[0] != got.Artifact.Ref {
		t.Errorf("pending deletions: got %q, want [%q]", pending, got.Artifact.Ref)
	}

	cookies := resp.Cookies()
	if len(cookies) == 0 {
		t.Fatal("expected a session cookie")
	}

	dl := httptest.NewRequest(http.MethodGet, "/api/download", nil)
	for _, c := range cookies {
		dl.AddCookie(c)
	}
	resp, body = do(t, srv.app, dl)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("download: expected 200, got %d: %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get(fiber.HeaderContentType); ct != models.WorkbookContentType {
		t.Errorf("content type: got %q", ct)
	}
	if cd := resp.Header.Get(fiber.HeaderContentDisposition); cd == "" {
		t.Error("expected attachment disposition")
	}
	_, order := xlsxtest.Sheets(t, body)
	if len(order) != 3 {
		t.Errorf("sheets: got %q, want 3 sheets", order)
	}

	resp, _ = do(t, srv.app, httptest.NewRequest(http.MethodGet, got.DownloadURL, nil))
	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("artifact by ref: expected 200, got %d", resp.StatusCode)
	}
}

func TestDownloadWithoutSession(t *testing.T) {
	srv := setupTestApp(t)

	resp, _ := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/download", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestDownloadExpired(t *testing.T) {
	srv := setupTestApp(t)

	resp, body := do(t, srv.app, uploadRequest(t, "seb", "israsas.xlsx", sebWorkbook(t)))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	ref := decode(t, body).Artifact.Ref

	if err := srv.cleanup.DeleteNow(context.Background(), ref); err != nil {
		t.Fatalf("delete: %v", err)
	}

	dl := httptest.NewRequest(http.MethodGet, "/api/download", nil)
	for _, c := range resp.Cookies() {
		dl.AddCookie(c)
	}
	resp, body = do(t, srv.app, dl)
	if resp.StatusCode != fiber.StatusGone {
		t.Errorf("expected 410, got %d", resp.StatusCode)
	}
	if got := decode(t, body); got.Kind != models.KindArtifactExpired {
		t.Errorf("kind: got %q, want %q", got.Kind, models.KindArtifactExpired)
	}

	resp, _ = do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/artifacts/"+ref, nil))
	if resp.StatusCode != fiber.StatusGone {
		t.Errorf("artifact by ref: expected 410, got %d", resp.StatusCode)
	}
}

func TestArtifactBadRef(t *testing.T) {
	srv := setupTestApp(t)

	resp, _ := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/artifacts/not-a-uuid/x.xlsx", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUnknownRoute(t *testing.T) {
	srv := setupTestApp(t)

	resp, body := do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("expected 404, got %d", resp.StatusCode)
	}
	if got := decode(t, body); got.Success {
		t.Error("expected success=false")
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind models.ErrorKind
		want int
	}{
		{models.KindUnsupportedBank, 400},
		{models.KindWrongFileType, 415},
		{models.KindFormatMismatch, 422},
		{models.KindMalformedInput, 422},
		{models.KindEmptyInput, 422},
		{models.KindArtifactExpired, 410},
		{models.KindInternal, 500},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			if got := StatusFor(tt.kind); got != tt.want {
				t.Errorf("got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestDeleteArtifact(t *testing.T) {
	srv := setupTestApp(t)

	resp, body := do(t, srv.app, uploadRequest(t, "seb", "israsas.xlsx", sebWorkbook(t)))
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}
	got := decode(t, body)
	cookies := resp.Cookies()

	del := httptest.NewRequest(http.MethodDelete, got.DownloadURL, nil)
	for _, c := range cookies {
		del.AddCookie(c)
	}
	resp, _ = do(t, srv.app, del)
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("delete: expected 204, got %d", resp.StatusCode)
	}
	if n := len(srv.cleanup.Pending()); n != 0 {
		t.Errorf("pending after delete: got %d, want 0", n)
	}

	if _, err := srv.store.Open(context.Background(), got.Artifact.Ref); err == nil {
		t.Error("artifact still readable after delete")
	}

	// the session no longer points at the deleted result
	dl := httptest.NewRequest(http.MethodGet, "/api/download", nil)
	for _, c := range cookies {
		dl.AddCookie(c)
	}
	resp, _ = do(t, srv.app, dl)
	if resp.StatusCode != fiber.StatusNotFound {
		t.Errorf("download after delete: expected 404, got %d", resp.StatusCode)
	}

	resp, body = do(t, srv.app, httptest.NewRequest(http.MethodDelete, got.DownloadURL, nil))
	if resp.StatusCode != fiber.StatusGone {
		t.Errorf("second delete: expected 410, got %d", resp.StatusCode)
	}
	if k := decode(t, body).Kind; k != models.KindArtifactExpired {
		t.Errorf("kind: got %q, want %q", k, models.KindArtifactExpired)
	}
}

func TestRequestIDHeader(t *testing.T) {
	srv := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set(HeaderRequestID, "abc-123")
	resp, _ := do(t, srv.app, req)
	if got := resp.Header.Get(HeaderRequestID); got != "abc-123" {
		t.Errorf("request id: got %q, want %q", got, "abc-123")
	}

	resp, _ = do(t, srv.app, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	if resp.Header.Get(HeaderRequestID) == "" {
		t.Error("expected a generated request id")
	}
}
