package httpapi

import (
	"bytes"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpetrov/cardtidy/internal/middleware"
	"github.com/mpetrov/cardtidy/internal/service"
	"github.com/mpetrov/cardtidy/internal/session"
	"github.com/mpetrov/cardtidy/internal/storage/sqlite"
)

const sampleVCF = "BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nTEL:+1 555 123 4567\r\nEND:VCARD\r\n" +
	"BEGIN:VCARD\r\nVERSION:3.0\r\nFN:Jane Doe\r\nTEL:+1-555-123-4567\r\nEND:VCARD\r\n"

// testClient drives the API through the router, carrying the session
// cookie and CSRF token like a browser would.
type testClient struct {
	t      *testing.T
	mux    *http.ServeMux
	cookie *http.Cookie
	csrf   string
}

func newTestClient(t *testing.T) *testClient {
	t.Helper()
	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	h := New(
		service.NewContactService(store),
		session.NewManager("test-secret-key-32-bytes-long!!!", time.Hour),
		middleware.NewRateLimiter(),
		1<<20,
	)
	mux := http.NewServeMux()
	h.Routes(mux)

	c := &testClient{t: t, mux: mux}
	c.init()
	return c
}

func (c *testClient) init() {
	c.t.Helper()
	rec := httptest.NewRecorder()
	c.mux.ServeHTTP(rec, httptest.NewRequest("POST", "/api/init", nil))
	require.Equal(c.t, http.StatusOK, rec.Code)

	res := rec.Result()
	require.NotEmpty(c.t, res.Cookies(), "init should set the session cookie")
	c.cookie = res.Cookies()[0]

	var body struct {
		Data struct {
			CSRFToken string `json:"csrfToken"`
		} `json:"data"`
	}
	require.NoError(c.t, json.NewDecoder(res.Body).Decode(&body))
	c.csrf = body.Data.CSRFToken
}

func (c *testClient) do(method, path string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.cookie != nil {
		req.AddCookie(c.cookie)
	}
	if c.csrf != "" && method != "GET" {
		req.Header.Set(session.CSRFHeader, c.csrf)
	}
	rec := httptest.NewRecorder()
	c.mux.ServeHTTP(rec, req)
	return rec
}

func (c *testClient) doJSON(method, path string, payload any) *httptest.ResponseRecorder {
	c.t.Helper()
	var body bytes.Buffer
	require.NoError(c.t, json.NewEncoder(&body).Encode(payload))
	return c.do(method, path, &body, "application/json")
}

// decodeData unmarshals the envelope's data field into dst.
func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dst any) {
	t.Helper()
	var body struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   string          `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.True(t, body.Success, "expected success, got error: %s", body.Error)
	require.NoError(t, json.Unmarshal(body.Data, dst))
}

func (c *testClient) upload(text string) string {
	c.t.Helper()
	rec := c.doJSON("POST", "/api/upload", map[string]string{"text": text, "name": "test.vcf"})
	require.Equal(c.t, http.StatusOK, rec.Code, "upload failed: %s", rec.Body.String())
	var data struct {
		File struct {
			ID string `json:"id"`
		} `json:"file"`
	}
	decodeData(c.t, rec, &data)
	return data.File.ID
}

func (c *testClient) contactIDs() []string {
	c.t.Helper()
	rec := c.do("GET", "/api/contacts", nil, "")
	require.Equal(c.t, http.StatusOK, rec.Code)
	var data struct {
		Contacts []struct {
			ID string `json:"id"`
		} `json:"contacts"`
	}
	decodeData(c.t, rec, &data)
	ids := make([]string, len(data.Contacts))
	for i, ct := range data.Contacts {
		ids[i] = ct.ID
	}
	return ids
}

func TestSessionRequired(t *testing.T) {
	c := newTestClient(t)
	c.cookie = nil

	rec := c.do("GET", "/api/contacts", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCSRFRequired(t *testing.T) {
	c := newTestClient(t)
	c.csrf = ""

	rec := c.doJSON("POST", "/api/upload", map[string]string{"text": sampleVCF})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestInitReusesValidSession(t *testing.T) {
	c := newTestClient(t)

	req := httptest.NewRequest("POST", "/api/init", nil)
	req.AddCookie(c.cookie)
	rec := httptest.NewRecorder()
	c.mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		CSRFToken string `json:"csrfToken"`
	}
	decodeData(t, rec, &data)
	assert.Equal(t, c.csrf, data.CSRFToken)
	assert.Empty(t, rec.Result().Cookies(), "no new cookie for a valid session")
}

func TestUploadPastedText(t *testing.T) {
	c := newTestClient(t)

	rec := c.doJSON("POST", "/api/upload", map[string]string{"text": sampleVCF})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		ContactCount int `json:"contactCount"`
		File         struct {
			Name string `json:"name"`
		} `json:"file"`
	}
	decodeData(t, rec, &data)
	assert.Equal(t, 2, data.ContactCount)
	assert.Contains(t, data.File.Name, "Pasted Contacts")
}

func TestUploadMultipart(t *testing.T) {
	c := newTestClient(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "contacts.vcf")
	require.NoError(t, err)
	_, err = fw.Write([]byte(sampleVCF))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	rec := c.do("POST", "/api/upload", &buf, mw.FormDataContentType())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var data struct {
		ContactCount int `json:"contactCount"`
	}
	decodeData(t, rec, &data)
	assert.Equal(t, 2, data.ContactCount)
}

func TestUploadRejectsWrongExtension(t *testing.T) {
	c := newTestClient(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "contacts.txt")
	require.NoError(t, err)
	fw.Write([]byte(sampleVCF))
	require.NoError(t, mw.Close())

	rec := c.do("POST", "/api/upload", &buf, mw.FormDataContentType())
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadRejectsNonVCardText(t *testing.T) {
	c := newTestClient(t)

	rec := c.doJSON("POST", "/api/upload", map[string]string{"text": "hello world"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestContactCRUD(t *testing.T) {
	c := newTestClient(t)
	fileID := c.upload(sampleVCF)

	rec := c.doJSON("POST", "/api/contacts", map[string]any{
		"name":       "Dana Smith",
		"phones":     []map[string]string{{"value": "555-777-8888", "type": "mobile"}},
		"sourceFile": fileID,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var created struct {
		ID string `json:"id"`
	}
	decodeData(t, rec, &created)
	require.NotEmpty(t, created.ID)

	rec = c.do("GET", "/api/contacts/"+created.ID, nil, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.doJSON("PUT", "/api/contacts/"+created.ID, map[string]string{"name": "Dana B. Smith"})
	require.Equal(t, http.StatusOK, rec.Code)
	var updated struct {
		Name string `json:"name"`
	}
	decodeData(t, rec, &updated)
	assert.Equal(t, "Dana B. Smith", updated.Name)

	rec = c.doJSON("DELETE", "/api/contacts", map[string]any{"ids": []string{created.ID}})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.do("GET", "/api/contacts/"+created.ID, nil, "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateContactWithoutIdentity(t *testing.T) {
	c := newTestClient(t)
	fileID := c.upload(sampleVCF)

	rec := c.doJSON("POST", "/api/contacts", map[string]string{"notes": "nobody", "sourceFile": fileID})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateContactSourceFile(t *testing.T) {
	c := newTestClient(t)

	t.Run("missing", func(t *testing.T) {
		rec := c.doJSON("POST", "/api/contacts", map[string]string{"name": "No File"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown", func(t *testing.T) {
		rec := c.doJSON("POST", "/api/contacts", map[string]string{"name": "Bad File", "sourceFile": "ghost"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestAnalyzeAndMerge(t *testing.T) {
	c := newTestClient(t)
	c.upload(sampleVCF)

	rec := c.doJSON("POST", "/api/analyze", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	var analysis struct {
		TotalContacts int `json:"totalContacts"`
		Stats         struct {
			ExactMatch int `json:"exactMatch"`
			Total      int `json:"total"`
		} `json:"stats"`
	}
	decodeData(t, rec, &analysis)
	assert.Equal(t, 2, analysis.TotalContacts)
	assert.Equal(t, 1, analysis.Stats.ExactMatch)

	ids := c.contactIDs()
	require.Len(t, ids, 2)

	rec = c.doJSON("POST", "/api/merge", map[string]any{"ids": ids})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	assert.Len(t, c.contactIDs(), 1)
}

func TestMergeTooFewMembers(t *testing.T) {
	c := newTestClient(t)
	c.upload(sampleVCF)

	ids := c.contactIDs()
	rec := c.doJSON("POST", "/api/merge", map[string]any{"ids": []string{ids[0], "ghost"}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAutoMerge(t *testing.T) {
	c := newTestClient(t)
	c.upload(sampleVCF)

	ids := c.contactIDs()
	rec := c.doJSON("POST", "/api/merge/auto", map[string]any{"groups": [][]string{ids}})
	require.Equal(t, http.StatusOK, rec.Code)

	var data struct {
		MergedGroups int `json:"mergedGroups"`
	}
	decodeData(t, rec, &data)
	assert.Equal(t, 1, data.MergedGroups)
}

func TestExportDownload(t *testing.T) {
	c := newTestClient(t)
	c.upload(sampleVCF)

	rec := c.doJSON("POST", "/api/export", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/vcard")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	assert.True(t, strings.HasPrefix(rec.Body.String(), "BEGIN:VCARD"))
}

func TestExportEmptySession(t *testing.T) {
	c := newTestClient(t)

	rec := c.doJSON("POST", "/api/export", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFileEndpoints(t *testing.T) {
	c := newTestClient(t)
	c.upload(sampleVCF)

	rec := c.do("GET", "/api/files", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		Files []struct {
			ID           string `json:"id"`
			ContactCount int    `json:"contactCount"`
		} `json:"files"`
	}
	decodeData(t, rec, &data)
	require.Len(t, data.Files, 1)
	assert.Equal(t, 2, data.Files[0].ContactCount)

	rec = c.doJSON("PUT", "/api/files/"+data.Files[0].ID, map[string]string{"name": "renamed.vcf"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = c.doJSON("DELETE", "/api/files/"+data.Files[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, c.contactIDs())
}

func TestHistoryAndClear(t *testing.T) {
	c := newTestClient(t)
	c.upload(sampleVCF)

	rec := c.do("GET", "/api/history", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var data struct {
		History []struct {
			Action string `json:"action"`
		} `json:"history"`
	}
	decodeData(t, rec, &data)
	require.NotEmpty(t, data.History)
	assert.Equal(t, "add_file", data.History[0].Action)

	rec = c.doJSON("POST", "/api/clear", map[string]any{})
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, c.contactIDs())
}

func TestAnalyzeRateLimit(t *testing.T) {
	c := newTestClient(t)
	c.upload(sampleVCF)

	var last int
	for i := 0; i < 11; i++ {
		last = c.doJSON("POST", "/api/analyze", map[string]any{}).Code
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
