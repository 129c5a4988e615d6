package server

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/config"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/mapping"
	"github.com/ginjaninja78/NFe-to-XLSX-conversion/internal/profile"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type upload struct {
	files  map[string][]byte
	order  []string
	fields map[string]string
	yaml   string
}

func (u upload) request(t *testing.T) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for _, name := range u.order {
		part, err := w.CreateFormFile("files", name)
		require.NoError(t, err)
		_, err = part.Write(u.files[name])
		require.NoError(t, err)
	}
	if u.yaml != "" {
		part, err := w.CreateFormFile("mapping", "mapping.yaml")
		require.NoError(t, err)
		_, err = part.Write([]byte(u.yaml))
		require.NoError(t, err)
	}
	for k, v := range u.fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/convert", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func sample(t *testing.T) []byte {
	t.Helper()
	data, err := os.ReadFile("../nfe/testdata/nfe_sample.xml")
	require.NoError(t, err)
	return data
}

func newTestServer(t *testing.T, profiles *profile.Manager, tweak func(*config.MainConfig)) *Server {
	t.Helper()
	cfg, err := config.LoadMainConfig("")
	require.NoError(t, err)
	if tweak != nil {
		tweak(cfg)
	}
	s, err := New(cfg, profiles, zap.NewNop())
	require.NoError(t, err)
	return s
}

func serve(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) APIResponse {
	t.Helper()
	var resp APIResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func sheetRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("NFes")
	require.NoError(t, err)
	return rows
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil, nil)
	rec := serve(s, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestConvertDefaultMapping(t *testing.T) {
	s := newTestServer(t, nil, nil)
	req := upload{
		files:  map[string][]byte{"nota.xml": sample(t), "quebrada.xml": []byte("<a x=1></a>")},
		order:  []string{"nota.xml", "quebrada.xml"},
		fields: map[string]string{"last_modified": "1704067200000"},
	}.request(t)

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, xlsxContentType, rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")
	assert.Equal(t, "2", rec.Header().Get("X-Files-Processed"))
	assert.Equal(t, "1", rec.Header().Get("X-Files-Failed"))
	assert.Equal(t, "3", rec.Header().Get("X-Rows-Generated"))

	rows := sheetRows(t, rec.Body.Bytes())
	require.Len(t, rows, 4)
	header := rows[0]
	assert.Equal(t, mapping.Default().Columns(), header[:mapping.Default().Len()])
	assert.Equal(t, "_error", header[len(header)-1])
}

func TestConvertUploadedMapping(t *testing.T) {
	s := newTestServer(t, nil, nil)
	req := upload{
		files: map[string][]byte{"nota.xml": sample(t)},
		order: []string{"nota.xml"},
		yaml: "fields:\n" +
			"  nfeProc.NFe.infNFe.ide.nNF: Número\n" +
			"  nfeProc.NFe.infNFe.det.prod.vProd: Valor\n" +
			"currency:\n" +
			"  - nfeProc.NFe.infNFe.det.prod.vProd\n",
		fields: map[string]string{"format_currency": "false"},
	}.request(t)

	rec := serve(s, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rows := sheetRows(t, rec.Body.Bytes())
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"Número", "Valor", "_fileName", "_fileSize", "_lastModified"}, rows[0])
	assert.Equal(t, "1234", rows[1][0])
	assert.Equal(t, "25.5", rows[1][1])
	assert.Equal(t, "0", rows[2][1])
}

func TestConvertRejections(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.MainConfig) {
		c.MaxFiles = 2
		c.ConfirmThreshold = 1
	})
	xml := []byte("<a/>")

	tests := []struct {
		name   string
		req    upload
		status int
		code   string
	}{
		{
			name:   "no files",
			req:    upload{fields: map[string]string{"multiple_sheets": "true"}},
			status: http.StatusBadRequest,
			code:   "MISSING_FILES",
		},
		{
			name: "too many files",
			req: upload{
				files: map[string][]byte{"1.xml": xml, "2.xml": xml, "3.xml": xml},
				order: []string{"1.xml", "2.xml", "3.xml"},
			},
			status: http.StatusBadRequest,
			code:   "TOO_MANY_FILES",
		},
		{
			name: "needs confirmation",
			req: upload{
				files: map[string][]byte{"1.xml": xml, "2.xml": xml},
				order: []string{"1.xml", "2.xml"},
			},
			status: http.StatusPreconditionRequired,
			code:   "CONFIRMATION_REQUIRED",
		},
		{
			name: "bad boolean",
			req: upload{
				files:  map[string][]byte{"1.xml": xml},
				order:  []string{"1.xml"},
				fields: map[string]string{"multiple_sheets": "talvez"},
			},
			status: http.StatusBadRequest,
			code:   "INVALID_OPTION",
		},
		{
			name: "bad mapping",
			req: upload{
				files: map[string][]byte{"1.xml": xml},
				order: []string{"1.xml"},
				yaml:  "fields:\n  a..b: X\n",
			},
			status: http.StatusBadRequest,
			code:   "INVALID_MAPPING",
		},
		{
			name: "reserved column",
			req: upload{
				files: map[string][]byte{"1.xml": xml},
				order: []string{"1.xml"},
				yaml:  "fields:\n  a.b: _fileName\n",
			},
			status: http.StatusBadRequest,
			code:   "INVALID_MAPPING",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(s, tt.req.request(t))
			assert.Equal(t, tt.status, rec.Code)
			resp := decode(t, rec)
			assert.False(t, resp.Success)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestConvertConfirmed(t *testing.T) {
	s := newTestServer(t, nil, func(c *config.MainConfig) {
		c.ConfirmThreshold = 1
	})
	req := upload{
		files:  map[string][]byte{"1.xml": sample(t), "2.xml": sample(t)},
		order:  []string{"1.xml", "2.xml"},
		fields: map[string]string{"confirm": "true"},
	}.request(t)

	rec := serve(s, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestConvertWithProfile(t *testing.T) {
	store, err := profile.Open(":memory:")
	require.NoError(t, err)
	defer store.Close()
	mgr := profile.NewManager(store)

	ctx := context.Background()
	p := &profile.Profile{
		Name:     "Só número",
		Mappings: []profile.ColumnMapping{{XMLPath: "nfeProc.NFe.infNFe.ide.nNF", ColumnName: "NF"}},
	}
	require.NoError(t, mgr.Save(ctx, p))
	require.NoError(t, mgr.Activate(ctx, p.ID))

	s := newTestServer(t, mgr, nil)
	rec := serve(s, upload{
		files: map[string][]byte{"nota.xml": sample(t)},
		order: []string{"nota.xml"},
	}.request(t))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "NF", sheetRows(t, rec.Body.Bytes())[0][0])

	rec = serve(s, upload{
		files:  map[string][]byte{"nota.xml": sample(t)},
		order:  []string{"nota.xml"},
		fields: map[string]string{"profile": "inexistente"},
	}.request(t))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = serve(s, httptest.NewRequest(http.MethodGet, "/api/v1/profiles", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decode(t, rec)
	assert.True(t, resp.Success)
	assert.Len(t, resp.Data, 1)
}
