package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/require"

	appEvents "github.com/streamvault/upload-gateway/internal/application/events"
	"github.com/streamvault/upload-gateway/internal/application/handlers"
	"github.com/streamvault/upload-gateway/internal/domain/events"
	"github.com/streamvault/upload-gateway/internal/handler"
	"github.com/streamvault/upload-gateway/internal/infrastructure/metrics"
	"github.com/streamvault/upload-gateway/internal/service"
	"github.com/streamvault/upload-gateway/internal/testutil"
	"github.com/streamvault/upload-gateway/pkg/config"
	"github.com/streamvault/upload-gateway/pkg/logger"
)

type gateway struct {
	requester *testutil.FakeRequester
	storage   *testutil.FakeStorage
	publisher *testutil.FakePublisher
	router    *gin.Engine
}

func newGateway(t *testing.T, maxUploadBytes int64) *gateway {
	t.Helper()
	log := logger.Discard()
	g := &gateway{
		requester: &testutil.FakeRequester{Reply: testutil.ExistsReply(true)},
		storage:   &testutil.FakeStorage{},
		publisher: &testutil.FakePublisher{},
	}

	reg := prometheus.NewRegistry()
	observer, err := metrics.NewPrometheusObserver("test", reg)
	require.NoError(t, err)

	serializer := events.NewJSONEventSerializer()
	orchestrator := service.NewUploadOrchestrator(
		log,
		appEvents.NewExistenceService(g.requester, serializer, log),
		service.NewStorageService(log, g.storage, time.Hour),
		appEvents.NewUploadEventService(g.publisher, serializer, observer, log),
		nil,
		observer,
		5*time.Second,
	)
	h := handler.NewHandler(handlers.NewUploadHandlerService(orchestrator, log), log)

	g.router = NewRouter(config.ServerConfig{
		GinMode:           gin.TestMode,
		MaxUploadBytes:    maxUploadBytes,
		MultipartMemoryMB: 1,
	}, h, promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), log)
	return g
}

func multipartBody(t *testing.T, fields map[string]string, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if filename != "" {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = io.WriteString(part, content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func (g *gateway) post(t *testing.T, path string, fields map[string]string, filename, content string) *httptest.ResponseRecorder {
	t.Helper()
	body, contentType := multipartBody(t, fields, filename, content)
	req := httptest.NewRequest(http.MethodPost, path, body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, req)
	return rec
}

func TestUploadMovieReturnsObjectKeyAndURL(t *testing.T) {
	g := newGateway(t, 0)

	rec := g.post(t, "/v1/upload/movie/content", map[string]string{"contentId": "m1"}, "trailer.mp4", "video")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp handler.UploadResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, strings.HasSuffix(resp.ObjectKey, "/temp.mp4"))
	require.True(t, strings.HasPrefix(resp.FileURL, "https://objects.test/content/"))

	require.Len(t, g.storage.Puts(), 1)
	require.Equal(t, "video", string(g.storage.Puts()[0].Body))
	require.Len(t, g.publisher.Messages(), 3)
}

func TestUploadSerialAndAnimeRoutes(t *testing.T) {
	g := newGateway(t, 0)

	rec := g.post(t, "/v1/upload/serial/content", map[string]string{"contentId": "ep42"}, "e1.mkv", "x")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "movie-api-episode-exist", g.requester.Calls()[0].Destination)

	rec = g.post(t, "/v1/upload/anime/content", map[string]string{"contentId": "a7", "isEpisode": "true"}, "a.mp4", "x")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "movie-api-episode-exist", g.requester.Calls()[1].Destination)

	rec = g.post(t, "/v1/upload/anime/content", map[string]string{"contentId": "a8", "isEpisode": "false"}, "a.mp4", "x")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "movie-api-content-exist", g.requester.Calls()[2].Destination)
}

func TestUploadUnknownContentReturns404Body(t *testing.T) {
	g := newGateway(t, 0)
	g.requester.Reply = testutil.ExistsReply(false)

	rec := g.post(t, "/v1/upload/movie/content", map[string]string{"contentId": "missing"}, "trailer.mp4", "video")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Content not found","code":"404"}`, rec.Body.String())
	require.Empty(t, g.storage.Puts())
	require.Empty(t, g.publisher.Messages())
}

func TestUploadUnknownEpisodeReturns404(t *testing.T) {
	g := newGateway(t, 0)
	g.requester.Reply = testutil.ExistsReply(false)

	rec := g.post(t, "/v1/upload/serial/content", map[string]string{"contentId": "ep42"}, "e42.mkv", "x")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.JSONEq(t, `{"message":"Content not found","code":"404"}`, rec.Body.String())

	calls := g.requester.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "movie-api-episode-exist", calls[0].Destination)

	var envelope events.Envelope
	require.NoError(t, json.Unmarshal(calls[0].Data, &envelope))
	require.JSONEq(t, `{"episodeId":"ep42"}`, string(envelope.Message))

	require.Empty(t, g.storage.Puts())
	require.Empty(t, g.publisher.Messages())
}

func TestUploadBadForm(t *testing.T) {
	g := newGateway(t, 0)

	rec := g.post(t, "/v1/upload/movie/content", map[string]string{"contentId": "m1"}, "", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = g.post(t, "/v1/upload/movie/content", map[string]string{}, "trailer.mp4", "video")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = g.post(t, "/v1/upload/anime/content", map[string]string{"contentId": "a7", "isEpisode": "maybe"}, "a.mp4", "x")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = g.post(t, "/v1/upload/movie/content", map[string]string{"contentId": "   "}, "trailer.mp4", "video")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp handler.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Equal(t, "400", resp.Code)
	require.Empty(t, g.requester.Calls())
}

func TestUploadOracleUnavailableReturns503(t *testing.T) {
	g := newGateway(t, 0)
	g.requester.Reply = func(context.Context, string, []byte) ([]byte, error) {
		return nil, errors.New("connection reset")
	}

	rec := g.post(t, "/v1/upload/movie/content", map[string]string{"contentId": "m1"}, "trailer.mp4", "video")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.JSONEq(t, `{"message":"Content catalog unavailable","code":"503"}`, rec.Body.String())
}

func TestUploadStorageFailureReturns500(t *testing.T) {
	g := newGateway(t, 0)
	g.storage.PutErr = errors.New("bucket gone")

	rec := g.post(t, "/v1/upload/movie/content", map[string]string{"contentId": "m1"}, "trailer.mp4", "video")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Empty(t, g.publisher.Messages())
}

func TestUploadOverLimitReturns413(t *testing.T) {
	g := newGateway(t, 64)

	rec := g.post(t, "/v1/upload/movie/content", map[string]string{"contentId": "m1"}, "trailer.mp4", strings.Repeat("v", 1024))
	require.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	require.Empty(t, g.requester.Calls())
	require.Empty(t, g.storage.Puts())
}

func TestHealthAndMetrics(t *testing.T) {
	g := newGateway(t, 0)
	g.post(t, "/v1/upload/movie/content", map[string]string{"contentId": "m1"}, "trailer.mp4", "video")

	rec := httptest.NewRecorder()
	g.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	g.router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `test_uploads_total{category="movie",outcome="completed"} 1`)
	require.Contains(t, rec.Body.String(), `test_published_messages_total{message_type="VideoProcessingEvent",outcome="ok"} 2`)
}
