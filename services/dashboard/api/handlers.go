package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/common"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/export"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/thresholds"
	"github.com/iulianpascalau/iot-sensor-dashboard/services/dashboard/users"
)

const maxPatchSize = 64 * 1024

// writeError maps the domain errors onto HTTP status codes
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrInvalidRange),
		errors.Is(err, common.ErrInvalidThreshold),
		errors.Is(err, common.ErrInvalidUser),
		errors.Is(err, common.ErrInvalidRole),
		errors.Is(err, common.ErrInvalidDocumentID):
		status = http.StatusBadRequest
	case errors.Is(err, common.ErrInvalidCredentials):
		status = http.StatusUnauthorized
	case errors.Is(err, common.ErrSensorNotFound),
		errors.Is(err, common.ErrUserNotFound),
		errors.Is(err, common.ErrDocumentNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrSensorAlreadyExists),
		errors.Is(err, common.ErrUserAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, common.ErrStoreUnavailable):
		status = http.StatusServiceUnavailable
	}

	if status >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.Request.URL.Path, "error", err)
	}

	c.JSON(status, gin.H{"error": err.Error()})
}

// --- Handlers ---

func (s *server) handleLogin(c *gin.Context) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	user, err := s.users.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		writeError(c, err)
		return
	}

	token, err := s.issueToken(*user)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Debug("user logged in", "username", user.Username, "role", user.Role)
	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"username": user.Username,
		"role":     user.Role,
	})
}

func (s *server) handleGetConfig(c *gin.Context) {
	c.JSON(http.StatusOK, s.publicConfig)
}

func (s *server) handleLiveView(c *gin.Context) {
	view, err := s.dashboard.LiveView(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func historyQuery(c *gin.Context) common.HistoryQuery {
	return common.HistoryQuery{
		SensorID: c.Query("sensorId"),
		From:     c.Query("from"),
		To:       c.Query("to"),
	}
}

func (s *server) handleHistory(c *gin.Context) {
	stream, err := s.dashboard.History(c.Request.Context(), historyQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"readings":    stream.Readings,
		"parseErrors": len(stream.ParseErrors),
	})
}

func (s *server) handleExportTable(c *gin.Context) {
	s.export(c, "xlsx", export.TableContentType, export.ToTable)
}

func (s *server) handleExportDocument(c *gin.Context) {
	s.export(c, "pdf", export.DocumentContentType, export.ToDocument)
}

func (s *server) export(
	c *gin.Context,
	extension string,
	contentType string,
	render func(readings []common.Reading, loc *time.Location) ([]byte, error),
) {
	stream, err := s.dashboard.History(c.Request.Context(), historyQuery(c))
	if err != nil {
		writeError(c, err)
		return
	}

	data, err := render(stream.Readings, s.dashboard.Location())
	if err != nil {
		writeError(c, err)
		return
	}

	filename := fmt.Sprintf("readings_%s.%s", time.Now().In(s.dashboard.Location()).Format("20060102_150405"), extension)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, data)
}

func (s *server) handleGetSensors(c *gin.Context) {
	configs, err := s.thresholds.Load(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	out := make([]common.ThresholdConfig, 0, len(configs))
	for _, cfg := range configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SensorID < out[j].SensorID
	})

	c.JSON(http.StatusOK, gin.H{"sensors": out})
}

func (s *server) handleAddSensor(c *gin.Context) {
	var req struct {
		SensorID string `json:"sensorId"`
		Name     string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	err := s.thresholds.Add(c.Request.Context(), req.SensorID, req.Name)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Info("sensor added", "sensor", req.SensorID, "by", sessionUser(c).Username)
	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (s *server) handleSaveSensor(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxPatchSize))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	patch, err := thresholds.ParsePatch(body, s.thresholds.Vocabulary())
	if err != nil {
		writeError(c, err)
		return
	}

	sensorID := c.Param("id")
	err = s.thresholds.Save(c.Request.Context(), sensorID, patch)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Info("thresholds saved", "sensor", sensorID, "by", sessionUser(c).Username)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleRemoveSensor(c *gin.Context) {
	sensorID := c.Param("id")
	err := s.thresholds.Remove(c.Request.Context(), sensorID)
	if err != nil {
		writeError(c, err)
		return
	}

	log.Info("sensor removed", "sensor", sensorID, "by", sessionUser(c).Username)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *server) handleGetUsers(c *gin.Context) {
	list, err := s.users.List(c.Request.Context(), sessionUser(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"users": list})
}

func (s *server) handleAddUser(c *gin.Context) {
	var req users.NewUser
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	err := s.users.Add(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true})
}

func (s *server) handleRemoveUser(c *gin.Context) {
	username := c.Param("username")
	if username == sessionUser(c).Username {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot remove the logged in user"})
		return
	}

	err := s.users.Remove(c.Request.Context(), username)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true})
}
