// Package server exposes the triage surface over HTTP: the merged account
// view, decision writes, and tracked-people CRUD.
package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/conradchan/igrestore/internal/store"
	"github.com/conradchan/igrestore/internal/view"
)

const (
	triageRoutePath     = "/"
	healthRoutePath     = "/healthz"
	profilesRoutePath   = "/api/profiles"
	decisionRoutePath   = "/api/decision"
	peopleRoutePath     = "/api/people"
	personRoutePath     = "/api/people/:id"
	picturesRoutePrefix = "/pics"
	staticRoutePrefix   = "/static"
	personIDRouteParam  = "id"
	htmlContentType     = "text/html; charset=utf-8"
	mergedViewFlightKey = "merged-view"
	healthStatusKey     = "status"
	healthStatusOK      = "ok"
	responseKeyError    = "error"
	responseKeyPersonID = "id"
	ginModeRelease      = "release"

	errorMessageViewUnavailable = "merged view unavailable"
	errorMessageRenderFailure   = "triage page rendering failed"
	errorMessageBadRequest      = "invalid request body"
	errorMessageBadPersonID     = "invalid person id"
	errorMessageStoreFailure    = "store operation failed"

	logMessageViewFailure   = "merged view load failure"
	logMessageRenderFailure = "triage render failure"
	logMessageStoreFailure  = "store operation failure"
)

// ViewService builds and renders the merged triage view.
type ViewService interface {
	MergedRows(ctx context.Context) ([]view.Row, error)
	RenderTriagePage(rows []view.Row) (string, error)
}

// DecisionStore is the persistence surface the router writes through.
// *store.Store satisfies it; tests substitute stubs.
type DecisionStore interface {
	UpsertDecision(ctx context.Context, record store.Decision) error
	AllDecisions(ctx context.Context) (map[string]store.Decision, error)
	CreatePerson(ctx context.Context, name string, notes string) (int64, error)
	ListPeople(ctx context.Context) ([]store.Person, error)
	UpdatePersonNotes(ctx context.Context, personID int64, notes string) error
	DeletePerson(ctx context.Context, personID int64) error
}

// RouterConfig configures the HTTP routing for the triage surface.
type RouterConfig struct {
	Service          ViewService
	Store            DecisionStore
	PictureDirectory string
	Logger           *zap.Logger
}

// NewRouter constructs a Gin engine wired with the triage handlers.
func NewRouter(configuration RouterConfig) (*gin.Engine, error) {
	logger := configuration.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	gin.SetMode(ginModeRelease)
	engine := gin.New()
	engine.Use(gin.Recovery())

	handler := &triageHandler{
		service: configuration.Service,
		store:   configuration.Store,
		logger:  logger,
	}

	engine.GET(triageRoutePath, handler.serveTriagePage)
	engine.GET(healthRoutePath, handler.healthStatus)
	engine.GET(profilesRoutePath, handler.listProfiles)
	engine.POST(decisionRoutePath, handler.upsertDecision)
	engine.GET(peopleRoutePath, handler.listPeople)
	engine.POST(peopleRoutePath, handler.createPerson)
	engine.PUT(personRoutePath, handler.updatePersonNotes)
	engine.DELETE(personRoutePath, handler.deletePerson)

	if configuration.PictureDirectory != "" {
		engine.Static(picturesRoutePrefix, configuration.PictureDirectory)
	}
	staticAssets, assetsErr := view.StaticAssets()
	if assetsErr != nil {
		return nil, assetsErr
	}
	engine.StaticFS(staticRoutePrefix, http.FS(staticAssets))

	return engine, nil
}

type triageHandler struct {
	service     ViewService
	store       DecisionStore
	logger      *zap.Logger
	flightGroup singleflight.Group
}

// loadRows collapses concurrent merged-view loads into a single computation.
func (handler *triageHandler) loadRows(ctx context.Context) ([]view.Row, error) {
	flightResult, flightErr, _ := handler.flightGroup.Do(mergedViewFlightKey, func() (interface{}, error) {
		return handler.service.MergedRows(ctx)
	})
	if flightErr != nil {
		return nil, flightErr
	}
	rows, _ := flightResult.([]view.Row)
	return rows, nil
}

func (handler *triageHandler) serveTriagePage(ginContext *gin.Context) {
	rows, loadErr := handler.loadRows(ginContext.Request.Context())
	if loadErr != nil {
		handler.logger.Error(logMessageViewFailure, zap.Error(loadErr))
		ginContext.String(http.StatusInternalServerError, errorMessageViewUnavailable)
		return
	}
	pageHTML, renderErr := handler.service.RenderTriagePage(rows)
	if renderErr != nil {
		handler.logger.Error(logMessageRenderFailure, zap.Error(renderErr))
		ginContext.String(http.StatusInternalServerError, errorMessageRenderFailure)
		return
	}
	ginContext.Data(http.StatusOK, htmlContentType, []byte(pageHTML))
}

func (handler *triageHandler) healthStatus(ginContext *gin.Context) {
	ginContext.JSON(http.StatusOK, map[string]string{healthStatusKey: healthStatusOK})
}

func (handler *triageHandler) listProfiles(ginContext *gin.Context) {
	rows, loadErr := handler.loadRows(ginContext.Request.Context())
	if loadErr != nil {
		handler.logger.Error(logMessageViewFailure, zap.Error(loadErr))
		ginContext.JSON(http.StatusInternalServerError, gin.H{responseKeyError: errorMessageViewUnavailable})
		return
	}
	ginContext.JSON(http.StatusOK, rows)
}

type decisionRequest struct {
	Username string `json:"username"`
	Decision string `json:"decision"`
	Notes    string `json:"notes"`
}

func (handler *triageHandler) upsertDecision(ginContext *gin.Context) {
	var request decisionRequest
	if bindErr := ginContext.ShouldBindJSON(&request); bindErr != nil {
		ginContext.JSON(http.StatusBadRequest, gin.H{responseKeyError: errorMessageBadRequest})
		return
	}
	if request.Decision == "" {
		request.Decision = store.DefaultDecision
	}
	upsertErr := handler.store.UpsertDecision(ginContext.Request.Context(), store.Decision{
		Username: request.Username,
		Decision: request.Decision,
		Notes:    request.Notes,
	})
	if errors.Is(upsertErr, store.ErrMissingUsername) {
		ginContext.JSON(http.StatusBadRequest, gin.H{responseKeyError: upsertErr.Error()})
		return
	}
	if upsertErr != nil {
		handler.logger.Error(logMessageStoreFailure, zap.Error(upsertErr))
		ginContext.JSON(http.StatusInternalServerError, gin.H{responseKeyError: errorMessageStoreFailure})
		return
	}
	ginContext.JSON(http.StatusOK, gin.H{healthStatusKey: healthStatusOK})
}

func (handler *triageHandler) listPeople(ginContext *gin.Context) {
	people, listErr := handler.store.ListPeople(ginContext.Request.Context())
	if listErr != nil {
		handler.logger.Error(logMessageStoreFailure, zap.Error(listErr))
		ginContext.JSON(http.StatusInternalServerError, gin.H{responseKeyError: errorMessageStoreFailure})
		return
	}
	ginContext.JSON(http.StatusOK, people)
}

type personCreateRequest struct {
	Name  string `json:"name"`
	Notes string `json:"notes"`
}

func (handler *triageHandler) createPerson(ginContext *gin.Context) {
	var request personCreateRequest
	if bindErr := ginContext.ShouldBindJSON(&request); bindErr != nil {
		ginContext.JSON(http.StatusBadRequest, gin.H{responseKeyError: errorMessageBadRequest})
		return
	}
	personID, createErr := handler.store.CreatePerson(ginContext.Request.Context(), request.Name, request.Notes)
	if errors.Is(createErr, store.ErrMissingPersonName) {
		ginContext.JSON(http.StatusBadRequest, gin.H{responseKeyError: createErr.Error()})
		return
	}
	if createErr != nil {
		handler.logger.Error(logMessageStoreFailure, zap.Error(createErr))
		ginContext.JSON(http.StatusInternalServerError, gin.H{responseKeyError: errorMessageStoreFailure})
		return
	}
	ginContext.JSON(http.StatusCreated, gin.H{responseKeyPersonID: personID})
}

type personUpdateRequest struct {
	Notes string `json:"notes"`
}

func (handler *triageHandler) updatePersonNotes(ginContext *gin.Context) {
	personID, parseErr := strconv.ParseInt(ginContext.Param(personIDRouteParam), 10, 64)
	if parseErr != nil {
		ginContext.JSON(http.StatusBadRequest, gin.H{responseKeyError: errorMessageBadPersonID})
		return
	}
	var request personUpdateRequest
	if bindErr := ginContext.ShouldBindJSON(&request); bindErr != nil {
		ginContext.JSON(http.StatusBadRequest, gin.H{responseKeyError: errorMessageBadRequest})
		return
	}
	if updateErr := handler.store.UpdatePersonNotes(ginContext.Request.Context(), personID, request.Notes); updateErr != nil {
		handler.logger.Error(logMessageStoreFailure, zap.Error(updateErr))
		ginContext.JSON(http.StatusInternalServerError, gin.H{responseKeyError: errorMessageStoreFailure})
		return
	}
	ginContext.JSON(http.StatusOK, gin.H{healthStatusKey: healthStatusOK})
}

func (handler *triageHandler) deletePerson(ginContext *gin.Context) {
	personID, parseErr := strconv.ParseInt(ginContext.Param(personIDRouteParam), 10, 64)
	if parseErr != nil {
		ginContext.JSON(http.StatusBadRequest, gin.H{responseKeyError: errorMessageBadPersonID})
		return
	}
	if deleteErr := handler.store.DeletePerson(ginContext.Request.Context(), personID); deleteErr != nil {
		handler.logger.Error(logMessageStoreFailure, zap.Error(deleteErr))
		ginContext.JSON(http.StatusInternalServerError, gin.H{responseKeyError: errorMessageStoreFailure})
		return
	}
	ginContext.JSON(http.StatusOK, gin.H{healthStatusKey: healthStatusOK})
}
