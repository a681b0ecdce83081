package echoapi

import (
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/masomo/training/core"
	"github.com/trezcool/masomo/training/core/scenario"
	"github.com/trezcool/masomo/training/core/training"
)

const mimeApplicationYAML = "application/x-yaml"

type (
	trainingApi struct {
		svc *training.Service
	}

	attemptsQuery struct {
		User string `query:"user" json:"user"`
	}

	bestAttemptQuery struct {
		User string `query:"user" json:"user" validate:"notblank"`
	}
)

func registerTrainingAPI(g *echo.Group, svc *training.Service) {
	api := trainingApi{svc: svc}

	tg := g.Group("/trainings")
	tg.POST("", api.create)
	tg.GET("/:id", api.retrieve)
	tg.POST("/:id/levels", api.createLevels)
	tg.POST("/:id/revisions", api.submitRevision)
	tg.POST("/:id/revisions/:rid/approve", api.approveRevision)

	lg := g.Group("/levels/:id")
	lg.GET("", api.retrieveLevel)
	lg.GET("/optimal-path", api.optimalPath)
	lg.POST("/attempts", api.submitAttempt)
	lg.GET("/attempts", api.queryAttempts)
	lg.GET("/attempts/best", api.bestAttempt)
}

// Handlers

func (api *trainingApi) create(ctx echo.Context) error {
	var data training.NewTraining
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewTraining")
	}
	t, err := api.svc.CreateTraining(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating training")
	}
	return ctx.JSON(http.StatusCreated, t)
}

func (api *trainingApi) retrieve(ctx echo.Context) error {
	t, err := api.svc.GetTraining(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting training")
	}
	return ctx.JSON(http.StatusOK, t)
}

// createLevels accepts NewLevels as JSON, or a single level document as YAML.
func (api *trainingApi) createLevels(ctx echo.Context) error {
	var data training.NewLevels
	if strings.HasPrefix(ctx.Request().Header.Get(echo.HeaderContentType), mimeApplicationYAML) {
		body, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			return errors.Wrap(err, "reading level document")
		}
		doc, err := scenario.DecodeLevelDocument(body, true)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid level document").SetInternal(err)
		}
		data.Levels = []training.NewLevel{training.NewLevelFromDocument(doc)}
	} else if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLevels")
	}

	levels, err := api.svc.CreateLevels(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "creating levels")
	}
	return ctx.JSON(http.StatusCreated, levels)
}

func (api *trainingApi) retrieveLevel(ctx echo.Context) error {
	lvl, err := api.svc.GetLevel(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "getting level")
	}
	return ctx.JSON(http.StatusOK, lvl)
}

func (api *trainingApi) optimalPath(ctx echo.Context) error {
	res, err := api.svc.OptimalPath(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding optimal path")
	}
	return ctx.JSON(http.StatusOK, res)
}

func (api *trainingApi) submitAttempt(ctx echo.Context) error {
	var data training.NewAttempt
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewAttempt")
	}
	a, err := api.svc.SubmitAttempt(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "submitting attempt")
	}
	return ctx.JSON(http.StatusCreated, a)
}

func (api *trainingApi) queryAttempts(ctx echo.Context) error {
	var q attemptsQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &q); err != nil {
		return errors.Wrap(err, "binding to attemptsQuery")
	}
	var ord Ordering
	ord.Bind(ctx, training.AttemptOrderings...)

	attempts, err := api.svc.ListAttempts(ctx.Request().Context(), ctx.Param("id"), q.User, ord.Orderings...)
	if err != nil {
		return errors.Wrap(err, "listing attempts")
	}
	return ctx.JSON(http.StatusOK, attempts)
}

func (api *trainingApi) bestAttempt(ctx echo.Context) error {
	var q bestAttemptQuery
	if err := (&echo.DefaultBinder{}).BindQueryParams(ctx, &q); err != nil {
		return errors.Wrap(err, "binding to bestAttemptQuery")
	}
	q.User = core.CleanString(q.User)
	if err := ctx.Validate(&q); err != nil {
		return err
	}

	a, err := api.svc.BestAttempt(ctx.Request().Context(), ctx.Param("id"), q.User)
	if err != nil {
		return errors.Wrap(err, "getting best attempt")
	}
	return ctx.JSON(http.StatusOK, a)
}

func (api *trainingApi) submitRevision(ctx echo.Context) error {
	var data training.NewRevision
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewRevision")
	}
	if data.Training == nil {
		data.Training = ctx.Param("id")
	} else if !core.SameID(data.Training, ctx.Param("id")) {
		return core.NewValidationError(training.ErrRevisionMismatch, core.FieldError{
			Field: "training",
			Error: training.ErrRevisionMismatch.Error(),
		})
	}

	rev, err := api.svc.SubmitRevision(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "submitting revision")
	}
	return ctx.JSON(http.StatusCreated, rev)
}

func (api *trainingApi) approveRevision(ctx echo.Context) error {
	t, err := api.svc.ApproveRevision(ctx.Request().Context(), ctx.Param("id"), ctx.Param("rid"))
	if err != nil {
		return errors.Wrap(err, "approving revision")
	}
	return ctx.JSON(http.StatusOK, t)
}
