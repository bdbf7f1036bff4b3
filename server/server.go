package server

import (
	"bytes"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/lucasjlepore/fit-intervals/config"
	"github.com/lucasjlepore/fit-intervals/export"
	"github.com/lucasjlepore/fit-intervals/merge"
	"github.com/lucasjlepore/fit-intervals/session"
	"github.com/lucasjlepore/fit-intervals/summary"
)

type Server struct {
	App       *fiber.App
	Workspace *session.Workspace
	Assembler *summary.Assembler
	Config    *config.Source
	Logger    *zap.Logger
}

func NewServer(ws *session.Workspace, asm *summary.Assembler, src *config.Source, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		Workspace: ws,
		Assembler: asm,
		Config:    src,
		Logger:    log,
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ErrorHandler:          s.handleError,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	s.App = app

	registerRoutes(s)
	return s
}

func (s *Server) handleError(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	switch {
	case errors.As(err, &fe):
		code = fe.Code
	case errors.Is(err, session.ErrUnknownSession), errors.Is(err, session.ErrUnknownInterval):
		code = fiber.StatusNotFound
	case errors.Is(err, session.ErrMalformedInterval):
		code = fiber.StatusBadRequest
	}
	if code >= fiber.StatusInternalServerError {
		s.Logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error()})
}

type sessionInfo struct {
	*session.Session
	Channels string `json:"channels"`
	Samples  int    `json:"samples"`
	Current  bool   `json:"current"`
}

func registerRoutes(s *Server) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	s.App.Get("/sessions", func(c *fiber.Ctx) error {
		current := s.Workspace.Current()
		out := []sessionInfo{}
		for _, sess := range s.Workspace.Sessions() {
			out = append(out, sessionInfo{
				Session:  sess,
				Channels: sess.Channels().String(),
				Samples:  sess.Stream.Len(),
				Current:  current != nil && current.ID == sess.ID,
			})
		}
		return c.JSON(out)
	})

	sessions := s.App.Group("/sessions/:id")

	sessions.Get("/summary", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if _, ok := s.Workspace.Session(id); !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		if cur := s.Workspace.Current(); cur == nil || cur.ID != id {
			return fiber.NewError(fiber.StatusConflict, "session is not active")
		}
		return c.JSON(s.Assembler.Current())
	})

	sessions.Put("/activate", func(c *fiber.Ctx) error {
		if err := s.Workspace.Activate(c.Params("id")); err != nil {
			return err
		}
		return c.JSON(s.Assembler.Current())
	})

	sessions.Put("/selection", func(c *fiber.Ctx) error {
		var body struct {
			IntervalIDs []string `json:"interval_ids"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		id := c.Params("id")
		if err := s.Workspace.Activate(id); err != nil {
			return err
		}
		if err := s.Workspace.Select(id, body.IntervalIDs...); err != nil {
			return err
		}
		return c.JSON(s.Assembler.Current())
	})

	sessions.Put("/hover", func(c *fiber.Ctx) error {
		var body struct {
			IntervalID string `json:"interval_id"`
		}
		if err := c.BodyParser(&body); err != nil || body.IntervalID == "" {
			return fiber.NewError(fiber.StatusBadRequest, "interval_id required")
		}
		id := c.Params("id")
		if err := s.Workspace.Activate(id); err != nil {
			return err
		}
		if err := s.Workspace.Hover(id, body.IntervalID); err != nil {
			return err
		}
		return c.JSON(s.Assembler.Current())
	})

	sessions.Delete("/hover", func(c *fiber.Ctx) error {
		id := c.Params("id")
		if err := s.Workspace.Activate(id); err != nil {
			return err
		}
		if err := s.Workspace.ClearHover(id); err != nil {
			return err
		}
		return c.JSON(s.Assembler.Current())
	})

	sessions.Post("/intervals", func(c *fiber.Ctx) error {
		var body struct {
			Name   string   `json:"name"`
			StartS *float64 `json:"start_s"`
			StopS  *float64 `json:"stop_s"`
		}
		if err := c.BodyParser(&body); err != nil || body.StartS == nil || body.StopS == nil {
			return fiber.NewError(fiber.StatusBadRequest, "start_s and stop_s required")
		}
		iv, err := s.Workspace.AddInterval(c.Params("id"), body.Name, *body.StartS, *body.StopS)
		if err != nil {
			return err
		}
		return c.Status(fiber.StatusCreated).JSON(iv)
	})

	sessions.Get("/selection/stream", func(c *fiber.Ctx) error {
		id := c.Params("id")
		sess, ok := s.Workspace.Session(id)
		if !ok {
			return fiber.NewError(fiber.StatusNotFound, "session not found")
		}
		stream, _ := merge.Build(sess.Stream, s.Workspace.Selection(id), merge.Options{
			Derived: s.Config.Settings().Derived,
		})

		switch c.Query("format", "csv") {
		case "csv":
			var buf bytes.Buffer
			if err := export.WriteCSV(&buf, stream); err != nil {
				return err
			}
			c.Set(fiber.HeaderContentType, "text/csv")
			return c.Send(buf.Bytes())
		case "parquet":
			data, err := export.MarshalParquet(stream)
			if err != nil {
				return err
			}
			c.Set(fiber.HeaderContentType, "application/vnd.apache.parquet")
			return c.Send(data)
		default:
			return fiber.NewError(fiber.StatusBadRequest, "format must be csv or parquet")
		}
	})

	s.App.Get("/config", func(c *fiber.Ctx) error {
		return c.JSON(s.Config.Config())
	})

	s.App.Put("/config", func(c *fiber.Ctx) error {
		var body struct {
			IntervalMetrics   *string  `json:"interval_metrics"`
			Units             *string  `json:"units"`
			MultiIntervalMode *string  `json:"multi_interval_mode"`
			DerivedFields     *string  `json:"derived_fields"`
			Language          *string  `json:"language"`
			FTPWatts          *float64 `json:"ftp_w"`
			MaxHR             *float64 `json:"max_hr"`
		}
		if err := c.BodyParser(&body); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		cfg := s.Config.Config()
		setString(&cfg.IntervalMetrics, body.IntervalMetrics)
		setString(&cfg.Units, body.Units)
		setString(&cfg.MultiIntervalMode, body.MultiIntervalMode)
		setString(&cfg.DerivedFields, body.DerivedFields)
		setString(&cfg.Language, body.Language)
		if body.FTPWatts != nil {
			cfg.Zones.FTPWatts = *body.FTPWatts
		}
		if body.MaxHR != nil {
			cfg.Zones.MaxHR = *body.MaxHR
		}
		if err := s.Config.Update(cfg); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		return c.JSON(s.Assembler.Current())
	})
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
