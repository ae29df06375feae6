package main

import (
	"log/slog"
	"strconv"

	"github.com/gofiber/fiber/v3"

	"github.com/meikuraledutech/bpmn"
	"github.com/meikuraledutech/bpmn/dmn"
)

type server struct {
	store     bpmn.Store
	codec     *bpmn.Codec
	validator *bpmn.Validator
	fixer     *bpmn.AutoFixer
	log       *slog.Logger
}

func newServer(store bpmn.Store, layout bpmn.Layout, log *slog.Logger) *server {
	return &server{
		store:     store,
		codec:     bpmn.NewCodec(layout, log),
		validator: &bpmn.Validator{Logger: log},
		fixer:     &bpmn.AutoFixer{Forms: store, Layout: layout, Logger: log},
		log:       log,
	}
}

type createRequest struct {
	Name string `json:"name"`
}

type saveRequest struct {
	Version int    `json:"version"`
	Name    string `json:"name"`
	XML     string `json:"xml"`
}

// status maps an error code to an HTTP status.
func status(err error) int {
	switch bpmn.Code(err) {
	case bpmn.ErrCodeMalformedDocument, bpmn.ErrCodeInvalidAttribute, bpmn.ErrCodeEmptyName,
		bpmn.ErrCodeDuplicateID, bpmn.ErrCodeUnknownNode, bpmn.ErrCodeUnknownEdge, bpmn.ErrCodeInvalidDefaultFlow:
		return 400
	case bpmn.ErrCodeNotFound:
		return 404
	case bpmn.ErrCodeVersionConflict:
		return 409
	case bpmn.ErrCodeValidationViolation:
		return 422
	}
	return 500
}

func (s *server) fail(c fiber.Ctx, err error) error {
	code := status(err)
	if code == 500 {
		s.log.Error("bpmn: request failed", "path", c.Path(), "error", err)
	}
	return c.Status(code).JSON(fiber.Map{"error": err.Error(), "code": bpmn.Code(err)})
}

func newApp(s *server) *fiber.App {
	app := fiber.New()

	// ── Schema ────────────────────────────────────────────────────────
	app.Post("/schema", func(c fiber.Ctx) error {
		if err := s.store.CreateSchema(c.Context()); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema created"})
	})

	app.Delete("/schema", func(c fiber.Ctx) error {
		if err := s.store.DropSchema(c.Context()); err != nil {
			return s.fail(c, err)
		}
		return c.JSON(fiber.Map{"message": "schema dropped"})
	})

	// ── Processes ─────────────────────────────────────────────────────
	app.Post("/processes", func(c fiber.Ctx) error {
		var req createRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		d, err := bpmn.NewDocument(req.Name)
		if err != nil {
			return s.fail(c, err)
		}
		xml, err := s.codec.Serialize(d)
		if err != nil {
			return s.fail(c, err)
		}
		rec, err := s.store.SaveDocument(c.Context(), &bpmn.Record{
			Key: d.ProcessID, Kind: bpmn.KindBPMN, Name: d.ProcessName, Content: xml,
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(201).JSON(rec)
	})

	app.Post("/processes/validate", func(c fiber.Ctx) error {
		d, err := s.codec.Parse(string(c.Body()))
		if err != nil {
			return s.fail(c, err)
		}
		if vs := s.validator.Validate(d); len(vs) > 0 {
			return c.Status(422).JSON(fiber.Map{"valid": false, "violations": vs})
		}
		return c.JSON(fiber.Map{"valid": true})
	})

	app.Post("/processes/fix", func(c fiber.Ctx) error {
		d, err := s.codec.Parse(string(c.Body()))
		if err != nil {
			return s.fail(c, err)
		}
		report, fixErr := s.fixer.Fix(c.Context(), d)
		xml, err := s.codec.Serialize(d)
		if err != nil {
			return s.fail(c, err)
		}
		resp := fiber.Map{"report": report, "xml": xml}
		if fixErr != nil {
			resp["error"] = fixErr.Error()
		}
		return c.JSON(resp)
	})

	app.Get("/processes/:key", func(c fiber.Ctx) error {
		rec, err := s.record(c)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(rec)
	})

	app.Get("/processes/:key/versions", func(c fiber.Ctx) error {
		recs, err := s.store.ListVersions(c.Context(), c.Params("key"))
		if err != nil {
			return s.fail(c, err)
		}
		if len(recs) == 0 {
			return s.fail(c, bpmn.NotFound("document", c.Params("key")))
		}
		return c.JSON(recs)
	})

	app.Put("/processes/:key", func(c fiber.Ctx) error {
		var req saveRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		d, err := s.codec.Parse(req.XML)
		if err != nil {
			return s.fail(c, err)
		}
		xml, err := s.codec.Serialize(d)
		if err != nil {
			return s.fail(c, err)
		}
		rec, err := s.store.SaveDocument(c.Context(), &bpmn.Record{
			Key: c.Params("key"), Kind: bpmn.KindBPMN, Version: req.Version,
			Name: or(req.Name, d.ProcessName), Content: xml,
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(rec)
	})

	app.Delete("/processes/:key", func(c fiber.Ctx) error {
		if err := s.store.DeleteDocument(c.Context(), c.Params("key")); err != nil {
			return s.fail(c, err)
		}
		return c.SendStatus(204)
	})

	app.Get("/processes/:key/summary", func(c fiber.Ctx) error {
		rec, err := s.record(c)
		if err != nil {
			return s.fail(c, err)
		}
		d, err := s.codec.Parse(rec.Content)
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(bpmn.Summarize(d))
	})

	// ── Decisions ─────────────────────────────────────────────────────
	app.Post("/decisions", func(c fiber.Ctx) error {
		var req createRequest
		if err := c.Bind().JSON(&req); err != nil {
			return c.Status(400).JSON(fiber.Map{"error": "invalid body"})
		}
		m, err := dmn.New(dmn.DecisionKey(req.Name), req.Name)
		if err != nil {
			return s.fail(c, err)
		}
		xml, err := dmn.Serialize(m)
		if err != nil {
			return s.fail(c, err)
		}
		rec, err := s.store.SaveDocument(c.Context(), &bpmn.Record{
			Key: m.Decision.ID, Kind: bpmn.KindDMN, Name: req.Name, Content: xml,
		})
		if err != nil {
			return s.fail(c, err)
		}
		return c.Status(201).JSON(rec)
	})

	app.Post("/decisions/validate", func(c fiber.Ctx) error {
		m, err := dmn.Parse(string(c.Body()))
		if err != nil {
			return s.fail(c, err)
		}
		if err := dmn.Validate(m); err != nil {
			return c.Status(422).JSON(fiber.Map{"valid": false, "error": err.Error()})
		}
		return c.JSON(fiber.Map{"valid": true, "decision_id": m.Decision.ID})
	})

	// ── Forms ─────────────────────────────────────────────────────────
	app.Get("/forms/:key", func(c fiber.Ctx) error {
		f, err := s.store.GetForm(c.Context(), c.Params("key"))
		if err != nil {
			return s.fail(c, err)
		}
		return c.JSON(f)
	})

	return app
}

// record loads the latest version of :key, or the one named by ?version.
func (s *server) record(c fiber.Ctx) (*bpmn.Record, error) {
	key := c.Params("key")
	raw := c.Query("version")
	if raw == "" {
		return s.store.LatestDocument(c.Context(), key)
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, bpmn.NewError(bpmn.ErrInvalidAttribute, "version must be a number", err, nil)
	}
	return s.store.DocumentVersion(c.Context(), key, v)
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
