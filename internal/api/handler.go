// Package api exposes the converter over HTTP with fiber.
package api

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/insightdelivered/sheetsift/internal/cleanup"
	"github.com/insightdelivered/sheetsift/internal/converter"
	"github.com/insightdelivered/sheetsift/internal/logger"
	"github.com/insightdelivered/sheetsift/internal/models"
	"github.com/insightdelivered/sheetsift/internal/parser"
	"github.com/insightdelivered/sheetsift/internal/storage"
)

// lastFileKey is the session key holding the most recent artifact ref.
const lastFileKey = "last_file"

// AnalyzeResponse is the JSON response from /api/analyze, and the error
// body of every endpoint.
type AnalyzeResponse struct {
	Success     bool              `json:"success"`
	Error       string            `json:"error,omitempty"`
	Kind        models.ErrorKind  `json:"kind,omitempty"`
	Detail      string            `json:"detail,omitempty"`
	Bank        models.BankType   `json:"bank,omitempty"`
	BankName    string            `json:"bankName,omitempty"`
	Variant     string            `json:"variant,omitempty"`
	Artifact    *storage.Artifact `json:"artifact,omitempty"`
	DownloadURL string            `json:"downloadUrl,omitempty"`
	Years       []int             `json:"years,omitempty"`
	Count       int               `json:"count"`
	Undated     int               `json:"undated"`
	TotalCredit decimal.Decimal   `json:"totalCredit"`
	TotalDebit  decimal.Decimal   `json:"totalDebit"`
	ExpiresAt   *time.Time        `json:"expiresAt,omitempty"`
}

// BankInfo describes one supported bank for /api/banks.
type BankInfo struct {
	ID       models.BankType `json:"id"`
	Name     string          `json:"name"`
	Variants []string        `json:"variants"`
}

// Handler holds the HTTP handlers for the API.
type Handler struct {
	Converter   *converter.Service
	Store       storage.Store
	Cleanup     *cleanup.Scheduler
	Sessions    *session.Store
	Log         zerolog.Logger
	DeleteAfter time.Duration
	Version     string
}

// RegisterRoutes sets up the HTTP routes.
func (h *Handler) RegisterRoutes(app *fiber.App) {
	api := app.Group("/api")
	api.Get("/health", h.HandleHealth)
	api.Get("/banks", h.HandleBanks)
	api.Post("/analyze", h.HandleAnalyze)
	api.Get("/download", h.HandleDownload)
	api.Get("/artifacts/:id/:name", h.HandleArtifact)
	api.Delete("/artifacts/:id/:name", h.HandleDeleteArtifact)
}

func (h *Handler) HandleHealth(c *fiber.Ctx) error {
	pending := 0
	if h.Cleanup != nil {
		pending = len(h.Cleanup.Pending())
	}
	return c.JSON(fiber.Map{
		"status":  "ok",
		"engine":  "fiber",
		"version": h.Version,
		"pending": pending,
	})
}

func (h *Handler) HandleBanks(c *fiber.Ctx) error {
	banks := parser.Banks()
	out := make([]BankInfo, 0, len(banks))
	for _, n := range banks {
		info := BankInfo{ID: n.Bank(), Name: n.BankName()}
		for _, f := range n.Formats() {
			info.Variants = append(info.Variants, f.ID)
		}
		out = append(out, info)
	}
	return c.JSON(out)
}

func (h *Handler) HandleAnalyze(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return h.writeError(c, fiber.StatusBadRequest, "",
			errors.New("no file uploaded, use form field 'file'"))
	}

	// bank and extension are checked before the upload is read
	req, err := converter.ParseRequest(c.FormValue("bank"), fh.Filename, nil)
	if err != nil {
		return h.writeKindError(c, err)
	}

	f, err := fh.Open()
	if err != nil {
		return h.writeKindError(c, fmt.Errorf("failed to open upload: %w", err))
	}
	req.Data, err = io.ReadAll(f)
	f.Close()
	if err != nil {
		return h.writeKindError(c, fmt.Errorf("failed to read upload: %w", err))
	}

	res, err := h.Converter.Process(c.UserContext(), req)
	if err != nil {
		return h.writeKindError(c, err)
	}

	ref := res.Artifact.Ref
	expires := time.Now().Add(h.DeleteAfter)
	if h.Cleanup != nil {
		h.Cleanup.Schedule(ref, h.DeleteAfter)
	}

	sess, err := h.Sessions.Get(c)
	if err != nil {
		return h.writeKindError(c, fmt.Errorf("failed to load session: %w", err))
	}
	sess.Set(lastFileKey, ref)
	if err := sess.Save(); err != nil {
		return h.writeKindError(c, fmt.Errorf("failed to save session: %w", err))
	}

	report := res.Report
	credit, debit := report.Totals()
	return c.JSON(AnalyzeResponse{
		Success:     true,
		Bank:        report.Bank,
		BankName:    report.BankName,
		Variant:     report.Variant,
		Artifact:    &res.Artifact,
		DownloadURL: "/api/artifacts/" + ref,
		Years:       report.Years,
		Count:       report.Transactions,
		Undated:     report.Undated,
		TotalCredit: credit,
		TotalDebit:  debit,
		ExpiresAt:   &expires,
	})
}

func (h *Handler) HandleDownload(c *fiber.Ctx) error {
	sess, err := h.Sessions.Get(c)
	if err != nil {
		return h.writeKindError(c, fmt.Errorf("failed to load session: %w", err))
	}
	ref, _ := sess.Get(lastFileKey).(string)
	if ref == "" {
		return h.writeError(c, fiber.StatusNotFound, "", errors.New("no processed file in this session"))
	}
	return h.sendArtifact(c, ref)
}

func (h *Handler) HandleArtifact(c *fiber.Ctx) error {
	ref := storage.MakeRef(c.Params("id"), c.Params("name"))
	if _, _, err := storage.ParseRef(ref); err != nil {
		return h.writeError(c, fiber.StatusNotFound, "", err)
	}
	return h.sendArtifact(c, ref)
}

// HandleDeleteArtifact removes a result before its grace period ends.
func (h *Handler) HandleDeleteArtifact(c *fiber.Ctx) error {
	ref := storage.MakeRef(c.Params("id"), c.Params("name"))
	if _, _, err := storage.ParseRef(ref); err != nil {
		return h.writeError(c, fiber.StatusNotFound, "", err)
	}

	var err error
	if h.Cleanup != nil {
		err = h.Cleanup.DeleteNow(c.UserContext(), ref)
	} else {
		err = h.Store.Delete(c.UserContext(), ref)
	}
	if errors.Is(err, storage.ErrNotFound) {
		return h.writeKindError(c, models.Errorf(models.KindArtifactExpired, "%s is no longer available", ref))
	}
	if err != nil {
		return h.writeKindError(c, fmt.Errorf("failed to delete %s: %w", ref, err))
	}

	sess, err := h.Sessions.Get(c)
	if err == nil {
		if last, _ := sess.Get(lastFileKey).(string); last == ref {
			sess.Delete(lastFileKey)
			if err := sess.Save(); err != nil {
				return h.writeKindError(c, fmt.Errorf("failed to save session: %w", err))
			}
		}
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// sendArtifact reads the whole artifact and closes it before responding,
// so a deletion firing mid-download never serves partial data.
func (h *Handler) sendArtifact(c *fiber.Ctx, ref string) error {
	_, name, err := storage.ParseRef(ref)
	if err != nil {
		return h.writeError(c, fiber.StatusNotFound, "", err)
	}

	rc, err := h.Store.Open(c.UserContext(), ref)
	if errors.Is(err, storage.ErrNotFound) {
		return h.writeKindError(c, models.Errorf(models.KindArtifactExpired, "%s is no longer available", name))
	}
	if err != nil {
		return h.writeKindError(c, fmt.Errorf("failed to open %s: %w", ref, err))
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return h.writeKindError(c, fmt.Errorf("failed to read %s: %w", ref, err))
	}

	c.Attachment(name)
	c.Set(fiber.HeaderContentType, models.WorkbookContentType)
	return c.Send(data)
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind models.ErrorKind) int {
	switch kind {
	case models.KindUnsupportedBank:
		return fiber.StatusBadRequest
	case models.KindWrongFileType:
		return fiber.StatusUnsupportedMediaType
	case models.KindFormatMismatch, models.KindMalformedInput, models.KindEmptyInput:
		return fiber.StatusUnprocessableEntity
	case models.KindArtifactExpired:
		return fiber.StatusGone
	}
	return fiber.StatusInternalServerError
}

func (h *Handler) writeKindError(c *fiber.Ctx, err error) error {
	kind := models.KindOf(err)
	return h.writeError(c, StatusFor(kind), kind, err)
}

func (h *Handler) writeError(c *fiber.Ctx, status int, kind models.ErrorKind, err error) error {
	log := logger.FromContextOr(c.UserContext(), h.Log)
	ev := log.Warn()
	if status >= fiber.StatusInternalServerError {
		ev = log.Error()
	}
	ev.Err(err).Str("path", c.Path()).Int("status", status).Str("kind", string(kind)).Msg("request failed")

	return c.Status(status).JSON(AnalyzeResponse{
		Success: false,
		Error:   converter.GenericMessage,
		Kind:    kind,
		Detail:  err.Error(),
	})
}
